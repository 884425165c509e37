package http

import (
	"net/http"

	"github.com/nomadpay/authcore/pkg/authsdk"
	"github.com/nomadpay/authcore/pkg/httpx"
)

// HandleMe returns the caller's identity.
//
//	@Summary		Current identity
//	@Description	Returns the identity behind the access token. The role is read from storage,
//	@Description	not from the token.
//	@Tags			Auth
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	authsdk.MeResponse
//	@Failure		401	{object}	authsdk.Envelope	"Missing, invalid or expired access token"
//	@Router			/auth/me [get].
func HandleMe(w http.ResponseWriter, r *http.Request) {
	ident, ok := IdentityFromContext(r.Context())
	if !ok {
		httpx.WriteBearerError(w, authsdk.MsgAuthRequired)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.MeResponse{
		Envelope: authsdk.Envelope{Success: true, Message: "User profile retrieved"},
		User:     userResponse(ident),
	})
}
