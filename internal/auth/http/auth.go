package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/nomadpay/authcore/internal/auth/domain"
	"github.com/nomadpay/authcore/internal/auth/service"
	"github.com/nomadpay/authcore/pkg/authsdk"
	"github.com/nomadpay/authcore/pkg/httpx"
	"github.com/nomadpay/authcore/pkg/slogx"
)

type AuthHandler struct {
	Auth *service.AuthService
}

// HandleRegister creates an account.
//
//	@Summary		Register
//	@Description	Creates a user identity and returns an access/refresh token pair.
//	@Description	The email is trimmed and lowercased; the password must be at least 8 characters.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.RegisterRequest	true	"Credentials"
//	@Success		201		{object}	authsdk.AuthResponse
//	@Failure		400		{object}	authsdk.Envelope	"Invalid body, email or password"
//	@Failure		409		{object}	authsdk.Envelope	"Email already registered"
//	@Failure		429		{object}	authsdk.Envelope	"Rate limit exceeded"
//	@Failure		500		{object}	authsdk.Envelope
//	@Router			/auth/register [post].
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RegisterRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		authsdk.NewAPIError(http.StatusBadRequest, authsdk.MsgInvalidBody).WriteError(w)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		authsdk.NewAPIError(http.StatusBadRequest, authsdk.MsgMissingCredentials).WriteError(w)
		return
	}

	sess, err := h.Auth.Register(r.Context(), requestMeta(r), req.Email, req.Password)
	if err != nil {
		writeAuthError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, authsdk.AuthResponse{
		Envelope:     authsdk.Envelope{Success: true, Message: "User registered successfully"},
		AccessToken:  sess.Tokens.AccessToken,
		RefreshToken: sess.Tokens.RefreshToken,
		User:         userResponse(sess.Identity),
	})
}

// HandleLogin exchanges credentials for a token pair.
//
//	@Summary		Login
//	@Description	Verifies email and password. Unknown email, wrong password and inactive accounts
//	@Description	all produce the same 401 response.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	authsdk.AuthResponse
//	@Failure		400		{object}	authsdk.Envelope	"Missing email or password"
//	@Failure		401		{object}	authsdk.Envelope	"Invalid email or password"
//	@Failure		429		{object}	authsdk.Envelope	"Rate limit exceeded"
//	@Failure		500		{object}	authsdk.Envelope
//	@Router			/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		authsdk.NewAPIError(http.StatusBadRequest, authsdk.MsgInvalidBody).WriteError(w)
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		authsdk.NewAPIError(http.StatusBadRequest, authsdk.MsgMissingCredentials).WriteError(w)
		return
	}

	sess, err := h.Auth.Login(r.Context(), requestMeta(r), req.Email, req.Password)
	if err != nil {
		writeAuthError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.AuthResponse{
		Envelope:     authsdk.Envelope{Success: true, Message: "Login successful"},
		AccessToken:  sess.Tokens.AccessToken,
		RefreshToken: sess.Tokens.RefreshToken,
		User:         userResponse(sess.Identity),
	})
}

// HandleRefresh rotates a refresh token.
//
//	@Summary		Refresh tokens
//	@Description	Consumes the refresh token and returns a new access/refresh pair.
//	@Description	A refresh token can be used once; reuse, logout, expiry and tampering all yield 401.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.RefreshRequest	true	"Refresh token"
//	@Success		200		{object}	authsdk.TokenPairResponse
//	@Failure		400		{object}	authsdk.Envelope	"Missing refresh token"
//	@Failure		401		{object}	authsdk.Envelope	"Invalid or expired refresh token"
//	@Failure		500		{object}	authsdk.Envelope
//	@Router			/auth/refresh [post].
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		authsdk.NewAPIError(http.StatusBadRequest, authsdk.MsgInvalidBody).WriteError(w)
		return
	}
	if req.RefreshToken == "" {
		authsdk.NewAPIError(http.StatusBadRequest, authsdk.MsgMissingRefreshToken).WriteError(w)
		return
	}

	pair, err := h.Auth.Refresh(r.Context(), requestMeta(r), req.RefreshToken)
	if err != nil {
		writeAuthError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.TokenPairResponse{
		Envelope:     authsdk.Envelope{Success: true, Message: "Token refreshed successfully"},
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// HandleLogout revokes a refresh token.
//
//	@Summary		Logout
//	@Description	Revokes the refresh token. Always succeeds, whether or not the token was known.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.RefreshRequest	false	"Refresh token"
//	@Success		200		{object}	authsdk.Envelope
//	@Router			/auth/logout [post].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshRequest
	// A bad body is treated as "nothing to revoke".
	_ = httpx.DecodeJSON(w, r, &req)

	if err := h.Auth.Logout(r.Context(), requestMeta(r), req.RefreshToken); err != nil {
		// The caller still gets 200; the token may remain usable until it expires.
		slogx.FromContext(r.Context()).Error("logout revoke failed", "error", err)
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.Envelope{
		Success: true,
		Message: "Logged out successfully",
	})
}

// writeAuthError maps service errors onto status codes and client messages.
func writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		authsdk.NewAPIError(http.StatusBadRequest, validationMessage(verr)).WriteError(w)
	case errors.Is(err, service.ErrInvalidInput):
		authsdk.NewAPIError(http.StatusBadRequest, authsdk.MsgInvalidBody).WriteError(w)
	case errors.Is(err, service.ErrEmailTaken):
		authsdk.NewAPIError(http.StatusConflict, authsdk.MsgEmailTaken).WriteError(w)
	case errors.Is(err, service.ErrInvalidCredentials):
		authsdk.NewAPIError(http.StatusUnauthorized, authsdk.MsgInvalidCredentials).WriteError(w)
	case errors.Is(err, service.ErrRefreshInvalid):
		authsdk.NewAPIError(http.StatusUnauthorized, authsdk.MsgInvalidRefreshToken).WriteError(w)
	default:
		writeInternalError(w, r, err)
	}
}

// validationMessage renders e.g. "Password must be at least 8 characters long".
func validationMessage(e *service.ValidationError) string {
	if e.Field == "credentials" {
		return authsdk.MsgMissingCredentials
	}
	return strings.ToUpper(e.Field[:1]) + e.Field[1:] + " " + e.Message
}

func userResponse(i domain.Identity) authsdk.UserResponse {
	return authsdk.UserResponse{
		ID:        i.ID,
		Email:     i.Email,
		Role:      string(i.Role),
		CreatedAt: i.CreatedAt.UTC().Format(time.RFC3339),
	}
}
