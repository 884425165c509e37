package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/nomadpay/authcore/internal/auth/domain"
	"github.com/nomadpay/authcore/internal/auth/service"
	"github.com/nomadpay/authcore/pkg/authsdk"
	"github.com/nomadpay/authcore/pkg/httpx"
)

// SecurityEventsHandler lists the most recent security events for admins.
type SecurityEventsHandler struct {
	Events *service.SecurityLog
}

// ServeHTTP godoc
//
//	@Summary		Recent security events
//	@Description	Newest first. limit defaults to 100 and is capped at 500.
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Param			limit	query		int	false	"Maximum number of events"
//	@Success		200		{object}	authsdk.SecurityEventsResponse
//	@Failure		400		{object}	authsdk.Envelope	"Invalid limit"
//	@Failure		401		{object}	authsdk.Envelope	"Missing, invalid or expired access token"
//	@Failure		403		{object}	authsdk.Envelope	"Caller is not an admin"
//	@Failure		500		{object}	authsdk.Envelope
//	@Router			/admin/security-events [get].
func (h *SecurityEventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			authsdk.NewAPIError(http.StatusBadRequest, "limit must be a positive integer").WriteError(w)
			return
		}
		limit = n
	}

	events, err := h.Events.Recent(r.Context(), limit)
	if err != nil {
		writeInternalError(w, r, err)
		return
	}

	out := make([]authsdk.SecurityEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, securityEventResponse(e))
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.SecurityEventsResponse{
		Envelope: authsdk.Envelope{Success: true, Message: "Security events retrieved"},
		Events:   out,
	})
}

func securityEventResponse(e domain.SecurityEvent) authsdk.SecurityEventResponse {
	return authsdk.SecurityEventResponse{
		ID:         e.ID,
		IdentityID: e.IdentityID,
		EventType:  e.EventType,
		Severity:   string(e.Severity),
		Details:    e.Details,
		IPAddress:  e.SourceIP,
		UserAgent:  e.UserAgent,
		CreatedAt:  e.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}
