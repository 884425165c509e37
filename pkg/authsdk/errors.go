package authsdk

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/nomadpay/authcore/pkg/httpx"
)

// Client-facing messages. Handlers use these verbatim so clients may match on
// status codes without parsing text.
const (
	MsgInvalidBody         = "Invalid request body"
	MsgMissingCredentials  = "Email and password are required"
	MsgInvalidCredentials  = "Invalid email or password"
	MsgEmailTaken          = "Email already registered"
	MsgMissingRefreshToken = "Refresh token is required"
	MsgInvalidRefreshToken = "Invalid or expired refresh token"
	MsgAuthRequired        = "Authentication required"
	MsgInternal            = "Internal server error"
)

// APIError is a non-2xx envelope. It is written by the server and returned by
// the client.
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("authcore: %d %s", e.StatusCode, e.Message)
}

// WriteError writes e as {"success":false,"message":...}.
func (e *APIError) WriteError(w http.ResponseWriter) {
	httpx.WriteJSON(w, e.StatusCode, Envelope{Success: false, Message: e.Message})
}

// NewAPIError is shorthand for &APIError{status, message}.
func NewAPIError(status int, message string) *APIError {
	return &APIError{StatusCode: status, Message: message}
}

// parseErrorResponse turns a non-2xx response into an *APIError, keeping the
// server's message when the body is an envelope.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Message != "" {
		return &APIError{StatusCode: resp.StatusCode, Message: env.Message}
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
