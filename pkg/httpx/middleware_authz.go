package httpx

import (
	"net/http"
	"strings"
)

// RequireRole lets the request through only when the authenticated caller
// holds one of roles. It must run after the authentication middleware.
func RequireRole(roles ...string) Middleware {
	want := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		want[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := want[roleFromCtx(r.Context())]; ok {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("WWW-Authenticate",
				`Bearer error="insufficient_scope", scope="`+strings.Join(roles, " ")+`"`)
			WriteJSON(w, http.StatusForbidden, map[string]any{
				"success": false,
				"message": "Insufficient permissions",
			})
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The scheme is matched case-insensitively.
func BearerToken(h http.Header) (string, bool) {
	authz := strings.TrimSpace(h.Get("Authorization"))
	scheme, token, ok := strings.Cut(authz, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}

// WriteBearerError writes an RFC 6750 invalid_token challenge with a JSON body.
func WriteBearerError(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	WriteJSON(w, http.StatusUnauthorized, map[string]any{
		"success": false,
		"message": message,
	})
}
