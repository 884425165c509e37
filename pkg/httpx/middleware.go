package httpx

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/getsentry/sentry-go"
	"github.com/nomadpay/authcore/pkg/slogx"
)

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain wraps h so that the first middleware listed sees the request first.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Recover turns a panicking handler into a 500 response and reports the panic
// to Sentry. Without a configured Sentry client the capture is a no-op.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			stack := string(debug.Stack())
			sentry.WithScope(func(scope *sentry.Scope) {
				scope.SetRequest(r)
				scope.SetContext("panic", sentry.Context{"stack": stack})
				sentry.CaptureException(fmt.Errorf("panic in request: %v", rec))
			})

			slogx.FromContext(r.Context()).Error("panic recovered",
				"panic", fmt.Sprint(rec),
				"stack", stack,
			)

			WriteJSON(w, http.StatusInternalServerError, map[string]any{
				"success": false,
				"message": "Internal server error",
			})
		}()

		next.ServeHTTP(w, r)
	})
}
