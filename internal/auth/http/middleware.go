package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/nomadpay/authcore/internal/auth/domain"
	"github.com/nomadpay/authcore/internal/auth/service"
	"github.com/nomadpay/authcore/pkg/authsdk"
	"github.com/nomadpay/authcore/pkg/httpx"
	"github.com/nomadpay/authcore/pkg/slogx"
)

type identityCtxKey struct{}

// RequireIdentity rejects requests without a valid access token and stores
// the resolved identity for IdentityFromContext.
func RequireIdentity(gate *service.Gate) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			ident, err := gate.Authenticate(ctx, r.Header)
			switch {
			case err == nil:
			case errors.Is(err, service.ErrUnauthenticated):
				slogx.FromContext(ctx).Debug("request not authenticated", "reason", err)
				httpx.WriteBearerError(w, authsdk.MsgAuthRequired)
				return
			default:
				writeInternalError(w, r, err)
				return
			}

			ctx = httpx.ContextWithPrincipal(ctx, ident.ID, string(ident.Role))
			ctx = slogx.WithIdentity(ctx, ident.ID)
			ctx = context.WithValue(ctx, identityCtxKey{}, ident)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext returns the identity stored by RequireIdentity.
func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	ident, ok := ctx.Value(identityCtxKey{}).(domain.Identity)
	return ident, ok
}

func requestMeta(r *http.Request) service.RequestMeta {
	return service.RequestMeta{
		SourceIP:  httpx.IPKeyExtractor(r),
		UserAgent: r.UserAgent(),
	}
}

// writeInternalError logs err in full, reports it to Sentry and answers with
// a generic 500.
func writeInternalError(w http.ResponseWriter, r *http.Request, err error) {
	slogx.FromContext(r.Context()).Error("request failed", "error", err)

	hub := sentry.GetHubFromContext(r.Context())
	if hub == nil {
		hub = sentry.CurrentHub().Clone()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetRequest(r)
		scope.SetTag("request_id", slogx.RequestID(r.Context()))
		hub.CaptureException(err)
	})

	authsdk.NewAPIError(http.StatusInternalServerError, authsdk.MsgInternal).WriteError(w)
}
