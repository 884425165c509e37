package httpx

import "context"

type ctxKey string

const (
	CtxKeyUserID ctxKey = "user_id"
	CtxKeyRole   ctxKey = "role"
)

// ContextWithPrincipal records the authenticated caller for downstream
// middleware such as RequireRole and RateLimitByUser.
func ContextWithPrincipal(ctx context.Context, userID, role string) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, userID)
	return context.WithValue(ctx, CtxKeyRole, role)
}

func roleFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyRole).(string); ok {
		return v
	}
	return ""
}
