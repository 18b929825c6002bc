package httpx

import "context"

type ctxKey string

// CtxKeyUserID carries the authenticated principal's id. Set by the
// authentication middleware; consumed by per-user rate limiting.
const CtxKeyUserID ctxKey = "user_id"

// UserIDFromContext returns the authenticated principal id, or "".
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(CtxKeyUserID).(string); ok {
		return v
	}
	return ""
}
