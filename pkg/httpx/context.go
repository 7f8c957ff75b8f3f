package httpx

import "context"

type ctxKey string

const (
	// CtxKeySubjectID carries the authenticated subject's user id (int64)
	// once SessionAuthn has validated the session token.
	CtxKeySubjectID ctxKey = "subject_id"
)

// SubjectIDFromCtx returns the authenticated user id, or 0 when the request
// carries no validated session.
func SubjectIDFromCtx(ctx context.Context) int64 {
	if v, ok := ctx.Value(CtxKeySubjectID).(int64); ok {
		return v
	}
	return 0
}
