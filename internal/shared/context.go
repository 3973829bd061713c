package shared

import "context"

type contextKey int

const subjectContextKey contextKey = iota

// ContextWithSubject stores the verified subject identifier for the request.
// Authentication is an external collaborator; by the time a request reaches
// this core the subject id has already been verified.
func ContextWithSubject(ctx context.Context, subjectID int64) context.Context {
	return context.WithValue(ctx, subjectContextKey, subjectID)
}

// SubjectFromContext returns the subject identifier attached to the request.
func SubjectFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(subjectContextKey).(int64)
	return id, ok
}
