package httpapi

import "context"

type staffSubjectKey struct{}

// WithSubject records the authenticated staff operator on ctx.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, staffSubjectKey{}, subject)
}

// SubjectFromContext returns the staff operator, if any. Public routes never carry one.
func SubjectFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(staffSubjectKey{}).(string)
	return v, ok && v != ""
}
