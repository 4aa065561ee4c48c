package shared

import "context"

type sessionContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// DetachSession returns a context that ignores ctx's cancellation and no
// longer carries the session. Work that may outlive the request runs under it.
func DetachSession(ctx context.Context) context.Context {
	return context.WithValue(context.WithoutCancel(ctx), sessionContextKey{}, (*Session)(nil))
}
