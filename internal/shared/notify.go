package shared

import (
	"context"
	"log/slog"
	"time"
)

// SessionTokens reads and writes the bearer token of the session carried in ctx.
// Without a session every operation is a no-op.
type SessionTokens struct{}

func (SessionTokens) Token(ctx context.Context) string {
	sess := SessionFromContext(ctx)
	if sess == nil || sess.Expired(time.Now()) {
		return ""
	}
	return sess.Token()
}

func (SessionTokens) SetToken(ctx context.Context, token string) {
	if sess := SessionFromContext(ctx); sess != nil {
		sess.SetToken(token, time.Time{})
	}
}

func (SessionTokens) ClearToken(ctx context.Context) {
	if sess := SessionFromContext(ctx); sess != nil {
		sess.ClearToken()
	}
}

// Notifier delivers transient notices to the browser through the session
// flash queue and mirrors them to the log.
type Notifier struct {
	logger *slog.Logger
}

// NewNotifier constructs a Notifier.
func NewNotifier(logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{logger: logger}
}

// Notify queues a notice of the given kind.
func (n *Notifier) Notify(ctx context.Context, kind, message string) {
	if kind == NoticeError {
		n.logger.WarnContext(ctx, "notice", slog.String("kind", kind), slog.String("message", message))
	} else {
		n.logger.DebugContext(ctx, "notice", slog.String("kind", kind), slog.String("message", message))
	}
	if sess := SessionFromContext(ctx); sess != nil {
		sess.AddFlash(FlashMessage{Kind: kind, Message: message})
	}
}

// Success queues a success notice.
func (n *Notifier) Success(ctx context.Context, message string) {
	n.Notify(ctx, NoticeSuccess, message)
}

// Error queues an error notice.
func (n *Notifier) Error(ctx context.Context, message string) {
	n.Notify(ctx, NoticeError, message)
}
