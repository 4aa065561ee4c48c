package gateway

import (
	"context"
	"sync/atomic"
)

// Pin is a token captured from a request for work that may outlive it.
// Calls made under a pinned context authenticate with the pinned token and
// never write to the TokenStore; a 401 is recorded on the Pin instead, for
// the request to apply while it is still live.
type Pin struct {
	token        string
	unauthorized atomic.Bool
}

type pinKey struct{}

// NewPin captures token.
func NewPin(token string) *Pin {
	return &Pin{token: token}
}

// WithPin attaches pin to ctx.
func WithPin(ctx context.Context, pin *Pin) context.Context {
	return context.WithValue(ctx, pinKey{}, pin)
}

func pinFrom(ctx context.Context) *Pin {
	pin, _ := ctx.Value(pinKey{}).(*Pin)
	return pin
}

// Unauthorized reports whether any call under the pin was answered 401.
func (p *Pin) Unauthorized() bool {
	return p.unauthorized.Load()
}

// CurrentToken returns the token calls under ctx authenticate with: the
// pinned one when ctx carries a Pin, otherwise the one in store.
func CurrentToken(ctx context.Context, store TokenStore) string {
	if pin := pinFrom(ctx); pin != nil {
		return pin.token
	}
	if store == nil {
		return ""
	}
	return store.Token(ctx)
}
