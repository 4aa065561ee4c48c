package gateway

import (
	"context"
	"sync"
)

// TokenStore is the single source of truth for the bearer token.
type TokenStore interface {
	Token(ctx context.Context) string
	SetToken(ctx context.Context, token string)
	ClearToken(ctx context.Context)
}

// MemoryTokens keeps one token in process memory. The worker uses it with a
// service token; tests use it in place of a session.
type MemoryTokens struct {
	mu    sync.RWMutex
	token string
}

// NewMemoryTokens returns a store seeded with token.
func NewMemoryTokens(token string) *MemoryTokens {
	return &MemoryTokens{token: token}
}

func (m *MemoryTokens) Token(context.Context) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token
}

func (m *MemoryTokens) SetToken(_ context.Context, token string) {
	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
}

func (m *MemoryTokens) ClearToken(context.Context) {
	m.mu.Lock()
	m.token = ""
	m.mu.Unlock()
}
