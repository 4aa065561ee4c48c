package shared

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Notice kinds rendered by the UI.
const (
	NoticeSuccess = "success"
	NoticeError   = "error"
	NoticeInfo    = "info"
)

// FlashMessage is a one-time notice queued for the browser.
type FlashMessage struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// SessionManager orchestrates cookie based sessions backed by Redis.
type SessionManager struct {
	client     *redis.Client
	cookieName string
	ttl        time.Duration
	secure     bool
}

// Session holds the per-browser state of the dashboard. It is safe for
// concurrent use.
type Session struct {
	ID string

	mu        sync.Mutex
	token     string
	role      string
	expiresAt time.Time
	flashes   []FlashMessage
	isNew     bool
	dirty     bool
	destroyed bool
}

type sessionPayload struct {
	Token     string         `json:"token,omitempty"`
	Role      string         `json:"role,omitempty"`
	ExpiresAt time.Time      `json:"expires_at,omitempty"`
	Flashes   []FlashMessage `json:"flashes,omitempty"`
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(client *redis.Client, cookieName string, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{
		client:     client,
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
	}
}

// Load loads or creates a new session for request.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(sm.cookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return sm.newSession(), nil
		}
		return nil, err
	}

	payload, err := sm.client.Get(ctx, sm.redisKey(cookie.Value)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return sm.newSession(), nil
		}
		return nil, err
	}

	var stored sessionPayload
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, err
	}

	sess := &Session{
		ID:        cookie.Value,
		token:     stored.Token,
		role:      stored.Role,
		expiresAt: stored.ExpiresAt,
		flashes:   stored.Flashes,
	}
	if sess.expired(time.Now()) {
		sess.clearAuth()
	}
	return sess, nil
}

// Commit persists the session and writes cookie headers as needed.
func (sm *SessionManager) Commit(ctx context.Context, w http.ResponseWriter, sess *Session) error {
	if sess == nil {
		return nil
	}

	payload, destroyed, changed := sess.snapshot()
	if destroyed {
		if err := sm.client.Del(ctx, sm.redisKey(sess.ID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		http.SetCookie(w, &http.Cookie{
			Name:     sm.cookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   sm.secure,
			SameSite: http.SameSiteStrictMode,
		})
		return nil
	}

	if !changed {
		return nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if err := sm.client.Set(ctx, sm.redisKey(sess.ID), data, sm.lifetime(payload.ExpiresAt)).Err(); err != nil {
		sess.markDirty()
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Now().Add(sm.ttl),
	})
	return nil
}

// lifetime bounds the stored session by the token expiry when it is sooner.
func (sm *SessionManager) lifetime(expiresAt time.Time) time.Duration {
	ttl := sm.ttl
	if !expiresAt.IsZero() {
		if left := time.Until(expiresAt); left > 0 && left < ttl {
			ttl = left
		}
	}
	return ttl
}

// Destroy marks the session for deletion.
func (sm *SessionManager) Destroy(sess *Session) {
	if sess == nil {
		return
	}
	sess.mu.Lock()
	sess.destroyed = true
	sess.mu.Unlock()
}

// TTL exposes the configured session lifetime.
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

// CookieName returns the cookie identifier used for sessions.
func (sm *SessionManager) CookieName() string {
	return sm.cookieName
}

// snapshot returns what Commit persists and marks it saved. Changes made
// after the snapshot mark the session dirty again.
func (s *Session) snapshot() (payload sessionPayload, destroyed, changed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	payload = sessionPayload{
		Token:     s.token,
		Role:      s.role,
		ExpiresAt: s.expiresAt,
		Flashes:   append([]FlashMessage(nil), s.flashes...),
	}
	changed = s.dirty || s.isNew
	if !s.destroyed {
		s.dirty = false
		s.isNew = false
	}
	return payload, s.destroyed, changed
}

func (s *Session) markDirty() {
	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()
}

// Token returns the bearer token, or "" when signed out.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// SetToken signs the session in. A zero expiresAt means the token carries
// no expiry.
func (s *Session) SetToken(token string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.expiresAt = expiresAt
	s.dirty = true
}

// ClearToken signs the session out and forgets the role.
func (s *Session) ClearToken() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == "" && s.role == "" {
		return
	}
	s.clearAuth()
}

// clearAuth expects s.mu to be held or s to be unshared.
func (s *Session) clearAuth() {
	s.token = ""
	s.role = ""
	s.expiresAt = time.Time{}
	s.dirty = true
}

// Role returns the dashboard role resolved at login.
func (s *Session) Role() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role
}

// SetRole records the dashboard role.
func (s *Session) SetRole(role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.role = role
	s.dirty = true
}

// ExpiresAt returns the token expiry, zero when unknown.
func (s *Session) ExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiresAt
}

// Expired reports whether the token expiry has passed.
func (s *Session) Expired(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expired(now)
}

func (s *Session) expired(now time.Time) bool {
	return !s.expiresAt.IsZero() && !now.Before(s.expiresAt)
}

// AddFlash queues a flash message.
func (s *Session) AddFlash(msg FlashMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flashes = append(s.flashes, msg)
	s.dirty = true
}

// PopFlash retrieves and clears the oldest flash message.
func (s *Session) PopFlash() *FlashMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.flashes) == 0 {
		return nil
	}
	msg := s.flashes[0]
	s.flashes = s.flashes[1:]
	s.dirty = true
	return &msg
}

// DrainFlashes returns and clears every queued message.
func (s *Session) DrainFlashes() []FlashMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]FlashMessage, len(s.flashes))
	copy(out, s.flashes)
	if len(s.flashes) > 0 {
		s.flashes = nil
		s.dirty = true
	}
	return out
}

func (sm *SessionManager) newSession() *Session {
	return &Session{
		ID:    uuid.NewString(),
		isNew: true,
		dirty: true,
	}
}

func (sm *SessionManager) redisKey(id string) string {
	return "medlink:session:" + id
}
