// Package auth signs users in against the MedLink backend and keeps the
// bearer token in the dashboard session.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/medlink/medlink/internal/gateway"
	"github.com/medlink/medlink/internal/requests"
	"github.com/medlink/medlink/internal/shared"
)

const (
	pathToken = "/auth/token/"
	pathMe    = "/me/"
)

// ErrNoToken is returned when the token endpoint answers without a token.
var ErrNoToken = errors.New("auth: no token received from server")

// Gateway is the subset of the API client used for authentication.
type Gateway interface {
	Get(ctx context.Context, path string, query url.Values) (any, error)
	Do(ctx context.Context, method, path string, body any) (any, error)
	Tokens() gateway.TokenStore
}

// Service wraps authentication business rules.
type Service struct {
	gw     Gateway
	logger *slog.Logger
}

// NewService constructs a new Service.
func NewService(logger *slog.Logger, gw Gateway) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{gw: gw, logger: logger}
}

// Login exchanges credentials for a token and resolves the user's role.
// The token is stored through the gateway's token store before the profile
// is fetched, and cleared again if that fetch fails.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	raw, err := s.gw.Do(ctx, http.MethodPost, pathToken, map[string]string{"email": email, "password": password})
	if err != nil {
		if gateway.KindOf(err) == gateway.KindClient {
			return Session{}, fmt.Errorf("auth: %w: %w", shared.ErrInvalidCredentials, err)
		}
		return Session{}, err
	}
	token := tokenFrom(raw)
	if token == "" {
		return Session{}, ErrNoToken
	}

	tokens := s.gw.Tokens()
	tokens.SetToken(ctx, token)
	user, err := s.Me(ctx)
	if err != nil {
		tokens.ClearToken(ctx)
		return Session{}, err
	}
	expiresAt := TokenExpiry(token)
	s.logger.Info("user signed in", slog.String("role", user.Role), slog.Time("expires_at", expiresAt))
	return Session{Token: token, ExpiresAt: expiresAt, User: user, Role: ResolveRole(user.Role)}, nil
}

// Me fetches the current user's profile.
func (s *Service) Me(ctx context.Context) (User, error) {
	raw, err := s.gw.Get(ctx, pathMe, nil)
	if err != nil {
		return User{}, err
	}
	rec, ok := requests.AsRecord(raw)
	if !ok {
		return User{}, &gateway.Error{Kind: gateway.KindMalformed, Method: http.MethodGet, Path: pathMe}
	}
	return User{
		ID:        text(rec["id"]),
		Email:     text(rec["email"]),
		FirstName: text(rec["first_name"]),
		LastName:  text(rec["last_name"]),
		Name:      requests.DisplayName(rec),
		Role:      text(rec["role"]),
	}, nil
}

func tokenFrom(raw any) string {
	rec, ok := requests.AsRecord(raw)
	if !ok {
		return ""
	}
	if access := text(rec["access"]); access != "" {
		return access
	}
	return text(rec["refresh"])
}

func text(v any) string {
	s, _ := requests.Text(v)
	return s
}

// TokenExpiry reads the exp claim of a JWT without verifying its signature.
// The backend verifies tokens; the expiry only bounds the session. Tokens
// that are not JWTs, or carry no exp, yield the zero time.
func TokenExpiry(token string) time.Time {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
