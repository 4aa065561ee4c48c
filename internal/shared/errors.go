package shared

import "errors"

var (
	// ErrNoSession indicates a request reached session-backed code without a session.
	ErrNoSession = errors.New("no session in context")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
