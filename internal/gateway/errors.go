package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies gateway failures.
type Kind int

const (
	// KindTransport covers DNS, connection and timeout failures.
	KindTransport Kind = iota + 1
	// KindClient is any 4xx response.
	KindClient
	// KindServer is any 5xx response.
	KindServer
	// KindMalformed is a 2xx response whose body is not JSON.
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindClient:
		return "client"
	case KindServer:
		return "server"
	case KindMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Error describes a failed backend call.
type Error struct {
	Kind       Kind
	Method     string
	Path       string
	StatusCode int
	Detail     string
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindClient, KindServer:
		if e.Detail != "" {
			return fmt.Sprintf("gateway: %s %s returned %d: %s", e.Method, e.Path, e.StatusCode, e.Detail)
		}
		return fmt.Sprintf("gateway: %s %s returned %d", e.Method, e.Path, e.StatusCode)
	default:
		return fmt.Sprintf("gateway: %s %s %s: %v", e.Method, e.Path, e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Message is a user-facing text for the failure, preferring the backend detail.
func (e *Error) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	switch e.Kind {
	case KindTransport:
		return "The server could not be reached."
	case KindMalformed:
		return "The server returned an unexpected response."
	default:
		if text := http.StatusText(e.StatusCode); text != "" {
			return text
		}
		return fmt.Sprintf("Request failed with status %d", e.StatusCode)
	}
}

// HTTPStatus is the status a BFF handler answers with when this call fails.
// Client errors pass through; everything else is a bad or missing upstream.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindClient:
		if e.StatusCode == http.StatusMethodNotAllowed {
			return http.StatusBadGateway
		}
		return e.StatusCode
	case KindTransport:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func statusKind(code int) Kind {
	if code >= 500 {
		return KindServer
	}
	return KindClient
}

// AsError unwraps err into a gateway Error.
func AsError(err error) (*Error, bool) {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr, true
	}
	return nil, false
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	if gwErr, ok := AsError(err); ok {
		return gwErr.StatusCode
	}
	return 0
}

// IsStatus reports whether err is a backend response with the given status.
func IsStatus(err error, code int) bool {
	return StatusCode(err) == code
}

// KindOf returns the failure class of err, or 0 when err is not a gateway error.
func KindOf(err error) Kind {
	if gwErr, ok := AsError(err); ok {
		return gwErr.Kind
	}
	return 0
}

// UserMessage renders err for a notification, falling back to fallback.
func UserMessage(err error, fallback string) string {
	if gwErr, ok := AsError(err); ok {
		return gwErr.Message()
	}
	return fallback
}
