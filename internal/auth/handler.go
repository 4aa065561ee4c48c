package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/medlink/medlink/internal/gateway"
	"github.com/medlink/medlink/internal/platform/httpx"
	"github.com/medlink/medlink/internal/shared"
)

// BoardCloser drops per-session dashboard state.
type BoardCloser interface {
	CloseSession(id string)
}

// Notifier surfaces transient notices to the user.
type Notifier interface {
	Notify(ctx context.Context, kind, message string)
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	sessionManager *shared.SessionManager
	boards         BoardCloser
	notifier       Notifier
	validator      *validator.Validate
	now            func() time.Time
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, sessions *shared.SessionManager, boards BoardCloser, notifier Notifier) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		sessionManager: sessions,
		boards:         boards,
		notifier:       notifier,
		validator:      validator.New(),
		now:            time.Now,
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
	r.With(h.RequireToken).Get("/me", h.handleMe)
}

type loginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Role      Role       `json:"role"`
	Dashboard string     `json:"dashboard"`
	User      User       `json:"user"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.RespondError(w, shared.ErrNoSession)
		return
	}

	var form loginForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Request", "email and password are required")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		errs := make(map[string]string)
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fieldErr := range verrs {
				errs[fieldErr.Field()] = fieldErr.Error()
			}
		}
		httpx.JSON(w, http.StatusUnprocessableEntity, map[string]any{
			"title":  "Validation Failed",
			"status": http.StatusUnprocessableEntity,
			"fields": errs,
		})
		return
	}

	result, err := h.service.Login(r.Context(), form.Email, form.Password)
	if err != nil {
		h.loginFailed(w, r, err)
		return
	}
	sess.SetToken(result.Token, result.ExpiresAt)
	sess.SetRole(string(result.Role))
	h.notify(r.Context(), shared.NoticeSuccess, "Login successful.")

	resp := loginResponse{Role: result.Role, Dashboard: result.Role.Dashboard(), User: result.User}
	if !result.ExpiresAt.IsZero() {
		resp.ExpiresAt = &result.ExpiresAt
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) loginFailed(w http.ResponseWriter, r *http.Request, err error) {
	message := gateway.UserMessage(err, "Login failed")
	switch {
	case errors.Is(err, shared.ErrInvalidCredentials):
		h.logger.Info("login rejected", slog.Any("error", err))
		h.notify(r.Context(), shared.NoticeError, message)
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", message)
	case errors.Is(err, ErrNoToken):
		h.logger.Warn("login without token", slog.Any("error", err))
		h.notify(r.Context(), shared.NoticeError, "No token received from server")
		httpx.Problem(w, http.StatusBadGateway, "Bad Gateway", "no token received from server")
	default:
		h.logger.Warn("login failed", slog.Any("error", err))
		h.notify(r.Context(), shared.NoticeError, message)
		httpx.RespondError(w, err)
	}
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		sess.ClearToken()
		if h.boards != nil {
			h.boards.CloseSession(sess.ID)
		}
		if h.sessionManager != nil {
			h.sessionManager.Destroy(sess)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

type meResponse struct {
	User      User   `json:"user"`
	Role      Role   `json:"role"`
	Dashboard string `json:"dashboard"`
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Me(r.Context())
	if err != nil {
		h.logger.Warn("load current user", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	role := ResolveRole(user.Role)
	if sess := shared.SessionFromContext(r.Context()); sess != nil && sess.Role() != string(role) {
		sess.SetRole(string(role))
	}
	httpx.JSON(w, http.StatusOK, meResponse{User: user, Role: role, Dashboard: role.Dashboard()})
}

// RequireToken rejects requests whose session carries no live token. An
// expired token is cleared from the session.
func (h *Handler) RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		if sess == nil || sess.Token() == "" {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in to continue")
			return
		}
		if sess.Expired(h.now()) {
			sess.ClearToken()
			h.notify(r.Context(), shared.NoticeInfo, "Your session has expired. Please sign in again.")
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "session expired")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) notify(ctx context.Context, kind, message string) {
	if h.notifier != nil {
		h.notifier.Notify(ctx, kind, message)
	}
}
