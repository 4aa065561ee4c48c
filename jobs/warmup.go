package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/medlink/medlink/internal/dashboard"
)

// StatsWarmer is the part of the dashboard service a warmup drives.
type StatsWarmer interface {
	Stats(ctx context.Context, scope dashboard.Scope) (dashboard.StatsResult, error)
	Cache() *dashboard.Cache
}

// JobObserver records task outcomes.
type JobObserver interface {
	ObserveJob(task string, err error)
}

// DashboardWarmupJob pre-populates the shared "all" stats entry with the
// service account's token so the first dashboard load after a bump is served
// warm. Per-user scopes are never warmed: the worker cannot act as a user.
type DashboardWarmupJob struct {
	Service StatsWarmer
	Logger  *slog.Logger
	Metrics JobObserver
	Timeout time.Duration
}

// NewDashboardWarmupJob wires dependencies for the warmup handler.
func NewDashboardWarmupJob(service StatsWarmer, logger *slog.Logger, metrics JobObserver) *DashboardWarmupJob {
	return &DashboardWarmupJob{Service: service, Logger: logger, Metrics: metrics, Timeout: 20 * time.Second}
}

// Handle processes dashboard warmup tasks.
func (j *DashboardWarmupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Service == nil {
		return errors.New("dashboard warmup: handler not configured")
	}
	var payload WarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("dashboard warmup: %v: %w", err, asynq.SkipRetry)
	}
	scopes, err := parseScopes(payload.Scopes)
	if err != nil {
		return fmt.Errorf("dashboard warmup: %v: %w", err, asynq.SkipRetry)
	}
	if j.Metrics != nil {
		defer func() { j.Metrics.ObserveJob(TaskDashboardWarmup, resultErr) }()
	}

	logger := j.logger()
	started := time.Now()
	if payload.Bump {
		if err := j.Service.Cache().Bump(ctx); err != nil {
			logger.Warn("bump dashboard cache", slog.Any("error", err))
		}
	}

	timeout := j.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	for _, scope := range scopes {
		scopeCtx, cancel := context.WithTimeout(ctx, timeout)
		result, err := j.Service.Stats(scopeCtx, scope)
		cancel()
		if err != nil {
			logger.Error("warm scope", slog.String("scope", string(scope)), slog.Any("error", err))
			return err
		}
		logger.Debug("warmed scope", slog.String("scope", string(scope)), slog.String("source", string(result.Source)))
	}
	logger.Info("completed dashboard warmup", slog.Int("scopes", len(scopes)), slog.Duration("duration", time.Since(started)))
	return nil
}

func parseScopes(raw []string) ([]dashboard.Scope, error) {
	if len(raw) == 0 {
		return []dashboard.Scope{dashboard.ScopeAll}, nil
	}
	scopes := make([]dashboard.Scope, 0, len(raw))
	for _, s := range raw {
		switch scope := dashboard.Scope(s); scope {
		case dashboard.ScopeAll:
			scopes = append(scopes, scope)
		case dashboard.ScopeMine:
			return nil, fmt.Errorf("scope %q is per user", s)
		default:
			return nil, fmt.Errorf("unknown scope %q", s)
		}
	}
	return scopes, nil
}

func (j *DashboardWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskDashboardWarmup))
	}
	return slog.Default().With(slog.String("job", TaskDashboardWarmup))
}
