package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/medlink/medlink/internal/app"
	"github.com/medlink/medlink/internal/dashboard"
	"github.com/medlink/medlink/internal/gateway"
	"github.com/medlink/medlink/internal/observability"
	"github.com/medlink/medlink/internal/platform/cache"
	"github.com/medlink/medlink/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	if cfg.ServiceToken == "" {
		logger.Error("MEDLINK_SERVICE_TOKEN is required for the warmup worker")
		os.Exit(1)
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	apiClient := gateway.NewClient(cfg.APIURL, cfg.APITimeout, gateway.NewMemoryTokens(cfg.ServiceToken),
		gateway.WithObserver(metrics.ObserveBackend),
		gateway.WithLogger(logger),
	)
	statsCache := dashboard.NewCache(redisClient, cfg.StatsCacheTTL)
	dashboardService := dashboard.NewService(logger, apiClient, statsCache, nil)

	warmupJob := jobs.NewDashboardWarmupJob(dashboardService, logger, metrics)
	warmupTask, err := jobs.NewDashboardWarmupTask(jobs.WarmupPayload{})
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	queueOpts, err := cache.QueueOptions(cfg.RedisAddr)
	if err != nil {
		logger.Error("init queue options", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: queueOpts,
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskDashboardWarmup, Handler: warmupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.WarmupCron, Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
