package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/medlink/medlink/internal/app"
	"github.com/medlink/medlink/internal/auth"
	"github.com/medlink/medlink/internal/dashboard"
	"github.com/medlink/medlink/internal/gateway"
	"github.com/medlink/medlink/internal/observability"
	"github.com/medlink/medlink/internal/platform/cache"
	"github.com/medlink/medlink/internal/procurement"
	"github.com/medlink/medlink/internal/shared"
	"github.com/medlink/medlink/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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
	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionTTL, cfg.IsProduction())
	notifier := shared.NewNotifier(logger)

	apiClient := gateway.NewClient(cfg.APIURL, cfg.APITimeout, shared.SessionTokens{},
		gateway.WithObserver(metrics.ObserveBackend),
		gateway.WithLogger(logger),
	)

	statsCache := dashboard.NewCache(redisClient, cfg.StatsCacheTTL)
	boards := dashboard.NewBoards()
	dashboardService := dashboard.NewService(logger, apiClient, statsCache, notifier)
	dashboardHandler := dashboard.NewHandler(logger, dashboardService, boards)

	procurementService := procurement.NewService(logger, apiClient, statsCache)
	procurementHandler := procurement.NewHandler(logger, procurementService, dashboardService, dashboardService, notifier)

	authService := auth.NewService(logger, apiClient)
	authHandler := auth.NewHandler(logger, authService, sessionManager, boards, notifier)

	redisOpts, err := cache.QueueOptions(cfg.RedisAddr)
	if err != nil {
		logger.Error("init queue options", slog.Any("error", err))
		os.Exit(1)
	}
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("asynq inspector close", slog.Any("error", err))
		}
	}()
	jobClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, jobClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		AuthHandler:        authHandler,
		DashboardHandler:   dashboardHandler,
		ProcurementHandler: procurementHandler,
		JobHandler:         jobHandler,
		Metrics:            metrics,
	})

	go func() {
		if err := statsCache.ListenForInvalidation(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("dashboard cache invalidation listener", slog.Any("error", err))
		}
	}()

	go func() {
		ticker := time.NewTicker(cfg.BoardIdleTTL / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := boards.Prune(cfg.BoardIdleTTL); n > 0 {
					logger.Debug("pruned idle dashboard boards", slog.Int("sessions", n))
				}
			}
		}
	}()

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("api", cfg.APIURL))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
