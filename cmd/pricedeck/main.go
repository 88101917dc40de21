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

	"github.com/pricedeck/pricedeck/internal/app"
	"github.com/pricedeck/pricedeck/internal/observability"
	"github.com/pricedeck/pricedeck/internal/platform/cache"
	"github.com/pricedeck/pricedeck/internal/platform/db"
	pricinghttp "github.com/pricedeck/pricedeck/internal/pricing/http"
	"github.com/pricedeck/pricedeck/internal/shared"
	"github.com/pricedeck/pricedeck/internal/store"
	"github.com/pricedeck/pricedeck/internal/workflow"
	"github.com/pricedeck/pricedeck/jobs"
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

	var snapshots store.SnapshotStore = store.NewMemoryStore()
	var auditLogger *shared.AuditLogger
	var approvals *shared.ApprovalRecorder

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Warn("postgres unavailable, snapshots held in memory", slog.Any("error", err))
	} else {
		defer pool.Close()
		snapshots = store.NewPostgresStore(pool)
		auditLogger = shared.NewAuditLogger(pool)
		approvals = shared.NewApprovalRecorder(pool, logger)
	}

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, snapshot cache disabled", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		snapshots = store.NewCachedStore(snapshots, redisClient, 10*time.Minute)
	}

	service := workflow.NewService(snapshots, logger, auditLogger, approvals)
	if err := service.Restore(ctx); err != nil {
		logger.Error("restore snapshot", slog.Any("error", err))
		os.Exit(1)
	}

	var jobsClient *jobs.Client
	var jobHandler *jobs.Handler
	if redisClient != nil {
		redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
		jobsClient, err = jobs.NewClient(redisOpts)
		if err != nil {
			logger.Warn("jobs client unavailable", slog.Any("error", err))
		} else {
			defer func() {
				if err := jobsClient.Close(); err != nil {
					logger.Warn("jobs client close", slog.Any("error", err))
				}
			}()
		}
		jobHandler = jobs.NewHandler(asynq.NewInspector(redisOpts), logger)
	}

	metrics := observability.NewMetrics()
	if snap, err := service.Snapshot(ctx); err == nil {
		metrics.ObserveSnapshot(snap.Aggregates.TotalItems, len(snap.FlaggedItems))
	}

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		PricingHandler: pricinghttp.NewHandler(logger, service, jobsClient, metrics),
		JobHandler:     jobHandler,
		Metrics:        metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
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
