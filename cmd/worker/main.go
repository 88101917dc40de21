package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/pricedeck/pricedeck/internal/app"
	jobmetrics "github.com/pricedeck/pricedeck/internal/jobs"
	"github.com/pricedeck/pricedeck/internal/platform/cache"
	"github.com/pricedeck/pricedeck/internal/platform/db"
	"github.com/pricedeck/pricedeck/internal/shared"
	"github.com/pricedeck/pricedeck/internal/store"
	"github.com/pricedeck/pricedeck/internal/workflow"
	"github.com/pricedeck/pricedeck/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

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

	var snapshots store.SnapshotStore = store.NewPostgresStore(pool)
	snapshots = store.NewCachedStore(snapshots, redisClient, 10*time.Minute)

	service := workflow.NewService(snapshots, logger, shared.NewAuditLogger(pool), shared.NewApprovalRecorder(pool, logger))
	if err := service.Restore(ctx); err != nil {
		logger.Error("restore snapshot", slog.Any("error", err))
		os.Exit(1)
	}

	recalculator := jobs.NewRecalculator(service, logger, jobmetrics.NewMetrics(nil))

	integrityTask, err := jobs.NewIntegrityTask(time.Now().UTC())
	if err != nil {
		logger.Error("build integrity task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskPricingRecalculate, Handler: recalculator.HandleRecalculate},
			{Type: jobs.TaskPricingIntegrity, Handler: recalculator.HandleIntegrity},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.IntegrityCron, Task: integrityTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
