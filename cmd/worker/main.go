package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/brightline-erp/brightline/internal/app"
	"github.com/brightline-erp/brightline/internal/ledger/accounts"
	"github.com/brightline-erp/brightline/internal/ledger/balance"
	"github.com/brightline-erp/brightline/internal/ledger/reports"
	"github.com/brightline-erp/brightline/internal/platform/db"
	"github.com/brightline-erp/brightline/internal/shared"
	"github.com/brightline-erp/brightline/jobs"
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

	accountsRepo := accounts.NewRepository(pool)
	balanceEngine := balance.NewEngine(balance.NewRepository(pool), accountsRepo)
	reportsRepo := reports.NewRepository(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	integrityJob := jobs.NewIntegrityChecker(reportsRepo, balanceEngine, logger)
	cleanupJob := jobs.NewIdempotencyCleanup(idempotencyStore, logger)

	integrityTask, err := jobs.NewLedgerIntegrityTask(jobs.LedgerIntegrityPayload{})
	if err != nil {
		logger.Error("build integrity task", slog.Any("error", err))
		os.Exit(1)
	}
	cleanupTask, err := jobs.NewIdempotencyCleanupTask(jobs.IdempotencyCleanupPayload{
		Retention: cfg.IdempotencyRetention,
	})
	if err != nil {
		logger.Error("build cleanup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Concurrency: cfg.WorkerConcurrency,
		Logger:      logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLedgerIntegrity, Handler: integrityJob.HandleTask},
			{Type: jobs.TaskIdempotencyCleanup, Handler: cleanupJob.HandleTask},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.IntegritySchedule, Task: integrityTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: cfg.CleanupSchedule, Task: cleanupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
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
