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
	"github.com/redis/go-redis/v9"

	"github.com/brightline-erp/brightline/internal/app"
	"github.com/brightline-erp/brightline/internal/integration"
	"github.com/brightline-erp/brightline/internal/inventory"
	"github.com/brightline-erp/brightline/internal/ledger/accounts"
	"github.com/brightline-erp/brightline/internal/ledger/balance"
	"github.com/brightline-erp/brightline/internal/ledger/journals"
	"github.com/brightline-erp/brightline/internal/ledger/reports"
	"github.com/brightline-erp/brightline/internal/platform/db"
	"github.com/brightline-erp/brightline/internal/procurement"
	"github.com/brightline-erp/brightline/internal/sales"
	"github.com/brightline-erp/brightline/internal/shared"
	"github.com/brightline-erp/brightline/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	documentLocker := shared.NewDocumentLocker(redisClient, cfg.DocumentLockTTL)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	accountsRepo := accounts.NewRepository(pool)
	accountsService := accounts.NewService(accountsRepo)
	accountsHandler := accounts.NewHandler(logger, accountsService)

	if cfg.SeedChart {
		if err := accountsService.Seed(ctx); err != nil {
			logger.Error("seed chart of accounts", slog.Any("error", err))
			os.Exit(1)
		}
	}

	journalsRepo := journals.NewRepository(pool)
	journalsService := journals.NewService(journalsRepo, cfg.JournalPrefix, logger)
	journalsHandler := journals.NewHandler(logger, journalsService)

	balanceEngine := balance.NewEngine(balance.NewRepository(pool), accountsRepo)
	reportsRepo := reports.NewRepository(pool)
	reportsService := reports.NewService(balanceEngine, reportsRepo, accountsRepo, logger)
	reportsHandler := reports.NewHandler(logger, reportsService)

	inventoryRepo := inventory.NewRepository(pool)
	inventoryService := inventory.NewService(inventoryRepo, logger)
	inventoryHandler := inventory.NewHandler(logger, inventoryService)

	hooks := integration.NewHooks(journalsService, accountsService, inventoryService,
		documentLocker, idempotencyStore, logger)
	bridgeHandler := integration.NewHandler(logger, accountsService)

	salesRepo := sales.NewRepository(pool)
	salesService := sales.NewService(salesRepo, inventoryService, hooks, cfg.SalePrefix, logger)
	salesHandler := sales.NewHandler(logger, salesService)

	procurementRepo := procurement.NewRepository(pool)
	procurementService := procurement.NewService(procurementRepo, inventoryService, hooks, cfg.PurchasePrefix, logger)
	procurementHandler := procurement.NewHandler(logger, procurementService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		AccountsHandler:    accountsHandler,
		JournalsHandler:    journalsHandler,
		ReportsHandler:     reportsHandler,
		InventoryHandler:   inventoryHandler,
		SalesHandler:       salesHandler,
		ProcurementHandler: procurementHandler,
		BridgeHandler:      bridgeHandler,
		JobHandler:         jobHandler,
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
