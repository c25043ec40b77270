package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/retail-ledger/internal/accounts"
	"github.com/odyssey-erp/retail-ledger/internal/app"
	"github.com/odyssey-erp/retail-ledger/internal/observability"
	"github.com/odyssey-erp/retail-ledger/internal/reports"
	"github.com/odyssey-erp/retail-ledger/internal/vouchers"
	"github.com/odyssey-erp/retail-ledger/jobs"
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

	infra, err := app.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("connect", slog.Any("error", err))
		os.Exit(1)
	}
	defer infra.Close(logger)

	metrics := observability.NewMetrics()
	services := app.NewServices(infra, cfg, metrics, logger)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	health := map[string]app.Pinger{"postgres": infra.Pool}
	if infra.Redis != nil {
		health["redis"] = redisPinger{infra}
	}

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		Tenants:         services.Tenants,
		AccountsHandler: accounts.NewHandler(logger, services.Accounts),
		VouchersHandler: vouchers.NewHandler(logger, services.Vouchers),
		ReportsHandler:  reports.NewHandler(logger, services.Reports),
		JobHandler:      jobs.NewHandler(inspector, logger),
		Metrics:         metrics,
		Health:          health,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

type redisPinger struct {
	infra *app.Infra
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.infra.Redis.Ping(ctx).Err()
}
