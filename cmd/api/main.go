package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/samirmartinez1984/EventFlow/internal/app"
	"github.com/samirmartinez1984/EventFlow/internal/billing/factus"
	"github.com/samirmartinez1984/EventFlow/internal/bus"
	"github.com/samirmartinez1984/EventFlow/internal/clock"
	"github.com/samirmartinez1984/EventFlow/internal/config"
	"github.com/samirmartinez1984/EventFlow/internal/domain"
	"github.com/samirmartinez1984/EventFlow/internal/storage/postgres"
	transporthttp "github.com/samirmartinez1984/EventFlow/internal/transport/http"
	"github.com/samirmartinez1984/EventFlow/migrations"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load(".")
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		logger = logger.Level(level)
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to db")
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		logger.Fatal().Err(err).Msg("db ping")
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		logger.Fatal().Err(err).Msg("apply migrations")
	}

	purchaseBus := bus.NewInProcess(logger)
	defer purchaseBus.Close()

	purchaseRepo := postgres.NewPurchaseRepository(pool)
	purchaseSvc := app.NewPurchaseService(purchaseRepo, purchaseBus, clock.NewSystem(), logger,
		app.WithOperationTimeout(cfg.OperationTimeout),
		app.WithConflictRetries(cfg.ConflictRetries),
	)

	catalogRepo := postgres.NewCatalogRepository(pool)
	catalogSvc := app.NewCatalogService(catalogRepo, clock.NewSystem())

	billingClient := factus.NewClient(factus.Config{
		BaseURL:      cfg.FactusURL,
		ClientID:     cfg.FactusClientID,
		ClientSecret: cfg.FactusClientSecret,
		Username:     cfg.FactusUsername,
		Password:     cfg.FactusPassword,
		Timeout:      cfg.InvoicingTimeout,
	})
	invoicing := app.NewInvoicingWorkflow(purchaseRepo, billingClient, clock.NewSystem(), logger,
		app.WithNumberingRange(cfg.InvoiceNumberingRange),
		app.WithBillingTimeout(cfg.InvoicingTimeout),
	)

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Invoicing runs decoupled from purchase requests: a consumer for
	// post-commit notifications and a sweep for purchases the consumer
	// missed (e.g. provider downtime).
	go func() {
		err := purchaseBus.Consume(stopCtx, cfg.InvoicingWorkers, func(ctx context.Context, ev domain.PurchaseCommitted) {
			invoicing.HandlePurchaseCommitted(ctx, ev.PurchaseID)
		})
		if err != nil {
			logger.Error().Err(err).Msg("bus consume stopped")
		}
	}()
	go invoicing.RunBackfill(stopCtx, cfg.InvoiceBackfillInterval, cfg.InvoiceBackfillMinAge, cfg.InvoiceBackfillBatch)

	handler := transporthttp.NewRouter(
		transporthttp.NewPurchaseHandler(purchaseSvc),
		transporthttp.NewCatalogHandler(catalogSvc),
		cfg.Origins(),
		logger,
	)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	logger.Info().Str("port", cfg.Port).Msg("api listening")

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server error")
		}
	case <-stopCtx.Done():
		logger.Info().Msg("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("server shutdown error")
	}
	logger.Info().Msg("server stopped")
}
