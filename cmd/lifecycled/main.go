package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"bizbooks-backend/internal/domain/billing"
	"bizbooks-backend/internal/domain/errors"
	"bizbooks-backend/internal/domain/pricing"
	"bizbooks-backend/internal/infrastructure/config"
	"bizbooks-backend/internal/infrastructure/database"
	"bizbooks-backend/internal/infrastructure/telemetry"
	billingsvc "bizbooks-backend/internal/service/billing"
)

// lifecycled runs the scheduled document lifecycle sweeps, currently
// the estimate-expiry pass. It drives the billing service so a sweep
// applies exactly the transitions a user action would.
var (
	once = flag.Bool("once", false, "Run one sweep and exit instead of scheduling")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := telemetry.SetupLogger(cfg.LogLevel)
	if err != nil {
		slog.Error("failed to setup logger", "error", err)
		os.Exit(1)
	}

	zapLogger, err := zap.NewProduction()
	if err != nil {
		slog.Error("failed to setup database logger", "error", err)
		os.Exit(1)
	}
	defer zapLogger.Sync()

	pool, err := database.NewConnectionPool(&cfg.Database, zapLogger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	settings := billingsvc.Settings{
		RoundOff:     pricing.ParseRoundOffPolicy(cfg.Billing.RoundOff),
		DefaultTerms: billing.PaymentTerms(cfg.Billing.DefaultPaymentTerms),
	}

	documents := database.NewDocumentRepository(pool.Pool())
	payments := database.NewPaymentRepository(pool.Pool())
	svc := billingsvc.NewService(emptyCatalog{}, emptyDirectory{}, documents, payments, settings, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweep := func() {
		sweepCtx, sweepCancel := context.WithTimeout(ctx, 5*time.Minute)
		defer sweepCancel()

		expired, err := svc.ExpireDueEstimates(sweepCtx, time.Now().UTC())
		if err != nil {
			logger.ErrorContext(sweepCtx, "estimate expiry sweep failed", "error", err)
			return
		}
		logger.InfoContext(sweepCtx, "estimate expiry sweep completed", "expired", expired)
	}

	if *once {
		sweep()
		return
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Lifecycle.Schedule, sweep); err != nil {
		logger.Error("invalid lifecycle schedule", "schedule", cfg.Lifecycle.Schedule, "error", err)
		os.Exit(1)
	}

	scheduler.Start()
	logger.Info("lifecycle worker started", "schedule", cfg.Lifecycle.Schedule)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down lifecycle worker")
	stopCtx := scheduler.Stop()
	<-stopCtx.Done()
}

// The worker never prices new lines, so its catalog and price list
// collaborators are inert.
type emptyCatalog struct{}

func (emptyCatalog) ItemByID(context.Context, uuid.UUID) (*billingsvc.CatalogItem, error) {
	return nil, errors.ErrItemNotFound
}

type emptyDirectory struct{}

func (emptyDirectory) ListForCustomer(context.Context, uuid.UUID) (*pricing.PriceList, error) {
	return nil, nil
}
