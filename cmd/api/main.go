package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pos_invoicing_backend/internal/adapters/storage"
	"pos_invoicing_backend/internal/events"
	apphttp "pos_invoicing_backend/internal/http"
	"pos_invoicing_backend/internal/http/router"
	"pos_invoicing_backend/internal/invoicing"
	"pos_invoicing_backend/internal/invoicing/client"
	"pos_invoicing_backend/internal/invoicing/repository"
	"pos_invoicing_backend/internal/invoicing/service"
	"pos_invoicing_backend/internal/scheduler"
	"pos_invoicing_backend/platform/config"
	"pos_invoicing_backend/platform/db"
	"pos_invoicing_backend/platform/logger"
	"pos_invoicing_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	if cfg.RunMigrations {
		if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
			return db.RunMigrations(ctx, pool)
		}); err != nil {
			log.Error("failed to run database migrations", "error", err)
			panic("failed to run database migrations: " + err.Error())
		}
		log.Info("database migrations complete")
	}

	queue, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize voucher queue client", "error", err)
		panic("failed to initialize voucher queue client: " + err.Error())
	}
	defer func() { _ = queue.Close() }()

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	svc := service.New(service.Deps{
		Store:     repository.New(pool),
		Remote:    client.New(cfg, log),
		Schedules: scheduler.NewScheduleRepository(pool),
		Events:    events.NewPublisher(eventBus),
		Validator: val,
		Log:       log,
	}, service.Options{
		MonitorInterval: cfg.GetMonitorInterval(),
		MaxAge:          cfg.GetMonitorMaxAge(),
	})

	invoicingModule := invoicing.NewModule(svc, queue, val, log)
	if cfg.IsMinIOEnabled() {
		receipts, err := storage.NewMinIOService(cfg, log)
		if err != nil {
			log.Error("failed to initialize receipt archive", "error", err)
		} else {
			invoicingModule.SetReceiptStore(receipts)
			log.Info("receipt downloads enabled", "bucket", cfg.GetMinioBucketReceipts())
		}
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config: cfg,
		Logger: log,
		Health: []apphttp.HealthCheck{
			{Name: "database", Checker: db.NewPoolAdapter(pool)},
			{Name: "queue", Checker: queue},
		},
		EventBus: eventBus,
		Modules: []apphttp.Module{
			invoicingModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
