package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pos_invoicing_backend/internal/adapters/storage"
	"pos_invoicing_backend/internal/events"
	"pos_invoicing_backend/internal/invoicing/client"
	"pos_invoicing_backend/internal/invoicing/repository"
	"pos_invoicing_backend/internal/invoicing/service"
	"pos_invoicing_backend/internal/notification"
	"pos_invoicing_backend/internal/scheduler"
	"pos_invoicing_backend/platform/config"
	"pos_invoicing_backend/platform/db"
	"pos_invoicing_backend/platform/logger"
	"pos_invoicing_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env, "queue", cfg.GetAsynqQueueName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	if cfg.RunMigrations {
		if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
			return db.RunMigrations(ctx, pool)
		}); err != nil {
			log.Error("failed to run database migrations", "error", err)
			panic("failed to run database migrations: " + err.Error())
		}
		log.Info("database migrations complete")
	}

	if !cfg.IsInvoicingEnabled() {
		log.Error("INVOICING_API_URL is required by the scheduler")
		panic("INVOICING_API_URL is required by the scheduler")
	}

	// Alerts subscribe to voucher events (not HTTP-facing)
	eventBus := events.NewInMemoryBus(log)
	defer eventBus.Wait()
	notificationModule := notification.NewFromConfig(cfg, log)
	notificationModule.RegisterHandlers(eventBus)

	schedules := scheduler.NewScheduleRepository(pool)
	svc := service.New(service.Deps{
		Store:     repository.New(pool),
		Remote:    client.New(cfg, log),
		Schedules: schedules,
		Events:    events.NewPublisher(eventBus),
		Archive:   initReceiptArchive(ctx, cfg, log),
		Validator: validator.New(),
		Log:       log,
	}, service.Options{
		MonitorInterval: cfg.GetMonitorInterval(),
		MaxAge:          cfg.GetMonitorMaxAge(),
		LookupDelay:     cfg.GetMonitorLookupDelay(),
		SweepBatchSize:  cfg.GetMonitorSweepBatchSize(),
	})

	dispatcher, err := scheduler.NewScheduleDispatcher(cfg, pool, log)
	if err != nil {
		log.Error("failed to initialize schedule dispatcher", "error", err)
		panic("failed to initialize schedule dispatcher: " + err.Error())
	}
	defer func() { _ = dispatcher.Close() }()

	worker, err := scheduler.NewWorker(cfg, scheduler.Handlers{
		Creator:   svc.Creator,
		Monitor:   svc.Monitor,
		Schedules: svc.Lifecycle,
	}, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		dispatcher.Run(gctx)
		return nil
	})
	g.Go(func() error {
		svc.Sweeper.Run(gctx, cfg.GetMonitorSweepInterval())
		return nil
	})
	g.Go(func() error {
		worker.Run(gctx)
		// The worker only returns on shutdown or a fatal server error; stop
		// the other loops either way.
		stop()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("scheduler stopped with error", "error", err)
	}
	log.Info("scheduler stopped")
}

// initReceiptArchive returns nil when MinIO is not configured; receipts are
// then simply not archived.
func initReceiptArchive(ctx context.Context, cfg config.MinIOConfig, log *logger.Logger) storage.ReceiptStore {
	if !cfg.IsMinIOEnabled() {
		log.Info("MINIO_ENDPOINT not configured; authorization receipts will not be archived")
		return nil
	}

	archive, err := storage.NewMinIOService(cfg, log)
	if err != nil {
		log.Error("failed to initialize receipt archive", "error", err)
		return nil
	}
	if err := withRetry(ctx, log, "ensure receipts bucket", 5, 2*time.Second, func() error {
		return archive.EnsureBucketExists(ctx)
	}); err != nil {
		log.Error("failed to ensure storage bucket exists", "error", err, "bucket", cfg.GetMinioBucketReceipts())
		return nil
	}
	log.Info("receipt archive initialized", "bucket", cfg.GetMinioBucketReceipts())
	return archive
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
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
