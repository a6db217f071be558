package scheduler

import (
	"context"
	"fmt"

	"pos_invoicing_backend/internal/invoicing/service"
	"pos_invoicing_backend/platform/apperr"
	"pos_invoicing_backend/platform/config"
	"pos_invoicing_backend/platform/logger"

	"github.com/hibiken/asynq"
)

const defaultConcurrency = 10

// VoucherCreator runs the one-shot creation job.
type VoucherCreator interface {
	Create(ctx context.Context, payload CreateVoucherPayload) (service.CreateResult, error)
}

// VoucherMonitor runs one monitoring tick.
type VoucherMonitor interface {
	Tick(ctx context.Context, saleID string) (service.TickResult, error)
}

// MonitorScheduler registers the recurring check of a sale.
type MonitorScheduler interface {
	ScheduleMonitoring(ctx context.Context, saleID string) error
}

// Handlers are the invoicing operations the worker dispatches to.
type Handlers struct {
	Creator   VoucherCreator
	Monitor   VoucherMonitor
	Schedules MonitorScheduler
}

type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	handlers Handlers
	log      *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, handlers Handlers, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	w := newWorker(handlers, log)
	w.server = server
	return w, nil
}

func newWorker(handlers Handlers, log *logger.Logger) *Worker {
	mux := asynq.NewServeMux()
	w := &Worker{mux: mux, handlers: handlers, log: log}

	mux.HandleFunc(TaskCreateVoucher, w.handleCreateVoucher)
	mux.HandleFunc(TaskCheckVoucher, w.handleCheckVoucher)

	return w
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleCreateVoucher(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseCreateVoucherPayload(task)
	if err != nil {
		return fmt.Errorf("decode create voucher payload: %v: %w", err, asynq.SkipRetry)
	}

	ctx = withTaskID(ctx)
	log := w.log.WithContext(ctx)

	result, err := w.handlers.Creator.Create(ctx, payload)
	if err != nil {
		log.JobEvent(TaskCreateVoucher, payload.SaleID, "failed", "error", err, "retryable", apperr.Retryable(err))
		return jobError(err)
	}

	if result.ScheduleMonitoring {
		// Not returned as an error: a retry would submit the voucher again.
		// The pending sweep re-arms sales whose schedule is missing.
		if err := w.handlers.Schedules.ScheduleMonitoring(ctx, result.SaleID); err != nil {
			log.Error("monitor schedule not registered", "sale_id", result.SaleID, "error", err)
		}
	}

	log.JobEvent(TaskCreateVoucher, result.SaleID, "succeeded",
		"remote_voucher_id", result.RemoteVoucherID,
		"state", string(result.State),
		"completed", result.Completed,
	)
	return nil
}

func (w *Worker) handleCheckVoucher(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseCheckVoucherPayload(task)
	if err != nil {
		return fmt.Errorf("decode check voucher payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.SaleID == "" {
		return fmt.Errorf("check voucher task without sale id: %w", asynq.SkipRetry)
	}

	ctx = withTaskID(ctx)
	log := w.log.WithContext(ctx)

	result, err := w.handlers.Monitor.Tick(ctx, payload.SaleID)
	if err != nil {
		log.JobEvent(TaskCheckVoucher, payload.SaleID, "failed", "error", err, "retryable", apperr.Retryable(err))
		return jobError(err)
	}

	outcome := "checked"
	switch {
	case result.Finished:
		outcome = "finished"
	case result.NothingToCheck:
		outcome = "nothing_to_check"
	case result.Updated:
		outcome = "updated"
	}
	attrs := []any{"state", string(result.State)}
	if result.Finished {
		attrs = append(attrs, "reason", result.FinishReason, "schedule_removed", result.Removal.Removed)
	}
	log.JobEvent(TaskCheckVoucher, payload.SaleID, outcome, attrs...)
	return nil
}

// jobError stops asynq from retrying errors that cannot succeed on retry.
func jobError(err error) error {
	if apperr.Retryable(err) {
		return err
	}
	return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
}

func withTaskID(ctx context.Context) context.Context {
	if id, ok := asynq.GetTaskID(ctx); ok {
		return context.WithValue(ctx, logger.TaskIDKey, id)
	}
	return ctx
}
