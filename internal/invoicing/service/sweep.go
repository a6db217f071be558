package service

import (
	"context"
	"time"

	"pos_invoicing_backend/internal/invoicing/ports"
	"pos_invoicing_backend/platform/logger"

	"golang.org/x/time/rate"
)

const defaultSweepInterval = 15 * time.Minute

// SweepResult summarizes one pass over pending vouchers.
type SweepResult struct {
	Scanned     int
	Updated     int
	Finished    int
	Rescheduled int
	Failed      int
}

// Sweeper re-checks every pending voucher in one throttled pass. It is a
// safety net for sales whose schedule was lost, e.g. when a worker died
// between persisting a created voucher and registering its monitor.
type Sweeper struct {
	store     ports.SaleStore
	monitor   *Monitor
	lifecycle *Lifecycle
	limiter   *rate.Limiter
	batchSize int
	maxAge    time.Duration
	now       func() time.Time
	log       *logger.Logger
}

// NewSweeper builds a sweeper that spaces remote lookups by lookupDelay.
func NewSweeper(store ports.SaleStore, monitor *Monitor, lifecycle *Lifecycle, lookupDelay time.Duration, batchSize int, maxAge time.Duration, now func() time.Time, log *logger.Logger) *Sweeper {
	return &Sweeper{
		store:     store,
		monitor:   monitor,
		lifecycle: lifecycle,
		limiter:   rate.NewLimiter(rate.Every(lookupDelay), 1),
		batchSize: batchSize,
		maxAge:    maxAge,
		now:       now,
		log:       log,
	}
}

// Sweep ticks every pending voucher created within the monitoring window.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	records, err := s.store.ListPending(ctx, s.now().Add(-s.maxAge), s.batchSize)
	if err != nil {
		return result, err
	}

	for _, rec := range records {
		if err := s.limiter.Wait(ctx); err != nil {
			return result, err
		}
		result.Scanned++

		tick, err := s.monitor.Tick(ctx, rec.ID)
		if err != nil {
			result.Failed++
			continue
		}
		if tick.Updated {
			result.Updated++
		}
		if tick.Finished {
			result.Finished++
			continue
		}
		if !rec.HasRemoteVoucher() {
			continue
		}
		if err := s.lifecycle.ScheduleMonitoring(ctx, rec.ID); err != nil {
			s.log.Warn("sweep could not re-arm monitor schedule", "sale_id", rec.ID, "error", err)
			continue
		}
		result.Rescheduled++
	}

	return result, nil
}

// Run sweeps immediately and then every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	if s == nil {
		return
	}
	if interval <= 0 {
		interval = defaultSweepInterval
	}

	s.sweep(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	result, err := s.Sweep(ctx)
	if err != nil && ctx.Err() == nil {
		s.log.Warn("pending voucher sweep failed", "error", err)
		return
	}
	if result.Scanned > 0 {
		s.log.Info("pending voucher sweep finished",
			"scanned", result.Scanned,
			"updated", result.Updated,
			"finished", result.Finished,
			"rescheduled", result.Rescheduled,
			"failed", result.Failed,
		)
	}
}
