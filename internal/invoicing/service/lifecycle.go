package service

import (
	"context"
	"errors"
	"time"

	"pos_invoicing_backend/internal/invoicing/ports"
	"pos_invoicing_backend/platform/logger"
)

// CancelResult describes a schedule removal attempt.
type CancelResult struct {
	// Removed is true when no schedule remains (removed now or never existed).
	Removed bool
	// Existed is true when this call deleted a schedule.
	Existed bool
	Detail  string
}

// Lifecycle manages the recurring monitor schedule of each sale. It never
// touches ticks that were already dispatched to workers.
type Lifecycle struct {
	schedules ports.ScheduleStore
	interval  time.Duration
	now       func() time.Time
	log       *logger.Logger
}

// NewLifecycle builds a lifecycle manager over the schedule store. First runs
// are placed one interval after now, which defaults to time.Now.
func NewLifecycle(schedules ports.ScheduleStore, interval time.Duration, now func() time.Time, log *logger.Logger) *Lifecycle {
	if interval <= 0 {
		interval = defaultMonitorInterval
	}
	if now == nil {
		now = time.Now
	}
	return &Lifecycle{schedules: schedules, interval: interval, now: now, log: log}
}

// ScheduleMonitoring registers the recurring check for a sale. Idempotent.
func (l *Lifecycle) ScheduleMonitoring(ctx context.Context, saleID string) error {
	return l.schedules.Upsert(ctx, ports.Schedule{
		ID:         ports.MonitorScheduleID(saleID),
		SaleID:     saleID,
		Interval:   l.interval,
		FirstRunAt: l.now().Add(l.interval),
	})
}

// CancelMonitoring removes the recurring check for a sale. It never fails:
// lock conflicts and store errors are logged and reported as Removed=false,
// and the next tick's termination pre-check retries the removal.
func (l *Lifecycle) CancelMonitoring(ctx context.Context, saleID string) CancelResult {
	scheduleID := ports.MonitorScheduleID(saleID)

	existed, err := l.schedules.Remove(ctx, scheduleID)
	switch {
	case err == nil && existed:
		l.log.Info("monitor schedule removed", "sale_id", saleID, "schedule_id", scheduleID)
		return CancelResult{Removed: true, Existed: true, Detail: "schedule removed"}
	case err == nil:
		return CancelResult{Removed: true, Detail: "schedule not found"}
	case errors.Is(err, ports.ErrScheduleLocked):
		l.log.Warn("monitor schedule locked, removal deferred to next tick", "sale_id", saleID, "schedule_id", scheduleID)
		return CancelResult{Removed: false, Detail: "schedule locked by another worker"}
	default:
		l.log.Error("monitor schedule removal failed", "sale_id", saleID, "schedule_id", scheduleID, "error", err)
		return CancelResult{Removed: false, Detail: "schedule removal failed: " + err.Error()}
	}
}
