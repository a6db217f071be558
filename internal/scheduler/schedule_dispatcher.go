package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pos_invoicing_backend/platform/config"
	"pos_invoicing_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultDispatchPoll  = 2 * time.Second
	defaultDispatchBatch = 100
)

type dueClaimer interface {
	ClaimDue(ctx context.Context, limit int, dispatcherID string) ([]DueSchedule, error)
}

type taskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ScheduleDispatcher turns due monitor schedules into check tasks. Several
// dispatchers may run at once; claims never overlap.
type ScheduleDispatcher struct {
	client *asynq.Client
	queue  string
	repo   dueClaimer
	tasks  taskEnqueuer
	id     string
	poll   time.Duration
	log    *logger.Logger
}

func NewScheduleDispatcher(cfg config.SchedulerConfig, pool *pgxpool.Pool, log *logger.Logger) (*ScheduleDispatcher, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	client := asynq.NewClient(opt)
	return &ScheduleDispatcher{
		client: client,
		queue:  queueName(cfg),
		repo:   NewScheduleRepository(pool),
		tasks:  client,
		id:     uuid.NewString(),
		poll:   defaultDispatchPoll,
		log:    log,
	}, nil
}

func (d *ScheduleDispatcher) Close() error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Close()
}

func (d *ScheduleDispatcher) Run(ctx context.Context) {
	if d == nil || d.tasks == nil || d.repo == nil {
		return
	}

	ticker := time.NewTicker(d.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if _, err := d.dispatch(ctx); err != nil && ctx.Err() == nil {
			d.log.DatabaseError("claim due monitor schedules", err)
		}
	}
}

// dispatch claims due schedules and enqueues one tick each. A tick still
// queued from the previous interval makes the new one a duplicate, so slow
// workers never accumulate a backlog for the same sale.
func (d *ScheduleDispatcher) dispatch(ctx context.Context) (int, error) {
	due, err := d.repo.ClaimDue(ctx, defaultDispatchBatch, d.id)
	if err != nil {
		return 0, err
	}

	enqueued := 0
	for _, s := range due {
		task, err := NewCheckVoucherTask(CheckVoucherPayload{SaleID: s.SaleID, ScheduleID: s.ID})
		if err != nil {
			d.log.Warn("monitor tick not built", "schedule_id", s.ID, "error", err)
			continue
		}

		_, err = d.tasks.EnqueueContext(ctx, task,
			asynq.Queue(d.queue),
			asynq.MaxRetry(checkMaxRetry),
			asynq.Unique(s.Interval),
		)
		if errors.Is(err, asynq.ErrDuplicateTask) {
			d.log.Debug("monitor tick still queued", "schedule_id", s.ID, "sale_id", s.SaleID)
			continue
		}
		if err != nil {
			// The schedule already moved forward; the next interval retries.
			d.log.Warn("monitor tick enqueue failed", "schedule_id", s.ID, "sale_id", s.SaleID, "error", err)
			continue
		}
		enqueued++
	}
	return enqueued, nil
}
