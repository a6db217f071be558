package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pos_invoicing_backend/internal/invoicing/ports"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	errSchedulesNotConfigured = "schedule repository not configured"
	// lockNotAvailable is the SQLSTATE raised by NOWAIT on a held row lock.
	lockNotAvailable = "55P03"
)

// DueSchedule is a claimed schedule whose tick must be enqueued.
type DueSchedule struct {
	ID       string
	SaleID   string
	Interval time.Duration
}

// ScheduleRepository stores recurring monitor schedules in PostgreSQL.
type ScheduleRepository struct {
	pool *pgxpool.Pool
}

func NewScheduleRepository(pool *pgxpool.Pool) *ScheduleRepository {
	return &ScheduleRepository{pool: pool}
}

var _ ports.ScheduleStore = (*ScheduleRepository)(nil)

// Upsert creates the schedule or refreshes its interval without moving the
// next run of an existing one.
func (r *ScheduleRepository) Upsert(ctx context.Context, s ports.Schedule) error {
	if r == nil || r.pool == nil {
		return errors.New(errSchedulesNotConfigured)
	}
	seconds := int(s.Interval / time.Second)
	if seconds < 1 {
		return fmt.Errorf("schedule interval must be at least one second")
	}
	if s.FirstRunAt.IsZero() {
		s.FirstRunAt = time.Now().Add(s.Interval)
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO voucher_monitor_schedules (schedule_id, sale_id, interval_seconds, next_run_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (schedule_id) DO UPDATE
		 SET interval_seconds = EXCLUDED.interval_seconds, updated_at = now()`,
		s.ID, s.SaleID, seconds, s.FirstRunAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert monitor schedule: %w", err)
	}
	return nil
}

// Remove deletes a schedule unless a dispatcher is claiming it right now.
func (r *ScheduleRepository) Remove(ctx context.Context, scheduleID string) (bool, error) {
	if r == nil || r.pool == nil {
		return false, errors.New(errSchedulesNotConfigured)
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id string
	err = tx.QueryRow(ctx,
		`SELECT schedule_id FROM voucher_monitor_schedules
		 WHERE schedule_id = $1
		 FOR UPDATE NOWAIT`,
		scheduleID,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if isLockNotAvailable(err) {
		return false, ports.ErrScheduleLocked
	}
	if err != nil {
		return false, fmt.Errorf("lock monitor schedule: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM voucher_monitor_schedules WHERE schedule_id = $1`, id); err != nil {
		return false, fmt.Errorf("delete monitor schedule: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (r *ScheduleRepository) Exists(ctx context.Context, scheduleID string) (bool, error) {
	if r == nil || r.pool == nil {
		return false, errors.New(errSchedulesNotConfigured)
	}
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM voucher_monitor_schedules WHERE schedule_id = $1)`,
		scheduleID,
	).Scan(&exists)
	return exists, err
}

// ClaimDue advances every due schedule by one interval and returns it. Rows
// locked by a concurrent claim or removal are skipped.
func (r *ScheduleRepository) ClaimDue(ctx context.Context, limit int, dispatcherID string) ([]DueSchedule, error) {
	if r == nil || r.pool == nil {
		return nil, errors.New(errSchedulesNotConfigured)
	}
	if limit < 1 {
		limit = 100
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `WITH cte AS (
		SELECT schedule_id
		FROM voucher_monitor_schedules
		WHERE next_run_at <= now()
		ORDER BY next_run_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	)
	UPDATE voucher_monitor_schedules s
	SET next_run_at = now() + make_interval(secs => s.interval_seconds),
		last_dispatched_at = now(),
		dispatched_by = $2,
		updated_at = now()
	FROM cte
	WHERE s.schedule_id = cte.schedule_id
	RETURNING s.schedule_id, s.sale_id, s.interval_seconds`, limit, dispatcherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []DueSchedule
	for rows.Next() {
		var due DueSchedule
		var seconds int
		if err := rows.Scan(&due.ID, &due.SaleID, &seconds); err != nil {
			return nil, err
		}
		due.Interval = time.Duration(seconds) * time.Second
		results = append(results, due)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return results, nil
}

func isLockNotAvailable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == lockNotAvailable
}
