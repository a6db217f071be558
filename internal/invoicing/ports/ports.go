// Package ports defines the interfaces the invoicing domain requires from
// external systems: the remote invoicing API, the sale store, the recurring
// schedule store and event publishing. Implementations are provided by the
// composition root so handlers stay testable without live infrastructure.
package ports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pos_invoicing_backend/internal/invoicing/domain"
)

// ErrScheduleLocked is returned by ScheduleStore.Remove when another worker
// currently holds the schedule (for example while dispatching a tick).
var ErrScheduleLocked = errors.New("monitor schedule is locked by another worker")

// CreatedVoucher is the remote API's answer to a creation request.
type CreatedVoucher struct {
	RemoteVoucherID string
	State           string
	AccessKey       string
}

// RemoteInvoicingClient is the tax-authority billing API.
type RemoteInvoicingClient interface {
	// CreateVoucher submits the business payload. Every failure is treated as
	// permanent by the creation handler.
	CreateVoucher(ctx context.Context, payload VoucherPayload) (CreatedVoucher, error)
	// GetVoucherStatus returns the current remote view. Failures are transient.
	GetVoucherStatus(ctx context.Context, remoteVoucherID string) (domain.RemoteStatus, error)
}

// SaleStore persists the voucher tracking fields of a sale.
type SaleStore interface {
	// FindByID returns nil, nil when the sale does not exist.
	FindByID(ctx context.Context, saleID string) (*domain.Record, error)
	// Update writes the set fields and returns the resulting record.
	Update(ctx context.Context, saleID string, fields domain.Fields) (domain.Record, error)
	// ListPending returns sales that carry a remote voucher id, are not
	// completed and were created after createdAfter, oldest first.
	ListPending(ctx context.Context, createdAfter time.Time, limit int) ([]domain.Record, error)
}

// Schedule is a recurring monitor definition for one sale.
type Schedule struct {
	ID       string
	SaleID   string
	Interval time.Duration
	// FirstRunAt is only used when the schedule is created.
	FirstRunAt time.Time
}

// ScheduleStore owns the durable recurring schedules.
type ScheduleStore interface {
	// Upsert creates the schedule or refreshes its interval. Idempotent.
	Upsert(ctx context.Context, schedule Schedule) error
	// Remove deletes the schedule. It reports false, nil when the schedule did
	// not exist and ErrScheduleLocked when another worker holds it.
	Remove(ctx context.Context, scheduleID string) (bool, error)
	// Exists reports whether a schedule is registered.
	Exists(ctx context.Context, scheduleID string) (bool, error)
}

// MonitorScheduleID derives the recurring schedule id for a sale.
func MonitorScheduleID(saleID string) string {
	return fmt.Sprintf("check-voucher-%s", saleID)
}
