// Package service implements voucher creation, authorization monitoring and
// the monitor schedule lifecycle on top of the invoicing ports.
package service

import (
	"context"
	"time"

	"pos_invoicing_backend/internal/invoicing/domain"
	"pos_invoicing_backend/internal/invoicing/ports"
	"pos_invoicing_backend/platform/apperr"
	"pos_invoicing_backend/platform/logger"
	"pos_invoicing_backend/platform/validator"
)

const (
	defaultMonitorInterval = time.Minute
	defaultLookupDelay     = 200 * time.Millisecond
	defaultSweepBatchSize  = 100
)

// Deps are the collaborators every handler needs. All of them are built by the
// composition root before any job is processed.
type Deps struct {
	Store     ports.SaleStore
	Remote    ports.RemoteInvoicingClient
	Schedules ports.ScheduleStore
	Events    ports.VoucherEvents
	Archive   ports.ReceiptArchive // optional
	Validator *validator.Validator
	Log       *logger.Logger
}

// Options tune monitoring. Zero values fall back to defaults.
type Options struct {
	MonitorInterval time.Duration
	MaxAge          time.Duration
	LookupDelay     time.Duration
	SweepBatchSize  int
	Now             func() time.Time
}

func (o Options) withDefaults() Options {
	if o.MonitorInterval <= 0 {
		o.MonitorInterval = defaultMonitorInterval
	}
	if o.MaxAge <= 0 {
		o.MaxAge = domain.DefaultMaxMonitorAge
	}
	if o.LookupDelay <= 0 {
		o.LookupDelay = defaultLookupDelay
	}
	if o.SweepBatchSize <= 0 {
		o.SweepBatchSize = defaultSweepBatchSize
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Service groups the invoicing handlers.
type Service struct {
	Creator   *Creator
	Monitor   *Monitor
	Lifecycle *Lifecycle
	Sweeper   *Sweeper

	store ports.SaleStore
}

// New wires the handlers around shared dependencies.
func New(deps Deps, opts Options) *Service {
	opts = opts.withDefaults()
	if deps.Events == nil {
		deps.Events = ports.NoopEvents{}
	}
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.Log == nil {
		deps.Log = logger.Discard()
	}

	lifecycle := NewLifecycle(deps.Schedules, opts.MonitorInterval, opts.Now, deps.Log)
	completion := completionHook{events: deps.Events, archive: deps.Archive, log: deps.Log}
	monitor := &Monitor{
		store:      deps.Store,
		remote:     deps.Remote,
		lifecycle:  lifecycle,
		events:     deps.Events,
		completion: completion,
		maxAge:     opts.MaxAge,
		now:        opts.Now,
		log:        deps.Log,
	}

	return &Service{
		Creator: &Creator{
			store:      deps.Store,
			remote:     deps.Remote,
			lifecycle:  lifecycle,
			events:     deps.Events,
			completion: completion,
			val:        deps.Validator,
			log:        deps.Log,
		},
		Monitor:   monitor,
		Lifecycle: lifecycle,
		Sweeper:   NewSweeper(deps.Store, monitor, lifecycle, opts.LookupDelay, opts.SweepBatchSize, opts.MaxAge, opts.Now, deps.Log),
		store:     deps.Store,
	}
}

// GetVoucher returns the tracking record of a sale.
func (s *Service) GetVoucher(ctx context.Context, saleID string) (domain.Record, error) {
	rec, err := s.store.FindByID(ctx, saleID)
	if err != nil {
		return domain.Record{}, apperr.Unavailable("load sale", err)
	}
	if rec == nil {
		return domain.Record{}, apperr.NotFound("sale not found")
	}
	return *rec, nil
}

// completionHook runs the side effects of a voucher becoming completed.
type completionHook struct {
	events  ports.VoucherEvents
	archive ports.ReceiptArchive
	log     *logger.Logger
}

func (h completionHook) completed(ctx context.Context, rec domain.Record, raw []byte) {
	h.events.VoucherAuthorized(ctx, rec.ID, rec.RemoteID(), rec.Key())
	if h.archive == nil || len(raw) == 0 {
		return
	}
	if err := h.archive.StoreReceipt(ctx, rec.ID, rec.Key(), raw); err != nil {
		h.log.Warn("authorization receipt archive failed", "sale_id", rec.ID, "error", err)
	}
}
