package service

import (
	"context"
	"time"

	"pos_invoicing_backend/internal/invoicing/domain"
	"pos_invoicing_backend/internal/invoicing/ports"
	"pos_invoicing_backend/platform/apperr"
	"pos_invoicing_backend/platform/logger"
)

// TickResult summarizes one monitoring tick.
type TickResult struct {
	SaleID         string
	Updated        bool
	Reasons        []string
	State          domain.State
	NothingToCheck bool
	Finished       bool
	FinishReason   string
	Removal        *CancelResult
}

// Monitor runs the recurring authorization check for one sale.
type Monitor struct {
	store      ports.SaleStore
	remote     ports.RemoteInvoicingClient
	lifecycle  *Lifecycle
	events     ports.VoucherEvents
	completion completionHook
	maxAge     time.Duration
	now        func() time.Time
	log        *logger.Logger
}

// Tick reconciles the remote state of a sale's voucher into the sale store.
//
// Termination is derived from the persisted record before any remote call, so
// a completed or expired voucher stops producing remote traffic even when an
// earlier schedule removal failed. It is checked again after the write because
// overlapping ticks for the same sale may race.
func (m *Monitor) Tick(ctx context.Context, saleID string) (TickResult, error) {
	result := TickResult{SaleID: saleID}
	log := m.log.WithContext(ctx).WithSaleID(saleID)

	rec, err := m.store.FindByID(ctx, saleID)
	if err != nil {
		return result, apperr.Unavailable("load sale", err)
	}

	if term := domain.ShouldFinish(rec, m.now(), m.maxAge); term.Finish {
		return m.finish(ctx, log, result, rec, term.Reason), nil
	}
	result.State = rec.State

	if !rec.HasRemoteVoucher() {
		result.NothingToCheck = true
		return result, nil
	}

	status, err := m.remote.GetVoucherStatus(ctx, rec.RemoteID())
	if err != nil {
		log.Warn("voucher status lookup failed", "remote_voucher_id", rec.RemoteID(), "error", err)
		return result, apperr.Upstream("voucher status lookup", err)
	}

	plan := domain.Plan(*rec, status)
	current := *rec
	if !plan.Empty() {
		current, err = m.store.Update(ctx, saleID, plan.Fields())
		if err != nil {
			return result, apperr.Unavailable("persist voucher status", err)
		}
		result.Updated = true
		result.Reasons = plan.Reasons
		log.Info("voucher status reconciled", "remote_voucher_id", current.RemoteID(), "state", current.State, "reasons", plan.Reasons)
	}
	result.State = current.State

	if domain.IsCompleted(current) {
		if result.Updated {
			m.completion.completed(ctx, current, status.Raw)
		}
		return m.finish(ctx, log, result, &current, domain.ReasonCompleted), nil
	}

	return result, nil
}

func (m *Monitor) finish(ctx context.Context, log *logger.Logger, result TickResult, rec *domain.Record, reason string) TickResult {
	removal := m.lifecycle.CancelMonitoring(ctx, result.SaleID)
	result.Finished = true
	result.FinishReason = reason
	result.Removal = &removal
	if rec != nil {
		result.State = rec.State
	}

	// Only the call that actually deleted the schedule reports expiry, so
	// overlapping ticks do not raise duplicate alerts.
	if reason == domain.ReasonExpiryExceeded && removal.Existed && rec != nil {
		m.events.VoucherMonitoringExpired(ctx, rec.ID, rec.RemoteID(), string(rec.State))
	}

	log.Debug("voucher monitoring finished", "reason", reason, "removed", removal.Removed, "detail", removal.Detail)
	return result
}
