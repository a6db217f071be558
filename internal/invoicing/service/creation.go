package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pos_invoicing_backend/internal/invoicing/domain"
	"pos_invoicing_backend/internal/invoicing/ports"
	"pos_invoicing_backend/platform/apperr"
	"pos_invoicing_backend/platform/logger"
	"pos_invoicing_backend/platform/phone"
	"pos_invoicing_backend/platform/validator"
)

// CreateResult is the outcome of a creation job.
type CreateResult struct {
	SaleID          string
	RemoteVoucherID string
	State           domain.State
	AccessKey       string
	Completed       bool
	// ScheduleMonitoring tells the caller to register the recurring check.
	ScheduleMonitoring bool
	Reasons            []string
}

// Creator runs the one-shot voucher creation job.
type Creator struct {
	store      ports.SaleStore
	remote     ports.RemoteInvoicingClient
	lifecycle  *Lifecycle
	events     ports.VoucherEvents
	completion completionHook
	val        *validator.Validator
	log        *logger.Logger
}

// Create submits the voucher to the remote API and records the outcome.
//
// Each write is a commit point. Once the remote call has been made, no error
// returned from here is retryable, so a queue retry can never submit the same
// sale twice. The caller may enqueue a fresh creation job instead. The one
// exception is a rejected creation whose ERROR state could not be written:
// the sale is left PROCESSING without a remote voucher, and only a retry can
// settle it.
func (c *Creator) Create(ctx context.Context, payload ports.VoucherPayload) (CreateResult, error) {
	payload = normalizePayload(payload)
	if err := c.validate(payload); err != nil {
		return CreateResult{SaleID: payload.SaleID}, err
	}

	saleID := payload.SaleID
	log := c.log.WithContext(ctx).WithSaleID(saleID)

	processing := domain.StateProcessing
	if _, err := c.store.Update(ctx, saleID, domain.Fields{State: &processing}); err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return CreateResult{SaleID: saleID}, apperr.Wrap(apperr.KindNotFound, "sale not found", err).AsPermanent()
		}
		return CreateResult{SaleID: saleID}, apperr.Unavailable("mark sale processing", err)
	}

	created, err := c.remote.CreateVoucher(ctx, payload)
	if err == nil && strings.TrimSpace(created.RemoteVoucherID) == "" {
		err = fmt.Errorf("remote API returned no voucher id")
	}
	if err != nil {
		return c.fail(ctx, log, saleID, err)
	}

	remoteID := strings.TrimSpace(created.RemoteVoucherID)
	state := domain.Normalize(created.State)
	fields := domain.Fields{RemoteVoucherID: &remoteID, State: &state}
	if key := strings.TrimSpace(created.AccessKey); key != "" {
		fields.AccessKey = &key
	}

	rec, err := c.store.Update(ctx, saleID, fields)
	if err != nil {
		log.Error("remote voucher created but not persisted", "remote_voucher_id", remoteID, "state", state, "error", err)
		return CreateResult{SaleID: saleID, RemoteVoucherID: remoteID, State: state},
			apperr.Unavailable("persist created voucher", err).AsPermanent()
	}

	var reasons []string
	var raw []byte
	if rec.State == domain.StatePending {
		rec, reasons, raw = c.immediateLookup(ctx, log, rec)
	}

	completed := domain.IsCompleted(rec)
	if completed {
		c.completion.completed(ctx, rec, raw)
	}

	log.Info("voucher created", "remote_voucher_id", remoteID, "state", rec.State, "completed", completed)

	return CreateResult{
		SaleID:             saleID,
		RemoteVoucherID:    remoteID,
		State:              rec.State,
		AccessKey:          rec.Key(),
		Completed:          completed,
		ScheduleMonitoring: !completed,
		Reasons:            reasons,
	}, nil
}

// immediateLookup polls once right after creation so vouchers the authority
// approves quickly do not wait for the first monitor interval. Failures are
// left to the recurring monitor.
func (c *Creator) immediateLookup(ctx context.Context, log *logger.Logger, rec domain.Record) (domain.Record, []string, []byte) {
	status, err := c.remote.GetVoucherStatus(ctx, rec.RemoteID())
	if err != nil {
		log.Warn("immediate status lookup failed", "remote_voucher_id", rec.RemoteID(), "error", err)
		return rec, nil, nil
	}

	plan := domain.Plan(rec, status)
	if plan.Empty() {
		return rec, nil, nil
	}

	updated, err := c.store.Update(ctx, rec.ID, plan.Fields())
	if err != nil {
		log.Warn("immediate status update not persisted", "reasons", plan.Reasons, "error", err)
		return rec, nil, nil
	}
	return updated, plan.Reasons, status.Raw
}

func (c *Creator) fail(ctx context.Context, log *logger.Logger, saleID string, cause error) (CreateResult, error) {
	log.Error("voucher creation failed", "error", cause)

	removal := c.lifecycle.CancelMonitoring(ctx, saleID)
	log.Debug("monitor schedule cleanup after failed creation", "removed", removal.Removed, "detail", removal.Detail)

	failed := domain.StateError
	rec, err := c.store.Update(ctx, saleID, domain.Fields{State: &failed})
	if err != nil {
		log.Error("could not mark sale as failed", "error", err)
		return CreateResult{SaleID: saleID, State: domain.StateProcessing},
			apperr.Unavailable("mark sale failed", errors.Join(err, cause))
	}

	c.events.VoucherCreationFailed(ctx, saleID, cause)

	return CreateResult{SaleID: saleID, State: rec.State},
		apperr.Upstream("create remote voucher", cause).AsPermanent()
}

func (c *Creator) validate(payload ports.VoucherPayload) error {
	if err := c.val.Struct(payload); err != nil {
		return apperr.Validation("invalid voucher payload").
			WithDetails(validator.FieldErrors(err)).
			AsPermanent()
	}
	for i, item := range payload.LineItems {
		if !item.Quantity.IsPositive() {
			return apperr.Validation(fmt.Sprintf("lineItems[%d].quantity must be positive", i)).AsPermanent()
		}
		if item.UnitPrice.IsNegative() || item.Discount.IsNegative() {
			return apperr.Validation(fmt.Sprintf("lineItems[%d] amounts must not be negative", i)).AsPermanent()
		}
	}
	return nil
}

func normalizePayload(p ports.VoucherPayload) ports.VoucherPayload {
	p.SaleID = strings.TrimSpace(p.SaleID)
	p.EmissionPointID = strings.TrimSpace(p.EmissionPointID)
	p.PaymentMethodCode = strings.TrimSpace(p.PaymentMethodCode)
	p.Customer.Identification = strings.TrimSpace(p.Customer.Identification)
	p.Customer.Name = strings.TrimSpace(p.Customer.Name)
	p.Customer.Email = strings.TrimSpace(p.Customer.Email)
	p.Customer.Phone = phone.NormalizeE164(p.Customer.Phone)
	return p
}
