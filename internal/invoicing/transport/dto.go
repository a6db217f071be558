package transport

import (
	"time"

	"pos_invoicing_backend/internal/invoicing/domain"
	"pos_invoicing_backend/internal/invoicing/ports"
)

// ── Requests ──────────────────────────────────────────────────────────────────

// CreateVoucherRequest is the body of POST /sales/:id/voucher. The sale id
// comes from the path; a saleId in the body must match it when present.
type CreateVoucherRequest struct {
	SaleID            string             `json:"saleId,omitempty"`
	EmissionPointID   string             `json:"emissionPointId"`
	Customer          ports.CustomerData `json:"customer"`
	LineItems         []ports.LineItem   `json:"lineItems"`
	PaymentMethodCode string             `json:"paymentMethodCode"`
}

// ToPayload builds the queue payload for saleID.
func (r CreateVoucherRequest) ToPayload(saleID string) ports.VoucherPayload {
	return ports.VoucherPayload{
		SaleID:            saleID,
		EmissionPointID:   r.EmissionPointID,
		Customer:          r.Customer,
		LineItems:         r.LineItems,
		PaymentMethodCode: r.PaymentMethodCode,
	}
}

// ── Responses ─────────────────────────────────────────────────────────────────

// EnqueuedResponse acknowledges work handed to the job queue.
type EnqueuedResponse struct {
	SaleID string `json:"saleId"`
	TaskID string `json:"taskId"`
	Status string `json:"status"`
}

// VoucherResponse is the tracking record of a sale.
type VoucherResponse struct {
	SaleID          string    `json:"saleId"`
	RemoteVoucherID *string   `json:"remoteVoucherId"`
	State           string    `json:"state"`
	AccessKey       *string   `json:"accessKey"`
	Completed       bool      `json:"completed"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// ReceiptResponse points at the archived authorization receipt.
type ReceiptResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ToVoucherResponse maps a domain record to its API shape.
func ToVoucherResponse(rec domain.Record) VoucherResponse {
	return VoucherResponse{
		SaleID:          rec.ID,
		RemoteVoucherID: rec.RemoteVoucherID,
		State:           string(rec.State),
		AccessKey:       rec.AccessKey,
		Completed:       domain.IsCompleted(rec),
		CreatedAt:       rec.CreatedAt,
		UpdatedAt:       rec.UpdatedAt,
	}
}
