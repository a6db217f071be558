package handler

import (
	"context"
	"net/http"
	"strings"

	"pos_invoicing_backend/internal/adapters/storage"
	"pos_invoicing_backend/internal/invoicing/domain"
	"pos_invoicing_backend/internal/invoicing/ports"
	"pos_invoicing_backend/internal/invoicing/transport"
	"pos_invoicing_backend/platform/apperr"
	"pos_invoicing_backend/platform/httpkit"
	"pos_invoicing_backend/platform/logger"
	"pos_invoicing_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgSaleIDMismatch   = "saleId in body does not match path"
	msgReceiptMissing   = "no authorization receipt for this sale"

	statusQueued = "queued"
)

// VoucherQueue hands voucher work to the background worker.
type VoucherQueue interface {
	EnqueueCreateVoucher(ctx context.Context, payload ports.VoucherPayload) (string, error)
	EnqueueCheck(ctx context.Context, saleID string) (string, error)
}

// VoucherReader loads the tracking record of a sale.
type VoucherReader interface {
	GetVoucher(ctx context.Context, saleID string) (domain.Record, error)
}

// ReceiptLinker presigns archived authorization receipts.
type ReceiptLinker interface {
	ReceiptURL(ctx context.Context, saleID, accessKey string) (*storage.PresignedURL, error)
}

// Handler handles HTTP requests that trigger and inspect voucher reconciliation.
type Handler struct {
	queue    VoucherQueue
	reader   VoucherReader
	receipts ReceiptLinker
	val      *validator.Validator
	log      *logger.Logger
}

// New creates a new invoicing handler.
func New(queue VoucherQueue, reader VoucherReader, val *validator.Validator, log *logger.Logger) *Handler {
	return &Handler{queue: queue, reader: reader, val: val, log: log}
}

// SetReceiptLinker enables the receipt download endpoint.
func (h *Handler) SetReceiptLinker(receipts ReceiptLinker) {
	h.receipts = receipts
}

// RegisterRoutes registers the voucher routes under /sales.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/:id/voucher", h.CreateVoucher)
	rg.GET("/:id/voucher", h.GetVoucher)
	rg.POST("/:id/voucher/check", h.CheckVoucher)
	rg.GET("/:id/voucher/receipt", h.GetReceipt)
}

// CreateVoucher validates the payload and enqueues voucher creation.
func (h *Handler) CreateVoucher(c *gin.Context) {
	saleID, ok := saleIDParam(c)
	if !ok {
		return
	}

	var req transport.CreateVoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if req.SaleID != "" && strings.TrimSpace(req.SaleID) != saleID {
		httpkit.Error(c, http.StatusBadRequest, msgSaleIDMismatch, nil)
		return
	}

	payload := req.ToPayload(saleID)
	if err := h.val.Struct(payload); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	taskID, err := h.queue.EnqueueCreateVoucher(c.Request.Context(), payload)
	if httpkit.HandleError(c, err) {
		return
	}

	h.log.WithContext(c.Request.Context()).Info("voucher creation queued",
		"sale_id", saleID, "task_id", taskID, "requested_by", httpkit.GetIdentity(c).Subject())
	httpkit.Accepted(c, transport.EnqueuedResponse{SaleID: saleID, TaskID: taskID, Status: statusQueued})
}

// GetVoucher returns the current tracking record.
func (h *Handler) GetVoucher(c *gin.Context) {
	saleID, ok := saleIDParam(c)
	if !ok {
		return
	}

	rec, err := h.reader.GetVoucher(c.Request.Context(), saleID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ToVoucherResponse(rec))
}

// CheckVoucher enqueues one out-of-band monitoring tick.
func (h *Handler) CheckVoucher(c *gin.Context) {
	saleID, ok := saleIDParam(c)
	if !ok {
		return
	}

	if _, err := h.reader.GetVoucher(c.Request.Context(), saleID); httpkit.HandleError(c, err) {
		return
	}

	taskID, err := h.queue.EnqueueCheck(c.Request.Context(), saleID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Accepted(c, transport.EnqueuedResponse{SaleID: saleID, TaskID: taskID, Status: statusQueued})
}

// GetReceipt returns a presigned URL for the archived authorization receipt.
func (h *Handler) GetReceipt(c *gin.Context) {
	saleID, ok := saleIDParam(c)
	if !ok {
		return
	}
	if h.receipts == nil {
		httpkit.HandleError(c, apperr.NotFound("receipt archive is not configured"))
		return
	}

	rec, err := h.reader.GetVoucher(c.Request.Context(), saleID)
	if httpkit.HandleError(c, err) {
		return
	}
	if !domain.IsCompleted(rec) {
		httpkit.HandleError(c, apperr.NotFound(msgReceiptMissing))
		return
	}

	link, err := h.receipts.ReceiptURL(c.Request.Context(), saleID, rec.Key())
	if err != nil {
		httpkit.HandleError(c, apperr.Unavailable("presign receipt", err))
		return
	}

	httpkit.OK(c, transport.ReceiptResponse{URL: link.URL, ExpiresAt: link.ExpiresAt})
}

func saleIDParam(c *gin.Context) (string, bool) {
	saleID := strings.TrimSpace(c.Param("id"))
	if saleID == "" || len(saleID) > 64 {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, "invalid sale id")
		return "", false
	}
	return saleID, true
}
