// Package invoicing provides the voucher reconciliation module: the trigger
// HTTP API plus the creation and monitoring handlers run by the worker.
package invoicing

import (
	"pos_invoicing_backend/internal/adapters/storage"
	apphttp "pos_invoicing_backend/internal/http"
	"pos_invoicing_backend/internal/invoicing/handler"
	"pos_invoicing_backend/internal/invoicing/service"
	"pos_invoicing_backend/platform/logger"
	"pos_invoicing_backend/platform/validator"
)

// Module represents the invoicing domain module
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new invoicing module around an already wired service.
// The queue is the only way the API starts work; handlers never call the
// remote API inline.
func NewModule(svc *service.Service, queue handler.VoucherQueue, val *validator.Validator, log *logger.Logger) *Module {
	return &Module{
		handler: handler.New(queue, svc, val, log),
		service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "invoicing"
}

// Service returns the service layer for external use
func (m *Module) Service() *service.Service {
	return m.service
}

// SetReceiptStore enables presigned receipt downloads.
func (m *Module) SetReceiptStore(store storage.ReceiptStore) {
	m.handler.SetReceiptLinker(store)
}

// RegisterRoutes registers the module's routes
func (m *Module) RegisterRoutes(routes *apphttp.Routes) {
	sales := routes.Protected.Group("/sales")
	m.handler.RegisterRoutes(sales)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
