// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"context"

	"pos_invoicing_backend/internal/invoicing/ports"
	"pos_invoicing_backend/platform/events"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Invoicing Domain Events
// =============================================================================

// VoucherAuthorized is published when a sale's voucher becomes completed.
type VoucherAuthorized struct {
	BaseEvent
	SaleID          string `json:"saleId"`
	RemoteVoucherID string `json:"remoteVoucherId"`
	AccessKey       string `json:"accessKey"`
}

func (e VoucherAuthorized) EventName() string { return "invoicing.voucher.authorized" }

// VoucherCreationFailed is published when the billing API refused or failed
// to create a voucher.
type VoucherCreationFailed struct {
	BaseEvent
	SaleID string `json:"saleId"`
	Reason string `json:"reason"`
}

func (e VoucherCreationFailed) EventName() string { return "invoicing.voucher.creation_failed" }

// VoucherMonitoringExpired is published when monitoring gave up on a voucher
// that never completed.
type VoucherMonitoringExpired struct {
	BaseEvent
	SaleID          string `json:"saleId"`
	RemoteVoucherID string `json:"remoteVoucherId"`
	LastState       string `json:"lastState"`
}

func (e VoucherMonitoringExpired) EventName() string { return "invoicing.voucher.monitoring_expired" }

// Publisher adapts the bus to the invoicing event port.
type Publisher struct {
	bus Bus
}

// NewPublisher returns a publisher over bus.
func NewPublisher(bus Bus) *Publisher {
	return &Publisher{bus: bus}
}

var _ ports.VoucherEvents = (*Publisher)(nil)

func (p *Publisher) VoucherAuthorized(ctx context.Context, saleID, remoteVoucherID, accessKey string) {
	p.bus.Publish(ctx, VoucherAuthorized{
		BaseEvent:       NewBaseEvent(),
		SaleID:          saleID,
		RemoteVoucherID: remoteVoucherID,
		AccessKey:       accessKey,
	})
}

func (p *Publisher) VoucherCreationFailed(ctx context.Context, saleID string, cause error) {
	reason := ""
	if cause != nil {
		reason = cause.Error()
	}
	p.bus.Publish(ctx, VoucherCreationFailed{
		BaseEvent: NewBaseEvent(),
		SaleID:    saleID,
		Reason:    reason,
	})
}

func (p *Publisher) VoucherMonitoringExpired(ctx context.Context, saleID, remoteVoucherID, lastState string) {
	p.bus.Publish(ctx, VoucherMonitoringExpired{
		BaseEvent:       NewBaseEvent(),
		SaleID:          saleID,
		RemoteVoucherID: remoteVoucherID,
		LastState:       lastState,
	})
}
