// Package notification provides event handlers that alert operators by e-mail
// about vouchers that need manual attention.
// This module subscribes to invoicing events and inverts the dependency: the
// invoicing service does not know about e-mail providers or templates.
package notification

import (
	"context"
	"errors"
	"fmt"

	"pos_invoicing_backend/internal/email"
	"pos_invoicing_backend/internal/events"
	"pos_invoicing_backend/platform/config"
	"pos_invoicing_backend/platform/logger"
)

// Module handles notification-related event subscriptions.
type Module struct {
	sender     email.Sender
	recipients []string
	log        *logger.Logger
}

// New creates a notification module delivering alerts to recipients.
func New(sender email.Sender, recipients []string, log *logger.Logger) *Module {
	if sender == nil {
		sender = email.NoopSender{}
	}
	return &Module{sender: sender, recipients: recipients, log: log}
}

// NewFromConfig builds the module from alert settings. Alerts are dropped when
// SMTP or recipients are not configured.
func NewFromConfig(cfg config.AlertConfig, log *logger.Logger) *Module {
	if !cfg.IsAlertEnabled() {
		log.Info("voucher alert e-mails disabled")
		return New(email.NoopSender{}, nil, log)
	}
	sender := email.NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetAlertFromAddress(),
		"Facturación electrónica",
	)
	return New(sender, cfg.GetAlertRecipients(), log)
}

// RegisterHandlers subscribes the module to the bus.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.VoucherCreationFailed{}.EventName(), m)
	bus.Subscribe(events.VoucherMonitoringExpired{}.EventName(), m)
}

// Handle implements events.Handler.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.VoucherCreationFailed:
		return m.handleVoucherCreationFailed(ctx, e)
	case events.VoucherMonitoringExpired:
		return m.handleVoucherMonitoringExpired(ctx, e)
	default:
		return nil
	}
}

func (m *Module) handleVoucherCreationFailed(ctx context.Context, e events.VoucherCreationFailed) error {
	alert := email.VoucherFailureAlert{SaleID: e.SaleID, Reason: e.Reason, OccurredAt: e.OccurredAt()}
	return m.fanOut("voucher creation failed", e.SaleID, func(to string) error {
		return m.sender.SendVoucherCreationFailedEmail(ctx, to, alert)
	})
}

func (m *Module) handleVoucherMonitoringExpired(ctx context.Context, e events.VoucherMonitoringExpired) error {
	alert := email.VoucherExpiryAlert{
		SaleID:          e.SaleID,
		RemoteVoucherID: e.RemoteVoucherID,
		LastState:       e.LastState,
		OccurredAt:      e.OccurredAt(),
	}
	return m.fanOut("voucher monitoring expired", e.SaleID, func(to string) error {
		return m.sender.SendVoucherMonitoringExpiredEmail(ctx, to, alert)
	})
}

func (m *Module) fanOut(kind, saleID string, send func(to string) error) error {
	var errs []error
	for _, to := range m.recipients {
		if err := send(to); err != nil {
			m.log.Error("failed to send alert email", "alert", kind, "sale_id", saleID, "email", to, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", to, err))
			continue
		}
		m.log.Info("alert email sent", "alert", kind, "sale_id", saleID, "email", to)
	}
	return errors.Join(errs...)
}
