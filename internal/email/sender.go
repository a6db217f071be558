package email

import (
	"context"
	"time"
)

// VoucherFailureAlert describes a voucher that could not be created.
type VoucherFailureAlert struct {
	SaleID     string
	Reason     string
	OccurredAt time.Time
}

// VoucherExpiryAlert describes a voucher that never reached authorization.
type VoucherExpiryAlert struct {
	SaleID          string
	RemoteVoucherID string
	LastState       string
	OccurredAt      time.Time
}

type Sender interface {
	SendVoucherCreationFailedEmail(ctx context.Context, toEmail string, alert VoucherFailureAlert) error
	SendVoucherMonitoringExpiredEmail(ctx context.Context, toEmail string, alert VoucherExpiryAlert) error
}

type NoopSender struct{}

func (NoopSender) SendVoucherCreationFailedEmail(ctx context.Context, toEmail string, alert VoucherFailureAlert) error {
	return nil
}

func (NoopSender) SendVoucherMonitoringExpiredEmail(ctx context.Context, toEmail string, alert VoucherExpiryAlert) error {
	return nil
}
