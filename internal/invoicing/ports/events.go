package ports

import "context"

// VoucherEvents receives lifecycle notifications. Implementations must not
// block; publishing failures never affect reconciliation.
type VoucherEvents interface {
	VoucherAuthorized(ctx context.Context, saleID, remoteVoucherID, accessKey string)
	VoucherCreationFailed(ctx context.Context, saleID string, cause error)
	VoucherMonitoringExpired(ctx context.Context, saleID, remoteVoucherID, lastState string)
}

// ReceiptArchive stores the authority's raw authorization response.
type ReceiptArchive interface {
	StoreReceipt(ctx context.Context, saleID, accessKey string, body []byte) error
}

// NoopEvents discards every event.
type NoopEvents struct{}

func (NoopEvents) VoucherAuthorized(context.Context, string, string, string)        {}
func (NoopEvents) VoucherCreationFailed(context.Context, string, error)             {}
func (NoopEvents) VoucherMonitoringExpired(context.Context, string, string, string) {}
