package email

import (
	"strings"
	"testing"
	"time"
)

func TestRenderVoucherCreationFailedEscapesReason(t *testing.T) {
	subject, body, err := renderVoucherCreationFailed(VoucherFailureAlert{
		SaleID:     "S-100",
		Reason:     "<script>alert(1)</script>",
		OccurredAt: time.Date(2026, 4, 16, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if subject != "Factura no emitida: venta S-100" {
		t.Fatalf("unexpected subject %q", subject)
	}
	if strings.Contains(body, "<script>") {
		t.Fatal("reason must be HTML-escaped")
	}
	if !strings.Contains(body, "2026-04-16 12:00:00 UTC") {
		t.Fatalf("expected timestamp in body, got %s", body)
	}
}

func TestRenderVoucherMonitoringExpired(t *testing.T) {
	_, body, err := renderVoucherMonitoringExpired(VoucherExpiryAlert{SaleID: "S-7", RemoteVoucherID: "X-7"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"S-7", "X-7", "desconocido"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in body", want)
		}
	}
}
