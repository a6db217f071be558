package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"pos_invoicing_backend/internal/invoicing/domain"
	"pos_invoicing_backend/platform/apperr"
)

func TestTickAuthorizesAndStopsMonitoring(t *testing.T) {
	h := newHarness()
	h.seed(h.pendingSale("S1", "X1", time.Hour))
	h.schedule("S1")
	h.remote.status = domain.RemoteStatus{State: "Autorizado", AccessKey: testAccessKey, Raw: []byte("<ok/>")}

	result, err := h.svc.Monitor.Tick(context.Background(), "S1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Updated || !result.Finished || result.FinishReason != domain.ReasonCompleted {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Removal == nil || !result.Removal.Removed || !result.Removal.Existed {
		t.Fatalf("expected schedule removal, got %+v", result.Removal)
	}
	if h.schedules.has("S1") {
		t.Fatal("schedule must be gone")
	}
	if rec := h.store.get("S1"); !domain.IsCompleted(rec) {
		t.Fatalf("expected completed record, got %+v", rec)
	}
	if len(h.events.authorized) != 1 {
		t.Fatalf("expected one authorized event, got %d", len(h.events.authorized))
	}
}

func TestTickWithoutRemoteVoucherDoesNothing(t *testing.T) {
	h := newHarness()
	h.seed(h.pendingSale("S2", "", time.Minute))
	h.schedule("S2")

	result, err := h.svc.Monitor.Tick(context.Background(), "S2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.NothingToCheck || result.Finished || result.Updated {
		t.Fatalf("unexpected result: %+v", result)
	}
	if h.remote.statusCalls() != 0 {
		t.Fatal("remote API must not be queried")
	}
	if h.schedules.removals() != 0 || !h.schedules.has("S2") {
		t.Fatal("schedule must be left untouched")
	}
}

func TestTickStillPendingKeepsSchedule(t *testing.T) {
	h := newHarness()
	h.seed(h.pendingSale("S3", "X3", time.Minute))
	h.schedule("S3")
	h.remote.status = domain.RemoteStatus{State: "en proceso"}

	result, err := h.svc.Monitor.Tick(context.Background(), "S3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Updated || result.Finished {
		t.Fatalf("expected no change, got %+v", result)
	}
	if h.store.updateCount() != 0 {
		t.Fatal("no write expected when nothing changed")
	}
	if !h.schedules.has("S3") {
		t.Fatal("schedule must remain")
	}
}

func TestTickLookupFailureIsRetryableWithoutChanges(t *testing.T) {
	h := newHarness()
	h.seed(h.pendingSale("S4", "X4", time.Minute))
	h.schedule("S4")
	h.remote.statusErr = errNetwork

	_, err := h.svc.Monitor.Tick(context.Background(), "S4")
	if !apperr.Is(err, apperr.KindUpstream) || !apperr.Retryable(err) {
		t.Fatalf("expected retryable upstream error, got %v", err)
	}
	if h.store.updateCount() != 0 || !h.schedules.has("S4") {
		t.Fatal("a failed lookup must not change the record or the schedule")
	}
}

func TestTickRecordMissingStopsMonitoring(t *testing.T) {
	h := newHarness()
	h.schedule("gone")

	result, err := h.svc.Monitor.Tick(context.Background(), "gone")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Finished || result.FinishReason != domain.ReasonRecordMissing {
		t.Fatalf("unexpected result: %+v", result)
	}
	if h.schedules.has("gone") {
		t.Fatal("schedule must be removed")
	}
}

func TestTickExpiredStopsWithoutRemoteCall(t *testing.T) {
	h := newHarness()
	h.seed(h.pendingSale("S5", "X5", 25*time.Hour))
	h.schedule("S5")

	result, err := h.svc.Monitor.Tick(context.Background(), "S5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Finished || result.FinishReason != domain.ReasonExpiryExceeded {
		t.Fatalf("unexpected result: %+v", result)
	}
	if h.remote.statusCalls() != 0 {
		t.Fatal("expired vouchers must not be queried")
	}
	if len(h.events.expired) != 1 {
		t.Fatalf("expected one expiry event, got %d", len(h.events.expired))
	}

	// A late duplicate tick finds no schedule and stays quiet.
	if _, err := h.svc.Monitor.Tick(context.Background(), "S5"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(h.events.expired) != 1 {
		t.Fatalf("expected expiry to be reported once, got %d", len(h.events.expired))
	}
}

func TestTickCompletedRecordSkipsLookup(t *testing.T) {
	h := newHarness()
	rec := h.pendingSale("S6", "X6", time.Hour)
	stale := "stale-key"
	rec.State = domain.StateAuthorized
	rec.AccessKey = &stale
	h.seed(rec)
	h.remote.status = domain.RemoteStatus{State: "AUTHORIZED", AccessKey: testAccessKey}

	result, err := h.svc.Monitor.Tick(context.Background(), "S6")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Finished || h.remote.statusCalls() != 0 {
		t.Fatalf("completed record must finish without lookup, got %+v", result)
	}
}

func TestTickRejectedKeepsMonitoringUntilExpiry(t *testing.T) {
	h := newHarness()
	h.seed(h.pendingSale("S7", "X7", time.Hour))
	h.schedule("S7")
	h.remote.status = domain.RemoteStatus{State: "RECHAZADO"}

	result, err := h.svc.Monitor.Tick(context.Background(), "S7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Updated || result.State != domain.StateRejected || result.Finished {
		t.Fatalf("unexpected result: %+v", result)
	}
	if !h.schedules.has("S7") {
		t.Fatal("rejected vouchers are monitored until expiry")
	}
}

func TestOverlappingTicksConverge(t *testing.T) {
	h := newHarness()
	h.seed(h.pendingSale("S8", "X8", time.Hour))
	h.schedule("S8")
	h.remote.status = domain.RemoteStatus{State: "AUTORIZADO", AccessKey: testAccessKey}

	// Both ticks read PENDING before either writes.
	var arrived sync.WaitGroup
	arrived.Add(2)
	h.remote.beforeStatus = func() {
		arrived.Done()
		arrived.Wait()
	}

	results := make([]TickResult, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = h.svc.Monitor.Tick(context.Background(), "S8")
		}(i)
	}
	wg.Wait()

	existed := 0
	for i := range results {
		if errs[i] != nil {
			t.Fatalf("tick %d failed: %v", i, errs[i])
		}
		if !results[i].Finished || !results[i].Removal.Removed {
			t.Fatalf("tick %d did not finish cleanly: %+v", i, results[i])
		}
		if results[i].Removal.Existed {
			existed++
		}
	}
	if existed != 1 {
		t.Fatalf("expected exactly one tick to delete the schedule, got %d", existed)
	}
	if rec := h.store.get("S8"); rec.State != domain.StateAuthorized || rec.Key() != testAccessKey {
		t.Fatalf("unexpected final record: %+v", rec)
	}
	if h.schedules.has("S8") {
		t.Fatal("schedule must be gone")
	}
}

func TestTickAfterCompletionOnlyRetriesRemoval(t *testing.T) {
	h := newHarness()
	h.seed(h.pendingSale("S9", "X9", time.Hour))
	h.schedule("S9")
	h.remote.status = domain.RemoteStatus{State: "AUTORIZADO", AccessKey: testAccessKey}
	h.schedules.lockedRemovals = 1

	first, err := h.svc.Monitor.Tick(context.Background(), "S9")
	if err != nil {
		t.Fatalf("a locked schedule must not fail the tick: %v", err)
	}
	if !first.Finished || first.Removal.Removed {
		t.Fatalf("expected finished tick with deferred removal, got %+v", first)
	}
	if !h.schedules.has("S9") {
		t.Fatal("locked schedule must survive the first tick")
	}

	second, err := h.svc.Monitor.Tick(context.Background(), "S9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !second.Finished || !second.Removal.Removed || second.Updated {
		t.Fatalf("expected removal on the next tick, got %+v", second)
	}
	if h.remote.statusCalls() != 1 {
		t.Fatalf("expected no lookup after completion, got %d calls", h.remote.statusCalls())
	}
	if h.schedules.has("S9") {
		t.Fatal("schedule must be gone after the second tick")
	}
	if len(h.events.authorized) != 1 {
		t.Fatalf("expected one authorized event, got %d", len(h.events.authorized))
	}
}

func TestTickStoreFailureIsRetryable(t *testing.T) {
	h := newHarness()
	h.store.findErr = errNetwork

	_, err := h.svc.Monitor.Tick(context.Background(), "S10")
	if !apperr.Is(err, apperr.KindUnavailable) || !apperr.Retryable(err) {
		t.Fatalf("expected retryable unavailable error, got %v", err)
	}
}
