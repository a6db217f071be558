package domain

import (
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func TestIsCompletedRequiresStateAndKey(t *testing.T) {
	for _, state := range []State{StatePending, StateProcessing, StateAuthorized, StateRejected, StateError} {
		for _, key := range []*string{nil, strPtr(""), strPtr("   ")} {
			if IsCompleted(Record{State: state, AccessKey: key}) {
				t.Errorf("expected incomplete for state=%s with empty key", state)
			}
		}
	}

	for _, state := range []State{StatePending, StateProcessing, StateRejected, StateError} {
		if IsCompleted(Record{State: state, AccessKey: strPtr("0102202401179000000000120010010000000011234567813")}) {
			t.Errorf("expected incomplete for state=%s with key", state)
		}
	}

	if !IsCompleted(Record{State: StateAuthorized, AccessKey: strPtr("key")}) {
		t.Fatal("expected AUTHORIZED with key to be completed")
	}
}

func TestShouldFinish(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		record *Record
		finish bool
		reason string
	}{
		{"missing", nil, true, ReasonRecordMissing},
		{"completed", &Record{State: StateAuthorized, AccessKey: strPtr("k"), CreatedAt: now}, true, ReasonCompleted},
		{"expired pending", &Record{State: StatePending, CreatedAt: now.Add(-25 * time.Hour)}, true, ReasonExpiryExceeded},
		{"fresh pending", &Record{State: StatePending, CreatedAt: now.Add(-1 * time.Hour)}, false, ""},
		{"authorized without key", &Record{State: StateAuthorized, CreatedAt: now.Add(-1 * time.Hour)}, false, ""},
		{"rejected within window", &Record{State: StateRejected, CreatedAt: now.Add(-2 * time.Hour)}, false, ""},
	}

	for _, tc := range tests {
		got := ShouldFinish(tc.record, now, 24*time.Hour)
		if got.Finish != tc.finish || got.Reason != tc.reason {
			t.Errorf("%s: got %+v, want finish=%v reason=%q", tc.name, got, tc.finish, tc.reason)
		}
	}
}

func TestShouldFinishDefaultsMaxAge(t *testing.T) {
	now := time.Now()
	r := &Record{State: StatePending, CreatedAt: now.Add(-25 * time.Hour)}
	if !ShouldFinish(r, now, 0).Finish {
		t.Fatal("expected default max age to expire a 25h old voucher")
	}
}
