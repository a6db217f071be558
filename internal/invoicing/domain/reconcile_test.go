package domain

import (
	"reflect"
	"testing"
)

const testAccessKey = "2901202601179214673900110010010000000011234567812"

func TestPlanEmptyWhenRemoteMatchesLocal(t *testing.T) {
	tests := []struct {
		local  Record
		remote RemoteStatus
	}{
		{Record{State: StatePending}, RemoteStatus{State: "pendiente"}},
		{Record{State: StatePending}, RemoteStatus{State: "something new"}},
		{Record{State: StateAuthorized, AccessKey: strPtr(testAccessKey)}, RemoteStatus{State: "AUTORIZADO", AccessKey: testAccessKey}},
		{Record{State: StateAuthorized, AccessKey: strPtr(testAccessKey)}, RemoteStatus{State: "authorized", AccessKey: ""}},
		{Record{State: StateRejected}, RemoteStatus{State: " Rechazado "}},
	}

	for _, tc := range tests {
		if plan := Plan(tc.local, tc.remote); !plan.Empty() {
			t.Errorf("expected empty plan for local=%+v remote=%+v, got %+v", tc.local, tc.remote, plan)
		}
	}
}

func TestPlanStagesStateChange(t *testing.T) {
	plan := Plan(Record{State: StatePending}, RemoteStatus{State: "rechazado"})
	if plan.NewState == nil || *plan.NewState != StateRejected {
		t.Fatalf("expected staged REJECTED, got %+v", plan)
	}
	if plan.NewAccessKey != nil {
		t.Fatal("expected no access key change")
	}
	if len(plan.Reasons) != 1 {
		t.Fatalf("expected one reason, got %v", plan.Reasons)
	}
}

func TestPlanStagesAccessKeyWhenLocalEmpty(t *testing.T) {
	plan := Plan(Record{State: StateAuthorized}, RemoteStatus{State: "autorizado", AccessKey: testAccessKey})
	if plan.NewState != nil {
		t.Fatalf("expected no state change, got %s", *plan.NewState)
	}
	if plan.NewAccessKey == nil || *plan.NewAccessKey != testAccessKey {
		t.Fatalf("expected staged access key, got %+v", plan)
	}
}

func TestPlanCorrectsDifferingAccessKey(t *testing.T) {
	plan := Plan(Record{State: StateAuthorized, AccessKey: strPtr("stale")}, RemoteStatus{State: "autorizado", AccessKey: testAccessKey})
	if plan.NewAccessKey == nil || *plan.NewAccessKey != testAccessKey {
		t.Fatalf("expected corrected access key, got %+v", plan)
	}
}

func TestPlanFromProcessingStagesPending(t *testing.T) {
	plan := Plan(Record{State: StateProcessing}, RemoteStatus{State: "procesando"})
	if plan.NewState == nil || *plan.NewState != StatePending {
		t.Fatalf("expected PROCESSING to reconcile to PENDING, got %+v", plan)
	}
}

func TestApplyPlanIsIdempotent(t *testing.T) {
	local := Record{ID: "sale-1", RemoteVoucherID: strPtr("X"), State: StatePending}
	plan := Plan(local, RemoteStatus{State: "autorizado", AccessKey: testAccessKey})

	once := plan.Apply(local)
	twice := plan.Apply(once)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("apply not idempotent: %+v vs %+v", once, twice)
	}
	if !IsCompleted(once) {
		t.Fatalf("expected applied record to be completed, got %+v", once)
	}
	if replan := Plan(once, RemoteStatus{State: "autorizado", AccessKey: testAccessKey}); !replan.Empty() {
		t.Fatalf("expected empty plan after apply, got %+v", replan)
	}
}

func TestApplyDoesNotAliasPlanValues(t *testing.T) {
	plan := Plan(Record{State: StatePending}, RemoteStatus{State: "autorizado", AccessKey: testAccessKey})
	applied := plan.Apply(Record{State: StatePending})
	*plan.NewAccessKey = "mutated"
	if applied.Key() != testAccessKey {
		t.Fatalf("applied record aliases plan value: %q", applied.Key())
	}
}
