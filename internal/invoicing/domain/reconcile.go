package domain

import (
	"fmt"
	"strings"
)

// UpdatePlan is the diff between a local record and the remote view.
// Reasons are for audit logs only; nothing branches on their text.
type UpdatePlan struct {
	NewState     *State
	NewAccessKey *string
	Reasons      []string
}

// Empty reports whether the plan requires no write.
func (p UpdatePlan) Empty() bool {
	return p.NewState == nil && p.NewAccessKey == nil
}

// Fields converts the plan into a partial store update.
func (p UpdatePlan) Fields() Fields {
	return Fields{State: p.NewState, AccessKey: p.NewAccessKey}
}

// Apply returns local with the staged changes written. Applying the same plan
// twice yields the same record as applying it once.
func (p UpdatePlan) Apply(local Record) Record {
	return p.Fields().ApplyTo(local)
}

// Plan diffs local against remote. It never decides termination: a terminal
// state may come from this write or from one persisted by an earlier tick.
func Plan(local Record, remote RemoteStatus) UpdatePlan {
	var plan UpdatePlan

	remoteState := Normalize(remote.State)
	if !remoteState.Equal(string(local.State)) {
		plan.NewState = &remoteState
		plan.Reasons = append(plan.Reasons,
			fmt.Sprintf("state changed from %s to %s (remote %q)", local.State, remoteState, remote.State))
	}

	remoteKey := strings.TrimSpace(remote.AccessKey)
	if remoteKey != "" && remoteKey != strings.TrimSpace(local.Key()) {
		plan.NewAccessKey = &remoteKey
		if strings.TrimSpace(local.Key()) == "" {
			plan.Reasons = append(plan.Reasons, "access key issued")
		} else {
			plan.Reasons = append(plan.Reasons, "access key corrected to match authority")
		}
	}

	return plan
}
