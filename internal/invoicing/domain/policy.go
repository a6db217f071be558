package domain

import (
	"strings"
	"time"
)

// DefaultMaxMonitorAge bounds how long a voucher is polled after its sale was
// created, so abandoned or permanently failing vouchers stop generating traffic.
const DefaultMaxMonitorAge = 24 * time.Hour

// Termination reasons.
const (
	ReasonRecordMissing  = "record missing"
	ReasonCompleted      = "completed"
	ReasonExpiryExceeded = "expiry exceeded"
)

// IsCompleted reports whether the voucher is authorized and carries an access
// key. Neither condition alone is sufficient.
func IsCompleted(r Record) bool {
	return r.State == StateAuthorized && strings.TrimSpace(r.Key()) != ""
}

// Termination is the outcome of ShouldFinish.
type Termination struct {
	Finish bool
	Reason string
}

// ShouldFinish decides whether monitoring of r should stop. A nil record means
// the sale no longer exists. maxAge <= 0 falls back to DefaultMaxMonitorAge.
func ShouldFinish(r *Record, now time.Time, maxAge time.Duration) Termination {
	if r == nil {
		return Termination{Finish: true, Reason: ReasonRecordMissing}
	}
	if IsCompleted(*r) {
		return Termination{Finish: true, Reason: ReasonCompleted}
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxMonitorAge
	}
	if !r.CreatedAt.IsZero() && now.Sub(r.CreatedAt) > maxAge {
		return Termination{Finish: true, Reason: ReasonExpiryExceeded}
	}
	return Termination{}
}
