package domain

import (
	"strings"
	"time"
)

// Record is the invoicing projection of a sale.
type Record struct {
	ID              string
	RemoteVoucherID *string
	State           State
	AccessKey       *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasRemoteVoucher reports whether the remote API has assigned an identifier.
func (r Record) HasRemoteVoucher() bool {
	return r.RemoteVoucherID != nil && strings.TrimSpace(*r.RemoteVoucherID) != ""
}

// RemoteID returns the remote voucher identifier or "".
func (r Record) RemoteID() string {
	if r.RemoteVoucherID == nil {
		return ""
	}
	return *r.RemoteVoucherID
}

// Key returns the access key or "".
func (r Record) Key() string {
	if r.AccessKey == nil {
		return ""
	}
	return *r.AccessKey
}

// Fields is a partial update of a Record. Nil fields are left untouched.
// Every set field is written as an absolute value, never as a delta.
type Fields struct {
	RemoteVoucherID *string
	State           *State
	AccessKey       *string
}

// Empty reports whether no field is set.
func (f Fields) Empty() bool {
	return f.RemoteVoucherID == nil && f.State == nil && f.AccessKey == nil
}

// ApplyTo returns r with the set fields overwritten.
func (f Fields) ApplyTo(r Record) Record {
	if f.RemoteVoucherID != nil {
		id := *f.RemoteVoucherID
		r.RemoteVoucherID = &id
	}
	if f.State != nil {
		r.State = *f.State
	}
	if f.AccessKey != nil {
		key := *f.AccessKey
		r.AccessKey = &key
	}
	return r
}

// RemoteStatus is the remote API's current view of a voucher.
type RemoteStatus struct {
	State     string
	AccessKey string
	// Raw is the undecoded response body, kept for audit archiving.
	Raw []byte
}
