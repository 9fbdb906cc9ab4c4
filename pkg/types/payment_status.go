package types

import "strings"

// PaymentStatus is the gateway-facing payment state. The gateway vocabulary
// drifts over time (it has shipped values like "mismatch" and "completed_"),
// so the type is an open string: unknown values are carried through verbatim
// instead of being rejected.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusNew       PaymentStatus = "new"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusMismatch  PaymentStatus = "mismatch"
	PaymentStatusExpired   PaymentStatus = "expired"
	PaymentStatusCancelled PaymentStatus = "cancelled"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// NormalizePaymentStatus lower-cases and trims a raw gateway status string.
// Callback payloads arrive upper-cased from some gateway versions.
func NormalizePaymentStatus(raw string) PaymentStatus {
	return PaymentStatus(strings.ToLower(strings.TrimSpace(raw)))
}

// IsInitial reports whether the status is one of the two creation-time states.
func (s PaymentStatus) IsInitial() bool {
	return s == PaymentStatusPending || s == PaymentStatusNew
}

// IsTerminal reports whether the status may no longer move back to an initial
// state. Every non-initial state is terminal for this core.
func (s PaymentStatus) IsTerminal() bool {
	return s != "" && !s.IsInitial()
}

// IsSuccess reports whether the status counts as a confirmed payment. The
// gateway has emitted suffixed variants of "completed", so a prefix match is
// used rather than strict equality.
func (s PaymentStatus) IsSuccess() bool {
	return strings.HasPrefix(string(s), string(PaymentStatusCompleted))
}

// Known reports whether the status belongs to the documented vocabulary.
// Unknown values still flow through the system untouched.
func (s PaymentStatus) Known() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusNew, PaymentStatusCompleted,
		PaymentStatusMismatch, PaymentStatusExpired, PaymentStatusCancelled,
		PaymentStatusFailed:
		return true
	}
	return false
}
