package payment

import "errors"

// The error taxonomy of the payment core. Every public operation returns one
// of these wrapped with context; callers branch with errors.Is. The split
// between ErrGateway and ErrStore matters operationally: ErrStore after a
// successful invoice means money may be moving with no local record, which
// is a manual-reconciliation case.
var (
	// ErrValidation: required input missing or malformed. Never retried.
	ErrValidation = errors.New("validation failed")
	// ErrGateway: the payment gateway rejected or failed an invoice call.
	ErrGateway = errors.New("payment gateway error")
	// ErrNotFound: no payment record for the given identifier.
	ErrNotFound = errors.New("payment not found")
	// ErrStore: persistence failed. When returned from CreatePayment the
	// gateway invoice already exists.
	ErrStore = errors.New("payment store error")
	// ErrInvalidCallback: push payload missing its correlation id or
	// failing HMAC verification.
	ErrInvalidCallback = errors.New("invalid payment callback")
	// ErrFulfillment: partner order placement failed after a confirmed
	// payment. The payment status is preserved; retry is an operator call.
	ErrFulfillment = errors.New("fulfillment failed")
)
