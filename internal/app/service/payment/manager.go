package payment

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/cardwave/giftpay/internal/models"
	"github.com/cardwave/giftpay/internal/platform/plisio"
	"github.com/cardwave/giftpay/pkg/types"
)

// CreatePaymentRequest carries the caller-controlled inputs of a new payment.
type CreatePaymentRequest struct {
	UserID string `json:"user_id"`
	// Amount in the settlement currency.
	Amount decimal.Decimal `json:"amount"`
	// LocalAmount is the fiat (INR) total for partner reconciliation; when
	// zero it is derived via the currency converter.
	LocalAmount decimal.Decimal `json:"local_amount"`
	// Currency defaults to USDT.
	Currency string `json:"currency"`
	Email    string `json:"email"`
	// BrandID / ProductID identify the partner catalog entry being bought.
	BrandID   string `json:"brand_id"`
	ProductID string `json:"product_id"`
	// Metadata is a free-form provenance bag merged into the record.
	Metadata map[string]any `json:"metadata"`
}

// PaymentSummary is what CreatePayment hands back to the bot/HTTP layer:
// just enough to send the user to checkout and poll later.
type PaymentSummary struct {
	OrderID    string              `json:"order_id"`
	InvoiceID  string              `json:"invoice_id"`
	InvoiceURL string              `json:"invoice_url"`
	Amount     string              `json:"amount"`
	Currency   string              `json:"currency"`
	Status     types.PaymentStatus `json:"status"`
}

// ScanPaymentsRequest is the admin listing request.
type ScanPaymentsRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type ScanPaymentsResponse struct {
	Items []*models.Payment `json:"items"`
	Total int64             `json:"total"`
}

// Gateway is the slice of the gateway client the lifecycle needs; satisfied
// by *plisio.Client and faked in tests.
type Gateway interface {
	CreateInvoice(ctx context.Context, req *plisio.CreateInvoiceRequest) (*plisio.Invoice, error)
	QueryStatus(ctx context.Context, txnID string) (*plisio.StatusInfo, error)
	VerifyCallback(payload map[string]any) bool
}

// CallbackRecorder persists inbound callback payloads for reconciliation.
// Satisfied by the callback log service; recording is fire-and-forget.
type CallbackRecorder interface {
	Save(ctx context.Context, entry *models.CallbackLog)
}

// Fulfiller places the partner order for a confirmed payment and returns the
// minted vouchers. Implemented by the fulfillment service. It must not write
// the payment row; voucher persistence stays with the lifecycle so the
// set-once guard has a single writer.
type Fulfiller interface {
	Fulfill(ctx context.Context, p *models.Payment) ([]types.VoucherDetail, error)
}

// Manager drives the payment lifecycle: creation, status reconciliation and
// callback handling.
type Manager interface {
	// Create a gateway invoice and persist the initial record.
	CreatePayment(ctx context.Context, req *CreatePaymentRequest) (*PaymentSummary, error)
	// Reconcile one payment against the gateway (poll path).
	GetPaymentStatus(ctx context.Context, orderID string) (*models.Payment, error)
	// Apply a gateway push payload (webhook path).
	HandlePaymentCallback(ctx context.Context, payload map[string]any) (*models.Payment, error)
	// Scan payments (admin list pages).
	ScanPayments(ctx context.Context, req *ScanPaymentsRequest) (*ScanPaymentsResponse, error)
}
