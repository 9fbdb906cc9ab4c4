package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/cardwave/giftpay/pkg/types"
)

// PaymentExtra is provenance carried on every payment row.
type PaymentExtra struct {
	// Source is the system that initiated the payment (bot, web, admin).
	Source string `json:"source,omitempty"`
	// BrandID / ProductID reference the partner catalog entry being bought.
	BrandID   string `json:"brand_id,omitempty"`
	ProductID string `json:"product_id,omitempty"`
	// Email the payer supplied at checkout, when any.
	Email string `json:"email,omitempty"`
}

// Payment is the central record of the payment lifecycle: one row per gateway
// invoice. Monetary amounts are stored as exact decimal text, never floats.
type Payment struct {
	ID string `gorm:"column:id;primary_key;type:uuid;index:idx_user_id_id,priority:2,sort:desc" json:"id"`
	// OrderID is the caller-facing correlation key, distinct from the
	// gateway transaction id. Unique and immutable once assigned.
	OrderID string `gorm:"column:order_id;type:varchar(64);not null;uniqueIndex:unique_order_id" json:"order_id"`
	UserID  string `gorm:"column:user_id;type:varchar(64);not null;index:idx_user_id_id,priority:1" json:"user_id"`
	// Amount in the settlement currency, as recorded at invoice creation.
	// Detected divergence is reported via status=mismatch, not by mutating
	// this field.
	Amount string `gorm:"column:amount;type:varchar(64);not null" json:"amount"`
	// LocalAmount is the user-facing fiat quantity (INR), reconciled against
	// partner order totals at fulfillment time.
	LocalAmount string              `gorm:"column:local_amount;type:varchar(64)" json:"local_amount"`
	Currency    string              `gorm:"column:currency;type:varchar(16);not null" json:"currency"`
	Status      types.PaymentStatus `gorm:"column:status;type:varchar(32);not null;index" json:"status"`
	// InvoiceID is assigned by the gateway after invoice creation and is the
	// secondary lookup key for callbacks that only carry a transaction id.
	InvoiceID  string `gorm:"column:invoice_id;type:varchar(128);index:idx_invoice_id" json:"invoice_id"`
	InvoiceURL string `gorm:"column:invoice_url;type:varchar(512)" json:"invoice_url"`
	// VoucherDetails stays NULL until fulfillment and is written at most once.
	VoucherDetails datatypes.JSON `gorm:"column:voucher_details;type:jsonb;default:null" json:"voucher_details"`
	// FulfillmentClaimedAt is the compare-and-swap column guarding the
	// fulfillment trigger: the row is claimed before the partner order is
	// placed, so concurrent polls cannot both fulfill.
	FulfillmentClaimedAt *time.Time                       `gorm:"column:fulfillment_claimed_at;default:null" json:"fulfillment_claimed_at"`
	Extra                datatypes.JSONType[*PaymentExtra] `gorm:"column:extra;type:jsonb;default:'{}'" json:"extra"`
	Metadata             datatypes.JSONMap                 `gorm:"column:metadata;type:jsonb;default:'{}'" json:"metadata"`
	CreatedAt            time.Time                         `json:"created_at"`
	UpdatedAt            time.Time                         `json:"updated_at"`
}

func (Payment) TableName() string {
	return "payment"
}

// Vouchers decodes the persisted voucher list. Nil until fulfillment.
func (p *Payment) Vouchers() []types.VoucherDetail {
	if p == nil || len(p.VoucherDetails) == 0 {
		return nil
	}
	var out []types.VoucherDetail
	if err := json.Unmarshal(p.VoucherDetails, &out); err != nil {
		return nil
	}
	return out
}

func (p *Payment) HasVouchers() bool {
	return len(p.Vouchers()) > 0
}

// AmountDecimal parses the stored settlement amount. Zero on malformed text.
func (p *Payment) AmountDecimal() decimal.Decimal {
	if p == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(p.Amount)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// LocalAmountDecimal parses the stored fiat amount. Zero on malformed text.
func (p *Payment) LocalAmountDecimal() decimal.Decimal {
	if p == nil || p.LocalAmount == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(p.LocalAmount)
	if err != nil {
		return decimal.Zero
	}
	return d
}
