package models

import (
	"time"

	"gorm.io/datatypes"
)

// PartnerOrder mirrors one order placed against the partner gift-card API.
// The raw response is kept whole because voucher redemption disputes are
// resolved from what the partner actually returned.
type PartnerOrder struct {
	ID string `gorm:"column:id;primary_key;type:uuid" json:"id"`
	// PartnerOrderID is the id assigned by the partner system.
	PartnerOrderID string `gorm:"column:partner_order_id;type:varchar(128);not null;index" json:"partner_order_id"`
	// ReferenceID is our idempotency key, equal to the payment OrderID.
	ReferenceID string         `gorm:"column:reference_id;type:varchar(64);not null;uniqueIndex:unique_reference_id" json:"reference_id"`
	Status      string         `gorm:"column:status;type:varchar(32);not null" json:"status"`
	RawResponse datatypes.JSON `gorm:"column:raw_response;type:jsonb;not null" json:"raw_response"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

func (PartnerOrder) TableName() string {
	return "partner_order"
}
