package models

import (
	"time"

	"gorm.io/datatypes"
)

type CallbackLogStatus string

const (
	CallbackLogStatusReceived     CallbackLogStatus = "received"
	CallbackLogStatusHandled      CallbackLogStatus = "handled"
	CallbackLogStatusHandleFailed CallbackLogStatus = "handle_failed"
)

// CallbackLog records every inbound gateway callback and what became of it.
// Used for reconciliation when the gateway and our rows disagree.
type CallbackLog struct {
	ID      string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	OrderID string `gorm:"column:order_id;type:varchar(64);index" json:"order_id"`
	TraceID string `gorm:"column:trace_id;type:varchar(128)" json:"trace_id"`
	// RawStatus is the status string exactly as the gateway sent it, before
	// normalization.
	RawStatus string            `gorm:"column:raw_status;type:varchar(64)" json:"raw_status"`
	Payload   datatypes.JSON    `gorm:"column:payload;type:jsonb" json:"payload"`
	Result    *datatypes.JSON   `gorm:"column:result;type:jsonb" json:"result"`
	Status    CallbackLogStatus `gorm:"column:status;type:varchar(32);not null" json:"status"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func (CallbackLog) TableName() string {
	return "callback_log"
}
