package models

import "time"

// ClientToken is the single-row bearer token for the partner API, refreshed
// by the daily login job. Only one row ever exists.
type ClientToken struct {
	ID        uint      `gorm:"column:id;primary_key" json:"id"`
	Token     string    `gorm:"column:token;type:varchar(2048);not null" json:"token"`
	ExpiresAt *time.Time `gorm:"column:expires_at;default:null" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (ClientToken) TableName() string {
	return "client_token"
}
