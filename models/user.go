package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is a registered trader and their remaining cash.
type User struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Username  string          `gorm:"uniqueIndex;not null" json:"username"`
	Hash      string          `gorm:"not null" json:"-"`
	Cash      decimal.Decimal `gorm:"type:numeric(16,2);not null" json:"cash"`
	CreatedAt time.Time       `json:"created_at"`
}
