package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one ledger row. Shares is positive for a buy and negative
// for a sell.
type Transaction struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	UserID    uint            `gorm:"index:idx_history_user_symbol;not null" json:"user_id"`
	User      *User           `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
	Symbol    string          `gorm:"index:idx_history_user_symbol;not null" json:"symbol"`
	Shares    int64           `gorm:"not null" json:"shares"`
	Price     decimal.Decimal `gorm:"type:numeric(16,4);not null" json:"price"`
	CreatedAt time.Time       `gorm:"index" json:"transacted"`
}

func (Transaction) TableName() string {
	return "history"
}

// Position is the aggregated share count of one symbol.
type Position struct {
	Symbol string
	Shares int64
}

// Holding is a priced position as shown on the portfolio.
type Holding struct {
	Symbol string          `json:"symbol"`
	Name   string          `json:"name"`
	Shares int64           `json:"shares"`
	Price  decimal.Decimal `json:"price"`
	Total  decimal.Decimal `json:"total"`
}
