package models

import "github.com/shopspring/decimal"

// Item is a single invoice line. Amount is always qty x rate rounded
// half-up to 2 decimals; it is recomputed whenever qty or rate changes.
type Item struct {
	ID        uint            `gorm:"primaryKey"`
	InvoiceID uint            `gorm:"not null;index"`
	ItemDesc  string          `gorm:"size:150;not null"`
	Qty       decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	Rate      decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	Amount    decimal.Decimal `gorm:"type:decimal(15,2);not null"`
}
