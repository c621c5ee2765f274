package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecurrentBill is a template for periodically generated invoices.
// Invoices materialized from it keep a back reference.
type RecurrentBill struct {
	ID             uint            `gorm:"primaryKey"`
	ClientID       uint            `gorm:"not null;index"`
	ProductName    string          `gorm:"size:150;not null"`
	AmountExpected decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	DateDue        time.Time       `gorm:"not null"`
	PaymentStatus  int             `gorm:"default:0"`
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Client   Client    `gorm:"foreignKey:ClientID"`
	Invoices []Invoice `gorm:"foreignKey:RecurrentBillID"`
}
