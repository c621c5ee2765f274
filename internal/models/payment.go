package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMode string

const (
	ModeCash          PaymentMode = "cash"
	ModeBankTransfer  PaymentMode = "bank_transfer"
	ModeCheck         PaymentMode = "check"
	ModeCreditCard    PaymentMode = "credit_card"
	ModeDebitCard     PaymentMode = "debit_card"
	ModeMobilePayment PaymentMode = "mobile_payment"
	ModeOther         PaymentMode = "other"
)

// ValidPaymentMode reports whether m is a known payment mode.
func ValidPaymentMode(m PaymentMode) bool {
	switch m {
	case ModeCash, ModeBankTransfer, ModeCheck, ModeCreditCard,
		ModeDebitCard, ModeMobilePayment, ModeOther:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPartial   PaymentStatus = "partial"
	PaymentCompleted PaymentStatus = "completed"
	PaymentCancelled PaymentStatus = "cancelled"
)

// ValidPaymentStatus reports whether s is a known payment status.
func ValidPaymentStatus(s PaymentStatus) bool {
	switch s {
	case PaymentPending, PaymentPartial, PaymentCompleted, PaymentCancelled:
		return true
	}
	return false
}

// Payment is a single payment row against an invoice. Cancelled payments
// are excluded from all balance computations. The reference number, when
// present, is unique per invoice; the composite index is the authoritative
// duplicate guard under concurrent submissions.
type Payment struct {
	ID          uint   `gorm:"primaryKey"`
	InvoiceID   uint   `gorm:"not null;index;uniqueIndex:idx_payment_invoice_ref,priority:1"`
	ClientName  string `gorm:"size:150"`
	PaymentDesc string
	PaymentDate time.Time       `gorm:"not null"`
	PaymentMode PaymentMode     `gorm:"size:20;not null"`
	RefNo       *string         `gorm:"size:100;uniqueIndex:idx_payment_invoice_ref,priority:2"`
	AmountPaid  decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	Status      PaymentStatus   `gorm:"size:20;not null;default:'completed'"`
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Invoice Invoice `gorm:"foreignKey:InvoiceID"`
}
