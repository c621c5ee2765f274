package services

import (
	"github.com/shopspring/decimal"

	"invoiceflow/internal/models"
)

// PaymentState is the aggregate payment classification of an invoice,
// computed on demand from its non-cancelled payments. It is never
// persisted directly; the invoice's explicit status is updated from it
// as a side effect of payment mutations.
type PaymentState string

const (
	StateFullyPaid     PaymentState = "fully_paid"
	StateOverpaid      PaymentState = "overpaid"
	StatePartiallyPaid PaymentState = "partially_paid"
	StateUnpaid        PaymentState = "unpaid"
)

// RemainingBalance returns the invoice total minus all non-cancelled
// payment amounts. A negative result means overpayment.
func RemainingBalance(invoiceTotal decimal.Decimal, payments []models.Payment) decimal.Decimal {
	paid := decimal.Zero
	for _, p := range payments {
		if p.Status == models.PaymentCancelled {
			continue
		}
		paid = paid.Add(p.AmountPaid)
	}
	return invoiceTotal.Sub(paid)
}

// PaymentStateFor classifies a remaining balance against the invoice total.
func PaymentStateFor(remaining, invoiceTotal decimal.Decimal) PaymentState {
	switch {
	case remaining.IsZero():
		return StateFullyPaid
	case remaining.Sign() < 0:
		return StateOverpaid
	case remaining.LessThan(invoiceTotal):
		return StatePartiallyPaid
	default:
		return StateUnpaid
	}
}
