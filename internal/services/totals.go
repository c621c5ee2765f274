package services

import (
	"github.com/shopspring/decimal"

	"invoiceflow/internal/models"
)

// DefaultVATRate is the standard VAT percentage applied to non-exempt
// client types.
var DefaultVATRate = decimal.NewFromFloat(7.5)

var hundred = decimal.NewFromInt(100)

// Totals carries all derived monetary values for one invoice,
// quantized to 2 decimals with round-half-up.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
	VAT      decimal.Decimal `json:"vat"`
	VATTotal decimal.Decimal `json:"vat_total"`
}

// ItemAmount computes a line amount: qty x rate rounded half-up to
// 2 decimals. Rounding happens at item level, before summation.
func ItemAmount(qty, rate decimal.Decimal) decimal.Decimal {
	return qty.Mul(rate).Round(2)
}

// CalculateDiscount derives the discount amount from the configured type
// and value. A fixed discount is clamped to [0, subtotal]; a percent
// discount applies only within 0..100. Unknown types and unparsable
// values yield zero — operator typos in a discount field must never
// fail an invoice computation.
func CalculateDiscount(discType, discValue string, subtotal decimal.Decimal) decimal.Decimal {
	if discValue == "" {
		return decimal.Zero
	}
	value, err := decimal.NewFromString(discValue)
	if err != nil {
		return decimal.Zero
	}
	switch discType {
	case "fixed":
		if value.Sign() <= 0 {
			return decimal.Zero
		}
		if value.GreaterThan(subtotal) {
			return subtotal
		}
		return value
	case "percent", "percentage":
		if value.Sign() < 0 || value.GreaterThan(hundred) {
			return decimal.Zero
		}
		return value.Div(hundred).Mul(subtotal)
	default:
		return decimal.Zero
	}
}

// CalculateVAT returns the VAT amount for the given taxable amount.
// Student-type clients are VAT-exempt. rate is a percentage (7.5 = 7.5%).
func CalculateVAT(amount decimal.Decimal, clientType int, rate decimal.Decimal) decimal.Decimal {
	if clientType == models.ClientTypeStudent {
		return decimal.Zero
	}
	return rate.Div(hundred).Mul(amount)
}

// TotalsCalculator computes invoice totals with a configurable VAT rate.
type TotalsCalculator struct {
	VATRate decimal.Decimal
}

func NewTotalsCalculator(vatRate decimal.Decimal) TotalsCalculator {
	if vatRate.Sign() <= 0 {
		vatRate = DefaultVATRate
	}
	return TotalsCalculator{VATRate: vatRate}
}

// InvoiceTotals derives subtotal, discount, total, VAT and grand total
// from the invoice's stored item amounts, discount configuration, and
// client-type tax rule. Pure function: no side effects on the invoice.
func (c TotalsCalculator) InvoiceTotals(inv *models.Invoice) Totals {
	if inv == nil {
		return zeroTotals()
	}
	return c.Calculate(inv.Items, inv.DiscType, inv.DiscValue, inv.ClientType)
}

// Calculate is the raw-value form of InvoiceTotals.
func (c TotalsCalculator) Calculate(items []models.Item, discType, discValue string, clientType int) Totals {
	if len(items) == 0 {
		return zeroTotals()
	}

	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.Amount)
	}

	discount := CalculateDiscount(discType, discValue, subtotal)
	total := subtotal.Sub(discount)
	vat := CalculateVAT(total, clientType, c.VATRate)
	vatTotal := total.Add(vat)

	return Totals{
		Subtotal: subtotal.Round(2),
		Discount: discount.Round(2),
		Total:    total.Round(2),
		VAT:      vat.Round(2),
		VATTotal: vatTotal.Round(2),
	}
}

func zeroTotals() Totals {
	z := decimal.Zero.Round(2)
	return Totals{Subtotal: z, Discount: z, Total: z, VAT: z, VATTotal: z}
}
