package services

import (
	"testing"

	"github.com/shopspring/decimal"

	"invoiceflow/internal/models"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal literal %q: %v", s, err)
	}
	return d
}

func itemsFromAmounts(t *testing.T, amounts ...string) []models.Item {
	t.Helper()
	items := make([]models.Item, 0, len(amounts))
	for _, a := range amounts {
		items = append(items, models.Item{ItemDesc: "line", Amount: dec(t, a)})
	}
	return items
}

func TestItemAmountRoundsHalfUp(t *testing.T) {
	cases := []struct {
		qty, rate, want string
	}{
		{"3", "10.005", "30.02"},   // 30.015 rounds up, not to even
		{"1", "0.125", "0.13"},     // boundary: half-even would give 0.12
		{"1", "0.135", "0.14"},
		{"2", "10.00", "20.00"},
		{"1.5", "10.01", "15.02"},  // 15.015 -> 15.02
		{"0", "99.99", "0.00"},
	}
	for _, c := range cases {
		got := ItemAmount(dec(t, c.qty), dec(t, c.rate))
		if got.StringFixed(2) != c.want {
			t.Errorf("ItemAmount(%s, %s) = %s, want %s", c.qty, c.rate, got, c.want)
		}
	}
}

func TestSubtotalAdditivity(t *testing.T) {
	calc := NewTotalsCalculator(DefaultVATRate)
	items := itemsFromAmounts(t, "10.00", "20.50", "0.01", "999.99")
	totals := calc.Calculate(items, "", "", models.ClientTypeCorporate)
	if totals.Subtotal.StringFixed(2) != "1030.50" {
		t.Fatalf("subtotal = %s, want 1030.50", totals.Subtotal)
	}

	// Order of insertion must not matter.
	reversed := itemsFromAmounts(t, "999.99", "0.01", "20.50", "10.00")
	if got := calc.Calculate(reversed, "", "", models.ClientTypeCorporate); !got.Subtotal.Equal(totals.Subtotal) {
		t.Fatalf("order-dependent subtotal: %s vs %s", got.Subtotal, totals.Subtotal)
	}
}

func TestEmptyItemsAllZero(t *testing.T) {
	calc := NewTotalsCalculator(DefaultVATRate)
	totals := calc.Calculate(nil, "fixed", "50", models.ClientTypeCorporate)
	for name, v := range map[string]decimal.Decimal{
		"subtotal": totals.Subtotal, "discount": totals.Discount,
		"total": totals.Total, "vat": totals.VAT, "vat_total": totals.VATTotal,
	} {
		if !v.IsZero() {
			t.Errorf("%s = %s, want 0", name, v)
		}
	}
}

func TestFixedDiscountClampedToSubtotal(t *testing.T) {
	sub := dec(t, "100.00")
	if got := CalculateDiscount("fixed", "250", sub); !got.Equal(sub) {
		t.Fatalf("fixed discount above subtotal should clamp to subtotal, got %s", got)
	}
	if got := CalculateDiscount("fixed", "-10", sub); !got.IsZero() {
		t.Fatalf("negative fixed discount should be zero, got %s", got)
	}
	if got := CalculateDiscount("fixed", "0", sub); !got.IsZero() {
		t.Fatalf("zero fixed discount should be zero, got %s", got)
	}
	if got := CalculateDiscount("fixed", "40", sub); got.StringFixed(2) != "40.00" {
		t.Fatalf("fixed discount = %s, want 40.00", got)
	}
}

func TestPercentDiscountBounds(t *testing.T) {
	sub := dec(t, "200.00")
	if got := CalculateDiscount("percent", "25", sub); got.StringFixed(2) != "50.00" {
		t.Fatalf("percent discount = %s, want 50.00", got)
	}
	if got := CalculateDiscount("percentage", "100", sub); !got.Equal(sub) {
		t.Fatalf("100%% discount should equal subtotal, got %s", got)
	}
	if got := CalculateDiscount("percent", "101", sub); !got.IsZero() {
		t.Fatalf("out-of-range percent should be zero, got %s", got)
	}
	if got := CalculateDiscount("percent", "-1", sub); !got.IsZero() {
		t.Fatalf("negative percent should be zero, got %s", got)
	}
}

func TestUnparsableOrUnknownDiscountIsZero(t *testing.T) {
	sub := dec(t, "100.00")
	for _, c := range []struct{ typ, val string }{
		{"fixed", "abc"},
		{"percent", "12,5"},
		{"bogus", "10"},
		{"", "10"},
		{"fixed", ""},
	} {
		if got := CalculateDiscount(c.typ, c.val, sub); !got.IsZero() {
			t.Errorf("discount(%q, %q) = %s, want 0", c.typ, c.val, got)
		}
	}
}

func TestStudentTaxExemption(t *testing.T) {
	calc := NewTotalsCalculator(DefaultVATRate)
	cases := []struct {
		amounts            []string
		discType, discVal  string
	}{
		{[]string{"100.00"}, "", ""},
		{[]string{"100.00", "250.75"}, "fixed", "50"},
		{[]string{"33.33"}, "percent", "10"},
	}
	for _, c := range cases {
		totals := calc.Calculate(itemsFromAmounts(t, c.amounts...), c.discType, c.discVal, models.ClientTypeStudent)
		if !totals.VAT.IsZero() {
			t.Errorf("student VAT = %s, want 0", totals.VAT)
		}
		if !totals.VATTotal.Equal(totals.Total) {
			t.Errorf("student vat_total %s != total %s", totals.VATTotal, totals.Total)
		}
	}
}

func TestCorporateVATApplied(t *testing.T) {
	calc := NewTotalsCalculator(DefaultVATRate)
	totals := calc.Calculate(itemsFromAmounts(t, "1000.00"), "", "", models.ClientTypeCorporate)
	if totals.VAT.StringFixed(2) != "75.00" {
		t.Fatalf("vat = %s, want 75.00", totals.VAT)
	}
	if totals.VATTotal.StringFixed(2) != "1075.00" {
		t.Fatalf("vat_total = %s, want 1075.00", totals.VATTotal)
	}
}

func TestTotalsRoundingHalfUpOnOutputs(t *testing.T) {
	// 7.5% of 1.70 = 0.1275 -> 0.13 under half-up (0.12 under half-even).
	calc := NewTotalsCalculator(DefaultVATRate)
	totals := calc.Calculate(itemsFromAmounts(t, "1.70"), "", "", models.ClientTypeIndividual)
	if totals.VAT.StringFixed(2) != "0.13" {
		t.Fatalf("vat = %s, want 0.13 (round half-up)", totals.VAT)
	}
}

func TestTotalNeverNegativeFromDiscount(t *testing.T) {
	calc := NewTotalsCalculator(DefaultVATRate)
	totals := calc.Calculate(itemsFromAmounts(t, "10.00"), "fixed", "10000", models.ClientTypeIndividual)
	if totals.Total.Sign() < 0 {
		t.Fatalf("total went negative from discount: %s", totals.Total)
	}
	if !totals.Total.IsZero() {
		t.Fatalf("total = %s, want 0.00", totals.Total)
	}
}
