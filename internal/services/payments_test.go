package services

import (
	"testing"

	"invoiceflow/internal/models"
)

func payment(t *testing.T, amount string, status models.PaymentStatus) models.Payment {
	t.Helper()
	return models.Payment{AmountPaid: dec(t, amount), Status: status}
}

func TestRemainingBalanceExcludesCancelled(t *testing.T) {
	total := dec(t, "1000.00")
	payments := []models.Payment{
		payment(t, "400.00", models.PaymentCompleted),
		payment(t, "999.00", models.PaymentCancelled),
		payment(t, "100.00", models.PaymentPending),
	}
	remaining := RemainingBalance(total, payments)
	if remaining.StringFixed(2) != "500.00" {
		t.Fatalf("remaining = %s, want 500.00", remaining)
	}
}

func TestPaymentStateLifecycle(t *testing.T) {
	total := dec(t, "1000.00")

	// No payments: unpaid.
	remaining := RemainingBalance(total, nil)
	if got := PaymentStateFor(remaining, total); got != StateUnpaid {
		t.Fatalf("state = %s, want unpaid", got)
	}

	// One completed payment covering the total: fully paid.
	payments := []models.Payment{payment(t, "1000.00", models.PaymentCompleted)}
	remaining = RemainingBalance(total, payments)
	if !remaining.IsZero() {
		t.Fatalf("remaining = %s, want 0.00", remaining)
	}
	if got := PaymentStateFor(remaining, total); got != StateFullyPaid {
		t.Fatalf("state = %s, want fully_paid", got)
	}

	// A second payment of 50: overpaid, remaining -50.
	payments = append(payments, payment(t, "50.00", models.PaymentCompleted))
	remaining = RemainingBalance(total, payments)
	if remaining.StringFixed(2) != "-50.00" {
		t.Fatalf("remaining = %s, want -50.00", remaining)
	}
	if got := PaymentStateFor(remaining, total); got != StateOverpaid {
		t.Fatalf("state = %s, want overpaid", got)
	}

	// Cancel the second payment: back to fully paid.
	payments[1].Status = models.PaymentCancelled
	remaining = RemainingBalance(total, payments)
	if got := PaymentStateFor(remaining, total); got != StateFullyPaid {
		t.Fatalf("state after cancel = %s, want fully_paid", got)
	}
}

func TestPartiallyPaidState(t *testing.T) {
	total := dec(t, "300.00")
	payments := []models.Payment{payment(t, "120.00", models.PaymentCompleted)}
	remaining := RemainingBalance(total, payments)
	if got := PaymentStateFor(remaining, total); got != StatePartiallyPaid {
		t.Fatalf("state = %s, want partially_paid", got)
	}
}

func TestDerivedStatusMapping(t *testing.T) {
	if s, ok := DerivedStatus(StateFullyPaid); !ok || s != models.StatusPaid {
		t.Fatalf("fully_paid should derive paid, got %s/%v", s, ok)
	}
	if s, ok := DerivedStatus(StateOverpaid); !ok || s != models.StatusPaid {
		t.Fatalf("overpaid should derive paid, got %s/%v", s, ok)
	}
	if s, ok := DerivedStatus(StatePartiallyPaid); !ok || s != models.StatusPartiallyPaid {
		t.Fatalf("partially_paid should derive partially_paid, got %s/%v", s, ok)
	}
	if _, ok := DerivedStatus(StateUnpaid); ok {
		t.Fatalf("unpaid should derive no status change")
	}
}
