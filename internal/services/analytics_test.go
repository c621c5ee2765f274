package services

import (
	"testing"

	"invoiceflow/internal/apperr"
	"invoiceflow/internal/models"
)

// The seeded invoices use the student client type, so totals stay
// VAT-free and the expected numbers remain readable.
func TestDashboardFinancialMetrics(t *testing.T) {
	db := setupTestDB(t)
	client := seedClient(t, db, "analytics@test")
	invSvc := newInvoiceService(t, db)
	paySvc := NewPaymentService(db, invSvc)
	svc := NewAnalyticsService(db, invSvc.Calculator())

	paid := seedSentInvoice(t, invSvc, client.ID, "1000.00")
	if _, err := paySvc.Create(PaymentCreateInput{
		InvoiceID: paid.ID, PaymentMode: models.ModeBankTransfer, AmountPaid: dec(t, "1000.00"),
	}); err != nil {
		t.Fatalf("pay in full: %v", err)
	}

	partial := seedSentInvoice(t, invSvc, client.ID, "1000.00")
	if _, err := paySvc.Create(PaymentCreateInput{
		InvoiceID: partial.ID, PaymentMode: models.ModeCash, AmountPaid: dec(t, "400.00"),
	}); err != nil {
		t.Fatalf("partial payment: %v", err)
	}

	overdue := seedSentInvoice(t, invSvc, client.ID, "500.00")
	if _, err := invSvc.ChangeStatus(overdue.ID, models.StatusOverdue); err != nil {
		t.Fatalf("mark overdue: %v", err)
	}

	revenue, err := svc.TotalRevenue()
	if err != nil {
		t.Fatalf("revenue: %v", err)
	}
	if revenue.StringFixed(2) != "1000.00" {
		t.Fatalf("revenue = %s, want 1000.00", revenue)
	}

	outstanding, err := svc.OutstandingAmount()
	if err != nil {
		t.Fatalf("outstanding: %v", err)
	}
	// 600 remaining on the partial + 500 on the overdue.
	if outstanding.StringFixed(2) != "1100.00" {
		t.Fatalf("outstanding = %s, want 1100.00", outstanding)
	}

	overdueAmt, err := svc.OverdueAmount()
	if err != nil {
		t.Fatalf("overdue: %v", err)
	}
	if overdueAmt.StringFixed(2) != "500.00" {
		t.Fatalf("overdue = %s, want 500.00", overdueAmt)
	}
}

func TestDashboardExcludesCancelledPayments(t *testing.T) {
	db := setupTestDB(t)
	client := seedClient(t, db, "analyticscancel@test")
	invSvc := newInvoiceService(t, db)
	paySvc := NewPaymentService(db, invSvc)
	svc := NewAnalyticsService(db, invSvc.Calculator())

	inv := seedSentInvoice(t, invSvc, client.ID, "300.00")
	payment, err := paySvc.Create(PaymentCreateInput{
		InvoiceID: inv.ID, PaymentMode: models.ModeCash, AmountPaid: dec(t, "300.00"),
	})
	if err != nil {
		t.Fatalf("payment: %v", err)
	}
	cancelled := models.PaymentCancelled
	if _, err := paySvc.Update(payment.ID, PaymentUpdateInput{Status: &cancelled}); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	// Back to sent, full balance outstanding, no revenue, zero counted
	// payments.
	outstanding, err := svc.OutstandingAmount()
	if err != nil {
		t.Fatalf("outstanding: %v", err)
	}
	if outstanding.StringFixed(2) != "300.00" {
		t.Fatalf("outstanding = %s, want 300.00", outstanding)
	}
	stats, err := svc.Dashboard()
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if !stats.TotalRevenue.IsZero() {
		t.Fatalf("revenue = %s, want 0", stats.TotalRevenue)
	}
	if stats.TotalPayments != 0 {
		t.Fatalf("payments = %d, want 0 (cancelled excluded)", stats.TotalPayments)
	}
	if len(stats.RecentPayments) != 0 {
		t.Fatalf("recent payments = %d, want 0", len(stats.RecentPayments))
	}
}

func TestDashboardBreakdownAndCounts(t *testing.T) {
	db := setupTestDB(t)
	client := seedClient(t, db, "analyticsstats@test")
	invSvc := newInvoiceService(t, db)
	paySvc := NewPaymentService(db, invSvc)
	svc := NewAnalyticsService(db, invSvc.Calculator())

	first := seedSentInvoice(t, invSvc, client.ID, "100.00")
	if _, err := paySvc.Create(PaymentCreateInput{
		InvoiceID: first.ID, PaymentMode: models.ModeCash, AmountPaid: dec(t, "100.00"),
	}); err != nil {
		t.Fatalf("pay: %v", err)
	}
	seedSentInvoice(t, invSvc, client.ID, "200.00")

	stats, err := svc.Dashboard()
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if stats.TotalInvoices != 2 || stats.TotalClients != 1 || stats.TotalPayments != 1 {
		t.Fatalf("counts = %d/%d/%d, want 2/1/1",
			stats.TotalInvoices, stats.TotalClients, stats.TotalPayments)
	}

	buckets := map[models.InvoiceStatus]StatusBucket{}
	for _, b := range stats.InvoiceStatusBreakdown {
		buckets[b.Status] = b
	}
	if b := buckets[models.StatusPaid]; b.Count != 1 || b.TotalAmount.StringFixed(2) != "100.00" {
		t.Fatalf("paid bucket = %+v", b)
	}
	if b := buckets[models.StatusSent]; b.Count != 1 || b.TotalAmount.StringFixed(2) != "200.00" {
		t.Fatalf("sent bucket = %+v", b)
	}

	if len(stats.MonthlyRevenue) != 1 {
		t.Fatalf("monthly revenue rows = %d, want 1", len(stats.MonthlyRevenue))
	}
	if stats.MonthlyRevenue[0].Revenue.StringFixed(2) != "100.00" || stats.MonthlyRevenue[0].InvoiceCount != 1 {
		t.Fatalf("monthly revenue = %+v", stats.MonthlyRevenue[0])
	}

	if len(stats.RecentInvoices) != 2 {
		t.Fatalf("recent invoices = %d, want 2", len(stats.RecentInvoices))
	}
	if stats.RecentInvoices[0].ClientName != "Acme Ltd" {
		t.Fatalf("recent invoice client = %s", stats.RecentInvoices[0].ClientName)
	}
}

func TestTopClientsRankedByRevenue(t *testing.T) {
	db := setupTestDB(t)
	invSvc := newInvoiceService(t, db)
	paySvc := NewPaymentService(db, invSvc)
	svc := NewAnalyticsService(db, invSvc.Calculator())

	big := seedClient(t, db, "big@test")
	small := seedClient(t, db, "small@test")
	for _, c := range []struct {
		id     uint
		amount string
	}{{big.ID, "900.00"}, {small.ID, "100.00"}} {
		inv := seedSentInvoice(t, invSvc, c.id, c.amount)
		if _, err := paySvc.Create(PaymentCreateInput{
			InvoiceID: inv.ID, PaymentMode: models.ModeCash, AmountPaid: dec(t, c.amount),
		}); err != nil {
			t.Fatalf("pay %s: %v", c.amount, err)
		}
	}

	top, err := svc.TopClients(10)
	if err != nil {
		t.Fatalf("top clients: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("top clients = %d, want 2", len(top))
	}
	if top[0].ClientID != big.ID || top[0].TotalRevenue.StringFixed(2) != "900.00" {
		t.Fatalf("top[0] = %+v", top[0])
	}
	if top[1].ClientID != small.ID {
		t.Fatalf("top[1] = %+v", top[1])
	}

	limited, err := svc.TopClients(1)
	if err != nil {
		t.Fatalf("limited: %v", err)
	}
	if len(limited) != 1 || limited[0].ClientID != big.ID {
		t.Fatalf("limited = %+v", limited)
	}

	if _, err := svc.TopClients(0); apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("limit 0 should be validation error, got %v", err)
	}
}
