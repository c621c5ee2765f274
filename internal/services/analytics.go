package services

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"invoiceflow/internal/apperr"
	"invoiceflow/internal/models"
)

// AnalyticsService answers read-only dashboard queries over the
// invoice/payment tables. Totals are always recomputed from items so
// the numbers agree with the calculator, never with a stale column.
type AnalyticsService struct {
	db   *gorm.DB
	calc TotalsCalculator
}

func NewAnalyticsService(db *gorm.DB, calc TotalsCalculator) *AnalyticsService {
	return &AnalyticsService{db: db, calc: calc}
}

// StatusBucket is one row of the per-status breakdown.
type StatusBucket struct {
	Status      models.InvoiceStatus `json:"status"`
	Count       int                  `json:"count"`
	TotalAmount decimal.Decimal      `json:"total_amount"`
}

// MonthRevenue is revenue booked in one calendar month (paid invoices,
// keyed by issue date).
type MonthRevenue struct {
	Month        string          `json:"month"`
	Revenue      decimal.Decimal `json:"revenue"`
	InvoiceCount int             `json:"invoice_count"`
}

// ClientRevenue ranks a client by the revenue of their paid invoices.
type ClientRevenue struct {
	ClientID        uint            `json:"client_id"`
	ClientName      string          `json:"client_name"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	InvoiceCount    int             `json:"invoice_count"`
	LastInvoiceDate time.Time       `json:"last_invoice_date"`
}

// InvoiceSummary is the compact recent-activity row for an invoice.
type InvoiceSummary struct {
	ID          uint                 `json:"id"`
	InvoiceNo   *string              `json:"invoice_no"`
	ClientName  string               `json:"client_name"`
	DateValue   time.Time            `json:"date_value"`
	Status      models.InvoiceStatus `json:"status"`
	TotalAmount decimal.Decimal      `json:"total_amount"`
}

// PaymentSummary is the compact recent-activity row for a payment.
type PaymentSummary struct {
	ID          uint            `json:"id"`
	ClientName  string          `json:"client_name"`
	AmountPaid  decimal.Decimal `json:"amount_paid"`
	PaymentDate time.Time       `json:"payment_date"`
	InvoiceNo   string          `json:"invoice_no"`
}

// DashboardStats bundles every dashboard metric into one response.
type DashboardStats struct {
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	OutstandingAmount decimal.Decimal `json:"outstanding_amount"`
	OverdueAmount     decimal.Decimal `json:"overdue_amount"`

	TotalInvoices int64 `json:"total_invoices"`
	TotalClients  int64 `json:"total_clients"`
	TotalPayments int64 `json:"total_payments"`

	InvoiceStatusBreakdown []StatusBucket   `json:"invoice_status_breakdown"`
	MonthlyRevenue         []MonthRevenue   `json:"monthly_revenue"`
	TopClients             []ClientRevenue  `json:"top_clients"`
	RecentInvoices         []InvoiceSummary `json:"recent_invoices"`
	RecentPayments         []PaymentSummary `json:"recent_payments"`
}

// outstandingStatuses are the statuses whose invoices still owe money.
var outstandingStatuses = []models.InvoiceStatus{
	models.StatusSent, models.StatusViewed,
	models.StatusPartiallyPaid, models.StatusOverdue,
}

// TotalRevenue sums the VAT-inclusive total of every paid invoice.
func (s *AnalyticsService) TotalRevenue() (decimal.Decimal, error) {
	invoices, err := s.invoicesByStatus(models.StatusPaid)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for i := range invoices {
		total = total.Add(s.calc.InvoiceTotals(&invoices[i]).VATTotal)
	}
	return total, nil
}

// OutstandingAmount sums the remaining balance of every invoice that
// has been issued but not fully paid.
func (s *AnalyticsService) OutstandingAmount() (decimal.Decimal, error) {
	return s.remainingFor(outstandingStatuses...)
}

// OverdueAmount sums the remaining balance of overdue invoices only.
func (s *AnalyticsService) OverdueAmount() (decimal.Decimal, error) {
	return s.remainingFor(models.StatusOverdue)
}

func (s *AnalyticsService) remainingFor(statuses ...models.InvoiceStatus) (decimal.Decimal, error) {
	invoices, err := s.invoicesByStatus(statuses...)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for i := range invoices {
		vatTotal := s.calc.InvoiceTotals(&invoices[i]).VATTotal
		total = total.Add(RemainingBalance(vatTotal, invoices[i].Payments))
	}
	return total, nil
}

// StatusBreakdown returns count and total amount per status, in the
// canonical status order, skipping statuses with no invoices.
func (s *AnalyticsService) StatusBreakdown() ([]StatusBucket, error) {
	var invoices []models.Invoice
	if err := s.db.Preload("Items").Find(&invoices).Error; err != nil {
		return nil, apperr.Transaction("load invoices", err)
	}
	byStatus := map[models.InvoiceStatus]*StatusBucket{}
	for i := range invoices {
		b, ok := byStatus[invoices[i].Status]
		if !ok {
			b = &StatusBucket{Status: invoices[i].Status, TotalAmount: decimal.Zero}
			byStatus[invoices[i].Status] = b
		}
		b.Count++
		b.TotalAmount = b.TotalAmount.Add(s.calc.InvoiceTotals(&invoices[i]).VATTotal)
	}
	out := make([]StatusBucket, 0, len(byStatus))
	for _, status := range models.AllStatuses {
		if b, ok := byStatus[status]; ok {
			out = append(out, *b)
		}
	}
	return out, nil
}

// MonthlyRevenue groups paid-invoice revenue by issue month over the
// trailing window, oldest month first.
func (s *AnalyticsService) MonthlyRevenue(months int) ([]MonthRevenue, error) {
	if months < 1 {
		return nil, apperr.Validation("months must be >= 1", map[string]string{"months": "out_of_range"})
	}
	start := time.Now().AddDate(0, -months, 0)
	var invoices []models.Invoice
	err := s.db.Preload("Items").
		Where("status = ? AND date_value >= ?", models.StatusPaid, start).
		Order("date_value asc").
		Find(&invoices).Error
	if err != nil {
		return nil, apperr.Transaction("load paid invoices", err)
	}

	byMonth := map[string]*MonthRevenue{}
	order := []string{}
	for i := range invoices {
		key := invoices[i].DateValue.Format("2006-01")
		m, ok := byMonth[key]
		if !ok {
			m = &MonthRevenue{Month: key, Revenue: decimal.Zero}
			byMonth[key] = m
			order = append(order, key)
		}
		m.Revenue = m.Revenue.Add(s.calc.InvoiceTotals(&invoices[i]).VATTotal)
		m.InvoiceCount++
	}
	out := make([]MonthRevenue, 0, len(order))
	for _, key := range order {
		out = append(out, *byMonth[key])
	}
	return out, nil
}

// TopClients ranks clients by paid revenue, highest first.
func (s *AnalyticsService) TopClients(limit int) ([]ClientRevenue, error) {
	if limit < 1 {
		return nil, apperr.Validation("limit must be >= 1", map[string]string{"limit": "out_of_range"})
	}
	invoices, err := s.invoicesByStatus(models.StatusPaid)
	if err != nil {
		return nil, err
	}
	byClient := map[uint]*ClientRevenue{}
	for i := range invoices {
		inv := &invoices[i]
		c, ok := byClient[inv.ClientID]
		if !ok {
			c = &ClientRevenue{
				ClientID:        inv.ClientID,
				ClientName:      inv.Client.Name,
				TotalRevenue:    decimal.Zero,
				LastInvoiceDate: inv.DateValue,
			}
			byClient[inv.ClientID] = c
		}
		c.TotalRevenue = c.TotalRevenue.Add(s.calc.InvoiceTotals(inv).VATTotal)
		c.InvoiceCount++
		if inv.DateValue.After(c.LastInvoiceDate) {
			c.LastInvoiceDate = inv.DateValue
		}
	}
	out := make([]ClientRevenue, 0, len(byClient))
	for _, c := range byClient {
		out = append(out, *c)
	}
	// Insertion-sort by revenue descending; the result set is small.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].TotalRevenue.GreaterThan(out[j-1].TotalRevenue); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// RecentInvoices returns the newest invoices as summary rows.
func (s *AnalyticsService) RecentInvoices(limit int) ([]InvoiceSummary, error) {
	var invoices []models.Invoice
	err := s.db.Preload("Client").Preload("Items").
		Order("date_value desc").Limit(limit).
		Find(&invoices).Error
	if err != nil {
		return nil, apperr.Transaction("load recent invoices", err)
	}
	out := make([]InvoiceSummary, 0, len(invoices))
	for i := range invoices {
		inv := &invoices[i]
		out = append(out, InvoiceSummary{
			ID:          inv.ID,
			InvoiceNo:   inv.InvoiceNo,
			ClientName:  inv.Client.Name,
			DateValue:   inv.DateValue,
			Status:      inv.Status,
			TotalAmount: s.calc.InvoiceTotals(inv).VATTotal,
		})
	}
	return out, nil
}

// RecentPayments returns the newest non-cancelled payments as summary
// rows.
func (s *AnalyticsService) RecentPayments(limit int) ([]PaymentSummary, error) {
	var payments []models.Payment
	err := s.db.Preload("Invoice").
		Where("status <> ?", models.PaymentCancelled).
		Order("payment_date desc").Limit(limit).
		Find(&payments).Error
	if err != nil {
		return nil, apperr.Transaction("load recent payments", err)
	}
	out := make([]PaymentSummary, 0, len(payments))
	for _, p := range payments {
		invoiceNo := "N/A"
		if p.Invoice.InvoiceNo != nil {
			invoiceNo = *p.Invoice.InvoiceNo
		}
		out = append(out, PaymentSummary{
			ID:          p.ID,
			ClientName:  p.ClientName,
			AmountPaid:  p.AmountPaid,
			PaymentDate: p.PaymentDate,
			InvoiceNo:   invoiceNo,
		})
	}
	return out, nil
}

// Dashboard runs every metric and assembles the full stats payload.
func (s *AnalyticsService) Dashboard() (*DashboardStats, error) {
	stats := &DashboardStats{}
	var err error

	if stats.TotalRevenue, err = s.TotalRevenue(); err != nil {
		return nil, err
	}
	if stats.OutstandingAmount, err = s.OutstandingAmount(); err != nil {
		return nil, err
	}
	if stats.OverdueAmount, err = s.OverdueAmount(); err != nil {
		return nil, err
	}

	if err := s.db.Model(&models.Invoice{}).Count(&stats.TotalInvoices).Error; err != nil {
		return nil, apperr.Transaction("count invoices", err)
	}
	if err := s.db.Model(&models.Client{}).Count(&stats.TotalClients).Error; err != nil {
		return nil, apperr.Transaction("count clients", err)
	}
	err = s.db.Model(&models.Payment{}).
		Where("status <> ?", models.PaymentCancelled).
		Count(&stats.TotalPayments).Error
	if err != nil {
		return nil, apperr.Transaction("count payments", err)
	}

	if stats.InvoiceStatusBreakdown, err = s.StatusBreakdown(); err != nil {
		return nil, err
	}
	if stats.MonthlyRevenue, err = s.MonthlyRevenue(12); err != nil {
		return nil, err
	}
	if stats.TopClients, err = s.TopClients(10); err != nil {
		return nil, err
	}
	if stats.RecentInvoices, err = s.RecentInvoices(5); err != nil {
		return nil, err
	}
	if stats.RecentPayments, err = s.RecentPayments(5); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *AnalyticsService) invoicesByStatus(statuses ...models.InvoiceStatus) ([]models.Invoice, error) {
	var invoices []models.Invoice
	err := s.db.Preload("Client").Preload("Items").Preload("Payments").
		Where("status IN ?", statuses).
		Find(&invoices).Error
	if err != nil {
		return nil, apperr.Transaction("load invoices by status", err)
	}
	return invoices, nil
}
