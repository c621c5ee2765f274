package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"invoiceflow/internal/apperr"
	"invoiceflow/internal/models"
	"invoiceflow/internal/tasks"
)

// Enqueuer abstracts the async task dispatcher. The orchestrator only
// ever fires and forgets.
type Enqueuer interface {
	Enqueue(name string, args map[string]any) string
}

// noopEnqueuer keeps service construction simple in tests.
type noopEnqueuer struct{}

func (noopEnqueuer) Enqueue(string, map[string]any) string { return "" }

// Pagination describes one page of a list result.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

func paginationFor(page, limit int, total int64) Pagination {
	pages := 0
	if total > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: pages}
}

func checkPageLimit(page, limit int) error {
	if page < 1 {
		return apperr.Validation("page must be >= 1", map[string]string{"page": "out_of_range"})
	}
	if limit < 1 || limit > 100 {
		return apperr.Validation("limit must be between 1 and 100", map[string]string{"limit": "out_of_range"})
	}
	return nil
}

// InvoiceService coordinates invoice creation, mutation, and the
// payment-driven status recomputation. All mutating operations run in a
// single transaction; downstream PDF/email work is enqueued after commit.
type InvoiceService struct {
	db   *gorm.DB
	calc TotalsCalculator
	jobs Enqueuer
	log  zerolog.Logger

	// PaymentTermsDays fills in the due date when none is supplied.
	PaymentTermsDays int
	// NumberPrefix is the invoice-number prefix (INV by default).
	NumberPrefix string
	// StrictPaymentTransitions re-validates payment-derived status
	// changes against the transition table. Off by default: the derived
	// path historically bypasses validation, which means a payment
	// recorded against a cancelled invoice silently marks it paid.
	StrictPaymentTransitions bool
}

func NewInvoiceService(db *gorm.DB, calc TotalsCalculator, jobs Enqueuer, log zerolog.Logger) *InvoiceService {
	if jobs == nil {
		jobs = noopEnqueuer{}
	}
	return &InvoiceService{
		db:               db,
		calc:             calc,
		jobs:             jobs,
		log:              log.With().Str("component", "invoices").Logger(),
		PaymentTermsDays: 30,
		NumberPrefix:     "INV",
	}
}

// Calculator exposes the totals calculator so read-side services share
// the configured VAT rate.
func (s *InvoiceService) Calculator() TotalsCalculator { return s.calc }

// ItemInput is one line item on invoice creation.
type ItemInput struct {
	ItemDesc string          `json:"item_desc"`
	Qty      decimal.Decimal `json:"qty"`
	Rate     decimal.Decimal `json:"rate"`
}

// InvoiceCreateInput carries everything needed to create an invoice.
type InvoiceCreateInput struct {
	ClientID          uint        `json:"client_id"`
	ClientType        int         `json:"client_type"`
	Currency          string      `json:"currency"`
	InvoiceDue        *time.Time  `json:"invoice_due"`
	DiscType          string      `json:"disc_type"`
	DiscValue         string      `json:"disc_value"`
	DiscDesc          string      `json:"disc_desc"`
	SendReminders     bool        `json:"send_reminders"`
	ReminderFrequency int         `json:"reminder_frequency"`
	RecurrentBillID   *uint       `json:"recurrent_bill_id"`
	Items             []ItemInput `json:"items"`
}

// Create inserts the invoice header, derives the invoice number from the
// generated ID, and inserts all items — atomically. Any item failure
// rolls back the whole attempt. PDF and email jobs fire after commit.
func (s *InvoiceService) Create(in InvoiceCreateInput) (*models.Invoice, error) {
	if len(in.Items) == 0 {
		return nil, apperr.Validation("invoice requires at least one item", map[string]string{"items": "required"})
	}
	for i, it := range in.Items {
		if it.ItemDesc == "" {
			return nil, apperr.Validation("item description required", map[string]string{fmt.Sprintf("items[%d].item_desc", i): "required"})
		}
		if it.Qty.Sign() <= 0 {
			return nil, apperr.Validation("item quantity must be positive", map[string]string{fmt.Sprintf("items[%d].qty", i): "must_be_positive"})
		}
		if it.Rate.Sign() < 0 {
			return nil, apperr.Validation("item rate cannot be negative", map[string]string{fmt.Sprintf("items[%d].rate", i): "must_not_be_negative"})
		}
	}

	var clientCount int64
	if err := s.db.Model(&models.Client{}).Where("id = ?", in.ClientID).Count(&clientCount).Error; err != nil {
		return nil, apperr.Transaction("check client", err)
	}
	if clientCount == 0 {
		return nil, apperr.NotFound("client", in.ClientID)
	}

	now := time.Now()
	due := now.AddDate(0, 0, s.PaymentTermsDays)
	if in.InvoiceDue != nil {
		due = *in.InvoiceDue
	}
	currency := in.Currency
	if currency == "" {
		currency = "NGN"
	}

	inv := models.Invoice{
		DateValue:         now,
		InvoiceDue:        due,
		ClientID:          in.ClientID,
		ClientType:        in.ClientType,
		Currency:          currency,
		Status:            models.StatusDraft,
		DiscType:          in.DiscType,
		DiscValue:         in.DiscValue,
		DiscDesc:          in.DiscDesc,
		SendReminders:     in.SendReminders,
		ReminderFrequency: in.ReminderFrequency,
		RecurrentBillID:   in.RecurrentBillID,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		// Two-phase: insert to obtain the generated ID, then derive the
		// human-readable number from it.
		if err := tx.Create(&inv).Error; err != nil {
			return apperr.Transaction("insert invoice", err)
		}
		number := s.invoiceNumber(inv.ID, inv.DateValue)
		purchase := inv.ID
		if err := tx.Model(&inv).Updates(map[string]any{
			"invoice_no":  number,
			"purchase_no": purchase,
		}).Error; err != nil {
			return apperr.Transaction("assign invoice number", err)
		}
		inv.InvoiceNo = &number
		inv.PurchaseNo = &purchase

		for _, it := range in.Items {
			item := models.Item{
				InvoiceID: inv.ID,
				ItemDesc:  it.ItemDesc,
				Qty:       it.Qty,
				Rate:      it.Rate,
				Amount:    ItemAmount(it.Qty, it.Rate),
			}
			if err := tx.Create(&item).Error; err != nil {
				return apperr.Transaction("insert item", err)
			}
			inv.Items = append(inv.Items, item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.jobs.Enqueue(tasks.JobInvoicePDF, map[string]any{"invoice_id": inv.ID})
	s.jobs.Enqueue(tasks.JobInvoiceEmail, map[string]any{"invoice_id": inv.ID})
	if inv.SendReminders && inv.ReminderFrequency > 0 {
		s.jobs.Enqueue(tasks.JobInvoiceReminder, map[string]any{
			"invoice_id": inv.ID,
			"frequency":  inv.ReminderFrequency,
		})
	}
	s.log.Info().Uint("invoice_id", inv.ID).Str("invoice_no", *inv.InvoiceNo).Msg("invoice created")
	return &inv, nil
}

func (s *InvoiceService) invoiceNumber(id uint, issued time.Time) string {
	return fmt.Sprintf("%s-%d-%06d", s.NumberPrefix, issued.Year(), id)
}

// Get loads an invoice with client, items, and payments, optionally
// recording the view, and returns it with its derived totals.
func (s *InvoiceService) Get(id uint, trackView bool) (*models.Invoice, Totals, error) {
	var inv models.Invoice
	err := s.db.Preload("Client").Preload("Items").Preload("Payments").First(&inv, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, Totals{}, apperr.NotFound("invoice", id)
		}
		return nil, Totals{}, apperr.Transaction("load invoice", err)
	}

	if trackView {
		now := time.Now()
		updates := map[string]any{
			"view_count": gorm.Expr("view_count + 1"),
			"last_view":  now,
		}
		if err := s.db.Model(&inv).Updates(updates).Error; err != nil {
			return nil, Totals{}, apperr.Transaction("track view", err)
		}
		inv.ViewCount++
		inv.LastView = &now
	}

	return &inv, s.calc.InvoiceTotals(&inv), nil
}

// List returns a page of invoices, optionally filtered by a search term
// matched against client name or email, newest first.
func (s *InvoiceService) List(page, limit int, search string) ([]models.Invoice, Pagination, error) {
	if err := checkPageLimit(page, limit); err != nil {
		return nil, Pagination{}, err
	}

	q := s.db.Model(&models.Invoice{}).
		Joins("JOIN clients ON clients.id = invoices.client_id")
	if search != "" {
		like := "%" + search + "%"
		q = q.Where("lower(clients.name) LIKE lower(?) OR lower(clients.email) LIKE lower(?)", like, like)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, Pagination{}, apperr.Transaction("count invoices", err)
	}

	var invoices []models.Invoice
	err := q.Preload("Client").Preload("Items").Preload("Payments").
		Order("invoices.id desc").
		Limit(limit).Offset((page - 1) * limit).
		Find(&invoices).Error
	if err != nil {
		return nil, Pagination{}, apperr.Transaction("list invoices", err)
	}
	return invoices, paginationFor(page, limit, total), nil
}

// InvoiceUpdateInput holds the mutable invoice fields; nil means leave
// untouched. A status change is routed through the transition validator.
type InvoiceUpdateInput struct {
	InvoiceDue        *time.Time            `json:"invoice_due"`
	Currency          *string               `json:"currency"`
	DiscType          *string               `json:"disc_type"`
	DiscValue         *string               `json:"disc_value"`
	DiscDesc          *string               `json:"disc_desc"`
	SendReminders     *bool                 `json:"send_reminders"`
	ReminderFrequency *int                  `json:"reminder_frequency"`
	Status            *models.InvoiceStatus `json:"status"`
}

// Update applies a partial update to an invoice.
func (s *InvoiceService) Update(id uint, in InvoiceUpdateInput) (*models.Invoice, error) {
	var inv models.Invoice
	if err := s.db.First(&inv, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("invoice", id)
		}
		return nil, apperr.Transaction("load invoice", err)
	}

	updates := map[string]any{}
	if in.InvoiceDue != nil {
		updates["invoice_due"] = *in.InvoiceDue
	}
	if in.Currency != nil {
		updates["currency"] = *in.Currency
	}
	if in.DiscType != nil {
		updates["disc_type"] = *in.DiscType
	}
	if in.DiscValue != nil {
		updates["disc_value"] = *in.DiscValue
	}
	if in.DiscDesc != nil {
		updates["disc_desc"] = *in.DiscDesc
	}
	if in.SendReminders != nil {
		updates["send_reminders"] = *in.SendReminders
	}
	if in.ReminderFrequency != nil {
		updates["reminder_frequency"] = *in.ReminderFrequency
	}
	if in.Status != nil {
		if !models.ValidStatus(*in.Status) {
			return nil, apperr.Validation("unknown status "+string(*in.Status), map[string]string{"status": "invalid"})
		}
		if err := ValidateTransition(inv.Status, *in.Status); err != nil {
			return nil, err
		}
		updates["status"] = *in.Status
	}
	if len(updates) == 0 {
		return &inv, nil
	}

	if err := s.db.Model(&inv).Updates(updates).Error; err != nil {
		return nil, apperr.Transaction("update invoice", err)
	}
	return &inv, nil
}

// ChangeStatus performs an explicit, validated status transition.
func (s *InvoiceService) ChangeStatus(id uint, to models.InvoiceStatus) (*models.Invoice, error) {
	if !models.ValidStatus(to) {
		return nil, apperr.Validation("unknown status "+string(to), map[string]string{"status": "invalid"})
	}
	var inv models.Invoice
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&inv, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("invoice", id)
			}
			return apperr.Transaction("load invoice", err)
		}
		if err := ValidateTransition(inv.Status, to); err != nil {
			return err
		}
		if inv.Status == to {
			return nil
		}
		if err := tx.Model(&inv).Update("status", to).Error; err != nil {
			return apperr.Transaction("update status", err)
		}
		inv.Status = to
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// Delete removes an invoice with its items and payments. Invoices that
// already carry payments are protected unless explicitly overridden.
func (s *InvoiceService) Delete(id uint, allowWithPayments bool) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var inv models.Invoice
		if err := tx.First(&inv, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("invoice", id)
			}
			return apperr.Transaction("load invoice", err)
		}
		var paymentCount int64
		if err := tx.Model(&models.Payment{}).Where("invoice_id = ?", id).Count(&paymentCount).Error; err != nil {
			return apperr.Transaction("count payments", err)
		}
		if paymentCount > 0 && !allowWithPayments {
			return apperr.Conflict("INVOICE_HAS_PAYMENTS",
				fmt.Sprintf("cannot delete invoice %d: it has %d payment(s)", id, paymentCount))
		}
		if err := tx.Where("invoice_id = ?", id).Delete(&models.Item{}).Error; err != nil {
			return apperr.Transaction("delete items", err)
		}
		if err := tx.Where("invoice_id = ?", id).Delete(&models.Payment{}).Error; err != nil {
			return apperr.Transaction("delete payments", err)
		}
		if err := tx.Delete(&inv).Error; err != nil {
			return apperr.Transaction("delete invoice", err)
		}
		return nil
	})
}

// RecordView increments the view counter and timestamp only.
func (s *InvoiceService) RecordView(id uint) error {
	res := s.db.Model(&models.Invoice{}).Where("id = ?", id).Updates(map[string]any{
		"view_count": gorm.Expr("view_count + 1"),
		"last_view":  time.Now(),
	})
	if res.Error != nil {
		return apperr.Transaction("record view", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("invoice", id)
	}
	return nil
}

// recomputeStatus derives the aggregate payment state inside tx and
// writes the implied invoice status. This is the derived path: by
// default it skips the transition table; in strict mode an illegal
// derived transition leaves the status untouched (the payment row
// itself always survives).
func (s *InvoiceService) recomputeStatus(tx *gorm.DB, invoiceID uint) error {
	var inv models.Invoice
	if err := tx.Preload("Items").Preload("Payments").First(&inv, invoiceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("invoice", invoiceID)
		}
		return apperr.Transaction("load invoice", err)
	}

	totals := s.calc.InvoiceTotals(&inv)
	remaining := RemainingBalance(totals.VATTotal, inv.Payments)
	state := PaymentStateFor(remaining, totals.VATTotal)

	next, ok := DerivedStatus(state)
	if !ok {
		// All effective payments gone: a previously paid invoice drops
		// back to sent rather than keeping a stale paid status.
		if inv.Status != models.StatusPaid && inv.Status != models.StatusPartiallyPaid {
			return nil
		}
		next = models.StatusSent
	}
	if next == inv.Status {
		return nil
	}
	if s.StrictPaymentTransitions {
		if err := ValidateTransition(inv.Status, next); err != nil {
			s.log.Warn().Uint("invoice_id", invoiceID).
				Str("current", string(inv.Status)).Str("derived", string(next)).
				Msg("derived status change rejected by transition table")
			return nil
		}
	}
	if err := tx.Model(&inv).Update("status", next).Error; err != nil {
		return apperr.Transaction("write derived status", err)
	}
	return nil
}
