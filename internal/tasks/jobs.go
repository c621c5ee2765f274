package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"invoiceflow/internal/apperr"
	"invoiceflow/internal/models"
)

// Job names enqueued by the invoice lifecycle.
const (
	JobInvoicePDF      = "invoice.pdf"
	JobInvoiceEmail    = "invoice.email"
	JobInvoiceReminder = "invoice.reminder"
)

// RegisterInvoiceJobs wires the invoice-related job handlers. Rendering
// and SMTP delivery live outside this service; these handlers only
// persist outbox rows and reminder bookkeeping.
func RegisterInvoiceJobs(d *Dispatcher, db *gorm.DB, log zerolog.Logger) {
	log = log.With().Str("component", "invoice-jobs").Logger()

	// Transient storage errors are retryable, domain errors are not.
	policy := DefaultRetryPolicy()
	policy.Retryable = func(err error) bool {
		switch apperr.KindOf(err) {
		case apperr.KindNotFound, apperr.KindValidation, apperr.KindConflict:
			return false
		}
		return true
	}

	d.Register(JobInvoicePDF, func(ctx context.Context, job Job) error {
		id, err := invoiceIDArg(job)
		if err != nil {
			return err
		}
		// PDF rendering is handled by an external worker; we only verify
		// the invoice still exists and log the handoff.
		var count int64
		if err := db.WithContext(ctx).Model(&models.Invoice{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return apperr.Transaction("pdf job lookup", err)
		}
		if count == 0 {
			return apperr.NotFound("invoice", id)
		}
		log.Info().Uint("invoice_id", id).Msg("pdf generation handed off")
		return nil
	}, policy)

	d.Register(JobInvoiceEmail, func(ctx context.Context, job Job) error {
		return queueInvoiceEmail(ctx, db, job, "invoice_created", "Your invoice")
	}, policy)

	d.Register(JobInvoiceReminder, func(ctx context.Context, job Job) error {
		id, err := invoiceIDArg(job)
		if err != nil {
			return err
		}
		err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var inv models.Invoice
			if err := tx.First(&inv, id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.NotFound("invoice", id)
				}
				return apperr.Transaction("load invoice", err)
			}
			count := 1
			if n := len(inv.ReminderLogs); n > 0 {
				count = inv.ReminderLogs[n-1].Count + 1
			}
			logs := append(inv.ReminderLogs, models.ReminderEntry{LastSent: time.Now(), Count: count})
			if err := tx.Model(&inv).Update("reminder_logs", logs).Error; err != nil {
				return apperr.Transaction("update reminder log", err)
			}
			return nil
		})
		if err != nil {
			return err
		}
		return queueInvoiceEmail(ctx, db, job, "payment_reminder", "Payment reminder")
	}, policy)
}

func queueInvoiceEmail(ctx context.Context, db *gorm.DB, job Job, template, subject string) error {
	id, err := invoiceIDArg(job)
	if err != nil {
		return err
	}
	var inv models.Invoice
	if err := db.WithContext(ctx).Preload("Client").First(&inv, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("invoice", id)
		}
		return apperr.Transaction("load invoice", err)
	}
	payload, _ := json.Marshal(job.Args)
	row := models.EmailQueue{
		Recipient: inv.Client.Email,
		Subject:   subject,
		Template:  template,
		Payload:   string(payload),
		Status:    models.EmailQueued,
		InvoiceID: &inv.ID,
	}
	if err := db.WithContext(ctx).Create(&row).Error; err != nil {
		return apperr.Transaction("queue email", err)
	}
	return nil
}

func invoiceIDArg(job Job) (uint, error) {
	v, ok := job.Args["invoice_id"]
	if !ok {
		return 0, apperr.Validation("job missing invoice_id", nil)
	}
	switch id := v.(type) {
	case uint:
		return id, nil
	case int:
		return uint(id), nil
	case float64:
		return uint(id), nil
	default:
		return 0, apperr.Validation(fmt.Sprintf("invoice_id has type %T", v), nil)
	}
}
