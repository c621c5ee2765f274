package tasks

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"invoiceflow/internal/models"
)

func setupJobsDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Client{}, &models.Invoice{}, &models.Item{},
		&models.Payment{}, &models.RecurrentBill{}, &models.EmailQueue{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedJobInvoice(t *testing.T, db *gorm.DB, email string) models.Invoice {
	t.Helper()
	client := models.Client{Name: "Jobs Co", Email: email}
	if err := db.Create(&client).Error; err != nil {
		t.Fatalf("seed client: %v", err)
	}
	no := fmt.Sprintf("INV-2026-%06d", time.Now().UnixNano()%1000000)
	inv := models.Invoice{
		InvoiceNo:  &no,
		DateValue:  time.Now(),
		InvoiceDue: time.Now().AddDate(0, 0, 30),
		ClientID:   client.ID,
		ClientType: models.ClientTypeIndividual,
		Currency:   "NGN",
		Status:     models.StatusSent,
	}
	if err := db.Create(&inv).Error; err != nil {
		t.Fatalf("seed invoice: %v", err)
	}
	return inv
}

func TestEmailJobWritesOutboxRow(t *testing.T) {
	db := setupJobsDB(t)
	inv := seedJobInvoice(t, db, "outbox@test")

	d := New(1, 16, zerolog.Nop())
	defer d.Stop(context.Background())
	RegisterInvoiceJobs(d, db, zerolog.Nop())

	d.Enqueue(JobInvoiceEmail, map[string]any{"invoice_id": inv.ID})

	var row models.EmailQueue
	waitFor(t, func() bool {
		return db.Where("invoice_id = ?", inv.ID).First(&row).Error == nil
	})
	if row.Recipient != "outbox@test" {
		t.Fatalf("recipient = %s, want outbox@test", row.Recipient)
	}
	if row.Template != "invoice_created" || row.Subject != "Your invoice" {
		t.Fatalf("template/subject = %s/%s", row.Template, row.Subject)
	}
	if row.Status != models.EmailQueued {
		t.Fatalf("status = %s, want queued", row.Status)
	}
}

func TestReminderJobAppendsLogAndQueuesEmail(t *testing.T) {
	db := setupJobsDB(t)
	inv := seedJobInvoice(t, db, "reminder@test")

	d := New(1, 16, zerolog.Nop())
	defer d.Stop(context.Background())
	RegisterInvoiceJobs(d, db, zerolog.Nop())

	d.Enqueue(JobInvoiceReminder, map[string]any{"invoice_id": inv.ID})

	var row models.EmailQueue
	waitFor(t, func() bool {
		return db.Where("invoice_id = ? AND template = ?", inv.ID, "payment_reminder").First(&row).Error == nil
	})

	var reloaded models.Invoice
	if err := db.First(&reloaded, inv.ID).Error; err != nil {
		t.Fatalf("reload invoice: %v", err)
	}
	if len(reloaded.ReminderLogs) != 1 || reloaded.ReminderLogs[0].Count != 1 {
		t.Fatalf("reminder log = %+v, want one entry with count 1", reloaded.ReminderLogs)
	}

	// A second reminder increments the counter.
	d.Enqueue(JobInvoiceReminder, map[string]any{"invoice_id": inv.ID})
	waitFor(t, func() bool {
		var again models.Invoice
		if err := db.First(&again, inv.ID).Error; err != nil {
			return false
		}
		return len(again.ReminderLogs) == 2 && again.ReminderLogs[1].Count == 2
	})
}

func TestEmailJobMissingInvoiceDoesNotRetry(t *testing.T) {
	db := setupJobsDB(t)

	d := New(1, 16, zerolog.Nop())
	RegisterInvoiceJobs(d, db, zerolog.Nop())

	d.Enqueue(JobInvoiceEmail, map[string]any{"invoice_id": uint(99999)})

	// Drain everything; a not-found error is non-retryable so the
	// worker gives up after one attempt with no outbox write.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	d.Stop(ctx)

	var count int64
	db.Model(&models.EmailQueue{}).Count(&count)
	if count != 0 {
		t.Fatalf("outbox rows = %d, want 0", count)
	}
}

func TestPDFJobVerifiesInvoice(t *testing.T) {
	db := setupJobsDB(t)
	inv := seedJobInvoice(t, db, "pdf@test")

	d := New(1, 16, zerolog.Nop())
	RegisterInvoiceJobs(d, db, zerolog.Nop())

	d.Enqueue(JobInvoicePDF, map[string]any{"invoice_id": inv.ID})
	d.Enqueue(JobInvoicePDF, map[string]any{}) // missing arg: dropped, not retried

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	d.Stop(ctx)
	// Nothing to assert in the store for the pdf job; reaching here
	// without a hang means both jobs terminated.
}
