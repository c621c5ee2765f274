package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"invoiceflow/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
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

func seedClient(t *testing.T, db *gorm.DB, email string) models.Client {
	t.Helper()
	client := models.Client{Name: "Acme Ltd", Email: email, Phone: "0700000000"}
	if err := db.Create(&client).Error; err != nil {
		t.Fatalf("seed client: %v", err)
	}
	return client
}

func newInvoiceService(t *testing.T, db *gorm.DB) *InvoiceService {
	t.Helper()
	return NewInvoiceService(db, NewTotalsCalculator(DefaultVATRate), nil, zerolog.Nop())
}

// seedInvoice creates an invoice with a single line of the given amount
// through the service, then moves it to sent so payments can drive it.
func seedSentInvoice(t *testing.T, svc *InvoiceService, clientID uint, amount string) *models.Invoice {
	t.Helper()
	inv, err := svc.Create(InvoiceCreateInput{
		ClientID:   clientID,
		ClientType: models.ClientTypeStudent, // exempt: total == subtotal, simpler fixtures
		Items:      []ItemInput{{ItemDesc: "service", Qty: dec(t, "1"), Rate: dec(t, amount)}},
	})
	if err != nil {
		t.Fatalf("seed invoice: %v", err)
	}
	if _, err := svc.ChangeStatus(inv.ID, models.StatusSent); err != nil {
		t.Fatalf("send invoice: %v", err)
	}
	inv.Status = models.StatusSent
	return inv
}

func timeNowPlusDays(t *testing.T, days int) time.Time {
	t.Helper()
	return time.Now().AddDate(0, 0, days)
}
