package services

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"invoiceflow/internal/apperr"
	"invoiceflow/internal/models"
)

// RecurrentBillService manages recurring-bill templates and materializes
// draft invoices from them through the invoice orchestrator, so the
// generated invoice goes through the same atomic creation path.
type RecurrentBillService struct {
	db       *gorm.DB
	invoices *InvoiceService
}

func NewRecurrentBillService(db *gorm.DB, invoices *InvoiceService) *RecurrentBillService {
	return &RecurrentBillService{db: db, invoices: invoices}
}

// RecurrentBillInput carries a new recurring-bill template.
type RecurrentBillInput struct {
	ClientID       uint            `json:"client_id"`
	ProductName    string          `json:"product_name"`
	AmountExpected decimal.Decimal `json:"amount_expected"`
	DateDue        time.Time       `json:"date_due"`
}

func (s *RecurrentBillService) Create(in RecurrentBillInput) (*models.RecurrentBill, error) {
	if in.ProductName == "" {
		return nil, apperr.Validation("product name required", map[string]string{"product_name": "required"})
	}
	if in.AmountExpected.Sign() <= 0 {
		return nil, apperr.Validation("expected amount must be positive", map[string]string{"amount_expected": "must_be_positive"})
	}
	var clients int64
	if err := s.db.Model(&models.Client{}).Where("id = ?", in.ClientID).Count(&clients).Error; err != nil {
		return nil, apperr.Transaction("check client", err)
	}
	if clients == 0 {
		return nil, apperr.NotFound("client", in.ClientID)
	}

	bill := models.RecurrentBill{
		ClientID:       in.ClientID,
		ProductName:    in.ProductName,
		AmountExpected: in.AmountExpected,
		DateDue:        in.DateDue,
	}
	if err := s.db.Create(&bill).Error; err != nil {
		return nil, apperr.Transaction("insert recurrent bill", err)
	}
	return &bill, nil
}

// GenerateInvoice creates a draft invoice from the bill template: one
// line item carrying the product name and expected amount, due on the
// bill's due date, linked back to the bill.
func (s *RecurrentBillService) GenerateInvoice(billID uint, clientType int) (*models.Invoice, error) {
	var bill models.RecurrentBill
	if err := s.db.First(&bill, billID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("recurrent_bill", billID)
		}
		return nil, apperr.Transaction("load recurrent bill", err)
	}

	due := bill.DateDue
	return s.invoices.Create(InvoiceCreateInput{
		ClientID:        bill.ClientID,
		ClientType:      clientType,
		InvoiceDue:      &due,
		RecurrentBillID: &bill.ID,
		Items: []ItemInput{{
			ItemDesc: bill.ProductName,
			Qty:      decimal.NewFromInt(1),
			Rate:     bill.AmountExpected,
		}},
	})
}
