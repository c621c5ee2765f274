package services

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"invoiceflow/internal/apperr"
	"invoiceflow/internal/models"
)

// PaymentService records payments against invoices and keeps the
// invoice's explicit status in sync with the derived payment state.
type PaymentService struct {
	db       *gorm.DB
	invoices *InvoiceService
}

func NewPaymentService(db *gorm.DB, invoices *InvoiceService) *PaymentService {
	return &PaymentService{db: db, invoices: invoices}
}

// PaymentCreateInput carries a new payment row.
type PaymentCreateInput struct {
	InvoiceID   uint                 `json:"invoice_id"`
	ClientName  string               `json:"client_name"`
	PaymentDesc string               `json:"payment_desc"`
	PaymentDate time.Time            `json:"payment_date"`
	PaymentMode models.PaymentMode   `json:"payment_mode"`
	RefNo       *string              `json:"reference_number"`
	AmountPaid  decimal.Decimal      `json:"amount_paid"`
	Status      models.PaymentStatus `json:"status"`
}

// Create persists the payment and recomputes the invoice status in the
// same transaction. The duplicate-reference precheck is an optimization;
// the composite unique index is the authoritative guard, and a
// constraint violation at commit translates into the same conflict.
func (s *PaymentService) Create(in PaymentCreateInput) (*models.Payment, error) {
	if in.AmountPaid.Sign() <= 0 {
		return nil, apperr.Validation("payment amount must be positive", map[string]string{"amount_paid": "must_be_positive"})
	}
	if !models.ValidPaymentMode(in.PaymentMode) {
		return nil, apperr.Validation("unknown payment mode "+string(in.PaymentMode), map[string]string{"payment_mode": "invalid"})
	}
	status := in.Status
	if status == "" {
		status = models.PaymentCompleted
	}
	if !models.ValidPaymentStatus(status) {
		return nil, apperr.Validation("unknown payment status "+string(status), map[string]string{"status": "invalid"})
	}

	var invoiceCount int64
	if err := s.db.Model(&models.Invoice{}).Where("id = ?", in.InvoiceID).Count(&invoiceCount).Error; err != nil {
		return nil, apperr.Transaction("check invoice", err)
	}
	if invoiceCount == 0 {
		return nil, apperr.NotFound("invoice", in.InvoiceID)
	}

	if in.RefNo != nil && *in.RefNo != "" {
		var dup int64
		err := s.db.Model(&models.Payment{}).
			Where("invoice_id = ? AND ref_no = ?", in.InvoiceID, *in.RefNo).
			Count(&dup).Error
		if err != nil {
			return nil, apperr.Transaction("check reference number", err)
		}
		if dup > 0 {
			return nil, duplicateReferenceErr(*in.RefNo)
		}
	}

	date := in.PaymentDate
	if date.IsZero() {
		date = time.Now()
	}
	payment := models.Payment{
		InvoiceID:   in.InvoiceID,
		ClientName:  in.ClientName,
		PaymentDesc: in.PaymentDesc,
		PaymentDate: date,
		PaymentMode: in.PaymentMode,
		RefNo:       normalizeRef(in.RefNo),
		AmountPaid:  in.AmountPaid,
		Status:      status,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&payment).Error; err != nil {
			if isUniqueViolation(err) {
				return duplicateReferenceErr(refString(in.RefNo))
			}
			return apperr.Transaction("insert payment", err)
		}
		return s.invoices.recomputeStatus(tx, in.InvoiceID)
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// PaymentUpdateInput holds partial payment changes.
type PaymentUpdateInput struct {
	PaymentDesc *string               `json:"payment_desc"`
	PaymentDate *time.Time            `json:"payment_date"`
	PaymentMode *models.PaymentMode   `json:"payment_mode"`
	AmountPaid  *decimal.Decimal      `json:"amount_paid"`
	Status      *models.PaymentStatus `json:"status"`
}

// Update applies a partial update; amount or status changes recompute
// the owning invoice's status.
func (s *PaymentService) Update(id uint, in PaymentUpdateInput) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.First(&payment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("payment", id)
		}
		return nil, apperr.Transaction("load payment", err)
	}

	updates := map[string]any{}
	balanceChanged := false
	if in.PaymentDesc != nil {
		updates["payment_desc"] = *in.PaymentDesc
		payment.PaymentDesc = *in.PaymentDesc
	}
	if in.PaymentDate != nil {
		updates["payment_date"] = *in.PaymentDate
		payment.PaymentDate = *in.PaymentDate
	}
	if in.PaymentMode != nil {
		if !models.ValidPaymentMode(*in.PaymentMode) {
			return nil, apperr.Validation("unknown payment mode "+string(*in.PaymentMode), map[string]string{"payment_mode": "invalid"})
		}
		updates["payment_mode"] = *in.PaymentMode
		payment.PaymentMode = *in.PaymentMode
	}
	if in.AmountPaid != nil {
		if in.AmountPaid.Sign() <= 0 {
			return nil, apperr.Validation("payment amount must be positive", map[string]string{"amount_paid": "must_be_positive"})
		}
		updates["amount_paid"] = *in.AmountPaid
		payment.AmountPaid = *in.AmountPaid
		balanceChanged = true
	}
	if in.Status != nil {
		if !models.ValidPaymentStatus(*in.Status) {
			return nil, apperr.Validation("unknown payment status "+string(*in.Status), map[string]string{"status": "invalid"})
		}
		updates["status"] = *in.Status
		payment.Status = *in.Status
		balanceChanged = true
	}
	if len(updates) == 0 {
		return &payment, nil
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&payment).Updates(updates).Error; err != nil {
			return apperr.Transaction("update payment", err)
		}
		if balanceChanged {
			return s.invoices.recomputeStatus(tx, payment.InvoiceID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// Delete retracts a payment and recomputes the invoice status.
func (s *PaymentService) Delete(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var payment models.Payment
		if err := tx.First(&payment, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("payment", id)
			}
			return apperr.Transaction("load payment", err)
		}
		if err := tx.Delete(&payment).Error; err != nil {
			return apperr.Transaction("delete payment", err)
		}
		return s.invoices.recomputeStatus(tx, payment.InvoiceID)
	})
}

// Get loads a single payment.
func (s *PaymentService) Get(id uint) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.First(&payment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("payment", id)
		}
		return nil, apperr.Transaction("load payment", err)
	}
	return &payment, nil
}

// ForInvoice lists an invoice's payments in insertion order.
func (s *PaymentService) ForInvoice(invoiceID uint) ([]models.Payment, error) {
	var count int64
	if err := s.db.Model(&models.Invoice{}).Where("id = ?", invoiceID).Count(&count).Error; err != nil {
		return nil, apperr.Transaction("check invoice", err)
	}
	if count == 0 {
		return nil, apperr.NotFound("invoice", invoiceID)
	}
	var payments []models.Payment
	if err := s.db.Where("invoice_id = ?", invoiceID).Order("id asc").Find(&payments).Error; err != nil {
		return nil, apperr.Transaction("list payments", err)
	}
	return payments, nil
}

// List returns a page of all payments, newest first.
func (s *PaymentService) List(page, limit int) ([]models.Payment, Pagination, error) {
	if err := checkPageLimit(page, limit); err != nil {
		return nil, Pagination{}, err
	}
	var total int64
	if err := s.db.Model(&models.Payment{}).Count(&total).Error; err != nil {
		return nil, Pagination{}, apperr.Transaction("count payments", err)
	}
	var payments []models.Payment
	err := s.db.Order("id desc").Limit(limit).Offset((page - 1) * limit).Find(&payments).Error
	if err != nil {
		return nil, Pagination{}, apperr.Transaction("list payments", err)
	}
	return payments, paginationFor(page, limit, total), nil
}

func duplicateReferenceErr(ref string) *apperr.Error {
	return apperr.Conflict("DUPLICATE_PAYMENT_REFERENCE",
		"a payment with reference number "+ref+" already exists for this invoice")
}

func normalizeRef(ref *string) *string {
	if ref == nil || *ref == "" {
		return nil
	}
	return ref
}

func refString(ref *string) string {
	if ref == nil {
		return ""
	}
	return *ref
}

// isUniqueViolation matches unique-constraint failures across the
// supported engines (sqlite and postgres) plus GORM's translated error.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}
