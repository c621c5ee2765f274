package services

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"invoiceflow/internal/apperr"
	"invoiceflow/internal/models"
)

// ItemService manages invoice line items. An invoice must always keep at
// least one item; the guard sits on deletion, not creation.
type ItemService struct {
	db *gorm.DB
}

func NewItemService(db *gorm.DB) *ItemService {
	return &ItemService{db: db}
}

// Add appends a line item to an existing invoice, computing its amount.
func (s *ItemService) Add(invoiceID uint, in ItemInput) (*models.Item, error) {
	if in.ItemDesc == "" {
		return nil, apperr.Validation("item description required", map[string]string{"item_desc": "required"})
	}
	if in.Qty.Sign() <= 0 {
		return nil, apperr.Validation("item quantity must be positive", map[string]string{"qty": "must_be_positive"})
	}
	if in.Rate.Sign() < 0 {
		return nil, apperr.Validation("item rate cannot be negative", map[string]string{"rate": "must_not_be_negative"})
	}

	var count int64
	if err := s.db.Model(&models.Invoice{}).Where("id = ?", invoiceID).Count(&count).Error; err != nil {
		return nil, apperr.Transaction("check invoice", err)
	}
	if count == 0 {
		return nil, apperr.NotFound("invoice", invoiceID)
	}

	item := models.Item{
		InvoiceID: invoiceID,
		ItemDesc:  in.ItemDesc,
		Qty:       in.Qty,
		Rate:      in.Rate,
		Amount:    ItemAmount(in.Qty, in.Rate),
	}
	if err := s.db.Create(&item).Error; err != nil {
		return nil, apperr.Transaction("insert item", err)
	}
	return &item, nil
}

// ItemUpdateInput holds partial item changes; nil fields stay untouched.
type ItemUpdateInput struct {
	ItemDesc *string          `json:"item_desc"`
	Qty      *decimal.Decimal `json:"qty"`
	Rate     *decimal.Decimal `json:"rate"`
}

// Update applies a partial update. Whenever qty or rate changes, the
// amount is recomputed from the resulting pair.
func (s *ItemService) Update(id uint, in ItemUpdateInput) (*models.Item, error) {
	var item models.Item
	if err := s.db.First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("item", id)
		}
		return nil, apperr.Transaction("load item", err)
	}

	updates := map[string]any{}
	if in.ItemDesc != nil {
		if *in.ItemDesc == "" {
			return nil, apperr.Validation("item description required", map[string]string{"item_desc": "required"})
		}
		item.ItemDesc = *in.ItemDesc
		updates["item_desc"] = item.ItemDesc
	}
	if in.Qty != nil {
		if in.Qty.Sign() <= 0 {
			return nil, apperr.Validation("item quantity must be positive", map[string]string{"qty": "must_be_positive"})
		}
		item.Qty = *in.Qty
		updates["qty"] = item.Qty
	}
	if in.Rate != nil {
		if in.Rate.Sign() < 0 {
			return nil, apperr.Validation("item rate cannot be negative", map[string]string{"rate": "must_not_be_negative"})
		}
		item.Rate = *in.Rate
		updates["rate"] = item.Rate
	}
	if in.Qty != nil || in.Rate != nil {
		item.Amount = ItemAmount(item.Qty, item.Rate)
		updates["amount"] = item.Amount
	}
	if len(updates) == 0 {
		return &item, nil
	}

	if err := s.db.Model(&item).Updates(updates).Error; err != nil {
		return nil, apperr.Transaction("update item", err)
	}
	return &item, nil
}

// Delete removes an item. Deleting the last remaining item on an invoice
// is rejected unless explicitly overridden.
func (s *ItemService) Delete(id uint, allowLastItem bool) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var item models.Item
		if err := tx.First(&item, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("item", id)
			}
			return apperr.Transaction("load item", err)
		}
		if !allowLastItem {
			var count int64
			if err := tx.Model(&models.Item{}).Where("invoice_id = ?", item.InvoiceID).Count(&count).Error; err != nil {
				return apperr.Transaction("count items", err)
			}
			if count == 1 {
				return apperr.Conflict("LAST_ITEM_ON_INVOICE",
					fmt.Sprintf("cannot delete item %d: it is the last item on invoice %d", id, item.InvoiceID))
			}
		}
		if err := tx.Delete(&item).Error; err != nil {
			return apperr.Transaction("delete item", err)
		}
		return nil
	})
}

// ForInvoice lists an invoice's items in insertion order.
func (s *ItemService) ForInvoice(invoiceID uint) ([]models.Item, error) {
	var count int64
	if err := s.db.Model(&models.Invoice{}).Where("id = ?", invoiceID).Count(&count).Error; err != nil {
		return nil, apperr.Transaction("check invoice", err)
	}
	if count == 0 {
		return nil, apperr.NotFound("invoice", invoiceID)
	}
	var items []models.Item
	if err := s.db.Where("invoice_id = ?", invoiceID).Order("id asc").Find(&items).Error; err != nil {
		return nil, apperr.Transaction("list items", err)
	}
	return items, nil
}
