package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// InvoiceStatus is the explicit lifecycle state of an invoice. Transitions
// between statuses are governed by services.ValidateTransition.
type InvoiceStatus string

const (
	StatusDraft         InvoiceStatus = "draft"
	StatusSent          InvoiceStatus = "sent"
	StatusViewed        InvoiceStatus = "viewed"
	StatusPaid          InvoiceStatus = "paid"
	StatusPartiallyPaid InvoiceStatus = "partially_paid"
	StatusOverdue       InvoiceStatus = "overdue"
	StatusCancelled     InvoiceStatus = "cancelled"
)

// AllStatuses lists every valid status value, used for input validation.
var AllStatuses = []InvoiceStatus{
	StatusDraft, StatusSent, StatusViewed, StatusPaid,
	StatusPartiallyPaid, StatusOverdue, StatusCancelled,
}

// ValidStatus reports whether s is a known status value.
func ValidStatus(s InvoiceStatus) bool {
	for _, v := range AllStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// ReminderEntry records one reminder dispatch against an invoice.
type ReminderEntry struct {
	LastSent time.Time `json:"last_sent"`
	Count    int       `json:"count"`
}

// ReminderLog is stored as a JSON column.
type ReminderLog []ReminderEntry

func (l ReminderLog) Value() (driver.Value, error) {
	if len(l) == 0 {
		return nil, nil
	}
	return json.Marshal(l)
}

func (l *ReminderLog) Scan(value any) error {
	if value == nil {
		*l = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("unsupported reminder log type %T", value)
	}
}

// Invoice owns its items and payments (cascade on delete). The invoice
// number stays nil until the row has a generated ID, then it is derived
// from that ID (INV-<year>-<zero padded id>).
type Invoice struct {
	ID         uint          `gorm:"primaryKey"`
	InvoiceNo  *string       `gorm:"size:30;uniqueIndex"`
	DateValue  time.Time     `gorm:"not null"`
	InvoiceDue time.Time     `gorm:"not null"`
	ClientID   uint          `gorm:"not null;index"`
	ClientType int           `gorm:"not null"`
	Currency   string        `gorm:"size:3;not null;default:'NGN'"`
	Status     InvoiceStatus `gorm:"size:20;not null;default:'draft';index"`
	PurchaseNo *uint

	// Discount configuration. Value is kept as entered; parse failures
	// downstream yield a zero discount rather than an error.
	DiscType  string `gorm:"size:10"`
	DiscValue string `gorm:"size:10"`
	DiscDesc  string

	// View tracking
	ViewCount int `gorm:"default:0"`
	LastView  *time.Time

	// Reminder configuration
	SendReminders     bool `gorm:"default:false"`
	ReminderFrequency int
	ReminderLogs      ReminderLog `gorm:"type:json"`

	RecurrentBillID *uint `gorm:"index"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Client   Client    `gorm:"foreignKey:ClientID"`
	Items    []Item    `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
	Payments []Payment `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
}
