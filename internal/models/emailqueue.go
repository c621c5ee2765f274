package models

import "time"

type EmailStatus string

const (
	EmailQueued EmailStatus = "queued"
	EmailSent   EmailStatus = "sent"
	EmailFailed EmailStatus = "failed"
)

// EmailQueue is the persisted outbox written by async jobs. Actual
// rendering and delivery belong to an external worker.
type EmailQueue struct {
	ID        uint        `gorm:"primaryKey"`
	Recipient string      `gorm:"size:150;not null"`
	Subject   string      `gorm:"size:200;not null"`
	Template  string      `gorm:"size:50;not null"`
	Payload   string      `gorm:"type:json"`
	Status    EmailStatus `gorm:"size:20;not null;default:'queued';index"`
	Attempts  int         `gorm:"default:0"`
	InvoiceID *uint       `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
