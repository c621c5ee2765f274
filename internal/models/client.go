package models

import "time"

// Client entity. Deletion is restricted while invoices reference it.
type Client struct {
	ID         uint   `gorm:"primaryKey"`
	Name       string `gorm:"not null;index"`
	Address    string
	Email      string `gorm:"size:150;not null;uniqueIndex"`
	Phone      string `gorm:"size:25;index"`
	PostalAddr string `gorm:"size:20"`
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Invoices []Invoice `gorm:"foreignKey:ClientID;constraint:OnDelete:RESTRICT"`
}

// Client type codes carried on each invoice; they determine tax
// treatment (students are VAT-exempt).
const (
	ClientTypeStudent    = 1
	ClientTypeIndividual = 2
	ClientTypeCorporate  = 3
)
