// Package domain contains core types for the invoice lifecycle.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Invoice statuses. PAID and VOID are set by external reconciliation; the
// service itself only drives DRAFT, OPEN and SENT.
const (
	StatusDraft = "DRAFT"
	StatusOpen  = "OPEN"
	StatusSent  = "SENT"
	StatusPaid  = "PAID"
	StatusVoid  = "VOID"
)

// Line item kinds. DISCOUNT and ADJUSTMENT may carry negative amounts; the
// remaining kinds must be non-negative.
const (
	KindWorksheet  = "WORKSHEET"
	KindCustom     = "CUSTOM"
	KindShipping   = "SHIPPING"
	KindDiscount   = "DISCOUNT"
	KindAdjustment = "ADJUSTMENT"
)

// ValidKind reports whether kind names a known line item kind.
func ValidKind(kind string) bool {
	switch kind {
	case KindWorksheet, KindCustom, KindShipping, KindDiscount, KindAdjustment:
		return true
	}
	return false
}

// KindAllowsNegative reports whether a kind may carry a negative amount.
func KindAllowsNegative(kind string) bool {
	return kind == KindDiscount || kind == KindAdjustment
}

// Invoice is a bill issued to a dentist. TotalCents is a cached projection
// of the signed line item amounts.
type Invoice struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	LabID      snowflake.ID `gorm:"column:lab_id;not null;uniqueIndex:idx_invoices_lab_number" json:"lab_id"`
	Number     string       `gorm:"type:text;not null;uniqueIndex:idx_invoices_lab_number" json:"number"`
	DentistID  snowflake.ID `gorm:"column:dentist_id;not null;index" json:"dentist_id"`
	Status     string       `gorm:"type:text;not null;default:DRAFT;index" json:"status"`
	IssueDate  time.Time    `gorm:"column:issue_date;not null" json:"issue_date"`
	TotalCents int64        `gorm:"column:total_cents;not null" json:"total_cents"`
	Currency   string       `gorm:"type:text;not null;default:EUR" json:"currency"`
	SentAt     *time.Time   `gorm:"column:sent_at" json:"sent_at,omitempty"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	// LineItems is loaded by the service layer.
	LineItems []InvoiceLineItem `gorm:"-" json:"line_items"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// InvoiceLineItem is one signed position on an invoice. WorksheetID is set
// only for WORKSHEET kind items.
type InvoiceLineItem struct {
	ID             snowflake.ID  `gorm:"primaryKey" json:"id"`
	LabID          snowflake.ID  `gorm:"column:lab_id;not null;index" json:"lab_id"`
	InvoiceID      snowflake.ID  `gorm:"column:invoice_id;not null;index" json:"invoice_id"`
	WorksheetID    *snowflake.ID `gorm:"column:worksheet_id;index" json:"worksheet_id,omitempty"`
	Kind           string        `gorm:"type:text;not null" json:"kind"`
	Description    string        `gorm:"type:text;not null" json:"description"`
	Quantity       int64         `gorm:"not null;default:1" json:"quantity"`
	UnitPriceCents int64         `gorm:"column:unit_price_cents;not null" json:"unit_price_cents"`
	AmountCents    int64         `gorm:"column:amount_cents;not null" json:"amount_cents"`
	CreatedAt      time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (InvoiceLineItem) TableName() string { return "invoice_line_items" }

// InvoiceCursor is the keyset cursor for invoice listings.
type InvoiceCursor struct {
	CreatedAt time.Time    `json:"created_at"`
	ID        snowflake.ID `json:"id"`
}
