// Package domain contains core types for production worksheets.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Stored worksheet statuses. INVOICED is never stored; it is derived from a
// line item linking the worksheet to a non-draft invoice.
const (
	StatusDraft        = "DRAFT"
	StatusInProduction = "IN_PRODUCTION"
	StatusInvoiced     = "INVOICED"
)

// Worksheet is one unit of lab work ordered by a dentist.
type Worksheet struct {
	ID          snowflake.ID                `gorm:"primaryKey" json:"id"`
	LabID       snowflake.ID                `gorm:"column:lab_id;not null;uniqueIndex:idx_worksheets_lab_number" json:"lab_id"`
	Number      string                      `gorm:"type:text;not null;uniqueIndex:idx_worksheets_lab_number" json:"number"`
	DentistID   snowflake.ID                `gorm:"column:dentist_id;not null;index" json:"dentist_id"`
	PatientName string                      `gorm:"column:patient_name;type:text" json:"patient_name"`
	Description string                      `gorm:"type:text" json:"description"`
	ToothRefs   datatypes.JSONSlice[string] `gorm:"column:tooth_refs" json:"tooth_refs"`
	PriceCents  int64                       `gorm:"column:price_cents;not null" json:"price_cents"`
	Status      string                      `gorm:"type:text;not null;default:DRAFT;index" json:"status"`
	CreatedAt   time.Time                   `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time                   `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	// Invoiced is filled by the service layer, not persisted.
	Invoiced bool `gorm:"-" json:"invoiced"`
}

// TableName sets the database table name.
func (Worksheet) TableName() string { return "worksheets" }

// EffectiveStatus folds the derived INVOICED state over the stored status.
func (w Worksheet) EffectiveStatus() string {
	if w.Invoiced {
		return StatusInvoiced
	}
	return w.Status
}

// WorksheetCursor is the keyset cursor for worksheet listings.
type WorksheetCursor struct {
	CreatedAt time.Time    `json:"created_at"`
	ID        snowflake.ID `json:"id"`
}
