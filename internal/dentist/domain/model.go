// Package domain contains core types for dentist clients of a lab.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Dentist is a client practice the lab produces work for and bills.
type Dentist struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	LabID      snowflake.ID `gorm:"column:lab_id;not null;index" json:"lab_id"`
	Name       string       `gorm:"type:text;not null" json:"name"`
	ClinicName string       `gorm:"column:clinic_name;type:text" json:"clinic_name"`
	Email      string       `gorm:"type:text" json:"email"`
	Phone      string       `gorm:"type:text" json:"phone"`
	Address    string       `gorm:"type:text" json:"address"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Dentist) TableName() string { return "dentists" }

// DentistCursor is the keyset cursor for dentist listings.
type DentistCursor struct {
	CreatedAt time.Time    `json:"created_at"`
	ID        snowflake.ID `json:"id"`
}
