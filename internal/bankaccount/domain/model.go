// Package domain contains core types for lab bank accounts shown on invoices.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// BankAccount is a payment destination printed on outgoing invoices.
type BankAccount struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	LabID         snowflake.ID `gorm:"column:lab_id;not null;index" json:"lab_id"`
	BankName      string       `gorm:"column:bank_name;type:text;not null" json:"bank_name"`
	IBAN          string       `gorm:"column:iban;type:text;not null" json:"iban"`
	BIC           string       `gorm:"column:bic;type:text" json:"bic"`
	AccountHolder string       `gorm:"column:account_holder;type:text" json:"account_holder"`
	IsDefault     bool         `gorm:"column:is_default" json:"is_default"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (BankAccount) TableName() string { return "bank_accounts" }
