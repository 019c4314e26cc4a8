// Package domain contains core types for the product catalog.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Product categories.
const (
	CategoryCrown       = "CROWN"
	CategoryBridge      = "BRIDGE"
	CategoryImplant     = "IMPLANT"
	CategoryDenture     = "DENTURE"
	CategoryOrthodontic = "ORTHODONTIC"
	CategoryMaterial    = "MATERIAL"
	CategoryOther       = "OTHER"
)

// ValidCategory reports whether name is a known product category.
func ValidCategory(name string) bool {
	switch name {
	case CategoryCrown, CategoryBridge, CategoryImplant, CategoryDenture,
		CategoryOrthodontic, CategoryMaterial, CategoryOther:
		return true
	}
	return false
}

// Product is a priced catalog entry the lab offers.
type Product struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	LabID          snowflake.ID `gorm:"column:lab_id;not null;uniqueIndex:idx_products_lab_code" json:"lab_id"`
	Code           string       `gorm:"type:text;not null;uniqueIndex:idx_products_lab_code" json:"code"`
	Name           string       `gorm:"type:text;not null" json:"name"`
	Category       string       `gorm:"type:text;not null" json:"category"`
	UnitPriceCents int64        `gorm:"column:unit_price_cents;not null" json:"unit_price_cents"`
	Active         bool         `gorm:"not null;default:true" json:"active"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Product) TableName() string { return "products" }

// ProductCursor is the keyset cursor for product listings.
type ProductCursor struct {
	CreatedAt time.Time    `json:"created_at"`
	ID        snowflake.ID `json:"id"`
}
