// Package domain contains core types for labs and memberships.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Role names granted to lab members.
const (
	RoleAdmin      = "admin"
	RoleInvoicing  = "invoicing"
	RoleProduction = "production"
	RoleViewer     = "viewer"
)

// ValidRole reports whether name is a known member role.
func ValidRole(name string) bool {
	switch name {
	case RoleAdmin, RoleInvoicing, RoleProduction, RoleViewer:
		return true
	}
	return false
}

// Lab is a dental laboratory tenant. All operational data is scoped to one lab.
type Lab struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	Name      string       `gorm:"type:text;not null"`
	Slug      string       `gorm:"type:text;not null;uniqueIndex"`
	Email     string       `gorm:"type:text"`
	Phone     string       `gorm:"type:text"`
	Address   string       `gorm:"type:text"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Lab) TableName() string { return "labs" }

// LabMember binds a user to a lab with a single role.
type LabMember struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	LabID     snowflake.ID `gorm:"column:lab_id;not null;uniqueIndex:idx_lab_members_lab_user"`
	UserID    snowflake.ID `gorm:"column:user_id;not null;uniqueIndex:idx_lab_members_lab_user"`
	Role      string       `gorm:"type:text;not null"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (LabMember) TableName() string { return "lab_members" }
