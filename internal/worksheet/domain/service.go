package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/crownlab/crownlab/pkg/db/pagination"
)

var (
	ErrNotFound          = errors.New("worksheet not found")
	ErrInvalidLab        = errors.New("invalid lab")
	ErrInvalidTransition = errors.New("invalid worksheet transition")
	ErrReasonRequired    = errors.New("rollback reason required")
	ErrInvalidToothRef   = errors.New("invalid tooth reference")
	ErrInvalidPrice      = errors.New("invalid price")
	ErrDentistNotFound   = errors.New("dentist not found")
	ErrNumberTaken       = errors.New("worksheet number already in use")
	ErrInvalidPageToken  = errors.New("invalid page token")
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Worksheet, error)
	Get(ctx context.Context, id snowflake.ID) (*Worksheet, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	// StartProduction moves a DRAFT worksheet into IN_PRODUCTION.
	StartProduction(ctx context.Context, id snowflake.ID) (*Worksheet, error)
	// Rollback moves an IN_PRODUCTION worksheet back to DRAFT. It requires a
	// non-empty reason and refuses when the worksheet is linked to a
	// non-draft invoice. The status change and its audit entry commit in one
	// transaction.
	Rollback(ctx context.Context, id snowflake.ID, reason string) (*Worksheet, error)
}

type CreateRequest struct {
	Number      string
	DentistID   snowflake.ID
	PatientName string
	Description string
	ToothRefs   []string
	PriceCents  int64
}

type ListRequest struct {
	pagination.Pagination
	DentistID snowflake.ID
	Status    string
}

type ListResponse struct {
	pagination.PageInfo
	Worksheets []Worksheet `json:"worksheets"`
}

type ListFilter struct {
	LabID     snowflake.ID
	DentistID snowflake.ID
	Status    string
	Cursor    *WorksheetCursor
	Limit     int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, worksheet *Worksheet) error
	FindByID(ctx context.Context, db *gorm.DB, labID snowflake.ID, id snowflake.ID) (*Worksheet, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, labID snowflake.ID, id snowflake.ID, fromStatus string, toStatus string) (int64, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Worksheet, error)
	// HasNonDraftInvoiceLink reports whether any line item ties the worksheet
	// to an invoice whose status is neither DRAFT nor VOID.
	HasNonDraftInvoiceLink(ctx context.Context, db *gorm.DB, labID snowflake.ID, worksheetID snowflake.ID) (bool, error)
	InvoicedSet(ctx context.Context, db *gorm.DB, labID snowflake.ID, worksheetIDs []snowflake.ID) (map[snowflake.ID]bool, error)
}
