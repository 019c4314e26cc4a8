package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/crownlab/crownlab/pkg/db/pagination"
)

var (
	ErrNotFound                 = errors.New("invoice not found")
	ErrInvalidLab               = errors.New("invalid lab")
	ErrDentistNotFound          = errors.New("dentist not found")
	ErrDentistMismatch          = errors.New("worksheet belongs to another dentist")
	ErrWorksheetNotFound        = errors.New("worksheet not found")
	ErrWorksheetAlreadyInvoiced = errors.New("worksheet already invoiced")
	ErrNoWorksheets             = errors.New("invoice requires at least one line item")
	ErrInvalidKind              = errors.New("invalid line item kind")
	ErrNegativeAmount           = errors.New("negative amount not allowed for kind")
	ErrInvalidQuantity          = errors.New("invalid quantity")
	ErrInvalidTransition        = errors.New("invalid invoice transition")
	ErrNoRecipient              = errors.New("no recipient email")
	ErrDispatchFailure          = errors.New("email dispatch failed")
	ErrNumberTaken              = errors.New("invoice number already in use")
	ErrInvalidPageToken         = errors.New("invalid page token")
)

type Service interface {
	// Create persists a new invoice plus derived and custom line items in a
	// single transaction. finalize moves the invoice straight to OPEN.
	Create(ctx context.Context, req CreateRequest) (*Invoice, error)
	Get(ctx context.Context, id snowflake.ID) (*Invoice, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	// SendEmail dispatches the invoice email synchronously and, on the first
	// successful send of a DRAFT invoice, transitions it to SENT. Re-sends
	// never re-transition.
	SendEmail(ctx context.Context, id snowflake.ID, recipientOverride string) (SendEmailResult, error)
	// ReplaceCustomLineItems swaps the non-worksheet line items of a DRAFT
	// invoice and recomputes the cached total atomically.
	ReplaceCustomLineItems(ctx context.Context, id snowflake.ID, items []CustomItem) (*Invoice, error)
	// RecomputeTotal re-derives the total from persisted line items without
	// mutating anything and reports it next to the stored value.
	RecomputeTotal(ctx context.Context, id snowflake.ID) (RecomputeResult, error)
	// Render produces the invoice PDF including the lab's bank details.
	Render(ctx context.Context, id snowflake.ID) ([]byte, error)
}

type CustomItem struct {
	Kind           string
	Description    string
	Quantity       int64
	UnitPriceCents int64
}

type CreateRequest struct {
	DentistID    snowflake.ID
	WorksheetIDs []snowflake.ID
	CustomItems  []CustomItem
	IssueDate    *time.Time
	Currency     string
	Finalize     bool
}

type ListRequest struct {
	pagination.Pagination
	DentistID snowflake.ID
	Status    string
}

type ListResponse struct {
	pagination.PageInfo
	Invoices []Invoice `json:"invoices"`
}

type SendEmailResult struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	MessageID string `json:"messageId"`
	SentTo    string `json:"sentTo"`
}

type RecomputeResult struct {
	InvoiceID       snowflake.ID `json:"invoice_id"`
	StoredCents     int64        `json:"stored_cents"`
	RecomputedCents int64        `json:"recomputed_cents"`
	InSync          bool         `json:"in_sync"`
}

type ListFilter struct {
	LabID     snowflake.ID
	DentistID snowflake.ID
	Status    string
	Cursor    *InvoiceCursor
	Limit     int
}

type Repository interface {
	InsertInvoice(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	InsertLineItems(ctx context.Context, db *gorm.DB, items []InvoiceLineItem) error
	FindByID(ctx context.Context, db *gorm.DB, labID snowflake.ID, id snowflake.ID) (*Invoice, error)
	ListLineItems(ctx context.Context, db *gorm.DB, labID snowflake.ID, invoiceID snowflake.ID) ([]InvoiceLineItem, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Invoice, error)
	// UpdateStatus performs a guarded transition and reports affected rows.
	UpdateStatus(ctx context.Context, db *gorm.DB, labID snowflake.ID, id snowflake.ID, fromStatus string, toStatus string, sentAt *time.Time) (int64, error)
	DeleteCustomLineItems(ctx context.Context, db *gorm.DB, labID snowflake.ID, invoiceID snowflake.ID) error
	UpdateTotal(ctx context.Context, db *gorm.DB, labID snowflake.ID, invoiceID snowflake.ID, totalCents int64) error
	// WorksheetsInvoiced reports worksheet IDs already linked to another
	// non-draft, non-void invoice.
	WorksheetsInvoiced(ctx context.Context, db *gorm.DB, labID snowflake.ID, worksheetIDs []snowflake.ID) ([]snowflake.ID, error)
}
