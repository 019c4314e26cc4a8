package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/crownlab/crownlab/pkg/db/pagination"
)

var (
	ErrNotFound         = errors.New("product not found")
	ErrInvalidLab       = errors.New("invalid lab")
	ErrCodeRequired     = errors.New("product code required")
	ErrNameRequired     = errors.New("product name required")
	ErrInvalidCategory  = errors.New("invalid category")
	ErrInvalidPrice     = errors.New("invalid price")
	ErrCodeTaken        = errors.New("product code already in use")
	ErrEmptyIDSet       = errors.New("no product ids supplied")
	ErrEmptyPatch       = errors.New("empty bulk patch")
	ErrInvalidPageToken = errors.New("invalid page token")
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Product, error)
	Update(ctx context.Context, id snowflake.ID, req UpdateRequest) (*Product, error)
	Get(ctx context.Context, id snowflake.ID) (*Product, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	// BulkUpdate applies one patch to the supplied id set in a single
	// transaction; any missing id fails the whole batch.
	BulkUpdate(ctx context.Context, ids []snowflake.ID, patch BulkPatch) (BulkResult, error)
	// BulkDelete removes the supplied id set in a single transaction; any
	// missing id fails the whole batch.
	BulkDelete(ctx context.Context, ids []snowflake.ID) (BulkResult, error)
}

type CreateRequest struct {
	Code           string
	Name           string
	Category       string
	UnitPriceCents int64
	Active         *bool
}

type UpdateRequest struct {
	Code           *string
	Name           *string
	Category       *string
	UnitPriceCents *int64
	Active         *bool
}

type BulkPatch struct {
	Active   *bool   `json:"active"`
	Category *string `json:"category"`
}

type BulkResult struct {
	Count int64 `json:"count"`
}

type ListRequest struct {
	pagination.Pagination
	Category string
	Active   *bool
	Query    string
}

type ListResponse struct {
	pagination.PageInfo
	Products []Product `json:"products"`
}

type ListFilter struct {
	LabID    snowflake.ID
	Category string
	Active   *bool
	Query    string
	Cursor   *ProductCursor
	Limit    int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, product *Product) error
	Update(ctx context.Context, db *gorm.DB, product *Product) error
	FindByID(ctx context.Context, db *gorm.DB, labID snowflake.ID, id snowflake.ID) (*Product, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Product, error)
	CountByIDs(ctx context.Context, db *gorm.DB, labID snowflake.ID, ids []snowflake.ID) (int64, error)
	UpdateByIDs(ctx context.Context, db *gorm.DB, labID snowflake.ID, ids []snowflake.ID, patch BulkPatch) (int64, error)
	DeleteByIDs(ctx context.Context, db *gorm.DB, labID snowflake.ID, ids []snowflake.ID) (int64, error)
}
