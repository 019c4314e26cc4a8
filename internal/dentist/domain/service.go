package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"

	"github.com/crownlab/crownlab/pkg/db/pagination"
)

var (
	ErrNotFound         = errors.New("dentist not found")
	ErrInvalidLab       = errors.New("invalid lab")
	ErrInvalidName      = errors.New("dentist name required")
	ErrInvalidPageToken = errors.New("invalid page token")
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Dentist, error)
	Update(ctx context.Context, id snowflake.ID, req UpdateRequest) (*Dentist, error)
	Get(ctx context.Context, id snowflake.ID) (*Dentist, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
}

type CreateRequest struct {
	Name       string
	ClinicName string
	Email      string
	Phone      string
	Address    string
}

type UpdateRequest struct {
	Name       *string
	ClinicName *string
	Email      *string
	Phone      *string
	Address    *string
}

type ListRequest struct {
	pagination.Pagination
	Query string
}

type ListResponse struct {
	pagination.PageInfo
	Dentists []Dentist `json:"dentists"`
}

type ListFilter struct {
	LabID  snowflake.ID
	Query  string
	Cursor *DentistCursor
	Limit  int
}

type Repository interface {
	Insert(ctx context.Context, dentist *Dentist) error
	Update(ctx context.Context, dentist *Dentist) error
	FindByID(ctx context.Context, labID snowflake.ID, id snowflake.ID) (*Dentist, error)
	List(ctx context.Context, filter ListFilter) ([]*Dentist, error)
}
