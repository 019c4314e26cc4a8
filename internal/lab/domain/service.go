package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrNotFound       = errors.New("lab not found")
	ErrInvalidName    = errors.New("lab name required")
	ErrMemberNotFound = errors.New("lab member not found")
	ErrInvalidRole    = errors.New("invalid role")
	ErrSlugTaken      = errors.New("slug already in use")
)

type Service interface {
	Create(ctx context.Context, req CreateLabRequest) (*Lab, error)
	Get(ctx context.Context, id snowflake.ID) (*Lab, error)
	GetBySlug(ctx context.Context, slug string) (*Lab, error)
	Update(ctx context.Context, id snowflake.ID, req UpdateLabRequest) (*Lab, error)
	AddMember(ctx context.Context, labID snowflake.ID, userID snowflake.ID, role string) (*LabMember, error)
	GetMember(ctx context.Context, labID snowflake.ID, userID snowflake.ID) (*LabMember, error)
	ListMembers(ctx context.Context, labID snowflake.ID) ([]LabMember, error)
	MembershipsForUser(ctx context.Context, userID snowflake.ID) ([]LabMember, error)
}

type CreateLabRequest struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

type UpdateLabRequest struct {
	Name    *string
	Email   *string
	Phone   *string
	Address *string
}

type Repository interface {
	Insert(ctx context.Context, lab *Lab) error
	FindByID(ctx context.Context, id snowflake.ID) (*Lab, error)
	FindBySlug(ctx context.Context, slug string) (*Lab, error)
	Update(ctx context.Context, lab *Lab) error
	UpsertMember(ctx context.Context, member *LabMember) error
	FindMember(ctx context.Context, labID snowflake.ID, userID snowflake.ID) (*LabMember, error)
	ListMembers(ctx context.Context, labID snowflake.ID) ([]LabMember, error)
	ListMembershipsForUser(ctx context.Context, userID snowflake.ID) ([]LabMember, error)
}
