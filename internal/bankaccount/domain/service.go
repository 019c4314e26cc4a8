package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrNotFound         = errors.New("bank account not found")
	ErrInvalidLab       = errors.New("invalid lab")
	ErrBankNameRequired = errors.New("bank name required")
	ErrIBANRequired     = errors.New("iban required")
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*BankAccount, error)
	Update(ctx context.Context, id snowflake.ID, req UpdateRequest) (*BankAccount, error)
	Get(ctx context.Context, id snowflake.ID) (*BankAccount, error)
	List(ctx context.Context) ([]BankAccount, error)
	Delete(ctx context.Context, id snowflake.ID) error
	// Default returns the lab's default account, or the oldest one when none
	// is flagged.
	Default(ctx context.Context) (*BankAccount, error)
}

type CreateRequest struct {
	BankName      string
	IBAN          string
	BIC           string
	AccountHolder string
	IsDefault     bool
}

type UpdateRequest struct {
	BankName      *string
	IBAN          *string
	BIC           *string
	AccountHolder *string
	IsDefault     *bool
}

type Repository interface {
	Insert(ctx context.Context, account *BankAccount) error
	Update(ctx context.Context, account *BankAccount) error
	FindByID(ctx context.Context, labID snowflake.ID, id snowflake.ID) (*BankAccount, error)
	List(ctx context.Context, labID snowflake.ID) ([]BankAccount, error)
	Delete(ctx context.Context, labID snowflake.ID, id snowflake.ID) (int64, error)
	ClearDefault(ctx context.Context, labID snowflake.ID) error
}
