package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/crownlab/crownlab/internal/bankaccount/domain"
)

type repo struct {
	db *gorm.DB
}

func Provide(conn *gorm.DB) domain.Repository {
	return &repo{db: conn}
}

func (r *repo) Insert(ctx context.Context, account *domain.BankAccount) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *repo) Update(ctx context.Context, account *domain.BankAccount) error {
	return r.db.WithContext(ctx).Save(account).Error
}

func (r *repo) FindByID(ctx context.Context, labID snowflake.ID, id snowflake.ID) (*domain.BankAccount, error) {
	var account domain.BankAccount
	err := r.db.WithContext(ctx).
		Where("lab_id = ? AND id = ?", labID, id).
		First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repo) List(ctx context.Context, labID snowflake.ID) ([]domain.BankAccount, error) {
	var accounts []domain.BankAccount
	err := r.db.WithContext(ctx).
		Where("lab_id = ?", labID).
		Order("is_default DESC, created_at ASC").
		Find(&accounts).Error
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *repo) Delete(ctx context.Context, labID snowflake.ID, id snowflake.ID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("lab_id = ? AND id = ?", labID, id).
		Delete(&domain.BankAccount{})
	return result.RowsAffected, result.Error
}

func (r *repo) ClearDefault(ctx context.Context, labID snowflake.ID) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE bank_accounts SET is_default = ? WHERE lab_id = ?`,
		false,
		labID,
	).Error
}
