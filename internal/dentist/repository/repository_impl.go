package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/crownlab/crownlab/internal/dentist/domain"
)

type repo struct {
	db *gorm.DB
}

func Provide(conn *gorm.DB) domain.Repository {
	return &repo{db: conn}
}

func (r *repo) Insert(ctx context.Context, dentist *domain.Dentist) error {
	return r.db.WithContext(ctx).Create(dentist).Error
}

func (r *repo) Update(ctx context.Context, dentist *domain.Dentist) error {
	return r.db.WithContext(ctx).Save(dentist).Error
}

func (r *repo) FindByID(ctx context.Context, labID snowflake.ID, id snowflake.ID) (*domain.Dentist, error) {
	var dentist domain.Dentist
	err := r.db.WithContext(ctx).
		Where("lab_id = ? AND id = ?", labID, id).
		First(&dentist).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &dentist, nil
}

func (r *repo) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Dentist, error) {
	query := r.db.WithContext(ctx).
		Model(&domain.Dentist{}).
		Where("lab_id = ?", filter.LabID)

	if q := strings.TrimSpace(filter.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(clinic_name) LIKE ?", like, like)
	}
	if filter.Cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}

	var dentists []*domain.Dentist
	err := query.
		Order("created_at DESC, id DESC").
		Limit(filter.Limit + 1).
		Find(&dentists).Error
	if err != nil {
		return nil, err
	}
	return dentists, nil
}
