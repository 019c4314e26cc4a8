package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/crownlab/crownlab/internal/product/domain"
	"github.com/crownlab/crownlab/pkg/db"
)

type repo struct {
	db *gorm.DB
}

func Provide(conn *gorm.DB) domain.Repository {
	return &repo{db: conn}
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, product *domain.Product) error {
	err := conn.WithContext(ctx).Create(product).Error
	if db.IsDuplicateKeyErr(err) {
		return domain.ErrCodeTaken
	}
	return err
}

func (r *repo) Update(ctx context.Context, conn *gorm.DB, product *domain.Product) error {
	err := conn.WithContext(ctx).Save(product).Error
	if db.IsDuplicateKeyErr(err) {
		return domain.ErrCodeTaken
	}
	return err
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, labID snowflake.ID, id snowflake.ID) (*domain.Product, error) {
	var product domain.Product
	err := conn.WithContext(ctx).
		Where("lab_id = ? AND id = ?", labID, id).
		First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repo) List(ctx context.Context, conn *gorm.DB, filter domain.ListFilter) ([]*domain.Product, error) {
	query := conn.WithContext(ctx).
		Model(&domain.Product{}).
		Where("lab_id = ?", filter.LabID)

	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Active != nil {
		query = query.Where("active = ?", *filter.Active)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(code) LIKE ?", like, like)
	}
	if filter.Cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}

	var products []*domain.Product
	err := query.
		Order("created_at DESC, id DESC").
		Limit(filter.Limit + 1).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *repo) CountByIDs(ctx context.Context, conn *gorm.DB, labID snowflake.ID, ids []snowflake.ID) (int64, error) {
	var count int64
	err := conn.WithContext(ctx).
		Model(&domain.Product{}).
		Where("lab_id = ? AND id IN ?", labID, ids).
		Count(&count).Error
	return count, err
}

func (r *repo) UpdateByIDs(ctx context.Context, conn *gorm.DB, labID snowflake.ID, ids []snowflake.ID, patch domain.BulkPatch) (int64, error) {
	updates := map[string]any{}
	if patch.Active != nil {
		updates["active"] = *patch.Active
	}
	if patch.Category != nil {
		updates["category"] = *patch.Category
	}
	if len(updates) == 0 {
		return 0, domain.ErrEmptyPatch
	}

	result := conn.WithContext(ctx).
		Model(&domain.Product{}).
		Where("lab_id = ? AND id IN ?", labID, ids).
		Updates(updates)
	return result.RowsAffected, result.Error
}

func (r *repo) DeleteByIDs(ctx context.Context, conn *gorm.DB, labID snowflake.ID, ids []snowflake.ID) (int64, error) {
	result := conn.WithContext(ctx).
		Where("lab_id = ? AND id IN ?", labID, ids).
		Delete(&domain.Product{})
	return result.RowsAffected, result.Error
}
