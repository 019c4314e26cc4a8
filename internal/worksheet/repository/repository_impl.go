package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/crownlab/crownlab/internal/worksheet/domain"
	"github.com/crownlab/crownlab/pkg/db"
)

type repo struct {
	db *gorm.DB
}

func Provide(conn *gorm.DB) domain.Repository {
	return &repo{db: conn}
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, worksheet *domain.Worksheet) error {
	err := conn.WithContext(ctx).Create(worksheet).Error
	if db.IsDuplicateKeyErr(err) {
		return domain.ErrNumberTaken
	}
	return err
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, labID snowflake.ID, id snowflake.ID) (*domain.Worksheet, error) {
	var worksheet domain.Worksheet
	err := conn.WithContext(ctx).
		Where("lab_id = ? AND id = ?", labID, id).
		First(&worksheet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &worksheet, nil
}

// UpdateStatus performs a guarded transition and returns the number of rows
// changed. Zero rows means the stored status no longer matched fromStatus.
func (r *repo) UpdateStatus(ctx context.Context, conn *gorm.DB, labID snowflake.ID, id snowflake.ID, fromStatus string, toStatus string) (int64, error) {
	result := conn.WithContext(ctx).Exec(
		`UPDATE worksheets
		 SET status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE lab_id = ? AND id = ? AND status = ?`,
		toStatus,
		labID,
		id,
		fromStatus,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repo) List(ctx context.Context, conn *gorm.DB, filter domain.ListFilter) ([]*domain.Worksheet, error) {
	query := conn.WithContext(ctx).
		Model(&domain.Worksheet{}).
		Where("lab_id = ?", filter.LabID)

	if filter.DentistID != 0 {
		query = query.Where("dentist_id = ?", filter.DentistID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}

	var worksheets []*domain.Worksheet
	err := query.
		Order("created_at DESC, id DESC").
		Limit(filter.Limit + 1).
		Find(&worksheets).Error
	if err != nil {
		return nil, err
	}
	return worksheets, nil
}

func (r *repo) HasNonDraftInvoiceLink(ctx context.Context, conn *gorm.DB, labID snowflake.ID, worksheetID snowflake.ID) (bool, error) {
	var count int64
	err := conn.WithContext(ctx).Raw(
		`SELECT COUNT(1)
		 FROM invoice_line_items li
		 JOIN invoices i ON i.id = li.invoice_id
		 WHERE li.lab_id = ?
		   AND li.worksheet_id = ?
		   AND i.status NOT IN ('DRAFT', 'VOID')`,
		labID,
		worksheetID,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) InvoicedSet(ctx context.Context, conn *gorm.DB, labID snowflake.ID, worksheetIDs []snowflake.ID) (map[snowflake.ID]bool, error) {
	result := make(map[snowflake.ID]bool, len(worksheetIDs))
	if len(worksheetIDs) == 0 {
		return result, nil
	}

	var rows []struct {
		WorksheetID snowflake.ID `gorm:"column:worksheet_id"`
	}
	err := conn.WithContext(ctx).Raw(
		`SELECT DISTINCT li.worksheet_id
		 FROM invoice_line_items li
		 JOIN invoices i ON i.id = li.invoice_id
		 WHERE li.lab_id = ?
		   AND li.worksheet_id IN ?
		   AND i.status NOT IN ('DRAFT', 'VOID')`,
		labID,
		worksheetIDs,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		result[row.WorksheetID] = true
	}
	return result, nil
}
