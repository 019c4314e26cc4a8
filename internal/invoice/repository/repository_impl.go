package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/crownlab/crownlab/internal/invoice/domain"
	"github.com/crownlab/crownlab/pkg/db"
)

type repo struct {
	db *gorm.DB
}

func Provide(conn *gorm.DB) domain.Repository {
	return &repo{db: conn}
}

func (r *repo) InsertInvoice(ctx context.Context, conn *gorm.DB, invoice *domain.Invoice) error {
	err := conn.WithContext(ctx).Omit("LineItems").Create(invoice).Error
	if db.IsDuplicateKeyErr(err) {
		return domain.ErrNumberTaken
	}
	return err
}

func (r *repo) InsertLineItems(ctx context.Context, conn *gorm.DB, items []domain.InvoiceLineItem) error {
	if len(items) == 0 {
		return nil
	}
	return conn.WithContext(ctx).Create(&items).Error
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, labID snowflake.ID, id snowflake.ID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := conn.WithContext(ctx).
		Where("lab_id = ? AND id = ?", labID, id).
		First(&invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repo) ListLineItems(ctx context.Context, conn *gorm.DB, labID snowflake.ID, invoiceID snowflake.ID) ([]domain.InvoiceLineItem, error) {
	var items []domain.InvoiceLineItem
	err := conn.WithContext(ctx).
		Where("lab_id = ? AND invoice_id = ?", labID, invoiceID).
		Order("created_at ASC, id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) List(ctx context.Context, conn *gorm.DB, filter domain.ListFilter) ([]*domain.Invoice, error) {
	query := conn.WithContext(ctx).
		Model(&domain.Invoice{}).
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

	var invoices []*domain.Invoice
	err := query.
		Order("created_at DESC, id DESC").
		Limit(filter.Limit + 1).
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) UpdateStatus(ctx context.Context, conn *gorm.DB, labID snowflake.ID, id snowflake.ID, fromStatus string, toStatus string, sentAt *time.Time) (int64, error) {
	updates := map[string]any{
		"status":     toStatus,
		"updated_at": time.Now().UTC(),
	}
	if sentAt != nil {
		updates["sent_at"] = *sentAt
	}
	result := conn.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("lab_id = ? AND id = ? AND status = ?", labID, id, fromStatus).
		Updates(updates)
	return result.RowsAffected, result.Error
}

func (r *repo) DeleteCustomLineItems(ctx context.Context, conn *gorm.DB, labID snowflake.ID, invoiceID snowflake.ID) error {
	return conn.WithContext(ctx).Exec(
		`DELETE FROM invoice_line_items
		 WHERE lab_id = ? AND invoice_id = ? AND worksheet_id IS NULL`,
		labID,
		invoiceID,
	).Error
}

func (r *repo) UpdateTotal(ctx context.Context, conn *gorm.DB, labID snowflake.ID, invoiceID snowflake.ID, totalCents int64) error {
	return conn.WithContext(ctx).Exec(
		`UPDATE invoices
		 SET total_cents = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE lab_id = ? AND id = ?`,
		totalCents,
		labID,
		invoiceID,
	).Error
}

func (r *repo) WorksheetsInvoiced(ctx context.Context, conn *gorm.DB, labID snowflake.ID, worksheetIDs []snowflake.ID) ([]snowflake.ID, error) {
	if len(worksheetIDs) == 0 {
		return nil, nil
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

	out := make([]snowflake.ID, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.WorksheetID)
	}
	return out, nil
}
