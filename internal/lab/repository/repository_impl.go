package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	"github.com/crownlab/crownlab/internal/lab/domain"
	"github.com/crownlab/crownlab/pkg/db"
)

type repo struct {
	db *gorm.DB
}

func Provide(conn *gorm.DB) domain.Repository {
	return &repo{db: conn}
}

func (r *repo) Insert(ctx context.Context, lab *domain.Lab) error {
	err := r.db.WithContext(ctx).Create(lab).Error
	if db.IsDuplicateKeyErr(err) {
		return domain.ErrSlugTaken
	}
	return err
}

func (r *repo) FindByID(ctx context.Context, id snowflake.ID) (*domain.Lab, error) {
	var lab domain.Lab
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&lab).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &lab, nil
}

func (r *repo) FindBySlug(ctx context.Context, slug string) (*domain.Lab, error) {
	var lab domain.Lab
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&lab).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &lab, nil
}

func (r *repo) Update(ctx context.Context, lab *domain.Lab) error {
	return r.db.WithContext(ctx).Save(lab).Error
}

func (r *repo) UpsertMember(ctx context.Context, member *domain.LabMember) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO lab_members (id, lab_id, user_id, role, created_at, updated_at)
		 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		 ON CONFLICT (lab_id, user_id)
		 DO UPDATE SET role = EXCLUDED.role, updated_at = CURRENT_TIMESTAMP`,
		member.ID,
		member.LabID,
		member.UserID,
		member.Role,
	).Error
}

func (r *repo) FindMember(ctx context.Context, labID snowflake.ID, userID snowflake.ID) (*domain.LabMember, error) {
	var member domain.LabMember
	err := r.db.WithContext(ctx).
		Where("lab_id = ? AND user_id = ?", labID, userID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrMemberNotFound
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *repo) ListMembershipsForUser(ctx context.Context, userID snowflake.ID) ([]domain.LabMember, error) {
	var members []domain.LabMember
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (r *repo) ListMembers(ctx context.Context, labID snowflake.ID) ([]domain.LabMember, error) {
	var members []domain.LabMember
	err := r.db.WithContext(ctx).
		Where("lab_id = ?", labID).
		Order("created_at ASC").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}
