// Package seed bootstraps the default lab and admin user so a self-hosted
// install is usable right after startup.
package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	authdomain "github.com/crownlab/crownlab/internal/auth/domain"
	"github.com/crownlab/crownlab/internal/auth/password"
	labdomain "github.com/crownlab/crownlab/internal/lab/domain"
)

const (
	defaultLabName       = "Main"
	defaultLabSlug       = "main"
	defaultAdminEmail    = "admin@crownlab.local"
	defaultAdminPassword = "admin"
	defaultAdminDisplay  = "CrownLab Admin"
)

// EnsureMainLab seeds the default lab.
func EnsureMainLab(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := ensureMainLabTx(ctx, tx, node, 0)
		return err
	})
}

// EnsureMainLabWithID seeds the default lab under a fixed ID so stable
// references (config, external tooling) keep working across reinstalls.
func EnsureMainLabWithID(db *gorm.DB, labID int64) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := ensureMainLabTx(ctx, tx, node, snowflake.ID(labID))
		return err
	})
}

// EnsureMainLabAndAdmin seeds the default lab plus an admin user with a
// well-known initial password.
func EnsureMainLabAndAdmin(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lab, err := ensureMainLabTx(ctx, tx, node, 0)
		if err != nil {
			return err
		}

		var user authdomain.User
		err = tx.WithContext(ctx).
			Where("email = ?", strings.ToLower(defaultAdminEmail)).
			First(&user).Error
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			hashed, err := password.Hash(defaultAdminPassword)
			if err != nil {
				return err
			}
			now := time.Now().UTC()
			user = authdomain.User{
				ID:           node.Generate(),
				Email:        strings.ToLower(defaultAdminEmail),
				DisplayName:  defaultAdminDisplay,
				PasswordHash: &hashed,
				IsDefault:    true,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err := tx.WithContext(ctx).Create(&user).Error; err != nil {
				return err
			}
		}

		var member labdomain.LabMember
		err = tx.WithContext(ctx).
			Where("lab_id = ? AND user_id = ?", lab.ID, user.ID).
			First(&member).Error
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			now := time.Now().UTC()
			member = labdomain.LabMember{
				ID:        node.Generate(),
				LabID:     lab.ID,
				UserID:    user.ID,
				Role:      labdomain.RoleAdmin,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := tx.WithContext(ctx).Create(&member).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func ensureMainLabTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, labID snowflake.ID) (labdomain.Lab, error) {
	var lab labdomain.Lab
	err := tx.WithContext(ctx).Where("slug = ?", defaultLabSlug).First(&lab).Error
	if err == nil {
		return lab, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return lab, err
	}
	if labID == 0 {
		labID = node.Generate()
	}
	now := time.Now().UTC()
	lab = labdomain.Lab{
		ID:        labID,
		Name:      defaultLabName,
		Slug:      defaultLabSlug,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(&lab).Error; err != nil {
		return lab, err
	}
	return lab, nil
}
