package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/crownlab/crownlab/internal/audit/domain"
	auditrepository "github.com/crownlab/crownlab/internal/audit/repository"
	auditservice "github.com/crownlab/crownlab/internal/audit/service"
	"github.com/crownlab/crownlab/internal/labctx"
	"github.com/crownlab/crownlab/internal/product/domain"
	"github.com/crownlab/crownlab/internal/product/repository"
)

type fixture struct {
	db    *gorm.DB
	node  *snowflake.Node
	svc   domain.Service
	labID snowflake.ID
	ctx   context.Context
}

var testDBSeq int

func newFixture(t *testing.T) *fixture {
	t.Helper()

	testDBSeq++
	dsn := fmt.Sprintf("file:product_svc_%d?mode=memory&cache=shared", testDBSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&domain.Product{},
		&auditdomain.AuditLog{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zap.NewNop()

	auditSvc := auditservice.NewService(auditservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  auditrepository.Provide(),
	})

	svc := NewService(Params{
		DB:       db,
		Log:      log,
		GenID:    node,
		Repo:     repository.Provide(db),
		AuditSvc: auditSvc,
	})

	labID := node.Generate()
	return &fixture{
		db:    db,
		node:  node,
		svc:   svc,
		labID: labID,
		ctx:   labctx.WithLabID(context.Background(), int64(labID)),
	}
}

func (f *fixture) createProduct(t *testing.T, code string) *domain.Product {
	t.Helper()
	product, err := f.svc.Create(f.ctx, domain.CreateRequest{
		Code:           code,
		Name:           "Zirconia Crown",
		Category:       domain.CategoryCrown,
		UnitPriceCents: 25000,
	})
	require.NoError(t, err)
	return product
}

func TestCreateProduct(t *testing.T) {
	f := newFixture(t)

	product := f.createProduct(t, "ZC-01")
	assert.True(t, product.Active)
	assert.Equal(t, domain.CategoryCrown, product.Category)
}

func TestCreateProductRejectsDuplicateCode(t *testing.T) {
	f := newFixture(t)
	f.createProduct(t, "ZC-01")

	_, err := f.svc.Create(f.ctx, domain.CreateRequest{
		Code:     "ZC-01",
		Name:     "Another",
		Category: domain.CategoryCrown,
	})
	assert.ErrorIs(t, err, domain.ErrCodeTaken)
}

func TestCreateProductRejectsUnknownCategory(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(f.ctx, domain.CreateRequest{
		Code:     "XX-01",
		Name:     "Mystery",
		Category: "GADGET",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCategory)
}

func TestBulkUpdateAllOrNothing(t *testing.T) {
	f := newFixture(t)
	first := f.createProduct(t, "ZC-01")
	second := f.createProduct(t, "ZC-02")

	inactive := false
	missing := f.node.Generate()

	// One unknown id fails the whole batch.
	_, err := f.svc.BulkUpdate(f.ctx, []snowflake.ID{first.ID, missing}, domain.BulkPatch{Active: &inactive})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	var untouched domain.Product
	require.NoError(t, f.db.First(&untouched, "id = ?", first.ID).Error)
	assert.True(t, untouched.Active)

	result, err := f.svc.BulkUpdate(f.ctx, []snowflake.ID{first.ID, second.ID}, domain.BulkPatch{Active: &inactive})
	require.NoError(t, err)
	assert.EqualValues(t, 2, result.Count)

	var inactiveCount int64
	f.db.Model(&domain.Product{}).Where("lab_id = ? AND active = ?", f.labID, false).Count(&inactiveCount)
	assert.EqualValues(t, 2, inactiveCount)

	var entry auditdomain.AuditLog
	require.NoError(t, f.db.Where("action = ?", "product.bulk_updated").First(&entry).Error)
	assert.EqualValues(t, 2, entry.Metadata["count"])
}

func TestBulkUpdateRejectsEmptyPatch(t *testing.T) {
	f := newFixture(t)
	product := f.createProduct(t, "ZC-01")

	_, err := f.svc.BulkUpdate(f.ctx, []snowflake.ID{product.ID}, domain.BulkPatch{})
	assert.ErrorIs(t, err, domain.ErrEmptyPatch)
}

func TestBulkUpdateRejectsEmptyIDSet(t *testing.T) {
	f := newFixture(t)
	active := true

	_, err := f.svc.BulkUpdate(f.ctx, nil, domain.BulkPatch{Active: &active})
	assert.ErrorIs(t, err, domain.ErrEmptyIDSet)
}

func TestBulkDeleteAllOrNothing(t *testing.T) {
	f := newFixture(t)
	first := f.createProduct(t, "ZC-01")
	second := f.createProduct(t, "ZC-02")
	missing := f.node.Generate()

	_, err := f.svc.BulkDelete(f.ctx, []snowflake.ID{first.ID, missing})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	var count int64
	f.db.Model(&domain.Product{}).Where("lab_id = ?", f.labID).Count(&count)
	assert.EqualValues(t, 2, count)

	result, err := f.svc.BulkDelete(f.ctx, []snowflake.ID{first.ID, second.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 2, result.Count)

	f.db.Model(&domain.Product{}).Where("lab_id = ?", f.labID).Count(&count)
	assert.Zero(t, count)
}

func TestBulkUpdateIgnoresDuplicateIDs(t *testing.T) {
	f := newFixture(t)
	product := f.createProduct(t, "ZC-01")
	inactive := false

	result, err := f.svc.BulkUpdate(f.ctx, []snowflake.ID{product.ID, product.ID}, domain.BulkPatch{Active: &inactive})
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.Count)
}

func TestProductScopedToLab(t *testing.T) {
	f := newFixture(t)
	product := f.createProduct(t, "ZC-01")

	otherCtx := labctx.WithLabID(context.Background(), int64(f.node.Generate()))
	_, err := f.svc.Get(otherCtx, product.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
