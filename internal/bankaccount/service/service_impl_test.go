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
	"github.com/crownlab/crownlab/internal/bankaccount/domain"
	"github.com/crownlab/crownlab/internal/bankaccount/repository"
	"github.com/crownlab/crownlab/internal/labctx"
)

var testDBSeq int

func newService(t *testing.T) (domain.Service, context.Context) {
	t.Helper()

	testDBSeq++
	dsn := fmt.Sprintf("file:bank_svc_%d?mode=memory&cache=shared", testDBSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.BankAccount{}, &auditdomain.AuditLog{}))

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
	return svc, labctx.WithLabID(context.Background(), int64(labID))
}

func TestCreateNormalizesIBAN(t *testing.T) {
	svc, ctx := newService(t)

	account, err := svc.Create(ctx, domain.CreateRequest{
		BankName: "Sparkasse",
		IBAN:     " de02 1203 0000 0000 2020 51 ",
		BIC:      "byladem1001",
	})
	require.NoError(t, err)
	assert.Equal(t, "DE02120300000000202051", account.IBAN)
	assert.Equal(t, "BYLADEM1001", account.BIC)
}

func TestCreateRequiresBankNameAndIBAN(t *testing.T) {
	svc, ctx := newService(t)

	_, err := svc.Create(ctx, domain.CreateRequest{IBAN: "DE02"})
	assert.ErrorIs(t, err, domain.ErrBankNameRequired)

	_, err = svc.Create(ctx, domain.CreateRequest{BankName: "Sparkasse"})
	assert.ErrorIs(t, err, domain.ErrIBANRequired)
}

func TestDefaultFlagMovesBetweenAccounts(t *testing.T) {
	svc, ctx := newService(t)

	first, err := svc.Create(ctx, domain.CreateRequest{
		BankName:  "Sparkasse",
		IBAN:      "DE02120300000000202051",
		IsDefault: true,
	})
	require.NoError(t, err)

	second, err := svc.Create(ctx, domain.CreateRequest{
		BankName:  "Volksbank",
		IBAN:      "DE02100100100006820101",
		IsDefault: true,
	})
	require.NoError(t, err)

	// The second default demotes the first.
	current, err := svc.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, current.IsDefault)

	fallback, err := svc.Default(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, fallback.ID)
}

func TestDefaultFallsBackToOldest(t *testing.T) {
	svc, ctx := newService(t)

	first, err := svc.Create(ctx, domain.CreateRequest{
		BankName: "Sparkasse",
		IBAN:     "DE02120300000000202051",
	})
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.CreateRequest{
		BankName: "Volksbank",
		IBAN:     "DE02100100100006820101",
	})
	require.NoError(t, err)

	fallback, err := svc.Default(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, fallback.ID)
}

func TestDefaultWithoutAccounts(t *testing.T) {
	svc, ctx := newService(t)

	_, err := svc.Default(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDelete(t *testing.T) {
	svc, ctx := newService(t)

	account, err := svc.Create(ctx, domain.CreateRequest{
		BankName: "Sparkasse",
		IBAN:     "DE02120300000000202051",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, account.ID))

	_, err = svc.Get(ctx, account.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = svc.Delete(ctx, account.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
