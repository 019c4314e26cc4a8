package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/crownlab/crownlab/internal/audit/domain"
	auditrepository "github.com/crownlab/crownlab/internal/audit/repository"
	auditservice "github.com/crownlab/crownlab/internal/audit/service"
	dentistdomain "github.com/crownlab/crownlab/internal/dentist/domain"
	dentistrepository "github.com/crownlab/crownlab/internal/dentist/repository"
	invoicedomain "github.com/crownlab/crownlab/internal/invoice/domain"
	"github.com/crownlab/crownlab/internal/labctx"
	"github.com/crownlab/crownlab/internal/worksheet/domain"
	"github.com/crownlab/crownlab/internal/worksheet/repository"
)

type fixture struct {
	db      *gorm.DB
	node    *snowflake.Node
	svc     domain.Service
	labID   snowflake.ID
	dentist *dentistdomain.Dentist
	ctx     context.Context
}

var testDBSeq int

func newFixture(t *testing.T) *fixture {
	t.Helper()

	testDBSeq++
	dsn := fmt.Sprintf("file:worksheet_svc_%d?mode=memory&cache=shared", testDBSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&dentistdomain.Dentist{},
		&domain.Worksheet{},
		&invoicedomain.Invoice{},
		&invoicedomain.InvoiceLineItem{},
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
		DB:          db,
		Log:         log,
		GenID:       node,
		Repo:        repository.Provide(db),
		DentistRepo: dentistrepository.Provide(db),
		AuditSvc:    auditSvc,
	})

	labID := node.Generate()
	dentist := &dentistdomain.Dentist{
		ID:    node.Generate(),
		LabID: labID,
		Name:  "Dr. Weber",
	}
	require.NoError(t, db.Create(dentist).Error)

	return &fixture{
		db:      db,
		node:    node,
		svc:     svc,
		labID:   labID,
		dentist: dentist,
		ctx:     labctx.WithLabID(context.Background(), int64(labID)),
	}
}

func (f *fixture) createWorksheet(t *testing.T) *domain.Worksheet {
	t.Helper()
	worksheet, err := f.svc.Create(f.ctx, domain.CreateRequest{
		DentistID:   f.dentist.ID,
		PatientName: "A. Client",
		ToothRefs:   []string{"11", "21"},
		PriceCents:  12500,
	})
	require.NoError(t, err)
	return worksheet
}

func TestCreateWorksheet(t *testing.T) {
	f := newFixture(t)

	worksheet := f.createWorksheet(t)
	assert.Equal(t, domain.StatusDraft, worksheet.Status)
	assert.NotEmpty(t, worksheet.Number)
	assert.Equal(t, []string{"11", "21"}, []string(worksheet.ToothRefs))

	var auditCount int64
	f.db.Model(&auditdomain.AuditLog{}).Where("action = ?", "worksheet.created").Count(&auditCount)
	assert.EqualValues(t, 1, auditCount)
}

func TestCreateWorksheetRejectsUnknownTooth(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(f.ctx, domain.CreateRequest{
		DentistID: f.dentist.ID,
		ToothRefs: []string{"99"},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidToothRef)
}

func TestCreateWorksheetRejectsUnknownDentist(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(f.ctx, domain.CreateRequest{
		DentistID: f.node.Generate(),
	})
	assert.ErrorIs(t, err, domain.ErrDentistNotFound)
}

func TestCreateWorksheetRejectsNegativePrice(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(f.ctx, domain.CreateRequest{
		DentistID:  f.dentist.ID,
		PriceCents: -1,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)
}

func TestCreateWorksheetRequiresLabContext(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), domain.CreateRequest{DentistID: f.dentist.ID})
	assert.ErrorIs(t, err, domain.ErrInvalidLab)
}

func TestStartProduction(t *testing.T) {
	f := newFixture(t)
	worksheet := f.createWorksheet(t)

	updated, err := f.svc.StartProduction(f.ctx, worksheet.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProduction, updated.Status)

	// Second start is an invalid transition.
	_, err = f.svc.StartProduction(f.ctx, worksheet.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestRollbackRequiresReason(t *testing.T) {
	f := newFixture(t)
	worksheet := f.createWorksheet(t)
	_, err := f.svc.StartProduction(f.ctx, worksheet.ID)
	require.NoError(t, err)

	_, err = f.svc.Rollback(f.ctx, worksheet.ID, "   ")
	assert.ErrorIs(t, err, domain.ErrReasonRequired)
}

func TestRollbackRecordsAuditEntry(t *testing.T) {
	f := newFixture(t)
	worksheet := f.createWorksheet(t)
	_, err := f.svc.StartProduction(f.ctx, worksheet.ID)
	require.NoError(t, err)

	updated, err := f.svc.Rollback(f.ctx, worksheet.ID, "wrong shade ordered")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, updated.Status)

	var entry auditdomain.AuditLog
	require.NoError(t, f.db.Where("action = ?", "worksheet.rolled_back").First(&entry).Error)
	assert.Equal(t, "worksheet", entry.TargetType)
	assert.Equal(t, "wrong shade ordered", entry.Metadata["reason"])
	assert.Equal(t, domain.StatusInProduction, entry.OldValues["status"])
	assert.Equal(t, domain.StatusDraft, entry.NewValues["status"])
}

func TestRollbackFromDraftFails(t *testing.T) {
	f := newFixture(t)
	worksheet := f.createWorksheet(t)

	_, err := f.svc.Rollback(f.ctx, worksheet.ID, "never started")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestRollbackBlockedByNonDraftInvoice(t *testing.T) {
	f := newFixture(t)
	worksheet := f.createWorksheet(t)
	_, err := f.svc.StartProduction(f.ctx, worksheet.ID)
	require.NoError(t, err)

	f.linkInvoice(t, worksheet.ID, invoicedomain.StatusOpen)

	_, err = f.svc.Rollback(f.ctx, worksheet.ID, "client changed mind")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestRollbackAllowedWithDraftInvoiceLink(t *testing.T) {
	f := newFixture(t)
	worksheet := f.createWorksheet(t)
	_, err := f.svc.StartProduction(f.ctx, worksheet.ID)
	require.NoError(t, err)

	f.linkInvoice(t, worksheet.ID, invoicedomain.StatusDraft)

	updated, err := f.svc.Rollback(f.ctx, worksheet.ID, "still billable later")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, updated.Status)
}

func TestGetReportsDerivedInvoicedState(t *testing.T) {
	f := newFixture(t)
	worksheet := f.createWorksheet(t)

	fetched, err := f.svc.Get(f.ctx, worksheet.ID)
	require.NoError(t, err)
	assert.False(t, fetched.Invoiced)
	assert.Equal(t, domain.StatusDraft, fetched.EffectiveStatus())

	f.linkInvoice(t, worksheet.ID, invoicedomain.StatusSent)

	fetched, err = f.svc.Get(f.ctx, worksheet.ID)
	require.NoError(t, err)
	assert.True(t, fetched.Invoiced)
	assert.Equal(t, domain.StatusInvoiced, fetched.EffectiveStatus())
}

func TestListFoldsInvoicedState(t *testing.T) {
	f := newFixture(t)
	first := f.createWorksheet(t)
	second := f.createWorksheet(t)
	f.linkInvoice(t, second.ID, invoicedomain.StatusOpen)

	resp, err := f.svc.List(f.ctx, domain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Worksheets, 2)

	byID := map[snowflake.ID]domain.Worksheet{}
	for _, item := range resp.Worksheets {
		byID[item.ID] = item
	}
	assert.False(t, byID[first.ID].Invoiced)
	assert.True(t, byID[second.ID].Invoiced)
}

func (f *fixture) linkInvoice(t *testing.T, worksheetID snowflake.ID, status string) {
	t.Helper()
	invoice := &invoicedomain.Invoice{
		ID:        f.node.Generate(),
		LabID:     f.labID,
		Number:    fmt.Sprintf("INV-%s", f.node.Generate()),
		DentistID: f.dentist.ID,
		Status:    status,
		IssueDate: time.Now().UTC(),
	}
	require.NoError(t, f.db.Create(invoice).Error)
	item := &invoicedomain.InvoiceLineItem{
		ID:          f.node.Generate(),
		LabID:       f.labID,
		InvoiceID:   invoice.ID,
		WorksheetID: &worksheetID,
		Kind:        invoicedomain.KindWorksheet,
		Description: "crown",
		Quantity:    1,
	}
	require.NoError(t, f.db.Create(item).Error)
}
