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
	bankdomain "github.com/crownlab/crownlab/internal/bankaccount/domain"
	bankrepository "github.com/crownlab/crownlab/internal/bankaccount/repository"
	dentistdomain "github.com/crownlab/crownlab/internal/dentist/domain"
	dentistrepository "github.com/crownlab/crownlab/internal/dentist/repository"
	"github.com/crownlab/crownlab/internal/invoice/domain"
	"github.com/crownlab/crownlab/internal/invoice/repository"
	labdomain "github.com/crownlab/crownlab/internal/lab/domain"
	labrepository "github.com/crownlab/crownlab/internal/lab/repository"
	"github.com/crownlab/crownlab/internal/labctx"
	"github.com/crownlab/crownlab/internal/providers/email"
	"github.com/crownlab/crownlab/internal/providers/pdf"
	worksheetdomain "github.com/crownlab/crownlab/internal/worksheet/domain"
	worksheetrepository "github.com/crownlab/crownlab/internal/worksheet/repository"
)

type fakeEmailProvider struct {
	sent []email.Message
	err  error
}

func (f *fakeEmailProvider) Send(_ context.Context, msg email.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fixture struct {
	db      *gorm.DB
	node    *snowflake.Node
	svc     domain.Service
	email   *fakeEmailProvider
	labID   snowflake.ID
	dentist *dentistdomain.Dentist
	ctx     context.Context
}

var testDBSeq int

func newFixture(t *testing.T) *fixture {
	t.Helper()

	testDBSeq++
	dsn := fmt.Sprintf("file:invoice_svc_%d?mode=memory&cache=shared", testDBSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&labdomain.Lab{},
		&dentistdomain.Dentist{},
		&worksheetdomain.Worksheet{},
		&domain.Invoice{},
		&domain.InvoiceLineItem{},
		&bankdomain.BankAccount{},
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

	provider := &fakeEmailProvider{}
	svc := NewService(Params{
		DB:            db,
		Log:           log,
		GenID:         node,
		Repo:          repository.Provide(db),
		DentistRepo:   dentistrepository.Provide(db),
		WorksheetRepo: worksheetrepository.Provide(db),
		BankRepo:      bankrepository.Provide(db),
		LabRepo:       labrepository.Provide(db),
		Email:         provider,
		Renderer:      pdf.NewRenderer(log),
		AuditSvc:      auditSvc,
	})

	labID := node.Generate()
	require.NoError(t, db.Create(&labdomain.Lab{
		ID:   labID,
		Name: "Crown Dental Lab",
		Slug: "crown-dental-lab",
	}).Error)

	dentist := &dentistdomain.Dentist{
		ID:    node.Generate(),
		LabID: labID,
		Name:  "Dr. Weber",
		Email: "weber@example.test",
	}
	require.NoError(t, db.Create(dentist).Error)

	return &fixture{
		db:      db,
		node:    node,
		svc:     svc,
		email:   provider,
		labID:   labID,
		dentist: dentist,
		ctx:     labctx.WithLabID(context.Background(), int64(labID)),
	}
}

func (f *fixture) createWorksheet(t *testing.T, priceCents int64, status string) *worksheetdomain.Worksheet {
	t.Helper()
	worksheet := &worksheetdomain.Worksheet{
		ID:         f.node.Generate(),
		LabID:      f.labID,
		Number:     fmt.Sprintf("WS-%s", f.node.Generate()),
		DentistID:  f.dentist.ID,
		PriceCents: priceCents,
		Status:     status,
	}
	require.NoError(t, f.db.Create(worksheet).Error)
	return worksheet
}

func TestCreateInvoiceComputesSignedTotal(t *testing.T) {
	f := newFixture(t)
	first := f.createWorksheet(t, 5000, worksheetdomain.StatusInProduction)
	second := f.createWorksheet(t, 3000, worksheetdomain.StatusInProduction)

	invoice, err := f.svc.Create(f.ctx, domain.CreateRequest{
		DentistID:    f.dentist.ID,
		WorksheetIDs: []snowflake.ID{first.ID, second.ID},
		CustomItems: []domain.CustomItem{
			{Kind: domain.KindDiscount, Description: "loyalty discount", Quantity: 1, UnitPriceCents: -1000},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusDraft, invoice.Status)
	assert.EqualValues(t, 7000, invoice.TotalCents)
	assert.Len(t, invoice.LineItems, 3)
	assert.Equal(t, "EUR", invoice.Currency)
}

func TestCreateInvoiceDedupesRepeatedWorksheetIDs(t *testing.T) {
	f := newFixture(t)
	worksheet := f.createWorksheet(t, 5000, worksheetdomain.StatusInProduction)

	invoice, err := f.svc.Create(f.ctx, domain.CreateRequest{
		DentistID:    f.dentist.ID,
		WorksheetIDs: []snowflake.ID{worksheet.ID, worksheet.ID},
	})
	require.NoError(t, err)

	// A repeated ID must not bill the worksheet twice.
	require.Len(t, invoice.LineItems, 1)
	assert.EqualValues(t, 5000, invoice.TotalCents)

	var itemCount int64
	require.NoError(t, f.db.Model(&domain.InvoiceLineItem{}).
		Where("invoice_id = ?", invoice.ID).
		Count(&itemCount).Error)
	assert.EqualValues(t, 1, itemCount)
}

func TestCreateInvoiceFinalizeOpensImmediately(t *testing.T) {
	f := newFixture(t)
	worksheet := f.createWorksheet(t, 4000, worksheetdomain.StatusInProduction)

	invoice, err := f.svc.Create(f.ctx, domain.CreateRequest{
		DentistID:    f.dentist.ID,
		WorksheetIDs: []snowflake.ID{worksheet.ID},
		Finalize:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOpen, invoice.Status)
}

func TestCreateInvoiceRejectsDentistMismatch(t *testing.T) {
	f := newFixture(t)
	other := &dentistdomain.Dentist{ID: f.node.Generate(), LabID: f.labID, Name: "Dr. Braun"}
	require.NoError(t, f.db.Create(other).Error)
	worksheet := f.createWorksheet(t, 4000, worksheetdomain.StatusInProduction)

	_, err := f.svc.Create(f.ctx, domain.CreateRequest{
		DentistID:    other.ID,
		WorksheetIDs: []snowflake.ID{worksheet.ID},
	})
	assert.ErrorIs(t, err, domain.ErrDentistMismatch)
}

func TestCreateInvoiceRejectsAlreadyInvoicedWorksheet(t *testing.T) {
	f := newFixture(t)
	worksheet := f.createWorksheet(t, 4000, worksheetdomain.StatusInProduction)

	_, err := f.svc.Create(f.ctx, domain.CreateRequest{
		DentistID:    f.dentist.ID,
		WorksheetIDs: []snowflake.ID{worksheet.ID},
		Finalize:     true,
	})
	require.NoError(t, err)

	_, err = f.svc.Create(f.ctx, domain.CreateRequest{
		DentistID:    f.dentist.ID,
		WorksheetIDs: []snowflake.ID{worksheet.ID},
	})
	assert.ErrorIs(t, err, domain.ErrWorksheetAlreadyInvoiced)
}

func TestCreateInvoiceAllowsSecondDraftLink(t *testing.T) {
	f := newFixture(t)
	worksheet := f.createWorksheet(t, 4000, worksheetdomain.StatusInProduction)

	_, err := f.svc.Create(f.ctx, domain.CreateRequest{
		DentistID:    f.dentist.ID,
		WorksheetIDs: []snowflake.ID{worksheet.ID},
	})
	require.NoError(t, err)

	// A draft link does not consume the worksheet.
	_, err = f.svc.Create(f.ctx, domain.CreateRequest{
		DentistID:    f.dentist.ID,
		WorksheetIDs: []snowflake.ID{worksheet.ID},
	})
	assert.NoError(t, err)
}

func TestCreateInvoiceRejectsNegativeCustomAmount(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(f.ctx, domain.CreateRequest{
		DentistID: f.dentist.ID,
		CustomItems: []domain.CustomItem{
			{Kind: domain.KindCustom, Description: "repair", Quantity: 1, UnitPriceCents: -500},
		},
	})
	assert.ErrorIs(t, err, domain.ErrNegativeAmount)
}

func TestCreateInvoiceRejectsWorksheetKindCustomItem(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(f.ctx, domain.CreateRequest{
		DentistID: f.dentist.ID,
		CustomItems: []domain.CustomItem{
			{Kind: domain.KindWorksheet, Description: "sneaky", Quantity: 1, UnitPriceCents: 100},
		},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidKind)
}

func TestSendEmailTransitionsDraftOnce(t *testing.T) {
	f := newFixture(t)
	worksheet := f.createWorksheet(t, 4000, worksheetdomain.StatusInProduction)
	invoice, err := f.svc.Create(f.ctx, domain.CreateRequest{
		DentistID:    f.dentist.ID,
		WorksheetIDs: []snowflake.ID{worksheet.ID},
	})
	require.NoError(t, err)

	result, err := f.svc.SendEmail(f.ctx, invoice.ID, "")
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, f.dentist.Email, result.SentTo)
	require.Len(t, f.email.sent, 1)

	sent, err := f.svc.Get(f.ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSent, sent.Status)
	require.NotNil(t, sent.SentAt)
	firstSentAt := *sent.SentAt

	// Re-send dispatches again but never re-transitions.
	_, err = f.svc.SendEmail(f.ctx, invoice.ID, "")
	require.NoError(t, err)
	assert.Len(t, f.email.sent, 2)

	again, err := f.svc.Get(f.ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSent, again.Status)
	require.NotNil(t, again.SentAt)
	assert.Equal(t, firstSentAt, *again.SentAt)
}

func TestSendEmailDispatchFailureKeepsDraft(t *testing.T) {
	f := newFixture(t)
	worksheet := f.createWorksheet(t, 4000, worksheetdomain.StatusInProduction)
	invoice, err := f.svc.Create(f.ctx, domain.CreateRequest{
		DentistID:    f.dentist.ID,
		WorksheetIDs: []snowflake.ID{worksheet.ID},
	})
	require.NoError(t, err)

	f.email.err = fmt.Errorf("smtp connect refused")
	_, err = f.svc.SendEmail(f.ctx, invoice.ID, "")
	assert.ErrorIs(t, err, domain.ErrDispatchFailure)

	current, err := f.svc.Get(f.ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, current.Status)
	assert.Nil(t, current.SentAt)
}

func TestSendEmailRequiresRecipient(t *testing.T) {
	f := newFixture(t)
	noEmail := &dentistdomain.Dentist{ID: f.node.Generate(), LabID: f.labID, Name: "Dr. Ohne"}
	require.NoError(t, f.db.Create(noEmail).Error)
	worksheet := &worksheetdomain.Worksheet{
		ID:        f.node.Generate(),
		LabID:     f.labID,
		Number:    "WS-NO-EMAIL",
		DentistID: noEmail.ID,
		Status:    worksheetdomain.StatusInProduction,
	}
	require.NoError(t, f.db.Create(worksheet).Error)

	invoice, err := f.svc.Create(f.ctx, domain.CreateRequest{
		DentistID:    noEmail.ID,
		WorksheetIDs: []snowflake.ID{worksheet.ID},
	})
	require.NoError(t, err)

	_, err = f.svc.SendEmail(f.ctx, invoice.ID, "")
	assert.ErrorIs(t, err, domain.ErrNoRecipient)

	result, err := f.svc.SendEmail(f.ctx, invoice.ID, "billing@example.test")
	require.NoError(t, err)
	assert.Equal(t, "billing@example.test", result.SentTo)
}

func TestReplaceCustomLineItems(t *testing.T) {
	f := newFixture(t)
	worksheet := f.createWorksheet(t, 5000, worksheetdomain.StatusInProduction)
	invoice, err := f.svc.Create(f.ctx, domain.CreateRequest{
		DentistID:    f.dentist.ID,
		WorksheetIDs: []snowflake.ID{worksheet.ID},
		CustomItems: []domain.CustomItem{
			{Kind: domain.KindShipping, Description: "courier", Quantity: 1, UnitPriceCents: 900},
		},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 5900, invoice.TotalCents)

	updated, err := f.svc.ReplaceCustomLineItems(f.ctx, invoice.ID, []domain.CustomItem{
		{Kind: domain.KindAdjustment, Description: "goodwill", Quantity: 1, UnitPriceCents: -500},
		{Kind: domain.KindCustom, Description: "rush fee", Quantity: 2, UnitPriceCents: 1000},
	})
	require.NoError(t, err)

	// Worksheet item survives, custom items are swapped.
	assert.EqualValues(t, 5000-500+2000, updated.TotalCents)
	assert.Len(t, updated.LineItems, 3)

	kinds := map[string]int{}
	for _, item := range updated.LineItems {
		kinds[item.Kind]++
	}
	assert.Equal(t, 1, kinds[domain.KindWorksheet])
	assert.Equal(t, 1, kinds[domain.KindAdjustment])
	assert.Equal(t, 1, kinds[domain.KindCustom])
	assert.Zero(t, kinds[domain.KindShipping])
}

func TestReplaceCustomLineItemsRequiresDraft(t *testing.T) {
	f := newFixture(t)
	worksheet := f.createWorksheet(t, 5000, worksheetdomain.StatusInProduction)
	invoice, err := f.svc.Create(f.ctx, domain.CreateRequest{
		DentistID:    f.dentist.ID,
		WorksheetIDs: []snowflake.ID{worksheet.ID},
		Finalize:     true,
	})
	require.NoError(t, err)

	_, err = f.svc.ReplaceCustomLineItems(f.ctx, invoice.ID, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestRecomputeTotalIsPure(t *testing.T) {
	f := newFixture(t)
	worksheet := f.createWorksheet(t, 5000, worksheetdomain.StatusInProduction)
	invoice, err := f.svc.Create(f.ctx, domain.CreateRequest{
		DentistID:    f.dentist.ID,
		WorksheetIDs: []snowflake.ID{worksheet.ID},
	})
	require.NoError(t, err)

	result, err := f.svc.RecomputeTotal(f.ctx, invoice.ID)
	require.NoError(t, err)
	assert.True(t, result.InSync)
	assert.EqualValues(t, 5000, result.RecomputedCents)

	// Tamper with the cached total out of band.
	require.NoError(t, f.db.Model(&domain.Invoice{}).
		Where("id = ?", invoice.ID).
		Update("total_cents", 9999).Error)

	result, err = f.svc.RecomputeTotal(f.ctx, invoice.ID)
	require.NoError(t, err)
	assert.False(t, result.InSync)
	assert.EqualValues(t, 9999, result.StoredCents)
	assert.EqualValues(t, 5000, result.RecomputedCents)

	// The stored value stays untouched.
	current, err := f.svc.Get(f.ctx, invoice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 9999, current.TotalCents)
}

func TestRenderProducesPDF(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Create(&bankdomain.BankAccount{
		ID:        f.node.Generate(),
		LabID:     f.labID,
		BankName:  "Sparkasse",
		IBAN:      "DE02120300000000202051",
		IsDefault: true,
	}).Error)

	worksheet := f.createWorksheet(t, 5000, worksheetdomain.StatusInProduction)
	invoice, err := f.svc.Create(f.ctx, domain.CreateRequest{
		DentistID:    f.dentist.ID,
		WorksheetIDs: []snowflake.ID{worksheet.ID},
	})
	require.NoError(t, err)

	pdfBytes, err := f.svc.Render(f.ctx, invoice.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, pdfBytes)
	assert.Equal(t, "%PDF", string(pdfBytes[:4]))
}
