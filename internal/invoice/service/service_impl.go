package service

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/crownlab/crownlab/internal/audit/domain"
	bankdomain "github.com/crownlab/crownlab/internal/bankaccount/domain"
	dentistdomain "github.com/crownlab/crownlab/internal/dentist/domain"
	"github.com/crownlab/crownlab/internal/invoice/domain"
	labdomain "github.com/crownlab/crownlab/internal/lab/domain"
	"github.com/crownlab/crownlab/internal/labctx"
	"github.com/crownlab/crownlab/internal/providers/email"
	"github.com/crownlab/crownlab/internal/providers/pdf"
	worksheetdomain "github.com/crownlab/crownlab/internal/worksheet/domain"
	"github.com/crownlab/crownlab/pkg/db/pagination"
)

//go:embed templates/invoice_email.html
var invoiceEmailTemplate string

var emailTmpl = template.Must(template.New("invoice_email").Parse(invoiceEmailTemplate))

const defaultCurrency = "EUR"

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Repo          domain.Repository
	DentistRepo   dentistdomain.Repository
	WorksheetRepo worksheetdomain.Repository
	BankRepo      bankdomain.Repository
	LabRepo       labdomain.Repository
	Email         email.Provider
	Renderer      pdf.Renderer
	AuditSvc      auditdomain.Service
}

type Service struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	repo          domain.Repository
	dentistRepo   dentistdomain.Repository
	worksheetRepo worksheetdomain.Repository
	bankRepo      bankdomain.Repository
	labRepo       labdomain.Repository
	email         email.Provider
	renderer      pdf.Renderer
	auditSvc      auditdomain.Service
}

func NewService(p Params) domain.Service {
	return &Service{
		db:            p.DB,
		log:           p.Log.Named("invoice.service"),
		genID:         p.GenID,
		repo:          p.Repo,
		dentistRepo:   p.DentistRepo,
		worksheetRepo: p.WorksheetRepo,
		bankRepo:      p.BankRepo,
		labRepo:       p.LabRepo,
		email:         p.Email,
		renderer:      p.Renderer,
		auditSvc:      p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Invoice, error) {
	labID, ok := labctx.LabIDFromContext(ctx)
	if !ok || labID == 0 {
		return nil, domain.ErrInvalidLab
	}
	worksheetIDs := dedupeIDs(req.WorksheetIDs)
	if len(worksheetIDs) == 0 && len(req.CustomItems) == 0 {
		return nil, domain.ErrNoWorksheets
	}

	if _, err := s.dentistRepo.FindByID(ctx, labID, req.DentistID); err != nil {
		if errors.Is(err, dentistdomain.ErrNotFound) {
			return nil, domain.ErrDentistNotFound
		}
		return nil, err
	}

	customItems, err := validateCustomItems(req.CustomItems)
	if err != nil {
		return nil, err
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	issueDate := time.Now().UTC().Truncate(24 * time.Hour)
	if req.IssueDate != nil {
		issueDate = req.IssueDate.UTC().Truncate(24 * time.Hour)
	}

	status := domain.StatusDraft
	if req.Finalize {
		status = domain.StatusOpen
	}

	invoiceID := s.genID.Generate()
	invoice := &domain.Invoice{
		ID:        invoiceID,
		LabID:     labID,
		Number:    fmt.Sprintf("INV-%s", invoiceID.String()),
		DentistID: req.DentistID,
		Status:    status,
		IssueDate: issueDate,
		Currency:  currency,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items := make([]domain.InvoiceLineItem, 0, len(worksheetIDs)+len(customItems))

		for _, worksheetID := range worksheetIDs {
			worksheet, err := s.worksheetRepo.FindByID(ctx, tx, labID, worksheetID)
			if err != nil {
				if errors.Is(err, worksheetdomain.ErrNotFound) {
					return domain.ErrWorksheetNotFound
				}
				return err
			}
			if worksheet.DentistID != req.DentistID {
				return domain.ErrDentistMismatch
			}

			description := worksheet.Description
			if description == "" {
				description = fmt.Sprintf("Worksheet %s", worksheet.Number)
			}
			worksheetRef := worksheet.ID
			items = append(items, domain.InvoiceLineItem{
				ID:             s.genID.Generate(),
				LabID:          labID,
				InvoiceID:      invoiceID,
				WorksheetID:    &worksheetRef,
				Kind:           domain.KindWorksheet,
				Description:    description,
				Quantity:       1,
				UnitPriceCents: worksheet.PriceCents,
				AmountCents:    worksheet.PriceCents,
			})
		}

		invoiced, err := s.repo.WorksheetsInvoiced(ctx, tx, labID, worksheetIDs)
		if err != nil {
			return err
		}
		if len(invoiced) > 0 {
			return domain.ErrWorksheetAlreadyInvoiced
		}

		for _, item := range customItems {
			items = append(items, domain.InvoiceLineItem{
				ID:             s.genID.Generate(),
				LabID:          labID,
				InvoiceID:      invoiceID,
				Kind:           item.Kind,
				Description:    item.Description,
				Quantity:       item.Quantity,
				UnitPriceCents: item.UnitPriceCents,
				AmountCents:    item.Quantity * item.UnitPriceCents,
			})
		}

		invoice.TotalCents = sumAmounts(items)

		if err := s.repo.InsertInvoice(ctx, tx, invoice); err != nil {
			return err
		}
		if err := s.repo.InsertLineItems(ctx, tx, items); err != nil {
			return err
		}
		invoice.LineItems = items

		targetID := invoice.ID.String()
		return s.auditSvc.RecordTx(ctx, tx, auditdomain.Entry{
			Action:     "invoice.created",
			TargetType: "invoice",
			TargetID:   &targetID,
			NewValues: map[string]any{
				"number":      invoice.Number,
				"dentist_id":  invoice.DentistID.String(),
				"status":      invoice.Status,
				"total_cents": invoice.TotalCents,
				"line_items":  len(items),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("invoice created",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("number", invoice.Number),
		zap.Int64("total_cents", invoice.TotalCents),
	)
	return invoice, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Invoice, error) {
	labID, ok := labctx.LabIDFromContext(ctx)
	if !ok || labID == 0 {
		return nil, domain.ErrInvalidLab
	}

	invoice, err := s.repo.FindByID(ctx, s.db, labID, id)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListLineItems(ctx, s.db, labID, id)
	if err != nil {
		return nil, err
	}
	invoice.LineItems = items
	return invoice, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	labID, ok := labctx.LabIDFromContext(ctx)
	if !ok || labID == 0 {
		return domain.ListResponse{}, domain.ErrInvalidLab
	}

	var cursor *domain.InvoiceCursor
	if strings.TrimSpace(req.PageToken) != "" {
		decoded, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidPageToken
		}
		createdAt, err := time.Parse(time.RFC3339Nano, decoded.CreatedAt)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidPageToken
		}
		cursorID, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
		if err != nil || cursorID == 0 {
			return domain.ListResponse{}, domain.ErrInvalidPageToken
		}
		cursor = &domain.InvoiceCursor{ID: cursorID, CreatedAt: createdAt}
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 250 {
		pageSize = 250
	}

	items, err := s.repo.List(ctx, s.db, domain.ListFilter{
		LabID:     labID,
		DentistID: req.DentistID,
		Status:    strings.ToUpper(strings.TrimSpace(req.Status)),
		Cursor:    cursor,
		Limit:     pageSize,
	})
	if err != nil {
		return domain.ListResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, int32(pageSize), func(item *domain.Invoice) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        item.ID.String(),
			CreatedAt: item.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > pageSize {
		items = items[:pageSize]
	}

	invoices := make([]domain.Invoice, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		invoices = append(invoices, *item)
	}

	resp := domain.ListResponse{Invoices: invoices}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) SendEmail(ctx context.Context, id snowflake.ID, recipientOverride string) (domain.SendEmailResult, error) {
	labID, ok := labctx.LabIDFromContext(ctx)
	if !ok || labID == 0 {
		return domain.SendEmailResult{}, domain.ErrInvalidLab
	}

	invoice, err := s.repo.FindByID(ctx, s.db, labID, id)
	if err != nil {
		return domain.SendEmailResult{}, err
	}
	items, err := s.repo.ListLineItems(ctx, s.db, labID, id)
	if err != nil {
		return domain.SendEmailResult{}, err
	}

	dentist, err := s.dentistRepo.FindByID(ctx, labID, invoice.DentistID)
	if err != nil {
		return domain.SendEmailResult{}, err
	}

	recipient := strings.TrimSpace(recipientOverride)
	if recipient == "" {
		recipient = strings.TrimSpace(dentist.Email)
	}
	if recipient == "" {
		return domain.SendEmailResult{}, domain.ErrNoRecipient
	}

	lab, err := s.labRepo.FindByID(ctx, labID)
	if err != nil {
		return domain.SendEmailResult{}, err
	}

	body, err := s.renderEmailBody(lab, dentist, invoice, items)
	if err != nil {
		return domain.SendEmailResult{}, err
	}

	messageID := uuid.NewString()
	msg := email.Message{
		To:        recipient,
		Subject:   fmt.Sprintf("Invoice %s from %s", invoice.Number, lab.Name),
		HTMLBody:  body,
		MessageID: messageID,
	}
	if err := s.email.Send(ctx, msg); err != nil {
		return domain.SendEmailResult{}, fmt.Errorf("%w: %v", domain.ErrDispatchFailure, err)
	}

	// Only the first successful send of a draft transitions to SENT.
	if invoice.Status == domain.StatusDraft {
		sentAt := time.Now().UTC()
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			affected, err := s.repo.UpdateStatus(ctx, tx, labID, id, domain.StatusDraft, domain.StatusSent, &sentAt)
			if err != nil {
				return err
			}
			if affected == 0 {
				// Lost the race with a concurrent send; the transition
				// already happened.
				return nil
			}
			targetID := id.String()
			return s.auditSvc.RecordTx(ctx, tx, auditdomain.Entry{
				Action:     "invoice.sent",
				TargetType: "invoice",
				TargetID:   &targetID,
				OldValues:  map[string]any{"status": domain.StatusDraft},
				NewValues:  map[string]any{"status": domain.StatusSent},
				Metadata:   map[string]any{"sent_to": recipient, "message_id": messageID},
			})
		})
		if err != nil {
			return domain.SendEmailResult{}, err
		}
	}

	s.log.Info("invoice email sent",
		zap.String("invoice_id", id.String()),
		zap.String("sent_to", recipient),
	)
	return domain.SendEmailResult{
		Success:   true,
		Message:   fmt.Sprintf("invoice %s sent", invoice.Number),
		MessageID: messageID,
		SentTo:    recipient,
	}, nil
}

func (s *Service) ReplaceCustomLineItems(ctx context.Context, id snowflake.ID, items []domain.CustomItem) (*domain.Invoice, error) {
	labID, ok := labctx.LabIDFromContext(ctx)
	if !ok || labID == 0 {
		return nil, domain.ErrInvalidLab
	}

	customItems, err := validateCustomItems(items)
	if err != nil {
		return nil, err
	}

	var invoice *domain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.FindByID(ctx, tx, labID, id)
		if err != nil {
			return err
		}
		if current.Status != domain.StatusDraft {
			return domain.ErrInvalidTransition
		}
		oldTotal := current.TotalCents

		if err := s.repo.DeleteCustomLineItems(ctx, tx, labID, id); err != nil {
			return err
		}

		newItems := make([]domain.InvoiceLineItem, 0, len(customItems))
		for _, item := range customItems {
			newItems = append(newItems, domain.InvoiceLineItem{
				ID:             s.genID.Generate(),
				LabID:          labID,
				InvoiceID:      id,
				Kind:           item.Kind,
				Description:    item.Description,
				Quantity:       item.Quantity,
				UnitPriceCents: item.UnitPriceCents,
				AmountCents:    item.Quantity * item.UnitPriceCents,
			})
		}
		if err := s.repo.InsertLineItems(ctx, tx, newItems); err != nil {
			return err
		}

		allItems, err := s.repo.ListLineItems(ctx, tx, labID, id)
		if err != nil {
			return err
		}
		newTotal := sumAmounts(allItems)
		if err := s.repo.UpdateTotal(ctx, tx, labID, id, newTotal); err != nil {
			return err
		}

		targetID := id.String()
		if err := s.auditSvc.RecordTx(ctx, tx, auditdomain.Entry{
			Action:     "invoice.line_items_replaced",
			TargetType: "invoice",
			TargetID:   &targetID,
			OldValues:  map[string]any{"total_cents": oldTotal},
			NewValues:  map[string]any{"total_cents": newTotal, "custom_items": len(newItems)},
		}); err != nil {
			return err
		}

		current.TotalCents = newTotal
		current.LineItems = allItems
		invoice = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

func (s *Service) RecomputeTotal(ctx context.Context, id snowflake.ID) (domain.RecomputeResult, error) {
	labID, ok := labctx.LabIDFromContext(ctx)
	if !ok || labID == 0 {
		return domain.RecomputeResult{}, domain.ErrInvalidLab
	}

	invoice, err := s.repo.FindByID(ctx, s.db, labID, id)
	if err != nil {
		return domain.RecomputeResult{}, err
	}
	items, err := s.repo.ListLineItems(ctx, s.db, labID, id)
	if err != nil {
		return domain.RecomputeResult{}, err
	}

	recomputed := sumAmounts(items)
	return domain.RecomputeResult{
		InvoiceID:       invoice.ID,
		StoredCents:     invoice.TotalCents,
		RecomputedCents: recomputed,
		InSync:          invoice.TotalCents == recomputed,
	}, nil
}

func (s *Service) Render(ctx context.Context, id snowflake.ID) ([]byte, error) {
	labID, ok := labctx.LabIDFromContext(ctx)
	if !ok || labID == 0 {
		return nil, domain.ErrInvalidLab
	}

	invoice, err := s.repo.FindByID(ctx, s.db, labID, id)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListLineItems(ctx, s.db, labID, id)
	if err != nil {
		return nil, err
	}
	dentist, err := s.dentistRepo.FindByID(ctx, labID, invoice.DentistID)
	if err != nil {
		return nil, err
	}
	lab, err := s.labRepo.FindByID(ctx, labID)
	if err != nil {
		return nil, err
	}

	doc := pdf.Document{
		Number:         invoice.Number,
		Status:         invoice.Status,
		IssueDate:      invoice.IssueDate,
		Currency:       invoice.Currency,
		LabName:        lab.Name,
		LabAddress:     lab.Address,
		LabEmail:       lab.Email,
		LabPhone:       lab.Phone,
		DentistName:    dentist.Name,
		ClinicName:     dentist.ClinicName,
		DentistAddress: dentist.Address,
		TotalCents:     invoice.TotalCents,
	}

	accounts, err := s.bankRepo.List(ctx, labID)
	if err != nil {
		return nil, err
	}
	if len(accounts) > 0 {
		doc.BankName = accounts[0].BankName
		doc.IBAN = accounts[0].IBAN
		doc.BIC = accounts[0].BIC
		doc.AccountHolder = accounts[0].AccountHolder
	}

	for _, item := range items {
		doc.Items = append(doc.Items, pdf.LineItem{
			Kind:           item.Kind,
			Description:    item.Description,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			AmountCents:    item.AmountCents,
		})
	}

	return s.renderer.RenderInvoice(ctx, doc)
}

type emailItem struct {
	Description string
	Amount      string
}

type emailData struct {
	LabName       string
	InvoiceNumber string
	DentistName   string
	IssueDate     string
	Currency      string
	Items         []emailItem
	Total         string
}

func (s *Service) renderEmailBody(lab *labdomain.Lab, dentist *dentistdomain.Dentist, invoice *domain.Invoice, items []domain.InvoiceLineItem) (string, error) {
	data := emailData{
		LabName:       lab.Name,
		InvoiceNumber: invoice.Number,
		DentistName:   dentist.Name,
		IssueDate:     invoice.IssueDate.Format("2006-01-02"),
		Currency:      invoice.Currency,
		Total:         pdf.FormatCents(invoice.TotalCents),
	}
	for _, item := range items {
		description := item.Description
		if description == "" {
			description = item.Kind
		}
		data.Items = append(data.Items, emailItem{
			Description: description,
			Amount:      pdf.FormatCents(item.AmountCents),
		})
	}

	var buf bytes.Buffer
	if err := emailTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func validateCustomItems(items []domain.CustomItem) ([]domain.CustomItem, error) {
	out := make([]domain.CustomItem, 0, len(items))
	for _, item := range items {
		kind := strings.ToUpper(strings.TrimSpace(item.Kind))
		if kind == "" {
			kind = domain.KindCustom
		}
		if !domain.ValidKind(kind) || kind == domain.KindWorksheet {
			return nil, domain.ErrInvalidKind
		}

		quantity := item.Quantity
		if quantity == 0 {
			quantity = 1
		}
		if quantity < 0 {
			return nil, domain.ErrInvalidQuantity
		}

		amount := quantity * item.UnitPriceCents
		if amount < 0 && !domain.KindAllowsNegative(kind) {
			return nil, domain.ErrNegativeAmount
		}

		out = append(out, domain.CustomItem{
			Kind:           kind,
			Description:    strings.TrimSpace(item.Description),
			Quantity:       quantity,
			UnitPriceCents: item.UnitPriceCents,
		})
	}
	return out, nil
}

// dedupeIDs drops zero and repeated IDs so one worksheet can never
// produce two derived line items on the same invoice.
func dedupeIDs(ids []snowflake.ID) []snowflake.ID {
	seen := make(map[snowflake.ID]struct{}, len(ids))
	out := make([]snowflake.ID, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func sumAmounts(items []domain.InvoiceLineItem) int64 {
	var total int64
	for _, item := range items {
		total += item.AmountCents
	}
	return total
}
