package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	auditdomain "github.com/crownlab/crownlab/internal/audit/domain"
	dentistdomain "github.com/crownlab/crownlab/internal/dentist/domain"
	"github.com/crownlab/crownlab/internal/labctx"
	"github.com/crownlab/crownlab/internal/reference"
	"github.com/crownlab/crownlab/internal/worksheet/domain"
	"github.com/crownlab/crownlab/pkg/db/pagination"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Repo        domain.Repository
	DentistRepo dentistdomain.Repository
	AuditSvc    auditdomain.Service
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	repo        domain.Repository
	dentistRepo dentistdomain.Repository
	auditSvc    auditdomain.Service
}

func NewService(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("worksheet.service"),
		genID:       p.GenID,
		repo:        p.Repo,
		dentistRepo: p.DentistRepo,
		auditSvc:    p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Worksheet, error) {
	labID, ok := labctx.LabIDFromContext(ctx)
	if !ok || labID == 0 {
		return nil, domain.ErrInvalidLab
	}
	if req.PriceCents < 0 {
		return nil, domain.ErrInvalidPrice
	}

	if _, err := s.dentistRepo.FindByID(ctx, labID, req.DentistID); err != nil {
		if errors.Is(err, dentistdomain.ErrNotFound) {
			return nil, domain.ErrDentistNotFound
		}
		return nil, err
	}

	toothRefs := make([]string, 0, len(req.ToothRefs))
	for _, code := range req.ToothRefs {
		code = strings.TrimSpace(code)
		if !reference.ValidToothCode(code) {
			return nil, fmt.Errorf("%w: %s", domain.ErrInvalidToothRef, code)
		}
		toothRefs = append(toothRefs, code)
	}

	id := s.genID.Generate()
	number := strings.TrimSpace(req.Number)
	if number == "" {
		number = fmt.Sprintf("WS-%s", id.String())
	}

	worksheet := &domain.Worksheet{
		ID:          id,
		LabID:       labID,
		Number:      number,
		DentistID:   req.DentistID,
		PatientName: strings.TrimSpace(req.PatientName),
		Description: strings.TrimSpace(req.Description),
		ToothRefs:   datatypes.NewJSONSlice(toothRefs),
		PriceCents:  req.PriceCents,
		Status:      domain.StatusDraft,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, worksheet); err != nil {
			return err
		}
		targetID := worksheet.ID.String()
		return s.auditSvc.RecordTx(ctx, tx, auditdomain.Entry{
			Action:     "worksheet.created",
			TargetType: "worksheet",
			TargetID:   &targetID,
			NewValues: map[string]any{
				"number":      worksheet.Number,
				"dentist_id":  worksheet.DentistID.String(),
				"status":      worksheet.Status,
				"price_cents": worksheet.PriceCents,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("worksheet created",
		zap.String("worksheet_id", worksheet.ID.String()),
		zap.String("number", worksheet.Number),
	)
	return worksheet, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Worksheet, error) {
	labID, ok := labctx.LabIDFromContext(ctx)
	if !ok || labID == 0 {
		return nil, domain.ErrInvalidLab
	}

	worksheet, err := s.repo.FindByID(ctx, s.db, labID, id)
	if err != nil {
		return nil, err
	}

	invoiced, err := s.repo.HasNonDraftInvoiceLink(ctx, s.db, labID, worksheet.ID)
	if err != nil {
		return nil, err
	}
	worksheet.Invoiced = invoiced
	return worksheet, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	labID, ok := labctx.LabIDFromContext(ctx)
	if !ok || labID == 0 {
		return domain.ListResponse{}, domain.ErrInvalidLab
	}

	var cursor *domain.WorksheetCursor
	if strings.TrimSpace(req.PageToken) != "" {
		decoded, err := pagination.DecodeCursor(req.PageToken)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidPageToken
		}
		createdAt, err := time.Parse(time.RFC3339Nano, decoded.CreatedAt)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidPageToken
		}
		id, err := snowflake.ParseString(strings.TrimSpace(decoded.ID))
		if err != nil || id == 0 {
			return domain.ListResponse{}, domain.ErrInvalidPageToken
		}
		cursor = &domain.WorksheetCursor{ID: id, CreatedAt: createdAt}
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

	pageInfo := pagination.BuildCursorPageInfo(items, int32(pageSize), func(item *domain.Worksheet) string {
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

	ids := make([]snowflake.ID, 0, len(items))
	for _, item := range items {
		if item != nil {
			ids = append(ids, item.ID)
		}
	}
	invoiced, err := s.repo.InvoicedSet(ctx, s.db, labID, ids)
	if err != nil {
		return domain.ListResponse{}, err
	}

	worksheets := make([]domain.Worksheet, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		item.Invoiced = invoiced[item.ID]
		worksheets = append(worksheets, *item)
	}

	resp := domain.ListResponse{Worksheets: worksheets}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) StartProduction(ctx context.Context, id snowflake.ID) (*domain.Worksheet, error) {
	labID, ok := labctx.LabIDFromContext(ctx)
	if !ok || labID == 0 {
		return nil, domain.ErrInvalidLab
	}

	var worksheet *domain.Worksheet
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.FindByID(ctx, tx, labID, id)
		if err != nil {
			return err
		}
		if current.Status != domain.StatusDraft {
			return domain.ErrInvalidTransition
		}

		affected, err := s.repo.UpdateStatus(ctx, tx, labID, id, domain.StatusDraft, domain.StatusInProduction)
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrInvalidTransition
		}

		targetID := id.String()
		if err := s.auditSvc.RecordTx(ctx, tx, auditdomain.Entry{
			Action:     "worksheet.production_started",
			TargetType: "worksheet",
			TargetID:   &targetID,
			OldValues:  map[string]any{"status": domain.StatusDraft},
			NewValues:  map[string]any{"status": domain.StatusInProduction},
		}); err != nil {
			return err
		}

		current.Status = domain.StatusInProduction
		worksheet = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("worksheet production started", zap.String("worksheet_id", id.String()))
	return worksheet, nil
}

func (s *Service) Rollback(ctx context.Context, id snowflake.ID, reason string) (*domain.Worksheet, error) {
	labID, ok := labctx.LabIDFromContext(ctx)
	if !ok || labID == 0 {
		return nil, domain.ErrInvalidLab
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domain.ErrReasonRequired
	}

	var worksheet *domain.Worksheet
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.repo.FindByID(ctx, tx, labID, id)
		if err != nil {
			return err
		}
		if current.Status != domain.StatusInProduction {
			return domain.ErrInvalidTransition
		}

		invoiced, err := s.repo.HasNonDraftInvoiceLink(ctx, tx, labID, id)
		if err != nil {
			return err
		}
		if invoiced {
			return domain.ErrInvalidTransition
		}

		affected, err := s.repo.UpdateStatus(ctx, tx, labID, id, domain.StatusInProduction, domain.StatusDraft)
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrInvalidTransition
		}

		targetID := id.String()
		if err := s.auditSvc.RecordTx(ctx, tx, auditdomain.Entry{
			Action:     "worksheet.rolled_back",
			TargetType: "worksheet",
			TargetID:   &targetID,
			OldValues:  map[string]any{"status": domain.StatusInProduction},
			NewValues:  map[string]any{"status": domain.StatusDraft},
			Metadata:   map[string]any{"reason": reason},
		}); err != nil {
			return err
		}

		current.Status = domain.StatusDraft
		worksheet = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("worksheet rolled back",
		zap.String("worksheet_id", id.String()),
		zap.String("reason", reason),
	)
	return worksheet, nil
}
