package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/crownlab/crownlab/internal/audit/domain"
	"github.com/crownlab/crownlab/internal/dentist/domain"
	"github.com/crownlab/crownlab/internal/labctx"
	"github.com/crownlab/crownlab/pkg/db/pagination"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	AuditSvc auditdomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	auditSvc auditdomain.Service
}

func NewService(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("dentist.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Dentist, error) {
	labID, ok := labctx.LabIDFromContext(ctx)
	if !ok || labID == 0 {
		return nil, domain.ErrInvalidLab
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	dentist := &domain.Dentist{
		ID:         s.genID.Generate(),
		LabID:      labID,
		Name:       name,
		ClinicName: strings.TrimSpace(req.ClinicName),
		Email:      strings.TrimSpace(req.Email),
		Phone:      strings.TrimSpace(req.Phone),
		Address:    strings.TrimSpace(req.Address),
	}
	if err := s.repo.Insert(ctx, dentist); err != nil {
		return nil, err
	}

	targetID := dentist.ID.String()
	_ = s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:     "dentist.created",
		TargetType: "dentist",
		TargetID:   &targetID,
		NewValues:  snapshot(dentist),
	})

	return dentist, nil
}

func (s *Service) Update(ctx context.Context, id snowflake.ID, req domain.UpdateRequest) (*domain.Dentist, error) {
	labID, ok := labctx.LabIDFromContext(ctx)
	if !ok || labID == 0 {
		return nil, domain.ErrInvalidLab
	}

	dentist, err := s.repo.FindByID(ctx, labID, id)
	if err != nil {
		return nil, err
	}
	before := snapshot(dentist)

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		dentist.Name = name
	}
	if req.ClinicName != nil {
		dentist.ClinicName = strings.TrimSpace(*req.ClinicName)
	}
	if req.Email != nil {
		dentist.Email = strings.TrimSpace(*req.Email)
	}
	if req.Phone != nil {
		dentist.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Address != nil {
		dentist.Address = strings.TrimSpace(*req.Address)
	}

	if err := s.repo.Update(ctx, dentist); err != nil {
		return nil, err
	}

	targetID := dentist.ID.String()
	_ = s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:     "dentist.updated",
		TargetType: "dentist",
		TargetID:   &targetID,
		OldValues:  before,
		NewValues:  snapshot(dentist),
	})

	return dentist, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Dentist, error) {
	labID, ok := labctx.LabIDFromContext(ctx)
	if !ok || labID == 0 {
		return nil, domain.ErrInvalidLab
	}
	return s.repo.FindByID(ctx, labID, id)
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	labID, ok := labctx.LabIDFromContext(ctx)
	if !ok || labID == 0 {
		return domain.ListResponse{}, domain.ErrInvalidLab
	}

	var cursor *domain.DentistCursor
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
		cursor = &domain.DentistCursor{ID: id, CreatedAt: createdAt}
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 250 {
		pageSize = 250
	}

	items, err := s.repo.List(ctx, domain.ListFilter{
		LabID:  labID,
		Query:  req.Query,
		Cursor: cursor,
		Limit:  pageSize,
	})
	if err != nil {
		return domain.ListResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, int32(pageSize), func(item *domain.Dentist) string {
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

	dentists := make([]domain.Dentist, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		dentists = append(dentists, *item)
	}

	resp := domain.ListResponse{Dentists: dentists}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func snapshot(d *domain.Dentist) map[string]any {
	return map[string]any{
		"name":        d.Name,
		"clinic_name": d.ClinicName,
		"email":       d.Email,
		"phone":       d.Phone,
		"address":     d.Address,
	}
}
