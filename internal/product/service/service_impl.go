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
	"github.com/crownlab/crownlab/internal/labctx"
	"github.com/crownlab/crownlab/internal/product/domain"
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
		log:      p.Log.Named("product.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Product, error) {
	labID, ok := labctx.LabIDFromContext(ctx)
	if !ok || labID == 0 {
		return nil, domain.ErrInvalidLab
	}

	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, domain.ErrCodeRequired
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrNameRequired
	}
	category := strings.ToUpper(strings.TrimSpace(req.Category))
	if !domain.ValidCategory(category) {
		return nil, domain.ErrInvalidCategory
	}
	if req.UnitPriceCents < 0 {
		return nil, domain.ErrInvalidPrice
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	product := &domain.Product{
		ID:             s.genID.Generate(),
		LabID:          labID,
		Code:           code,
		Name:           name,
		Category:       category,
		UnitPriceCents: req.UnitPriceCents,
		Active:         active,
	}
	if err := s.repo.Insert(ctx, s.db, product); err != nil {
		return nil, err
	}

	targetID := product.ID.String()
	_ = s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:     "product.created",
		TargetType: "product",
		TargetID:   &targetID,
		NewValues:  snapshot(product),
	})
	return product, nil
}

func (s *Service) Update(ctx context.Context, id snowflake.ID, req domain.UpdateRequest) (*domain.Product, error) {
	labID, ok := labctx.LabIDFromContext(ctx)
	if !ok || labID == 0 {
		return nil, domain.ErrInvalidLab
	}

	product, err := s.repo.FindByID(ctx, s.db, labID, id)
	if err != nil {
		return nil, err
	}
	before := snapshot(product)

	if req.Code != nil {
		code := strings.TrimSpace(*req.Code)
		if code == "" {
			return nil, domain.ErrCodeRequired
		}
		product.Code = code
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrNameRequired
		}
		product.Name = name
	}
	if req.Category != nil {
		category := strings.ToUpper(strings.TrimSpace(*req.Category))
		if !domain.ValidCategory(category) {
			return nil, domain.ErrInvalidCategory
		}
		product.Category = category
	}
	if req.UnitPriceCents != nil {
		if *req.UnitPriceCents < 0 {
			return nil, domain.ErrInvalidPrice
		}
		product.UnitPriceCents = *req.UnitPriceCents
	}
	if req.Active != nil {
		product.Active = *req.Active
	}

	if err := s.repo.Update(ctx, s.db, product); err != nil {
		return nil, err
	}

	targetID := product.ID.String()
	_ = s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:     "product.updated",
		TargetType: "product",
		TargetID:   &targetID,
		OldValues:  before,
		NewValues:  snapshot(product),
	})
	return product, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Product, error) {
	labID, ok := labctx.LabIDFromContext(ctx)
	if !ok || labID == 0 {
		return nil, domain.ErrInvalidLab
	}
	return s.repo.FindByID(ctx, s.db, labID, id)
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	labID, ok := labctx.LabIDFromContext(ctx)
	if !ok || labID == 0 {
		return domain.ListResponse{}, domain.ErrInvalidLab
	}

	var cursor *domain.ProductCursor
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
		cursor = &domain.ProductCursor{ID: cursorID, CreatedAt: createdAt}
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 250 {
		pageSize = 250
	}

	category := strings.ToUpper(strings.TrimSpace(req.Category))
	items, err := s.repo.List(ctx, s.db, domain.ListFilter{
		LabID:    labID,
		Category: category,
		Active:   req.Active,
		Query:    req.Query,
		Cursor:   cursor,
		Limit:    pageSize,
	})
	if err != nil {
		return domain.ListResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, int32(pageSize), func(item *domain.Product) string {
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

	products := make([]domain.Product, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		products = append(products, *item)
	}

	resp := domain.ListResponse{Products: products}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) BulkUpdate(ctx context.Context, ids []snowflake.ID, patch domain.BulkPatch) (domain.BulkResult, error) {
	labID, ok := labctx.LabIDFromContext(ctx)
	if !ok || labID == 0 {
		return domain.BulkResult{}, domain.ErrInvalidLab
	}
	ids = dedupe(ids)
	if len(ids) == 0 {
		return domain.BulkResult{}, domain.ErrEmptyIDSet
	}
	if patch.Active == nil && patch.Category == nil {
		return domain.BulkResult{}, domain.ErrEmptyPatch
	}
	if patch.Category != nil {
		category := strings.ToUpper(strings.TrimSpace(*patch.Category))
		if !domain.ValidCategory(category) {
			return domain.BulkResult{}, domain.ErrInvalidCategory
		}
		patch.Category = &category
	}

	var affected int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		count, err := s.repo.CountByIDs(ctx, tx, labID, ids)
		if err != nil {
			return err
		}
		if count != int64(len(ids)) {
			return domain.ErrNotFound
		}

		affected, err = s.repo.UpdateByIDs(ctx, tx, labID, ids, patch)
		if err != nil {
			return err
		}

		return s.auditSvc.RecordTx(ctx, tx, auditdomain.Entry{
			Action:     "product.bulk_updated",
			TargetType: "product",
			NewValues:  patchValues(patch),
			Metadata: map[string]any{
				"ids":   idStrings(ids),
				"count": affected,
			},
		})
	})
	if err != nil {
		return domain.BulkResult{}, err
	}

	s.log.Info("products bulk updated", zap.Int64("count", affected))
	return domain.BulkResult{Count: affected}, nil
}

func (s *Service) BulkDelete(ctx context.Context, ids []snowflake.ID) (domain.BulkResult, error) {
	labID, ok := labctx.LabIDFromContext(ctx)
	if !ok || labID == 0 {
		return domain.BulkResult{}, domain.ErrInvalidLab
	}
	ids = dedupe(ids)
	if len(ids) == 0 {
		return domain.BulkResult{}, domain.ErrEmptyIDSet
	}

	var affected int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		count, err := s.repo.CountByIDs(ctx, tx, labID, ids)
		if err != nil {
			return err
		}
		if count != int64(len(ids)) {
			return domain.ErrNotFound
		}

		affected, err = s.repo.DeleteByIDs(ctx, tx, labID, ids)
		if err != nil {
			return err
		}

		return s.auditSvc.RecordTx(ctx, tx, auditdomain.Entry{
			Action:     "product.bulk_deleted",
			TargetType: "product",
			Metadata: map[string]any{
				"ids":   idStrings(ids),
				"count": affected,
			},
		})
	})
	if err != nil {
		return domain.BulkResult{}, err
	}

	s.log.Info("products bulk deleted", zap.Int64("count", affected))
	return domain.BulkResult{Count: affected}, nil
}

func dedupe(ids []snowflake.ID) []snowflake.ID {
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

func idStrings(ids []snowflake.ID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

func patchValues(patch domain.BulkPatch) map[string]any {
	values := map[string]any{}
	if patch.Active != nil {
		values["active"] = *patch.Active
	}
	if patch.Category != nil {
		values["category"] = *patch.Category
	}
	return values
}

func snapshot(p *domain.Product) map[string]any {
	return map[string]any{
		"code":             p.Code,
		"name":             p.Name,
		"category":         p.Category,
		"unit_price_cents": p.UnitPriceCents,
		"active":           p.Active,
	}
}
