package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/crownlab/crownlab/internal/lab/domain"
)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

type ServiceParams struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

func NewService(p ServiceParams) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("lab.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateLabRequest) (*domain.Lab, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	lab := &domain.Lab{
		ID:      s.genID.Generate(),
		Name:    name,
		Slug:    slug.Make(name),
		Email:   strings.TrimSpace(req.Email),
		Phone:   strings.TrimSpace(req.Phone),
		Address: strings.TrimSpace(req.Address),
	}
	if err := s.repo.Insert(ctx, lab); err != nil {
		return nil, err
	}

	s.log.Info("lab created",
		zap.String("lab_id", lab.ID.String()),
		zap.String("slug", lab.Slug),
	)
	return lab, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.Lab, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) GetBySlug(ctx context.Context, slugName string) (*domain.Lab, error) {
	return s.repo.FindBySlug(ctx, slugName)
}

func (s *Service) Update(ctx context.Context, id snowflake.ID, req domain.UpdateLabRequest) (*domain.Lab, error) {
	lab, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		lab.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		lab.Email = strings.TrimSpace(*req.Email)
	}
	if req.Phone != nil {
		lab.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Address != nil {
		lab.Address = strings.TrimSpace(*req.Address)
	}

	if err := s.repo.Update(ctx, lab); err != nil {
		return nil, err
	}
	return lab, nil
}

func (s *Service) AddMember(ctx context.Context, labID snowflake.ID, userID snowflake.ID, role string) (*domain.LabMember, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	if !domain.ValidRole(role) {
		return nil, domain.ErrInvalidRole
	}
	if _, err := s.repo.FindByID(ctx, labID); err != nil {
		return nil, err
	}

	member := &domain.LabMember{
		ID:     s.genID.Generate(),
		LabID:  labID,
		UserID: userID,
		Role:   role,
	}
	if err := s.repo.UpsertMember(ctx, member); err != nil {
		return nil, err
	}
	return s.repo.FindMember(ctx, labID, userID)
}

func (s *Service) GetMember(ctx context.Context, labID snowflake.ID, userID snowflake.ID) (*domain.LabMember, error) {
	return s.repo.FindMember(ctx, labID, userID)
}

func (s *Service) ListMembers(ctx context.Context, labID snowflake.ID) ([]domain.LabMember, error) {
	return s.repo.ListMembers(ctx, labID)
}

func (s *Service) MembershipsForUser(ctx context.Context, userID snowflake.ID) ([]domain.LabMember, error) {
	return s.repo.ListMembershipsForUser(ctx, userID)
}
