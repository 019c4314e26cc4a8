package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/crownlab/crownlab/internal/audit/domain"
	"github.com/crownlab/crownlab/internal/bankaccount/domain"
	"github.com/crownlab/crownlab/internal/labctx"
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
		log:      p.Log.Named("bankaccount.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.BankAccount, error) {
	labID, ok := labctx.LabIDFromContext(ctx)
	if !ok || labID == 0 {
		return nil, domain.ErrInvalidLab
	}

	bankName := strings.TrimSpace(req.BankName)
	if bankName == "" {
		return nil, domain.ErrBankNameRequired
	}
	iban := normalizeIBAN(req.IBAN)
	if iban == "" {
		return nil, domain.ErrIBANRequired
	}

	if req.IsDefault {
		if err := s.repo.ClearDefault(ctx, labID); err != nil {
			return nil, err
		}
	}

	account := &domain.BankAccount{
		ID:            s.genID.Generate(),
		LabID:         labID,
		BankName:      bankName,
		IBAN:          iban,
		BIC:           strings.ToUpper(strings.TrimSpace(req.BIC)),
		AccountHolder: strings.TrimSpace(req.AccountHolder),
		IsDefault:     req.IsDefault,
	}
	if err := s.repo.Insert(ctx, account); err != nil {
		return nil, err
	}

	targetID := account.ID.String()
	_ = s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:     "bank_account.created",
		TargetType: "bank_account",
		TargetID:   &targetID,
		NewValues:  snapshot(account),
	})
	return account, nil
}

func (s *Service) Update(ctx context.Context, id snowflake.ID, req domain.UpdateRequest) (*domain.BankAccount, error) {
	labID, ok := labctx.LabIDFromContext(ctx)
	if !ok || labID == 0 {
		return nil, domain.ErrInvalidLab
	}

	account, err := s.repo.FindByID(ctx, labID, id)
	if err != nil {
		return nil, err
	}
	before := snapshot(account)

	if req.BankName != nil {
		bankName := strings.TrimSpace(*req.BankName)
		if bankName == "" {
			return nil, domain.ErrBankNameRequired
		}
		account.BankName = bankName
	}
	if req.IBAN != nil {
		iban := normalizeIBAN(*req.IBAN)
		if iban == "" {
			return nil, domain.ErrIBANRequired
		}
		account.IBAN = iban
	}
	if req.BIC != nil {
		account.BIC = strings.ToUpper(strings.TrimSpace(*req.BIC))
	}
	if req.AccountHolder != nil {
		account.AccountHolder = strings.TrimSpace(*req.AccountHolder)
	}
	if req.IsDefault != nil && *req.IsDefault != account.IsDefault {
		if *req.IsDefault {
			if err := s.repo.ClearDefault(ctx, labID); err != nil {
				return nil, err
			}
		}
		account.IsDefault = *req.IsDefault
	}

	if err := s.repo.Update(ctx, account); err != nil {
		return nil, err
	}

	targetID := account.ID.String()
	_ = s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:     "bank_account.updated",
		TargetType: "bank_account",
		TargetID:   &targetID,
		OldValues:  before,
		NewValues:  snapshot(account),
	})
	return account, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.BankAccount, error) {
	labID, ok := labctx.LabIDFromContext(ctx)
	if !ok || labID == 0 {
		return nil, domain.ErrInvalidLab
	}
	return s.repo.FindByID(ctx, labID, id)
}

func (s *Service) List(ctx context.Context) ([]domain.BankAccount, error) {
	labID, ok := labctx.LabIDFromContext(ctx)
	if !ok || labID == 0 {
		return nil, domain.ErrInvalidLab
	}
	return s.repo.List(ctx, labID)
}

func (s *Service) Delete(ctx context.Context, id snowflake.ID) error {
	labID, ok := labctx.LabIDFromContext(ctx)
	if !ok || labID == 0 {
		return domain.ErrInvalidLab
	}

	account, err := s.repo.FindByID(ctx, labID, id)
	if err != nil {
		return err
	}

	affected, err := s.repo.Delete(ctx, labID, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}

	targetID := id.String()
	_ = s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:     "bank_account.deleted",
		TargetType: "bank_account",
		TargetID:   &targetID,
		OldValues:  snapshot(account),
	})
	return nil
}

func (s *Service) Default(ctx context.Context) (*domain.BankAccount, error) {
	accounts, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, domain.ErrNotFound
	}
	// List orders default-first, oldest next.
	return &accounts[0], nil
}

func normalizeIBAN(iban string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(iban), " ", ""))
}

func snapshot(a *domain.BankAccount) map[string]any {
	return map[string]any{
		"bank_name":      a.BankName,
		"iban":           a.IBAN,
		"bic":            a.BIC,
		"account_holder": a.AccountHolder,
		"is_default":     a.IsDefault,
	}
}
