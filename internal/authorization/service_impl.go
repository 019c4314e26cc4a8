package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/crownlab/crownlab/internal/audit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectLab         = "lab"
	ObjectWorksheet   = "worksheet"
	ObjectInvoice     = "invoice"
	ObjectProduct     = "product"
	ObjectBankAccount = "bank_account"
	ObjectDentist     = "dentist"
	ObjectAuditLog    = "audit_log"
)

const (
	ActionLabView   = "lab.view"
	ActionLabManage = "lab.manage"

	ActionWorksheetView     = "worksheet.view"
	ActionWorksheetCreate   = "worksheet.create"
	ActionWorksheetStart    = "worksheet.start"
	ActionWorksheetRollback = "worksheet.rollback"

	ActionInvoiceView   = "invoice.view"
	ActionInvoiceCreate = "invoice.create"
	ActionInvoiceUpdate = "invoice.update"
	ActionInvoiceSend   = "invoice.send"
	ActionInvoiceRender = "invoice.render"

	ActionProductView       = "product.view"
	ActionProductCreate     = "product.create"
	ActionProductUpdate     = "product.update"
	ActionProductBulkUpdate = "product.bulk_update"
	ActionProductBulkDelete = "product.bulk_delete"

	ActionBankAccountView   = "bank_account.view"
	ActionBankAccountManage = "bank_account.manage"

	ActionDentistView   = "dentist.view"
	ActionDentistCreate = "dentist.create"
	ActionDentistUpdate = "dentist.update"

	ActionAuditLogView = "audit_log.view"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor string, labID string, object string, action string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ErrInvalidActor
	}
	labID = strings.TrimSpace(labID)
	if labID == "" {
		return ErrInvalidLab
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject, roleName, actorType, actorID, err := s.resolveActor(ctx, actor, labID)
	if err != nil {
		s.auditDenied(ctx, actorType, actorID, labID, object, action)
		return err
	}

	domain := fmt.Sprintf("lab:%s", labID)
	if err := s.ensureGrouping(subject, roleName, domain); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.auditDenied(ctx, actorType, actorID, labID, object, action)
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) resolveActor(ctx context.Context, actor string, labID string) (string, string, string, *string, error) {
	if actor == "system" {
		return actor, "role:system", "system", nil, nil
	}
	if strings.HasPrefix(actor, "user:") {
		userIDRaw := strings.TrimPrefix(actor, "user:")
		userID, err := snowflake.ParseString(userIDRaw)
		if err != nil || userID == 0 {
			return "", "", "", nil, ErrInvalidActor
		}
		parsedLabID, err := snowflake.ParseString(labID)
		userIDStr := userID.String()
		if err != nil || parsedLabID == 0 {
			return actor, "", "user", &userIDStr, ErrInvalidLab
		}
		role, err := s.roleForUser(ctx, parsedLabID, userID)
		if err != nil {
			return actor, "", "user", &userIDStr, err
		}
		roleName := fmt.Sprintf("role:%s", strings.ToLower(role))
		return actor, roleName, "user", &userIDStr, nil
	}
	return "", "", "", nil, ErrInvalidActor
}

func (s *ServiceImpl) roleForUser(ctx context.Context, labID snowflake.ID, userID snowflake.ID) (string, error) {
	var row struct {
		Role string `gorm:"column:role"`
	}
	if err := s.db.WithContext(ctx).Raw(
		`SELECT role
		 FROM lab_members
		 WHERE lab_id = ? AND user_id = ?
		 LIMIT 1`,
		labID,
		userID,
	).Scan(&row).Error; err != nil {
		return "", err
	}

	role := strings.TrimSpace(row.Role)
	if role == "" {
		return "", ErrForbidden
	}
	return role, nil
}

func (s *ServiceImpl) ensureGrouping(subject string, roleName string, domain string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName, domain)
	return err
}

func (s *ServiceImpl) auditDenied(ctx context.Context, actorType string, actorID *string, labID string, object string, action string) {
	if s.auditSvc == nil {
		return
	}
	parsedLabID, err := snowflake.ParseString(labID)
	if err != nil || parsedLabID == 0 {
		return
	}
	targetID := "capability"
	_ = s.auditSvc.Record(ctx, auditdomain.Entry{
		LabID:      &parsedLabID,
		ActorType:  actorType,
		ActorID:    actorID,
		Action:     "authorization.denied",
		TargetType: "authorization",
		TargetID:   &targetID,
		Metadata: map[string]any{
			"object": object,
			"action": action,
			"lab_id": labID,
		},
	})
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Every role can see the lab profile
		{"role:viewer", ObjectLab, ActionLabView},
		{"role:production", ObjectLab, ActionLabView},
		{"role:invoicing", ObjectLab, ActionLabView},

		// Viewer permissions (read-only on operational data)
		{"role:viewer", ObjectWorksheet, ActionWorksheetView},
		{"role:viewer", ObjectInvoice, ActionInvoiceView},
		{"role:viewer", ObjectProduct, ActionProductView},
		{"role:viewer", ObjectDentist, ActionDentistView},

		// Production permissions (worksheet state machine)
		{"role:production", ObjectWorksheet, ActionWorksheetView},
		{"role:production", ObjectWorksheet, ActionWorksheetCreate},
		{"role:production", ObjectWorksheet, ActionWorksheetStart},
		{"role:production", ObjectWorksheet, ActionWorksheetRollback},
		{"role:production", ObjectDentist, ActionDentistView},
		{"role:production", ObjectProduct, ActionProductView},

		// Invoicing permissions
		{"role:invoicing", ObjectWorksheet, ActionWorksheetView},
		{"role:invoicing", ObjectInvoice, ActionInvoiceView},
		{"role:invoicing", ObjectInvoice, ActionInvoiceCreate},
		{"role:invoicing", ObjectInvoice, ActionInvoiceUpdate},
		{"role:invoicing", ObjectInvoice, ActionInvoiceSend},
		{"role:invoicing", ObjectInvoice, ActionInvoiceRender},
		{"role:invoicing", ObjectDentist, ActionDentistView},
		{"role:invoicing", ObjectDentist, ActionDentistCreate},
		{"role:invoicing", ObjectDentist, ActionDentistUpdate},
		{"role:invoicing", ObjectProduct, ActionProductView},
		{"role:invoicing", ObjectBankAccount, ActionBankAccountView},

		// Admin permissions
		{"role:admin", ObjectLab, "*"},
		{"role:admin", ObjectWorksheet, "*"},
		{"role:admin", ObjectInvoice, "*"},
		{"role:admin", ObjectProduct, "*"},
		{"role:admin", ObjectBankAccount, "*"},
		{"role:admin", ObjectDentist, "*"},
		{"role:admin", ObjectAuditLog, "*"},

		// System permissions (migrations, seeds, reconciliation)
		{"role:system", ObjectLab, "*"},
		{"role:system", ObjectWorksheet, "*"},
		{"role:system", ObjectInvoice, "*"},
		{"role:system", ObjectProduct, "*"},
		{"role:system", ObjectBankAccount, "*"},
		{"role:system", ObjectDentist, "*"},
		{"role:system", ObjectAuditLog, "*"},
	}

	for _, policy := range policies {
		if len(policy) < 3 {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
