package authorization

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
	labdomain "github.com/crownlab/crownlab/internal/lab/domain"
)

var testDBSeq int

func newTestService(t *testing.T) (Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	testDBSeq++
	dsn := fmt.Sprintf("file:authz_svc_%d?mode=memory&cache=shared", testDBSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&labdomain.LabMember{}, &auditdomain.AuditLog{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zap.NewNop()

	enforcer, err := NewEnforcer(db)
	require.NoError(t, err)

	auditSvc := auditservice.NewService(auditservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  auditrepository.Provide(),
	})
	svc := NewService(Params{
		DB:       db,
		Log:      log,
		Enforcer: enforcer,
		AuditSvc: auditSvc,
	})
	return svc, db, node
}

func addMember(t *testing.T, db *gorm.DB, node *snowflake.Node, labID snowflake.ID, role string) snowflake.ID {
	t.Helper()
	userID := node.Generate()
	require.NoError(t, db.Create(&labdomain.LabMember{
		ID:     node.Generate(),
		LabID:  labID,
		UserID: userID,
		Role:   role,
	}).Error)
	return userID
}

func TestAdminAllowedBulkUpdate(t *testing.T) {
	svc, db, node := newTestService(t)
	labID := node.Generate()
	userID := addMember(t, db, node, labID, labdomain.RoleAdmin)

	err := svc.Authorize(context.Background(), "user:"+userID.String(), labID.String(), ObjectProduct, ActionProductBulkUpdate)
	assert.NoError(t, err)
}

func TestNonAdminRolesDeniedBulkUpdate(t *testing.T) {
	svc, db, node := newTestService(t)
	labID := node.Generate()

	for _, role := range []string{labdomain.RoleViewer, labdomain.RoleProduction, labdomain.RoleInvoicing} {
		t.Run(role, func(t *testing.T) {
			userID := addMember(t, db, node, labID, role)
			err := svc.Authorize(context.Background(), "user:"+userID.String(), labID.String(), ObjectProduct, ActionProductBulkUpdate)
			assert.ErrorIs(t, err, ErrForbidden)
		})
	}
}

func TestViewerAllowedReads(t *testing.T) {
	svc, db, node := newTestService(t)
	labID := node.Generate()
	userID := addMember(t, db, node, labID, labdomain.RoleViewer)
	actor := "user:" + userID.String()

	assert.NoError(t, svc.Authorize(context.Background(), actor, labID.String(), ObjectProduct, ActionProductView))
	assert.NoError(t, svc.Authorize(context.Background(), actor, labID.String(), ObjectWorksheet, ActionWorksheetView))
	assert.ErrorIs(t, svc.Authorize(context.Background(), actor, labID.String(), ObjectAuditLog, ActionAuditLogView), ErrForbidden)
}

func TestProductionCanDriveWorksheetsButNotInvoices(t *testing.T) {
	svc, db, node := newTestService(t)
	labID := node.Generate()
	userID := addMember(t, db, node, labID, labdomain.RoleProduction)
	actor := "user:" + userID.String()

	assert.NoError(t, svc.Authorize(context.Background(), actor, labID.String(), ObjectWorksheet, ActionWorksheetStart))
	assert.NoError(t, svc.Authorize(context.Background(), actor, labID.String(), ObjectWorksheet, ActionWorksheetRollback))
	assert.ErrorIs(t, svc.Authorize(context.Background(), actor, labID.String(), ObjectInvoice, ActionInvoiceSend), ErrForbidden)
}

func TestNonMemberDenied(t *testing.T) {
	svc, _, node := newTestService(t)
	labID := node.Generate()
	userID := node.Generate()

	err := svc.Authorize(context.Background(), "user:"+userID.String(), labID.String(), ObjectProduct, ActionProductView)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestSystemActorAllowed(t *testing.T) {
	svc, _, node := newTestService(t)
	labID := node.Generate()

	err := svc.Authorize(context.Background(), "system", labID.String(), ObjectProduct, ActionProductBulkDelete)
	assert.NoError(t, err)
}

func TestDenialIsAudited(t *testing.T) {
	svc, db, node := newTestService(t)
	labID := node.Generate()
	userID := addMember(t, db, node, labID, labdomain.RoleViewer)

	err := svc.Authorize(context.Background(), "user:"+userID.String(), labID.String(), ObjectProduct, ActionProductBulkUpdate)
	require.ErrorIs(t, err, ErrForbidden)

	var entry auditdomain.AuditLog
	require.NoError(t, db.Where("action = ?", "authorization.denied").First(&entry).Error)
	assert.Equal(t, "authorization", entry.TargetType)
	assert.Equal(t, ActionProductBulkUpdate, entry.Metadata["action"])
	assert.Equal(t, ObjectProduct, entry.Metadata["object"])
}
