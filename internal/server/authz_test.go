package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/crownlab/crownlab/internal/audit/domain"
	auditrepository "github.com/crownlab/crownlab/internal/audit/repository"
	auditservice "github.com/crownlab/crownlab/internal/audit/service"
	authdomain "github.com/crownlab/crownlab/internal/auth/domain"
	authrepository "github.com/crownlab/crownlab/internal/auth/repository"
	authservice "github.com/crownlab/crownlab/internal/auth/service"
	"github.com/crownlab/crownlab/internal/auth/session"
	"github.com/crownlab/crownlab/internal/authorization"
	bankdomain "github.com/crownlab/crownlab/internal/bankaccount/domain"
	bankrepository "github.com/crownlab/crownlab/internal/bankaccount/repository"
	bankservice "github.com/crownlab/crownlab/internal/bankaccount/service"
	"github.com/crownlab/crownlab/internal/config"
	dentistdomain "github.com/crownlab/crownlab/internal/dentist/domain"
	dentistrepository "github.com/crownlab/crownlab/internal/dentist/repository"
	dentistservice "github.com/crownlab/crownlab/internal/dentist/service"
	invoicedomain "github.com/crownlab/crownlab/internal/invoice/domain"
	invoicerepository "github.com/crownlab/crownlab/internal/invoice/repository"
	invoiceservice "github.com/crownlab/crownlab/internal/invoice/service"
	labdomain "github.com/crownlab/crownlab/internal/lab/domain"
	labrepository "github.com/crownlab/crownlab/internal/lab/repository"
	labservice "github.com/crownlab/crownlab/internal/lab/service"
	"github.com/crownlab/crownlab/internal/metrics"
	productdomain "github.com/crownlab/crownlab/internal/product/domain"
	productrepository "github.com/crownlab/crownlab/internal/product/repository"
	productservice "github.com/crownlab/crownlab/internal/product/service"
	"github.com/crownlab/crownlab/internal/providers/email"
	"github.com/crownlab/crownlab/internal/providers/pdf"
	"github.com/crownlab/crownlab/internal/ratelimit"
	worksheetdomain "github.com/crownlab/crownlab/internal/worksheet/domain"
	worksheetrepository "github.com/crownlab/crownlab/internal/worksheet/repository"
	worksheetservice "github.com/crownlab/crownlab/internal/worksheet/service"
)

var serverTestSeq int

type serverFixture struct {
	srv     *Server
	db      *gorm.DB
	node    *snowflake.Node
	authSvc authdomain.Service
	labID   snowflake.ID
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	serverTestSeq++
	dsn := fmt.Sprintf("file:server_authz_%d?mode=memory&cache=shared", serverTestSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&authdomain.User{},
		&authdomain.Session{},
		&labdomain.Lab{},
		&labdomain.LabMember{},
		&dentistdomain.Dentist{},
		&worksheetdomain.Worksheet{},
		&invoicedomain.Invoice{},
		&invoicedomain.InvoiceLineItem{},
		&productdomain.Product{},
		&bankdomain.BankAccount{},
		&auditdomain.AuditLog{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zap.NewNop()
	cfg := config.Config{SessionTTLHours: 1}

	auditSvc := auditservice.NewService(auditservice.Params{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  auditrepository.Provide(),
	})

	enforcer, err := authorization.NewEnforcer(db)
	require.NoError(t, err)
	authzSvc := authorization.NewService(authorization.Params{
		DB:       db,
		Log:      log,
		Enforcer: enforcer,
		AuditSvc: auditSvc,
	})

	users, sessions := authrepository.Provide(db)
	authSvc := authservice.NewService(authservice.ServiceParams{
		DB:       db,
		Log:      log,
		GenID:    node,
		Config:   cfg,
		Users:    users,
		Sessions: sessions,
	})

	labSvc := labservice.NewService(labservice.ServiceParams{
		DB:    db,
		Log:   log,
		GenID: node,
		Repo:  labrepository.Provide(db),
	})
	dentistSvc := dentistservice.NewService(dentistservice.Params{
		DB:       db,
		Log:      log,
		GenID:    node,
		Repo:     dentistrepository.Provide(db),
		AuditSvc: auditSvc,
	})
	worksheetSvc := worksheetservice.NewService(worksheetservice.Params{
		DB:          db,
		Log:         log,
		GenID:       node,
		Repo:        worksheetrepository.Provide(db),
		DentistRepo: dentistrepository.Provide(db),
		AuditSvc:    auditSvc,
	})
	invoiceSvc := invoiceservice.NewService(invoiceservice.Params{
		DB:            db,
		Log:           log,
		GenID:         node,
		Repo:          invoicerepository.Provide(db),
		DentistRepo:   dentistrepository.Provide(db),
		WorksheetRepo: worksheetrepository.Provide(db),
		BankRepo:      bankrepository.Provide(db),
		LabRepo:       labrepository.Provide(db),
		Email:         email.NewNoOpProvider(log),
		Renderer:      pdf.NewRenderer(log),
		AuditSvc:      auditSvc,
	})
	productSvc := productservice.NewService(productservice.Params{
		DB:       db,
		Log:      log,
		GenID:    node,
		Repo:     productrepository.Provide(db),
		AuditSvc: auditSvc,
	})
	bankSvc := bankservice.NewService(bankservice.Params{
		DB:       db,
		Log:      log,
		GenID:    node,
		Repo:     bankrepository.Provide(db),
		AuditSvc: auditSvc,
	})

	m := metrics.New()
	srv := NewServer(ServerParams{
		Gin:            NewEngine(m),
		Cfg:            cfg,
		DB:             db,
		Log:            log,
		GenID:          node,
		Authsvc:        authSvc,
		Sessions:       session.NewManager(cfg),
		AuthzSvc:       authzSvc,
		AuditSvc:       auditSvc,
		LabSvc:         labSvc,
		DentistSvc:     dentistSvc,
		WorksheetSvc:   worksheetSvc,
		InvoiceSvc:     invoiceSvc,
		ProductSvc:     productSvc,
		BankAccountSvc: bankSvc,
		Limits:         ratelimit.NewRegistry(cfg, log),
	})

	labID := node.Generate()
	require.NoError(t, db.Create(&labdomain.Lab{
		ID:   labID,
		Name: "Crown Dental Lab",
		Slug: "crown-dental-lab",
	}).Error)

	return &serverFixture{
		srv:     srv,
		db:      db,
		node:    node,
		authSvc: authSvc,
		labID:   labID,
	}
}

// loginAs creates a member with the given role and returns its session token.
func (f *serverFixture) loginAs(t *testing.T, role string) string {
	t.Helper()
	ctx := context.Background()

	loginEmail := fmt.Sprintf("%s-%s@example.test", role, f.node.Generate())
	user, err := f.authSvc.CreateUser(ctx, authdomain.CreateUserRequest{
		Email:    loginEmail,
		Password: "correct-horse",
	})
	require.NoError(t, err)
	require.NoError(t, f.db.Create(&labdomain.LabMember{
		ID:     f.node.Generate(),
		LabID:  f.labID,
		UserID: user.ID,
		Role:   role,
	}).Error)

	result, err := f.authSvc.Login(ctx, authdomain.LoginRequest{
		Email:    loginEmail,
		Password: "correct-horse",
	})
	require.NoError(t, err)
	return result.RawToken
}

func (f *serverFixture) request(t *testing.T, token string, method string, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Lab-ID", f.labID.String())
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: token})

	w := httptest.NewRecorder()
	f.srv.Engine().ServeHTTP(w, req)
	return w
}

func (f *serverFixture) createProduct(t *testing.T, code string) *productdomain.Product {
	t.Helper()
	product := &productdomain.Product{
		ID:             f.node.Generate(),
		LabID:          f.labID,
		Code:           code,
		Name:           "Zirconia crown",
		Category:       productdomain.CategoryCrown,
		UnitPriceCents: 12500,
		Active:         true,
		CreatedAt:      time.Now().UTC(),
	}
	require.NoError(t, f.db.Create(product).Error)
	return product
}

func TestBulkUpdateForbiddenForNonAdmin(t *testing.T) {
	f := newServerFixture(t)
	product := f.createProduct(t, "CR-100")
	inactive := false

	for _, role := range []string{labdomain.RoleProduction, labdomain.RoleViewer} {
		t.Run(role, func(t *testing.T) {
			token := f.loginAs(t, role)
			w := f.request(t, token, http.MethodPost, "/api/products/bulk-update", gin.H{
				"ids":  []string{product.ID.String()},
				"data": productdomain.BulkPatch{Active: &inactive},
			})
			assert.Equal(t, http.StatusForbidden, w.Code)

			var current productdomain.Product
			require.NoError(t, f.db.First(&current, "id = ?", product.ID).Error)
			assert.True(t, current.Active)
		})
	}
}

func TestBulkUpdateAllowedForAdmin(t *testing.T) {
	f := newServerFixture(t)
	product := f.createProduct(t, "CR-200")
	token := f.loginAs(t, labdomain.RoleAdmin)
	inactive := false

	w := f.request(t, token, http.MethodPost, "/api/products/bulk-update", gin.H{
		"ids":  []string{product.ID.String()},
		"data": productdomain.BulkPatch{Active: &inactive},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success bool  `json:"success"`
		Count   int64 `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.EqualValues(t, 1, resp.Count)

	var current productdomain.Product
	require.NoError(t, f.db.First(&current, "id = ?", product.ID).Error)
	assert.False(t, current.Active)
}

func TestBulkUpdateRejectsUnauthenticated(t *testing.T) {
	f := newServerFixture(t)
	product := f.createProduct(t, "CR-300")
	inactive := false

	w := f.request(t, "", http.MethodPost, "/api/products/bulk-update", gin.H{
		"ids":  []string{product.ID.String()},
		"data": productdomain.BulkPatch{Active: &inactive},
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
