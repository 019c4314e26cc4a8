package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/crownlab/crownlab/internal/audit"
	auditdomain "github.com/crownlab/crownlab/internal/audit/domain"
	"github.com/crownlab/crownlab/internal/auth"
	authdomain "github.com/crownlab/crownlab/internal/auth/domain"
	"github.com/crownlab/crownlab/internal/auth/session"
	"github.com/crownlab/crownlab/internal/authorization"
	"github.com/crownlab/crownlab/internal/bankaccount"
	bankdomain "github.com/crownlab/crownlab/internal/bankaccount/domain"
	"github.com/crownlab/crownlab/internal/config"
	"github.com/crownlab/crownlab/internal/dentist"
	dentistdomain "github.com/crownlab/crownlab/internal/dentist/domain"
	"github.com/crownlab/crownlab/internal/invoice"
	invoicedomain "github.com/crownlab/crownlab/internal/invoice/domain"
	"github.com/crownlab/crownlab/internal/lab"
	labdomain "github.com/crownlab/crownlab/internal/lab/domain"
	"github.com/crownlab/crownlab/internal/metrics"
	"github.com/crownlab/crownlab/internal/product"
	productdomain "github.com/crownlab/crownlab/internal/product/domain"
	"github.com/crownlab/crownlab/internal/providers/email"
	"github.com/crownlab/crownlab/internal/providers/pdf"
	"github.com/crownlab/crownlab/internal/ratelimit"
	"github.com/crownlab/crownlab/internal/worksheet"
	worksheetdomain "github.com/crownlab/crownlab/internal/worksheet/domain"
)

var Module = fx.Module("http.server",
	metrics.Module,
	fx.Provide(registerGin),
	authorization.Module,
	audit.Module,
	auth.Module,
	lab.Module,
	dentist.Module,
	email.Module,
	pdf.Module,
	worksheet.Module,
	invoice.Module,
	product.Module,
	bankaccount.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(m *metrics.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestContext())
	r.Use(m.Middleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", m.Handler())

	return r
}

func registerGin(m *metrics.Metrics) *gin.Engine {
	return NewEngine(m)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine           *gin.Engine
	cfg              config.Config
	db               *gorm.DB
	log              *zap.Logger
	genID            *snowflake.Node
	authsvc          authdomain.Service
	sessions         *session.Manager
	authzSvc         authorization.Service
	auditSvc         auditdomain.Service
	labSvc           labdomain.Service
	dentistSvc       dentistdomain.Service
	worksheetSvc     worksheetdomain.Service
	invoiceSvc       invoicedomain.Service
	productSvc       productdomain.Service
	bankAccountSvc   bankdomain.Service
	loginLimiter     ratelimit.Limiter
	sendEmailLimiter ratelimit.Limiter
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	DB             *gorm.DB
	Log            *zap.Logger
	GenID          *snowflake.Node
	Authsvc        authdomain.Service
	Sessions       *session.Manager
	AuthzSvc       authorization.Service
	AuditSvc       auditdomain.Service
	LabSvc         labdomain.Service
	DentistSvc     dentistdomain.Service
	WorksheetSvc   worksheetdomain.Service
	InvoiceSvc     invoicedomain.Service
	ProductSvc     productdomain.Service
	BankAccountSvc bankdomain.Service
	Limits         *ratelimit.Registry
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:           p.Gin,
		cfg:              p.Cfg,
		db:               p.DB,
		log:              p.Log.Named("http.server"),
		genID:            p.GenID,
		authsvc:          p.Authsvc,
		sessions:         p.Sessions,
		authzSvc:         p.AuthzSvc,
		auditSvc:         p.AuditSvc,
		labSvc:           p.LabSvc,
		dentistSvc:       p.DentistSvc,
		worksheetSvc:     p.WorksheetSvc,
		invoiceSvc:       p.InvoiceSvc,
		productSvc:       p.ProductSvc,
		bankAccountSvc:   p.BankAccountSvc,
		loginLimiter:     p.Limits.Limiter("login", 10, time.Minute),
		sendEmailLimiter: p.Limits.Limiter("invoice_send_email", 30, time.Minute),
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/login", s.LoginRateLimit(), s.Login)
	auth.POST("/logout", s.Logout)
	auth.GET("/me", s.WebAuthRequired(), s.Me)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(s.WebAuthRequired())

	// Reference data needs no lab scope.
	api.GET("/teeth", s.ListTeeth)

	api.Use(s.LabContext())

	// -------- Lab --------
	api.GET("/labs/current", s.authorizeLabAction(authorization.ObjectLab, authorization.ActionLabView), s.GetCurrentLab)
	api.PATCH("/labs/current", s.authorizeLabAction(authorization.ObjectLab, authorization.ActionLabManage), s.UpdateCurrentLab)
	api.GET("/labs/current/members", s.authorizeLabAction(authorization.ObjectLab, authorization.ActionLabManage), s.ListLabMembers)
	api.POST("/labs/current/members", s.authorizeLabAction(authorization.ObjectLab, authorization.ActionLabManage), s.AddLabMember)

	// -------- Dentists --------
	api.GET("/dentists", s.authorizeLabAction(authorization.ObjectDentist, authorization.ActionDentistView), s.ListDentists)
	api.POST("/dentists", s.authorizeLabAction(authorization.ObjectDentist, authorization.ActionDentistCreate), s.CreateDentist)
	api.GET("/dentists/:id", s.authorizeLabAction(authorization.ObjectDentist, authorization.ActionDentistView), s.GetDentistByID)
	api.PATCH("/dentists/:id", s.authorizeLabAction(authorization.ObjectDentist, authorization.ActionDentistUpdate), s.UpdateDentist)

	// -------- Worksheets --------
	api.GET("/worksheets", s.authorizeLabAction(authorization.ObjectWorksheet, authorization.ActionWorksheetView), s.ListWorksheets)
	api.POST("/worksheets", s.authorizeLabAction(authorization.ObjectWorksheet, authorization.ActionWorksheetCreate), s.CreateWorksheet)
	api.GET("/worksheets/:id", s.authorizeLabAction(authorization.ObjectWorksheet, authorization.ActionWorksheetView), s.GetWorksheetByID)
	api.POST("/worksheets/:id/start", s.authorizeLabAction(authorization.ObjectWorksheet, authorization.ActionWorksheetStart), s.StartWorksheetProduction)
	api.POST("/worksheets/:id/rollback", s.authorizeLabAction(authorization.ObjectWorksheet, authorization.ActionWorksheetRollback), s.RollbackWorksheet)

	// -------- Invoices --------
	api.GET("/invoices", s.authorizeLabAction(authorization.ObjectInvoice, authorization.ActionInvoiceView), s.ListInvoices)
	api.POST("/invoices", s.authorizeLabAction(authorization.ObjectInvoice, authorization.ActionInvoiceCreate), s.CreateInvoice)
	api.GET("/invoices/:id", s.authorizeLabAction(authorization.ObjectInvoice, authorization.ActionInvoiceView), s.GetInvoiceByID)
	api.POST("/invoices/:id/send-email", s.authorizeLabAction(authorization.ObjectInvoice, authorization.ActionInvoiceSend), s.SendEmailRateLimit(), s.SendInvoiceEmail)
	api.PUT("/invoices/:id/line-items", s.authorizeLabAction(authorization.ObjectInvoice, authorization.ActionInvoiceUpdate), s.ReplaceInvoiceLineItems)
	api.POST("/invoices/:id/recompute-total", s.authorizeLabAction(authorization.ObjectInvoice, authorization.ActionInvoiceView), s.RecomputeInvoiceTotal)
	api.GET("/invoices/:id/render", s.authorizeLabAction(authorization.ObjectInvoice, authorization.ActionInvoiceRender), s.RenderInvoice)

	// -------- Products --------
	api.GET("/products", s.authorizeLabAction(authorization.ObjectProduct, authorization.ActionProductView), s.ListProducts)
	api.POST("/products", s.authorizeLabAction(authorization.ObjectProduct, authorization.ActionProductCreate), s.CreateProduct)
	api.GET("/products/:id", s.authorizeLabAction(authorization.ObjectProduct, authorization.ActionProductView), s.GetProductByID)
	api.PATCH("/products/:id", s.authorizeLabAction(authorization.ObjectProduct, authorization.ActionProductUpdate), s.UpdateProduct)
	api.POST("/products/bulk-update", s.authorizeLabAction(authorization.ObjectProduct, authorization.ActionProductBulkUpdate), s.BulkUpdateProducts)
	api.POST("/products/bulk-delete", s.authorizeLabAction(authorization.ObjectProduct, authorization.ActionProductBulkDelete), s.BulkDeleteProducts)

	// -------- Bank accounts --------
	settings := api.Group("/settings")
	settings.GET("/bank-accounts", s.authorizeLabAction(authorization.ObjectBankAccount, authorization.ActionBankAccountView), s.ListBankAccounts)
	settings.POST("/bank-accounts", s.authorizeLabAction(authorization.ObjectBankAccount, authorization.ActionBankAccountManage), s.CreateBankAccount)
	settings.GET("/bank-accounts/:id", s.authorizeLabAction(authorization.ObjectBankAccount, authorization.ActionBankAccountView), s.GetBankAccountByID)
	settings.PATCH("/bank-accounts/:id", s.authorizeLabAction(authorization.ObjectBankAccount, authorization.ActionBankAccountManage), s.UpdateBankAccount)
	settings.DELETE("/bank-accounts/:id", s.authorizeLabAction(authorization.ObjectBankAccount, authorization.ActionBankAccountManage), s.DeleteBankAccount)

	// -------- Audit logs --------
	api.GET("/audit-logs", s.authorizeLabAction(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)
}
