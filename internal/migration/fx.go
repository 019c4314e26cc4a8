package migration

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	auditdomain "github.com/crownlab/crownlab/internal/audit/domain"
	authdomain "github.com/crownlab/crownlab/internal/auth/domain"
	bankdomain "github.com/crownlab/crownlab/internal/bankaccount/domain"
	"github.com/crownlab/crownlab/internal/config"
	dentistdomain "github.com/crownlab/crownlab/internal/dentist/domain"
	invoicedomain "github.com/crownlab/crownlab/internal/invoice/domain"
	labdomain "github.com/crownlab/crownlab/internal/lab/domain"
	productdomain "github.com/crownlab/crownlab/internal/product/domain"
	"github.com/crownlab/crownlab/internal/seed"
	worksheetdomain "github.com/crownlab/crownlab/internal/worksheet/domain"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// mysql and sqlite setups (local development, tests) get the
			// schema through gorm instead of the SQL migrations.
			if err := conn.AutoMigrate(
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
			); err != nil {
				return err
			}
		}

		if cfg.DefaultLabID != 0 {
			if err := seed.EnsureMainLabWithID(conn, cfg.DefaultLabID); err != nil {
				return err
			}
		} else if err := seed.EnsureMainLab(conn); err != nil {
			return err
		}
		if cfg.BootstrapAdmin {
			return seed.EnsureMainLabAndAdmin(conn)
		}
		return nil
	}),
)
