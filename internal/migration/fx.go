package migration

import (
	categorydomain "github.com/saldotech/saldo/internal/category/domain"
	"github.com/saldotech/saldo/internal/config"
	merchantdomain "github.com/saldotech/saldo/internal/merchant/domain"
	"github.com/saldotech/saldo/internal/seed"
	txndomain "github.com/saldotech/saldo/internal/transaction/domain"
	uploaddomain "github.com/saldotech/saldo/internal/upload/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, rules *config.RulesHolder) error {
		switch cfg.DBType {
		case "postgres":
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		default:
			// sqlite has no pgvector and no versioned DDL; the schema is
			// derived from the models instead.
			if err := conn.AutoMigrate(
				&uploaddomain.Upload{},
				&uploaddomain.UploadFile{},
				&merchantdomain.Merchant{},
				&categorydomain.Category{},
				&txndomain.Transaction{},
			); err != nil {
				return err
			}
		}

		return seed.EnsureDefaultCategories(conn, rules.Get())
	}),
)
