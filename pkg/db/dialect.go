package db

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/saldotech/saldo/internal/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Dialect(cfg config.Config) (gorm.Dialector, error) {
	switch cfg.DBType {
	case "postgres":
		return postgres.Open(fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
			cfg.DBHost,
			cfg.DBUser,
			cfg.DBPassword,
			cfg.DBName,
			cfg.DBPort,
			cfg.DBSSLMode,
		)), nil
	case "sqlite":
		return sqlite.Open(sqliteDSN(cfg.DBName)), nil
	default:
		return nil, fmt.Errorf("unsupported %s type", cfg.DBType)
	}
}

// sqliteDSN maps the configured database name to a file next to the
// binary. A name already carrying URI options (file:...?mode=memory) or
// the :memory: shorthand passes through untouched.
func sqliteDSN(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "saldo.db"
	}
	if strings.HasPrefix(name, "file:") || name == ":memory:" {
		return name
	}
	return name + ".db"
}
