package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StatsRow is a merchant joined with its transaction aggregates. TotalSpent
// sums expense rows only.
type StatsRow struct {
	ID               int64           `gorm:"column:id"`
	RawName          string          `gorm:"column:raw_name"`
	NormalizedName   string          `gorm:"column:normalized_name"`
	Category         string          `gorm:"column:category"`
	CategorySource   string          `gorm:"column:category_source"`
	MCCCode          *string         `gorm:"column:mcc_code"`
	CreatedAt        time.Time       `gorm:"column:created_at"`
	UpdatedAt        time.Time       `gorm:"column:updated_at"`
	TransactionCount int64           `gorm:"column:transaction_count"`
	TotalSpent       decimal.Decimal `gorm:"column:total_spent"`
}

type Repository interface {
	FindByNormalizedNames(ctx context.Context, db *gorm.DB, names []string) ([]Merchant, error)
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Merchant, error)
	InsertIgnore(ctx context.Context, db *gorm.DB, merchants []*Merchant) (int64, error)
	UpdateCategory(ctx context.Context, db *gorm.DB, id int64, category, source string) (int64, error)
	ListWithStats(ctx context.Context, db *gorm.DB, limit int) ([]StatsRow, error)
}
