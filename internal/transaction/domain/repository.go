package domain

import (
	"context"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ListFilter narrows the transaction list. Nil and empty fields are
// skipped. Categories wins over Category when both are set.
type ListFilter struct {
	UploadID         *int64
	DateFrom         *time.Time
	DateTo           *time.Time
	Direction        string
	Category         string
	Categories       []string
	Merchant         string
	CurrencyOriginal string
	AmountGELMin     *decimal.Decimal
	AmountGELMax     *decimal.Decimal
	SortBy           string
	SortOrder        string
	Limit            int
	Offset           int
}

// ListRow is a transaction joined with its coalesced merchant columns.
type ListRow struct {
	ID               int64            `gorm:"column:id"`
	Date             time.Time        `gorm:"column:date"`
	PostedDate       *time.Time       `gorm:"column:posted_date"`
	DescriptionRaw   string           `gorm:"column:description_raw"`
	Direction        string           `gorm:"column:direction"`
	AmountOriginal   decimal.Decimal  `gorm:"column:amount_original"`
	CurrencyOriginal string           `gorm:"column:currency_original"`
	AmountGEL        decimal.Decimal  `gorm:"column:amount_gel"`
	ConversionRate   *decimal.Decimal `gorm:"column:conversion_rate"`
	CardLast4        *string          `gorm:"column:card_last4"`
	MCCCode          *string          `gorm:"column:mcc_code"`
	UploadID         *int64           `gorm:"column:upload_id"`
	MerchantName     string           `gorm:"column:merchant_name"`
	Category         string           `gorm:"column:category"`
}

// EmbeddingUpdate attaches a vector to one stored transaction.
type EmbeddingUpdate struct {
	TransactionID int64
	Vector        pgvector.Vector
}

type Repository interface {
	InsertIgnore(ctx context.Context, db *gorm.DB, txns []*Transaction) (int64, error)
	FindByDedupKeys(ctx context.Context, db *gorm.DB, keys []string) (map[string]int64, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]ListRow, int64, error)
	Delete(ctx context.Context, db *gorm.DB, id int64) (int64, error)
	SetEmbeddings(ctx context.Context, db *gorm.DB, updates []EmbeddingUpdate) error
}
