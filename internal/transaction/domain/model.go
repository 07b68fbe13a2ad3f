package domain

import (
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/shopspring/decimal"
)

type Transaction struct {
	ID               int64            `json:"id" gorm:"primaryKey"`
	Date             time.Time        `json:"date" gorm:"type:date;not null;index:ix_transactions_date"`
	PostedDate       *time.Time       `json:"posted_date,omitempty" gorm:"type:date"`
	DescriptionRaw   string           `json:"description_raw" gorm:"type:text;not null"`
	MerchantID       *int64           `json:"merchant_id,omitempty" gorm:"index:ix_transactions_merchant_id"`
	Direction        string           `json:"direction" gorm:"type:text;not null;index:ix_transactions_direction"`
	AmountOriginal   decimal.Decimal  `json:"amount_original" gorm:"type:numeric(12,2);not null"`
	CurrencyOriginal string           `json:"currency_original" gorm:"type:text;not null"`
	AmountGEL        decimal.Decimal  `json:"amount_gel" gorm:"column:amount_gel;type:numeric(12,2);not null"`
	ConversionRate   *decimal.Decimal `json:"conversion_rate,omitempty" gorm:"type:numeric(10,6)"`
	CardLast4        *string          `json:"card_last4,omitempty" gorm:"column:card_last4;type:text"`
	MCCCode          *string          `json:"mcc_code,omitempty" gorm:"column:mcc_code;type:text"`
	Embedding        *pgvector.Vector `json:"-" gorm:"type:vector(1536)"`
	UploadID         *int64           `json:"upload_id,omitempty" gorm:"index:ix_transactions_upload_id"`
	DedupKey         string           `json:"-" gorm:"column:dedup_key;type:char(64);not null;uniqueIndex:ux_transactions_dedup_key"`
	CreatedAt        time.Time        `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Transaction) TableName() string { return "transactions" }
