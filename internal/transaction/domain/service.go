package domain

import (
	"context"
	"errors"
	"time"

	"github.com/saldotech/saldo/pkg/db/pagination"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound         = errors.New("transaction_not_found")
	ErrInvalidSortBy    = errors.New("invalid_sort_by")
	ErrInvalidSortOrder = errors.New("invalid_sort_order")
	ErrInvalidDirection = errors.New("invalid_direction")
)

// ListRequest is the parsed query surface of the list endpoint. Categories
// is the raw comma-separated value; the service splits it.
type ListRequest struct {
	Page             pagination.Page
	UploadID         *int64
	DateFrom         *time.Time
	DateTo           *time.Time
	Direction        string
	Category         string
	Categories       string
	Merchant         string
	CurrencyOriginal string
	AmountGELMin     *decimal.Decimal
	AmountGELMax     *decimal.Decimal
	SortBy           string
	SortOrder        string
}

type TransactionView struct {
	ID               string           `json:"id"`
	Date             string           `json:"date"`
	PostedDate       *string          `json:"posted_date"`
	DescriptionRaw   string           `json:"description_raw"`
	Direction        string           `json:"direction"`
	AmountOriginal   decimal.Decimal  `json:"amount_original"`
	CurrencyOriginal string           `json:"currency_original"`
	AmountGEL        decimal.Decimal  `json:"amount_gel"`
	ConversionRate   *decimal.Decimal `json:"conversion_rate"`
	CardLast4        *string          `json:"card_last4"`
	MCCCode          *string          `json:"mcc_code"`
	UploadID         *string          `json:"upload_id"`
	MerchantName     string           `json:"merchant_name"`
	Category         string           `json:"category"`
}

type ListResponse struct {
	Items []TransactionView `json:"items"`
	Meta  pagination.Meta   `json:"meta"`
}

type Service interface {
	List(ctx context.Context, req ListRequest) (*ListResponse, error)
	Delete(ctx context.Context, id int64) error
}
