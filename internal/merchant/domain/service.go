package domain

import (
	"context"
	"errors"

	"github.com/saldotech/saldo/internal/statement"
	"github.com/shopspring/decimal"
)

const (
	SourceRule = "rule"
	SourceLLM  = "llm"
	SourceUser = "user"
)

// InternalTransferName buckets account movements without an external
// counterparty under a single merchant.
const InternalTransferName = "internal transfer"

var (
	ErrNotFound        = errors.New("merchant_not_found")
	ErrUnknownCategory = errors.New("unknown_category")
)

// Enricher produces completions used to normalize and categorize unseen
// merchants. An unconfigured enricher skips straight to the rule tier.
type Enricher interface {
	Configured() bool
	Complete(ctx context.Context, system, user string) (string, error)
}

// Resolution maps each input transaction to a merchant id, positionally.
// A nil entry means no merchant could be resolved for that row.
type Resolution struct {
	MerchantIDs       []*int64
	LLMUsedCount      int
	FallbackUsedCount int
}

// Resolver upserts merchants for a parsed statement batch and reports
// which categorization tier served each transaction.
type Resolver interface {
	Resolve(ctx context.Context, txns []statement.ParsedTransaction) (*Resolution, error)
}

type MerchantView struct {
	ID               string          `json:"id"`
	RawName          string          `json:"raw_name"`
	NormalizedName   string          `json:"normalized_name"`
	Category         string          `json:"category"`
	CategorySource   string          `json:"category_source"`
	MCCCode          *string         `json:"mcc_code"`
	TransactionCount int64           `json:"transaction_count"`
	TotalSpent       decimal.Decimal `json:"total_spent"`
}

type CategoryUpdate struct {
	ID             string `json:"id"`
	Category       string `json:"category"`
	CategorySource string `json:"category_source"`
}

type Service interface {
	List(ctx context.Context, limit int) ([]MerchantView, error)
	UpdateCategory(ctx context.Context, id int64, category string) (*CategoryUpdate, error)
}
