package domain

import (
	"context"
	"time"
)

// RangeFilter bounds an aggregate by transaction date, inclusive on both
// ends. A nil bound is open.
type RangeFilter struct {
	DateFrom *time.Time
	DateTo   *time.Time
}

type Summary struct {
	TotalSpentGEL           float64 `json:"total_spent_gel"`
	TotalIncomeGEL          float64 `json:"total_income_gel"`
	NetCashFlowGEL          float64 `json:"net_cash_flow_gel"`
	ExpenseTransactionCount int     `json:"expense_transaction_count"`
}

type CategorySpend struct {
	Category         string  `json:"category"`
	AmountGEL        float64 `json:"amount_gel"`
	TransactionCount int     `json:"transaction_count"`
}

type MonthlyPoint struct {
	Month     string  `json:"month"`
	AmountGEL float64 `json:"amount_gel"`
}

type TopMerchant struct {
	MerchantID       *string `json:"merchant_id"`
	MerchantName     string  `json:"merchant_name"`
	AmountGEL        float64 `json:"amount_gel"`
	TransactionCount int     `json:"transaction_count"`
}

type CurrencySlice struct {
	Currency         string  `json:"currency"`
	AmountOriginal   float64 `json:"amount_original"`
	TransactionCount int     `json:"transaction_count"`
}

// Service serves the read-side aggregates. All spending views count
// expenses only; income shows up solely in the summary.
type Service interface {
	Summary(ctx context.Context, filter RangeFilter) (*Summary, error)
	SpendingByCategory(ctx context.Context, filter RangeFilter) ([]CategorySpend, error)
	MonthlyTrend(ctx context.Context, filter RangeFilter) ([]MonthlyPoint, error)
	TopMerchants(ctx context.Context, filter RangeFilter, limit int) ([]TopMerchant, error)
	CurrencyBreakdown(ctx context.Context, filter RangeFilter) ([]CurrencySlice, error)
}
