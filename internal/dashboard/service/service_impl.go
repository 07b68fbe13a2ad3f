package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/saldotech/saldo/internal/dashboard/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultTopMerchants = 10
	maxTopMerchants     = 100
)

type Params struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger
}

func New(p Params) domain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("dashboard.service"),
	}
}

type summaryRow struct {
	TotalSpent   float64 `gorm:"column:total_spent"`
	TotalIncome  float64 `gorm:"column:total_income"`
	ExpenseCount int     `gorm:"column:expense_count"`
}

func (s *Service) Summary(ctx context.Context, filter domain.RangeFilter) (*domain.Summary, error) {
	conds, args := rangeConds(filter, nil, nil)
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN t.direction = 'expense' THEN t.amount_gel ELSE 0 END), 0) AS total_spent,
			COALESCE(SUM(CASE WHEN t.direction = 'income' THEN t.amount_gel ELSE 0 END), 0) AS total_income,
			COALESCE(SUM(CASE WHEN t.direction = 'expense' THEN 1 ELSE 0 END), 0) AS expense_count
		FROM transactions t` + whereClause(conds)

	var row summaryRow
	if err := s.db.WithContext(ctx).Raw(query, args...).Scan(&row).Error; err != nil {
		return nil, err
	}

	return &domain.Summary{
		TotalSpentGEL:           row.TotalSpent,
		TotalIncomeGEL:          row.TotalIncome,
		NetCashFlowGEL:          math.Round((row.TotalIncome-row.TotalSpent)*100) / 100,
		ExpenseTransactionCount: row.ExpenseCount,
	}, nil
}

type categoryRow struct {
	Category         string  `gorm:"column:category"`
	AmountGEL        float64 `gorm:"column:amount_gel"`
	TransactionCount int     `gorm:"column:transaction_count"`
}

func (s *Service) SpendingByCategory(ctx context.Context, filter domain.RangeFilter) ([]domain.CategorySpend, error) {
	conds, args := rangeConds(filter, []string{"t.direction = 'expense'"}, nil)
	query := `
		SELECT
			COALESCE(m.category, 'Other') AS category,
			COALESCE(SUM(t.amount_gel), 0) AS amount_gel,
			COUNT(t.id) AS transaction_count
		FROM transactions t
		LEFT JOIN merchants m ON m.id = t.merchant_id` + whereClause(conds) + `
		GROUP BY COALESCE(m.category, 'Other')
		ORDER BY SUM(t.amount_gel) DESC`

	var rows []categoryRow
	if err := s.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}

	items := make([]domain.CategorySpend, 0, len(rows))
	for _, row := range rows {
		items = append(items, domain.CategorySpend{
			Category:         row.Category,
			AmountGEL:        row.AmountGEL,
			TransactionCount: row.TransactionCount,
		})
	}
	return items, nil
}

type monthRow struct {
	Month     string  `gorm:"column:month"`
	AmountGEL float64 `gorm:"column:amount_gel"`
}

func (s *Service) MonthlyTrend(ctx context.Context, filter domain.RangeFilter) ([]domain.MonthlyPoint, error) {
	monthExpr := "to_char(date_trunc('month', t.date), 'YYYY-MM')"
	if s.db.Name() == "sqlite" {
		monthExpr = "strftime('%Y-%m', t.date)"
	}

	conds, args := rangeConds(filter, []string{"t.direction = 'expense'"}, nil)
	query := fmt.Sprintf(`
		SELECT %s AS month, COALESCE(SUM(t.amount_gel), 0) AS amount_gel
		FROM transactions t%s
		GROUP BY %s
		ORDER BY %s ASC`,
		monthExpr, whereClause(conds), monthExpr, monthExpr)

	var rows []monthRow
	if err := s.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}

	items := make([]domain.MonthlyPoint, 0, len(rows))
	for _, row := range rows {
		items = append(items, domain.MonthlyPoint{Month: row.Month, AmountGEL: row.AmountGEL})
	}
	return items, nil
}

type topMerchantRow struct {
	MerchantID       *int64  `gorm:"column:merchant_id"`
	MerchantName     string  `gorm:"column:merchant_name"`
	AmountGEL        float64 `gorm:"column:amount_gel"`
	TransactionCount int     `gorm:"column:transaction_count"`
}

func (s *Service) TopMerchants(ctx context.Context, filter domain.RangeFilter, limit int) ([]domain.TopMerchant, error) {
	if limit < 1 {
		limit = defaultTopMerchants
	}
	if limit > maxTopMerchants {
		limit = maxTopMerchants
	}

	conds, args := rangeConds(filter, []string{"t.direction = 'expense'"}, nil)
	query := `
		SELECT
			m.id AS merchant_id,
			COALESCE(m.normalized_name, 'Unknown') AS merchant_name,
			COALESCE(SUM(t.amount_gel), 0) AS amount_gel,
			COUNT(t.id) AS transaction_count
		FROM transactions t
		LEFT JOIN merchants m ON m.id = t.merchant_id` + whereClause(conds) + `
		GROUP BY m.id, COALESCE(m.normalized_name, 'Unknown')
		ORDER BY SUM(t.amount_gel) DESC
		LIMIT ?`
	args = append(args, limit)

	var rows []topMerchantRow
	if err := s.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}

	items := make([]domain.TopMerchant, 0, len(rows))
	for _, row := range rows {
		item := domain.TopMerchant{
			MerchantName:     row.MerchantName,
			AmountGEL:        row.AmountGEL,
			TransactionCount: row.TransactionCount,
		}
		if row.MerchantID != nil {
			id := snowflake.ID(*row.MerchantID).String()
			item.MerchantID = &id
		}
		items = append(items, item)
	}
	return items, nil
}

type currencyRow struct {
	Currency         string  `gorm:"column:currency"`
	AmountOriginal   float64 `gorm:"column:amount_original"`
	TransactionCount int     `gorm:"column:transaction_count"`
}

func (s *Service) CurrencyBreakdown(ctx context.Context, filter domain.RangeFilter) ([]domain.CurrencySlice, error) {
	conds, args := rangeConds(filter, []string{"t.direction = 'expense'"}, nil)
	query := `
		SELECT
			t.currency_original AS currency,
			COALESCE(SUM(t.amount_original), 0) AS amount_original,
			COUNT(t.id) AS transaction_count
		FROM transactions t` + whereClause(conds) + `
		GROUP BY t.currency_original
		ORDER BY SUM(t.amount_original) DESC`

	var rows []currencyRow
	if err := s.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}

	items := make([]domain.CurrencySlice, 0, len(rows))
	for _, row := range rows {
		items = append(items, domain.CurrencySlice{
			Currency:         row.Currency,
			AmountOriginal:   row.AmountOriginal,
			TransactionCount: row.TransactionCount,
		})
	}
	return items, nil
}

func rangeConds(filter domain.RangeFilter, conds []string, args []any) ([]string, []any) {
	if filter.DateFrom != nil {
		conds = append(conds, "t.date >= ?")
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conds = append(conds, "t.date <= ?")
		args = append(args, *filter.DateTo)
	}
	return conds, args
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return "\n\t\tWHERE " + strings.Join(conds, " AND ")
}
