package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/saldotech/saldo/internal/dashboard/domain"
	merchantdomain "github.com/saldotech/saldo/internal/merchant/domain"
	txndomain "github.com/saldotech/saldo/internal/transaction/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newDashboardTest(t *testing.T) (domain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&merchantdomain.Merchant{}, &txndomain.Transaction{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{DB: db, Log: zap.NewNop()})
	return svc, db, node
}

func seedMerchant(t *testing.T, db *gorm.DB, node *snowflake.Node, normalized, category string) int64 {
	t.Helper()
	m := merchantdomain.Merchant{
		ID:             node.Generate().Int64(),
		RawName:        normalized,
		NormalizedName: normalized,
		Category:       category,
		CategorySource: merchantdomain.SourceRule,
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
	require.NoError(t, db.Create(&m).Error)
	return m.ID
}

func seedTxn(t *testing.T, db *gorm.DB, node *snowflake.Node, date time.Time, direction, amountGEL, amountOriginal, currency string, merchantID *int64) {
	t.Helper()
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%s|%s",
		date.Format("2006-01-02"), direction, amountGEL, amountOriginal, currency)))
	txn := txndomain.Transaction{
		ID:               node.Generate().Int64(),
		Date:             date,
		DescriptionRaw:   fmt.Sprintf("%s %s %s", direction, amountGEL, currency),
		MerchantID:       merchantID,
		Direction:        direction,
		AmountOriginal:   decimal.RequireFromString(amountOriginal),
		CurrencyOriginal: currency,
		AmountGEL:        decimal.RequireFromString(amountGEL),
		DedupKey:         hex.EncodeToString(sum[:]),
		CreatedAt:        time.Now().UTC(),
	}
	require.NoError(t, db.Create(&txn).Error)
}

// Two merchants, one merchantless foreign purchase, an income and a
// transfer. Spending views must see only the four expenses.
func seedLedger(t *testing.T, db *gorm.DB, node *snowflake.Node) (woltID, nikoraID int64) {
	t.Helper()
	woltID = seedMerchant(t, db, node, "wolt", "Food Delivery")
	nikoraID = seedMerchant(t, db, node, "nikora", "Groceries")

	seedTxn(t, db, node, time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), "expense", "30.00", "30.00", "GEL", &woltID)
	seedTxn(t, db, node, time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC), "expense", "20.00", "20.00", "GEL", &woltID)
	seedTxn(t, db, node, time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC), "expense", "12.50", "12.50", "GEL", &nikoraID)
	seedTxn(t, db, node, time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC), "expense", "16.46", "5.99", "USD", nil)
	seedTxn(t, db, node, time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC), "income", "1000.00", "1000.00", "GEL", nil)
	seedTxn(t, db, node, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), "transfer", "200.00", "200.00", "GEL", nil)
	return woltID, nikoraID
}

func datePtr(y int, m time.Month, d int) *time.Time {
	v := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &v
}

func TestDashboardSummary(t *testing.T) {
	svc, db, node := newDashboardTest(t)
	seedLedger(t, db, node)
	ctx := context.Background()

	summary, err := svc.Summary(ctx, domain.RangeFilter{})
	require.NoError(t, err)
	assert.InDelta(t, 78.96, summary.TotalSpentGEL, 0.001)
	assert.InDelta(t, 1000.00, summary.TotalIncomeGEL, 0.001)
	assert.InDelta(t, 921.04, summary.NetCashFlowGEL, 0.001)
	assert.Equal(t, 4, summary.ExpenseTransactionCount)

	february, err := svc.Summary(ctx, domain.RangeFilter{
		DateFrom: datePtr(2026, 2, 1),
		DateTo:   datePtr(2026, 2, 28),
	})
	require.NoError(t, err)
	assert.InDelta(t, 28.96, february.TotalSpentGEL, 0.001)
	assert.InDelta(t, 1000.00, february.TotalIncomeGEL, 0.001)
	assert.Equal(t, 2, february.ExpenseTransactionCount)
}

func TestDashboardSummary_EmptyLedger(t *testing.T) {
	svc, _, _ := newDashboardTest(t)

	summary, err := svc.Summary(context.Background(), domain.RangeFilter{})
	require.NoError(t, err)
	assert.Zero(t, summary.TotalSpentGEL)
	assert.Zero(t, summary.TotalIncomeGEL)
	assert.Zero(t, summary.NetCashFlowGEL)
	assert.Zero(t, summary.ExpenseTransactionCount)
}

// Categories come from the joined merchant; transactions without one
// fall into Other. Order is by spend, largest first.
func TestDashboardSpendingByCategory(t *testing.T) {
	svc, db, node := newDashboardTest(t)
	seedLedger(t, db, node)

	items, err := svc.SpendingByCategory(context.Background(), domain.RangeFilter{})
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "Food Delivery", items[0].Category)
	assert.InDelta(t, 50.00, items[0].AmountGEL, 0.001)
	assert.Equal(t, 2, items[0].TransactionCount)

	assert.Equal(t, "Other", items[1].Category)
	assert.InDelta(t, 16.46, items[1].AmountGEL, 0.001)
	assert.Equal(t, 1, items[1].TransactionCount)

	assert.Equal(t, "Groceries", items[2].Category)
	assert.InDelta(t, 12.50, items[2].AmountGEL, 0.001)
	assert.Equal(t, 1, items[2].TransactionCount)
}

func TestDashboardMonthlyTrend(t *testing.T) {
	svc, db, node := newDashboardTest(t)
	seedLedger(t, db, node)

	items, err := svc.MonthlyTrend(context.Background(), domain.RangeFilter{})
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "2026-01", items[0].Month)
	assert.InDelta(t, 50.00, items[0].AmountGEL, 0.001)
	assert.Equal(t, "2026-02", items[1].Month)
	assert.InDelta(t, 28.96, items[1].AmountGEL, 0.001)
}

func TestDashboardTopMerchants(t *testing.T) {
	svc, db, node := newDashboardTest(t)
	woltID, _ := seedLedger(t, db, node)
	ctx := context.Background()

	items, err := svc.TopMerchants(ctx, domain.RangeFilter{}, 0)
	require.NoError(t, err)
	require.Len(t, items, 3)

	require.NotNil(t, items[0].MerchantID)
	assert.Equal(t, snowflake.ID(woltID).String(), *items[0].MerchantID)
	assert.Equal(t, "wolt", items[0].MerchantName)
	assert.InDelta(t, 50.00, items[0].AmountGEL, 0.001)
	assert.Equal(t, 2, items[0].TransactionCount)

	assert.Nil(t, items[1].MerchantID)
	assert.Equal(t, "Unknown", items[1].MerchantName)
	assert.InDelta(t, 16.46, items[1].AmountGEL, 0.001)

	assert.Equal(t, "nikora", items[2].MerchantName)

	top2, err := svc.TopMerchants(ctx, domain.RangeFilter{}, 2)
	require.NoError(t, err)
	require.Len(t, top2, 2)
	assert.Equal(t, "wolt", top2[0].MerchantName)
	assert.Equal(t, "Unknown", top2[1].MerchantName)
}

func TestDashboardCurrencyBreakdown(t *testing.T) {
	svc, db, node := newDashboardTest(t)
	seedLedger(t, db, node)

	items, err := svc.CurrencyBreakdown(context.Background(), domain.RangeFilter{})
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "GEL", items[0].Currency)
	assert.InDelta(t, 62.50, items[0].AmountOriginal, 0.001)
	assert.Equal(t, 3, items[0].TransactionCount)

	assert.Equal(t, "USD", items[1].Currency)
	assert.InDelta(t, 5.99, items[1].AmountOriginal, 0.001)
	assert.Equal(t, 1, items[1].TransactionCount)
}
