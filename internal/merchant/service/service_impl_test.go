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
	categorydomain "github.com/saldotech/saldo/internal/category/domain"
	categoryrepository "github.com/saldotech/saldo/internal/category/repository"
	categoryservice "github.com/saldotech/saldo/internal/category/service"
	"github.com/saldotech/saldo/internal/config"
	"github.com/saldotech/saldo/internal/merchant/domain"
	"github.com/saldotech/saldo/internal/merchant/repository"
	txndomain "github.com/saldotech/saldo/internal/transaction/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newServiceTest(t *testing.T) (*gorm.DB, domain.Service, *snowflake.Node) {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Merchant{}, &categorydomain.Category{}, &txndomain.Transaction{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	rules := config.NewStaticRulesHolder(config.DefaultCategoryRules())
	categories := categoryservice.New(categoryservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		Repo:  categoryrepository.Provide(),
		Rules: rules,
	})

	svc := New(Params{
		DB:         db,
		Log:        zap.NewNop(),
		Repo:       repository.Provide(),
		Categories: categories,
	})
	return db, svc, node
}

func seedSpend(t *testing.T, db *gorm.DB, node *snowflake.Node, merchantID int64, direction, amount string) {
	t.Helper()
	value := decimal.RequireFromString(amount)
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d|%s|%s|%d", merchantID, direction, amount, node.Generate().Int64())))
	txn := txndomain.Transaction{
		ID:               node.Generate().Int64(),
		Date:             time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
		DescriptionRaw:   "seeded row",
		MerchantID:       &merchantID,
		Direction:        direction,
		AmountOriginal:   value,
		CurrencyOriginal: "GEL",
		AmountGEL:        value,
		DedupKey:         hex.EncodeToString(sum[:]),
		CreatedAt:        time.Now().UTC(),
	}
	require.NoError(t, db.Create(&txn).Error)
}

func seedCategory(t *testing.T, db *gorm.DB, node *snowflake.Node, name string) {
	t.Helper()
	require.NoError(t, db.Create(&categorydomain.Category{
		ID:        node.Generate().Int64(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}).Error)
}

// TestMerchantList_Aggregates orders merchants by expense spend and counts
// every joined transaction regardless of direction.
func TestMerchantList_Aggregates(t *testing.T) {
	db, svc, node := newServiceTest(t)

	wolt := seedMerchant(t, db, node, "wolt", "Food Delivery", domain.SourceLLM)
	niko := seedMerchant(t, db, node, "nikora", "Groceries", domain.SourceRule)
	idleA := seedMerchant(t, db, node, "idle a", "Other", domain.SourceRule)
	idleB := seedMerchant(t, db, node, "idle b", "Other", domain.SourceRule)

	seedSpend(t, db, node, wolt.ID, "expense", "10.50")
	seedSpend(t, db, node, wolt.ID, "expense", "5.25")
	seedSpend(t, db, node, wolt.ID, "income", "100.00")
	seedSpend(t, db, node, niko.ID, "expense", "3.00")

	views, err := svc.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, views, 4)

	assert.Equal(t, snowflake.ID(wolt.ID).String(), views[0].ID)
	assert.True(t, views[0].TotalSpent.Equal(decimal.RequireFromString("15.75")),
		"wolt total_spent = %s", views[0].TotalSpent)
	assert.Equal(t, int64(3), views[0].TransactionCount)

	assert.Equal(t, snowflake.ID(niko.ID).String(), views[1].ID)
	assert.True(t, views[1].TotalSpent.Equal(decimal.RequireFromString("3")))
	assert.Equal(t, int64(1), views[1].TransactionCount)

	// Zero-spend merchants tie and fall back to id order.
	assert.Equal(t, snowflake.ID(idleA.ID).String(), views[2].ID)
	assert.Equal(t, snowflake.ID(idleB.ID).String(), views[3].ID)
	assert.True(t, views[2].TotalSpent.IsZero())
	assert.Equal(t, int64(0), views[2].TransactionCount)
}

func TestMerchantList_Limit(t *testing.T) {
	db, svc, node := newServiceTest(t)

	wolt := seedMerchant(t, db, node, "wolt", "Food Delivery", domain.SourceLLM)
	seedMerchant(t, db, node, "nikora", "Groceries", domain.SourceRule)
	seedSpend(t, db, node, wolt.ID, "expense", "10.00")

	views, err := svc.List(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "wolt", views[0].NormalizedName)
}

// TestMerchantUpdateCategory pins a merchant to a catalog category and
// marks the override as user-sourced.
func TestMerchantUpdateCategory(t *testing.T) {
	db, svc, node := newServiceTest(t)
	seedCategory(t, db, node, "Groceries")
	wolt := seedMerchant(t, db, node, "wolt", "Food Delivery", domain.SourceLLM)

	out, err := svc.UpdateCategory(context.Background(), wolt.ID, "  Groceries  ")
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(wolt.ID).String(), out.ID)
	assert.Equal(t, "Groceries", out.Category)
	assert.Equal(t, domain.SourceUser, out.CategorySource)

	stored := fetchMerchant(t, db, "wolt")
	assert.Equal(t, "Groceries", stored.Category)
	assert.Equal(t, domain.SourceUser, stored.CategorySource)
}

func TestMerchantUpdateCategory_UnknownMerchant(t *testing.T) {
	db, svc, node := newServiceTest(t)
	seedCategory(t, db, node, "Groceries")

	_, err := svc.UpdateCategory(context.Background(), node.Generate().Int64(), "Groceries")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMerchantUpdateCategory_UnknownCategory(t *testing.T) {
	db, svc, node := newServiceTest(t)
	seedCategory(t, db, node, "Groceries")
	wolt := seedMerchant(t, db, node, "wolt", "Food Delivery", domain.SourceLLM)

	_, err := svc.UpdateCategory(context.Background(), wolt.ID, "Yachts")
	assert.ErrorIs(t, err, domain.ErrUnknownCategory)

	_, err = svc.UpdateCategory(context.Background(), wolt.ID, "   ")
	assert.ErrorIs(t, err, domain.ErrUnknownCategory)

	// The stored category is untouched by the failed updates.
	assert.Equal(t, "Food Delivery", fetchMerchant(t, db, "wolt").Category)
}
