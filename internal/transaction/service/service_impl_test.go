package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	merchantdomain "github.com/saldotech/saldo/internal/merchant/domain"
	"github.com/saldotech/saldo/internal/transaction/domain"
	"github.com/saldotech/saldo/internal/transaction/repository"
	"github.com/saldotech/saldo/pkg/db/pagination"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type listFixture struct {
	db   *gorm.DB
	svc  domain.Service
	wolt merchantdomain.Merchant
	niko merchantdomain.Merchant
	txns map[string]domain.Transaction
}

func newListFixture(t *testing.T) *listFixture {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Transaction{}, &merchantdomain.Merchant{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	f := &listFixture{
		db: db,
		svc: New(Params{
			DB:   db,
			Log:  zap.NewNop(),
			Repo: repository.Provide(),
		}),
		txns: map[string]domain.Transaction{},
	}

	f.wolt = seedListMerchant(t, db, node, "wolt", "WOLT", "Food Delivery")
	f.niko = seedListMerchant(t, db, node, "nikora", "NIKORA", "Groceries")

	uploadA := node.Generate().Int64()
	uploadB := node.Generate().Int64()

	f.seed(t, node, "wolt_jan5", seedTxn{
		date: "2026-01-05", merchantID: &f.wolt.ID, direction: "expense",
		amountGEL: "32.96", currency: "GEL", uploadID: &uploadA,
		description: "Payment - Merchant: Wolt, Tbilisi; MCC:4215",
	})
	f.seed(t, node, "niko_jan6", seedTxn{
		date: "2026-01-06", merchantID: &f.niko.ID, direction: "expense",
		amountGEL: "12.00", currency: "GEL", uploadID: &uploadA,
		description: "Payment - Merchant: Nikora; MCC:5411",
	})
	f.seed(t, node, "salary_jan7", seedTxn{
		date: "2026-01-07", merchantID: nil, direction: "income",
		amountGEL: "1000.00", currency: "USD", amountOriginal: "370.00", uploadID: &uploadB,
		description: "Income - Salary for December",
	})
	f.seed(t, node, "wolt_jan8", seedTxn{
		date: "2026-01-08", merchantID: &f.wolt.ID, direction: "expense",
		amountGEL: "8.40", currency: "GEL", uploadID: &uploadB,
		description: "Payment - Merchant: Wolt, Tbilisi; MCC:4215",
	})
	return f
}

type seedTxn struct {
	date           string
	merchantID     *int64
	direction      string
	amountGEL      string
	amountOriginal string
	currency       string
	uploadID       *int64
	description    string
}

func (f *listFixture) seed(t *testing.T, node *snowflake.Node, key string, in seedTxn) {
	t.Helper()
	date, err := time.Parse("2006-01-02", in.date)
	require.NoError(t, err)

	amountGEL := decimal.RequireFromString(in.amountGEL)
	amountOriginal := amountGEL
	if in.amountOriginal != "" {
		amountOriginal = decimal.RequireFromString(in.amountOriginal)
	}

	sum := sha256.Sum256([]byte(key))
	txn := domain.Transaction{
		ID:               node.Generate().Int64(),
		Date:             date,
		DescriptionRaw:   in.description,
		MerchantID:       in.merchantID,
		Direction:        in.direction,
		AmountOriginal:   amountOriginal,
		CurrencyOriginal: in.currency,
		AmountGEL:        amountGEL,
		UploadID:         in.uploadID,
		DedupKey:         hex.EncodeToString(sum[:]),
		CreatedAt:        time.Now().UTC(),
	}
	require.NoError(t, f.db.Create(&txn).Error)
	f.txns[key] = txn
}

func (f *listFixture) list(t *testing.T, req domain.ListRequest) *domain.ListResponse {
	t.Helper()
	out, err := f.svc.List(context.Background(), req)
	require.NoError(t, err)
	return out
}

func ids(out *domain.ListResponse) []string {
	result := make([]string, 0, len(out.Items))
	for _, item := range out.Items {
		result = append(result, item.ID)
	}
	return result
}

func (f *listFixture) id(key string) string {
	return snowflake.ID(f.txns[key].ID).String()
}

// TestTransactionList_DefaultOrder returns newest first with the id as the
// tiebreaker.
func TestTransactionList_DefaultOrder(t *testing.T) {
	f := newListFixture(t)

	out := f.list(t, domain.ListRequest{})
	assert.Equal(t, []string{f.id("wolt_jan8"), f.id("salary_jan7"), f.id("niko_jan6"), f.id("wolt_jan5")}, ids(out))
	assert.Equal(t, int64(4), out.Meta.Total)
	assert.Equal(t, 50, out.Meta.Limit)
	assert.False(t, out.Meta.HasNext)
}

func TestTransactionList_Filters(t *testing.T) {
	f := newListFixture(t)

	t.Run("direction", func(t *testing.T) {
		out := f.list(t, domain.ListRequest{Direction: "expense"})
		assert.Equal(t, int64(3), out.Meta.Total)
	})

	t.Run("category coalesces missing merchants to Other", func(t *testing.T) {
		out := f.list(t, domain.ListRequest{Category: "Other"})
		assert.Equal(t, []string{f.id("salary_jan7")}, ids(out))
	})

	t.Run("categories csv overrides category", func(t *testing.T) {
		out := f.list(t, domain.ListRequest{
			Category:   "Other",
			Categories: " Food Delivery , Groceries ,",
		})
		assert.Equal(t, int64(3), out.Meta.Total)
	})

	t.Run("merchant match is case-insensitive on both names", func(t *testing.T) {
		out := f.list(t, domain.ListRequest{Merchant: "WOL"})
		assert.Equal(t, int64(2), out.Meta.Total)

		out = f.list(t, domain.ListRequest{Merchant: "nikora"})
		assert.Equal(t, int64(1), out.Meta.Total)
	})

	t.Run("currency is uppercased", func(t *testing.T) {
		out := f.list(t, domain.ListRequest{CurrencyOriginal: "usd"})
		assert.Equal(t, []string{f.id("salary_jan7")}, ids(out))
	})

	t.Run("amount range", func(t *testing.T) {
		min := decimal.RequireFromString("10")
		max := decimal.RequireFromString("40")
		out := f.list(t, domain.ListRequest{AmountGELMin: &min, AmountGELMax: &max})
		assert.Equal(t, int64(2), out.Meta.Total)
	})

	t.Run("upload id", func(t *testing.T) {
		uploadA := *f.txns["wolt_jan5"].UploadID
		out := f.list(t, domain.ListRequest{UploadID: &uploadA})
		assert.Equal(t, int64(2), out.Meta.Total)
	})

	t.Run("date window", func(t *testing.T) {
		from := time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC)
		to := time.Date(2026, 1, 7, 0, 0, 0, 0, time.UTC)
		out := f.list(t, domain.ListRequest{DateFrom: &from, DateTo: &to})
		assert.Equal(t, []string{f.id("salary_jan7"), f.id("niko_jan6")}, ids(out))
	})
}

func TestTransactionList_SortAndPaging(t *testing.T) {
	f := newListFixture(t)

	out := f.list(t, domain.ListRequest{SortBy: "amount_gel", SortOrder: "asc"})
	assert.Equal(t, []string{f.id("wolt_jan8"), f.id("niko_jan6"), f.id("wolt_jan5"), f.id("salary_jan7")}, ids(out))

	out = f.list(t, domain.ListRequest{Page: pagination.Page{Limit: 2}})
	assert.Len(t, out.Items, 2)
	assert.True(t, out.Meta.HasNext)

	out = f.list(t, domain.ListRequest{Page: pagination.Page{Limit: 2, Offset: 2}})
	assert.Len(t, out.Items, 2)
	assert.False(t, out.Meta.HasNext)
}

func TestTransactionList_Validation(t *testing.T) {
	f := newListFixture(t)

	_, err := f.svc.List(context.Background(), domain.ListRequest{SortBy: "embedding"})
	assert.ErrorIs(t, err, domain.ErrInvalidSortBy)

	_, err = f.svc.List(context.Background(), domain.ListRequest{SortOrder: "sideways"})
	assert.ErrorIs(t, err, domain.ErrInvalidSortOrder)

	_, err = f.svc.List(context.Background(), domain.ListRequest{Direction: "sideways"})
	assert.ErrorIs(t, err, domain.ErrInvalidDirection)
}

// TestTransactionList_ViewMapping renders ids as strings, dates as
// YYYY-MM-DD and coalesces merchant columns.
func TestTransactionList_ViewMapping(t *testing.T) {
	f := newListFixture(t)

	out := f.list(t, domain.ListRequest{Category: "Other"})
	require.Len(t, out.Items, 1)
	item := out.Items[0]

	assert.Equal(t, f.id("salary_jan7"), item.ID)
	assert.Equal(t, "2026-01-07", item.Date)
	assert.Nil(t, item.PostedDate)
	assert.Equal(t, "Unknown", item.MerchantName)
	assert.Equal(t, "Other", item.Category)
	require.NotNil(t, item.UploadID)
	assert.Equal(t, snowflake.ID(*f.txns["salary_jan7"].UploadID).String(), *item.UploadID)
	assert.True(t, item.AmountGEL.Equal(decimal.RequireFromString("1000")))

	out = f.list(t, domain.ListRequest{Merchant: "nikora"})
	require.Len(t, out.Items, 1)
	assert.Equal(t, "nikora", out.Items[0].MerchantName)
	assert.Equal(t, "Groceries", out.Items[0].Category)
}

func TestTransactionDelete(t *testing.T) {
	f := newListFixture(t)
	target := f.txns["wolt_jan5"].ID

	require.NoError(t, f.svc.Delete(context.Background(), target))

	err := f.svc.Delete(context.Background(), target)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	out := f.list(t, domain.ListRequest{})
	assert.Equal(t, int64(3), out.Meta.Total)
}

func seedListMerchant(t *testing.T, db *gorm.DB, node *snowflake.Node, normalized, raw, category string) merchantdomain.Merchant {
	t.Helper()
	now := time.Now().UTC()
	m := merchantdomain.Merchant{
		ID:             node.Generate().Int64(),
		RawName:        raw,
		NormalizedName: normalized,
		Category:       category,
		CategorySource: merchantdomain.SourceRule,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	require.NoError(t, db.Create(&m).Error)
	return m
}
