package embedding

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	txndomain "github.com/saldotech/saldo/internal/transaction/domain"
	txnrepository "github.com/saldotech/saldo/internal/transaction/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type stubVectorizer struct {
	configured bool
	err        error
	calls      [][]string
}

func (s *stubVectorizer) Configured() bool { return s.configured }

func (s *stubVectorizer) Embed(_ context.Context, texts []string) ([][]float32, error) {
	s.calls = append(s.calls, texts)
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i), 1}
	}
	return out, nil
}

func setupGeneratorTest(t *testing.T, vec Vectorizer) (*gorm.DB, *Generator, *snowflake.Node) {
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&txndomain.Transaction{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	gen := New(Params{
		DB:         db,
		Log:        zap.NewNop(),
		Vectorizer: vec,
		Repo:       txnrepository.Provide(),
	})
	return db, gen, node
}

func seedRows(t *testing.T, db *gorm.DB, node *snowflake.Node, n int) []Row {
	t.Helper()
	rows := make([]Row, 0, n)
	for i := 0; i < n; i++ {
		txn := txndomain.Transaction{
			ID:               node.Generate().Int64(),
			Date:             time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
			DescriptionRaw:   fmt.Sprintf("Payment - Merchant: Shop %d", i),
			Direction:        "expense",
			AmountOriginal:   decimal.NewFromFloat(4.20),
			CurrencyOriginal: "GEL",
			AmountGEL:        decimal.NewFromFloat(4.20),
			DedupKey:         fmt.Sprintf("%064d", i),
			CreatedAt:        time.Now().UTC(),
		}
		require.NoError(t, db.Create(&txn).Error)
		rows = append(rows, Row{TransactionID: txn.ID, Text: txn.DescriptionRaw})
	}
	return rows
}

// TestGenerator_StoresVectors embeds a small batch and verifies every row
// ends up with a stored vector and one progress report.
func TestGenerator_StoresVectors(t *testing.T) {
	vec := &stubVectorizer{configured: true}
	db, gen, node := setupGeneratorTest(t, vec)
	rows := seedRows(t, db, node, 3)

	var reports []int
	updated, err := gen.Generate(context.Background(), rows, func(done int) error {
		reports = append(reports, done)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, updated)
	assert.Equal(t, []int{3}, reports)
	require.Len(t, vec.calls, 1)
	assert.Len(t, vec.calls[0], 3)

	for _, row := range rows {
		var stored txndomain.Transaction
		require.NoError(t, db.First(&stored, "id = ?", row.TransactionID).Error)
		require.NotNil(t, stored.Embedding, "row %d should carry a vector", row.TransactionID)
		assert.Len(t, stored.Embedding.Slice(), 2)
	}
}

// TestGenerator_SplitsIntoBatches checks the 100-row batch boundary and
// the cumulative progress values.
func TestGenerator_SplitsIntoBatches(t *testing.T) {
	vec := &stubVectorizer{configured: true}
	db, gen, node := setupGeneratorTest(t, vec)
	rows := seedRows(t, db, node, 150)

	var reports []int
	updated, err := gen.Generate(context.Background(), rows, func(done int) error {
		reports = append(reports, done)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 150, updated)
	assert.Equal(t, []int{100, 150}, reports)
	require.Len(t, vec.calls, 2)
	assert.Len(t, vec.calls[0], 100)
	assert.Len(t, vec.calls[1], 50)
}

// TestGenerator_UnconfiguredIsNoop runs without an API key: no calls, no
// vectors, no error.
func TestGenerator_UnconfiguredIsNoop(t *testing.T) {
	vec := &stubVectorizer{configured: false}
	db, gen, node := setupGeneratorTest(t, vec)
	rows := seedRows(t, db, node, 2)

	updated, err := gen.Generate(context.Background(), rows, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, updated)
	assert.Empty(t, vec.calls)

	var stored txndomain.Transaction
	require.NoError(t, db.First(&stored, "id = ?", rows[0].TransactionID).Error)
	assert.Nil(t, stored.Embedding)
}

// TestGenerator_EmbedFailurePropagates surfaces vectorizer errors along
// with the count of rows already stored.
func TestGenerator_EmbedFailurePropagates(t *testing.T) {
	vec := &stubVectorizer{configured: true, err: errors.New("quota exhausted")}
	db, gen, node := setupGeneratorTest(t, vec)
	rows := seedRows(t, db, node, 2)

	updated, err := gen.Generate(context.Background(), rows, nil)
	require.Error(t, err)
	assert.Equal(t, 0, updated)
}

// TestGenerator_ProgressAbort stops between batches when the progress
// callback fails, keeping the already-stored vectors.
func TestGenerator_ProgressAbort(t *testing.T) {
	vec := &stubVectorizer{configured: true}
	db, gen, node := setupGeneratorTest(t, vec)
	rows := seedRows(t, db, node, 120)

	abort := errors.New("job cancelled")
	updated, err := gen.Generate(context.Background(), rows, func(done int) error {
		return abort
	})
	require.ErrorIs(t, err, abort)
	assert.Equal(t, 100, updated)

	var withVector int64
	require.NoError(t, db.Model(&txndomain.Transaction{}).
		Where("embedding IS NOT NULL").
		Count(&withVector).Error)
	assert.Equal(t, int64(100), withVector)
}
