package embedding

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"github.com/saldotech/saldo/internal/cloudmetrics"
	txndomain "github.com/saldotech/saldo/internal/transaction/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// batchSize caps how many descriptions go into one embedding request.
const batchSize = 100

// Vectorizer turns description texts into fixed-size vectors.
type Vectorizer interface {
	Configured() bool
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Row pairs a stored transaction with the text to embed for it.
type Row struct {
	TransactionID int64
	Text          string
}

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Vectorizer Vectorizer
	Repo       txndomain.Repository
}

type Generator struct {
	db         *gorm.DB
	log        *zap.Logger
	vectorizer Vectorizer
	repo       txndomain.Repository
}

func New(p Params) *Generator {
	return &Generator{
		db:         p.DB,
		log:        p.Log.Named("embedding.generator"),
		vectorizer: p.Vectorizer,
		repo:       p.Repo,
	}
}

// Generate embeds rows in batches, storing each batch before requesting
// the next and reporting cumulative progress after every stored batch.
// Returns how many rows received a vector. An unconfigured vectorizer is
// a no-op, not an error.
func (g *Generator) Generate(ctx context.Context, rows []Row, progress func(done int) error) (int, error) {
	if len(rows) == 0 || !g.vectorizer.Configured() {
		return 0, nil
	}

	updated := 0
	for start := 0; start < len(rows); start += batchSize {
		end := start + batchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]

		texts := make([]string, 0, len(batch))
		for _, row := range batch {
			texts = append(texts, row.Text)
		}

		vectors, err := g.vectorizer.Embed(ctx, texts)
		if err != nil {
			cloudmetrics.RecordEmbeddingBatch(cloudmetrics.BatchFailed)
			return updated, fmt.Errorf("embed batch: %w", err)
		}
		if len(vectors) != len(batch) {
			cloudmetrics.RecordEmbeddingBatch(cloudmetrics.BatchFailed)
			return updated, fmt.Errorf("embedding count mismatch: sent %d, got %d", len(batch), len(vectors))
		}

		updates := make([]txndomain.EmbeddingUpdate, 0, len(batch))
		for i, row := range batch {
			updates = append(updates, txndomain.EmbeddingUpdate{
				TransactionID: row.TransactionID,
				Vector:        pgvector.NewVector(vectors[i]),
			})
		}
		if err := g.repo.SetEmbeddings(ctx, g.db, updates); err != nil {
			cloudmetrics.RecordEmbeddingBatch(cloudmetrics.BatchFailed)
			return updated, fmt.Errorf("store embeddings: %w", err)
		}

		updated += len(batch)
		cloudmetrics.RecordEmbeddingBatch(cloudmetrics.BatchOK)
		g.log.Debug("embedding batch stored", zap.Int("done", updated), zap.Int("total", len(rows)))

		if progress != nil {
			if err := progress(updated); err != nil {
				return updated, err
			}
		}
	}
	return updated, nil
}
