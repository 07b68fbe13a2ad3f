package runner

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lib/pq"
	"github.com/saldotech/saldo/internal/clock"
	"github.com/saldotech/saldo/internal/cloudmetrics"
	"github.com/saldotech/saldo/internal/config"
	"github.com/saldotech/saldo/internal/embedding"
	merchantdomain "github.com/saldotech/saldo/internal/merchant/domain"
	"github.com/saldotech/saldo/internal/observability/obsctx"
	"github.com/saldotech/saldo/internal/statement"
	txndomain "github.com/saldotech/saldo/internal/transaction/domain"
	uploaddomain "github.com/saldotech/saldo/internal/upload/domain"
	"github.com/saldotech/saldo/pkg/telemetry/correlation"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// insertChunkSize bounds the rows per INSERT so one statement stays well
// under driver parameter limits.
const insertChunkSize = 500

var errNoValidRows = errors.New("No valid transaction rows found in the uploaded file")

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Cfg      config.Config
	GenID    *snowflake.Node
	Clock    clock.Clock
	Uploads  uploaddomain.Repository
	Txns     txndomain.Repository
	Resolver merchantdomain.Resolver
	Embedder *embedding.Generator
}

// Runner executes one upload job end to end: parse, categorize, insert,
// embed. Every phase transition and counter update is persisted before
// the next phase starts, so status polls and crash recovery always see
// a consistent row.
type Runner struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	parser   *statement.Parser
	uploads  uploaddomain.Repository
	txns     txndomain.Repository
	resolver merchantdomain.Resolver
	embedder *embedding.Generator
}

func New(p Params) *Runner {
	parserCfg := statement.Config{
		HomeCurrency:      p.Cfg.HomeCurrency,
		ForeignCurrencies: p.Cfg.ForeignCurrencies,
	}
	return &Runner{
		db:       p.DB,
		log:      p.Log.Named("upload.runner"),
		genID:    p.GenID,
		clock:    p.Clock,
		parser:   statement.NewParser(parserCfg, p.Log),
		uploads:  p.Uploads,
		txns:     p.Txns,
		resolver: p.Resolver,
		embedder: p.Embedder,
	}
}

// Run processes a single upload id. Errors never escape: the job either
// reaches status done, or status error with the cause on the row.
func (r *Runner) Run(ctx context.Context, uploadID int64) {
	ctx, correlationID := correlation.EnsureCorrelationID(ctx)
	ctx = obsctx.WithUploadID(ctx, uploadID)
	log := r.log.With(
		zap.Int64("upload_id", uploadID),
		zap.String("correlation_id", correlationID),
	)

	upload, err := r.uploads.FindByID(ctx, r.db, uploadID)
	if err != nil {
		log.Error("upload lookup failed", zap.Error(err))
		return
	}
	if upload == nil {
		log.Warn("upload vanished before processing")
		return
	}
	if upload.Status != uploaddomain.StatusProcessing {
		log.Info("upload already terminal, skipping", zap.String("status", upload.Status))
		return
	}

	jobStart := r.clock.Now()

	if err := r.setPhase(ctx, upload, uploaddomain.PhaseParsing); err != nil {
		r.fail(ctx, log, upload, err)
		return
	}
	content, err := r.uploads.FileByUploadID(ctx, r.db, uploadID)
	if err != nil {
		r.fail(ctx, log, upload, err)
		return
	}
	if len(content) == 0 {
		r.fail(ctx, log, upload, errors.New("uploaded file content is missing"))
		return
	}

	phaseStart := r.clock.Now()
	result, err := r.parser.Parse(content)
	if err != nil {
		r.fail(ctx, log, upload, err)
		return
	}
	r.observePhase(uploaddomain.PhaseParsing, phaseStart)

	upload.RowsTotal = result.RowsTotal
	upload.RowsSkippedNonTransaction = result.RowsSkippedNonTransaction
	upload.RowsInvalid = result.RowsInvalid
	upload.SheetNames = pq.StringArray(result.SheetNames)
	if result.SheetName != "" {
		sheet := result.SheetName
		headerRow := result.HeaderRow
		upload.HeaderSheet = &sheet
		upload.HeaderRow = &headerRow
	}
	cloudmetrics.RecordRows(cloudmetrics.RowsSkipped, result.RowsSkippedNonTransaction)
	cloudmetrics.RecordRows(cloudmetrics.RowsInvalid, result.RowsInvalid)

	if len(result.Transactions) == 0 {
		r.fail(ctx, log, upload, errNoValidRows)
		return
	}

	if err := r.setPhase(ctx, upload, uploaddomain.PhaseCategorizing); err != nil {
		r.fail(ctx, log, upload, err)
		return
	}
	phaseStart = r.clock.Now()
	resolution, err := r.resolver.Resolve(ctx, result.Transactions)
	if err != nil {
		r.fail(ctx, log, upload, err)
		return
	}
	r.observePhase(uploaddomain.PhaseCategorizing, phaseStart)
	upload.LLMUsedCount = resolution.LLMUsedCount
	upload.FallbackUsedCount = resolution.FallbackUsedCount

	if err := r.setPhase(ctx, upload, uploaddomain.PhaseInserting); err != nil {
		r.fail(ctx, log, upload, err)
		return
	}
	phaseStart = r.clock.Now()
	rows := r.buildRows(uploadID, result.Transactions, resolution.MerchantIDs)

	inserted := 0
	embedRows := make([]embedding.Row, 0, len(rows))
	for start := 0; start < len(rows); start += insertChunkSize {
		chunk := rows[start:min(start+insertChunkSize, len(rows))]

		count, err := r.txns.InsertIgnore(ctx, r.db, chunk)
		if err != nil {
			r.fail(ctx, log, upload, err)
			return
		}
		inserted += int(count)

		keys := make([]string, 0, len(chunk))
		for _, row := range chunk {
			keys = append(keys, row.DedupKey)
		}
		stored, err := r.txns.FindByDedupKeys(ctx, r.db, keys)
		if err != nil {
			r.fail(ctx, log, upload, err)
			return
		}
		// A row whose stored id matches the one we generated was inserted
		// by this job; anything else already existed and is a duplicate.
		for _, row := range chunk {
			if stored[row.DedupKey] == row.ID {
				embedRows = append(embedRows, embedding.Row{
					TransactionID: row.ID,
					Text:          row.DescriptionRaw,
				})
			}
		}

		upload.RowsProcessed += len(chunk)
		if err := r.persist(ctx, upload); err != nil {
			r.fail(ctx, log, upload, err)
			return
		}
	}
	r.observePhase(uploaddomain.PhaseInserting, phaseStart)

	upload.RowsImported = inserted
	upload.RowsDuplicate = max(len(rows)-inserted, 0)
	cloudmetrics.RecordRows(cloudmetrics.RowsImported, upload.RowsImported)
	cloudmetrics.RecordRows(cloudmetrics.RowsDuplicate, upload.RowsDuplicate)

	if upload.GenerateEmbeddings() && len(embedRows) > 0 {
		if err := r.setPhase(ctx, upload, uploaddomain.PhaseEmbedding); err != nil {
			r.fail(ctx, log, upload, err)
			return
		}
		phaseStart = r.clock.Now()
		generated, err := r.embedder.Generate(ctx, embedRows, func(done int) error {
			upload.EmbeddingsGenerated = done
			return r.persist(ctx, upload)
		})
		upload.EmbeddingsGenerated = generated
		if err != nil {
			// Vectors are an enrichment: the transactions are already
			// stored, so the job still finishes with a warning attached.
			msg := "embedding generation failed: " + err.Error()
			upload.ErrorMessage = &msg
			log.Warn("embedding generation failed", zap.Int("generated", generated), zap.Error(err))
		}
		r.observePhase(uploaddomain.PhaseEmbedding, phaseStart)
	}

	upload.Status = uploaddomain.StatusDone
	upload.ProcessingPhase = uploaddomain.PhaseDone
	if err := r.persist(ctx, upload); err != nil {
		r.fail(ctx, log, upload, err)
		return
	}
	cloudmetrics.RecordJobFinished(uploaddomain.StatusDone)

	log.Info("upload processed",
		zap.Int("rows_total", upload.RowsTotal),
		zap.Int("rows_imported", upload.RowsImported),
		zap.Int("rows_duplicate", upload.RowsDuplicate),
		zap.Int("rows_invalid", upload.RowsInvalid),
		zap.Int("llm_used", upload.LLMUsedCount),
		zap.Int("fallback_used", upload.FallbackUsedCount),
		zap.Int("embeddings_generated", upload.EmbeddingsGenerated),
		zap.Duration("elapsed", r.clock.Now().Sub(jobStart)),
	)
}

func (r *Runner) buildRows(uploadID int64, parsed []statement.ParsedTransaction, merchantIDs []*int64) []*txndomain.Transaction {
	now := r.clock.Now()
	rows := make([]*txndomain.Transaction, 0, len(parsed))
	for i, tx := range parsed {
		rows = append(rows, &txndomain.Transaction{
			ID:               r.genID.Generate().Int64(),
			Date:             tx.Date,
			PostedDate:       tx.PostedDate,
			DescriptionRaw:   tx.DescriptionRaw,
			MerchantID:       merchantIDs[i],
			Direction:        tx.Direction,
			AmountOriginal:   tx.AmountOriginal,
			CurrencyOriginal: tx.CurrencyOriginal,
			AmountGEL:        tx.AmountGEL,
			ConversionRate:   tx.ConversionRate,
			CardLast4:        optional(tx.CardLast4),
			MCCCode:          optional(tx.MCCCode),
			UploadID:         &uploadID,
			DedupKey:         tx.DedupKey,
			CreatedAt:        now,
		})
	}
	return rows
}

func (r *Runner) setPhase(ctx context.Context, upload *uploaddomain.Upload, phase string) error {
	upload.ProcessingPhase = phase
	return r.persist(ctx, upload)
}

func (r *Runner) persist(ctx context.Context, upload *uploaddomain.Upload) error {
	upload.UpdatedAt = r.clock.Now()
	return r.uploads.Update(ctx, r.db, upload)
}

func (r *Runner) observePhase(phase string, start time.Time) {
	cloudmetrics.ObserveJobPhase(phase, r.clock.Now().Sub(start).Seconds())
}

// fail moves the job to its error terminal state. The cause becomes the
// client-visible error message and the import counter is reset because a
// failed job reports nothing as imported.
func (r *Runner) fail(ctx context.Context, log *zap.Logger, upload *uploaddomain.Upload, cause error) {
	log.Error("upload processing failed", zap.String("phase", upload.ProcessingPhase), zap.Error(cause))
	msg := cause.Error()
	upload.Status = uploaddomain.StatusError
	upload.ProcessingPhase = uploaddomain.PhaseError
	upload.ErrorMessage = &msg
	upload.RowsImported = 0
	if err := r.persist(ctx, upload); err != nil {
		log.Error("failed to persist error state", zap.Error(err))
	}
	cloudmetrics.RecordJobFinished(uploaddomain.StatusError)
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	v := value
	return &v
}
