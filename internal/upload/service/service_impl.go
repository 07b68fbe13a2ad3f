package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/saldotech/saldo/internal/clock"
	"github.com/saldotech/saldo/internal/cloudmetrics"
	"github.com/saldotech/saldo/internal/upload/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Enqueuer domain.Enqueuer
}

type service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	enqueuer domain.Enqueuer
}

func New(p Params) domain.Service {
	return &service{
		db:       p.DB,
		log:      p.Log.Named("upload.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		enqueuer: p.Enqueuer,
	}
}

// Submit persists the job and its file, then hands the id to the worker
// pool. The row is written first so a crash between accept and enqueue
// leaves a processing job the recovery sweep can pick up.
func (s *service) Submit(ctx context.Context, req domain.SubmitRequest) (*domain.Accepted, error) {
	now := s.clock.Now()
	upload := &domain.Upload{
		ID:              s.genID.Generate().Int64(),
		Filename:        strings.TrimSpace(req.Filename),
		Status:          domain.StatusProcessing,
		ProcessingPhase: domain.PhaseQueued,
		Options:         datatypes.JSONMap{"generate_embeddings": req.GenerateEmbeddings},
		UploadedAt:      now,
		UpdatedAt:       now,
	}

	if err := s.repo.CreateWithFile(ctx, s.db, upload, req.Content); err != nil {
		return nil, err
	}
	cloudmetrics.RecordUploadAccepted()

	if err := s.enqueuer.Enqueue(upload.ID); err != nil {
		s.log.Warn("upload rejected, queue full", zap.Int64("upload_id", upload.ID))
		msg := "processing queue is full, retry later"
		upload.Status = domain.StatusError
		upload.ProcessingPhase = domain.PhaseError
		upload.ErrorMessage = &msg
		upload.UpdatedAt = s.clock.Now()
		if uerr := s.repo.Update(ctx, s.db, upload); uerr != nil {
			s.log.Error("failed to mark rejected upload", zap.Int64("upload_id", upload.ID), zap.Error(uerr))
		}
		return nil, domain.ErrQueueFull
	}

	s.log.Info("upload accepted",
		zap.Int64("upload_id", upload.ID),
		zap.String("filename", upload.Filename),
		zap.Int("bytes", len(req.Content)),
		zap.Bool("generate_embeddings", req.GenerateEmbeddings),
	)

	return &domain.Accepted{
		UploadID: snowflake.ID(upload.ID).String(),
		Filename: upload.Filename,
		Status:   upload.Status,
	}, nil
}

func (s *service) Status(ctx context.Context, uploadID int64) (*domain.StatusResponse, error) {
	upload, err := s.repo.FindByID(ctx, s.db, uploadID)
	if err != nil {
		return nil, err
	}
	if upload == nil {
		return nil, domain.ErrNotFound
	}

	return &domain.StatusResponse{
		UploadID:                  snowflake.ID(upload.ID).String(),
		Filename:                  upload.Filename,
		Status:                    upload.Status,
		ProcessingPhase:           upload.ProcessingPhase,
		ProgressPercent:           progressPercent(upload),
		RowsTotal:                 upload.RowsTotal,
		RowsProcessed:             upload.RowsProcessed,
		RowsSkippedNonTransaction: upload.RowsSkippedNonTransaction,
		RowsInvalid:               upload.RowsInvalid,
		RowsDuplicate:             upload.RowsDuplicate,
		RowsInserted:              upload.RowsImported,
		LLMUsedCount:              upload.LLMUsedCount,
		FallbackUsedCount:         upload.FallbackUsedCount,
		EmbeddingsGenerated:       upload.EmbeddingsGenerated,
		ErrorMessage:              upload.ErrorMessage,
	}, nil
}

// progressPercent maps the persisted phase and counters onto a coarse
// 0..100 scale. Inserting advances 20..80 with row progress, embedding
// 80..99; only the done phase reports 100.
func progressPercent(u *domain.Upload) int {
	switch u.ProcessingPhase {
	case domain.PhaseDone:
		return 100
	case domain.PhaseQueued:
		return 1
	case domain.PhaseParsing:
		return 5
	case domain.PhaseCategorizing:
		return 20
	case domain.PhaseInserting:
		progress := 20
		if u.RowsTotal > 0 {
			part := 60 * u.RowsProcessed / u.RowsTotal
			if part > 60 {
				part = 60
			}
			progress += part
		}
		return progress
	case domain.PhaseEmbedding:
		progress := 80
		if u.RowsImported > 0 {
			part := 20 * u.EmbeddingsGenerated / u.RowsImported
			if part > 19 {
				part = 19
			}
			progress += part
		}
		return progress
	default:
		return 10
	}
}
