package repository

import (
	"context"

	"github.com/saldotech/saldo/internal/upload/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) CreateWithFile(ctx context.Context, db *gorm.DB, upload *domain.Upload, content []byte) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(
			`INSERT INTO uploads (id, filename, status, processing_phase, rows_total, rows_processed,
			   rows_skipped_non_transaction, rows_invalid, rows_duplicate, rows_imported,
			   llm_used_count, fallback_used_count, embeddings_generated, error_message,
			   sheet_names, header_sheet, header_row, options, uploaded_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			upload.ID,
			upload.Filename,
			upload.Status,
			upload.ProcessingPhase,
			upload.RowsTotal,
			upload.RowsProcessed,
			upload.RowsSkippedNonTransaction,
			upload.RowsInvalid,
			upload.RowsDuplicate,
			upload.RowsImported,
			upload.LLMUsedCount,
			upload.FallbackUsedCount,
			upload.EmbeddingsGenerated,
			upload.ErrorMessage,
			upload.SheetNames,
			upload.HeaderSheet,
			upload.HeaderRow,
			upload.Options,
			upload.UploadedAt,
			upload.UpdatedAt,
		).Error; err != nil {
			return err
		}
		return tx.Exec(
			`INSERT INTO upload_files (upload_id, content, created_at) VALUES (?, ?, ?)`,
			upload.ID,
			content,
			upload.UploadedAt,
		).Error
	})
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Upload, error) {
	var upload domain.Upload
	err := db.WithContext(ctx).Raw(
		`SELECT id, filename, status, processing_phase, rows_total, rows_processed,
		   rows_skipped_non_transaction, rows_invalid, rows_duplicate, rows_imported,
		   llm_used_count, fallback_used_count, embeddings_generated, error_message,
		   sheet_names, header_sheet, header_row, options, uploaded_at, updated_at
		 FROM uploads WHERE id = ?`,
		id,
	).Scan(&upload).Error
	if err != nil {
		return nil, err
	}
	if upload.ID == 0 {
		return nil, nil
	}
	return &upload, nil
}

func (r *repo) FileByUploadID(ctx context.Context, db *gorm.DB, uploadID int64) ([]byte, error) {
	var file domain.UploadFile
	err := db.WithContext(ctx).Raw(
		`SELECT upload_id, content FROM upload_files WHERE upload_id = ?`,
		uploadID,
	).Scan(&file).Error
	if err != nil {
		return nil, err
	}
	if file.UploadID == 0 {
		return nil, nil
	}
	return file.Content, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, upload *domain.Upload) error {
	return db.WithContext(ctx).Exec(
		`UPDATE uploads
		 SET status = ?, processing_phase = ?, rows_total = ?, rows_processed = ?,
		   rows_skipped_non_transaction = ?, rows_invalid = ?, rows_duplicate = ?,
		   rows_imported = ?, llm_used_count = ?, fallback_used_count = ?,
		   embeddings_generated = ?, error_message = ?, sheet_names = ?,
		   header_sheet = ?, header_row = ?, updated_at = ?
		 WHERE id = ?`,
		upload.Status,
		upload.ProcessingPhase,
		upload.RowsTotal,
		upload.RowsProcessed,
		upload.RowsSkippedNonTransaction,
		upload.RowsInvalid,
		upload.RowsDuplicate,
		upload.RowsImported,
		upload.LLMUsedCount,
		upload.FallbackUsedCount,
		upload.EmbeddingsGenerated,
		upload.ErrorMessage,
		upload.SheetNames,
		upload.HeaderSheet,
		upload.HeaderRow,
		upload.UpdatedAt,
		upload.ID,
	).Error
}

func (r *repo) PendingIDs(ctx context.Context, db *gorm.DB) ([]int64, error) {
	var ids []int64
	err := db.WithContext(ctx).Raw(
		`SELECT id FROM uploads WHERE status = ? ORDER BY uploaded_at ASC, id ASC`,
		domain.StatusProcessing,
	).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
