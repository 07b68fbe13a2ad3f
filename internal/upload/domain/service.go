package domain

import (
	"context"
	"errors"
)

var (
	ErrNotFound  = errors.New("upload_not_found")
	ErrQueueFull = errors.New("upload_queue_full")
)

// SubmitRequest carries one validated statement file into the pipeline.
type SubmitRequest struct {
	Filename           string
	Content            []byte
	GenerateEmbeddings bool
}

// Accepted is the immediate reply to a submission; processing continues
// in the background.
type Accepted struct {
	UploadID string `json:"upload_id"`
	Filename string `json:"filename"`
	Status   string `json:"status"`
}

// StatusResponse is the poll view of a job. RowsInserted mirrors the
// rows_imported counter under the name clients know it by.
type StatusResponse struct {
	UploadID                  string  `json:"upload_id"`
	Filename                  string  `json:"filename"`
	Status                    string  `json:"status"`
	ProcessingPhase           string  `json:"processing_phase"`
	ProgressPercent           int     `json:"progress_percent"`
	RowsTotal                 int     `json:"rows_total"`
	RowsProcessed             int     `json:"rows_processed"`
	RowsSkippedNonTransaction int     `json:"rows_skipped_non_transaction"`
	RowsInvalid               int     `json:"rows_invalid"`
	RowsDuplicate             int     `json:"rows_duplicate"`
	RowsInserted              int     `json:"rows_inserted"`
	LLMUsedCount              int     `json:"llm_used_count"`
	FallbackUsedCount         int     `json:"fallback_used_count"`
	EmbeddingsGenerated       int     `json:"embeddings_generated"`
	ErrorMessage              *string `json:"error_message"`
}

// Enqueuer hands accepted jobs to the background workers. It must not
// block: a full queue is reported as ErrQueueFull.
type Enqueuer interface {
	Enqueue(uploadID int64) error
}

type Service interface {
	Submit(ctx context.Context, req SubmitRequest) (*Accepted, error)
	Status(ctx context.Context, uploadID int64) (*StatusResponse, error)
}
