package domain

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// Upload job statuses.
const (
	StatusProcessing = "processing"
	StatusDone       = "done"
	StatusError      = "error"
)

// Processing phases an upload job moves through. Transitions are
// persisted before the work of the next phase starts, so a status poll
// never reports a phase that has not actually begun.
const (
	PhaseQueued       = "queued"
	PhaseParsing      = "parsing"
	PhaseCategorizing = "categorizing"
	PhaseInserting    = "inserting"
	PhaseEmbedding    = "embedding"
	PhaseDone         = "done"
	PhaseError        = "error"
)

// Upload is the persistent record of one statement ingestion job.
type Upload struct {
	ID                        int64             `json:"id" gorm:"primaryKey"`
	Filename                  string            `json:"filename" gorm:"type:text;not null"`
	Status                    string            `json:"status" gorm:"type:text;not null;default:'processing'"`
	ProcessingPhase           string            `json:"processing_phase" gorm:"type:text;not null;default:'queued'"`
	RowsTotal                 int               `json:"rows_total" gorm:"not null;default:0"`
	RowsProcessed             int               `json:"rows_processed" gorm:"not null;default:0"`
	RowsSkippedNonTransaction int               `json:"rows_skipped_non_transaction" gorm:"not null;default:0"`
	RowsInvalid               int               `json:"rows_invalid" gorm:"not null;default:0"`
	RowsDuplicate             int               `json:"rows_duplicate" gorm:"not null;default:0"`
	RowsImported              int               `json:"rows_imported" gorm:"not null;default:0"`
	LLMUsedCount              int               `json:"llm_used_count" gorm:"column:llm_used_count;not null;default:0"`
	FallbackUsedCount         int               `json:"fallback_used_count" gorm:"not null;default:0"`
	EmbeddingsGenerated       int               `json:"embeddings_generated" gorm:"not null;default:0"`
	ErrorMessage              *string           `json:"error_message,omitempty" gorm:"type:text"`
	SheetNames                pq.StringArray    `json:"sheet_names,omitempty" gorm:"type:text[]"`
	HeaderSheet               *string           `json:"header_sheet,omitempty" gorm:"type:text"`
	HeaderRow                 *int              `json:"header_row,omitempty"`
	Options                   datatypes.JSONMap `json:"options,omitempty" gorm:"type:jsonb"`
	UploadedAt                time.Time         `json:"uploaded_at" gorm:"not null"`
	UpdatedAt                 time.Time         `json:"updated_at" gorm:"not null"`
}

func (Upload) TableName() string {
	return "uploads"
}

// GenerateEmbeddings reports whether the submitter asked for vectors.
// Jobs created before the option existed carry no entry and default to true.
func (u *Upload) GenerateEmbeddings() bool {
	if u.Options == nil {
		return true
	}
	if v, ok := u.Options["generate_embeddings"].(bool); ok {
		return v
	}
	return true
}

// UploadFile holds the raw statement bytes in a separate table so that
// status polls and list queries never load the blob.
type UploadFile struct {
	UploadID  int64     `json:"upload_id" gorm:"primaryKey"`
	Content   []byte    `json:"-" gorm:"not null"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
}

func (UploadFile) TableName() string {
	return "upload_files"
}
