package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	// CreateWithFile inserts the job row and its raw file in one transaction.
	CreateWithFile(ctx context.Context, db *gorm.DB, upload *Upload, content []byte) error

	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Upload, error)

	// FileByUploadID returns the stored statement bytes, or nil when absent.
	FileByUploadID(ctx context.Context, db *gorm.DB, uploadID int64) ([]byte, error)

	// Update writes the full job row back, including counters and phase.
	Update(ctx context.Context, db *gorm.DB, upload *Upload) error

	// PendingIDs lists jobs still marked processing, oldest first. Used to
	// re-enqueue work that was in flight when the process last stopped.
	PendingIDs(ctx context.Context, db *gorm.DB) ([]int64, error)
}
