package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	ListNames(ctx context.Context, db *gorm.DB) ([]string, error)
	ExistsByName(ctx context.Context, db *gorm.DB, name string) (bool, error)
	InsertIgnore(ctx context.Context, db *gorm.DB, categories []*Category) (int64, error)
}
