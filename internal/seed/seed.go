package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	categorydomain "github.com/saldotech/saldo/internal/category/domain"
	categoryrepository "github.com/saldotech/saldo/internal/category/repository"
	"github.com/saldotech/saldo/internal/config"
	"gorm.io/gorm"
)

// EnsureDefaultCategories fills the category catalog with the built-in
// names on first start. Rows already present, including any the user
// added, are left untouched.
func EnsureDefaultCategories(db *gorm.DB, rules config.CategoryRules) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if len(rules.Categories) == 0 {
		return nil
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	categories := make([]*categorydomain.Category, 0, len(rules.Categories))
	for _, name := range rules.Categories {
		categories = append(categories, &categorydomain.Category{
			ID:        node.Generate().Int64(),
			Name:      name,
			CreatedAt: now,
		})
	}

	_, err = categoryrepository.Provide().InsertIgnore(context.Background(), db, categories)
	return err
}
