package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	categorydomain "github.com/saldotech/saldo/internal/category/domain"
	"github.com/saldotech/saldo/internal/merchant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Repo       domain.Repository
	Categories categorydomain.Service
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	repo       domain.Repository
	categories categorydomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("merchant.service"),
		repo:       p.Repo,
		categories: p.Categories,
	}
}

func (s *Service) List(ctx context.Context, limit int) ([]domain.MerchantView, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	rows, err := s.repo.ListWithStats(ctx, s.db, limit)
	if err != nil {
		return nil, err
	}

	views := make([]domain.MerchantView, 0, len(rows))
	for _, row := range rows {
		views = append(views, domain.MerchantView{
			ID:               snowflake.ID(row.ID).String(),
			RawName:          row.RawName,
			NormalizedName:   row.NormalizedName,
			Category:         row.Category,
			CategorySource:   row.CategorySource,
			MCCCode:          row.MCCCode,
			TransactionCount: row.TransactionCount,
			TotalSpent:       row.TotalSpent,
		})
	}
	return views, nil
}

// UpdateCategory pins a merchant to a catalog category. The override is
// marked with the user source so later ingests never reclassify it.
func (s *Service) UpdateCategory(ctx context.Context, id int64, category string) (*domain.CategoryUpdate, error) {
	m, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, domain.ErrNotFound
	}

	category = strings.TrimSpace(category)
	exists, err := s.categories.Exists(ctx, category)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrUnknownCategory
	}

	rows, err := s.repo.UpdateCategory(ctx, s.db, id, category, domain.SourceUser)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, domain.ErrNotFound
	}

	s.log.Info("merchant category overridden",
		zap.Int64("merchant_id", id),
		zap.String("category", category),
	)

	return &domain.CategoryUpdate{
		ID:             snowflake.ID(id).String(),
		Category:       category,
		CategorySource: domain.SourceUser,
	}, nil
}
