package service

import (
	"context"

	"github.com/saldotech/saldo/internal/category/domain"
	"github.com/saldotech/saldo/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Repo  domain.Repository
	Rules *config.RulesHolder
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  domain.Repository
	rules *config.RulesHolder
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("category.service"),
		repo:  p.Repo,
		rules: p.Rules,
	}
}

func (s *Service) List(ctx context.Context) ([]string, error) {
	names, err := s.repo.ListNames(ctx, s.db)
	if err != nil {
		return nil, err
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// AllowedSet returns the catalog names, falling back to the configured
// rule set when the table has not been seeded yet.
func (s *Service) AllowedSet(ctx context.Context) (map[string]struct{}, error) {
	names, err := s.repo.ListNames(ctx, s.db)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		names = s.rules.Get().Categories
	}
	allowed := make(map[string]struct{}, len(names))
	for _, name := range names {
		allowed[name] = struct{}{}
	}
	return allowed, nil
}

func (s *Service) Exists(ctx context.Context, name string) (bool, error) {
	return s.repo.ExistsByName(ctx, s.db, name)
}
