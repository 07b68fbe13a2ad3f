package repository

import (
	"context"

	"github.com/saldotech/saldo/internal/merchant/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByNormalizedNames(ctx context.Context, db *gorm.DB, names []string) ([]domain.Merchant, error) {
	if len(names) == 0 {
		return nil, nil
	}
	var items []domain.Merchant
	err := db.WithContext(ctx).Raw(
		`SELECT id, raw_name, normalized_name, category, category_source, mcc_code, created_at, updated_at
		 FROM merchants WHERE normalized_name IN ?`,
		names,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Merchant, error) {
	var m domain.Merchant
	err := db.WithContext(ctx).Raw(
		`SELECT id, raw_name, normalized_name, category, category_source, mcc_code, created_at, updated_at
		 FROM merchants WHERE id = ?`,
		id,
	).Scan(&m).Error
	if err != nil {
		return nil, err
	}
	if m.ID == 0 {
		return nil, nil
	}
	return &m, nil
}

// InsertIgnore inserts merchants, skipping any whose normalized_name is
// already taken. Returns the number of rows actually inserted.
func (r *repo) InsertIgnore(ctx context.Context, db *gorm.DB, merchants []*domain.Merchant) (int64, error) {
	if len(merchants) == 0 {
		return 0, nil
	}
	res := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "normalized_name"}},
		DoNothing: true,
	}).Create(&merchants)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repo) UpdateCategory(ctx context.Context, db *gorm.DB, id int64, category, source string) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE merchants SET category = ?, category_source = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		category,
		source,
		id,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repo) ListWithStats(ctx context.Context, db *gorm.DB, limit int) ([]domain.StatsRow, error) {
	var rows []domain.StatsRow
	err := db.WithContext(ctx).Raw(
		`SELECT m.id, m.raw_name, m.normalized_name, m.category, m.category_source, m.mcc_code,
		        m.created_at, m.updated_at,
		        COUNT(t.id) AS transaction_count,
		        COALESCE(SUM(CASE WHEN t.direction = 'expense' THEN t.amount_gel ELSE 0 END), 0) AS total_spent
		 FROM merchants m
		 LEFT JOIN transactions t ON t.merchant_id = m.id
		 GROUP BY m.id, m.raw_name, m.normalized_name, m.category, m.category_source, m.mcc_code, m.created_at, m.updated_at
		 ORDER BY total_spent DESC, m.id ASC
		 LIMIT ?`,
		limit,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
