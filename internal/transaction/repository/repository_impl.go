package repository

import (
	"context"
	"strings"

	"github.com/saldotech/saldo/internal/transaction/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// InsertIgnore inserts transactions, skipping rows whose dedup_key is
// already stored. Duplicate keys inside the same batch collapse to one
// row as well. Returns the number of rows actually inserted.
func (r *repo) InsertIgnore(ctx context.Context, db *gorm.DB, txns []*domain.Transaction) (int64, error) {
	if len(txns) == 0 {
		return 0, nil
	}
	res := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "dedup_key"}},
		DoNothing: true,
	}).Create(&txns)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repo) FindByDedupKeys(ctx context.Context, db *gorm.DB, keys []string) (map[string]int64, error) {
	out := make(map[string]int64, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	var rows []struct {
		ID       int64  `gorm:"column:id"`
		DedupKey string `gorm:"column:dedup_key"`
	}
	err := db.WithContext(ctx).Raw(
		`SELECT id, dedup_key FROM transactions WHERE dedup_key IN ?`,
		keys,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		out[row.DedupKey] = row.ID
	}
	return out, nil
}

// sortColumns is the allowlist of sortable expressions. Merchant and
// category sort on the coalesced join columns so unmatched transactions
// group under Unknown/Other.
var sortColumns = map[string]string{
	"date":            "t.date",
	"amount_gel":      "t.amount_gel",
	"amount_original": "t.amount_original",
	"merchant":        "COALESCE(m.normalized_name, 'Unknown')",
	"category":        "COALESCE(m.category, 'Other')",
	"direction":       "t.direction",
}

func (r *repo) List(ctx context.Context, db *gorm.DB, f domain.ListFilter) ([]domain.ListRow, int64, error) {
	base := func() *gorm.DB {
		stmt := db.WithContext(ctx).
			Table("transactions AS t").
			Joins("LEFT JOIN merchants m ON m.id = t.merchant_id")

		if f.UploadID != nil {
			stmt = stmt.Where("t.upload_id = ?", *f.UploadID)
		}
		if f.DateFrom != nil {
			stmt = stmt.Where("t.date >= ?", *f.DateFrom)
		}
		if f.DateTo != nil {
			stmt = stmt.Where("t.date <= ?", *f.DateTo)
		}
		if f.Direction != "" {
			stmt = stmt.Where("t.direction = ?", f.Direction)
		}
		if len(f.Categories) > 0 {
			stmt = stmt.Where("COALESCE(m.category, 'Other') IN ?", f.Categories)
		} else if f.Category != "" {
			stmt = stmt.Where("COALESCE(m.category, 'Other') = ?", f.Category)
		}
		if f.Merchant != "" {
			term := "%" + strings.TrimSpace(f.Merchant) + "%"
			stmt = stmt.Where("LOWER(m.normalized_name) LIKE LOWER(?) OR LOWER(m.raw_name) LIKE LOWER(?)", term, term)
		}
		if f.CurrencyOriginal != "" {
			stmt = stmt.Where("t.currency_original = ?", strings.ToUpper(f.CurrencyOriginal))
		}
		if f.AmountGELMin != nil {
			stmt = stmt.Where("t.amount_gel >= ?", *f.AmountGELMin)
		}
		if f.AmountGELMax != nil {
			stmt = stmt.Where("t.amount_gel <= ?", *f.AmountGELMax)
		}
		return stmt
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortExpr, ok := sortColumns[f.SortBy]
	if !ok {
		sortExpr = sortColumns["date"]
	}
	order := "DESC"
	if strings.EqualFold(f.SortOrder, "asc") {
		order = "ASC"
	}

	var rows []domain.ListRow
	err := base().
		Select(`t.id, t.date, t.posted_date, t.description_raw, t.direction,
		        t.amount_original, t.currency_original, t.amount_gel, t.conversion_rate,
		        t.card_last4, t.mcc_code, t.upload_id,
		        COALESCE(m.normalized_name, 'Unknown') AS merchant_name,
		        COALESCE(m.category, 'Other') AS category`).
		Order(sortExpr + " " + order).
		Order("t.id DESC").
		Limit(f.Limit).
		Offset(f.Offset).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id int64) (int64, error) {
	res := db.WithContext(ctx).Exec(`DELETE FROM transactions WHERE id = ?`, id)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// SetEmbeddings writes vectors row by row inside one transaction so a
// batch either lands fully or not at all.
func (r *repo) SetEmbeddings(ctx context.Context, db *gorm.DB, updates []domain.EmbeddingUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range updates {
			if err := tx.Exec(
				`UPDATE transactions SET embedding = ? WHERE id = ?`,
				u.Vector,
				u.TransactionID,
			).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
