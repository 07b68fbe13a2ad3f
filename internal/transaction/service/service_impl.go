package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/saldotech/saldo/internal/statement"
	"github.com/saldotech/saldo/internal/transaction/domain"
	"github.com/saldotech/saldo/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
	dateLayout       = "2006-01-02"
)

var sortable = map[string]struct{}{
	"date":            {},
	"amount_gel":      {},
	"amount_original": {},
	"merchant":        {},
	"category":        {},
	"direction":       {},
}

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("transaction.service"),
		repo: p.Repo,
	}
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (*domain.ListResponse, error) {
	page := req.Page.Clamp(defaultListLimit, maxListLimit)

	sortBy := strings.TrimSpace(req.SortBy)
	if sortBy == "" {
		sortBy = "date"
	}
	if _, ok := sortable[sortBy]; !ok {
		return nil, domain.ErrInvalidSortBy
	}

	sortOrder := strings.ToLower(strings.TrimSpace(req.SortOrder))
	if sortOrder == "" {
		sortOrder = "desc"
	}
	if sortOrder != "asc" && sortOrder != "desc" {
		return nil, domain.ErrInvalidSortOrder
	}

	direction := strings.ToLower(strings.TrimSpace(req.Direction))
	switch direction {
	case "", statement.DirectionExpense, statement.DirectionIncome, statement.DirectionTransfer:
	default:
		return nil, domain.ErrInvalidDirection
	}

	var categories []string
	if req.Categories != "" {
		for _, value := range strings.Split(req.Categories, ",") {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				categories = append(categories, trimmed)
			}
		}
	}

	rows, total, err := s.repo.List(ctx, s.db, domain.ListFilter{
		UploadID:         req.UploadID,
		DateFrom:         req.DateFrom,
		DateTo:           req.DateTo,
		Direction:        direction,
		Category:         strings.TrimSpace(req.Category),
		Categories:       categories,
		Merchant:         strings.TrimSpace(req.Merchant),
		CurrencyOriginal: strings.TrimSpace(req.CurrencyOriginal),
		AmountGELMin:     req.AmountGELMin,
		AmountGELMax:     req.AmountGELMax,
		SortBy:           sortBy,
		SortOrder:        sortOrder,
		Limit:            page.Limit,
		Offset:           page.Offset,
	})
	if err != nil {
		return nil, err
	}

	views := make([]domain.TransactionView, 0, len(rows))
	for _, row := range rows {
		views = append(views, toView(row))
	}
	return &domain.ListResponse{
		Items: views,
		Meta:  pagination.NewMeta(total, page),
	}, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	rows, err := s.repo.Delete(ctx, s.db, id)
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	s.log.Info("transaction deleted", zap.Int64("transaction_id", id))
	return nil
}

func toView(row domain.ListRow) domain.TransactionView {
	view := domain.TransactionView{
		ID:               snowflake.ID(row.ID).String(),
		Date:             row.Date.Format(dateLayout),
		DescriptionRaw:   row.DescriptionRaw,
		Direction:        row.Direction,
		AmountOriginal:   row.AmountOriginal,
		CurrencyOriginal: row.CurrencyOriginal,
		AmountGEL:        row.AmountGEL,
		ConversionRate:   row.ConversionRate,
		CardLast4:        row.CardLast4,
		MCCCode:          row.MCCCode,
		MerchantName:     row.MerchantName,
		Category:         row.Category,
	}
	if row.PostedDate != nil {
		formatted := row.PostedDate.Format(dateLayout)
		view.PostedDate = &formatted
	}
	if row.UploadID != nil {
		id := snowflake.ID(*row.UploadID).String()
		view.UploadID = &id
	}
	return view
}
