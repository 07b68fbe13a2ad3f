package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	categorydomain "github.com/saldotech/saldo/internal/category/domain"
	"github.com/saldotech/saldo/internal/cloudmetrics"
	"github.com/saldotech/saldo/internal/config"
	"github.com/saldotech/saldo/internal/merchant/domain"
	"github.com/saldotech/saldo/internal/statement"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// enrichBatchSize caps how many unseen merchants go into one model prompt.
const enrichBatchSize = 20

type ResolverParams struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       domain.Repository
	Categories categorydomain.Service
	Enricher   domain.Enricher
	Rules      *config.RulesHolder
}

type resolver struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       domain.Repository
	categories categorydomain.Service
	enricher   domain.Enricher
	rules      *config.RulesHolder
}

func NewResolver(p ResolverParams) domain.Resolver {
	return &resolver{
		db:         p.DB,
		log:        p.Log.Named("merchant.resolver"),
		genID:      p.GenID,
		repo:       p.Repo,
		categories: p.Categories,
		enricher:   p.Enricher,
		rules:      p.Rules,
	}
}

// candidate is the merchant guess extracted from one transaction.
type candidate struct {
	rawName        string
	normalizedName string
	descriptionRaw string
	mccCode        string
	direction      string
}

type enrichment struct {
	normalizedName string
	category       string
}

// Resolve upserts a merchant for every transaction in the batch. Known
// normalized names reuse the stored merchant untouched. Unseen names get
// one representative transaction each, are enriched via the model when
// configured, and fall back to the rule tier otherwise. The returned ids
// are positional with the input.
func (r *resolver) Resolve(ctx context.Context, txns []statement.ParsedTransaction) (*domain.Resolution, error) {
	if len(txns) == 0 {
		return &domain.Resolution{MerchantIDs: []*int64{}}, nil
	}

	allowed, err := r.categories.AllowedSet(ctx)
	if err != nil {
		return nil, fmt.Errorf("load allowed categories: %w", err)
	}
	rules := r.rules.Get()

	candidates := make([]candidate, 0, len(txns))
	for _, txn := range txns {
		raw := ExtractRawName(txn.DescriptionRaw, txn.Direction)
		candidates = append(candidates, candidate{
			rawName:        raw,
			normalizedName: NormalizeName(raw),
			descriptionRaw: txn.DescriptionRaw,
			mccCode:        txn.MCCCode,
			direction:      txn.Direction,
		})
	}

	names := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		names[c.normalizedName] = struct{}{}
	}
	existing, err := r.repo.FindByNormalizedNames(ctx, r.db, sortedKeys(names))
	if err != nil {
		return nil, fmt.Errorf("look up merchants: %w", err)
	}
	byName := make(map[string]*domain.Merchant, len(existing))
	for i := range existing {
		byName[existing[i].NormalizedName] = &existing[i]
	}

	// One representative candidate per unseen normalized name, in first
	// occurrence order.
	repOrder := make([]string, 0)
	representatives := make(map[string]candidate)
	for _, c := range candidates {
		if _, ok := byName[c.normalizedName]; ok {
			continue
		}
		if _, ok := representatives[c.normalizedName]; ok {
			continue
		}
		representatives[c.normalizedName] = c
		repOrder = append(repOrder, c.normalizedName)
	}

	llmCandidates := make([]candidate, 0, len(repOrder))
	for _, name := range repOrder {
		if name != domain.InternalTransferName {
			llmCandidates = append(llmCandidates, representatives[name])
		}
	}
	enrichments := r.enrich(ctx, llmCandidates, allowed)

	now := time.Now().UTC()
	inserts := make([]*domain.Merchant, 0, len(repOrder))
	mapped := make(map[string]string, len(repOrder))
	for _, base := range repOrder {
		rep := representatives[base]

		finalName := base
		var category string
		if base == domain.InternalTransferName {
			category = allowedOr(categoryIncomeTransfers, allowed)
		} else {
			category = fallbackCategory(base, rep.mccCode, rep.direction, allowed, rules)
		}

		source := domain.SourceRule
		if enr, ok := enrichments[base]; ok {
			finalName = enr.normalizedName
			category = normalizeLLMCategory(enr.category, allowed)
			source = domain.SourceLLM
		}

		mapped[base] = finalName
		inserts = append(inserts, &domain.Merchant{
			ID:             r.genID.Generate().Int64(),
			RawName:        rep.rawName,
			NormalizedName: finalName,
			Category:       category,
			CategorySource: source,
			MCCCode:        optionalString(rep.mccCode),
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}

	if len(inserts) > 0 {
		inserted, err := r.repo.InsertIgnore(ctx, r.db, inserts)
		if err != nil {
			return nil, fmt.Errorf("insert merchants: %w", err)
		}
		r.log.Debug("merchants inserted",
			zap.Int("candidates", len(inserts)),
			zap.Int64("inserted", inserted),
		)
	}

	// Reload by every name we may need: the heuristic names plus the
	// renames the model produced.
	needed := make(map[string]struct{}, len(names)+len(mapped))
	for name := range names {
		needed[name] = struct{}{}
	}
	for _, finalName := range mapped {
		needed[finalName] = struct{}{}
	}
	refreshed, err := r.repo.FindByNormalizedNames(ctx, r.db, sortedKeys(needed))
	if err != nil {
		return nil, fmt.Errorf("reload merchants: %w", err)
	}
	refreshedByName := make(map[string]*domain.Merchant, len(refreshed))
	for i := range refreshed {
		refreshedByName[refreshed[i].NormalizedName] = &refreshed[i]
	}

	res := &domain.Resolution{MerchantIDs: make([]*int64, 0, len(candidates))}
	for _, c := range candidates {
		name := c.normalizedName
		if _, ok := refreshedByName[name]; !ok {
			if finalName, wasMapped := mapped[name]; wasMapped {
				name = finalName
			}
		}
		m := refreshedByName[name]
		if m == nil {
			res.MerchantIDs = append(res.MerchantIDs, nil)
			continue
		}

		id := m.ID
		res.MerchantIDs = append(res.MerchantIDs, &id)
		switch m.CategorySource {
		case domain.SourceLLM:
			res.LLMUsedCount++
		case domain.SourceRule:
			res.FallbackUsedCount++
		}
	}
	return res, nil
}

type enrichRequestItem struct {
	Index                   int     `json:"index"`
	DescriptionRaw          string  `json:"description_raw"`
	MCCCode                 *string `json:"mcc_code"`
	HeuristicNormalizedName string  `json:"heuristic_normalized_name"`
	Direction               string  `json:"direction"`
}

type enrichReplyItem struct {
	Index          *int   `json:"index"`
	NormalizedName string `json:"normalized_name"`
	Category       string `json:"category"`
}

// enrich asks the model to normalize and categorize unseen merchants in
// batches. Results are keyed by the heuristic normalized name. A failed
// batch is dropped so its merchants land on the rule tier.
func (r *resolver) enrich(ctx context.Context, candidates []candidate, allowed map[string]struct{}) map[string]enrichment {
	out := make(map[string]enrichment)
	if len(candidates) == 0 || !r.enricher.Configured() {
		return out
	}

	allowedJSON, err := json.Marshal(sortedKeys(allowed))
	if err != nil {
		return out
	}
	system := "You are a strict financial merchant normalizer and categorizer. " +
		"Return ONLY JSON array. For each input item return object with keys: " +
		"index (int), normalized_name (lowercase short merchant name), category (one of allowed categories). " +
		"Allowed categories: " + string(allowedJSON) + "."

	for start := 0; start < len(candidates); start += enrichBatchSize {
		end := start + enrichBatchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		batch := candidates[start:end]

		payload := make([]enrichRequestItem, 0, len(batch))
		for i, item := range batch {
			payload = append(payload, enrichRequestItem{
				Index:                   i,
				DescriptionRaw:          item.descriptionRaw,
				MCCCode:                 optionalString(item.mccCode),
				HeuristicNormalizedName: item.normalizedName,
				Direction:               item.direction,
			})
		}
		body, err := json.Marshal(payload)
		if err != nil {
			cloudmetrics.RecordEnrichmentBatch(cloudmetrics.BatchFailed)
			continue
		}

		reply, err := r.enricher.Complete(ctx, system, string(body))
		if err != nil {
			r.log.Warn("merchant enrichment batch failed", zap.Error(err))
			cloudmetrics.RecordEnrichmentBatch(cloudmetrics.BatchFailed)
			continue
		}
		if strings.TrimSpace(reply) == "" {
			reply = "[]"
		}

		items, err := extractJSONArray(reply)
		if err != nil {
			r.log.Warn("merchant enrichment reply malformed", zap.Error(err))
			cloudmetrics.RecordEnrichmentBatch(cloudmetrics.BatchFailed)
			continue
		}

		for _, rawItem := range items {
			var item enrichReplyItem
			if err := json.Unmarshal(rawItem, &item); err != nil {
				continue
			}
			if item.Index == nil || *item.Index < 0 || *item.Index >= len(batch) {
				continue
			}

			base := batch[*item.Index].normalizedName
			name := item.NormalizedName
			if name == "" {
				name = base
			}
			category := item.Category
			if category == "" {
				category = categoryOther
			}
			out[base] = enrichment{
				normalizedName: NormalizeName(name),
				category:       normalizeLLMCategory(category, allowed),
			}
		}
		cloudmetrics.RecordEnrichmentBatch(cloudmetrics.BatchOK)
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
