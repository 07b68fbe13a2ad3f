package service

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/saldotech/saldo/internal/config"
	"github.com/saldotech/saldo/internal/merchant/domain"
	"github.com/saldotech/saldo/internal/statement"
)

const (
	categoryOther           = "Other"
	categoryIncomeTransfers = "Income & Transfers"
)

var (
	merchantTagRe    = regexp.MustCompile(`(?i)Merchant\s*:\s*(.*?)(?:;|$)`)
	paymentServiceRe = regexp.MustCompile(`(?i)payment service,\s*([^,;]+)`)
	senderTagRe      = regexp.MustCompile(`(?i)Sender\s*:\s*([^;]+)`)
	brandSuffixRe    = regexp.MustCompile(`\s+-\s+.*$`)
	nonNameCharRe    = regexp.MustCompile(`[^a-z0-9& ]+`)
	blanksRe         = regexp.MustCompile(`\s+`)
	fenceOpenRe      = regexp.MustCompile("^```(?:json)?")
	fenceCloseRe     = regexp.MustCompile("```$")
)

func cleanText(value string) string {
	return blanksRe.ReplaceAllString(strings.TrimSpace(value), " ")
}

// extractBrand reduces a "Merchant:" tag value to the brand itself by
// cutting the location suffix ("Nikora, Tbilisi - Vake" becomes "Nikora").
func extractBrand(rawMerchant string) string {
	cleaned := cleanText(rawMerchant)
	if idx := strings.Index(cleaned, ","); idx >= 0 {
		cleaned = strings.TrimSpace(cleaned[:idx])
	}
	cleaned = brandSuffixRe.ReplaceAllString(cleaned, "")
	if cleaned == "" {
		return domain.InternalTransferName
	}
	return cleaned
}

// NormalizeName lowercases a merchant name and strips everything but
// ASCII letters, digits, ampersands and single spaces. The result is the
// merchant identity key.
func NormalizeName(value string) string {
	cleaned := strings.ToLower(value)
	cleaned = nonNameCharRe.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(blanksRe.ReplaceAllString(cleaned, " "))
	if cleaned == "" {
		return "unknown"
	}
	return cleaned
}

// ExtractRawName pulls the best merchant candidate out of a statement
// description, trying the structured narrative tags before falling back
// to the leading free text.
func ExtractRawName(descriptionRaw, direction string) string {
	if strings.Contains(strings.ToLower(descriptionRaw), "automatic conversion") {
		return domain.InternalTransferName
	}
	if direction == statement.DirectionTransfer {
		return domain.InternalTransferName
	}

	if m := merchantTagRe.FindStringSubmatch(descriptionRaw); m != nil {
		return extractBrand(m[1])
	}
	if m := paymentServiceRe.FindStringSubmatch(descriptionRaw); m != nil {
		return cleanText(m[1])
	}
	if direction == statement.DirectionIncome {
		return "income"
	}
	if m := senderTagRe.FindStringSubmatch(descriptionRaw); m != nil {
		return cleanText(m[1])
	}

	leading, _, _ := strings.Cut(descriptionRaw, ";")
	if runes := []rune(leading); len(runes) > 80 {
		leading = string(runes[:80])
	}
	return cleanText(leading)
}

// fallbackCategory is the rule tier: direction first, then the MCC table,
// then the ordered keyword scan. Categories outside the allowed set map
// to Other.
func fallbackCategory(normalizedName, mccCode, direction string, allowed map[string]struct{}, rules config.CategoryRules) string {
	if direction == statement.DirectionTransfer || direction == statement.DirectionIncome {
		return allowedOr(categoryIncomeTransfers, allowed)
	}

	if mccCode != "" {
		for _, rule := range rules.MCC {
			if rule.Code == mccCode {
				return allowedOr(rule.Category, allowed)
			}
		}
	}

	for _, rule := range rules.Keywords {
		if strings.Contains(normalizedName, rule.Keyword) {
			return allowedOr(rule.Category, allowed)
		}
	}

	return categoryOther
}

func allowedOr(category string, allowed map[string]struct{}) string {
	if _, ok := allowed[category]; ok {
		return category
	}
	return categoryOther
}

// normalizeLLMCategory snaps a model-provided category onto the allowed
// set, tolerating case drift.
func normalizeLLMCategory(category string, allowed map[string]struct{}) string {
	if _, ok := allowed[category]; ok {
		return category
	}
	for name := range allowed {
		if strings.EqualFold(name, category) {
			return name
		}
	}
	return categoryOther
}

// extractJSONArray parses a model reply into raw array items, stripping a
// markdown code fence if present and unwrapping an {"items": [...]} object.
func extractJSONArray(text string) ([]json.RawMessage, error) {
	cleaned := strings.TrimSpace(text)
	if strings.Contains(cleaned, "```") {
		cleaned = strings.TrimSpace(fenceOpenRe.ReplaceAllString(cleaned, ""))
		cleaned = strings.TrimSpace(fenceCloseRe.ReplaceAllString(cleaned, ""))
	}

	var arr []json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &arr); err == nil {
		return arr, nil
	}

	var wrapper struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal([]byte(cleaned), &wrapper); err == nil && wrapper.Items != nil {
		return wrapper.Items, nil
	}

	return nil, errors.New("reply is not a JSON array")
}
