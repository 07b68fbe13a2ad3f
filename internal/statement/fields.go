package statement

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction directions.
const (
	DirectionExpense  = "expense"
	DirectionIncome   = "income"
	DirectionTransfer = "transfer"
)

const narrativeDateLayout = "02/01/2006"

// Narrative field patterns. The bank packs structured fields into the
// details cell, e.g. "Payment - Amount: GEL2.95; Merchant: Nikora;
// MCC:5411; Date: 31/12/2025 15:25; Card No: ****5054".
var (
	amountRe     = regexp.MustCompile(`(?i)Amount\s*:?\s*([A-Z]{3})\s*([-+]?\d[\d\s\x{00a0}.,]*)`)
	rateRe       = regexp.MustCompile(`(?i)rate\s*:\s*(\d+(?:[.,]\d+)?)`)
	mccRe        = regexp.MustCompile(`(?i)MCC\s*:\s*(\d+)`)
	cardRe       = regexp.MustCompile(`(?i)Card\s*No\s*:\s*\*+(\d{4})`)
	postedDateRe = regexp.MustCompile(`(?i)Date\s*:\s*(\d{2}/\d{2}/\d{4})(?:\s+\d{2}:\d{2})?`)

	whitespaceRe = regexp.MustCompile(`\s+`)
)

// InferDirection classifies a row by the leading token of its narrative.
// The order matters: "Incoming Transfer" must not be caught by the
// "income" prefix, and anything mentioning a transfer is a transfer.
func InferDirection(details string) string {
	lowered := strings.ToLower(strings.TrimSpace(details))
	if strings.HasPrefix(lowered, "payment") {
		return DirectionExpense
	}
	if strings.HasPrefix(lowered, "income") {
		return DirectionIncome
	}
	if strings.HasPrefix(lowered, "incoming transfer") || strings.Contains(lowered, "transfer") {
		return DirectionTransfer
	}
	return DirectionExpense
}

// ExtractNarrativeAmount returns the currency and absolute amount from
// an "Amount: CCY 1,23" token, or ok=false when the narrative has none.
func ExtractNarrativeAmount(details string) (currency string, amount decimal.Decimal, ok bool) {
	match := amountRe.FindStringSubmatch(details)
	if match == nil {
		return "", decimal.Decimal{}, false
	}
	parsed, err := ParseDecimal(match[2])
	if err != nil {
		return "", decimal.Decimal{}, false
	}
	return strings.ToUpper(match[1]), parsed.Abs(), true
}

// ExtractConversionRate returns the conversion rate quoted in the
// narrative ("Automatic conversion, rate: 2.748"), or nil.
func ExtractConversionRate(details string) *decimal.Decimal {
	match := rateRe.FindStringSubmatch(details)
	if match == nil {
		return nil
	}
	parsed, err := ParseDecimal(match[1])
	if err != nil {
		return nil
	}
	return &parsed
}

// ExtractMCC returns the merchant category code digits, or "".
func ExtractMCC(details string) string {
	match := mccRe.FindStringSubmatch(details)
	if match == nil {
		return ""
	}
	return match[1]
}

// ExtractCardLast4 returns the masked card suffix, or "".
func ExtractCardLast4(details string) string {
	match := cardRe.FindStringSubmatch(details)
	if match == nil {
		return ""
	}
	return match[1]
}

// ExtractPostedDate returns the posted date embedded in the narrative
// ("Date: 31/12/2025 15:25"), or nil. The time-of-day part is dropped.
func ExtractPostedDate(details string) *time.Time {
	match := postedDateRe.FindStringSubmatch(details)
	if match == nil {
		return nil
	}
	parsed, err := time.Parse(narrativeDateLayout, match[1])
	if err != nil {
		return nil
	}
	return &parsed
}

// normalizeHeader lowercases a header cell and collapses quoting and
// whitespace so `"Date"` and "date\n" both match.
func normalizeHeader(value string) string {
	text := strings.ReplaceAll(value, `"`, " ")
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.ToLower(strings.TrimSpace(text))
	return whitespaceRe.ReplaceAllString(text, " ")
}

// NormalizeDescription collapses whitespace and lowercases a narrative,
// the canonical form used for the dedup key.
func NormalizeDescription(value string) string {
	return whitespaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(value)), " ")
}
