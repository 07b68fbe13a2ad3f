package service

import (
	"strings"
	"testing"

	"github.com/saldotech/saldo/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allowedSet(names ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

// TestExtractRawName_Tiers walks the extraction ladder: conversion and
// transfer rows collapse to the internal transfer bucket, then the
// narrative tags are tried in order, then the leading free text.
func TestExtractRawName_Tiers(t *testing.T) {
	cases := []struct {
		name      string
		details   string
		direction string
		want      string
	}{
		{
			name:      "merchant tag with location suffix",
			details:   "Payment - Amount: GEL32.96; Merchant: Wolt, Tbilisi, 61 Agmashenebeli ave.; MCC:4215",
			direction: "expense",
			want:      "Wolt",
		},
		{
			name:      "merchant tag with dash suffix",
			details:   "Payment - Amount: GEL12.00; Merchant: Nikora Supermarket - Vake Branch; MCC:5411",
			direction: "expense",
			want:      "Nikora Supermarket",
		},
		{
			name:      "payment service tag",
			details:   "Payment - Amount GEL50.00; Payment, 04/01/2026 , payment service, Magti Internet Services, subscriber Phone Number",
			direction: "expense",
			want:      "Magti Internet Services",
		},
		{
			name:      "transfer direction wins over sender tag",
			details:   "Incoming Transfer - Amount: GEL4,000.00; Sender: goglichidze mikaeli; Details: piradi gadaritskhva",
			direction: "transfer",
			want:      "internal transfer",
		},
		{
			name:      "automatic conversion wins over direction",
			details:   "Income - Amount USD5.99; Automatic conversion, rate: 2.748",
			direction: "income",
			want:      "internal transfer",
		},
		{
			name:      "income without tags",
			details:   "Salary for December",
			direction: "income",
			want:      "income",
		},
		{
			name:      "sender tag on expense row",
			details:   "Refund - Sender: Some Store LLC; Details: returned goods",
			direction: "expense",
			want:      "Some Store LLC",
		},
		{
			name:      "leading text fallback",
			details:   "POS purchase terminal 482913; ref 11223344",
			direction: "expense",
			want:      "POS purchase terminal 482913",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractRawName(tc.details, tc.direction))
		})
	}
}

// TestExtractRawName_TruncatesByRunes caps the free-text fallback at 80
// characters, counting runes so multi-byte scripts are never split.
func TestExtractRawName_TruncatesByRunes(t *testing.T) {
	letter := "ბ"
	details := strings.Repeat(letter, 90)

	got := ExtractRawName(details, "expense")
	assert.Equal(t, strings.Repeat(letter, 80), got)
}

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Wolt", "wolt"},
		{"NETFLIX.COM", "netflix com"},
		{"Nikora #45 (Vake)", "nikora 45 vake"},
		{"H&M Store", "h&m store"},
		{"  Bolt   Taxi  ", "bolt taxi"},
		{"შპს მარკეტი", "unknown"},
		{"", "unknown"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeName(tc.in), "input %q", tc.in)
	}
}

// TestFallbackCategory_Order verifies the rule tier precedence: direction
// beats MCC, MCC beats keywords, and the first keyword hit wins.
func TestFallbackCategory_Order(t *testing.T) {
	rules := config.DefaultCategoryRules()
	allowed := allowedSet(rules.Categories...)

	assert.Equal(t, "Food Delivery", fallbackCategory("wolt", "4215", "expense", allowed, rules))
	assert.Equal(t, "Income & Transfers", fallbackCategory("salary transfer", "", "income", allowed, rules))
	assert.Equal(t, "Income & Transfers", fallbackCategory("wolt", "4215", "transfer", allowed, rules))

	// MCC beats the keyword scan.
	assert.Equal(t, "Groceries", fallbackCategory("wolt", "5411", "expense", allowed, rules))

	// Keyword order matters: bolttaxi is listed before bolt.
	assert.Equal(t, "Transport & Taxi", fallbackCategory("bolttaxi tbilisi", "", "expense", allowed, rules))
	assert.Equal(t, "Transport & Taxi", fallbackCategory("megabolt", "", "expense", allowed, rules))

	assert.Equal(t, "Other", fallbackCategory("some obscure shop", "", "expense", allowed, rules))
	assert.Equal(t, "Other", fallbackCategory("some obscure shop", "9999", "expense", allowed, rules))
}

func TestFallbackCategory_RestrictedCatalog(t *testing.T) {
	rules := config.DefaultCategoryRules()
	allowed := allowedSet("Other")

	assert.Equal(t, "Other", fallbackCategory("wolt", "4215", "expense", allowed, rules))
	assert.Equal(t, "Other", fallbackCategory("anything", "", "income", allowed, rules))
}

func TestNormalizeLLMCategory(t *testing.T) {
	allowed := allowedSet("Groceries", "Subscriptions", "Other")

	assert.Equal(t, "Groceries", normalizeLLMCategory("Groceries", allowed))
	assert.Equal(t, "Subscriptions", normalizeLLMCategory("subscriptions", allowed))
	assert.Equal(t, "Other", normalizeLLMCategory("Cryptocurrency", allowed))
}

func TestExtractJSONArray(t *testing.T) {
	items, err := extractJSONArray(`[{"index":0},{"index":1}]`)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	items, err = extractJSONArray("```json\n[{\"index\":0}]\n```")
	require.NoError(t, err)
	assert.Len(t, items, 1)

	items, err = extractJSONArray(`{"items":[{"index":0}]}`)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	_, err = extractJSONArray(`"just a string"`)
	assert.Error(t, err)

	_, err = extractJSONArray("the model rambled instead of answering")
	assert.Error(t, err)

	_, err = extractJSONArray(`{"answer":"nope"}`)
	assert.Error(t, err)
}
