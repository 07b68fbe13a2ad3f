package statement

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseDecimal parses an amount cell the way the bank formats them.
// Statements mix locales: "4 000,50", "4 000,50", "1,234.56" and
// "-3,0" all occur. When both separators are present the rightmost one
// is the decimal separator; a lone comma is a decimal comma.
func ParseDecimal(value string) (decimal.Decimal, error) {
	text := strings.TrimSpace(value)
	if text == "" {
		return decimal.Decimal{}, fmt.Errorf("empty amount")
	}

	text = strings.ReplaceAll(text, " ", "")
	text = strings.ReplaceAll(text, " ", "")

	comma := strings.LastIndex(text, ",")
	dot := strings.LastIndex(text, ".")
	switch {
	case comma >= 0 && dot >= 0:
		if comma > dot {
			text = strings.ReplaceAll(text, ".", "")
			text = strings.ReplaceAll(text, ",", ".")
		} else {
			text = strings.ReplaceAll(text, ",", "")
		}
	case comma >= 0:
		text = strings.ReplaceAll(text, ",", ".")
	}

	parsed, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse amount %q: %w", value, err)
	}
	return parsed, nil
}
