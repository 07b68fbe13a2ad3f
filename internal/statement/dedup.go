package statement

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ComputeDedupKey derives the idempotency hash for a statement row:
// sha256 over the statement date, the original amount at two decimals
// and the whitespace-normalized narrative. Rows that reappear across
// re-uploads of overlapping statements hash identically, so a unique
// index on this key makes insertion idempotent.
func ComputeDedupKey(txnDate time.Time, amountOriginal decimal.Decimal, descriptionRaw string) string {
	canonical := fmt.Sprintf("%s|%s|%s",
		txnDate.Format("2006-01-02"),
		amountOriginal.StringFixedBank(2),
		NormalizeDescription(descriptionRaw),
	)
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}
