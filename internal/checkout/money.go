package checkout

import "github.com/shopspring/decimal"

// Bounds of a single line item in cents. The processor rejects zero amounts
// and caps unit_amount at eight digits.
const (
	MinAmountCents int64 = 1
	MaxAmountCents int64 = 99999999
)

// ToCents converts a major-unit amount to integer cents, rounding half away
// from zero. Amounts outside CentsInRange do not fit and must be rejected first.
func ToCents(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// CentsInRange reports whether amount, once rounded to cents, lies within
// MinAmountCents and MaxAmountCents. It compares decimals, so it is exact for
// amounts too large for int64.
func CentsInRange(amount decimal.Decimal) bool {
	cents := amount.Shift(2).Round(0)
	return !cents.LessThan(decimal.NewFromInt(MinAmountCents)) &&
		!cents.GreaterThan(decimal.NewFromInt(MaxAmountCents))
}

// FromCents converts integer cents to a major-unit amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
