package terminal

import (
	"github.com/shopspring/decimal"
)

// AmountDecimal converts minor units to a two-place decimal value.
func AmountDecimal(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// FormatAmount renders minor units the way terminal results carry amounts ("20.00").
func FormatAmount(minor int64) string {
	return AmountDecimal(minor).StringFixed(2)
}

// ParseAmount converts a decimal amount string ("20.00") back to minor units.
func ParseAmount(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	return d.Shift(2).Round(0).IntPart(), nil
}
