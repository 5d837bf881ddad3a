package business

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

var maxMinorUnits = decimal.NewFromInt(1 << 53)

func currencyScale(code string) (int32, error) {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return 0, fmt.Errorf("unknown currency %q: %w", code, err)
	}
	scale, _ := currency.Standard.Rounding(unit)
	return int32(scale), nil
}

// ToMinorUnits converts a display amount into the provider's integer unit
// (cents for USD). Halves round away from zero.
func ToMinorUnits(amount decimal.Decimal, code string) (int64, error) {
	scale, err := currencyScale(code)
	if err != nil {
		return 0, err
	}
	minor := amount.Shift(scale).Round(0)
	if minor.Abs().GreaterThan(maxMinorUnits) {
		return 0, fmt.Errorf("amount %s is out of range", amount)
	}
	return minor.IntPart(), nil
}

func FromMinorUnits(amount int64, code string) (decimal.Decimal, error) {
	scale, err := currencyScale(code)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.New(amount, -scale), nil
}
