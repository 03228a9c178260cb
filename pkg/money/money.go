// Package money converts between integer minor units, which every internal
// computation uses, and the major-unit decimal strings providers and
// operators see.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MinorDigits is the number of minor-unit digits for supported currencies
// (SAR halalas, USD cents).
const MinorDigits = 2

// ToMajor renders minor units as a fixed two-decimal string, e.g. 31250 -> "312.50".
func ToMajor(minor int64) string {
	return decimal.New(minor, -MinorDigits).StringFixed(MinorDigits)
}

// Format renders an amount with its currency code for logs and notes.
func Format(minor int64, currency string) string {
	return fmt.Sprintf("%s %s", ToMajor(minor), strings.ToUpper(currency))
}

// ParseMajor converts a major-unit decimal string into minor units. Values
// with more precision than the minor unit are rejected rather than rounded.
func ParseMajor(raw string) (int64, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", raw, err)
	}
	shifted := value.Shift(MinorDigits)
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, fmt.Errorf("amount %q has more than %d decimal places", raw, MinorDigits)
	}
	return shifted.IntPart(), nil
}
