package enums

import (
	"fmt"
	"strings"
)

// Currency is an ISO 4217 code. Amounts are always stored in the minor unit.
type Currency string

const (
	CurrencySAR Currency = "SAR"
	CurrencyUSD Currency = "USD"
)

// Both supported currencies split into 100 minor units; a zero-decimal
// currency would need money.MinorDigits to become per currency.
var supportedCurrencies = map[Currency]struct{}{
	CurrencySAR: {},
	CurrencyUSD: {},
}

func (c Currency) String() string { return string(c) }

func (c Currency) IsValid() bool {
	_, ok := supportedCurrencies[c]
	return ok
}

// ParseCurrency accepts any casing and surrounding whitespace.
func ParseCurrency(value string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(value)))
	if !c.IsValid() {
		return "", fmt.Errorf("unsupported currency %q", value)
	}
	return c, nil
}
