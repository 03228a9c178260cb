// Package pricing computes order totals in integer minor units.
package pricing

import "github.com/OmarEhab007/cargoparts-sub002/pkg/config"

const basisPointsDenominator = 10000

// Line is one priced order line.
type Line struct {
	UnitPriceMinor int64
	Quantity       int
}

// Policy holds the configurable pricing inputs.
type Policy struct {
	TaxRateBasisPoints         int64
	FlatShippingMinor          int64
	FreeShippingThresholdMinor int64
}

// DefaultPolicy is 15% tax, 25.00 flat shipping and no free-shipping threshold.
var DefaultPolicy = Policy{
	TaxRateBasisPoints: 1500,
	FlatShippingMinor:  2500,
}

// PolicyFromConfig builds a Policy from the pricing config section.
func PolicyFromConfig(cfg config.PricingConfig) Policy {
	return Policy{
		TaxRateBasisPoints:         cfg.TaxRateBasisPoints,
		FlatShippingMinor:          cfg.FlatShippingMinor(),
		FreeShippingThresholdMinor: cfg.FreeShippingThresholdMinor(),
	}
}

// Breakdown is the computed price of an order.
type Breakdown struct {
	SubtotalMinor int64
	TaxMinor      int64
	ShippingMinor int64
	TotalMinor    int64
}

// Calculate prices lines under policy. Tax rounds half up on the subtotal.
func Calculate(lines []Line, policy Policy) Breakdown {
	var subtotal int64
	for _, line := range lines {
		subtotal += line.UnitPriceMinor * int64(line.Quantity)
	}

	tax := (subtotal*policy.TaxRateBasisPoints + basisPointsDenominator/2) / basisPointsDenominator

	shipping := policy.FlatShippingMinor
	if policy.FreeShippingThresholdMinor > 0 && subtotal >= policy.FreeShippingThresholdMinor {
		shipping = 0
	}

	return Breakdown{
		SubtotalMinor: subtotal,
		TaxMinor:      tax,
		ShippingMinor: shipping,
		TotalMinor:    subtotal + tax + shipping,
	}
}

// LineTotal returns unit price times quantity.
func LineTotal(line Line) int64 {
	return line.UnitPriceMinor * int64(line.Quantity)
}
