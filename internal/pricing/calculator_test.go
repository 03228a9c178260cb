package pricing

import (
	"testing"

	"github.com/OmarEhab007/cargoparts-sub002/pkg/config"
)

func TestCalculateReferenceOrder(t *testing.T) {
	lines := []Line{
		{UnitPriceMinor: 10000, Quantity: 2},
		{UnitPriceMinor: 5000, Quantity: 1},
	}
	want := Breakdown{SubtotalMinor: 25000, TaxMinor: 3750, ShippingMinor: 2500, TotalMinor: 31250}

	for i := 0; i < 3; i++ {
		if got := Calculate(lines, DefaultPolicy); got != want {
			t.Fatalf("run %d: expected %+v, got %+v", i, want, got)
		}
	}
}

func TestCalculateTaxRounding(t *testing.T) {
	cases := []struct {
		name     string
		subtotal int64
		wantTax  int64
	}{
		{"exact", 100, 15},
		{"half rounds up", 10, 2},
		{"below half rounds down", 3, 0},
		{"above half rounds up", 11, 2},
		{"large", 123456789, 18518518},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Calculate([]Line{{UnitPriceMinor: tc.subtotal, Quantity: 1}}, DefaultPolicy)
			if got.TaxMinor != tc.wantTax {
				t.Fatalf("subtotal %d: expected tax %d, got %d", tc.subtotal, tc.wantTax, got.TaxMinor)
			}
			if got.TotalMinor != got.SubtotalMinor+got.TaxMinor+got.ShippingMinor {
				t.Fatalf("total does not add up: %+v", got)
			}
		})
	}
}

func TestCalculateFreeShippingThreshold(t *testing.T) {
	policy := DefaultPolicy
	policy.FreeShippingThresholdMinor = 20000

	below := Calculate([]Line{{UnitPriceMinor: 19999, Quantity: 1}}, policy)
	if below.ShippingMinor != 2500 {
		t.Fatalf("expected flat shipping below threshold, got %d", below.ShippingMinor)
	}
	at := Calculate([]Line{{UnitPriceMinor: 10000, Quantity: 2}}, policy)
	if at.ShippingMinor != 0 {
		t.Fatalf("expected free shipping at threshold, got %d", at.ShippingMinor)
	}
}

func TestCalculateEmptyLines(t *testing.T) {
	got := Calculate(nil, DefaultPolicy)
	if got.SubtotalMinor != 0 || got.TaxMinor != 0 || got.TotalMinor != 2500 {
		t.Fatalf("unexpected breakdown: %+v", got)
	}
}

func TestPolicyFromConfig(t *testing.T) {
	policy := PolicyFromConfig(config.PricingConfig{
		TaxRateBasisPoints:    1500,
		FlatShipping:          "25.00",
		FreeShippingThreshold: "500",
	})
	if policy.FlatShippingMinor != 2500 {
		t.Fatalf("expected 2500, got %d", policy.FlatShippingMinor)
	}
	if policy.FreeShippingThresholdMinor != 50000 {
		t.Fatalf("expected 50000, got %d", policy.FreeShippingThresholdMinor)
	}
	if policy.TaxRateBasisPoints != 1500 {
		t.Fatalf("expected 1500, got %d", policy.TaxRateBasisPoints)
	}
}
