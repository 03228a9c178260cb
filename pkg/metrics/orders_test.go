package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestOrderMetricsCountsByLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOrderMetrics(reg)

	m.IncReservation("reserved")
	m.IncReservation("reserved")
	m.IncReservation("insufficient")
	m.IncTransition("PENDING", "CONFIRMED")
	m.IncWebhook("stripe", "duplicate")
	m.IncWebhook("", "applied")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	cases := []struct {
		name  string
		label string
		value string
		want  float64
	}{
		{"cargoparts_inventory_reservations_total", "result", "reserved", 2},
		{"cargoparts_inventory_reservations_total", "result", "insufficient", 1},
		{"cargoparts_order_transitions_total", "to", "CONFIRMED", 1},
		{"cargoparts_payment_webhooks_total", "result", "duplicate", 1},
		{"cargoparts_payment_webhooks_total", "provider", "unknown", 1},
	}
	for _, tc := range cases {
		got, err := fetchCounterValue(mfs, tc.name, tc.label, tc.value)
		if err != nil {
			t.Fatalf("fetch %s: %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s{%s=%s}: expected %v, got %v", tc.name, tc.label, tc.value, tc.want, got)
		}
	}
}

func TestOrderMetricsNilRegisterer(t *testing.T) {
	m := NewOrderMetrics(nil)
	m.IncReservation("reserved")
	m.IncTransition("PENDING", "CANCELLED")
	m.IncWebhook("square", "applied")

	var nilMetrics *OrderMetrics
	nilMetrics.IncWebhook("stripe", "applied")
}
