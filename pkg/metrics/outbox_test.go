package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestOutboxMetricsRecordsDeliveryOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	m.ObservePublished("order_confirmed", created, created.Add(2*time.Second))
	m.ObservePublished("order_confirmed", time.Time{}, created)
	m.IncFailure("order_confirmed")
	m.IncDeadLettered("max_attempts")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "cargoparts_outbox_published_total", "event_type", "order_confirmed"); err != nil || got != 2 {
		t.Fatalf("expected published=2, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "cargoparts_outbox_publish_failures_total", "event_type", "order_confirmed"); err != nil || got != 1 {
		t.Fatalf("expected failures=1, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "cargoparts_outbox_dead_lettered_total", "reason", "max_attempts"); err != nil || got != 1 {
		t.Fatalf("expected dead_lettered=1, got %f (%v)", got, err)
	}
	if got, err := fetchHistogramSum(mfs, "cargoparts_outbox_publish_lag_seconds", "event_type", "order_confirmed"); err != nil || got != 2 {
		t.Fatalf("expected lag sum 2s from a single sample, got %f (%v)", got, err)
	}
}

func TestOutboxMetricsNilSafe(t *testing.T) {
	var m *OutboxMetrics
	m.ObservePublished("x", time.Now(), time.Now())
	m.IncFailure("x")
	m.IncDeadLettered("x")
	NewOutboxMetrics(nil).IncFailure("x")
}
