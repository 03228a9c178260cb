package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutboxMetrics tracks delivery of outbox rows to Pub/Sub.
type OutboxMetrics struct {
	published    *prometheus.CounterVec
	failures     *prometheus.CounterVec
	deadLettered *prometheus.CounterVec
	lag          *prometheus.HistogramVec
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_published_total",
		Help:      "Outbox events acknowledged by Pub/Sub.",
	}, []string{"event_type"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_publish_failures_total",
		Help:      "Publish attempts that will be retried.",
	}, []string{"event_type"})
	deadLettered := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_dead_lettered_total",
		Help:      "Outbox events moved to the DLQ.",
	}, []string{"reason"})
	lag := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "outbox_publish_lag_seconds",
		Help:      "Time from outbox insert to successful publish.",
		Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 300},
	}, []string{"event_type"})
	reg.MustRegister(published, failures, deadLettered, lag)
	return &OutboxMetrics{
		published:    published,
		failures:     failures,
		deadLettered: deadLettered,
		lag:          lag,
	}
}

// ObservePublished counts a delivered event and records its lag. A zero
// createdAt skips the lag sample.
func (m *OutboxMetrics) ObservePublished(eventType string, createdAt, now time.Time) {
	if m == nil || m.published == nil {
		return
	}
	label := normalizeLabel(eventType)
	m.published.WithLabelValues(label).Inc()
	if createdAt.IsZero() || now.Before(createdAt) {
		return
	}
	m.lag.WithLabelValues(label).Observe(now.Sub(createdAt).Seconds())
}

func (m *OutboxMetrics) IncFailure(eventType string) {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (m *OutboxMetrics) IncDeadLettered(reason string) {
	if m == nil || m.deadLettered == nil {
		return
	}
	m.deadLettered.WithLabelValues(normalizeLabel(reason)).Inc()
}
