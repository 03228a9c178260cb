package metrics

import "github.com/prometheus/client_golang/prometheus"

// OrderMetrics counts the outcomes of the order engine's contended paths.
type OrderMetrics struct {
	reservations *prometheus.CounterVec
	transitions  *prometheus.CounterVec
	webhooks     *prometheus.CounterVec
}

// NewOrderMetrics registers the order engine metrics on reg. A nil
// registerer yields a no-op recorder.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	reservations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "inventory_reservations_total",
		Help:      "Inventory reservation attempts by result.",
	}, []string{"result"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_transitions_total",
		Help:      "Applied order status transitions.",
	}, []string{"from", "to"})
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_webhooks_total",
		Help:      "Payment webhook deliveries by provider and result.",
	}, []string{"provider", "result"})
	reg.MustRegister(reservations, transitions, webhooks)
	return &OrderMetrics{
		reservations: reservations,
		transitions:  transitions,
		webhooks:     webhooks,
	}
}

// IncReservation counts a reservation attempt ("reserved" or "insufficient").
func (m *OrderMetrics) IncReservation(result string) {
	if m == nil || m.reservations == nil {
		return
	}
	m.reservations.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncTransition counts an applied status change.
func (m *OrderMetrics) IncTransition(from, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(from), normalizeLabel(to)).Inc()
}

// IncWebhook counts a webhook delivery outcome.
func (m *OrderMetrics) IncWebhook(provider, result string) {
	if m == nil || m.webhooks == nil {
		return
	}
	m.webhooks.WithLabelValues(normalizeLabel(provider), normalizeLabel(result)).Inc()
}
