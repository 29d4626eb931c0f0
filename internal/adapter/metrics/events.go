package metrics

import "github.com/prometheus/client_golang/prometheus"

// EventSourceMetrics holds Prometheus metrics for the Redis event source.
type EventSourceMetrics struct {
	Received           *prometheus.CounterVec
	SubscriptionActive prometheus.Gauge
}

// NewEventSourceMetrics creates and registers event-source metrics on the given registry.
func NewEventSourceMetrics(reg prometheus.Registerer) *EventSourceMetrics {
	m := &EventSourceMetrics{
		Received: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pubsub",
			Name:      "messages_received_total",
			Help:      "Total number of pub/sub messages received, by channel and result.",
		}, []string{"channel", "result"}),
		SubscriptionActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pubsub",
			Name:      "subscription_active",
			Help:      "1 if the pub/sub subscription is active, 0 otherwise.",
		}),
	}

	reg.MustRegister(m.Received, m.SubscriptionActive)
	return m
}
