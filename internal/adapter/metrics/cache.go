package metrics

import "github.com/prometheus/client_golang/prometheus"

// HistoryMetrics holds Prometheus metrics for price-history reads.
type HistoryMetrics struct {
	Reads        *prometheus.CounterVec
	Shared       prometheus.Counter
	BreakerState prometheus.Gauge
}

// NewHistoryMetrics creates and registers history metrics on the given registry.
func NewHistoryMetrics(reg prometheus.Registerer) *HistoryMetrics {
	m := &HistoryMetrics{
		Reads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "reads_total",
			Help:      "Total number of price-history reads, by result.",
		}, []string{"result"}),
		Shared: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "shared_reads_total",
			Help:      "Total number of history reads answered by an in-flight query for the same product.",
		}),
		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "breaker_state",
			Help:      "Circuit breaker state for the history store (0=closed, 1=half-open, 2=open).",
		}),
	}

	reg.MustRegister(m.Reads, m.Shared, m.BreakerState)
	return m
}
