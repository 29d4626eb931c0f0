package metrics

import "github.com/prometheus/client_golang/prometheus"

// StoreMetrics tracks calls to external stores. The store label is "postgres"
// or "redis"; operation is a coarse command name to keep cardinality low.
type StoreMetrics struct {
	OpDuration *prometheus.HistogramVec
	OpErrors   *prometheus.CounterVec
	DialErrors *prometheus.CounterVec
}

func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	m := &StoreMetrics{
		OpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Duration of external store operations in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"store", "operation"}),
		OpErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "operation_errors_total",
			Help:      "Total failed external store operations.",
		}, []string{"store", "operation"}),
		DialErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "dial_errors_total",
			Help:      "Total failed connection attempts to external stores.",
		}, []string{"store"}),
	}

	reg.MustRegister(m.OpDuration, m.OpErrors, m.DialErrors)
	return m
}
