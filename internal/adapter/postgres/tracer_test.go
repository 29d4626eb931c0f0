package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/saif7218/zk-marketwatch/internal/adapter/metrics"
	"github.com/stretchr/testify/assert"
)

func TestOperationName(t *testing.T) {
	assert.Equal(t, "SELECT", operationName("\n\t select product_id FROM price_observations"))
	assert.Equal(t, "UNKNOWN", operationName("unknown"))
	assert.Equal(t, "unknown", operationName("   "))
}

func TestMetricsTracer_RecordsQueries(t *testing.T) {
	m := metrics.NewStoreMetrics(prometheus.NewRegistry())
	tracer := NewMetricsTracer(m)

	ctx := tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: listByProductSQL})
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{})

	ctx = tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: listByProductSQL})
	tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{Err: errors.New("relation does not exist")})

	assert.Equal(t, 1, testutil.CollectAndCount(m.OpDuration))
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.OpErrors.WithLabelValues("postgres", "SELECT")), 0)
}

func TestMetricsTracer_IgnoresUntracedContext(t *testing.T) {
	m := metrics.NewStoreMetrics(prometheus.NewRegistry())

	NewMetricsTracer(m).TraceQueryEnd(context.Background(), nil, pgx.TraceQueryEndData{Err: errors.New("boom")})

	assert.Equal(t, 0, testutil.CollectAndCount(m.OpErrors))
}
