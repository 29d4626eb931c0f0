package series

import (
	"testing"

	"github.com/saif7218/zk-marketwatch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func price(competitor string, value float64, ts string) domain.PriceEvent {
	return domain.PriceEvent{ProductID: "p1", CompetitorID: competitor, Price: value, Timestamp: ts, Currency: "BDT"}
}

func timestamps(s domain.Summary) []string {
	out := make([]string, len(s.Data))
	for i, ev := range s.Data {
		out[i] = ev.Timestamp
	}
	return out
}

func TestReconciler_DuplicateIsIdempotent(t *testing.T) {
	r := NewReconciler("p1")
	ev := price("c1", 100, "2024-01-01T00:00:00Z")

	require.NoError(t, r.Apply(ev))
	require.NoError(t, r.Apply(ev))

	s := r.Derive("c1")
	assert.Len(t, s.Data, 1)
	assert.InDelta(t, 100.0, s.LatestPrice, 0)
}

func TestReconciler_DuplicateKeyReplacesInPlace(t *testing.T) {
	r := NewReconciler("p1")
	require.NoError(t, r.Apply(price("c1", 100, "2024-01-01T00:00:00Z")))
	require.NoError(t, r.Apply(price("c1", 105, "2024-01-02T00:00:00Z")))

	// Same key, later arrival wins even with a different price.
	require.NoError(t, r.Apply(price("c1", 101, "2024-01-01T00:00:00Z")))

	s := r.Derive("c1")
	require.Len(t, s.Data, 2)
	assert.InDelta(t, 101.0, s.Data[0].Price, 0)
	assert.InDelta(t, 105.0, s.Data[1].Price, 0)
}

func TestReconciler_OutOfOrderArrivalIsSorted(t *testing.T) {
	r := NewReconciler("p1")
	t1, t2, t3 := "2024-01-01T00:00:00Z", "2024-01-02T00:00:00Z", "2024-01-03T00:00:00Z"

	require.NoError(t, r.Apply(price("c1", 2, t2)))
	require.NoError(t, r.Apply(price("c1", 1, t1)))
	require.NoError(t, r.Apply(price("c1", 3, t3)))

	s := r.Derive("c1")
	assert.Equal(t, []string{t1, t2, t3}, timestamps(s))
	assert.InDelta(t, 3.0, s.LatestPrice, 0)
}

func TestReconciler_SortsByInstantNotString(t *testing.T) {
	r := NewReconciler("p1")

	// 10:00+06:00 is 04:00Z, which is earlier than 05:00Z.
	require.NoError(t, r.Apply(price("c1", 1, "2024-01-01T05:00:00Z")))
	require.NoError(t, r.Apply(price("c1", 2, "2024-01-01T10:00:00+06:00")))

	assert.Equal(t, []string{"2024-01-01T10:00:00+06:00", "2024-01-01T05:00:00Z"}, timestamps(r.Derive("c1")))
}

func TestReconciler_SeriesAreIndependentPerCompetitor(t *testing.T) {
	r := NewReconciler("p1")
	require.NoError(t, r.Apply(price("c2", 50, "2024-01-01T00:00:00Z")))
	require.NoError(t, r.Apply(price("c1", 10, "2024-01-01T00:00:00Z")))
	require.NoError(t, r.Apply(price("c1", 20, "2024-01-02T00:00:00Z")))

	assert.Equal(t, []string{"c1", "c2"}, r.Competitors())
	assert.Equal(t, 3, r.Len())

	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, "c1", all[0].CompetitorID)
	assert.InDelta(t, 100.0, all[0].PriceChangePct, 1e-9)
	assert.InDelta(t, 0.0, all[1].PriceChangePct, 0)
}

func TestReconciler_PercentChange(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
		want   float64
	}{
		{"empty", nil, 0},
		{"single", []float64{100}, 0},
		{"rise", []float64{100, 110}, 10},
		{"fall", []float64{200, 150}, -25},
		{"zero first price", []float64{0, 5}, 0},
		{"uses first and last only", []float64{100, 500, 90}, -10},
	}

	days := []string{"2024-01-01T00:00:00Z", "2024-01-02T00:00:00Z", "2024-01-03T00:00:00Z"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReconciler("p1")
			for i, p := range tt.prices {
				require.NoError(t, r.Apply(price("c1", p, days[i])))
			}
			assert.InDelta(t, tt.want, r.Derive("c1").PriceChangePct, 1e-9)
		})
	}
}

func TestReconciler_RejectsForeignProduct(t *testing.T) {
	r := NewReconciler("p1")
	ev := price("c1", 1, "2024-01-01T00:00:00Z")
	ev.ProductID = "p2"

	err := r.Apply(ev)
	require.ErrorIs(t, err, domain.ErrProductMismatch)
	assert.Equal(t, 0, r.Len())
}

func TestReconciler_AcceptsISO8601Forms(t *testing.T) {
	tests := []struct {
		name string
		ts   string
	}{
		{"zone-less", "2024-06-01T10:00:00"},
		{"zone-less fractional", "2024-06-01T10:00:00.123456"},
		{"basic offset", "2024-06-01T10:00:00+0600"},
		{"date only", "2024-06-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReconciler("p1")

			require.NoError(t, r.Apply(price("c1", 1, tt.ts)))
			assert.Equal(t, 1, r.Len())
			assert.Equal(t, []string{tt.ts}, timestamps(r.Derive("c1")))
		})
	}
}

func TestReconciler_MixedISO8601FormsSortByInstant(t *testing.T) {
	r := NewReconciler("p1")

	// 10:00+0600 is 04:00Z; the zone-less value is read as UTC; the date is midnight UTC.
	require.NoError(t, r.Apply(price("c1", 3, "2024-06-01T05:00:00")))
	require.NoError(t, r.Apply(price("c1", 2, "2024-06-01T10:00:00+0600")))
	require.NoError(t, r.Apply(price("c1", 1, "2024-06-01")))

	assert.Equal(t, []string{"2024-06-01", "2024-06-01T10:00:00+0600", "2024-06-01T05:00:00"}, timestamps(r.Derive("c1")))
}

func TestReconciler_RejectsInvalidTimestamp(t *testing.T) {
	r := NewReconciler("p1")

	err := r.Apply(price("c1", 1, "yesterday"))
	require.ErrorIs(t, err, domain.ErrInvalidTimestamp)
	assert.Empty(t, r.Competitors())
}

func TestReconciler_DefaultsCurrency(t *testing.T) {
	r := NewReconciler("p1")
	ev := price("c1", 1, "2024-01-01T00:00:00Z")
	ev.Currency = ""

	require.NoError(t, r.Apply(ev))
	assert.Equal(t, domain.DefaultCurrency, r.Derive("c1").Data[0].Currency)
}

func TestReconciler_DeriveReturnsCopy(t *testing.T) {
	r := NewReconciler("p1")
	require.NoError(t, r.Apply(price("c1", 1, "2024-01-01T00:00:00Z")))

	s := r.Derive("c1")
	s.Data[0].Price = 999

	assert.InDelta(t, 1.0, r.Derive("c1").LatestPrice, 0)
}

func TestReconciler_UnknownCompetitor(t *testing.T) {
	s := NewReconciler("p1").Derive("nobody")

	assert.Empty(t, s.Data)
	assert.InDelta(t, 0.0, s.LatestPrice, 0)
	assert.InDelta(t, 0.0, s.PriceChangePct, 0)
}
