// Package series merges streamed price events into ordered, deduplicated per-competitor series.
package series

import (
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/saif7218/zk-marketwatch/internal/domain"
)

type point struct {
	event domain.PriceEvent
	at    time.Time
}

// Reconciler holds the in-memory series of one product. It is not safe for
// concurrent use; callers serialize access.
type Reconciler struct {
	productID string
	series    map[string][]point
}

func NewReconciler(productID string) *Reconciler {
	return &Reconciler{
		productID: productID,
		series:    make(map[string][]point),
	}
}

func (r *Reconciler) ProductID() string {
	return r.productID
}

// Apply merges ev into its competitor's series. An event with the same
// (product, competitor, timestamp) replaces the stored one in place;
// anything else is appended, re-sorting only when it arrives out of order.
func (r *Reconciler) Apply(ev domain.PriceEvent) error {
	if ev.ProductID != r.productID {
		return fmt.Errorf("apply %s/%s: %w", ev.ProductID, ev.CompetitorID, domain.ErrProductMismatch)
	}
	at, err := domain.ParseTimestamp(ev.Timestamp)
	if err != nil {
		return fmt.Errorf("apply %q: %w", ev.Timestamp, err)
	}
	if ev.Currency == "" {
		ev.Currency = domain.DefaultCurrency
	}

	points := r.series[ev.CompetitorID]
	if i := indexOf(points, ev.Key()); i >= 0 {
		points[i] = point{event: ev, at: at}
		return nil
	}

	outOfOrder := len(points) > 0 && at.Before(points[len(points)-1].at)
	points = append(points, point{event: ev, at: at})
	if outOfOrder {
		sort.SliceStable(points, func(i, j int) bool { return points[i].at.Before(points[j].at) })
	}
	r.series[ev.CompetitorID] = points
	return nil
}

// indexOf scans from the newest point; duplicates are usually recent.
func indexOf(points []point, key domain.PriceKey) int {
	for i := len(points) - 1; i >= 0; i-- {
		if points[i].event.Key() == key {
			return i
		}
	}
	return -1
}

// Derive returns the ordered series and its summary statistics for one competitor.
func (r *Reconciler) Derive(competitorID string) domain.Summary {
	points := r.series[competitorID]
	summary := domain.Summary{
		CompetitorID: competitorID,
		Data:         make([]domain.PriceEvent, len(points)),
	}
	for i, p := range points {
		summary.Data[i] = p.event
	}
	if len(points) == 0 {
		return summary
	}

	first, last := points[0].event, points[len(points)-1].event
	summary.LatestPrice = last.Price
	summary.PriceChangePct = PercentChange(first.Price, last.Price)
	return summary
}

// PercentChange is (last-first)/first*100. A zero first price yields 0
// instead of an infinite change.
func PercentChange(first, last float64) float64 {
	if first == 0 {
		return 0
	}
	return (last - first) / first * 100
}

// Competitors lists competitor IDs with at least one event, sorted.
func (r *Reconciler) Competitors() []string {
	ids := make([]string, 0, len(r.series))
	for id := range r.series {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// All derives every competitor's summary, ordered by competitor ID.
func (r *Reconciler) All() []domain.Summary {
	ids := r.Competitors()
	out := make([]domain.Summary, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.Derive(id))
	}
	return out
}

// Len is the total number of stored events across competitors.
func (r *Reconciler) Len() int {
	n := 0
	for _, points := range r.series {
		n += len(points)
	}
	return n
}
