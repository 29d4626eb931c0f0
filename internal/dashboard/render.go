package dashboard

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/saif7218/zk-marketwatch/internal/client"
	"github.com/saif7218/zk-marketwatch/internal/domain"
)

// Render writes a plain-text snapshot of the session: connection state, one row
// per competitor and the recent alerts.
func Render(w io.Writer, productID string, state client.State, view []domain.Summary, alerts []domain.AlertEvent) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "product %s\tconnection %s\n\n", productID, state)
	fmt.Fprintln(tw, "COMPETITOR\tLATEST\tCHANGE\tPOINTS\tUPDATED")
	for _, s := range view {
		updated, currency := "-", domain.DefaultCurrency
		if n := len(s.Data); n > 0 {
			updated = s.Data[n-1].Timestamp
			currency = s.Data[n-1].Currency
		}
		fmt.Fprintf(tw, "%s\t%.2f %s\t%+.2f%%\t%d\t%s\n",
			s.CompetitorID, s.LatestPrice, currency, s.PriceChangePct, len(s.Data), updated)
	}

	if len(alerts) > 0 {
		fmt.Fprintln(tw, "\nSEVERITY\tCOMPETITOR\tMESSAGE")
		for i := len(alerts) - 1; i >= 0; i-- {
			a := alerts[i]
			fmt.Fprintf(tw, "%s\t%s\t%s\n", a.Severity, a.CompetitorID, a.Message)
		}
	}

	return tw.Flush()
}
