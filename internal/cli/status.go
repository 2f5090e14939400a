package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/tabengine/internal/domain"
	"github.com/roach88/tabengine/internal/order"
	"github.com/roach88/tabengine/internal/session"
)

// StatusResult is the output of the status command.
type StatusResult struct {
	Open     []order.OpenTable `json:"open"`
	Sessions []session.Bill    `json:"sessions"`
	LowStock []domain.LowStock `json:"low_stock"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show open tables, running sessions and low stock",
		Long: `Show every table with an open order and its total, every running
console session priced as of now, and every tracked product at or below
its minimum stock.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			return withApp(ctx, rootOpts, func(a *app) error {
				result := StatusResult{Open: a.engine.ListOpenTablesWithTotals("")}
				for _, s := range a.engine.ActiveSessions() {
					bill, ok, err := a.engine.PendingBill(ctx, s.TableCode)
					if err != nil {
						return engineError("failed to price session", err)
					}
					if ok {
						result.Sessions = append(result.Sessions, bill)
					}
				}
				low, err := a.catalog.LowStock(ctx)
				if err != nil {
					return engineError("failed to read stock", err)
				}
				result.LowStock = low

				return newFormatter(cmd, rootOpts).Render(result, func(w io.Writer) {
					writeStatus(w, result)
				})
			})
		},
	}
}

func writeStatus(w io.Writer, r StatusResult) {
	if len(r.Open) == 0 {
		fmt.Fprintln(w, "No open tables.")
	} else {
		fmt.Fprintln(w, "Open tables:")
		for _, t := range r.Open {
			fmt.Fprintf(w, "  %-6s %10s\n", t.Table, money(t.TotalCents))
		}
	}
	if len(r.Sessions) > 0 {
		fmt.Fprintln(w, "Sessions:")
		for _, b := range r.Sessions {
			line := fmt.Sprintf("  %-6s %-3s %4d min %10s", b.Table, b.Mode, b.Minutes, money(b.AmountCents))
			if b.RateMissing {
				line += " " + warnText("(no rate)")
			}
			fmt.Fprintln(w, line)
		}
	}
	if len(r.LowStock) > 0 {
		fmt.Fprintln(w, "Low stock:")
		for _, p := range r.LowStock {
			fmt.Fprintln(w, warnText(fmt.Sprintf("  %s: %s (min %s)",
				p.Name, domain.FormatQty(p.Qty), domain.FormatQty(p.Min))))
		}
	}
}
