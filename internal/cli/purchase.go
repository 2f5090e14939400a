package cli

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/roach88/tabengine/internal/domain"
	"github.com/roach88/tabengine/internal/purchase"
)

// parseAmount reads a currency amount such as "42.50" as cents.
func parseAmount(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, domain.NewValidationError("amount", "cannot parse %q as an amount", s)
	}
	cents := d.Shift(2)
	if !cents.Equal(cents.Truncate(0)) {
		return 0, domain.NewValidationError("amount", "%q has more than two decimal places", s)
	}
	return cents.IntPart(), nil
}

// NewPurchaseCommand creates the purchase command group.
func NewPurchaseCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purchase",
		Short: "Record and list supplier purchases",
	}
	cmd.AddCommand(newPurchaseListCommand(rootOpts))
	cmd.AddCommand(newPurchaseAddCommand(rootOpts))
	cmd.AddCommand(newPurchaseShowCommand(rootOpts))
	return cmd
}

func writePurchase(w io.Writer, p domain.Purchase) {
	line := fmt.Sprintf("%4d  %s  %-20s %10s",
		p.ID, p.PurchasedAt.Local().Format("2006-01-02 15:04"), p.Supplier, money(p.AmountCents))
	if p.InvoiceNo != "" {
		line += "  #" + p.InvoiceNo
	}
	if p.Notes != "" {
		line += "  (" + p.Notes + ")"
	}
	fmt.Fprintln(w, line)
}

func newPurchaseListCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List purchases, newest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			return withApp(ctx, rootOpts, func(a *app) error {
				list, err := a.purchases.List(ctx, limit)
				if err != nil {
					return engineError("failed to list purchases", err)
				}
				return newFormatter(cmd, rootOpts).Render(list, func(w io.Writer) {
					if len(list) == 0 {
						fmt.Fprintln(w, "No purchases.")
						return
					}
					var total int64
					for _, p := range list {
						writePurchase(w, p)
						total += p.AmountCents
					}
					fmt.Fprintf(w, "Total: %s\n", money(total))
				})
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", purchase.DefaultListLimit, "maximum purchases to show")
	return cmd
}

func newPurchaseAddCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		in     purchase.Input
		amount string
		at     string
	)
	cmd := &cobra.Command{
		Use:   "add <supplier>",
		Short: "Record a supplier purchase",
		Long: `Record a supplier purchase. --amount is in currency units with up to
two decimals. --at defaults to now and accepts "YYYY-MM-DD HH:MM" in local
time or RFC 3339.

Example:
  tabengine purchase add "Dairy Co" --amount 42.50 --invoice INV-77`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cents, err := parseAmount(amount)
			if err != nil {
				return engineError("invalid amount", err)
			}
			if at != "" {
				when, err := parseReservationTime(at)
				if err != nil {
					return engineError("invalid time", err)
				}
				in.PurchasedAt = when
			}
			in.Supplier = args[0]
			in.AmountCents = cents
			ctx := commandContext(cmd)
			return withApp(ctx, rootOpts, func(a *app) error {
				p, err := a.purchases.Create(ctx, in, rootOpts.Actor)
				if err != nil {
					return engineError("failed to record purchase", err)
				}
				return newFormatter(cmd, rootOpts).Render(p, func(w io.Writer) {
					writePurchase(w, p)
				})
			})
		},
	}
	cmd.Flags().StringVar(&amount, "amount", "", "amount paid, e.g. 42.50 (required)")
	cmd.Flags().StringVar(&at, "at", "", "purchase time (default now)")
	cmd.Flags().StringVar(&in.InvoiceNo, "invoice", "", "supplier invoice number")
	cmd.Flags().StringVar(&in.Notes, "notes", "", "notes")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newPurchaseShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <id>",
		Short:         "Show one purchase",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("purchase", args[0])
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)
			return withApp(ctx, rootOpts, func(a *app) error {
				p, err := a.purchases.Get(ctx, id)
				if err != nil {
					return engineError("failed to show purchase", err)
				}
				return newFormatter(cmd, rootOpts).Render(p, func(w io.Writer) {
					writePurchase(w, p)
				})
			})
		},
	}
}
