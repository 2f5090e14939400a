package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/tabengine/internal/domain"
	"github.com/roach88/tabengine/internal/order"
	"github.com/roach88/tabengine/internal/session"
)

// OrderView is the output of the order commands: the open order of a
// table as it stands after the command.
type OrderView struct {
	Table   string             `json:"table"`
	Items   []domain.OrderItem `json:"items"`
	Totals  domain.Totals      `json:"totals"`
	Session *session.Bill      `json:"session,omitempty"`
}

// NewOrderCommand creates the order command group.
func NewOrderCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Add, change, merge and settle table orders",
	}
	cmd.AddCommand(newOrderAddCommand(rootOpts))
	cmd.AddCommand(newOrderRemoveCommand(rootOpts))
	cmd.AddCommand(newOrderUpdateCommand(rootOpts))
	cmd.AddCommand(newOrderDiscountCommand(rootOpts))
	cmd.AddCommand(newOrderMergeCommand(rootOpts))
	cmd.AddCommand(newOrderSettleCommand(rootOpts))
	cmd.AddCommand(newOrderShowCommand(rootOpts))
	return cmd
}

// orderView snapshots the order of table, pricing any running session.
func orderView(cmd *cobra.Command, a *app, table string) (OrderView, error) {
	code := domain.NormalizeTableCode(table)
	v := OrderView{
		Table:  code,
		Items:  a.engine.GetItems(code),
		Totals: a.engine.GetTotals(code),
	}
	bill, ok, err := a.engine.PendingBill(commandContext(cmd), code)
	if err != nil {
		return v, engineError("failed to price session", err)
	}
	if ok {
		v.Session = &bill
	}
	return v, nil
}

func renderOrder(cmd *cobra.Command, rootOpts *RootOptions, a *app, table string) error {
	v, err := orderView(cmd, a, table)
	if err != nil {
		return err
	}
	return newFormatter(cmd, rootOpts).Render(v, func(w io.Writer) {
		writeOrder(w, v)
	})
}

func writeOrder(w io.Writer, v OrderView) {
	if len(v.Items) == 0 && v.Session == nil {
		fmt.Fprintf(w, "%s: no open order\n", v.Table)
		return
	}
	fmt.Fprintf(w, "%s\n", v.Table)
	for i, it := range v.Items {
		line := fmt.Sprintf("  %2d. %-28s %6s x %8s = %10s",
			i, it.Product, domain.FormatQty(it.Qty), money(it.UnitPriceCents), money(it.TotalCents()))
		if it.Note != "" {
			line += "  (" + it.Note + ")"
		}
		fmt.Fprintln(w, line)
	}
	if v.Totals.Discount > 0 {
		fmt.Fprintf(w, "  subtotal %10s\n", money(v.Totals.Subtotal))
		fmt.Fprintf(w, "  discount %10s\n", money(v.Totals.Discount))
	}
	fmt.Fprintf(w, "  total    %10s\n", money(v.Totals.Total))
	if v.Session != nil {
		fmt.Fprintf(w, "  session  %s, %d min, %s pending\n", v.Session.Mode, v.Session.Minutes, money(v.Session.AmountCents))
	}
}

// notApplied reports a mutation the engine declined without error.
func notApplied(format string, args ...any) error {
	return NewExitError(ExitFailure, fmt.Sprintf(format, args...))
}

func parseIndex(s string) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, WrapExitError(ExitFailure, "invalid item index", err)
	}
	return i, nil
}

func newOrderAddCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		qty   float64
		price int64
		note  string
	)
	cmd := &cobra.Command{
		Use:   "add <table> <product>",
		Short: "Add a product to a table's order",
		Long: `Add a product to the open order of a table, opening one if needed.
Tracked products are taken from stock; the command fails without changing
anything when stock cannot cover the quantity.

The price defaults to the catalog price. Products not in the catalog
need --price.

Example:
  tabengine order add T01 Espresso
  tabengine order add T03 "Corkage" --price 500 --qty 2`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			return withApp(ctx, rootOpts, func(a *app) error {
				unit := price
				if !cmd.Flags().Changed("price") {
					p, err := a.catalog.GetProduct(ctx, args[1])
					if err != nil {
						return engineError("failed to look up product", err)
					}
					if p == nil {
						return engineError("add failed",
							domain.NewValidationError("price", "%q is not in the catalog, pass --price", args[1]))
					}
					unit = p.PriceCents
				}
				if err := a.engine.AddItem(ctx, args[0], args[1], unit, qty, note, rootOpts.Actor); err != nil {
					return engineError("add failed", err)
				}
				return renderOrder(cmd, rootOpts, a, args[0])
			})
		},
	}
	cmd.Flags().Float64Var(&qty, "qty", 1, "quantity")
	cmd.Flags().Int64Var(&price, "price", 0, "unit price in cents (default: catalog price)")
	cmd.Flags().StringVar(&note, "note", "", "line note")
	return cmd
}

func newOrderRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "remove <table> <index>",
		Short:         "Remove an item and return tracked stock",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[1])
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)
			return withApp(ctx, rootOpts, func(a *app) error {
				ok, err := a.engine.RemoveItem(ctx, args[0], index, rootOpts.Actor)
				if err != nil {
					return engineError("remove failed", err)
				}
				if !ok {
					return notApplied("no item %d on %s", index, domain.NormalizeTableCode(args[0]))
				}
				return renderOrder(cmd, rootOpts, a, args[0])
			})
		},
	}
}

func newOrderUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		qty  float64
		note string
	)
	cmd := &cobra.Command{
		Use:   "update <table> <index>",
		Short: "Change the quantity or note of an item",
		Long: `Change the quantity or note of an item. A quantity of zero or less
removes the item. Tracked stock follows the quantity change.

Example:
  tabengine order update T01 0 --qty 3
  tabengine order update T01 1 --note "no sugar"`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := parseIndex(args[1])
			if err != nil {
				return err
			}
			var qtyArg *float64
			var noteArg *string
			if cmd.Flags().Changed("qty") {
				qtyArg = &qty
			}
			if cmd.Flags().Changed("note") {
				noteArg = &note
			}
			if qtyArg == nil && noteArg == nil {
				return NewExitError(ExitCommandError, "nothing to update: pass --qty or --note")
			}
			ctx := commandContext(cmd)
			return withApp(ctx, rootOpts, func(a *app) error {
				ok, err := a.engine.UpdateItem(ctx, args[0], index, qtyArg, noteArg, rootOpts.Actor)
				if err != nil {
					return engineError("update failed", err)
				}
				if !ok {
					return notApplied("no item %d on %s", index, domain.NormalizeTableCode(args[0]))
				}
				return renderOrder(cmd, rootOpts, a, args[0])
			})
		},
	}
	cmd.Flags().Float64Var(&qty, "qty", 0, "new quantity")
	cmd.Flags().StringVar(&note, "note", "", "new note")
	return cmd
}

func newOrderDiscountCommand(rootOpts *RootOptions) *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "discount <table> [cents]",
		Short: "Set or clear the discount of a table's order",
		Long: `Set the absolute discount of a table's order in cents, or clear it
with --clear. Negative amounts count as zero; the total never goes below
zero.`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var cents int64
			switch {
			case reset && len(args) == 1:
			case !reset && len(args) == 2:
				var err error
				cents, err = strconv.ParseInt(args[1], 10, 64)
				if err != nil {
					return WrapExitError(ExitFailure, "invalid discount", err)
				}
			default:
				return NewExitError(ExitCommandError, "pass either an amount or --clear")
			}
			ctx := commandContext(cmd)
			return withApp(ctx, rootOpts, func(a *app) error {
				var ok bool
				var err error
				if reset {
					ok, err = a.engine.ClearDiscount(ctx, args[0])
				} else {
					ok, err = a.engine.ApplyDiscount(ctx, args[0], cents)
				}
				if err != nil {
					return engineError("discount failed", err)
				}
				if !ok {
					return notApplied("no open order on %s", domain.NormalizeTableCode(args[0]))
				}
				return renderOrder(cmd, rootOpts, a, args[0])
			})
		},
	}
	cmd.Flags().BoolVar(&reset, "clear", false, "remove the discount")
	return cmd
}

func newOrderMergeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "merge <target> <source>",
		Short: "Move every item of source onto target and void source",
		Long: `Merge the open order of source into the open order of target. A
session running on source is billed on source first. Discounts add up.
The source order is voided and the source table freed.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			return withApp(ctx, rootOpts, func(a *app) error {
				ok, err := a.engine.MergeTables(ctx, args[0], args[1], rootOpts.Actor)
				if err != nil {
					return engineError("merge failed", err)
				}
				if !ok {
					return notApplied("cannot merge %s into %s: both tables need an open order",
						domain.NormalizeTableCode(args[1]), domain.NormalizeTableCode(args[0]))
				}
				return renderOrder(cmd, rootOpts, a, args[0])
			})
		},
	}
}

func newOrderSettleCommand(rootOpts *RootOptions) *cobra.Command {
	var method string
	cmd := &cobra.Command{
		Use:           "settle <table>",
		Short:         "Bill any running session, record the payment and close the order",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			return withApp(ctx, rootOpts, func(a *app) error {
				receipt, err := a.engine.Settle(ctx, args[0], method, rootOpts.Actor)
				if err != nil {
					return engineError("settle failed", err)
				}
				if receipt == nil {
					return notApplied("nothing to settle on %s", domain.NormalizeTableCode(args[0]))
				}
				return newFormatter(cmd, rootOpts).Render(receipt, func(w io.Writer) {
					writeReceipt(w, receipt)
				})
			})
		},
	}
	cmd.Flags().StringVar(&method, "method", order.DefaultPaymentMethod, "payment method")
	return cmd
}

func writeReceipt(w io.Writer, r *order.Receipt) {
	fmt.Fprintf(w, "%s Paid %s on %s by %s\n", passMark, money(r.Amount), r.Table, r.Method)
	for _, it := range r.Items {
		fmt.Fprintf(w, "  %-28s %6s x %8s\n", it.Product, domain.FormatQty(it.Qty), money(it.UnitPriceCents))
	}
	if r.Totals.Discount > 0 {
		fmt.Fprintf(w, "  discount %s\n", money(r.Totals.Discount))
	}
	fmt.Fprintf(w, "  reference %s\n", r.Reference)
}

func newOrderShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <table>",
		Short:         "Show the open order of a table",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(commandContext(cmd), rootOpts, func(a *app) error {
				return renderOrder(cmd, rootOpts, a, args[0])
			})
		},
	}
}
