package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/tabengine/internal/catalog"
	"github.com/roach88/tabengine/internal/domain"
)

// CatalogListing is the output of catalog list.
type CatalogListing struct {
	Categories []domain.CategoryListing `json:"categories"`
	Rates      []domain.Rate            `json:"rates"`
}

// NewCatalogCommand creates the catalog command group.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage categories, products, stock and rental rates",
	}
	cmd.AddCommand(newCatalogImportCommand(rootOpts))
	cmd.AddCommand(newCatalogValidateCommand(rootOpts))
	cmd.AddCommand(newCatalogListCommand(rootOpts))
	cmd.AddCommand(newCatalogLowStockCommand(rootOpts))
	cmd.AddCommand(newCatalogSetRateCommand(rootOpts))
	return cmd
}

func newCatalogImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.cue>",
		Short: "Import a CUE catalog seed file",
		Long: `Validate a CUE catalog seed file and upsert its categories, products,
options and rates in one transaction. Rows are matched by name.

Example:
  tabengine catalog import ./menu.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := catalog.LoadFile(args[0])
			if err != nil {
				return WrapExitError(ExitFailure, "invalid catalog file", err)
			}
			ctx := commandContext(cmd)
			return withApp(ctx, rootOpts, func(a *app) error {
				sum, err := a.catalog.Import(ctx, f, rootOpts.Actor)
				if err != nil {
					return engineError("import failed", err)
				}
				return newFormatter(cmd, rootOpts).Render(sum, func(w io.Writer) {
					fmt.Fprintf(w, "Imported %s\n", args[0])
					fmt.Fprintf(w, "  categories: +%d\n", sum.CategoriesCreated)
					fmt.Fprintf(w, "  products:   +%d ~%d\n", sum.ProductsCreated, sum.ProductsUpdated)
					fmt.Fprintf(w, "  options:    +%d ~%d\n", sum.OptionsCreated, sum.OptionsUpdated)
					fmt.Fprintf(w, "  rates:      %d\n", sum.RatesSet)
				})
			})
		},
	}
}

func newCatalogValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "validate <file.cue>",
		Short:         "Validate a CUE catalog seed file without importing it",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := catalog.LoadFile(args[0])
			if err != nil {
				return WrapExitError(ExitFailure, "invalid catalog file", err)
			}
			products := 0
			for _, c := range f.Categories {
				products += len(c.Products)
			}
			data := map[string]int{
				"categories": len(f.Categories),
				"products":   products,
				"rates":      len(f.Rates),
			}
			return newFormatter(cmd, rootOpts).Render(data, func(w io.Writer) {
				fmt.Fprintf(w, "%s %s: %d categories, %d products, %d rates\n",
					passMark, args[0], len(f.Categories), products, len(f.Rates))
			})
		},
	}
}

func newCatalogListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List categories with their products, and rental rates",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			return withApp(ctx, rootOpts, func(a *app) error {
				cats, err := a.catalog.Categories(ctx)
				if err != nil {
					return engineError("failed to list catalog", err)
				}
				rates, err := a.catalog.Rates(ctx)
				if err != nil {
					return engineError("failed to list rates", err)
				}
				listing := CatalogListing{Categories: cats, Rates: rates}
				return newFormatter(cmd, rootOpts).Render(listing, func(w io.Writer) {
					writeCatalog(w, listing)
				})
			})
		},
	}
}

func writeCatalog(w io.Writer, l CatalogListing) {
	for _, c := range l.Categories {
		fmt.Fprintln(w, c.Category.Name)
		for _, p := range c.Products {
			line := fmt.Sprintf("  %-24s %10s", p.Name, money(p.PriceCents))
			if p.TrackStock {
				stock := fmt.Sprintf("  stock %s (min %s)", domain.FormatQty(p.Stock()), domain.FormatQty(p.MinStock))
				if p.Stock() <= p.MinStock {
					stock = warnText(stock)
				}
				line += stock
			}
			fmt.Fprintln(w, line)
		}
	}
	if len(l.Rates) > 0 {
		fmt.Fprintln(w, "Rates")
		for _, r := range l.Rates {
			fmt.Fprintf(w, "  %-3s %-16s %10s/h\n", r.Mode, r.Label, money(r.PerHourCents))
		}
	}
}

func newCatalogLowStockCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "low-stock",
		Short:         "List tracked products at or below their minimum stock",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			return withApp(ctx, rootOpts, func(a *app) error {
				low, err := a.catalog.LowStock(ctx)
				if err != nil {
					return engineError("failed to read stock", err)
				}
				return newFormatter(cmd, rootOpts).Render(low, func(w io.Writer) {
					if len(low) == 0 {
						fmt.Fprintln(w, "No products low on stock.")
						return
					}
					for _, p := range low {
						fmt.Fprintln(w, warnText(fmt.Sprintf("%s: %s (min %s)",
							p.Name, domain.FormatQty(p.Qty), domain.FormatQty(p.Min))))
					}
				})
			})
		},
	}
}

func newCatalogSetRateCommand(rootOpts *RootOptions) *cobra.Command {
	var label string
	cmd := &cobra.Command{
		Use:   "set-rate <mode> <cents-per-hour>",
		Short: "Set the hourly price of a rental mode",
		Long: `Set the hourly price of a rental mode in cents.

Example:
  tabengine catalog set-rate P2 6000
  tabengine catalog set-rate P4 9000 --label "PS 4 players"`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := domain.ParseMode(args[0])
			if err != nil {
				return engineError("invalid mode", err)
			}
			cents, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return WrapExitError(ExitFailure, "invalid rate", err)
			}
			ctx := commandContext(cmd)
			return withApp(ctx, rootOpts, func(a *app) error {
				if err := a.catalog.SetRate(ctx, mode, label, cents, rootOpts.Actor); err != nil {
					return engineError("failed to set rate", err)
				}
				rate, err := a.catalog.Rate(ctx, mode)
				if err != nil {
					return engineError("failed to read rate", err)
				}
				return newFormatter(cmd, rootOpts).Render(rate, func(w io.Writer) {
					fmt.Fprintf(w, "%s %s: %s/h\n", rate.Mode, rate.Label, money(rate.PerHourCents))
				})
			})
		},
	}
	cmd.Flags().StringVar(&label, "label", "", "display label (default: the mode's name)")
	return cmd
}
