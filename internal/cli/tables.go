package cli

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/tabengine/internal/order"
)

// TablesResult is the output of the tables commands.
type TablesResult struct {
	Tables []string          `json:"tables"`
	Open   []order.OpenTable `json:"open"`
}

// NewTablesCommand creates the tables command group.
func NewTablesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tables",
		Short: "Show and edit the table roster",
	}
	cmd.AddCommand(&cobra.Command{
		Use:           "list",
		Short:         "List the table roster, marking open tables",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(commandContext(cmd), rootOpts, func(a *app) error {
				return renderTables(cmd, rootOpts, a, a.engine.TableCodes())
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set <code>...",
		Short: "Replace the table roster",
		Long: `Replace the table roster. Codes are trimmed, upper-cased and
de-duplicated. Tables with an open order are always kept.

Example:
  tabengine tables set T01 T02 T03 BAR`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			return withApp(ctx, rootOpts, func(a *app) error {
				codes, err := a.engine.SetTableCodes(ctx, args, rootOpts.Actor)
				if err != nil {
					return engineError("failed to save tables", err)
				}
				return renderTables(cmd, rootOpts, a, codes)
			})
		},
	})
	return cmd
}

func renderTables(cmd *cobra.Command, rootOpts *RootOptions, a *app, codes []string) error {
	result := TablesResult{Tables: codes, Open: a.engine.ListOpenTablesWithTotals("")}
	open := a.engine.ListOpenTables("")
	return newFormatter(cmd, rootOpts).Render(result, func(w io.Writer) {
		marked := make([]string, len(codes))
		for i, c := range codes {
			marked[i] = c
			if slices.Contains(open, c) {
				marked[i] = c + "*"
			}
		}
		fmt.Fprintln(w, strings.Join(marked, " "))
		if len(open) > 0 {
			fmt.Fprintf(w, "(* open: %d)\n", len(open))
		}
	})
}
