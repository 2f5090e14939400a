package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewAuditCommand creates the audit command group.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the audit log",
	}
	list := &cobra.Command{
		Use:           "list",
		Short:         "List audit entries, newest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			return withApp(ctx, rootOpts, func(a *app) error {
				entries, err := a.store.ListAudit(ctx, limit)
				if err != nil {
					return engineError("failed to read audit log", err)
				}
				return newFormatter(cmd, rootOpts).Render(entries, func(w io.Writer) {
					for _, e := range entries {
						line := fmt.Sprintf("%s  %-10s %-18s", e.At.Local().Format("2006-01-02 15:04:05"), e.Actor, e.Action)
						if e.EntityName != "" {
							line += " " + e.EntityName
						}
						switch {
						case e.OldValue != "" || e.NewValue != "":
							line += fmt.Sprintf(" %s -> %s", e.OldValue, e.NewValue)
						case e.Extra != "":
							line += " " + e.Extra
						}
						fmt.Fprintln(w, line)
					}
				})
			})
		},
	}
	list.Flags().IntVar(&limit, "limit", 50, "maximum entries (0 for all)")
	cmd.AddCommand(list)
	return cmd
}
