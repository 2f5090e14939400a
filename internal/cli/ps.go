package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/tabengine/internal/domain"
)

// NewPSCommand creates the ps command group for metered console
// sessions.
func NewPSCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ps",
		Short: "Start, switch and stop metered console sessions",
		Long: `Console sessions bill elapsed time at the hourly rate of their mode.
Starting or switching bills any session already running on the table as
an order line first; stopping bills and ends it.`,
	}
	cmd.AddCommand(newPSStartCommand(rootOpts, "start", "Start a session on a table"))
	cmd.AddCommand(newPSStartCommand(rootOpts, "switch", "Bill the running session and continue in another mode"))
	cmd.AddCommand(newPSStopCommand(rootOpts))
	return cmd
}

func newPSStartCommand(rootOpts *RootOptions, use, short string) *cobra.Command {
	return &cobra.Command{
		Use:           use + " <table> <mode>",
		Short:         short,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := domain.ParseMode(args[1])
			if err != nil {
				return engineError("invalid mode", err)
			}
			ctx := commandContext(cmd)
			return withApp(ctx, rootOpts, func(a *app) error {
				if use == "switch" {
					err = a.engine.PSSwitch(ctx, args[0], mode, rootOpts.Actor)
				} else {
					err = a.engine.PSStart(ctx, args[0], mode, rootOpts.Actor)
				}
				if err != nil {
					return engineError(use+" failed", err)
				}
				s, _ := a.engine.ActiveSession(args[0])
				return newFormatter(cmd, rootOpts).Render(s, func(w io.Writer) {
					fmt.Fprintf(w, "%s %s session running on %s since %s\n",
						passMark, s.Mode.Label(), s.TableCode, s.StartedAt.Local().Format("15:04:05"))
				})
			})
		},
	}
}

func newPSStopCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "stop <table>",
		Short:         "Bill and end the session on a table",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			return withApp(ctx, rootOpts, func(a *app) error {
				ok, err := a.engine.PSStop(ctx, args[0], rootOpts.Actor)
				if err != nil {
					return engineError("stop failed", err)
				}
				if !ok {
					return notApplied("no session running on %s", domain.NormalizeTableCode(args[0]))
				}
				return renderOrder(cmd, rootOpts, a, args[0])
			})
		},
	}
}
