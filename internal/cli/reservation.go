package cli

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/tabengine/internal/domain"
	"github.com/roach88/tabengine/internal/reservation"
)

// reservationLayouts are the accepted --at formats, tried in order.
var reservationLayouts = []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02T15:04"}

func parseReservationTime(s string) (time.Time, error) {
	for _, layout := range reservationLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, domain.NewValidationError("at", "cannot parse %q, use YYYY-MM-DD HH:MM", s)
}

func parseID(what, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, WrapExitError(ExitFailure, "invalid "+what+" id", err)
	}
	return id, nil
}

// NewReservationCommand creates the reservation command group.
func NewReservationCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reservation",
		Short: "Manage table reservations",
	}
	cmd.AddCommand(newReservationListCommand(rootOpts))
	cmd.AddCommand(newReservationAddCommand(rootOpts))
	cmd.AddCommand(newReservationStatusCommand(rootOpts))
	cmd.AddCommand(newReservationDeleteCommand(rootOpts))
	return cmd
}

func newReservationListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List reservations by time",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			return withApp(ctx, rootOpts, func(a *app) error {
				list, err := a.reservations.List(ctx)
				if err != nil {
					return engineError("failed to list reservations", err)
				}
				return newFormatter(cmd, rootOpts).Render(list, func(w io.Writer) {
					if len(list) == 0 {
						fmt.Fprintln(w, "No reservations.")
						return
					}
					for _, r := range list {
						writeReservation(w, r)
					}
				})
			})
		},
	}
}

func writeReservation(w io.Writer, r domain.Reservation) {
	line := fmt.Sprintf("%4d  %s  %-20s x%-2d %-9s",
		r.ID, r.ReservedFor.Local().Format("2006-01-02 15:04"), r.Name, r.PartySize, r.Status)
	if r.TableCode != "" {
		line += " " + r.TableCode
	}
	if r.Notes != "" {
		line += "  (" + r.Notes + ")"
	}
	fmt.Fprintln(w, line)
}

func newReservationAddCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		in reservation.Input
		at string
	)
	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Book a reservation",
		Long: `Book a reservation. --at accepts "YYYY-MM-DD HH:MM" in local time or
RFC 3339.

Example:
  tabengine reservation add "Nguyen" --at "2025-03-01 19:30" --party 4 --table T05`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			when, err := parseReservationTime(at)
			if err != nil {
				return engineError("invalid time", err)
			}
			in.Name = args[0]
			in.ReservedFor = when
			ctx := commandContext(cmd)
			return withApp(ctx, rootOpts, func(a *app) error {
				r, err := a.reservations.Create(ctx, in, rootOpts.Actor)
				if err != nil {
					return engineError("failed to book", err)
				}
				return newFormatter(cmd, rootOpts).Render(r, func(w io.Writer) {
					writeReservation(w, r)
				})
			})
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "reservation time (required)")
	cmd.Flags().IntVar(&in.PartySize, "party", 1, "party size")
	cmd.Flags().StringVar(&in.Phone, "phone", "", "contact phone")
	cmd.Flags().StringVar(&in.TableCode, "table", "", "table code")
	cmd.Flags().StringVar(&in.Notes, "notes", "", "notes")
	cmd.Flags().StringVar(&in.Status, "status", "pending", "status (pending|seated|cancelled)")
	_ = cmd.MarkFlagRequired("at")
	return cmd
}

func newReservationStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "status <id> <pending|seated|cancelled>",
		Short:         "Change the status of a reservation",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("reservation", args[0])
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)
			return withApp(ctx, rootOpts, func(a *app) error {
				ok, err := a.reservations.UpdateStatus(ctx, id, args[1])
				if err != nil {
					return engineError("failed to update reservation", err)
				}
				if !ok {
					return notApplied("no reservation %d", id)
				}
				status := reservation.NormalizeStatus(args[1])
				return newFormatter(cmd, rootOpts).Render(map[string]any{"id": id, "status": status}, func(w io.Writer) {
					fmt.Fprintf(w, "Reservation %d is %s\n", id, status)
				})
			})
		},
	}
}

func newReservationDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <id>",
		Short:         "Delete a reservation",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("reservation", args[0])
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)
			return withApp(ctx, rootOpts, func(a *app) error {
				ok, err := a.reservations.Delete(ctx, id)
				if err != nil {
					return engineError("failed to delete reservation", err)
				}
				if !ok {
					return notApplied("no reservation %d", id)
				}
				return newFormatter(cmd, rootOpts).Render(map[string]any{"id": id, "deleted": true}, func(w io.Writer) {
					fmt.Fprintf(w, "Reservation %d deleted\n", id)
				})
			})
		},
	}
}
