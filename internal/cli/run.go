package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/tabengine/internal/metrics"
)

// shutdownTimeout bounds how long the metrics server may take to drain.
const shutdownTimeout = 5 * time.Second

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	MetricsAddr      string
	SnapshotInterval time.Duration
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the engine until interrupted",
		Long: `Load the engine state from the database and keep it running: running
console sessions are snapshotted every billing.snapshot_interval so a
crash loses at most one interval, and prometheus metrics are served when
a metrics address is configured.

On SIGINT or SIGTERM a final snapshot is written before exiting.

Example:
  tabengine run --db ./cafe.db
  tabengine run --metrics-addr :9090 --snapshot-interval 10s`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve /metrics on this address (overrides config)")
	cmd.Flags().DurationVar(&opts.SnapshotInterval, "snapshot-interval", 0, "session snapshot interval (overrides config)")

	return cmd
}

func runEngine(opts *RunOptions, cmd *cobra.Command) error {
	// Signal handling for graceful shutdown. The command's context may
	// already carry a deadline (tests).
	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, opts.RootOptions, false)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			a.logger.Error("error closing database", zap.Error(closeErr))
		}
	}()

	interval := a.cfg.Billing.SnapshotInterval
	if opts.SnapshotInterval > 0 {
		interval = opts.SnapshotInterval
	}
	addr := a.cfg.Metrics.Addr
	if opts.MetricsAddr != "" {
		addr = opts.MetricsAddr
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.engine.RunSnapshots(gctx, interval)
	})
	if addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: shutdownTimeout}

		g.Go(func() error {
			a.logger.Info("metrics server listening", zap.String("addr", addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	snap := a.engine.Snapshot()
	a.logger.Info("engine started",
		zap.String("db", a.cfg.Database.Path),
		zap.Duration("snapshot_interval", interval),
		zap.Int("open_orders", len(snap.Open)),
		zap.Int("sessions", len(snap.Sessions)))
	fmt.Fprintln(cmd.OutOrStdout(), "Engine started. Press Ctrl-C to stop.")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "engine error", err)
	}

	a.logger.Info("engine stopped gracefully")
	return nil
}
