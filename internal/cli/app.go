package cli

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/roach88/tabengine/internal/catalog"
	"github.com/roach88/tabengine/internal/config"
	"github.com/roach88/tabengine/internal/events"
	"github.com/roach88/tabengine/internal/logger"
	"github.com/roach88/tabengine/internal/order"
	"github.com/roach88/tabengine/internal/purchase"
	"github.com/roach88/tabengine/internal/reservation"
	"github.com/roach88/tabengine/internal/store"
)

// app is the wired engine a command works against.
type app struct {
	cfg          *config.Config
	logger       *zap.Logger
	store        *store.Store
	bus          *events.Bus
	catalog      *catalog.Catalog
	engine       *order.Engine
	reservations *reservation.Service
	purchases    *purchase.Service
}

// loadConfig reads the config file named by --config (or the default
// location) and applies the --db override.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	var loadOpts []config.LoadOption
	if opts.Config != "" {
		loadOpts = append(loadOpts, config.Explicit())
	}
	cfg, err := config.Load(opts.Config, loadOpts...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.Database.Path = opts.Database
	}
	return cfg, nil
}

// openApp loads the config, opens the store and rehydrates the engine.
//
// One-shot commands log at WARN and above unless --verbose is set, so
// their stdout stays readable; long-running commands pass quiet=false.
func openApp(ctx context.Context, opts *RootOptions, quiet bool) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	switch {
	case opts.Verbose:
		level = string(logger.DebugLevel)
	case quiet && logger.ParseLevel(level) < zapcore.WarnLevel:
		level = string(logger.WarnLevel)
	}
	log := logger.New(level, logger.ParseFormat(cfg.Log.Format))

	st, err := store.Open(cfg.Database.Path, store.WithBusyTimeout(cfg.Database.BusyTimeoutMS))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	log.Debug("database ready", zap.String("path", cfg.Database.Path))

	bus := events.NewBus(events.WithLogger(log))
	watch(bus, log)
	cat := catalog.New(st, catalog.WithNotifier(bus), catalog.WithLogger(log))
	eng := order.New(st, cat,
		order.WithNotifier(bus),
		order.WithLogger(log),
		order.WithMinuteRounding(cfg.Rounding()),
		order.WithDefaultTables(cfg.Tables.DefaultCount))

	if err := eng.Rehydrate(ctx); err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to load engine state", err)
	}

	return &app{
		cfg:          cfg,
		logger:       log,
		store:        st,
		bus:          bus,
		catalog:      cat,
		engine:       eng,
		reservations: reservation.New(st, nil),
		purchases:    purchase.New(st, nil),
	}, nil
}

// Close flushes the logger and closes the store.
func (a *app) Close() error {
	_ = a.logger.Sync()
	return a.store.Close()
}

// withApp opens the app, runs fn and closes the app again.
func withApp(ctx context.Context, opts *RootOptions, fn func(a *app) error) error {
	a, err := openApp(ctx, opts, true)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}
