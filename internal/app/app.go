// Package app wires the subsystems together and drives the process
// lifecycle for the supported run modes.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/meridianfi/lendcore/internal/config"
)

// App owns the wired subsystems and their shutdown order.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	// closers run in reverse registration order on Close.
	closers []closer
}

type closer struct {
	name string
	fn   func()
}

// New creates an App from a validated configuration.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger,
	}
}

// Run dispatches to the configured mode and blocks until the context is
// cancelled or the mode returns an error.
func (a *App) Run(ctx context.Context) error {
	mode := strings.ToLower(a.cfg.Mode)
	a.logger.InfoContext(ctx, "starting",
		slog.String("mode", mode),
		slog.String("pool", a.cfg.Pool.ID),
	)

	switch mode {
	case "serve":
		return a.runServe(ctx)
	case "standalone":
		return a.runStandalone(ctx)
	default:
		return fmt.Errorf("app: unknown mode %q", a.cfg.Mode)
	}
}

// addCloser registers a shutdown hook. Hooks run in reverse order so
// dependents close before their dependencies.
func (a *App) addCloser(name string, fn func()) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// Close releases all wired resources.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		a.logger.Debug("closing", slog.String("resource", c.name))
		c.fn()
	}
	a.closers = nil
}
