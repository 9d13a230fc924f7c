package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/meridianfi/lendcore/internal/archive"
	"github.com/meridianfi/lendcore/internal/domain"
	"github.com/meridianfi/lendcore/internal/engine"
	"github.com/meridianfi/lendcore/internal/rates"
	"github.com/meridianfi/lendcore/internal/server"
	"github.com/meridianfi/lendcore/internal/server/handler"
	"github.com/meridianfi/lendcore/internal/server/ws"
	"github.com/meridianfi/lendcore/internal/store/memory"
	"github.com/meridianfi/lendcore/internal/vault"
)

// shutdownTimeout bounds graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

// runServe is the production mode: PostgreSQL persistence, Redis cache and
// bus, and a single-writer lease so only one instance serves a pool.
func (a *App) runServe(ctx context.Context) error {
	deps, err := a.wire(ctx)
	if err != nil {
		return err
	}

	// The lease has no TTL: it is held until released on shutdown, and the
	// token-checked unlock means only the holder can clear it. A crashed
	// holder's lease must be removed by an operator.
	unlock, err := deps.Locks.Acquire(ctx, "pool:"+a.cfg.Pool.ID, 0)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			return fmt.Errorf("app: pool %q is already being served by another instance: %w", a.cfg.Pool.ID, err)
		}
		return fmt.Errorf("app: acquire pool lease: %w", err)
	}
	a.addCloser("pool lease", unlock)

	sinks := &domain.MultiSink{}
	eng := engine.New(engine.Config{
		Admin: a.cfg.Admin.Identity,
		Seed: engine.SeedAsset{
			Symbol:               a.cfg.Pool.SeedSymbol,
			LTVRatio:             a.cfg.Pool.SeedLTVRatio,
			LiquidationThreshold: a.cfg.Pool.SeedLiquidationThreshold,
			PairID:               a.cfg.Pool.SeedPairID,
			InitialPrice:         a.cfg.Pool.SeedInitialPrice,
		},
	}, deps.Vault, sinks, a.logger)

	assets, err := deps.Ledger.LoadAssets(ctx)
	if err != nil {
		return fmt.Errorf("app: load assets: %w", err)
	}
	positions, err := deps.Ledger.LoadPositions(ctx)
	if err != nil {
		return fmt.Errorf("app: load positions: %w", err)
	}
	eng.Restore(assets, positions)
	if len(assets) > 0 {
		a.logger.InfoContext(ctx, "pool restored",
			slog.Int("assets", len(assets)),
			slog.Int("positions", len(positions)),
		)
	}

	// Sinks observe committed transitions; the registrar runs first so a
	// freshly listed asset can take deposits immediately.
	*sinks = append(*sinks,
		registrarSink(deps.Vault, a.logger),
		journalSink(deps.Journal, a.logger),
		snapshotSink(eng, deps.Ledger, a.logger),
		priceMirrorSink(deps.Prices, a.logger),
		busSink(deps.Bus, a.logger),
	)
	if deps.Notifier != nil {
		*sinks = append(*sinks, deps.Notifier)
	}

	curve := a.newCurve()
	hub := ws.NewHub(deps.Bus, a.logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(gctx) })

	if a.cfg.Server.Enabled {
		srv := a.newServer(eng, curve, deps.Journal, hub, deps.Limiter, deps.ArchiveReader)
		g.Go(srv.Start)
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if deps.Archive != nil {
		arch := archive.New(deps.Journal, deps.Archive, a.logger, archive.Config{
			Interval:  a.cfg.Archive.Interval.Duration,
			Retention: a.cfg.Archive.Retention.Duration,
		})
		g.Go(func() error { return arch.Run(gctx) })
	}

	return g.Wait()
}

// runStandalone runs the pool entirely in memory for local development. The
// pool is initialized at startup and nothing survives a restart.
func (a *App) runStandalone(ctx context.Context) error {
	mem := vault.NewMemory()
	mem.RegisterToken(a.cfg.Pool.SeedSymbol)
	journal := memory.NewJournal()

	sinks := &domain.MultiSink{}
	eng := engine.New(engine.Config{
		Admin: a.cfg.Admin.Identity,
		Seed: engine.SeedAsset{
			Symbol:               a.cfg.Pool.SeedSymbol,
			LTVRatio:             a.cfg.Pool.SeedLTVRatio,
			LiquidationThreshold: a.cfg.Pool.SeedLiquidationThreshold,
			PairID:               a.cfg.Pool.SeedPairID,
			InitialPrice:         a.cfg.Pool.SeedInitialPrice,
		},
	}, mem, sinks, a.logger)

	*sinks = append(*sinks,
		domain.EventSinkFunc(func(_ context.Context, ev domain.Event) {
			if ev.Type == domain.EventAssetAdded && ev.Symbol != "" {
				mem.RegisterToken(ev.Symbol)
			}
		}),
		journalSink(journal, a.logger),
	)
	if n := a.buildNotifier(); n != nil {
		*sinks = append(*sinks, n)
	}

	if err := eng.Initialize(ctx, a.cfg.Admin.Identity); err != nil {
		return fmt.Errorf("app: initialize pool: %w", err)
	}

	curve := a.newCurve()

	if !a.cfg.Server.Enabled {
		a.logger.InfoContext(ctx, "standalone pool ready, server disabled")
		<-ctx.Done()
		return ctx.Err()
	}

	srv := a.newServer(eng, curve, journal, nil, nil, nil)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// newCurve builds the utilization curve engine with the seed asset's model
// registered. Additional models are registered through the admin API.
func (a *App) newCurve() *rates.CurveEngine {
	curve := rates.New(a.logger, time.Now)
	curve.Register(a.cfg.Pool.SeedSymbol, a.cfg.Pool.RateBase, a.cfg.Pool.RateSlope1, a.cfg.Pool.RateSlope2)
	return curve
}

// newServer assembles the HTTP handlers and the server around the engine.
// hub, limiter, and archives may be nil; the corresponding features are then
// disabled.
func (a *App) newServer(eng *engine.Engine, curve *rates.CurveEngine, journal domain.JournalStore, hub *ws.Hub, limiter domain.RateLimiter, archives domain.BlobReader) *server.Server {
	handlers := server.Handlers{
		Health:      handler.NewHealthHandler(eng.Initialized, a.logger),
		Assets:      handler.NewAssetHandler(eng, a.logger),
		Positions:   handler.NewPositionHandler(eng, a.logger),
		Liquidation: handler.NewLiquidationHandler(eng, a.logger),
		Events:      handler.NewEventHandler(journal, a.logger),
		Rates:       handler.NewRateHandler(curve, a.logger),
		Admin:       handler.NewAdminHandler(eng, curve, a.cfg.Admin.Identity, a.logger),
	}
	if archives != nil {
		handlers.Archives = handler.NewArchiveHandler(archives, a.logger)
	}
	return server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Admin.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, handlers, hub, limiter, a.logger)
}
