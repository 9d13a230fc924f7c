// Package engine implements the lending pool accounting core: the asset
// registry, the per-user position ledger, and the liquidation path. One
// Engine owns one pool; every operation runs read-validate-mutate under a
// single mutex so a failed precondition never leaves partial state behind.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meridianfi/lendcore/internal/domain"
)

// SeedAsset is the one asset pre-registered when the pool is initialized.
type SeedAsset struct {
	Symbol               string
	LTVRatio             uint64
	LiquidationThreshold uint64
	PairID               string
	InitialPrice         uint64
}

// Config carries the static parameters of an Engine.
type Config struct {
	// Admin is the only identity allowed to initialize the pool, register
	// assets, and post prices.
	Admin string

	// Seed is registered by Initialize.
	Seed SeedAsset

	// Now overrides the clock, for tests. Defaults to time.Now.
	Now func() time.Time
}

// Engine is the single-writer lending pool. Custody transfers happen inside
// the critical section before any mutation; events are published after the
// lock is released.
type Engine struct {
	mu sync.Mutex

	admin       string
	seed        SeedAsset
	initialized bool

	assets       map[string]*domain.AssetConfig
	activeAssets []string // registration order, bounds aggregation
	positions    map[string]*domain.Position

	custody domain.Custody
	sink    domain.EventSink
	logger  *slog.Logger
	now     func() time.Time
}

// New creates an uninitialized Engine. Initialize (or Restore) must be called
// before any ledger operation.
func New(cfg Config, custody domain.Custody, sink domain.EventSink, logger *slog.Logger) *Engine {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		admin:     cfg.Admin,
		seed:      cfg.Seed,
		assets:    make(map[string]*domain.AssetConfig),
		positions: make(map[string]*domain.Position),
		custody:   custody,
		sink:      sink,
		logger:    logger.With(slog.String("component", "engine")),
		now:       now,
	}
}

// Initialize creates the pool and registers the seed asset. Only the
// configured admin may call it, and only once.
func (e *Engine) Initialize(ctx context.Context, caller string) error {
	e.mu.Lock()
	if err := e.authorize(caller); err != nil {
		e.mu.Unlock()
		return err
	}
	if e.initialized {
		e.mu.Unlock()
		return domain.ErrAlreadyInitialized
	}
	e.initialized = true
	nowSec := e.now().Unix()
	e.addAssetLocked(domain.AssetConfig{
		Symbol:               e.seed.Symbol,
		LTVRatio:             e.seed.LTVRatio,
		LiquidationThreshold: e.seed.LiquidationThreshold,
		Active:               true,
		PairID:               e.seed.PairID,
		LastPrice:            e.seed.InitialPrice,
		LastUpdate:           nowSec,
	})
	e.mu.Unlock()

	e.logger.InfoContext(ctx, "pool initialized",
		slog.String("admin", caller),
		slog.String("seed_asset", e.seed.Symbol),
	)
	e.emit(ctx, domain.Event{Type: domain.EventPoolInitialized, Caller: caller})
	e.emit(ctx, domain.Event{
		Type:   domain.EventAssetAdded,
		Caller: caller,
		Symbol: e.seed.Symbol,
		Price:  e.seed.InitialPrice,
	})
	return nil
}

// Restore loads a previously persisted pool snapshot. It is called once at
// startup, before the engine is shared, and marks the pool initialized when
// the snapshot contains at least one asset.
func (e *Engine) Restore(assets []domain.AssetConfig, positions []domain.Position) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range assets {
		cfg := assets[i]
		e.addAssetLocked(cfg)
	}
	for i := range positions {
		pos := positions[i]
		e.positions[pos.User] = pos.Clone()
	}
	if len(e.assets) > 0 {
		e.initialized = true
	}
}

// Initialized reports whether the pool has been created.
func (e *Engine) Initialized() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initialized
}

// SnapshotAsset returns a copy of the named asset config, if registered.
func (e *Engine) SnapshotAsset(symbol string) (domain.AssetConfig, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cfg, ok := e.assets[symbol]
	if !ok {
		return domain.AssetConfig{}, false
	}
	return *cfg, true
}

// SnapshotPosition returns a deep copy of the named user's position, if any.
func (e *Engine) SnapshotPosition(user string) (domain.Position, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	pos, ok := e.positions[user]
	if !ok {
		return domain.Position{}, false
	}
	return *pos.Clone(), true
}

// ActiveAssets returns the registered asset symbols in registration order.
func (e *Engine) ActiveAssets() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.activeAssets))
	copy(out, e.activeAssets)
	return out
}

// authorize checks the caller against the configured admin identity.
func (e *Engine) authorize(caller string) error {
	if caller != e.admin {
		return fmt.Errorf("engine: caller %q: %w", caller, domain.ErrUnauthorized)
	}
	return nil
}

// requireInitLocked guards ledger operations against an uncreated pool.
func (e *Engine) requireInitLocked() error {
	if !e.initialized {
		return domain.ErrNotInitialized
	}
	return nil
}

// emit publishes an event to the sink, stamping ID and time. Called outside
// the critical section only.
func (e *Engine) emit(ctx context.Context, ev domain.Event) {
	if e.sink == nil {
		return
	}
	ev.ID = uuid.New().String()
	ev.At = e.now().UTC()
	e.sink.Publish(ctx, ev)
}
