package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/meridianfi/lendcore/internal/domain"
)

// addAssetLocked inserts an asset config, appending to the active list on
// first insertion. Re-registration of a known symbol is a no-op, never an
// error, so the active list holds each symbol exactly once.
func (e *Engine) addAssetLocked(cfg domain.AssetConfig) bool {
	if _, ok := e.assets[cfg.Symbol]; ok {
		return false
	}
	c := cfg
	e.assets[cfg.Symbol] = &c
	e.activeAssets = append(e.activeAssets, cfg.Symbol)
	return true
}

// AddAsset registers a new supported asset with its risk parameters and an
// initial price. Admin only. Idempotent: a second call with the same symbol
// leaves the first registration untouched.
func (e *Engine) AddAsset(ctx context.Context, caller, symbol string, ltvRatio, liquidationThreshold uint64, pairID string, initialPrice uint64) error {
	e.mu.Lock()
	if err := e.authorize(caller); err != nil {
		e.mu.Unlock()
		return err
	}
	if err := e.requireInitLocked(); err != nil {
		e.mu.Unlock()
		return err
	}
	inserted := e.addAssetLocked(domain.AssetConfig{
		Symbol:               symbol,
		LTVRatio:             ltvRatio,
		LiquidationThreshold: liquidationThreshold,
		Active:               true,
		PairID:               pairID,
		LastPrice:            initialPrice,
		LastUpdate:           e.now().Unix(),
	})
	e.mu.Unlock()

	if !inserted {
		return nil
	}
	e.logger.InfoContext(ctx, "asset registered",
		slog.String("symbol", symbol),
		slog.Uint64("ltv_bps", ltvRatio),
		slog.Uint64("liquidation_threshold_bps", liquidationThreshold),
	)
	e.emit(ctx, domain.Event{
		Type:   domain.EventAssetAdded,
		Caller: caller,
		Symbol: symbol,
		Price:  initialPrice,
	})
	return nil
}

// UpdatePrice posts a new oracle price for the symbol, stamping the update
// time in the same write. Admin only. An unknown symbol is silently ignored
// so one bad symbol in a price batch does not fail the whole feed.
func (e *Engine) UpdatePrice(ctx context.Context, caller, symbol string, price uint64) error {
	e.mu.Lock()
	if err := e.authorize(caller); err != nil {
		e.mu.Unlock()
		return err
	}
	if err := e.requireInitLocked(); err != nil {
		e.mu.Unlock()
		return err
	}
	cfg, ok := e.assets[symbol]
	if !ok {
		e.mu.Unlock()
		e.logger.DebugContext(ctx, "price update for unknown asset ignored",
			slog.String("symbol", symbol),
		)
		return nil
	}
	cfg.LastPrice = price
	cfg.LastUpdate = e.now().Unix()
	e.mu.Unlock()

	e.emit(ctx, domain.Event{
		Type:   domain.EventPriceUpdated,
		Caller: caller,
		Symbol: symbol,
		Price:  price,
	})
	return nil
}

// GetAsset returns a copy of the asset's config.
func (e *Engine) GetAsset(symbol string) (domain.AssetConfig, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireInitLocked(); err != nil {
		return domain.AssetConfig{}, err
	}
	cfg, ok := e.assets[symbol]
	if !ok {
		return domain.AssetConfig{}, fmt.Errorf("engine: asset %q: %w", symbol, domain.ErrAssetNotSupported)
	}
	return *cfg, nil
}

// AssetDetails returns the asset's current price and risk parameters,
// rejecting a stale price.
func (e *Engine) AssetDetails(symbol string) (price, ltvRatio, liquidationThreshold uint64, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireInitLocked(); err != nil {
		return 0, 0, 0, err
	}
	cfg, ok := e.assets[symbol]
	if !ok {
		return 0, 0, 0, fmt.Errorf("engine: asset %q: %w", symbol, domain.ErrAssetNotSupported)
	}
	if err := assertFresh(cfg, e.now().Unix()); err != nil {
		return 0, 0, 0, err
	}
	return cfg.LastPrice, cfg.LTVRatio, cfg.LiquidationThreshold, nil
}
