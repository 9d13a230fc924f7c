package engine

import (
	"fmt"

	"github.com/meridianfi/lendcore/internal/domain"
)

// assertFresh rejects a posted price older than the staleness window. Every
// valuation path calls this per asset per operation; freshness is never
// cached across calls.
func assertFresh(cfg *domain.AssetConfig, nowSec int64) error {
	if nowSec-cfg.LastUpdate > domain.PriceStalenessSeconds {
		return fmt.Errorf("engine: price for %s is %ds old: %w",
			cfg.Symbol, nowSec-cfg.LastUpdate, domain.ErrStalePrice)
	}
	return nil
}
