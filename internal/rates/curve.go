// Package rates implements the utilization-based interest rate curve. It is a
// standalone component: nothing in the deposit, borrow, or liquidation paths
// consumes its output today, so no interest accrues on debt balances. Wiring
// it in is an explicit product decision, not an implementation detail.
package rates

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/holiman/uint256"

	"github.com/meridianfi/lendcore/internal/domain"
)

// OptimalUtilizationBps is the kink point of the two-segment curve: below it
// slope1 applies, above it slope2 applies to the excess.
const OptimalUtilizationBps uint64 = 8_000

// minRecomputeInterval gates recomputation; updates arriving within the same
// second return the cached rate unchanged.
const minRecomputeInterval int64 = 1

// CurveEngine holds one rate model per asset symbol.
type CurveEngine struct {
	mu     sync.Mutex
	models map[string]*domain.RateModel
	logger *slog.Logger
	now    func() time.Time
}

// New creates an empty CurveEngine. nowFn overrides the clock for tests; nil
// means time.Now.
func New(logger *slog.Logger, nowFn func() time.Time) *CurveEngine {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &CurveEngine{
		models: make(map[string]*domain.RateModel),
		logger: logger.With(slog.String("component", "rates")),
		now:    nowFn,
	}
}

// Register installs a rate model for the symbol. The initial rate is the base
// rate. Re-registering replaces the model.
func (c *CurveEngine) Register(symbol string, baseRate, slope1, slope2 uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.models[symbol] = &domain.RateModel{
		Symbol:      symbol,
		BaseRate:    baseRate,
		Slope1:      slope1,
		Slope2:      slope2,
		CurrentRate: baseRate,
		LastUpdate:  c.now().Unix(),
	}
}

// UpdateRate recomputes the symbol's borrow rate from pool utilization:
//
//	utilization = total_borrows * 10000 / total_supply   (0 when supply is 0)
//	below the kink: rate = base + utilization*slope1/10000
//	above the kink: rate = base + optimal*slope1/10000 + (utilization-optimal)*slope2/10000
//
// Calls within one second of the previous recomputation return the cached
// rate unchanged.
func (c *CurveEngine) UpdateRate(symbol string, totalBorrows, totalSupply uint64) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.models[symbol]
	if !ok {
		return 0, fmt.Errorf("rates: model for %q: %w", symbol, domain.ErrAssetNotSupported)
	}

	nowSec := c.now().Unix()
	if nowSec-m.LastUpdate < minRecomputeInterval {
		return m.CurrentRate, nil
	}

	var utilization uint64
	if totalSupply > 0 {
		utilization = mulDiv(totalBorrows, domain.BasisPoints, totalSupply)
	}

	var rate uint64
	if utilization <= OptimalUtilizationBps {
		rate = m.BaseRate + mulDiv(utilization, m.Slope1, domain.BasisPoints)
	} else {
		rate = m.BaseRate +
			mulDiv(OptimalUtilizationBps, m.Slope1, domain.BasisPoints) +
			mulDiv(utilization-OptimalUtilizationBps, m.Slope2, domain.BasisPoints)
	}

	m.CurrentRate = rate
	m.LastUpdate = nowSec
	c.logger.Debug("rate updated",
		slog.String("symbol", symbol),
		slog.Uint64("utilization_bps", utilization),
		slog.Uint64("rate_bps", rate),
	)
	return rate, nil
}

// CurrentRate returns the cached rate for the symbol.
func (c *CurveEngine) CurrentRate(symbol string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.models[symbol]
	if !ok {
		return 0, fmt.Errorf("rates: model for %q: %w", symbol, domain.ErrAssetNotSupported)
	}
	return m.CurrentRate, nil
}

// Model returns a copy of the symbol's rate model.
func (c *CurveEngine) Model(symbol string) (domain.RateModel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.models[symbol]
	if !ok {
		return domain.RateModel{}, fmt.Errorf("rates: model for %q: %w", symbol, domain.ErrAssetNotSupported)
	}
	return *m, nil
}

// mulDiv computes a*b/c with 128-bit headroom, truncating toward zero.
func mulDiv(a, b, c uint64) uint64 {
	n := uint256.NewInt(a)
	n.Mul(n, uint256.NewInt(b))
	n.Div(n, uint256.NewInt(c))
	return n.Uint64()
}
