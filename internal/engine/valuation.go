package engine

import (
	"github.com/holiman/uint256"

	"github.com/meridianfi/lendcore/internal/domain"
)

// value computes amount * price with 128-bit headroom. Amounts are native
// smallest units; prices carry six implied decimals, so the product is a
// fixed-point value in price units.
func value(amount, price uint64) *uint256.Int {
	v := uint256.NewInt(amount)
	return v.Mul(v, uint256.NewInt(price))
}

// accountValuesLocked aggregates the user's collateral and debt value across
// every active asset present in either of the position's maps, re-validating
// price freshness for each asset touched. Iteration follows registration
// order so the walk is bounded by the active asset list, not map order.
func (e *Engine) accountValuesLocked(pos *domain.Position, nowSec int64) (collateralValue, debtValue *uint256.Int, err error) {
	collateralValue = uint256.NewInt(0)
	debtValue = uint256.NewInt(0)

	for _, symbol := range e.activeAssets {
		collAmt, hasColl := pos.Collateral[symbol]
		debtAmt, hasDebt := pos.Debt[symbol]
		if !hasColl && !hasDebt {
			continue
		}
		cfg := e.assets[symbol]
		if err := assertFresh(cfg, nowSec); err != nil {
			return nil, nil, err
		}
		if collAmt > 0 {
			collateralValue.Add(collateralValue, value(collAmt, cfg.LastPrice))
		}
		if debtAmt > 0 {
			debtValue.Add(debtValue, value(debtAmt, cfg.LastPrice))
		}
	}
	return collateralValue, debtValue, nil
}

// withinBorrowLimit applies the protocol LTV cap:
// newDebtValue * BasisPoints <= collateralValue * MaxLTVBps.
// Integer comparison over 256-bit products, truncation-free, so boundary
// cases resolve exactly.
func withinBorrowLimit(newDebtValue, collateralValue *uint256.Int) bool {
	lhs := new(uint256.Int).Mul(newDebtValue, uint256.NewInt(domain.BasisPoints))
	rhs := new(uint256.Int).Mul(collateralValue, uint256.NewInt(domain.MaxLTVBps))
	return lhs.Cmp(rhs) <= 0
}
