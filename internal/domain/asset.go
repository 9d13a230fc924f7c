// Package domain defines the pure types, sentinel errors, and collaborator
// interfaces shared by the lending engine and its infrastructure adapters.
// Nothing in this package performs I/O.
package domain

// Protocol-wide fixed-point parameters. Prices carry six implied decimal
// places; all ratios are expressed in basis points where 10000 = 100%.
const (
	BasisPoints uint64 = 10_000

	// MaxLTVBps caps aggregate debt value against aggregate collateral
	// value at borrow time: new_debt * BasisPoints <= collateral * MaxLTVBps.
	MaxLTVBps uint64 = 500

	// LiquidationBonusBps is the flat bonus used by the read-only
	// liquidation preview. The mutation path uses the per-asset
	// liquidation threshold instead; the two deliberately disagree until
	// the economic parameter is settled (see DESIGN.md).
	LiquidationBonusBps uint64 = 500

	// PriceDecimals is the number of implied decimals in posted prices,
	// so a price of 1_000_000 is $1.00.
	PriceDecimals = 6

	// PriceStalenessSeconds is the maximum age of a posted price before
	// valuation rejects it.
	PriceStalenessSeconds int64 = 300

	// HealthyFactor is the health-factor sentinel for a safe position.
	// Anything below it is eligible for liquidation.
	HealthyFactor uint64 = 10_000
)

// AssetConfig holds the risk parameters and last-known oracle price for one
// supported asset. LastPrice and LastUpdate are only ever written together by
// an authorized price update.
type AssetConfig struct {
	Symbol               string
	LTVRatio             uint64 // basis points
	LiquidationThreshold uint64 // basis points
	Active               bool
	PairID               string // oracle pair identifier, e.g. "DOGE_USD"
	LastPrice            uint64 // fixed point, PriceDecimals implied decimals
	LastUpdate           int64  // unix seconds of the last price post
}
