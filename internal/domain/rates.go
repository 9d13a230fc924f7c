package domain

// RateModel holds the parameters and last computed output of the two-segment
// utilization rate curve for one asset. Its lifecycle is independent of the
// lending pool; nothing in the deposit, borrow, or liquidation paths consumes
// CurrentRate today.
type RateModel struct {
	Symbol      string
	BaseRate    uint64 // basis points
	Slope1      uint64 // basis points, below the optimal utilization point
	Slope2      uint64 // basis points, above the optimal utilization point
	CurrentRate uint64 // basis points, derived
	LastUpdate  int64  // unix seconds of the last recomputation
}
