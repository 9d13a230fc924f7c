package domain

// Position tracks one user's per-asset collateral and debt balances, in the
// asset's native smallest unit. Entries are created lazily at zero on the
// first deposit or borrow and never go negative; a subtraction that would
// underflow fails the whole operation instead.
type Position struct {
	User       string
	Collateral map[string]uint64 // asset symbol -> amount
	Debt       map[string]uint64 // asset symbol -> amount
	LastUpdate int64             // unix seconds of the last mutation
}

// NewPosition creates an empty position for the given user.
func NewPosition(user string) *Position {
	return &Position{
		User:       user,
		Collateral: make(map[string]uint64),
		Debt:       make(map[string]uint64),
	}
}

// Clone returns a deep copy, used for snapshotting state outside the
// engine's critical section.
func (p *Position) Clone() *Position {
	cp := &Position{
		User:       p.User,
		Collateral: make(map[string]uint64, len(p.Collateral)),
		Debt:       make(map[string]uint64, len(p.Debt)),
		LastUpdate: p.LastUpdate,
	}
	for sym, amt := range p.Collateral {
		cp.Collateral[sym] = amt
	}
	for sym, amt := range p.Debt {
		cp.Debt[sym] = amt
	}
	return cp
}

// AccountView is the per-asset (collateral, debt) pair returned by position
// queries. An asset the user never touched reads as zeroes.
type AccountView struct {
	Collateral uint64 `json:"collateral"`
	Debt       uint64 `json:"debt"`
}
