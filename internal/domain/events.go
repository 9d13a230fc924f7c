package domain

import (
	"context"
	"time"
)

// EventType identifies the kind of ledger event.
type EventType string

const (
	EventPoolInitialized EventType = "pool_initialized"
	EventAssetAdded      EventType = "asset_added"
	EventPriceUpdated    EventType = "price_updated"
	EventDeposit         EventType = "deposit"
	EventBorrow          EventType = "borrow"
	EventLiquidation     EventType = "liquidation"
)

// Event describes one successful state transition of the lending pool. Events
// are emitted after the transaction commits; delivery is best-effort and never
// feeds back into the transactional core.
type Event struct {
	ID     string    `json:"id"`
	Type   EventType `json:"type"`
	User   string    `json:"user,omitempty"`
	Caller string    `json:"caller,omitempty"` // admin or liquidator identity
	Symbol string    `json:"symbol,omitempty"`
	Amount uint64    `json:"amount,omitempty"`
	Price  uint64    `json:"price,omitempty"`

	// Liquidation-specific fields.
	CollateralSymbol string `json:"collateral_symbol,omitempty"`
	SeizedAmount     uint64 `json:"seized_amount,omitempty"`

	At time.Time `json:"at"`
}

// EventSink receives events after a successful state transition. Sinks must
// not block for long; slow delivery is the sink's problem, not the engine's.
type EventSink interface {
	Publish(ctx context.Context, ev Event)
}

// EventSinkFunc adapts a function to the EventSink interface.
type EventSinkFunc func(ctx context.Context, ev Event)

// Publish implements EventSink.
func (f EventSinkFunc) Publish(ctx context.Context, ev Event) { f(ctx, ev) }

// MultiSink fans an event out to several sinks in order.
type MultiSink []EventSink

// Publish implements EventSink.
func (m MultiSink) Publish(ctx context.Context, ev Event) {
	for _, s := range m {
		s.Publish(ctx, ev)
	}
}
