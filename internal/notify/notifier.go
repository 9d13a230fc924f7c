// Package notify turns ledger events into operator alerts. Alerts are
// dispatched to all registered senders (Telegram, Discord) and can be
// filtered by event type so operators receive only what they care about.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/meridianfi/lendcore/internal/domain"
)

// Sender is the interface that each notification channel must implement.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// Notifier is an event sink that formats ledger events into human-readable
// alerts. It maintains a set of allowed event types; events outside the set
// are dropped. Delivery failures are logged and never propagate to the
// caller, since the sink runs after the state transition has committed.
type Notifier struct {
	senders []Sender
	events  map[domain.EventType]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier that delivers to the given senders. Only
// events whose type appears in the events slice are forwarded; an empty
// slice allows every type.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[domain.EventType]bool, len(events))
	for _, e := range events {
		allowed[domain.EventType(strings.TrimSpace(e))] = true
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

var _ domain.EventSink = (*Notifier)(nil)

// Publish implements domain.EventSink.
func (n *Notifier) Publish(ctx context.Context, ev domain.Event) {
	if len(n.events) > 0 && !n.events[ev.Type] {
		n.logger.DebugContext(ctx, "event filtered out",
			slog.String("event", string(ev.Type)),
		)
		return
	}

	title, message := format(ev)
	n.dispatch(ctx, title, message)
}

// dispatch iterates over all senders. A single sender failure does not
// prevent delivery to the remaining senders.
func (n *Notifier) dispatch(ctx context.Context, title, message string) {
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}
}

// format renders an event as an alert title and body.
func format(ev domain.Event) (string, string) {
	switch ev.Type {
	case domain.EventPoolInitialized:
		return "Pool initialized",
			fmt.Sprintf("admin %s brought the pool online", ev.Caller)
	case domain.EventAssetAdded:
		return "Asset listed",
			fmt.Sprintf("%s listed by %s", ev.Symbol, ev.Caller)
	case domain.EventPriceUpdated:
		return "Price updated",
			fmt.Sprintf("%s marked at $%s", ev.Symbol, usd(ev.Price))
	case domain.EventDeposit:
		return "Collateral deposited",
			fmt.Sprintf("%s deposited %d %s", ev.User, ev.Amount, ev.Symbol)
	case domain.EventBorrow:
		return "Borrow executed",
			fmt.Sprintf("%s borrowed %d %s", ev.User, ev.Amount, ev.Symbol)
	case domain.EventLiquidation:
		return "Liquidation",
			fmt.Sprintf("%s liquidated %s: repaid %d %s, seized %d %s",
				ev.Caller, ev.User, ev.Amount, ev.Symbol, ev.SeizedAmount, ev.CollateralSymbol)
	default:
		return string(ev.Type), fmt.Sprintf("event %s", ev.ID)
	}
}

// usd renders a fixed-point price with its six implied decimals.
func usd(price uint64) string {
	return decimal.NewFromUint64(price).Shift(-domain.PriceDecimals).String()
}
