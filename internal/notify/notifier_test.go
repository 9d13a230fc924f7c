package notify

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianfi/lendcore/internal/domain"
)

type recordingSender struct {
	titles   []string
	messages []string
	err      error
}

func (r *recordingSender) Send(ctx context.Context, title, message string) error {
	if r.err != nil {
		return r.err
	}
	r.titles = append(r.titles, title)
	r.messages = append(r.messages, message)
	return nil
}

func (r *recordingSender) Name() string { return "recording" }

func TestNotifierFiltering(t *testing.T) {
	sender := &recordingSender{}
	n := NewNotifier([]Sender{sender}, []string{"liquidation"}, slog.Default())

	n.Publish(context.Background(), domain.Event{Type: domain.EventDeposit, User: "alice"})
	assert.Empty(t, sender.titles)

	n.Publish(context.Background(), domain.Event{
		Type:             domain.EventLiquidation,
		User:             "alice",
		Caller:           "bob",
		Symbol:           "USDC",
		Amount:           10_000_000,
		CollateralSymbol: "DOGE",
		SeizedAmount:     360_000_000,
	})
	require.Len(t, sender.titles, 1)
	assert.Equal(t, "Liquidation", sender.titles[0])
	assert.Contains(t, sender.messages[0], "seized 360000000 DOGE")
}

func TestNotifierEmptyFilterAllowsAll(t *testing.T) {
	sender := &recordingSender{}
	n := NewNotifier([]Sender{sender}, nil, slog.Default())

	n.Publish(context.Background(), domain.Event{Type: domain.EventPriceUpdated, Symbol: "DOGE", Price: 1_000_000})
	require.Len(t, sender.titles, 1)
	assert.Equal(t, "Price updated", sender.titles[0])
	assert.Contains(t, sender.messages[0], "$1")
}

func TestNotifierSenderFailureDoesNotBlockOthers(t *testing.T) {
	failing := &recordingSender{err: assert.AnError}
	working := &recordingSender{}
	n := NewNotifier([]Sender{failing, working}, nil, slog.Default())

	n.Publish(context.Background(), domain.Event{Type: domain.EventBorrow, User: "alice", Symbol: "USDC", Amount: 5})
	require.Len(t, working.titles, 1)
	assert.Equal(t, "Borrow executed", working.titles[0])
}
