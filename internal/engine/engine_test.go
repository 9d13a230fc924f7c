package engine

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianfi/lendcore/internal/domain"
	"github.com/meridianfi/lendcore/internal/vault"
)

const (
	testAdmin = "admin"
	alice     = "alice"
	bob       = "bob"

	dogeSymbol = "DOGE"
	usdcSymbol = "USDC"

	oneDollar = uint64(1_000_000) // 6 implied decimals
)

// testClock is a manually advanced clock shared by engine and assertions.
type testClock struct {
	t time.Time
}

func (c *testClock) now() time.Time          { return c.t }
func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	engine *Engine
	vault  *vault.Memory
	clock  *testClock
	events []domain.Event
}

// newFixture builds an initialized engine with the DOGE seed asset, a memory
// vault knowing DOGE and USDC, and an event-recording sink.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := &testClock{t: time.Unix(1_700_000_000, 0)}
	v := vault.NewMemory()
	v.RegisterToken(dogeSymbol)
	v.RegisterToken(usdcSymbol)

	f := &fixture{vault: v, clock: clock}
	sink := domain.EventSinkFunc(func(_ context.Context, ev domain.Event) {
		f.events = append(f.events, ev)
	})

	f.engine = New(Config{
		Admin: testAdmin,
		Seed: SeedAsset{
			Symbol:               dogeSymbol,
			LTVRatio:             500,
			LiquidationThreshold: 8_000,
			PairID:               "DOGE_USD",
			InitialPrice:         oneDollar,
		},
		Now: clock.now,
	}, v, sink, slog.Default())

	require.NoError(t, f.engine.Initialize(context.Background(), testAdmin))
	return f
}

func (f *fixture) addUSDC(t *testing.T) {
	t.Helper()
	require.NoError(t, f.engine.AddAsset(context.Background(),
		testAdmin, usdcSymbol, 500, 8_000, "USDC_USD", oneDollar))
}

func TestInitialize(t *testing.T) {
	t.Run("unauthorized caller", func(t *testing.T) {
		clock := &testClock{t: time.Unix(1_700_000_000, 0)}
		e := New(Config{Admin: testAdmin, Now: clock.now}, vault.NewMemory(), nil, slog.Default())
		err := e.Initialize(context.Background(), "mallory")
		require.ErrorIs(t, err, domain.ErrUnauthorized)
		assert.False(t, e.Initialized())
	})

	t.Run("second call fails", func(t *testing.T) {
		f := newFixture(t)
		err := f.engine.Initialize(context.Background(), testAdmin)
		require.ErrorIs(t, err, domain.ErrAlreadyInitialized)
	})

	t.Run("seed asset registered", func(t *testing.T) {
		f := newFixture(t)
		cfg, err := f.engine.GetAsset(dogeSymbol)
		require.NoError(t, err)
		assert.Equal(t, uint64(500), cfg.LTVRatio)
		assert.Equal(t, uint64(8_000), cfg.LiquidationThreshold)
		assert.Equal(t, oneDollar, cfg.LastPrice)
		assert.Equal(t, []string{dogeSymbol}, f.engine.ActiveAssets())
	})

	t.Run("operations before initialize fail", func(t *testing.T) {
		clock := &testClock{t: time.Unix(1_700_000_000, 0)}
		e := New(Config{Admin: testAdmin, Now: clock.now}, vault.NewMemory(), nil, slog.Default())
		err := e.Deposit(context.Background(), alice, dogeSymbol, 1)
		require.ErrorIs(t, err, domain.ErrNotInitialized)
	})
}

func TestAddAsset(t *testing.T) {
	t.Run("unauthorized", func(t *testing.T) {
		f := newFixture(t)
		err := f.engine.AddAsset(context.Background(), alice, usdcSymbol, 500, 8_000, "USDC_USD", oneDollar)
		require.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("idempotent re-registration", func(t *testing.T) {
		f := newFixture(t)
		f.addUSDC(t)

		// A second registration with different parameters is a no-op.
		require.NoError(t, f.engine.AddAsset(context.Background(),
			testAdmin, usdcSymbol, 9_999, 1, "OTHER_PAIR", 42))

		cfg, err := f.engine.GetAsset(usdcSymbol)
		require.NoError(t, err)
		assert.Equal(t, uint64(500), cfg.LTVRatio)
		assert.Equal(t, uint64(8_000), cfg.LiquidationThreshold)
		assert.Equal(t, "USDC_USD", cfg.PairID)
		assert.Equal(t, oneDollar, cfg.LastPrice)

		// Active list holds the symbol exactly once.
		assert.Equal(t, []string{dogeSymbol, usdcSymbol}, f.engine.ActiveAssets())
	})
}

func TestUpdatePrice(t *testing.T) {
	t.Run("unauthorized", func(t *testing.T) {
		f := newFixture(t)
		err := f.engine.UpdatePrice(context.Background(), alice, dogeSymbol, 2*oneDollar)
		require.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("price and timestamp set together", func(t *testing.T) {
		f := newFixture(t)
		f.clock.advance(100 * time.Second)
		require.NoError(t, f.engine.UpdatePrice(context.Background(), testAdmin, dogeSymbol, 2*oneDollar))

		cfg, err := f.engine.GetAsset(dogeSymbol)
		require.NoError(t, err)
		assert.Equal(t, 2*oneDollar, cfg.LastPrice)
		assert.Equal(t, f.clock.now().Unix(), cfg.LastUpdate)
	})

	t.Run("unknown symbol is a silent no-op", func(t *testing.T) {
		f := newFixture(t)
		before := len(f.events)
		require.NoError(t, f.engine.UpdatePrice(context.Background(), testAdmin, "SHIB", oneDollar))
		assert.Len(t, f.events, before)
	})
}

func TestAssetDetails(t *testing.T) {
	f := newFixture(t)

	price, ltv, threshold, err := f.engine.AssetDetails(dogeSymbol)
	require.NoError(t, err)
	assert.Equal(t, oneDollar, price)
	assert.Equal(t, uint64(500), ltv)
	assert.Equal(t, uint64(8_000), threshold)

	_, _, _, err = f.engine.AssetDetails("SHIB")
	require.ErrorIs(t, err, domain.ErrAssetNotSupported)

	// 300s old is still fresh, 301s is not.
	f.clock.advance(300 * time.Second)
	_, _, _, err = f.engine.AssetDetails(dogeSymbol)
	require.NoError(t, err)

	f.clock.advance(1 * time.Second)
	_, _, _, err = f.engine.AssetDetails(dogeSymbol)
	require.ErrorIs(t, err, domain.ErrStalePrice)
}

func TestDeposit(t *testing.T) {
	t.Run("zero amount", func(t *testing.T) {
		f := newFixture(t)
		err := f.engine.Deposit(context.Background(), alice, dogeSymbol, 0)
		require.ErrorIs(t, err, domain.ErrInvalidAmount)
	})

	t.Run("unknown asset", func(t *testing.T) {
		f := newFixture(t)
		err := f.engine.Deposit(context.Background(), alice, "SHIB", 100)
		require.ErrorIs(t, err, domain.ErrAssetNotSupported)
	})

	t.Run("insufficient external balance leaves ledger unchanged", func(t *testing.T) {
		f := newFixture(t)
		err := f.engine.Deposit(context.Background(), alice, dogeSymbol, 100)
		require.ErrorIs(t, err, domain.ErrInsufficientBalance)

		_, err = f.engine.GetPosition(alice, dogeSymbol)
		require.ErrorIs(t, err, domain.ErrUserNoPosition)
	})

	t.Run("funds move into custody and collateral accumulates", func(t *testing.T) {
		f := newFixture(t)
		f.vault.Credit(alice, dogeSymbol, 1_000)

		require.NoError(t, f.engine.Deposit(context.Background(), alice, dogeSymbol, 600))
		require.NoError(t, f.engine.Deposit(context.Background(), alice, dogeSymbol, 400))

		view, err := f.engine.GetPosition(alice, dogeSymbol)
		require.NoError(t, err)
		assert.Equal(t, uint64(1_000), view.Collateral)
		assert.Equal(t, uint64(0), view.Debt)
		assert.Equal(t, uint64(0), f.vault.Balance(alice, dogeSymbol))
		assert.Equal(t, uint64(1_000), f.vault.Held(dogeSymbol))
	})
}

func TestGetPosition(t *testing.T) {
	f := newFixture(t)
	f.addUSDC(t)
	f.vault.Credit(alice, dogeSymbol, 100)
	require.NoError(t, f.engine.Deposit(context.Background(), alice, dogeSymbol, 100))

	// Untouched asset reads as zeroes, never fails.
	view, err := f.engine.GetPosition(alice, usdcSymbol)
	require.NoError(t, err)
	assert.Equal(t, domain.AccountView{}, view)

	// A user with no record at all is an error.
	_, err = f.engine.GetPosition(bob, dogeSymbol)
	require.ErrorIs(t, err, domain.ErrUserNoPosition)
}

func TestBorrow(t *testing.T) {
	const collateral = uint64(1_000_000_000)

	deposit := func(t *testing.T, f *fixture) {
		t.Helper()
		f.vault.Credit(alice, dogeSymbol, collateral)
		require.NoError(t, f.engine.Deposit(context.Background(), alice, dogeSymbol, collateral))
	}

	t.Run("zero amount", func(t *testing.T) {
		f := newFixture(t)
		deposit(t, f)
		err := f.engine.Borrow(context.Background(), alice, dogeSymbol, 0)
		require.ErrorIs(t, err, domain.ErrInvalidAmount)
	})

	t.Run("no position", func(t *testing.T) {
		f := newFixture(t)
		err := f.engine.Borrow(context.Background(), bob, dogeSymbol, 100)
		require.ErrorIs(t, err, domain.ErrUserNoPosition)
	})

	t.Run("limit boundary is exact", func(t *testing.T) {
		f := newFixture(t)
		deposit(t, f)

		// debt*10000 == collateral*500 exactly at 5% of collateral value.
		const atLimit = collateral * 500 / 10_000

		err := f.engine.Borrow(context.Background(), alice, dogeSymbol, atLimit+1)
		require.ErrorIs(t, err, domain.ErrBorrowLimitExceeded)

		require.NoError(t, f.engine.Borrow(context.Background(), alice, dogeSymbol, atLimit))

		view, err := f.engine.GetPosition(alice, dogeSymbol)
		require.NoError(t, err)
		assert.Equal(t, atLimit, view.Debt)
		assert.Equal(t, atLimit, f.vault.Balance(alice, dogeSymbol))

		// The cap now binds: even one more unit is over.
		err = f.engine.Borrow(context.Background(), alice, dogeSymbol, 1)
		require.ErrorIs(t, err, domain.ErrBorrowLimitExceeded)
	})

	t.Run("aggregates across all active assets", func(t *testing.T) {
		f := newFixture(t)
		f.addUSDC(t)
		deposit(t, f)

		// Half the allowance as USDC debt, the rest as DOGE debt.
		const half = collateral * 500 / 10_000 / 2
		f.vault.Fund(usdcSymbol, collateral)
		require.NoError(t, f.engine.Borrow(context.Background(), alice, usdcSymbol, half))
		require.NoError(t, f.engine.Borrow(context.Background(), alice, dogeSymbol, half))

		err := f.engine.Borrow(context.Background(), alice, usdcSymbol, 1)
		require.ErrorIs(t, err, domain.ErrBorrowLimitExceeded)
	})

	t.Run("stale price rejected", func(t *testing.T) {
		f := newFixture(t)
		deposit(t, f)
		f.clock.advance(301 * time.Second)

		err := f.engine.Borrow(context.Background(), alice, dogeSymbol, 100)
		require.ErrorIs(t, err, domain.ErrStalePrice)

		// A fresh price post clears the gate.
		require.NoError(t, f.engine.UpdatePrice(context.Background(), testAdmin, dogeSymbol, oneDollar))
		require.NoError(t, f.engine.Borrow(context.Background(), alice, dogeSymbol, 100))
	})

	t.Run("failed borrow leaves ledger unchanged", func(t *testing.T) {
		f := newFixture(t)
		deposit(t, f)

		err := f.engine.Borrow(context.Background(), alice, dogeSymbol, collateral)
		require.ErrorIs(t, err, domain.ErrBorrowLimitExceeded)

		view, err := f.engine.GetPosition(alice, dogeSymbol)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), view.Debt)
		assert.Equal(t, uint64(0), f.vault.Balance(alice, dogeSymbol))
	})
}

func TestEventsEmitted(t *testing.T) {
	f := newFixture(t)
	f.vault.Credit(alice, dogeSymbol, 1_000)
	require.NoError(t, f.engine.Deposit(context.Background(), alice, dogeSymbol, 1_000))

	var types []domain.EventType
	for _, ev := range f.events {
		types = append(types, ev.Type)
		assert.NotEmpty(t, ev.ID)
		assert.False(t, ev.At.IsZero())
	}
	assert.Equal(t, []domain.EventType{
		domain.EventPoolInitialized,
		domain.EventAssetAdded,
		domain.EventDeposit,
	}, types)
}
