package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianfi/lendcore/internal/domain"
)

// underwaterFixture sets up alice with 1e9 DOGE collateral and 5e7 USDC debt
// (the exact borrow cap at $1/$1), then crashes DOGE 20x so her USDC debt is
// worth exactly the liquidation threshold share of her collateral.
func underwaterFixture(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t)
	f.addUSDC(t)

	const collateral = uint64(1_000_000_000)
	const debt = collateral * 500 / 10_000 // 50_000_000

	f.vault.Fund(usdcSymbol, debt) // pool liquidity for the borrow leg
	f.vault.Credit(alice, dogeSymbol, collateral)
	require.NoError(t, f.engine.Deposit(context.Background(), alice, dogeSymbol, collateral))
	require.NoError(t, f.engine.Borrow(context.Background(), alice, usdcSymbol, debt))

	// DOGE: $1.00 -> $0.05. Collateral value 5e13, debt value 5e13.
	require.NoError(t, f.engine.UpdatePrice(context.Background(), testAdmin, dogeSymbol, 50_000))
	return f
}

func TestHealthFactor(t *testing.T) {
	t.Run("zero debt is fully healthy", func(t *testing.T) {
		f := newFixture(t)
		f.addUSDC(t)
		f.vault.Credit(alice, dogeSymbol, 100)
		require.NoError(t, f.engine.Deposit(context.Background(), alice, dogeSymbol, 100))

		hf, err := f.engine.HealthFactor(alice, usdcSymbol, dogeSymbol)
		require.NoError(t, err)
		assert.Equal(t, domain.HealthyFactor, hf)
	})

	t.Run("debt within ltv allowance is healthy", func(t *testing.T) {
		f := newFixture(t)
		f.addUSDC(t)

		const collateral = uint64(1_000_000_000)
		f.vault.Fund(usdcSymbol, collateral)
		f.vault.Credit(alice, dogeSymbol, collateral)
		require.NoError(t, f.engine.Deposit(context.Background(), alice, dogeSymbol, collateral))
		require.NoError(t, f.engine.Borrow(context.Background(), alice, usdcSymbol, collateral*500/10_000))

		hf, err := f.engine.HealthFactor(alice, usdcSymbol, dogeSymbol)
		require.NoError(t, err)
		assert.Equal(t, domain.HealthyFactor, hf)
	})

	t.Run("underwater position scores below 10000", func(t *testing.T) {
		f := underwaterFixture(t)

		// collateral_value == debt_value, so hf equals the liquidation
		// threshold: 8000.
		hf, err := f.engine.HealthFactor(alice, usdcSymbol, dogeSymbol)
		require.NoError(t, err)
		assert.Equal(t, uint64(8_000), hf)
	})

	t.Run("unknown user", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.engine.HealthFactor(bob, dogeSymbol, dogeSymbol)
		require.ErrorIs(t, err, domain.ErrUserNoPosition)
	})
}

func TestIsLiquidatable(t *testing.T) {
	t.Run("zero debt never liquidatable even with collapsed stale price", func(t *testing.T) {
		f := newFixture(t)
		f.addUSDC(t)
		f.vault.Credit(alice, dogeSymbol, 100)
		require.NoError(t, f.engine.Deposit(context.Background(), alice, dogeSymbol, 100))

		// The zero-debt short-circuit fires before any price read, so
		// even a long-stale price cannot make this fail.
		f.clock.advance(24 * time.Hour)
		ok, err := f.engine.IsLiquidatable(alice, usdcSymbol, dogeSymbol)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("underwater position is liquidatable", func(t *testing.T) {
		f := underwaterFixture(t)
		ok, err := f.engine.IsLiquidatable(alice, usdcSymbol, dogeSymbol)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("stale price on a positive-debt position errors", func(t *testing.T) {
		f := underwaterFixture(t)
		f.clock.advance(301 * time.Second)
		_, err := f.engine.IsLiquidatable(alice, usdcSymbol, dogeSymbol)
		require.ErrorIs(t, err, domain.ErrStalePrice)
	})
}

func TestLiquidate(t *testing.T) {
	t.Run("zero repay amount", func(t *testing.T) {
		f := underwaterFixture(t)
		_, err := f.engine.Liquidate(context.Background(), bob, alice, usdcSymbol, dogeSymbol, 0)
		require.ErrorIs(t, err, domain.ErrInvalidAmount)
	})

	t.Run("healthy position rejected", func(t *testing.T) {
		f := newFixture(t)
		f.addUSDC(t)
		f.vault.Fund(usdcSymbol, 1_000_000)
		f.vault.Credit(alice, dogeSymbol, 1_000_000_000)
		require.NoError(t, f.engine.Deposit(context.Background(), alice, dogeSymbol, 1_000_000_000))
		require.NoError(t, f.engine.Borrow(context.Background(), alice, usdcSymbol, 1_000_000))

		f.vault.Credit(bob, usdcSymbol, 1_000_000)
		_, err := f.engine.Liquidate(context.Background(), bob, alice, usdcSymbol, dogeSymbol, 1_000_000)
		require.ErrorIs(t, err, domain.ErrNotLiquidatable)
	})

	t.Run("repay above outstanding debt rejected", func(t *testing.T) {
		f := underwaterFixture(t)
		f.vault.Credit(bob, usdcSymbol, 60_000_000)
		_, err := f.engine.Liquidate(context.Background(), bob, alice, usdcSymbol, dogeSymbol, 60_000_000)
		require.ErrorIs(t, err, domain.ErrInvalidAmount)
	})

	t.Run("seizure uses the liquidation threshold bonus", func(t *testing.T) {
		f := underwaterFixture(t)
		const repay = uint64(10_000_000)
		f.vault.Credit(bob, usdcSymbol, repay)

		// repay * debt_price * (10000 + 8000) / (coll_price * 10000)
		//   = 1e7 * 1e6 * 18000 / (5e4 * 1e4) = 360_000_000
		seized, err := f.engine.Liquidate(context.Background(), bob, alice, usdcSymbol, dogeSymbol, repay)
		require.NoError(t, err)
		assert.Equal(t, uint64(360_000_000), seized)

		// Exact two-sided decrement.
		debtView, err := f.engine.GetPosition(alice, usdcSymbol)
		require.NoError(t, err)
		assert.Equal(t, uint64(50_000_000-repay), debtView.Debt)

		collView, err := f.engine.GetPosition(alice, dogeSymbol)
		require.NoError(t, err)
		assert.Equal(t, uint64(1_000_000_000-360_000_000), collView.Collateral)

		// Custody legs: bob paid USDC in and received the seized DOGE.
		assert.Equal(t, uint64(0), f.vault.Balance(bob, usdcSymbol))
		assert.Equal(t, uint64(360_000_000), f.vault.Balance(bob, dogeSymbol))
	})

	t.Run("seizure exceeding collateral fails whole", func(t *testing.T) {
		f := underwaterFixture(t)

		// repay 40e6 would seize 1.44e9 > 1e9 collateral.
		const repay = uint64(40_000_000)
		f.vault.Credit(bob, usdcSymbol, repay)
		_, err := f.engine.Liquidate(context.Background(), bob, alice, usdcSymbol, dogeSymbol, repay)
		require.ErrorIs(t, err, domain.ErrInsufficientCollateral)

		// Nothing moved.
		debtView, err := f.engine.GetPosition(alice, usdcSymbol)
		require.NoError(t, err)
		assert.Equal(t, uint64(50_000_000), debtView.Debt)
		assert.Equal(t, repay, f.vault.Balance(bob, usdcSymbol))
	})

	t.Run("liquidator without funds aborts cleanly", func(t *testing.T) {
		f := underwaterFixture(t)
		_, err := f.engine.Liquidate(context.Background(), bob, alice, usdcSymbol, dogeSymbol, 10_000_000)
		require.ErrorIs(t, err, domain.ErrInsufficientBalance)

		debtView, err := f.engine.GetPosition(alice, usdcSymbol)
		require.NoError(t, err)
		assert.Equal(t, uint64(50_000_000), debtView.Debt)
	})

	t.Run("stale price aborts", func(t *testing.T) {
		f := underwaterFixture(t)
		f.clock.advance(301 * time.Second)
		f.vault.Credit(bob, usdcSymbol, 10_000_000)
		_, err := f.engine.Liquidate(context.Background(), bob, alice, usdcSymbol, dogeSymbol, 10_000_000)
		require.ErrorIs(t, err, domain.ErrStalePrice)
	})
}

func TestLiquidationInfoFor(t *testing.T) {
	f := underwaterFixture(t)
	const repay = uint64(10_000_000)

	info, err := f.engine.LiquidationInfoFor(alice, usdcSymbol, dogeSymbol, repay)
	require.NoError(t, err)
	assert.True(t, info.Liquidatable)
	assert.Equal(t, uint64(8_000), info.HealthFactor)

	// The preview applies the flat 500 bp bonus:
	// 1e7 * 1e6 * 10500 / (5e4 * 1e4) = 210_000_000.
	assert.Equal(t, uint64(210_000_000), info.SeizeAmount)

	// The mutation path uses the 8000 bp threshold instead, so preview and
	// execution intentionally disagree until the parameter is unified.
	seized, err := f.engine.Liquidate(context.Background(), bob, alice, usdcSymbol, dogeSymbol, repay)
	require.ErrorIs(t, err, domain.ErrInsufficientBalance) // bob has no USDC yet
	f.vault.Credit(bob, usdcSymbol, repay)
	seized, err = f.engine.Liquidate(context.Background(), bob, alice, usdcSymbol, dogeSymbol, repay)
	require.NoError(t, err)
	assert.Equal(t, uint64(360_000_000), seized)
	assert.NotEqual(t, info.SeizeAmount, seized)
}
