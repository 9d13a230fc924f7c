package rates

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianfi/lendcore/internal/domain"
)

func newEngine(t *testing.T) (*CurveEngine, *time.Time) {
	t.Helper()
	now := time.Unix(1_700_000_000, 0)
	c := New(slog.Default(), func() time.Time { return now })
	// base 200 bp, slope1 1000 bp, slope2 10000 bp
	c.Register("DOGE", 200, 1_000, 10_000)
	return c, &now
}

func TestUpdateRate(t *testing.T) {
	t.Run("unknown symbol", func(t *testing.T) {
		c, _ := newEngine(t)
		_, err := c.UpdateRate("SHIB", 1, 1)
		require.ErrorIs(t, err, domain.ErrAssetNotSupported)
	})

	t.Run("zero supply means zero utilization", func(t *testing.T) {
		c, now := newEngine(t)
		*now = now.Add(time.Second)
		rate, err := c.UpdateRate("DOGE", 500, 0)
		require.NoError(t, err)
		assert.Equal(t, uint64(200), rate)
	})

	t.Run("below the kink uses slope1", func(t *testing.T) {
		c, now := newEngine(t)
		*now = now.Add(time.Second)

		// utilization 50% -> 200 + 5000*1000/10000 = 700 bp
		rate, err := c.UpdateRate("DOGE", 50, 100)
		require.NoError(t, err)
		assert.Equal(t, uint64(700), rate)
	})

	t.Run("at the kink exactly", func(t *testing.T) {
		c, now := newEngine(t)
		*now = now.Add(time.Second)

		// utilization 80% -> 200 + 8000*1000/10000 = 1000 bp
		rate, err := c.UpdateRate("DOGE", 80, 100)
		require.NoError(t, err)
		assert.Equal(t, uint64(1_000), rate)
	})

	t.Run("above the kink adds slope2 on the excess", func(t *testing.T) {
		c, now := newEngine(t)
		*now = now.Add(time.Second)

		// utilization 90% -> 200 + 800 + 1000*10000/10000 = 2000 bp
		rate, err := c.UpdateRate("DOGE", 90, 100)
		require.NoError(t, err)
		assert.Equal(t, uint64(2_000), rate)
	})

	t.Run("recompute gated to once per second", func(t *testing.T) {
		c, now := newEngine(t)
		*now = now.Add(time.Second)

		rate, err := c.UpdateRate("DOGE", 50, 100)
		require.NoError(t, err)
		require.Equal(t, uint64(700), rate)

		// Same second: utilization change is ignored, cached rate returned.
		rate, err = c.UpdateRate("DOGE", 90, 100)
		require.NoError(t, err)
		assert.Equal(t, uint64(700), rate)

		// One second later the new utilization takes effect.
		*now = now.Add(time.Second)
		rate, err = c.UpdateRate("DOGE", 90, 100)
		require.NoError(t, err)
		assert.Equal(t, uint64(2_000), rate)
	})

	t.Run("utilization truncates toward zero", func(t *testing.T) {
		c, now := newEngine(t)
		*now = now.Add(time.Second)

		// 1/3 supply borrowed: utilization 3333 bp (truncated), rate
		// 200 + 3333*1000/10000 = 533 bp (truncated again).
		rate, err := c.UpdateRate("DOGE", 1, 3)
		require.NoError(t, err)
		assert.Equal(t, uint64(533), rate)
	})
}

func TestCurrentRate(t *testing.T) {
	c, now := newEngine(t)

	rate, err := c.CurrentRate("DOGE")
	require.NoError(t, err)
	assert.Equal(t, uint64(200), rate)

	*now = now.Add(time.Second)
	_, err = c.UpdateRate("DOGE", 50, 100)
	require.NoError(t, err)

	rate, err = c.CurrentRate("DOGE")
	require.NoError(t, err)
	assert.Equal(t, uint64(700), rate)

	m, err := c.Model("DOGE")
	require.NoError(t, err)
	assert.Equal(t, uint64(700), m.CurrentRate)
	assert.Equal(t, now.Unix(), m.LastUpdate)
}
