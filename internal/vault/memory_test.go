package vault

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianfi/lendcore/internal/domain"
)

func TestMemoryHold(t *testing.T) {
	ctx := context.Background()
	v := NewMemory()
	v.RegisterToken("DOGE")
	v.Credit("alice", "DOGE", 100)

	err := v.Hold(ctx, "alice", "SHIB", 10)
	require.ErrorIs(t, err, domain.ErrTokenNotRegistered)

	err = v.Hold(ctx, "alice", "DOGE", 101)
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)
	assert.Equal(t, uint64(100), v.Balance("alice", "DOGE"))

	require.NoError(t, v.Hold(ctx, "alice", "DOGE", 60))
	assert.Equal(t, uint64(40), v.Balance("alice", "DOGE"))
	assert.Equal(t, uint64(60), v.Held("DOGE"))
}

func TestMemoryRelease(t *testing.T) {
	ctx := context.Background()
	v := NewMemory()
	v.RegisterToken("DOGE")
	v.Fund("DOGE", 50)

	err := v.Release(ctx, "DOGE", 51, "bob")
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)

	require.NoError(t, v.Release(ctx, "DOGE", 50, "bob"))
	assert.Equal(t, uint64(50), v.Balance("bob", "DOGE"))
	assert.Equal(t, uint64(0), v.Held("DOGE"))
}

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	v := NewMemory()
	v.RegisterToken("DOGE")
	v.Credit("alice", "DOGE", 1_000)

	require.NoError(t, v.Hold(ctx, "alice", "DOGE", 1_000))
	require.NoError(t, v.Release(ctx, "DOGE", 400, "alice"))

	assert.Equal(t, uint64(400), v.Balance("alice", "DOGE"))
	assert.Equal(t, uint64(600), v.Held("DOGE"))
}
