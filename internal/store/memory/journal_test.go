package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianfi/lendcore/internal/domain"
)

func seedJournal(t *testing.T) *Journal {
	t.Helper()
	j := NewJournal()
	base := time.Unix(1_700_000_000, 0).UTC()
	for i := 0; i < 5; i++ {
		require.NoError(t, j.Append(context.Background(), domain.Event{
			ID:   string(rune('a' + i)),
			Type: domain.EventDeposit,
			At:   base.Add(time.Duration(i) * time.Minute),
		}))
	}
	return j
}

func TestListNewestFirst(t *testing.T) {
	j := seedJournal(t)

	events, err := j.List(context.Background(), domain.ListOpts{Limit: 3})
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "e", events[0].ID)
	assert.Equal(t, "d", events[1].ID)
	assert.Equal(t, "c", events[2].ID)

	events, err = j.List(context.Background(), domain.ListOpts{Limit: 3, Offset: 4})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "a", events[0].ID)
}

func TestListTimeWindow(t *testing.T) {
	j := seedJournal(t)
	since := time.Unix(1_700_000_000, 0).UTC().Add(time.Minute)
	until := time.Unix(1_700_000_000, 0).UTC().Add(3 * time.Minute)

	events, err := j.List(context.Background(), domain.ListOpts{Since: &since, Until: &until})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "c", events[0].ID)
	assert.Equal(t, "b", events[1].ID)
}

func TestListBeforeAndDeleteBefore(t *testing.T) {
	j := seedJournal(t)
	cutoff := time.Unix(1_700_000_000, 0).UTC().Add(2 * time.Minute)

	old, err := j.ListBefore(context.Background(), cutoff)
	require.NoError(t, err)
	require.Len(t, old, 2)
	assert.Equal(t, "a", old[0].ID)
	assert.Equal(t, "b", old[1].ID)

	removed, err := j.DeleteBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	rest, err := j.List(context.Background(), domain.ListOpts{})
	require.NoError(t, err)
	assert.Len(t, rest, 3)
}
