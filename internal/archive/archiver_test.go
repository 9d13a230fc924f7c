package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianfi/lendcore/internal/domain"
)

type fakeJournal struct {
	events  []domain.Event
	listErr error
	deleted []time.Time
}

func (f *fakeJournal) Append(ctx context.Context, ev domain.Event) error { return nil }

func (f *fakeJournal) List(ctx context.Context, opts domain.ListOpts) ([]domain.Event, error) {
	return f.events, nil
}

func (f *fakeJournal) ListBefore(ctx context.Context, before time.Time) ([]domain.Event, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []domain.Event
	for _, ev := range f.events {
		if ev.At.Before(before) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (f *fakeJournal) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	f.deleted = append(f.deleted, before)
	var kept []domain.Event
	var n int64
	for _, ev := range f.events {
		if ev.At.Before(before) {
			n++
			continue
		}
		kept = append(kept, ev)
	}
	f.events = kept
	return n, nil
}

type fakeWriter struct {
	puts map[string][]byte
	err  error
}

func (f *fakeWriter) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	if f.err != nil {
		return f.err
	}
	b, _ := io.ReadAll(data)
	if f.puts == nil {
		f.puts = map[string][]byte{}
	}
	f.puts[path] = b
	return nil
}

func TestRunOnce(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	old := domain.Event{ID: "old", Type: domain.EventDeposit, At: now.Add(-48 * time.Hour)}
	fresh := domain.Event{ID: "fresh", Type: domain.EventBorrow, At: now.Add(-time.Hour)}

	journal := &fakeJournal{events: []domain.Event{old, fresh}}
	writer := &fakeWriter{}
	a := New(journal, writer, slog.Default(), Config{
		Interval:  time.Hour,
		Retention: 24 * time.Hour,
		Now:       func() time.Time { return now },
	})

	count, err := a.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	// Only the aged entry was pruned.
	require.Len(t, journal.events, 1)
	assert.Equal(t, "fresh", journal.events[0].ID)

	// One JSONL object keyed by the cutoff instant.
	require.Len(t, writer.puts, 1)
	body, ok := writer.puts["archive/journal/2026-08-29T120000Z.jsonl"]
	require.True(t, ok)

	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	require.Len(t, lines, 1)
	var got domain.Event
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &got))
	assert.Equal(t, "old", got.ID)
	assert.Equal(t, domain.EventDeposit, got.Type)
}

func TestRunOnceNothingToArchive(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	journal := &fakeJournal{events: []domain.Event{
		{ID: "fresh", At: now.Add(-time.Minute)},
	}}
	writer := &fakeWriter{}
	a := New(journal, writer, slog.Default(), Config{
		Interval:  time.Hour,
		Retention: 24 * time.Hour,
		Now:       func() time.Time { return now },
	})

	count, err := a.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, writer.puts)
	assert.Empty(t, journal.deleted)
}

func TestRunOnceUploadFailureKeepsJournal(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	journal := &fakeJournal{events: []domain.Event{
		{ID: "old", At: now.Add(-48 * time.Hour)},
	}}
	writer := &fakeWriter{err: assert.AnError}
	a := New(journal, writer, slog.Default(), Config{
		Interval:  time.Hour,
		Retention: 24 * time.Hour,
		Now:       func() time.Time { return now },
	})

	_, err := a.RunOnce(context.Background())
	require.Error(t, err)

	// Nothing pruned when the upload did not land.
	assert.Len(t, journal.events, 1)
	assert.Empty(t, journal.deleted)
}

func TestMarshalJSONL(t *testing.T) {
	events := []domain.Event{
		{ID: "a", Type: domain.EventDeposit, Amount: 10},
		{ID: "b", Type: domain.EventLiquidation, SeizedAmount: 5},
	}
	buf, err := marshalJSONL(events)
	require.NoError(t, err)
	assert.Equal(t, 2, bytes.Count(buf, []byte("\n")))
}
