// Package memory provides in-memory store implementations for standalone
// mode, where the pool runs without PostgreSQL or Redis.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/meridianfi/lendcore/internal/domain"
)

// Journal is an in-memory append-only event journal. It mirrors the query
// semantics of the PostgreSQL journal: List is newest first with pagination,
// ListBefore and DeleteBefore use a strict cutoff.
type Journal struct {
	mu     sync.RWMutex
	events []domain.Event
}

// NewJournal creates an empty journal.
func NewJournal() *Journal {
	return &Journal{}
}

var _ domain.JournalStore = (*Journal)(nil)

// Append records one event.
func (j *Journal) Append(_ context.Context, ev domain.Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, ev)
	return nil
}

// List returns events newest first, filtered and paginated by opts.
func (j *Journal) List(_ context.Context, opts domain.ListOpts) ([]domain.Event, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var matched []domain.Event
	for _, ev := range j.events {
		if opts.Since != nil && ev.At.Before(*opts.Since) {
			continue
		}
		if opts.Until != nil && !ev.At.Before(*opts.Until) {
			continue
		}
		matched = append(matched, ev)
	}

	sort.SliceStable(matched, func(a, b int) bool {
		return matched[a].At.After(matched[b].At)
	})

	if opts.Offset > 0 {
		if opts.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(matched) {
		matched = matched[:opts.Limit]
	}

	out := make([]domain.Event, len(matched))
	copy(out, matched)
	return out, nil
}

// ListBefore returns events strictly older than the cutoff, oldest first.
func (j *Journal) ListBefore(_ context.Context, before time.Time) ([]domain.Event, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var matched []domain.Event
	for _, ev := range j.events {
		if ev.At.Before(before) {
			matched = append(matched, ev)
		}
	}
	sort.SliceStable(matched, func(a, b int) bool {
		return matched[a].At.Before(matched[b].At)
	})
	return matched, nil
}

// DeleteBefore prunes events strictly older than the cutoff and reports how
// many were removed.
func (j *Journal) DeleteBefore(_ context.Context, before time.Time) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	kept := j.events[:0]
	var removed int64
	for _, ev := range j.events {
		if ev.At.Before(before) {
			removed++
			continue
		}
		kept = append(kept, ev)
	}
	j.events = kept
	return removed, nil
}
