package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and time filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// LedgerStore persists snapshots of the pool's authoritative in-memory state.
// Snapshots are written after each committed mutation and read once at
// startup to restore the pool.
type LedgerStore interface {
	UpsertAsset(ctx context.Context, cfg AssetConfig) error
	UpsertPosition(ctx context.Context, pos Position) error
	LoadAssets(ctx context.Context) ([]AssetConfig, error)
	LoadPositions(ctx context.Context) ([]Position, error)
}

// JournalStore persists the append-only event journal.
type JournalStore interface {
	Append(ctx context.Context, ev Event) error
	List(ctx context.Context, opts ListOpts) ([]Event, error)

	// ListBefore and DeleteBefore exist for the cold-storage archiver:
	// entries strictly older than the cutoff are exported, then pruned.
	ListBefore(ctx context.Context, before time.Time) ([]Event, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}
