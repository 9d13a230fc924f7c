// Package archive exports aged journal entries to cold storage and prunes
// them from the primary store.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/meridianfi/lendcore/internal/domain"
)

// Config controls the archiver's schedule and retention window.
type Config struct {
	// Interval is how often the archiver wakes up.
	Interval time.Duration

	// Retention is how long journal entries stay in the primary store.
	// Entries older than now-Retention are exported and deleted.
	Retention time.Duration

	// Now is the clock source; defaults to time.Now.
	Now func() time.Time
}

// Archiver periodically moves old journal entries into an S3 object and
// deletes them from the database. Deletion only happens after the upload
// succeeds, so a failed run leaves the journal intact.
type Archiver struct {
	journal domain.JournalStore
	writer  domain.BlobWriter
	logger  *slog.Logger

	interval  time.Duration
	retention time.Duration
	now       func() time.Time
}

// New creates an Archiver.
func New(journal domain.JournalStore, writer domain.BlobWriter, logger *slog.Logger, cfg Config) *Archiver {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Archiver{
		journal:   journal,
		writer:    writer,
		logger:    logger.With("component", "archiver"),
		interval:  cfg.Interval,
		retention: cfg.Retention,
		now:       now,
	}
}

// Run executes archive cycles on the configured interval until the context
// is cancelled. Individual cycle failures are logged and retried on the next
// tick rather than stopping the loop.
func (a *Archiver) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.logger.Info("archiver started",
		"interval", a.interval.String(),
		"retention", a.retention.String())

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("archiver stopped")
			return ctx.Err()
		case <-ticker.C:
			count, err := a.RunOnce(ctx)
			if err != nil {
				a.logger.Error("archive cycle failed", "error", err)
				continue
			}
			if count > 0 {
				a.logger.Info("archive cycle complete", "archived", count)
			}
		}
	}
}

// RunOnce performs a single archive cycle: export every journal entry older
// than the retention cutoff as a JSONL object, then prune the exported rows.
// It returns the number of entries archived.
func (a *Archiver) RunOnce(ctx context.Context) (int64, error) {
	cutoff := a.now().Add(-a.retention)

	events, err := a.journal.ListBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("archive: list journal: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(events)
	if err != nil {
		return 0, fmt.Errorf("archive: marshal journal: %w", err)
	}

	path := objectPath(cutoff)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("archive: upload %s: %w", path, err)
	}

	deleted, err := a.journal.DeleteBefore(ctx, cutoff)
	if err != nil {
		// The export object exists; the rows will be re-exported (and the
		// object overwritten for the same cutoff) on the next cycle.
		return 0, fmt.Errorf("archive: prune journal: %w", err)
	}
	if deleted != int64(len(events)) {
		a.logger.Warn("archived and pruned counts differ",
			"archived", len(events), "pruned", deleted)
	}

	return int64(len(events)), nil
}

// ObjectPrefix is where journal exports live in the blob store.
const ObjectPrefix = "archive/journal/"

// objectPath names the export object by its cutoff instant, so repeated runs
// with the same cutoff are idempotent.
func objectPath(cutoff time.Time) string {
	return ObjectPrefix + cutoff.UTC().Format("2006-01-02T150405Z") + ".jsonl"
}

// marshalJSONL serializes events one JSON document per line.
func marshalJSONL(events []domain.Event) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, ev := range events {
		if err := enc.Encode(ev); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
