package postgres

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridianfi/lendcore/internal/domain"
)

// JournalStore persists the append-only event journal.
type JournalStore struct {
	pool *pgxpool.Pool
}

// NewJournalStore creates a journal store backed by the given client.
func NewJournalStore(client *Client) *JournalStore {
	return &JournalStore{pool: client.Pool()}
}

var _ domain.JournalStore = (*JournalStore)(nil)

const journalColumns = `id, event_type, account, caller, symbol, amount::text, price::text, collateral_symbol, seized_amount::text, occurred_at`

const appendEventQuery = `
	INSERT INTO journal (id, event_type, account, caller, symbol, amount, price, collateral_symbol, seized_amount, occurred_at)
	VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8, $9::numeric, $10)`

// Append writes one event row.
func (s *JournalStore) Append(ctx context.Context, ev domain.Event) error {
	_, err := s.pool.Exec(ctx, appendEventQuery,
		ev.ID,
		string(ev.Type),
		ev.User,
		ev.Caller,
		ev.Symbol,
		strconv.FormatUint(ev.Amount, 10),
		strconv.FormatUint(ev.Price, 10),
		ev.CollateralSymbol,
		strconv.FormatUint(ev.SeizedAmount, 10),
		ev.At,
	)
	if err != nil {
		return fmt.Errorf("postgres: append event %s: %w", ev.ID, err)
	}
	return nil
}

// List returns events newest first, filtered and paginated by opts.
func (s *JournalStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Event, error) {
	query := "SELECT " + journalColumns + " FROM journal WHERE 1=1"
	args := []any{}
	idx := 1

	if opts.Since != nil {
		query += fmt.Sprintf(" AND occurred_at >= $%d", idx)
		args = append(args, *opts.Since)
		idx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND occurred_at < $%d", idx)
		args = append(args, *opts.Until)
		idx++
	}
	query += " ORDER BY occurred_at DESC"
	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", idx)
		args = append(args, opts.Limit)
		idx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", idx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

const listBeforeQuery = `
	SELECT ` + journalColumns + `
	FROM journal
	WHERE occurred_at < $1
	ORDER BY occurred_at`

// ListBefore returns events strictly older than the cutoff, oldest first,
// for export to cold storage.
func (s *JournalStore) ListBefore(ctx context.Context, before time.Time) ([]domain.Event, error) {
	rows, err := s.pool.Query(ctx, listBeforeQuery, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list events before %s: %w", before, err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// DeleteBefore prunes events strictly older than the cutoff and reports how
// many rows were removed.
func (s *JournalStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, "DELETE FROM journal WHERE occurred_at < $1", before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete events before %s: %w", before, err)
	}
	return tag.RowsAffected(), nil
}

func scanEvents(rows pgx.Rows) ([]domain.Event, error) {
	var events []domain.Event
	for rows.Next() {
		var (
			ev     domain.Event
			typ    string
			amount string
			price  string
			seized string
		)
		err := rows.Scan(&ev.ID, &typ, &ev.User, &ev.Caller, &ev.Symbol,
			&amount, &price, &ev.CollateralSymbol, &seized, &ev.At)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan event: %w", err)
		}
		ev.Type = domain.EventType(typ)
		if ev.Amount, err = strconv.ParseUint(amount, 10, 64); err != nil {
			return nil, fmt.Errorf("postgres: parse amount for %s: %w", ev.ID, err)
		}
		if ev.Price, err = strconv.ParseUint(price, 10, 64); err != nil {
			return nil, fmt.Errorf("postgres: parse price for %s: %w", ev.ID, err)
		}
		if ev.SeizedAmount, err = strconv.ParseUint(seized, 10, 64); err != nil {
			return nil, fmt.Errorf("postgres: parse seized amount for %s: %w", ev.ID, err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate events: %w", err)
	}
	return events, nil
}
