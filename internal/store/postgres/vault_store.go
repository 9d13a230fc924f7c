package postgres

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridianfi/lendcore/internal/domain"
)

// VaultStore is the durable custody backend. Both legs of a transfer run in
// one transaction with a guarded decrement, so a balance can never go
// negative and a failed leg leaves nothing moved.
type VaultStore struct {
	pool *pgxpool.Pool
}

// NewVaultStore creates a vault store backed by the given client.
func NewVaultStore(client *Client) *VaultStore {
	return &VaultStore{pool: client.Pool()}
}

var _ domain.Custody = (*VaultStore)(nil)

// RegisterToken makes a token symbol known to the vault. Registering an
// already-known symbol is a no-op.
func (s *VaultStore) RegisterToken(ctx context.Context, symbol string) error {
	_, err := s.pool.Exec(ctx,
		"INSERT INTO vault_tokens (symbol) VALUES ($1) ON CONFLICT (symbol) DO NOTHING",
		symbol)
	if err != nil {
		return fmt.Errorf("postgres: register token %s: %w", symbol, err)
	}
	return nil
}

const creditBalanceQuery = `
	INSERT INTO vault_balances (account, symbol, amount)
	VALUES ($1, $2, $3::numeric)
	ON CONFLICT (account, symbol) DO UPDATE SET
		amount = vault_balances.amount + EXCLUDED.amount,
		updated_at = NOW()`

// Credit adds external deposits to an account's free balance.
func (s *VaultStore) Credit(ctx context.Context, account, symbol string, amount uint64) error {
	if err := s.requireToken(ctx, s.pool, symbol); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, creditBalanceQuery, account, symbol, strconv.FormatUint(amount, 10))
	if err != nil {
		return fmt.Errorf("postgres: credit %s/%s: %w", account, symbol, err)
	}
	return nil
}

const fundHoldingsQuery = `
	INSERT INTO vault_holdings (symbol, amount)
	VALUES ($1, $2::numeric)
	ON CONFLICT (symbol) DO UPDATE SET
		amount = vault_holdings.amount + EXCLUDED.amount,
		updated_at = NOW()`

// Fund seeds pool-held liquidity directly, bypassing any user account.
func (s *VaultStore) Fund(ctx context.Context, symbol string, amount uint64) error {
	if err := s.requireToken(ctx, s.pool, symbol); err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, fundHoldingsQuery, symbol, strconv.FormatUint(amount, 10)); err != nil {
		return fmt.Errorf("postgres: fund %s: %w", symbol, err)
	}
	return nil
}

const holdBalanceQuery = `
	UPDATE vault_balances
	SET amount = amount - $3::numeric, updated_at = NOW()
	WHERE account = $1 AND symbol = $2 AND amount >= $3::numeric`

// Hold moves amount from the payer's free balance into pool custody.
func (s *VaultStore) Hold(ctx context.Context, payer, symbol string, amount uint64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin hold: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.requireToken(ctx, tx, symbol); err != nil {
		return err
	}

	amt := strconv.FormatUint(amount, 10)
	tag, err := tx.Exec(ctx, holdBalanceQuery, payer, symbol, amt)
	if err != nil {
		return fmt.Errorf("postgres: hold debit %s/%s: %w", payer, symbol, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: hold %s/%s: %w", payer, symbol, domain.ErrInsufficientBalance)
	}
	if _, err := tx.Exec(ctx, fundHoldingsQuery, symbol, amt); err != nil {
		return fmt.Errorf("postgres: hold credit %s: %w", symbol, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit hold: %w", err)
	}
	return nil
}

const releaseHoldingsQuery = `
	UPDATE vault_holdings
	SET amount = amount - $2::numeric, updated_at = NOW()
	WHERE symbol = $1 AND amount >= $2::numeric`

// Release moves amount out of pool custody to the recipient's free balance.
func (s *VaultStore) Release(ctx context.Context, symbol string, amount uint64, recipient string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin release: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.requireToken(ctx, tx, symbol); err != nil {
		return err
	}

	amt := strconv.FormatUint(amount, 10)
	tag, err := tx.Exec(ctx, releaseHoldingsQuery, symbol, amt)
	if err != nil {
		return fmt.Errorf("postgres: release debit %s: %w", symbol, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: release %s: %w", symbol, domain.ErrInsufficientBalance)
	}
	if _, err := tx.Exec(ctx, creditBalanceQuery, recipient, symbol, amt); err != nil {
		return fmt.Errorf("postgres: release credit %s/%s: %w", recipient, symbol, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit release: %w", err)
	}
	return nil
}

// Balance reads an account's free balance for one token.
func (s *VaultStore) Balance(ctx context.Context, account, symbol string) (uint64, error) {
	var amt string
	err := s.pool.QueryRow(ctx,
		"SELECT amount::text FROM vault_balances WHERE account = $1 AND symbol = $2",
		account, symbol).Scan(&amt)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("postgres: balance %s/%s: %w", account, symbol, err)
	}
	v, err := strconv.ParseUint(amt, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("postgres: parse balance %s/%s: %w", account, symbol, err)
	}
	return v, nil
}

// Held reads the pool-held amount for one token.
func (s *VaultStore) Held(ctx context.Context, symbol string) (uint64, error) {
	var amt string
	err := s.pool.QueryRow(ctx,
		"SELECT amount::text FROM vault_holdings WHERE symbol = $1", symbol).Scan(&amt)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("postgres: held %s: %w", symbol, err)
	}
	v, err := strconv.ParseUint(amt, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("postgres: parse held %s: %w", symbol, err)
	}
	return v, nil
}

func (s *VaultStore) requireToken(ctx context.Context, q querier, symbol string) error {
	var exists bool
	err := q.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM vault_tokens WHERE symbol = $1)", symbol).Scan(&exists)
	if err != nil {
		return fmt.Errorf("postgres: check token %s: %w", symbol, err)
	}
	if !exists {
		return fmt.Errorf("postgres: token %s: %w", symbol, domain.ErrTokenNotRegistered)
	}
	return nil
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
