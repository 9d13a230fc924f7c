package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/meridianfi/lendcore/internal/domain"
)

// Deposit credits amount of symbol to the user's collateral. The custody
// collaborator takes the funds into safekeeping before the ledger mutates;
// a custody failure aborts with no state change. The user's position and the
// asset's collateral entry are created lazily at zero on first use.
func (e *Engine) Deposit(ctx context.Context, user, symbol string, amount uint64) error {
	e.mu.Lock()
	if err := e.requireInitLocked(); err != nil {
		e.mu.Unlock()
		return err
	}
	if amount == 0 {
		e.mu.Unlock()
		return fmt.Errorf("engine: deposit: %w", domain.ErrInvalidAmount)
	}
	if _, ok := e.assets[symbol]; !ok {
		e.mu.Unlock()
		return fmt.Errorf("engine: deposit %q: %w", symbol, domain.ErrAssetNotSupported)
	}

	pos, ok := e.positions[user]
	if !ok {
		pos = domain.NewPosition(user)
	}
	current := pos.Collateral[symbol]
	if amount > math.MaxUint64-current {
		e.mu.Unlock()
		return fmt.Errorf("engine: deposit overflows collateral: %w", domain.ErrInvalidAmount)
	}

	if err := e.custody.Hold(ctx, user, symbol, amount); err != nil {
		e.mu.Unlock()
		return fmt.Errorf("engine: deposit custody hold: %w", err)
	}

	e.positions[user] = pos
	pos.Collateral[symbol] = current + amount
	pos.LastUpdate = e.now().Unix()
	e.mu.Unlock()

	e.logger.InfoContext(ctx, "deposit",
		slog.String("user", user),
		slog.String("symbol", symbol),
		slog.Uint64("amount", amount),
	)
	e.emit(ctx, domain.Event{
		Type:   domain.EventDeposit,
		User:   user,
		Symbol: symbol,
		Amount: amount,
	})
	return nil
}

// Borrow lends amount of symbol against the user's aggregate collateral.
// Collateral and debt are valued across every active asset the user touches,
// with per-asset price freshness, and the new aggregate debt must stay within
// the protocol LTV cap. On success the vault releases the funds to the
// borrower.
func (e *Engine) Borrow(ctx context.Context, user, symbol string, amount uint64) error {
	e.mu.Lock()
	if err := e.requireInitLocked(); err != nil {
		e.mu.Unlock()
		return err
	}
	if amount == 0 {
		e.mu.Unlock()
		return fmt.Errorf("engine: borrow: %w", domain.ErrInvalidAmount)
	}
	cfg, ok := e.assets[symbol]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("engine: borrow %q: %w", symbol, domain.ErrAssetNotSupported)
	}
	pos, ok := e.positions[user]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("engine: borrow for %q: %w", user, domain.ErrUserNoPosition)
	}

	nowSec := e.now().Unix()
	if err := assertFresh(cfg, nowSec); err != nil {
		e.mu.Unlock()
		return err
	}
	collateralValue, debtValue, err := e.accountValuesLocked(pos, nowSec)
	if err != nil {
		e.mu.Unlock()
		return err
	}

	newDebtValue := debtValue.Add(debtValue, value(amount, cfg.LastPrice))
	if !withinBorrowLimit(newDebtValue, collateralValue) {
		e.mu.Unlock()
		return fmt.Errorf("engine: borrow %d %s: %w", amount, symbol, domain.ErrBorrowLimitExceeded)
	}

	current := pos.Debt[symbol]
	if amount > math.MaxUint64-current {
		e.mu.Unlock()
		return fmt.Errorf("engine: borrow overflows debt: %w", domain.ErrInvalidAmount)
	}

	if err := e.custody.Release(ctx, symbol, amount, user); err != nil {
		e.mu.Unlock()
		return fmt.Errorf("engine: borrow custody release: %w", err)
	}

	pos.Debt[symbol] = current + amount
	pos.LastUpdate = nowSec
	e.mu.Unlock()

	e.logger.InfoContext(ctx, "borrow",
		slog.String("user", user),
		slog.String("symbol", symbol),
		slog.Uint64("amount", amount),
	)
	e.emit(ctx, domain.Event{
		Type:   domain.EventBorrow,
		User:   user,
		Symbol: symbol,
		Amount: amount,
		Price:  cfg.LastPrice,
	})
	return nil
}

// GetPosition returns the user's (collateral, debt) amounts for one asset.
// An asset the user never touched reads as zeroes; only a completely absent
// position record is an error.
func (e *Engine) GetPosition(user, symbol string) (domain.AccountView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireInitLocked(); err != nil {
		return domain.AccountView{}, err
	}
	pos, ok := e.positions[user]
	if !ok {
		return domain.AccountView{}, fmt.Errorf("engine: position for %q: %w", user, domain.ErrUserNoPosition)
	}
	return domain.AccountView{
		Collateral: pos.Collateral[symbol],
		Debt:       pos.Debt[symbol],
	}, nil
}
