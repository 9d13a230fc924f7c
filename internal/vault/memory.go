// Package vault provides the in-memory custody implementation used by
// standalone mode and tests. The production deployment uses the
// postgres-backed vault in internal/store/postgres instead.
package vault

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/meridianfi/lendcore/internal/domain"
)

// Memory is an in-process vault: registered token symbols, per-account
// external balances, and the pool's own holdings.
type Memory struct {
	mu       sync.Mutex
	tokens   map[string]bool
	balances map[string]map[string]uint64 // account -> symbol -> amount
	held     map[string]uint64            // symbol -> amount in custody
}

// NewMemory creates an empty vault.
func NewMemory() *Memory {
	return &Memory{
		tokens:   make(map[string]bool),
		balances: make(map[string]map[string]uint64),
		held:     make(map[string]uint64),
	}
}

// RegisterToken makes the symbol known to the vault. Hold and Release reject
// unknown symbols.
func (m *Memory) RegisterToken(symbol string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[symbol] = true
}

// Credit adds amount of symbol to an account's external balance. Test and
// standalone-mode seeding helper.
func (m *Memory) Credit(account, symbol string, amount uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.balances[account] == nil {
		m.balances[account] = make(map[string]uint64)
	}
	m.balances[account][symbol] += amount
}

// Fund adds amount of symbol directly to custody, representing pool
// liquidity provisioned outside the ledger (e.g. by the operator).
func (m *Memory) Fund(symbol string, amount uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.held[symbol] += amount
}

// Balance returns an account's external balance for the symbol.
func (m *Memory) Balance(account, symbol string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[account][symbol]
}

// Held returns the amount of symbol currently in custody.
func (m *Memory) Held(symbol string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.held[symbol]
}

// Hold moves amount of symbol from the payer's balance into custody.
func (m *Memory) Hold(ctx context.Context, payer, symbol string, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.tokens[symbol] {
		return fmt.Errorf("vault: %q: %w", symbol, domain.ErrTokenNotRegistered)
	}
	bal := m.balances[payer][symbol]
	if bal < amount {
		return fmt.Errorf("vault: %s has %d %s, need %d: %w",
			payer, bal, symbol, amount, domain.ErrInsufficientBalance)
	}
	m.balances[payer][symbol] = bal - amount
	m.held[symbol] += amount
	return nil
}

// Release moves amount of symbol from custody to the recipient.
func (m *Memory) Release(ctx context.Context, symbol string, amount uint64, recipient string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.tokens[symbol] {
		return fmt.Errorf("vault: %q: %w", symbol, domain.ErrTokenNotRegistered)
	}
	if m.held[symbol] < amount {
		return fmt.Errorf("vault: custody holds %d %s, need %d: %w",
			m.held[symbol], symbol, amount, domain.ErrInsufficientBalance)
	}
	if m.balances[recipient] == nil {
		m.balances[recipient] = make(map[string]uint64)
	}
	if m.balances[recipient][symbol] > math.MaxUint64-amount {
		return fmt.Errorf("vault: release overflows %s balance: %w", recipient, domain.ErrInvalidAmount)
	}
	m.held[symbol] -= amount
	m.balances[recipient][symbol] += amount
	return nil
}

// Compile-time interface check.
var _ domain.Custody = (*Memory)(nil)
