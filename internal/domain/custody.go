package domain

import "context"

// Custody is the narrow interface over the external vault service that holds
// and moves fungible balances on the engine's behalf. Both calls are
// synchronous and atomic from the engine's perspective: they either fully
// succeed or the calling operation aborts with no ledger change.
type Custody interface {
	// Hold moves amount of symbol from the payer's external balance into
	// the vault. It fails with ErrTokenNotRegistered when the vault does
	// not know the symbol and ErrInsufficientBalance when the payer cannot
	// cover the amount.
	Hold(ctx context.Context, payer, symbol string, amount uint64) error

	// Release moves amount of symbol out of the vault to the recipient.
	Release(ctx context.Context, symbol string, amount uint64, recipient string) error
}
