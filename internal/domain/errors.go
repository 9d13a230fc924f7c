package domain

import "errors"

// Terminal operation errors. Every failed operation aborts whole and leaves
// the ledger unchanged; callers branch on these with errors.Is.
var (
	ErrUnauthorized           = errors.New("unauthorized")
	ErrAlreadyInitialized     = errors.New("pool already initialized")
	ErrNotInitialized         = errors.New("pool not initialized")
	ErrAssetNotSupported      = errors.New("asset not supported")
	ErrInsufficientCollateral = errors.New("insufficient collateral")
	ErrBorrowLimitExceeded    = errors.New("borrow limit exceeded")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrUserNoPosition         = errors.New("user has no position")
	ErrStalePrice             = errors.New("stale price")
	ErrTokenNotRegistered     = errors.New("token not registered")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrNotLiquidatable        = errors.New("position not liquidatable")

	// Infrastructure errors.
	ErrNotFound = errors.New("not found")
	ErrLockHeld = errors.New("lock already held")
)
