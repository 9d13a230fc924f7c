package domain

import (
	"context"
	"io"
	"time"
)

// PriceCache mirrors posted oracle prices for external readers. The engine's
// own valuation always reads the in-pool AssetConfig; the cache is a
// post-commit side channel, never an input.
type PriceCache interface {
	SetPrice(ctx context.Context, symbol string, price uint64, ts time.Time) error
	GetPrice(ctx context.Context, symbol string) (uint64, time.Time, error)
}

// SignalBus is a lightweight pub/sub channel used to push ledger events to
// streaming consumers (the websocket hub).
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// LockManager hands out distributed locks. The serve mode takes a pool
// leadership lock so only one writer process mutates a given pool.
type LockManager interface {
	// Acquire returns an unlock function on success, or ErrLockHeld when
	// another holder owns the lock.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// RateLimiter enforces a per-key request budget over a rolling window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// BlobWriter uploads objects to cold storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// BlobReader reads objects back from cold storage.
type BlobReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]string, error)
}
