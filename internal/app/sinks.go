package app

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/meridianfi/lendcore/internal/domain"
	"github.com/meridianfi/lendcore/internal/engine"
	"github.com/meridianfi/lendcore/internal/server/ws"
)

// The engine publishes events after its lock is released; these sinks are
// the write-behind observers. Failures are logged and dropped: the in-memory
// ledger is authoritative and a sink must never veto a committed transition.

// journalSink appends every event to the durable journal.
func journalSink(journal domain.JournalStore, logger *slog.Logger) domain.EventSink {
	return domain.EventSinkFunc(func(ctx context.Context, ev domain.Event) {
		if err := journal.Append(ctx, ev); err != nil {
			logger.ErrorContext(ctx, "journal append failed",
				slog.String("event", string(ev.Type)),
				slog.String("id", ev.ID),
				slog.String("error", err.Error()),
			)
		}
	})
}

// snapshotSink mirrors the engine's post-commit state into the ledger store.
// Snapshots are read back once at startup to restore the pool.
func snapshotSink(eng *engine.Engine, store domain.LedgerStore, logger *slog.Logger) domain.EventSink {
	return domain.EventSinkFunc(func(ctx context.Context, ev domain.Event) {
		if ev.Symbol != "" {
			if cfg, ok := eng.SnapshotAsset(ev.Symbol); ok {
				if err := store.UpsertAsset(ctx, cfg); err != nil {
					logger.ErrorContext(ctx, "asset snapshot failed",
						slog.String("symbol", ev.Symbol),
						slog.String("error", err.Error()),
					)
				}
			}
		}
		if ev.CollateralSymbol != "" {
			if cfg, ok := eng.SnapshotAsset(ev.CollateralSymbol); ok {
				if err := store.UpsertAsset(ctx, cfg); err != nil {
					logger.ErrorContext(ctx, "asset snapshot failed",
						slog.String("symbol", ev.CollateralSymbol),
						slog.String("error", err.Error()),
					)
				}
			}
		}
		if ev.User != "" {
			if pos, ok := eng.SnapshotPosition(ev.User); ok {
				if err := store.UpsertPosition(ctx, pos); err != nil {
					logger.ErrorContext(ctx, "position snapshot failed",
						slog.String("user", ev.User),
						slog.String("error", err.Error()),
					)
				}
			}
		}
	})
}

// priceMirrorSink publishes posted prices to the external price cache.
func priceMirrorSink(cache domain.PriceCache, logger *slog.Logger) domain.EventSink {
	return domain.EventSinkFunc(func(ctx context.Context, ev domain.Event) {
		if ev.Type != domain.EventPriceUpdated && ev.Type != domain.EventAssetAdded {
			return
		}
		if err := cache.SetPrice(ctx, ev.Symbol, ev.Price, ev.At); err != nil {
			logger.ErrorContext(ctx, "price mirror failed",
				slog.String("symbol", ev.Symbol),
				slog.String("error", err.Error()),
			)
		}
	})
}

// busSink publishes events as JSON on the signal bus, both on the firehose
// channel and a per-type channel, for the websocket hub and any other
// streaming consumer.
func busSink(bus domain.SignalBus, logger *slog.Logger) domain.EventSink {
	return domain.EventSinkFunc(func(ctx context.Context, ev domain.Event) {
		payload, err := json.Marshal(ev)
		if err != nil {
			return
		}
		if err := bus.Publish(ctx, ws.EventChannel, payload); err != nil {
			logger.ErrorContext(ctx, "event publish failed",
				slog.String("event", string(ev.Type)),
				slog.String("error", err.Error()),
			)
			return
		}
		_ = bus.Publish(ctx, ws.EventChannel+":"+string(ev.Type), payload)
	})
}

// tokenRegistrar registers newly listed assets with the custody vault so
// deposits in the new asset can clear.
type tokenRegistrar interface {
	RegisterToken(ctx context.Context, symbol string) error
}

func registrarSink(vault tokenRegistrar, logger *slog.Logger) domain.EventSink {
	return domain.EventSinkFunc(func(ctx context.Context, ev domain.Event) {
		if ev.Type != domain.EventAssetAdded || ev.Symbol == "" {
			return
		}
		if err := vault.RegisterToken(ctx, ev.Symbol); err != nil {
			logger.ErrorContext(ctx, "vault token registration failed",
				slog.String("symbol", ev.Symbol),
				slog.String("error", err.Error()),
			)
		}
	})
}
