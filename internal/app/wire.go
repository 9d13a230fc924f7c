package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/meridianfi/lendcore/internal/blob/s3"
	"github.com/meridianfi/lendcore/internal/cache/redis"
	"github.com/meridianfi/lendcore/internal/domain"
	"github.com/meridianfi/lendcore/internal/notify"
	"github.com/meridianfi/lendcore/internal/store/postgres"
)

// Dependencies bundles the external-service adapters used by serve mode.
type Dependencies struct {
	Ledger  domain.LedgerStore
	Journal domain.JournalStore
	Vault   *postgres.VaultStore

	Prices  domain.PriceCache
	Locks   domain.LockManager
	Bus     domain.SignalBus
	Limiter domain.RateLimiter

	// Archive and ArchiveReader are non-nil only when the journal archiver
	// is enabled.
	Archive       domain.BlobWriter
	ArchiveReader domain.BlobReader

	// Notifier is non-nil only when at least one channel is configured.
	Notifier *notify.Notifier
}

// wire connects to PostgreSQL, Redis, and optionally S3, and builds the
// adapters serve mode runs on. Connections are registered as closers on the
// App; on error the caller is expected to invoke Close.
func (a *App) wire(ctx context.Context) (*Dependencies, error) {
	deps := &Dependencies{}

	pg, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      a.cfg.Postgres.DSN,
		Host:     a.cfg.Postgres.Host,
		Port:     a.cfg.Postgres.Port,
		Database: a.cfg.Postgres.Database,
		User:     a.cfg.Postgres.User,
		Password: a.cfg.Postgres.Password,
		SSLMode:  a.cfg.Postgres.SSLMode,
		MaxConns: a.cfg.Postgres.PoolMaxConns,
		MinConns: a.cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("wire: postgres: %w", err)
	}
	a.addCloser("postgres", pg.Close)

	if a.cfg.Postgres.RunMigrations {
		if err := pg.RunMigrations(ctx); err != nil {
			return nil, fmt.Errorf("wire: migrations: %w", err)
		}
	}

	deps.Ledger = postgres.NewLedgerStore(pg)
	deps.Journal = postgres.NewJournalStore(pg)
	deps.Vault = postgres.NewVaultStore(pg)

	rc, err := redis.New(ctx, redis.ClientConfig{
		Addr:       a.cfg.Redis.Addr,
		Password:   a.cfg.Redis.Password,
		DB:         a.cfg.Redis.DB,
		PoolSize:   a.cfg.Redis.PoolSize,
		MaxRetries: a.cfg.Redis.MaxRetries,
		TLSEnabled: a.cfg.Redis.TLSEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("wire: redis: %w", err)
	}
	a.addCloser("redis", func() { _ = rc.Close() })

	deps.Prices = redis.NewPriceCache(rc)
	deps.Locks = redis.NewLockManager(rc)
	deps.Bus = redis.NewSignalBus(rc)
	deps.Limiter = redis.NewRateLimiter(rc)

	if a.cfg.Archive.Enabled {
		bc, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       a.cfg.S3.Endpoint,
			Region:         a.cfg.S3.Region,
			Bucket:         a.cfg.S3.Bucket,
			AccessKey:      a.cfg.S3.AccessKey,
			SecretKey:      a.cfg.S3.SecretKey,
			UseSSL:         a.cfg.S3.UseSSL,
			ForcePathStyle: a.cfg.S3.ForcePathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("wire: s3: %w", err)
		}
		if err := bc.Health(ctx); err != nil {
			return nil, fmt.Errorf("wire: s3 bucket %s: %w", a.cfg.S3.Bucket, err)
		}
		deps.Archive = s3blob.NewWriter(bc)
		deps.ArchiveReader = s3blob.NewReader(bc)
	}

	deps.Notifier = a.buildNotifier()

	a.logger.InfoContext(ctx, "dependencies wired",
		slog.Bool("archive", deps.Archive != nil),
		slog.Bool("notify", deps.Notifier != nil),
	)
	return deps, nil
}

// buildNotifier assembles the event notifier from the configured channels.
// Returns nil when no channel is configured.
func (a *App) buildNotifier() *notify.Notifier {
	var senders []notify.Sender
	if a.cfg.Notify.TelegramToken != "" && a.cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			a.cfg.Notify.TelegramToken, a.cfg.Notify.TelegramChatID))
	}
	if a.cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(a.cfg.Notify.DiscordWebhookURL))
	}
	if len(senders) == 0 {
		return nil
	}
	return notify.NewNotifier(senders, a.cfg.Notify.Events, a.logger)
}
