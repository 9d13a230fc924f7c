package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridianfi/lendcore/internal/domain"
)

// LedgerStore persists asset and position snapshots. The in-memory engine
// stays authoritative; rows here are write-behind copies read once at boot.
type LedgerStore struct {
	pool *pgxpool.Pool
}

// NewLedgerStore creates a ledger store backed by the given client.
func NewLedgerStore(client *Client) *LedgerStore {
	return &LedgerStore{pool: client.Pool()}
}

var _ domain.LedgerStore = (*LedgerStore)(nil)

const upsertAssetQuery = `
	INSERT INTO assets (symbol, ltv_ratio, liquidation_threshold, active, pair_id, last_price, last_update)
	VALUES ($1, $2, $3, $4, $5, $6::numeric, $7)
	ON CONFLICT (symbol) DO UPDATE SET
		ltv_ratio = EXCLUDED.ltv_ratio,
		liquidation_threshold = EXCLUDED.liquidation_threshold,
		active = EXCLUDED.active,
		pair_id = EXCLUDED.pair_id,
		last_price = EXCLUDED.last_price,
		last_update = EXCLUDED.last_update,
		updated_at = NOW()`

// UpsertAsset writes one asset snapshot.
func (s *LedgerStore) UpsertAsset(ctx context.Context, cfg domain.AssetConfig) error {
	_, err := s.pool.Exec(ctx, upsertAssetQuery,
		cfg.Symbol,
		int64(cfg.LTVRatio),
		int64(cfg.LiquidationThreshold),
		cfg.Active,
		cfg.PairID,
		strconv.FormatUint(cfg.LastPrice, 10),
		cfg.LastUpdate,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert asset %s: %w", cfg.Symbol, err)
	}
	return nil
}

const upsertPositionQuery = `
	INSERT INTO positions (account, collateral, debt, last_update)
	VALUES ($1, $2::jsonb, $3::jsonb, $4)
	ON CONFLICT (account) DO UPDATE SET
		collateral = EXCLUDED.collateral,
		debt = EXCLUDED.debt,
		last_update = EXCLUDED.last_update,
		updated_at = NOW()`

// UpsertPosition writes one position snapshot. Balance maps are stored as
// JSONB; uint64 amounts survive the round trip because jsonb keeps numbers
// as exact numerics.
func (s *LedgerStore) UpsertPosition(ctx context.Context, pos domain.Position) error {
	collateral, err := json.Marshal(pos.Collateral)
	if err != nil {
		return fmt.Errorf("postgres: marshal collateral for %s: %w", pos.User, err)
	}
	debt, err := json.Marshal(pos.Debt)
	if err != nil {
		return fmt.Errorf("postgres: marshal debt for %s: %w", pos.User, err)
	}
	_, err = s.pool.Exec(ctx, upsertPositionQuery,
		pos.User, string(collateral), string(debt), pos.LastUpdate)
	if err != nil {
		return fmt.Errorf("postgres: upsert position %s: %w", pos.User, err)
	}
	return nil
}

const loadAssetsQuery = `
	SELECT symbol, ltv_ratio, liquidation_threshold, active, pair_id, last_price::text, last_update
	FROM assets
	ORDER BY created_at, symbol`

// LoadAssets returns every stored asset in registration order.
func (s *LedgerStore) LoadAssets(ctx context.Context) ([]domain.AssetConfig, error) {
	rows, err := s.pool.Query(ctx, loadAssetsQuery)
	if err != nil {
		return nil, fmt.Errorf("postgres: load assets: %w", err)
	}
	defer rows.Close()

	var assets []domain.AssetConfig
	for rows.Next() {
		var (
			cfg       domain.AssetConfig
			ltv       int64
			threshold int64
			price     string
		)
		if err := rows.Scan(&cfg.Symbol, &ltv, &threshold, &cfg.Active, &cfg.PairID, &price, &cfg.LastUpdate); err != nil {
			return nil, fmt.Errorf("postgres: scan asset: %w", err)
		}
		cfg.LTVRatio = uint64(ltv)
		cfg.LiquidationThreshold = uint64(threshold)
		cfg.LastPrice, err = strconv.ParseUint(price, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("postgres: parse price for %s: %w", cfg.Symbol, err)
		}
		assets = append(assets, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate assets: %w", err)
	}
	return assets, nil
}

const loadPositionsQuery = `
	SELECT account, collateral, debt, last_update
	FROM positions
	ORDER BY account`

// LoadPositions returns every stored position snapshot.
func (s *LedgerStore) LoadPositions(ctx context.Context) ([]domain.Position, error) {
	rows, err := s.pool.Query(ctx, loadPositionsQuery)
	if err != nil {
		return nil, fmt.Errorf("postgres: load positions: %w", err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		var (
			pos        domain.Position
			collateral []byte
			debt       []byte
		)
		if err := rows.Scan(&pos.User, &collateral, &debt, &pos.LastUpdate); err != nil {
			return nil, fmt.Errorf("postgres: scan position: %w", err)
		}
		if err := json.Unmarshal(collateral, &pos.Collateral); err != nil {
			return nil, fmt.Errorf("postgres: decode collateral for %s: %w", pos.User, err)
		}
		if err := json.Unmarshal(debt, &pos.Debt); err != nil {
			return nil, fmt.Errorf("postgres: decode debt for %s: %w", pos.User, err)
		}
		if pos.Collateral == nil {
			pos.Collateral = make(map[string]uint64)
		}
		if pos.Debt == nil {
			pos.Debt = make(map[string]uint64)
		}
		positions = append(positions, pos)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate positions: %w", err)
	}
	return positions, nil
}
