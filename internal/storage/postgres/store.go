package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"liquidityCurve/internal/model"
	"liquidityCurve/internal/storage"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS pool_state (
	name        text PRIMARY KEY,
	address     text NOT NULL,
	version     integer NOT NULL,
	state       jsonb NOT NULL,
	updated_at  timestamptz NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS pool_window_metrics (
	pool                text NOT NULL,
	window_size_seconds bigint NOT NULL,
	window_start_ts     timestamptz NOT NULL,
	window_end_ts       timestamptz NOT NULL,
	swap_count          bigint NOT NULL,
	volume_x            numeric NOT NULL,
	volume_y            numeric NOT NULL,
	fee_x               numeric NOT NULL,
	fee_y               numeric NOT NULL,
	reserve_x           numeric,
	reserve_y           numeric,
	fee_rate_x          numeric,
	fee_rate_y          numeric,
	apr                 numeric,
	last_tick           integer NOT NULL,
	last_sqrt_price     numeric NOT NULL,
	created_at          timestamptz NOT NULL DEFAULT now(),
	updated_at          timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (pool, window_size_seconds, window_start_ts)
);
CREATE TABLE IF NOT EXISTS report_state (
	name              text PRIMARY KEY,
	last_processed_ts bigint NOT NULL,
	updated_at        timestamptz NOT NULL DEFAULT now()
);
`

// Store provides Postgres persistence for pool snapshots and report metrics.
type Store struct {
	pool *pgxpool.Pool
}

var _ storage.StateStore = (*Store)(nil)

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables used by the store.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// SavePool upserts a pool snapshot.
func (s *Store) SavePool(ctx context.Context, state model.PoolState) error {
	if state.Name == "" {
		return fmt.Errorf("pool name required")
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal pool %s: %w", state.Name, err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO pool_state (name, address, version, state, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (name) DO UPDATE
		SET address = EXCLUDED.address,
			version = EXCLUDED.version,
			state = EXCLUDED.state,
			updated_at = now()
	`, state.Name, state.Address.Hex(), state.Version, data)
	return err
}

// LoadPool returns the stored snapshot of a pool.
func (s *Store) LoadPool(ctx context.Context, name string) (model.PoolState, error) {
	var data []byte
	row := s.pool.QueryRow(ctx, `SELECT state FROM pool_state WHERE name=$1`, name)
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.PoolState{}, fmt.Errorf("%w: %s", storage.ErrPoolNotFound, name)
		}
		return model.PoolState{}, err
	}
	var state model.PoolState
	if err := json.Unmarshal(data, &state); err != nil {
		return model.PoolState{}, fmt.Errorf("decode pool %s: %w", name, err)
	}
	return state, nil
}

// UpsertWindowMetrics inserts or updates window metrics.
func (s *Store) UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error {
	if len(metrics) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range metrics {
		batch.Queue(`
			INSERT INTO pool_window_metrics (
				pool, window_size_seconds, window_start_ts, window_end_ts,
				swap_count, volume_x, volume_y, fee_x, fee_y, reserve_x, reserve_y,
				fee_rate_x, fee_rate_y, apr, last_tick, last_sqrt_price, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,now(),now())
			ON CONFLICT (pool, window_size_seconds, window_start_ts)
			DO UPDATE SET
				window_end_ts = EXCLUDED.window_end_ts,
				swap_count = EXCLUDED.swap_count,
				volume_x = EXCLUDED.volume_x,
				volume_y = EXCLUDED.volume_y,
				fee_x = EXCLUDED.fee_x,
				fee_y = EXCLUDED.fee_y,
				reserve_x = EXCLUDED.reserve_x,
				reserve_y = EXCLUDED.reserve_y,
				fee_rate_x = EXCLUDED.fee_rate_x,
				fee_rate_y = EXCLUDED.fee_rate_y,
				apr = EXCLUDED.apr,
				last_tick = EXCLUDED.last_tick,
				last_sqrt_price = EXCLUDED.last_sqrt_price,
				updated_at = now()
		`,
			m.Pool,
			m.WindowSizeSecs,
			m.WindowStart,
			m.WindowEnd,
			int64(m.SwapCount),
			m.VolumeX,
			m.VolumeY,
			m.FeeX,
			m.FeeY,
			m.ReserveX,
			m.ReserveY,
			m.FeeRateX,
			m.FeeRateY,
			m.APR,
			m.LastTick,
			m.LastSqrtPrice,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range metrics {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// LoadState returns last_processed_ts for a name.
func (s *Store) LoadState(ctx context.Context, name string) (int64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var ts int64
	row := s.pool.QueryRow(ctx, `SELECT last_processed_ts FROM report_state WHERE name=$1`, name)
	if err := row.Scan(&ts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return ts, true, nil
}

// SaveState upserts last_processed_ts for a name.
func (s *Store) SaveState(ctx context.Context, name string, ts int64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO report_state (name, last_processed_ts, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_processed_ts = EXCLUDED.last_processed_ts, updated_at = now()
	`, name, ts)
	return err
}
