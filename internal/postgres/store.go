// Package postgres implements store.Store on PostgreSQL with pgx.
package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/youth-scoreboard/internal/config"
	"github.com/youth-scoreboard/internal/store"
)

// Store provides PostgreSQL-based data access
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates a new PostgreSQL store
func NewStore(cfg *config.PostgresConfig, logger *slog.Logger) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return NewStoreWithPool(pool, logger), nil
}

// NewStoreWithPool wraps an existing pool
func NewStoreWithPool(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	return &Store{
		pool:   pool,
		logger: logger,
	}
}

// Close closes the database connection pool
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Pool returns the underlying connection pool
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// Ping checks that the database answers
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Update implements store.Store. The match row read through Matches().Get
// is locked until commit, so mutations of one match serialize.
func (s *Store) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(t pgx.Tx) error {
		return fn(&tx{q: t, lock: true})
	})
}

// View implements store.Store
func (s *Store) View(ctx context.Context, fn func(tx store.Tx) error) error {
	opts := pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	}
	return pgx.BeginTxFunc(ctx, s.pool, opts, func(t pgx.Tx) error {
		return fn(&tx{q: t})
	})
}

// RunMigrations executes database migrations
func (s *Store) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS teams (
			id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			club_name VARCHAR(255) NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS players (
			id VARCHAR(64) PRIMARY KEY,
			team_id VARCHAR(64) NOT NULL,
			name VARCHAR(255) NOT NULL,
			number INT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS coaches (
			id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			pin VARCHAR(32) NOT NULL,
			team_ids TEXT[] NOT NULL DEFAULT '{}'
		)`,
		`CREATE TABLE IF NOT EXISTS referees (
			id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			pin VARCHAR(32) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS matches (
			id VARCHAR(64) PRIMARY KEY,
			public_code VARCHAR(6) NOT NULL,
			team_id VARCHAR(64) NOT NULL,
			coach_pin VARCHAR(32) NOT NULL DEFAULT '',
			opponent VARCHAR(255) NOT NULL,
			is_home BOOLEAN NOT NULL DEFAULT FALSE,
			scheduled_at TIMESTAMPTZ,
			status VARCHAR(20) NOT NULL,
			current_quarter INT NOT NULL DEFAULT 1,
			quarter_count INT NOT NULL,
			started_at TIMESTAMPTZ,
			finished_at TIMESTAMPTZ,
			quarter_started_at TIMESTAMPTZ,
			paused_at TIMESTAMPTZ,
			accumulated_pause_ms BIGINT NOT NULL DEFAULT 0,
			home_score INT NOT NULL DEFAULT 0,
			away_score INT NOT NULL DEFAULT 0,
			show_lineup BOOLEAN NOT NULL DEFAULT FALSE,
			lead_coach_id VARCHAR(64) NOT NULL DEFAULT '',
			referee_id VARCHAR(64) NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT matches_public_code_key UNIQUE (public_code)
		)`,
		`CREATE TABLE IF NOT EXISTS match_players (
			id VARCHAR(64) PRIMARY KEY,
			match_id VARCHAR(64) NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
			player_id VARCHAR(64) NOT NULL,
			is_keeper BOOLEAN NOT NULL DEFAULT FALSE,
			on_field BOOLEAN NOT NULL DEFAULT FALSE,
			absent BOOLEAN NOT NULL DEFAULT FALSE,
			field_slot_index INT,
			minutes_played DOUBLE PRECISION NOT NULL DEFAULT 0,
			last_subbed_in_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (match_id, player_id)
		)`,
		`CREATE TABLE IF NOT EXISTS match_events (
			seq BIGSERIAL PRIMARY KEY,
			id VARCHAR(64) NOT NULL UNIQUE,
			match_id VARCHAR(64) NOT NULL REFERENCES matches(id) ON DELETE CASCADE,
			type VARCHAR(20) NOT NULL,
			player_id VARCHAR(64) NOT NULL DEFAULT '',
			related_player_id VARCHAR(64) NOT NULL DEFAULT '',
			quarter INT NOT NULL,
			is_own_goal BOOLEAN NOT NULL DEFAULT FALSE,
			is_opponent_goal BOOLEAN NOT NULL DEFAULT FALSE,
			occurred_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_team ON matches(team_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_status ON matches(status, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_match_players_match ON match_players(match_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_match_events_match ON match_events(match_id, seq)`,
		`CREATE INDEX IF NOT EXISTS idx_match_events_match_type ON match_events(match_id, type, seq)`,
		`CREATE INDEX IF NOT EXISTS idx_coaches_pin ON coaches(pin)`,
		`CREATE INDEX IF NOT EXISTS idx_referees_pin ON referees(pin)`,
	}

	for _, migration := range migrations {
		_, err := s.pool.Exec(ctx, migration)
		if err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	s.logger.Info("database migrations completed")
	return nil
}
