// Package store is the persistent datastore shared by the Admin API and
// the Prober Core. Monitor rows are written only by the API; Observation
// and Incident rows are written only by the Prober (see spec.md §5).
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/upwatch/upwatch/internal/config"
)

// Store wraps a pgx connection pool and exposes the monitor/observation/
// incident/notification repositories as methods.
type Store struct {
	pool *pgxpool.Pool
}

// Open establishes a pooled connection to Postgres. It does not run
// migrations; call RunMigrations once at startup after Open succeeds.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}

	if cfg.Pool.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.Pool.MaxConns)
	}
	if cfg.Pool.MinConns > 0 {
		poolCfg.MinConns = int32(cfg.Pool.MinConns)
	}
	if cfg.Pool.MaxConnLifetimeMinutes > 0 {
		poolCfg.MaxConnLifetime = cfg.Pool.GetMaxConnLifetime()
	}
	if cfg.Pool.MaxConnIdleTimeMinutes > 0 {
		poolCfg.MaxConnIdleTime = cfg.Pool.GetMaxConnIdleTime()
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Pool exposes the underlying pgxpool.Pool for callers that need direct
// access.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// RunMigrations applies all pending goose migrations. goose operates on
// a database/sql handle, so this opens a second, short-lived connection
// via pgx's stdlib adapter purely for the migration run.
func RunMigrations(ctx context.Context, cfg config.DatabaseConfig) error {
	connCfg, err := pgx.ParseConfig(cfg.GetDSN())
	if err != nil {
		return fmt.Errorf("parse database dsn: %w", err)
	}

	db := stdlib.OpenDB(*connCfg)
	defer db.Close()

	goose.SetBaseFS(EmbeddedMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}
