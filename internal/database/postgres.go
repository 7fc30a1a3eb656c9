package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/networth-optimizer/web/internal/config"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS financial_profiles (
	user_id UUID PRIMARY KEY,
	profile JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// Open открывает пул подключений к PostgreSQL с ретраями и создает схему.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, cfgErr := pgxpool.ParseConfig(cfg.DSN())
	if cfgErr != nil {
		return nil, fmt.Errorf("parse database config: %w", cfgErr)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	// MaxIdleConns maps closest to MinConns in pgxpool.
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnIdleTime = cfg.ConnMaxIdleTime
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime

	var pool *pgxpool.Pool
	var err error

	retries := 5
	backoff := time.Second * 1

	for i := 0; i < retries; i++ {
		pool, err = pgxpool.NewWithConfig(ctx, poolConfig)
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = pool.Ping(pingCtx)
			cancel()

			if err == nil {
				if err := migratePostgres(ctx, pool); err != nil {
					pool.Close()
					return nil, err
				}
				return pool, nil
			}
		}

		if pool != nil {
			pool.Close()
		}

		slog.Warn("postgres connection attempt failed",
			slog.Int("attempt", i+1),
			slog.Int("retries", retries),
			slog.Duration("backoff", backoff),
			slog.String("error", err.Error()),
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
		}
	}

	return nil, fmt.Errorf("connect to postgres after %d attempts: %w", retries, err)
}

func migratePostgres(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("migrate postgres: %w", err)
	}
	return nil
}
