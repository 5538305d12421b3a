// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

// Package store provides the PostgreSQL connection pool and schema migrations.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Pool is the subset of *pgxpool.Pool the repositories use.
// pgxmock.PgxPoolIface satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ Pool = (*pgxpool.Pool)(nil)

// ConnectConfig tunes Connect.
type ConnectConfig struct {
	MaxConns      int32
	RetryBase     time.Duration
	RetryAttempts uint64
}

// DefaultConnectConfig returns the defaults used by the serve command.
func DefaultConnectConfig() ConnectConfig {
	return ConnectConfig{
		MaxConns:      10,
		RetryBase:     250 * time.Millisecond,
		RetryAttempts: 6,
	}
}

// pingFunc is replaced in tests.
var pingFunc = func(ctx context.Context, pool *pgxpool.Pool) error {
	return pool.Ping(ctx)
}

// Connect opens a pool and waits for the database to answer, retrying with
// exponential backoff. The returned pool must be closed by the caller.
func Connect(ctx context.Context, dsn string, cfg ConnectConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").With("operation", "parse dsn").Wrap(err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}

	if cfg.RetryBase <= 0 {
		cfg.RetryBase = DefaultConnectConfig().RetryBase
	}
	backoff := retry.WithMaxRetries(cfg.RetryAttempts, retry.NewExponential(cfg.RetryBase))

	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := pingFunc(ctx, pool); err != nil {
			slog.WarnContext(ctx, "database not ready", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("operation", "ping").
			With("attempts", attempt).
			Wrap(err)
	}

	slog.InfoContext(ctx, "connected to database", "host", poolCfg.ConnConfig.Host, "attempts", attempt)
	return pool, nil
}
