// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package main

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/storefront/storefront/internal/auth"
	"github.com/storefront/storefront/internal/blob"
	"github.com/storefront/storefront/internal/config"
	"github.com/storefront/storefront/internal/notify"
	"github.com/storefront/storefront/internal/observability"
	"github.com/storefront/storefront/internal/store"
	"github.com/storefront/storefront/internal/telemetry"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// PoolFactory opens the database pool.
	// Default: store.Connect
	PoolFactory func(ctx context.Context, url string, cfg store.ConnectConfig) (DBPool, error)

	// MigratorFactory opens a schema migrator for auto-migration.
	// Default: store.NewMigrator
	MigratorFactory func(url string) (Migrator, error)

	// BlobStoreFactory builds the image store. The handler serves stored
	// images when they are kept in process and is nil otherwise.
	// Default: newBlobStore
	BlobStoreFactory func(ctx context.Context, cfg config.BlobConfig) (blob.Store, http.Handler, error)

	// NotifierFactory builds the reset code sender.
	// Default: notify.New
	NotifierFactory func(cfg notify.Config, logger *slog.Logger) (auth.Notifier, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer

	// TelemetrySetup installs the trace exporter.
	// Default: telemetry.Setup
	TelemetrySetup func(ctx context.Context, service, version string, cfg telemetry.Config) (telemetry.ShutdownFunc, error)
}

// MigrateDeps contains injectable dependencies for the migrate command.
type MigrateDeps struct {
	// MigratorFactory opens a schema migrator.
	// Default: store.NewMigrator
	MigratorFactory func(url string) (Migrator, error)
}

// AdminDeps contains injectable dependencies for the admin command.
type AdminDeps struct {
	// PrincipalsFactory opens the principal repository. The returned func
	// releases it.
	// Default: a PostgreSQL repository over store.Connect
	PrincipalsFactory func(ctx context.Context, cfg *config.Config) (auth.PrincipalRepository, func(), error)
}

// DBPool wraps the methods used from *pgxpool.Pool.
type DBPool interface {
	store.Pool
	Ping(ctx context.Context) error
	Close()
}

// Migrator wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	PendingMigrations() ([]uint, error)
	AppliedMigrations() ([]uint, error)
	Close() error
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
	Registerer() prometheus.Registerer
}

var (
	_ DBPool              = (*pgxpool.Pool)(nil)
	_ Migrator            = (*store.Migrator)(nil)
	_ ObservabilityServer = (*observability.Server)(nil)
)
