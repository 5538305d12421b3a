// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/storefront/storefront/internal/address"
	"github.com/storefront/storefront/internal/auth"
	authpg "github.com/storefront/storefront/internal/auth/postgres"
	"github.com/storefront/storefront/internal/blob"
	"github.com/storefront/storefront/internal/catalog"
	"github.com/storefront/storefront/internal/config"
	"github.com/storefront/storefront/internal/httpapi"
	"github.com/storefront/storefront/internal/logging"
	"github.com/storefront/storefront/internal/notify"
	"github.com/storefront/storefront/internal/observability"
	"github.com/storefront/storefront/internal/pricing"
	"github.com/storefront/storefront/internal/store"
	"github.com/storefront/storefront/internal/telemetry"
)

const (
	serviceName     = "storefront"
	shutdownTimeout = 5 * time.Second
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the storefront HTTP API together with the metrics and health
server. Settings come from defaults, the --config file, STOREFRONT_*
environment variables and the flags below, in increasing precedence.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeWithDeps(cmd.Context(), cmd, nil)
		},
	}

	cmd.Flags().String("addr", httpapi.DefaultAddr, "HTTP API listen address")
	cmd.Flags().String("database-url", "", "PostgreSQL connection URL")
	cmd.Flags().String("log-format", "json", "log format (json or text)")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	cmd.Flags().String("metrics-addr", "127.0.0.1:9100", "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("reset-store", config.ResetStoreMemory, "reset code store (memory or postgres)")
	cmd.Flags().String("notify", notify.ProviderLog, "reset code delivery (log, smtp, webhook or a webhook URL)")
	cmd.Flags().String("otlp-endpoint", "", "OTLP gRPC trace endpoint (empty = tracing disabled)")

	return cmd
}

// runServeWithDeps starts the API with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cmd *cobra.Command, deps *ServeDeps) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.PoolFactory == nil {
		deps.PoolFactory = func(ctx context.Context, url string, cfg store.ConnectConfig) (DBPool, error) {
			return store.Connect(ctx, url, cfg)
		}
	}
	if deps.MigratorFactory == nil {
		deps.MigratorFactory = func(url string) (Migrator, error) {
			return store.NewMigrator(url)
		}
	}
	if deps.BlobStoreFactory == nil {
		deps.BlobStoreFactory = newBlobStore
	}
	if deps.NotifierFactory == nil {
		deps.NotifierFactory = func(cfg notify.Config, logger *slog.Logger) (auth.Notifier, error) {
			return notify.New(cfg, logger)
		}
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}
	if deps.TelemetrySetup == nil {
		deps.TelemetrySetup = telemetry.Setup
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.SetDefault(serviceName, version, cfg.Logging.Format, cfg.Logging.Level)
	logger.Info("starting storefront",
		"addr", cfg.Server.Addr,
		"reset_store", cfg.Reset.Store,
		"notify", cfg.Notify.Provider,
		"blob", cfg.Blob.Backend,
	)

	shutdownTracing, err := deps.TelemetrySetup(ctx, serviceName, version, cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("error flushing traces", "error", err)
		}
	}()

	if cfg.Database.AutoMigrate {
		if err := runAutoMigration(cfg.Database.URL, func(url string) (AutoMigrator, error) {
			return deps.MigratorFactory(url)
		}); err != nil {
			return err
		}
	}

	connectCfg := store.DefaultConnectConfig()
	if cfg.Database.MaxConns > 0 {
		connectCfg.MaxConns = cfg.Database.MaxConns
	}
	pool, err := deps.PoolFactory(ctx, cfg.Database.URL, connectCfg)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()

	// Set up graceful shutdown
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var ready atomic.Bool
	var obsServer ObservabilityServer
	var metrics *observability.Metrics
	if cfg.Observability.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Observability.Addr, ready.Load)
		metrics = obsServer.Metrics()
	}

	blobs, uploads, err := deps.BlobStoreFactory(ctx, cfg.Blob)
	if err != nil {
		return err
	}
	notifier, err := deps.NotifierFactory(cfg.Notify, logger)
	if err != nil {
		return err
	}

	services, err := buildServices(cfg, pool, blobs, notifier, metrics, logger)
	if err != nil {
		return err
	}
	defer services.close()

	apiDeps := httpapi.Deps{
		Auth:      services.authn,
		Resets:    services.resets,
		Catalog:   services.catalog,
		Addresses: services.addresses,
		Pricing:   services.pricing,
		Uploads:   uploads,
		Logger:    logger,
	}
	if obsServer != nil {
		apiDeps.Observer = metrics
		apiDeps.Registerer = obsServer.Registerer()
	}
	api, err := httpapi.NewServer(cfg.Server, apiDeps)
	if err != nil {
		return err
	}
	defer api.Close()

	apiErrCh, err := api.Start()
	if err != nil {
		return oops.Code("SERVER_START_FAILED").With("addr", cfg.Server.Addr).Wrap(err)
	}
	// Monitor API server errors in background - cancel context on error
	go monitorServerErrors(ctx, cancel, apiErrCh, "api")

	if obsServer != nil {
		obsErrCh, err := obsServer.Start()
		if err != nil {
			stopServer(api, "api")
			return oops.Code("SERVER_START_FAILED").With("addr", cfg.Observability.Addr).Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability")
	}

	if services.sweep != nil {
		go runSweeper(ctx, services.sweep, cfg.Reset.SweepInterval, logger)
	}

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	ready.Store(true)
	cmd.Println("Storefront API listening on " + api.Addr())
	logger.Info("storefront ready", "addr", api.Addr())

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	ready.Store(false)
	logger.Info("shutting down...")
	stopServer(api, "api")
	if obsServer != nil {
		stopServer(obsServer, "observability")
	}

	logger.Info("shutdown complete")
	return nil
}

type stopper interface {
	Stop(ctx context.Context) error
}

func stopServer(s stopper, name string) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Stop(shutdownCtx); err != nil {
		slog.Warn("error stopping server", "server", name, "error", err)
	}
}

// services are the domain services behind the API.
type services struct {
	authn     *auth.Authenticator
	resets    *auth.ResetCoordinator
	catalog   *catalog.Service
	addresses *address.Service
	pricing   *pricing.Service

	// sweep is set when expired resets must be deleted by a background
	// loop rather than by the store itself.
	sweep   *auth.ResetCoordinator
	closers []func()
}

func (s *services) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// buildServices wires repositories and services over pool. metrics may be nil.
func buildServices(
	cfg *config.Config,
	pool store.Pool,
	blobs blob.Store,
	notifier auth.Notifier,
	metrics *observability.Metrics,
	logger *slog.Logger,
) (*services, error) {
	svc := &services{}

	authOpts := []auth.Option{auth.WithLogger(logger)}
	if metrics != nil {
		authOpts = append(authOpts, auth.WithEvents(metrics))
	}

	tokens, err := auth.NewTokenIssuer([]byte(cfg.Auth.JWTSecret), auth.WithTokenTTL(cfg.Auth.TokenTTL))
	if err != nil {
		return nil, err
	}
	principals := authpg.NewPrincipalRepository(pool)
	svc.authn, err = auth.NewAuthenticator(principals, auth.NewBcryptHasher(cfg.Auth.BcryptCost), tokens, authOpts...)
	if err != nil {
		return nil, err
	}

	var resetStore auth.ResetStore
	switch cfg.Reset.Store {
	case config.ResetStoreMemory:
		mem := auth.NewMemoryResetStore(cfg.Reset.SweepInterval)
		svc.closers = append(svc.closers, mem.Close)
		resetStore = mem
	default:
		resetStore = authpg.NewResetStore(pool)
	}
	svc.resets, err = auth.NewResetCoordinator(principals, resetStore, notifier, svc.authn, cfg.Reset.Coordinator(), authOpts...)
	if err != nil {
		return nil, err
	}
	if cfg.Reset.Store != config.ResetStoreMemory && cfg.Reset.SweepInterval > 0 {
		svc.sweep = svc.resets
	}

	svc.catalog, err = catalog.NewService(catalog.NewPostgresRepository(pool), blobs, catalog.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	svc.addresses, err = address.NewService(address.NewPostgresRepository(pool))
	if err != nil {
		return nil, err
	}
	svc.pricing, err = pricing.NewService(pricing.NewCalculator(), pricing.NewPostgresRecorder(pool), pricing.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// newBlobStore builds the configured image store. In-process images are
// served by the API itself, so the memory store doubles as the handler.
func newBlobStore(ctx context.Context, cfg config.BlobConfig) (blob.Store, http.Handler, error) {
	switch cfg.Backend {
	case config.BlobS3:
		s3, err := blob.NewS3Store(ctx, cfg.S3)
		if err != nil {
			return nil, nil, oops.Code("BLOB_SETUP_FAILED").With("bucket", cfg.S3.Bucket).Wrap(err)
		}
		return s3, nil, nil
	default:
		mem := blob.NewMemoryStore(cfg.BaseURL)
		return mem, mem, nil
	}
}

// expirySweeper deletes expired reset entries.
type expirySweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// runSweeper deletes expired reset entries every interval until ctx ends.
// Expiry is enforced on read, so a failed sweep only delays cleanup.
func runSweeper(ctx context.Context, sweeper expirySweeper, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sweeper.SweepExpired(ctx)
			if err != nil {
				logger.Warn("reset sweep failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Debug("swept expired resets", "count", n)
			}
		}
	}
}

// AutoMigrator is the part of a migrator auto-migration needs.
type AutoMigrator interface {
	Up() error
	Close() error
}

// runAutoMigration applies pending migrations before serving.
func runAutoMigration(databaseURL string, factory func(string) (AutoMigrator, error)) error {
	migrator, err := factory(databaseURL)
	if err != nil {
		return oops.Code("MIGRATION_INIT_FAILED").With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			slog.Warn("error closing migrator", "error", closeErr, "note", "connection may leak")
		}
	}()

	if err := migrator.Up(); err != nil {
		return oops.Code("AUTO_MIGRATION_FAILED").With("operation", "apply migrations").Wrap(err)
	}
	slog.Info("database migrations applied")
	return nil
}

// monitorServerErrors monitors a server's error channel and cancels the context on error.
// It exits when either an error is received, the channel is closed, or the context is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			// Channel closed, server stopped gracefully
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
