// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

//go:build integration

// Package integration provides end-to-end tests of the storefront API
// against PostgreSQL.
package integration

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"

	"github.com/storefront/storefront/internal/address"
	"github.com/storefront/storefront/internal/auth"
	"github.com/storefront/storefront/internal/auth/authtest"
	authpg "github.com/storefront/storefront/internal/auth/postgres"
	"github.com/storefront/storefront/internal/blob"
	"github.com/storefront/storefront/internal/catalog"
	"github.com/storefront/storefront/internal/httpapi"
	"github.com/storefront/storefront/internal/pricing"
	"github.com/storefront/storefront/internal/store"
)

// testEnv holds the resources shared by every spec.
type testEnv struct {
	container *postgres.PostgresContainer
	pool      *pgxpool.Pool
	server    *httpapi.Server
	baseURL   string
	authn     *auth.Authenticator
	notifier  *authtest.CaptureNotifier
}

var env *testEnv

func TestIntegration(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Integration Suite")
}

var _ = BeforeSuite(func() {
	ctx := context.Background()
	env = &testEnv{notifier: authtest.NewCaptureNotifier()}

	var err error
	env.container, err = postgres.Run(ctx,
		"postgres:18-alpine",
		postgres.WithDatabase("storefront_test"),
		postgres.WithUsername("storefront"),
		postgres.WithPassword("storefront"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	Expect(err).NotTo(HaveOccurred())

	connStr, err := env.container.ConnectionString(ctx, "sslmode=disable")
	Expect(err).NotTo(HaveOccurred())

	migrator, err := store.NewMigrator(connStr)
	Expect(err).NotTo(HaveOccurred())
	Expect(migrator.Up()).To(Succeed())
	Expect(migrator.Close()).To(Succeed())

	env.pool, err = store.Connect(ctx, connStr, store.DefaultConnectConfig())
	Expect(err).NotTo(HaveOccurred())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	principals := authpg.NewPrincipalRepository(env.pool)

	tokens, err := auth.NewTokenIssuer([]byte("integration-secret-0123456789abcdef"))
	Expect(err).NotTo(HaveOccurred())
	env.authn, err = auth.NewAuthenticator(principals, auth.NewBcryptHasher(bcrypt.MinCost), tokens, auth.WithLogger(logger))
	Expect(err).NotTo(HaveOccurred())
	resets, err := auth.NewResetCoordinator(principals, authpg.NewResetStore(env.pool), env.notifier, env.authn, auth.ResetConfig{}, auth.WithLogger(logger))
	Expect(err).NotTo(HaveOccurred())

	images := blob.NewMemoryStore("/uploads")
	products, err := catalog.NewService(catalog.NewPostgresRepository(env.pool), images, catalog.WithLogger(logger))
	Expect(err).NotTo(HaveOccurred())
	addresses, err := address.NewService(address.NewPostgresRepository(env.pool))
	Expect(err).NotTo(HaveOccurred())
	prices, err := pricing.NewService(pricing.NewCalculator(), pricing.NewPostgresRecorder(env.pool), pricing.WithLogger(logger))
	Expect(err).NotTo(HaveOccurred())

	env.server, err = httpapi.NewServer(httpapi.Config{Addr: "127.0.0.1:0"}, httpapi.Deps{
		Auth:      env.authn,
		Resets:    resets,
		Catalog:   products,
		Addresses: addresses,
		Pricing:   prices,
		Uploads:   images,
		Logger:    logger,
	})
	Expect(err).NotTo(HaveOccurred())
	_, err = env.server.Start()
	Expect(err).NotTo(HaveOccurred())
	env.baseURL = "http://" + env.server.Addr()
})

var _ = AfterSuite(func() {
	if env == nil {
		return
	}
	if env.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		Expect(env.server.Stop(ctx)).To(Succeed())
		env.server.Close()
	}
	if env.pool != nil {
		env.pool.Close()
	}
	if env.container != nil {
		Expect(env.container.Terminate(context.Background())).To(Succeed())
	}
})
