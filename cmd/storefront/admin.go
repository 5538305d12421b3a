// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package main

import (
	"bufio"
	"context"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/storefront/storefront/internal/auth"
	authpg "github.com/storefront/storefront/internal/auth/postgres"
	"github.com/storefront/storefront/internal/config"
	"github.com/storefront/storefront/internal/store"
)

// NewAdminCmd creates the admin subcommand.
func NewAdminCmd() *cobra.Command {
	return newAdminCmdWithDeps(nil)
}

func newAdminCmdWithDeps(deps *AdminDeps) *cobra.Command {
	if deps == nil {
		deps = &AdminDeps{}
	}
	if deps.PrincipalsFactory == nil {
		deps.PrincipalsFactory = postgresPrincipals
	}

	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin accounts",
		Long:  `Manage admin accounts. Admins cannot self-register over HTTP.`,
	}
	cmd.PersistentFlags().String("database-url", "", "PostgreSQL connection URL")

	create := &cobra.Command{
		Use:   "create",
		Short: "Create an admin account",
		Long: `Create an admin account. When --password is omitted the password
is read from the first line of standard input.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAdminCreate(cmd.Context(), cmd, deps)
		},
	}
	create.Flags().String("email", "", "admin email address")
	create.Flags().String("password", "", "admin password (default: read from stdin)")
	cmd.AddCommand(create)

	return cmd
}

func runAdminCreate(ctx context.Context, cmd *cobra.Command, deps *AdminDeps) error {
	if ctx == nil {
		ctx = context.Background()
	}
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")

	if strings.TrimSpace(email) == "" {
		return oops.Code("INVALID_ARGUMENT").With("flag", "email").Errorf("--email is required")
	}
	if password == "" {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return oops.Code("INVALID_ARGUMENT").With("flag", "password").Errorf("--password is required or must be piped on stdin")
		}
		password = strings.TrimRight(line, "\r\n")
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	principals, release, err := deps.PrincipalsFactory(ctx, cfg)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer release()

	tokens, err := auth.NewTokenIssuer([]byte(cfg.Auth.JWTSecret), auth.WithTokenTTL(cfg.Auth.TokenTTL))
	if err != nil {
		return err
	}
	authn, err := auth.NewAuthenticator(principals, auth.NewBcryptHasher(cfg.Auth.BcryptCost), tokens)
	if err != nil {
		return err
	}

	// Admin accounts carry no profile names.
	admin, err := authn.Register(ctx, auth.KindAdmin, email, password, auth.Profile{})
	if err != nil {
		return err
	}
	cmd.Printf("Created admin %s (%s)\n", admin.Email, admin.ID)
	return nil
}

func postgresPrincipals(ctx context.Context, cfg *config.Config) (auth.PrincipalRepository, func(), error) {
	pool, err := store.Connect(ctx, cfg.Database.URL, store.DefaultConnectConfig())
	if err != nil {
		return nil, nil, err
	}
	return authpg.NewPrincipalRepository(pool), pool.Close, nil
}
