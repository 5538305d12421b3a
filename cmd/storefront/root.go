// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/storefront/storefront/internal/config"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the storefront CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "storefront",
		Short: "Storefront - shop accounts, catalog and pricing API",
		Long: `Storefront serves the shop HTTP API: user and admin accounts with
emailed password reset codes, the product catalog, addresses and
price calculations, backed by PostgreSQL.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (YAML)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewAdminCmd())
	cmd.AddCommand(NewConfigCmd())

	return cmd
}

// loadConfig layers defaults, the --config file, the environment and the
// command's own flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	return config.Load(config.Options{File: configFile, Flags: cmd.Flags()})
}
