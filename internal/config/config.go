// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

// Package config loads storefront configuration from defaults, an optional
// YAML file, the environment and command-line flags, in that order.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/storefront/storefront/internal/auth"
	"github.com/storefront/storefront/internal/blob"
	"github.com/storefront/storefront/internal/httpapi"
	"github.com/storefront/storefront/internal/logging"
	"github.com/storefront/storefront/internal/notify"
	"github.com/storefront/storefront/internal/telemetry"
)

// EnvPrefix prefixes every environment override. A double underscore
// separates levels: STOREFRONT_AUTH__JWT_SECRET sets auth.jwt_secret.
const EnvPrefix = "STOREFRONT_"

// Reset store backends.
const (
	ResetStoreMemory   = "memory"
	ResetStorePostgres = "postgres"
)

// Blob backends.
const (
	BlobMemory = "memory"
	BlobS3     = "s3"
)

const masked = "********"

// secretKeys are replaced by a mask when the config is printed.
var secretKeys = []string{
	"auth.jwt_secret",
	"database.url",
	"notify.smtp.password",
	"notify.webhook.token",
	"blob.s3.access_key",
	"blob.s3.secret_key",
}

// flagKeys maps command-line flag names onto config keys.
var flagKeys = map[string]string{
	"addr":          "server.addr",
	"database-url":  "database.url",
	"log-format":    "logging.format",
	"log-level":     "logging.level",
	"metrics-addr":  "observability.addr",
	"reset-store":   "reset.store",
	"notify":        "notify.provider",
	"otlp-endpoint": "telemetry.endpoint",
}

// DatabaseConfig configures the PostgreSQL connection.
type DatabaseConfig struct {
	URL         string `koanf:"url"`
	MaxConns    int32  `koanf:"max_conns"`
	AutoMigrate bool   `koanf:"auto_migrate"`
}

// AuthConfig configures credentials and session tokens.
type AuthConfig struct {
	JWTSecret  string        `koanf:"jwt_secret"`
	TokenTTL   time.Duration `koanf:"token_ttl"`
	BcryptCost int           `koanf:"bcrypt_cost"`
}

// ResetConfig configures the emailed-code reset flow.
type ResetConfig struct {
	Store           string        `koanf:"store"`
	CodeTTL         time.Duration `koanf:"code_ttl"`
	TicketTTL       time.Duration `koanf:"ticket_ttl"`
	MaxAttempts     int           `koanf:"max_attempts"`
	DeliveryTimeout time.Duration `koanf:"delivery_timeout"`
	SweepInterval   time.Duration `koanf:"sweep_interval"`
}

// Coordinator returns the settings the reset coordinator consumes.
func (c ResetConfig) Coordinator() auth.ResetConfig {
	return auth.ResetConfig{
		CodeTTL:         c.CodeTTL,
		TicketTTL:       c.TicketTTL,
		MaxAttempts:     c.MaxAttempts,
		DeliveryTimeout: c.DeliveryTimeout,
	}
}

// BlobConfig selects where product images live.
type BlobConfig struct {
	Backend string        `koanf:"backend"`
	BaseURL string        `koanf:"base_url"`
	S3      blob.S3Config `koanf:"s3"`
}

// LoggingConfig configures the default logger.
type LoggingConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// ObservabilityConfig configures the metrics and health server. An empty
// Addr disables it.
type ObservabilityConfig struct {
	Addr string `koanf:"addr"`
}

// Config is the complete storefront configuration.
type Config struct {
	Server        httpapi.Config      `koanf:"server"`
	Database      DatabaseConfig      `koanf:"database"`
	Auth          AuthConfig          `koanf:"auth"`
	Reset         ResetConfig         `koanf:"reset"`
	Notify        notify.Config       `koanf:"notify"`
	Blob          BlobConfig          `koanf:"blob"`
	Logging       LoggingConfig       `koanf:"logging"`
	Observability ObservabilityConfig `koanf:"observability"`
	Telemetry     telemetry.Config    `koanf:"telemetry"`

	k *koanf.Koanf
}

// Defaults returns the built-in configuration layer.
func Defaults() map[string]any {
	return map[string]any{
		"server.addr":                           httpapi.DefaultAddr,
		"server.read_timeout":                   httpapi.DefaultReadTimeout.String(),
		"server.write_timeout":                  httpapi.DefaultWriteTimeout.String(),
		"server.idle_timeout":                   httpapi.DefaultIdleTimeout.String(),
		"server.max_body_bytes":                 httpapi.DefaultMaxBodyBytes,
		"server.max_upload_bytes":               httpapi.DefaultMaxUploadBytes,
		"server.trust_proxy":                    false,
		"server.rate_limit.enabled":             true,
		"server.rate_limit.requests_per_second": httpapi.DefaultRequestsPerSecond,
		"server.rate_limit.burst":               httpapi.DefaultBurst,
		"server.rate_limit.cleanup_interval":    httpapi.DefaultCleanupInterval.String(),
		"server.rate_limit.client_max_age":      httpapi.DefaultClientMaxAge.String(),

		"database.max_conns":    10,
		"database.auto_migrate": false,

		"auth.token_ttl":   auth.SessionTokenExpiry.String(),
		"auth.bcrypt_cost": auth.DefaultBcryptCost,

		"reset.store":            ResetStoreMemory,
		"reset.code_ttl":         auth.DefaultCodeTTL.String(),
		"reset.ticket_ttl":       auth.DefaultTicketTTL.String(),
		"reset.max_attempts":     auth.DefaultMaxAttempts,
		"reset.delivery_timeout": auth.DefaultDeliveryWait.String(),
		"reset.sweep_interval":   time.Minute.String(),

		"notify.provider": notify.ProviderLog,
		"notify.timeout":  notify.DefaultTimeout.String(),

		"blob.backend":       BlobMemory,
		"blob.base_url":      "/uploads",
		"blob.s3.url_expiry": blob.DefaultURLExpiry.String(),

		"logging.format": "json",
		"logging.level":  "info",

		"observability.addr": "127.0.0.1:9100",

		"telemetry.sample_ratio": 1.0,
	}
}

// Options controls Load.
type Options struct {
	// File is an optional YAML file. Empty skips the file layer.
	File string
	// Flags are applied last. Only flags the user set override other layers.
	Flags *pflag.FlagSet
}

// Load builds the effective configuration. It does not validate it.
func Load(opts Options) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("layer", "defaults").Wrap(err)
	}

	if opts.File != "" {
		if _, err := os.Stat(opts.File); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("layer", "file").
				With("path", opts.File).
				Wrap(err)
		}
		if err := k.Load(file.Provider(opts.File), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("layer", "file").
				With("path", opts.File).
				Wrap(err)
		}
	}

	// DATABASE_URL is honored on its own for compatibility with common
	// hosting platforms; the prefixed form wins when both are set.
	if err := k.Load(env.Provider("DATABASE_URL", ".", func(string) string { return "database.url" }), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("layer", "env").Wrap(err)
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("layer", "env").Wrap(err)
	}

	if opts.Flags != nil {
		provider := posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(opts.Flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("layer", "flags").Wrap(err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("operation", "unmarshal").Wrap(err)
	}
	cfg.k = k
	return cfg, nil
}

// envKey maps STOREFRONT_RESET__CODE_TTL to reset.code_ttl.
func envKey(name string) string {
	name = strings.TrimPrefix(name, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(name), "__", ".")
}

// Validate checks the settings every command depends on.
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < auth.MinSecretLength {
		return invalid("auth.jwt_secret", "must be at least %d bytes", auth.MinSecretLength)
	}
	if c.Database.URL == "" {
		return invalid("database.url", "is required")
	}

	switch c.Reset.Store {
	case ResetStoreMemory, ResetStorePostgres:
	default:
		return invalid("reset.store", "must be %q or %q, got %q", ResetStoreMemory, ResetStorePostgres, c.Reset.Store)
	}
	if c.Reset.CodeTTL < 0 || c.Reset.TicketTTL < 0 {
		return invalid("reset", "ttls must not be negative")
	}

	switch c.Blob.Backend {
	case BlobMemory:
	case BlobS3:
		if c.Blob.S3.Bucket == "" {
			return invalid("blob.s3.bucket", "is required for the s3 backend")
		}
	default:
		return invalid("blob.backend", "must be %q or %q, got %q", BlobMemory, BlobS3, c.Blob.Backend)
	}

	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return invalid("logging.format", "must be 'json' or 'text', got %q", c.Logging.Format)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return invalid("logging.level", "unknown level %q", c.Logging.Level)
	}

	if c.Server.RateLimit.Enabled && c.Server.RateLimit.RequestsPerSecond < 0 {
		return invalid("server.rate_limit.requests_per_second", "must not be negative")
	}
	return nil
}

func invalid(key, format string, args ...any) error {
	return oops.Code("CONFIG_INVALID").
		With("key", key).
		Errorf(key+" "+format, args...)
}

// YAML renders the effective configuration with secrets masked.
func (c *Config) YAML() ([]byte, error) {
	if c.k == nil {
		return nil, oops.Code("CONFIG_INVALID").Errorf("config was not loaded")
	}

	out := c.k.Copy()
	for _, key := range secretKeys {
		if out.String(key) == "" {
			continue
		}
		if err := out.Set(key, masked); err != nil {
			return nil, oops.With("key", key).Wrap(err)
		}
	}

	data, err := yamlv3.Marshal(out.Raw())
	if err != nil {
		return nil, oops.Code("CONFIG_RENDER_FAILED").Wrap(err)
	}
	return data, nil
}
