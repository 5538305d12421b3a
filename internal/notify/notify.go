// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

// Package notify delivers reset codes through a configured provider.
package notify

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/oops"
)

// Sender delivers one message to one address.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Provider names accepted by New.
const (
	ProviderLog     = "log"
	ProviderNoop    = "noop"
	ProviderFail    = "fail"
	ProviderWebhook = "webhook"
	ProviderSMTP    = "smtp"
)

// DefaultTimeout bounds a single delivery attempt.
const DefaultTimeout = 5 * time.Second

// Config selects and configures a provider.
type Config struct {
	Provider string        `koanf:"provider"`
	Timeout  time.Duration `koanf:"timeout"`
	Webhook  WebhookConfig `koanf:"webhook"`
	SMTP     SMTPConfig    `koanf:"smtp"`
}

// New builds the provider named by cfg.Provider. An empty name selects the
// log provider. A bare http(s) URL is shorthand for a webhook.
func New(cfg Config, logger *slog.Logger) (Sender, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	kind := strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch kind {
	case "", ProviderLog:
		return NewLogSender(logger), nil
	case ProviderNoop:
		return NoopSender{}, nil
	case ProviderFail:
		return FailSender{}, nil
	case ProviderWebhook:
		return NewWebhookSender(cfg.Webhook, cfg.Timeout)
	case ProviderSMTP:
		return NewSMTPSender(cfg.SMTP, cfg.Timeout)
	}

	if strings.HasPrefix(kind, "http://") || strings.HasPrefix(kind, "https://") {
		return NewWebhookSender(WebhookConfig{URL: strings.TrimSpace(cfg.Provider), Token: cfg.Webhook.Token}, cfg.Timeout)
	}
	return nil, oops.Code("NOTIFY_PROVIDER_UNKNOWN").
		With("provider", cfg.Provider).
		Errorf("unknown notification provider %q", cfg.Provider)
}

// LogSender writes messages to the log instead of delivering them.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send logs the message.
func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	s.logger.InfoContext(ctx, "notification",
		"provider", ProviderLog,
		"to", to,
		"subject", subject,
		"body", body)
	return nil
}

// NoopSender drops every message.
type NoopSender struct{}

// Send does nothing.
func (NoopSender) Send(context.Context, string, string, string) error { return nil }

// FailSender rejects every message. It exercises delivery failure handling.
type FailSender struct{}

// Send always fails.
func (FailSender) Send(context.Context, string, string, string) error {
	return oops.Code("NOTIFY_FAILED").With("provider", ProviderFail).Errorf("provider failure")
}
