// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/storefront/pkg/errutil"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantType any
		wantCode string
	}{
		{"empty selects log", Config{}, &LogSender{}, ""},
		{"log", Config{Provider: "LOG"}, &LogSender{}, ""},
		{"noop", Config{Provider: "noop"}, NoopSender{}, ""},
		{"fail", Config{Provider: "fail"}, FailSender{}, ""},
		{"webhook", Config{Provider: "webhook", Webhook: WebhookConfig{URL: "http://hooks.local/send"}}, &WebhookSender{}, ""},
		{"webhook without url", Config{Provider: "webhook"}, nil, "NOTIFY_CONFIG_INVALID"},
		{"bare url", Config{Provider: "https://hooks.local/send"}, &WebhookSender{}, ""},
		{"smtp", Config{Provider: "smtp", SMTP: SMTPConfig{Host: "mail.local", From: "shop@x.com"}}, &SMTPSender{}, ""},
		{"smtp without host", Config{Provider: "smtp"}, nil, "NOTIFY_CONFIG_INVALID"},
		{"unknown", Config{Provider: "pigeon"}, nil, "NOTIFY_PROVIDER_UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.cfg, nil)
			if tt.wantCode != "" {
				require.Error(t, err)
				errutil.AssertErrorCode(t, err, tt.wantCode)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, s)
		})
	}
}

func TestNew_DefaultTimeout(t *testing.T) {
	s, err := New(Config{Provider: "webhook", Webhook: WebhookConfig{URL: "http://hooks.local"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, s.(*WebhookSender).client.Timeout)
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSender(slog.New(slog.NewJSONHandler(&buf, nil)))

	require.NoError(t, s.Send(context.Background(), "a@x.com", "Password Reset OTP", "Your OTP is 123456."))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "a@x.com", entry["to"])
	assert.Equal(t, "Password Reset OTP", entry["subject"])
	assert.Equal(t, "log", entry["provider"])
}

func TestFailSender(t *testing.T) {
	err := FailSender{}.Send(context.Background(), "a@x.com", "s", "b")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "NOTIFY_FAILED")
	assert.NoError(t, NoopSender{}.Send(context.Background(), "a@x.com", "s", "b"))
}
