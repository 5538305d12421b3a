// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/samber/oops"
)

// WebhookConfig configures WebhookSender.
type WebhookConfig struct {
	URL   string `koanf:"url"`
	Token string `koanf:"token"`
}

// WebhookSender POSTs each message as JSON to a URL.
type WebhookSender struct {
	url    string
	token  string
	client *http.Client
}

type webhookPayload struct {
	Channel   string `json:"channel"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Message   string `json:"message"`
}

// NewWebhookSender creates a WebhookSender.
func NewWebhookSender(cfg WebhookConfig, timeout time.Duration) (*WebhookSender, error) {
	if cfg.URL == "" {
		return nil, oops.Code("NOTIFY_CONFIG_INVALID").Errorf("webhook url is required")
	}
	return &WebhookSender{
		url:    cfg.URL,
		token:  cfg.Token,
		client: &http.Client{Timeout: timeout},
	}, nil
}

// Send posts the message. Any non-2xx response is an error.
func (s *WebhookSender) Send(ctx context.Context, to, subject, body string) error {
	payload, err := json.Marshal(webhookPayload{
		Channel:   "email",
		Recipient: to,
		Subject:   subject,
		Message:   body,
	})
	if err != nil {
		return oops.Code("NOTIFY_FAILED").With("operation", "encode payload").Wrap(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return oops.Code("NOTIFY_FAILED").With("operation", "build request").Wrap(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return oops.Code("NOTIFY_FAILED").
			With("provider", ProviderWebhook).
			With("operation", "post").
			Wrap(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16)) //nolint:errcheck // drain for keep-alive

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return oops.Code("NOTIFY_REJECTED").
			With("provider", ProviderWebhook).
			With("status", resp.StatusCode).
			Errorf("provider rejected request: %s", resp.Status)
	}
	return nil
}
