// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/storefront/pkg/errutil"
)

func TestWebhookSender_Send(t *testing.T) {
	var (
		got     webhookPayload
		gotAuth string
		gotType string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s, err := NewWebhookSender(WebhookConfig{URL: srv.URL, Token: "secret"}, time.Second)
	require.NoError(t, err)

	require.NoError(t, s.Send(context.Background(), "a@x.com", "Password Reset OTP", "Your OTP is 123456."))
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, webhookPayload{
		Channel:   "email",
		Recipient: "a@x.com",
		Subject:   "Password Reset OTP",
		Message:   "Your OTP is 123456.",
	}, got)
}

func TestWebhookSender_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	s, err := NewWebhookSender(WebhookConfig{URL: srv.URL}, time.Second)
	require.NoError(t, err)

	err = s.Send(context.Background(), "a@x.com", "s", "b")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "NOTIFY_REJECTED")
	errutil.AssertErrorContext(t, err, "status", http.StatusServiceUnavailable)
}

func TestWebhookSender_ContextCancelled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	s, err := NewWebhookSender(WebhookConfig{URL: srv.URL}, 5*time.Second)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err = s.Send(ctx, "a@x.com", "s", "b")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "NOTIFY_FAILED")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
