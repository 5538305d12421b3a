// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/storefront/storefront/internal/address"
	"github.com/storefront/storefront/internal/address/addresstest"
	"github.com/storefront/storefront/internal/auth"
	"github.com/storefront/storefront/internal/auth/authtest"
	"github.com/storefront/storefront/internal/blob"
	"github.com/storefront/storefront/internal/catalog"
	"github.com/storefront/storefront/internal/catalog/catalogtest"
	"github.com/storefront/storefront/internal/httpapi"
	"github.com/storefront/storefront/internal/pricing"
	"github.com/storefront/storefront/internal/pricing/pricingtest"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

// routeLog is a RequestObserver that keeps every observation.
type routeLog struct {
	mu     sync.Mutex
	routes []string
}

func (l *routeLog) ObserveRequest(route string, _ int, _ time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.routes = append(l.routes, route)
}

func (l *routeLog) seen() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.routes...)
}

// apiFixture serves the full API over in-memory stores.
type apiFixture struct {
	handler     http.Handler
	principals  *authtest.MemoryPrincipalRepository
	notifier    *authtest.CaptureNotifier
	resets      *auth.MemoryResetStore
	authn       *auth.Authenticator
	coordinator *auth.ResetCoordinator
	blobs       *blob.MemoryStore
	products    *catalogtest.MemoryRepository
	deliveries  *pricingtest.MemoryRecorder
	observer    *routeLog
}

func newAPIFixture(t *testing.T, cfg httpapi.Config) *apiFixture {
	t.Helper()
	f := &apiFixture{
		principals: authtest.NewMemoryPrincipalRepository(),
		notifier:   authtest.NewCaptureNotifier(),
		resets:     auth.NewMemoryResetStore(0),
		blobs:      blob.NewMemoryStore("/uploads"),
		products:   catalogtest.NewMemoryRepository(),
		deliveries: pricingtest.NewMemoryRecorder(),
		observer:   &routeLog{},
	}
	t.Cleanup(f.resets.Close)

	tokens, err := auth.NewTokenIssuer(testSecret)
	require.NoError(t, err)
	f.authn, err = auth.NewAuthenticator(f.principals, auth.NewBcryptHasher(bcrypt.MinCost), tokens)
	require.NoError(t, err)
	f.coordinator, err = auth.NewResetCoordinator(f.principals, f.resets, f.notifier, f.authn, auth.ResetConfig{})
	require.NoError(t, err)

	products, err := catalog.NewService(f.products, f.blobs)
	require.NoError(t, err)
	addresses, err := address.NewService(addresstest.NewMemoryRepository())
	require.NoError(t, err)
	prices, err := pricing.NewService(pricing.NewCalculator(), f.deliveries)
	require.NoError(t, err)

	srv, err := httpapi.NewServer(cfg, httpapi.Deps{
		Auth:      f.authn,
		Resets:    f.coordinator,
		Catalog:   products,
		Addresses: addresses,
		Pricing:   prices,
		Uploads:   f.blobs,
		Logger:    discardLogger(),
		Observer:  f.observer,
	})
	require.NoError(t, err)
	t.Cleanup(srv.Close)
	f.handler = srv.Handler()
	return f
}

// register creates a principal directly through the authenticator.
func (f *apiFixture) register(t *testing.T, kind auth.Kind, email, password string) {
	t.Helper()
	_, err := f.authn.Register(context.Background(), kind, email, password, auth.Profile{FirstName: "Ada", LastName: "Lovelace"})
	require.NoError(t, err)
}

// token logs in and returns a session token.
func (f *apiFixture) token(t *testing.T, kind auth.Kind, email, password string) string {
	t.Helper()
	_, token, err := f.authn.Login(context.Background(), kind, email, password)
	require.NoError(t, err)
	return token
}

// do sends a JSON request. A nil body sends no body at all.
func (f *apiFixture) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			data, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(data)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

// upload sends a multipart product form, with an image when filename is set.
func (f *apiFixture) upload(t *testing.T, method, path string, fields map[string]string, filename string, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		part, err := mw.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = part.Write([]byte("\x89PNG\r\n\x1a\nfake"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

func message(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode[map[string]any](t, rec)
	msg, ok := body["message"].(string)
	require.True(t, ok, "body has no message: %s", rec.Body.String())
	return msg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
