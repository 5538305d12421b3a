// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

// Package blob stores product images.
package blob

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/samber/oops"
)

// Store saves objects under keys and hands out URLs to read them.
type Store interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	URL(ctx context.Context, key string) (string, error)
}

// Object is a stored blob held by MemoryStore.
type Object struct {
	Data        []byte
	ContentType string
}

// MemoryStore keeps objects in process. URLs are built from a base URL and
// are not signed.
type MemoryStore struct {
	base string

	mu      sync.RWMutex
	objects map[string]Object
}

// NewMemoryStore creates a MemoryStore whose URLs start with baseURL.
func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{base: baseURL, objects: make(map[string]Object)}
}

// Put stores body under key.
func (m *MemoryStore) Put(_ context.Context, key string, body io.Reader, _ int64, contentType string) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return oops.Code("BLOB_PUT_FAILED").With("key", key).Wrap(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = Object{Data: buf.Bytes(), ContentType: contentType}
	return nil
}

// Delete removes key. Missing keys are ignored.
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

// URL returns the base URL joined with key.
func (m *MemoryStore) URL(_ context.Context, key string) (string, error) {
	u, err := url.JoinPath(m.base, key)
	if err != nil {
		return "", oops.Code("BLOB_URL_FAILED").With("key", key).Wrap(err)
	}
	return u, nil
}

// Get returns the object under key.
func (m *MemoryStore) Get(key string) (Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.objects[key]
	return o, ok
}

// Len returns the number of stored objects.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

// ServeHTTP serves stored objects by key. Mount it under the base URL path
// with http.StripPrefix.
func (m *MemoryStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	o, ok := m.Get(strings.TrimPrefix(r.URL.Path, "/"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	if o.ContentType != "" {
		w.Header().Set("Content-Type", o.ContentType)
	}
	w.Header().Set("Content-Length", strconv.Itoa(len(o.Data)))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		//nolint:errcheck // client may have gone away
		w.Write(o.Data)
	}
}

var (
	_ Store        = (*MemoryStore)(nil)
	_ http.Handler = (*MemoryStore)(nil)
)
