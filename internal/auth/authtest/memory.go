// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

// Package authtest provides in-memory doubles for wiring auth services in
// tests of packages that sit on top of them.
package authtest

import (
	"context"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/storefront/storefront/internal/auth"
)

// MemoryPrincipalRepository is an in-memory auth.PrincipalRepository.
type MemoryPrincipalRepository struct {
	mu   sync.Mutex
	byID map[ulid.ULID]auth.Principal
}

var _ auth.PrincipalRepository = (*MemoryPrincipalRepository)(nil)

// NewMemoryPrincipalRepository creates an empty repository.
func NewMemoryPrincipalRepository() *MemoryPrincipalRepository {
	return &MemoryPrincipalRepository{byID: make(map[ulid.ULID]auth.Principal)}
}

// Create stores p, failing with auth.ErrAlreadyExists on a duplicate email
// within the same kind.
func (m *MemoryPrincipalRepository) Create(_ context.Context, p *auth.Principal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Kind == p.Kind && existing.Email == p.Email {
			return auth.ErrAlreadyExists
		}
	}
	m.byID[p.ID] = *p
	return nil
}

// GetByEmail returns a copy of the principal.
func (m *MemoryPrincipalRepository) GetByEmail(_ context.Context, kind auth.Kind, email string) (*auth.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.byID {
		if p.Kind == kind && p.Email == email {
			found := p
			return &found, nil
		}
	}
	return nil, auth.ErrNotFound
}

// GetByID returns a copy of the principal.
func (m *MemoryPrincipalRepository) GetByID(_ context.Context, kind auth.Kind, id ulid.ULID) (*auth.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok || p.Kind != kind {
		return nil, auth.ErrNotFound
	}
	return &p, nil
}

// UpdatePassword replaces the stored hash.
func (m *MemoryPrincipalRepository) UpdatePassword(_ context.Context, kind auth.Kind, email, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, p := range m.byID {
		if p.Kind == kind && p.Email == email {
			p.PasswordHash = passwordHash
			m.byID[id] = p
			return nil
		}
	}
	return auth.ErrNotFound
}

// Len returns the number of stored principals.
func (m *MemoryPrincipalRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

// CaptureNotifier records the last message sent to each address.
type CaptureNotifier struct {
	mu    sync.Mutex
	last  map[string]string
	sends int
	err   error
}

// NewCaptureNotifier creates a notifier that accepts every message.
func NewCaptureNotifier() *CaptureNotifier {
	return &CaptureNotifier{last: make(map[string]string)}
}

// Send records body for to, or returns the configured failure.
func (n *CaptureNotifier) Send(_ context.Context, to, _, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.last[to] = body
	n.sends++
	return nil
}

// SetErr makes every following Send fail with err. Pass nil to recover.
func (n *CaptureNotifier) SetErr(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.err = err
}

// Sends returns the number of delivered messages.
func (n *CaptureNotifier) Sends() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sends
}

// Last returns the body of the last message sent to addr.
func (n *CaptureNotifier) Last(addr string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.last[addr]
}

// Code extracts the six digit code from the last message sent to addr, or
// "" if there is none.
func (n *CaptureNotifier) Code(addr string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	body := n.last[addr]
	const prefix = "Your OTP is "
	idx := strings.Index(body, prefix)
	if idx < 0 || len(body) < idx+len(prefix)+6 {
		return ""
	}
	return body[idx+len(prefix) : idx+len(prefix)+6]
}
