// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

// Package addresstest provides test doubles for the address package.
package addresstest

import (
	"context"
	"slices"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/storefront/storefront/internal/address"
)

// MemoryRepository is an in-memory address.Repository.
type MemoryRepository struct {
	mu    sync.Mutex
	addrs []address.Address

	// Err, when set, is returned by every call.
	Err error
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Create(_ context.Context, a *address.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.addrs = append(r.addrs, *a)
	return nil
}

func (r *MemoryRepository) ListByUser(_ context.Context, userID ulid.ULID) ([]*address.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	var out []*address.Address
	for _, a := range r.addrs {
		if a.UserID == userID {
			out = append(out, &a)
		}
	}
	slices.SortFunc(out, func(a, b *address.Address) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return b.ID.Compare(a.ID)
	})
	return out, nil
}

var _ address.Repository = (*MemoryRepository)(nil)
