// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

// Package catalogtest provides test doubles for the catalog package.
package catalogtest

import (
	"context"
	"slices"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/storefront/storefront/internal/catalog"
)

// MemoryRepository is an in-memory catalog.Repository.
type MemoryRepository struct {
	mu       sync.Mutex
	products map[ulid.ULID]catalog.Product

	// Err, when set, is returned by every call.
	Err error
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{products: make(map[ulid.ULID]catalog.Product)}
}

func (r *MemoryRepository) Create(_ context.Context, p *catalog.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	stored := *p
	stored.ImageURL = ""
	r.products[p.ID] = stored
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id ulid.ULID) (*catalog.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	p, ok := r.products[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	return &p, nil
}

func (r *MemoryRepository) List(_ context.Context, filter catalog.Filter) ([]*catalog.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	out := make([]*catalog.Product, 0, len(r.products))
	for _, p := range r.products {
		if filter.Matches(&p) {
			out = append(out, &p)
		}
	}
	slices.SortFunc(out, func(a, b *catalog.Product) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return b.ID.Compare(a.ID)
	})
	return out, nil
}

func (r *MemoryRepository) Categories(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return nil, r.Err
	}
	var out []string
	for _, p := range r.products {
		if p.Category != "" && !slices.Contains(out, p.Category) {
			out = append(out, p.Category)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (r *MemoryRepository) Update(_ context.Context, p *catalog.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if _, ok := r.products[p.ID]; !ok {
		return catalog.ErrNotFound
	}
	stored := *p
	stored.ImageURL = ""
	r.products[p.ID] = stored
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, id ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if _, ok := r.products[id]; !ok {
		return catalog.ErrNotFound
	}
	delete(r.products, id)
	return nil
}

// Len returns the number of stored products.
func (r *MemoryRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.products)
}

var _ catalog.Repository = (*MemoryRepository)(nil)
