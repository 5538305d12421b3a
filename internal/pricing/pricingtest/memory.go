// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

// Package pricingtest provides test doubles for the pricing package.
package pricingtest

import (
	"context"
	"slices"
	"sync"

	"github.com/storefront/storefront/internal/pricing"
)

// MemoryRecorder is an in-memory pricing.Recorder.
type MemoryRecorder struct {
	mu         sync.Mutex
	quotes     []pricing.Quote
	deliveries []pricing.Delivery

	// QuoteErr and DeliveryErr, when set, fail the matching writes.
	QuoteErr    error
	DeliveryErr error
	// ListErr, when set, fails ListDeliveries.
	ListErr error
}

// NewMemoryRecorder creates an empty MemoryRecorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

func (r *MemoryRecorder) RecordQuote(_ context.Context, q *pricing.Quote) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.QuoteErr != nil {
		return r.QuoteErr
	}
	r.quotes = append(r.quotes, *q)
	return nil
}

func (r *MemoryRecorder) RecordDelivery(_ context.Context, d *pricing.Delivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.DeliveryErr != nil {
		return r.DeliveryErr
	}
	r.deliveries = append(r.deliveries, *d)
	return nil
}

func (r *MemoryRecorder) ListDeliveries(_ context.Context, limit int) ([]*pricing.Delivery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ListErr != nil {
		return nil, r.ListErr
	}
	out := make([]*pricing.Delivery, 0, len(r.deliveries))
	for _, d := range r.deliveries {
		out = append(out, &d)
	}
	slices.SortStableFunc(out, func(a, b *pricing.Delivery) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return b.ID.Compare(a.ID)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Quotes returns a copy of the recorded quotes in insertion order.
func (r *MemoryRecorder) Quotes() []pricing.Quote {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.quotes)
}

var _ pricing.Recorder = (*MemoryRecorder)(nil)
