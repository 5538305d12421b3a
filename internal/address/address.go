// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

// Package address stores delivery addresses owned by users.
package address

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/storefront/storefront/pkg/errutil"
)

// Address is a named delivery address belonging to one user.
type Address struct {
	ID        ulid.ULID
	UserID    ulid.ULID
	Name      string
	Details   string
	CreatedAt time.Time
}

// Repository persists addresses.
type Repository interface {
	Create(ctx context.Context, a *Address) error
	ListByUser(ctx context.Context, userID ulid.ULID) ([]*Address, error)
}

// Service validates and stores addresses.
type Service struct {
	repo Repository
	now  func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a new Service.
func NewService(repo Repository, opts ...Option) (*Service, error) {
	if repo == nil {
		return nil, oops.Errorf("address repository is required")
	}
	s := &Service{repo: repo, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Add stores a new address for userID. Name and details are both required.
func (s *Service) Add(ctx context.Context, userID ulid.ULID, name, details string) (*Address, error) {
	name = strings.TrimSpace(name)
	details = strings.TrimSpace(details)
	if name == "" || details == "" {
		return nil, errutil.Validation("address", "Name and details are required")
	}

	a := &Address{
		ID:        ulid.Make(),
		UserID:    userID,
		Name:      name,
		Details:   details,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, oops.Code("ADDRESS_CREATE_FAILED").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return a, nil
}

// List returns the user's addresses, newest first.
func (s *Service) List(ctx context.Context, userID ulid.ULID) ([]*Address, error) {
	addrs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, oops.Code("ADDRESS_LIST_FAILED").
			With("user_id", userID.String()).
			Wrap(err)
	}
	return addrs, nil
}
