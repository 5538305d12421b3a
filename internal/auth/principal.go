// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package auth

import (
	"context"
	"net/mail"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/storefront/storefront/pkg/errutil"
)

// Kind distinguishes the principal namespaces.
type Kind string

// Principal kinds.
const (
	KindUser  Kind = "user"
	KindAdmin Kind = "admin"
)

// MaxEmailLength bounds stored email addresses.
const MaxEmailLength = 254

// Valid reports whether k is a known principal kind.
func (k Kind) Valid() bool {
	return k == KindUser || k == KindAdmin
}

// Profile holds the display fields of a user principal.
type Profile struct {
	FirstName string
	LastName  string
}

// Principal is an authenticatable identity.
type Principal struct {
	ID           ulid.ULID
	Kind         Kind
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewPrincipal creates a Principal with a fresh ID.
// Email is kept exactly as given; lookups are case-sensitive.
func NewPrincipal(kind Kind, email, passwordHash string, profile Profile) (*Principal, error) {
	if !kind.Valid() {
		return nil, oops.Code("PRINCIPAL_INVALID_KIND").With("kind", string(kind)).Errorf("unknown principal kind")
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("PRINCIPAL_INVALID_HASH").Errorf("password hash cannot be empty")
	}

	now := time.Now()
	p := &Principal{
		ID:           ulid.Make(),
		Kind:         kind,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if kind == KindUser {
		p.FirstName = profile.FirstName
		p.LastName = profile.LastName
	}
	return p, nil
}

// ValidateEmail checks that email is a bare address such as a@x.com.
func ValidateEmail(email string) error {
	if email == "" {
		return errutil.Validation("email", "email is required")
	}
	if len(email) > MaxEmailLength {
		return errutil.Validation("email", "email must be at most %d characters", MaxEmailLength)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return errutil.Validation("email", "email is not a valid address")
	}
	return nil
}

// PrincipalRepository manages principal persistence. Users and admins never
// collide: every lookup is scoped by kind.
type PrincipalRepository interface {
	// Create stores a new principal. Returns ErrAlreadyExists when the email
	// is taken within the principal's kind.
	Create(ctx context.Context, p *Principal) error

	// GetByEmail retrieves a principal by kind and exact email.
	GetByEmail(ctx context.Context, kind Kind, email string) (*Principal, error)

	// GetByID retrieves a principal by kind and ID.
	GetByID(ctx context.Context, kind Kind, id ulid.ULID) (*Principal, error)

	// UpdatePassword replaces the password hash. Returns ErrNotFound when no
	// principal matches.
	UpdatePassword(ctx context.Context, kind Kind, email, passwordHash string) error
}
