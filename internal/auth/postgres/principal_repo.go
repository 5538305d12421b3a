// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

// Package postgres provides PostgreSQL implementations of auth repositories.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/storefront/storefront/internal/auth"
	"github.com/storefront/storefront/internal/store"
	"github.com/storefront/storefront/pkg/errutil"
)

// principalSQL holds the statements for one principal table. Admin selects
// return empty name columns so both kinds scan the same way.
type principalSQL struct {
	insert         string
	selectByEmail  string
	selectByID     string
	updatePassword string
}

var principalQueries = map[auth.Kind]principalSQL{
	auth.KindUser: {
		insert: `
			INSERT INTO users (id, firstname, lastname, email, password_hash, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		selectByEmail: `
			SELECT id, firstname, lastname, email, password_hash, created_at, updated_at
			FROM users WHERE email = $1`,
		selectByID: `
			SELECT id, firstname, lastname, email, password_hash, created_at, updated_at
			FROM users WHERE id = $1`,
		updatePassword: `UPDATE users SET password_hash = $1, updated_at = $2 WHERE email = $3`,
	},
	auth.KindAdmin: {
		insert: `
			INSERT INTO admins (id, email, password_hash, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5)`,
		selectByEmail: `
			SELECT id, '', '', email, password_hash, created_at, updated_at
			FROM admins WHERE email = $1`,
		selectByID: `
			SELECT id, '', '', email, password_hash, created_at, updated_at
			FROM admins WHERE id = $1`,
		updatePassword: `UPDATE admins SET password_hash = $1, updated_at = $2 WHERE email = $3`,
	},
}

// PrincipalRepository implements auth.PrincipalRepository over the users
// and admins tables.
type PrincipalRepository struct {
	pool store.Pool
}

// NewPrincipalRepository creates a new PrincipalRepository.
func NewPrincipalRepository(pool store.Pool) *PrincipalRepository {
	return &PrincipalRepository{pool: pool}
}

func queriesFor(kind auth.Kind) (principalSQL, error) {
	q, ok := principalQueries[kind]
	if !ok {
		return principalSQL{}, oops.Code("PRINCIPAL_INVALID_KIND").
			With("kind", string(kind)).
			Errorf("unknown principal kind %q", kind)
	}
	return q, nil
}

// Create inserts a principal. A duplicate email returns auth.ErrAlreadyExists.
func (r *PrincipalRepository) Create(ctx context.Context, p *auth.Principal) error {
	q, err := queriesFor(p.Kind)
	if err != nil {
		return err
	}

	var args []any
	if p.Kind == auth.KindUser {
		args = []any{p.ID.String(), p.FirstName, p.LastName, p.Email, p.PasswordHash, p.CreatedAt, p.UpdatedAt}
	} else {
		args = []any{p.ID.String(), p.Email, p.PasswordHash, p.CreatedAt, p.UpdatedAt}
	}

	if _, err := r.pool.Exec(ctx, q.insert, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return oops.Code("PRINCIPAL_EXISTS").
				With("kind", string(p.Kind)).
				Wrap(auth.ErrAlreadyExists)
		}
		return oops.Code("PRINCIPAL_CREATE_FAILED").
			With("operation", "insert principal").
			With("kind", string(p.Kind)).
			Wrap(err)
	}
	return nil
}

// GetByEmail looks a principal up by exact email.
func (r *PrincipalRepository) GetByEmail(ctx context.Context, kind auth.Kind, email string) (*auth.Principal, error) {
	q, err := queriesFor(kind)
	if err != nil {
		return nil, err
	}

	p, err := scanPrincipal(r.pool.QueryRow(ctx, q.selectByEmail, email), kind)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code(errutil.CodePrincipalNotFound).
			With("kind", string(kind)).
			Wrap(auth.ErrNotFound)
	}
	return p, err
}

// GetByID looks a principal up by id.
func (r *PrincipalRepository) GetByID(ctx context.Context, kind auth.Kind, id ulid.ULID) (*auth.Principal, error) {
	q, err := queriesFor(kind)
	if err != nil {
		return nil, err
	}

	p, err := scanPrincipal(r.pool.QueryRow(ctx, q.selectByID, id.String()), kind)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code(errutil.CodePrincipalNotFound).
			With("kind", string(kind)).
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return p, err
}

// UpdatePassword replaces the stored hash. Returns auth.ErrNotFound when no
// principal has the email.
func (r *PrincipalRepository) UpdatePassword(ctx context.Context, kind auth.Kind, email, passwordHash string) error {
	q, err := queriesFor(kind)
	if err != nil {
		return err
	}

	result, err := r.pool.Exec(ctx, q.updatePassword, passwordHash, time.Now().UTC(), email)
	if err != nil {
		return oops.Code("PRINCIPAL_UPDATE_FAILED").
			With("operation", "update password").
			With("kind", string(kind)).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code(errutil.CodePrincipalNotFound).
			With("kind", string(kind)).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// scanPrincipal scans one row. pgx.ErrNoRows is returned unwrapped for the
// caller to translate.
func scanPrincipal(row pgx.Row, kind auth.Kind) (*auth.Principal, error) {
	var (
		idStr string
		p     auth.Principal
	)
	err := row.Scan(&idStr, &p.FirstName, &p.LastName, &p.Email, &p.PasswordHash, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // callers add context
		}
		return nil, oops.Code("PRINCIPAL_SCAN_FAILED").
			With("operation", "scan principal").
			Wrap(err)
	}

	p.ID, err = ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("PRINCIPAL_INVALID_ID").
			With("id", idStr).
			Wrap(err)
	}
	p.Kind = kind
	return &p, nil
}

var _ auth.PrincipalRepository = (*PrincipalRepository)(nil)
