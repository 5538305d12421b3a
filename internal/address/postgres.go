// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package address

import (
	"context"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/storefront/storefront/internal/store"
	"github.com/storefront/storefront/pkg/errutil"
)

// PostgresRepository implements Repository over the addresses table.
type PostgresRepository struct {
	pool store.Pool
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(pool store.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Create inserts an address. An owner that does not exist is reported as
// NOT_FOUND.
func (r *PostgresRepository) Create(ctx context.Context, a *Address) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO addresses (id, user_id, name, details, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		a.ID.String(), a.UserID.String(), a.Name, a.Details, a.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return oops.Code(errutil.CodeNotFound).
				With("user_id", a.UserID.String()).
				Errorf("user not found")
		}
		return oops.Code("ADDRESS_CREATE_FAILED").
			With("operation", "insert address").
			With("address_id", a.ID.String()).
			With("user_id", a.UserID.String()).
			Wrap(err)
	}
	return nil
}

// ListByUser returns a user's addresses, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID ulid.ULID) ([]*Address, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, details, created_at
		FROM addresses
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`,
		userID.String())
	if err != nil {
		return nil, oops.Code("ADDRESS_QUERY_FAILED").
			With("operation", "list addresses").
			With("user_id", userID.String()).
			Wrap(err)
	}
	defer rows.Close()

	var addrs []*Address
	for rows.Next() {
		var (
			idStr string
			a     Address
		)
		if err := rows.Scan(&idStr, &a.Name, &a.Details, &a.CreatedAt); err != nil {
			return nil, oops.Code("ADDRESS_SCAN_FAILED").
				With("operation", "scan address").
				Wrap(err)
		}
		a.ID, err = ulid.Parse(idStr)
		if err != nil {
			return nil, oops.Code("ADDRESS_INVALID_ID").With("id", idStr).Wrap(err)
		}
		a.UserID = userID
		addrs = append(addrs, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("ADDRESS_QUERY_FAILED").
			With("operation", "iterate addresses").
			Wrap(err)
	}
	return addrs, nil
}

var _ Repository = (*PostgresRepository)(nil)
