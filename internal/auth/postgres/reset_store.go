// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/storefront/storefront/internal/auth"
	"github.com/storefront/storefront/internal/store"
)

// ResetStore implements auth.ResetStore over the password_resets table.
// Every step is a single statement, so concurrent calls on one key cannot
// both consume it.
type ResetStore struct {
	pool store.Pool
}

// NewResetStore creates a new ResetStore.
func NewResetStore(pool store.Pool) *ResetStore {
	return &ResetStore{pool: pool}
}

// Save upserts the entry for reset.Key and clears its attempt count.
func (s *ResetStore) Save(ctx context.Context, reset *auth.PendingReset) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO password_resets (kind, email, purpose, secret_hash, attempts, expires_at, created_at)
		VALUES ($1, $2, $3, $4, 0, $5, $6)
		ON CONFLICT (kind, email, purpose) DO UPDATE
		SET secret_hash = EXCLUDED.secret_hash,
		    attempts = 0,
		    expires_at = EXCLUDED.expires_at,
		    created_at = EXCLUDED.created_at`,
		string(reset.Key.Kind), reset.Key.Email, string(reset.Key.Purpose),
		reset.SecretHash, reset.ExpiresAt, reset.CreatedAt)
	if err != nil {
		return oops.Code("RESET_SAVE_FAILED").
			With("operation", "upsert password_reset").
			With("kind", string(reset.Key.Kind)).
			With("purpose", string(reset.Key.Purpose)).
			Wrap(err)
	}
	return nil
}

// Consume implements auth.ResetStore.
func (s *ResetStore) Consume(ctx context.Context, key auth.ResetKey, secretHash string, now time.Time, maxAttempts int) error {
	kind, purpose := string(key.Kind), string(key.Purpose)

	result, err := s.pool.Exec(ctx, `
		DELETE FROM password_resets
		WHERE kind = $1 AND email = $2 AND purpose = $3 AND secret_hash = $4 AND expires_at > $5`,
		kind, key.Email, purpose, secretHash, now)
	if err != nil {
		return oops.Code("RESET_CONSUME_FAILED").With("operation", "delete matching reset").Wrap(err)
	}
	if result.RowsAffected() == 1 {
		return nil
	}

	var attempts int
	err = s.pool.QueryRow(ctx, `
		UPDATE password_resets SET attempts = attempts + 1
		WHERE kind = $1 AND email = $2 AND purpose = $3 AND expires_at > $4
		RETURNING attempts`,
		kind, key.Email, purpose, now).Scan(&attempts)
	if errors.Is(err, pgx.ErrNoRows) {
		return auth.ErrNotFound
	}
	if err != nil {
		return oops.Code("RESET_CONSUME_FAILED").With("operation", "count failed attempt").Wrap(err)
	}

	if maxAttempts > 0 && attempts >= maxAttempts {
		if _, err := s.pool.Exec(ctx, `
			DELETE FROM password_resets
			WHERE kind = $1 AND email = $2 AND purpose = $3 AND attempts >= $4`,
			kind, key.Email, purpose, maxAttempts); err != nil {
			return oops.Code("RESET_CONSUME_FAILED").With("operation", "discard exhausted reset").Wrap(err)
		}
	}
	return auth.ErrSecretMismatch
}

// DeleteExpired removes entries expired at now.
func (s *ResetStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.pool.Exec(ctx, `DELETE FROM password_resets WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, oops.Code("RESET_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired password_resets").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

var _ auth.ResetStore = (*ResetStore)(nil)
