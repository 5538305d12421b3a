// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/storefront/storefront/internal/store"
)

const productColumns = `id, name, type, category, price_cents, stock, image_key, created_at, updated_at`

// PostgresRepository implements Repository over the products table.
type PostgresRepository struct {
	pool store.Pool
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(pool store.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Create inserts a product.
func (r *PostgresRepository) Create(ctx context.Context, p *Product) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO products (`+productColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID.String(), p.Name, p.Type, p.Category, p.PriceCents, p.Stock, p.ImageKey, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return oops.Code("PRODUCT_CREATE_FAILED").
			With("operation", "insert product").
			With("product_id", p.ID.String()).
			Wrap(err)
	}
	return nil
}

// Get returns one product or ErrNotFound.
func (r *PostgresRepository) Get(ctx context.Context, id ulid.ULID) (*Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id.String())
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("product_id", id.String()).Wrap(ErrNotFound)
	}
	return p, err
}

// filterClause renders filter as a WHERE clause with positional arguments.
// The name match uses strpos so user input never acts as a LIKE pattern.
func filterClause(filter Filter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.Name != "" {
		add("strpos(lower(name), lower($%d)) > 0", filter.Name)
	}
	if filter.Category != "" {
		add("lower(category) = lower($%d)", filter.Category)
	}
	if filter.MinCents != nil {
		add("price_cents >= $%d", *filter.MinCents)
	}
	if filter.MaxCents != nil {
		add("price_cents <= $%d", *filter.MaxCents)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List returns the products matching filter, newest first.
func (r *PostgresRepository) List(ctx context.Context, filter Filter) ([]*Product, error) {
	where, args := filterClause(filter)
	rows, err := r.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products`+where+` ORDER BY created_at DESC, id DESC`, args...)
	if err != nil {
		return nil, oops.Code("PRODUCT_QUERY_FAILED").
			With("operation", "list products").
			Wrap(err)
	}
	defer rows.Close()

	var products []*Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("PRODUCT_QUERY_FAILED").
			With("operation", "iterate products").
			Wrap(err)
	}
	return products, nil
}

// Categories returns the distinct non-empty categories, sorted.
func (r *PostgresRepository) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT category FROM products
		WHERE category <> ''
		ORDER BY category`)
	if err != nil {
		return nil, oops.Code("PRODUCT_QUERY_FAILED").
			With("operation", "list categories").
			Wrap(err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, oops.Code("PRODUCT_QUERY_FAILED").
				With("operation", "scan category").
				Wrap(err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("PRODUCT_QUERY_FAILED").
			With("operation", "iterate categories").
			Wrap(err)
	}
	return categories, nil
}

// Update writes every mutable column. Returns ErrNotFound when the row is gone.
func (r *PostgresRepository) Update(ctx context.Context, p *Product) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE products
		SET name = $2, type = $3, category = $4, price_cents = $5, stock = $6, image_key = $7, updated_at = $8
		WHERE id = $1`,
		p.ID.String(), p.Name, p.Type, p.Category, p.PriceCents, p.Stock, p.ImageKey, p.UpdatedAt)
	if err != nil {
		return oops.Code("PRODUCT_UPDATE_FAILED").
			With("operation", "update product").
			With("product_id", p.ID.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.With("product_id", p.ID.String()).Wrap(ErrNotFound)
	}
	return nil
}

// Delete removes a product. Returns ErrNotFound when no row matched.
func (r *PostgresRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id.String())
	if err != nil {
		return oops.Code("PRODUCT_DELETE_FAILED").
			With("operation", "delete product").
			With("product_id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.With("product_id", id.String()).Wrap(ErrNotFound)
	}
	return nil
}

func scanProduct(row pgx.Row) (*Product, error) {
	var (
		idStr string
		p     Product
	)
	err := row.Scan(&idStr, &p.Name, &p.Type, &p.Category, &p.PriceCents, &p.Stock, &p.ImageKey, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // callers add context
		}
		return nil, oops.Code("PRODUCT_SCAN_FAILED").
			With("operation", "scan product").
			Wrap(err)
	}
	p.ID, err = ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("PRODUCT_INVALID_ID").With("id", idStr).Wrap(err)
	}
	return &p, nil
}

var _ Repository = (*PostgresRepository)(nil)
