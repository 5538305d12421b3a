// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package pricing

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/storefront/storefront/internal/store"
)

// PostgresRecorder implements Recorder over the pricing_logs and
// delivery_costs tables.
type PostgresRecorder struct {
	pool store.Pool
}

// NewPostgresRecorder creates a new PostgresRecorder.
func NewPostgresRecorder(pool store.Pool) *PostgresRecorder {
	return &PostgresRecorder{pool: pool}
}

// RecordQuote inserts a pricing_logs row.
func (r *PostgresRecorder) RecordQuote(ctx context.Context, q *Quote) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO pricing_logs (id, product_type, location, base_price, geo_factor, delivery_charge, final_price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		q.ID.String(), q.ProductType, q.Location, q.BasePrice, q.GeoFactor, q.DeliveryCharge, q.FinalPrice, q.CreatedAt)
	if err != nil {
		return oops.Code("PRICING_LOG_FAILED").
			With("operation", "insert pricing log").
			With("quote_id", q.ID.String()).
			Wrap(err)
	}
	return nil
}

// RecordDelivery inserts a delivery_costs row.
func (r *PostgresRecorder) RecordDelivery(ctx context.Context, d *Delivery) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO delivery_costs (id, region, base_price, distance_km, weight_kg, total_cost, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		d.ID.String(), d.Region, d.BasePrice, d.DistanceKM, d.WeightKG, d.TotalCost, d.CreatedAt)
	if err != nil {
		return oops.Code("DELIVERY_RECORD_FAILED").
			With("operation", "insert delivery cost").
			With("delivery_id", d.ID.String()).
			Wrap(err)
	}
	return nil
}

// ListDeliveries returns up to limit deliveries, newest first.
func (r *PostgresRecorder) ListDeliveries(ctx context.Context, limit int) ([]*Delivery, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, region, base_price, distance_km, weight_kg, total_cost, created_at
		FROM delivery_costs
		ORDER BY created_at DESC, id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, oops.Code("DELIVERY_QUERY_FAILED").
			With("operation", "list delivery costs").
			Wrap(err)
	}
	defer rows.Close()

	var out []*Delivery
	for rows.Next() {
		var (
			idStr string
			d     Delivery
		)
		if err := rows.Scan(&idStr, &d.Region, &d.BasePrice, &d.DistanceKM, &d.WeightKG, &d.TotalCost, &d.CreatedAt); err != nil {
			return nil, oops.Code("DELIVERY_SCAN_FAILED").
				With("operation", "scan delivery cost").
				Wrap(err)
		}
		if d.ID, err = ulid.Parse(idStr); err != nil {
			return nil, oops.Code("DELIVERY_INVALID_ID").With("id", idStr).Wrap(err)
		}
		out = append(out, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("DELIVERY_QUERY_FAILED").
			With("operation", "iterate delivery costs").
			Wrap(err)
	}
	return out, nil
}

var _ Recorder = (*PostgresRecorder)(nil)
