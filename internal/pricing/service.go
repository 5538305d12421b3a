// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package pricing

import (
	"context"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// DefaultListLimit caps ListDeliveries when no limit is given.
const DefaultListLimit = 100

// Recorder persists calculations.
type Recorder interface {
	RecordQuote(ctx context.Context, q *Quote) error
	RecordDelivery(ctx context.Context, d *Delivery) error
	ListDeliveries(ctx context.Context, limit int) ([]*Delivery, error)
}

// Service runs calculations and records them.
type Service struct {
	calc     *Calculator
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used when a quote cannot be recorded.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a new Service.
func NewService(calc *Calculator, recorder Recorder, opts ...Option) (*Service, error) {
	if calc == nil {
		return nil, oops.Errorf("calculator is required")
	}
	if recorder == nil {
		return nil, oops.Errorf("recorder is required")
	}
	s := &Service{calc: calc, recorder: recorder, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Quote prices a product for a location. A quote that cannot be recorded is
// still returned; the failure is logged.
func (s *Service) Quote(ctx context.Context, productType, location string) (*Quote, error) {
	q, err := s.calc.Quote(productType, location)
	if err != nil {
		return nil, err
	}
	q.ID = ulid.Make()
	q.CreatedAt = s.now().UTC()

	if err := s.recorder.RecordQuote(ctx, q); err != nil {
		s.logger.WarnContext(ctx, "best-effort quote log failed",
			"operation", "record_quote",
			"quote_id", q.ID.String(),
			"error", err)
	}
	return q, nil
}

// Delivery prices and records a delivery.
func (s *Service) Delivery(ctx context.Context, region string, distanceKM, weightKG *float64) (*Delivery, error) {
	d, err := s.calc.DeliveryCost(region, distanceKM, weightKG)
	if err != nil {
		return nil, err
	}
	d.ID = ulid.Make()
	d.CreatedAt = s.now().UTC()

	if err := s.recorder.RecordDelivery(ctx, d); err != nil {
		return nil, oops.Code("DELIVERY_RECORD_FAILED").
			With("delivery_id", d.ID.String()).
			Wrap(err)
	}
	return d, nil
}

// ListDeliveries returns recorded deliveries, newest first. A limit of zero
// or less uses DefaultListLimit.
func (s *Service) ListDeliveries(ctx context.Context, limit int) ([]*Delivery, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	ds, err := s.recorder.ListDeliveries(ctx, limit)
	if err != nil {
		return nil, oops.Code("DELIVERY_LIST_FAILED").Wrap(err)
	}
	return ds, nil
}
