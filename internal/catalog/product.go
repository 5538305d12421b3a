// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

// Package catalog manages the product catalog and product images.
package catalog

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/storefront/storefront/pkg/errutil"
)

// ErrNotFound is returned by repositories when a product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is a catalog entry. ImageURL is resolved from ImageKey when the
// product is read through Service and is never stored.
type Product struct {
	ID         ulid.ULID
	Name       string
	Type       string
	Category   string
	PriceCents int64
	Stock      int
	ImageKey   string
	ImageURL   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Details holds the caller-editable fields of a product.
type Details struct {
	Name       string
	Type       string
	Category   string
	PriceCents int64
	Stock      int
}

// Validate checks the fields shared by create and update.
func (d Details) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return errutil.Validation("name", "name is required")
	}
	if d.PriceCents < 0 {
		return errutil.Validation("price", "price must not be negative")
	}
	if d.Stock < 0 {
		return errutil.Validation("stock", "stock must not be negative")
	}
	return nil
}

// Image is an uploaded product image.
type Image struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Filter narrows a product listing. Zero fields match every product.
type Filter struct {
	// Name matches a case-insensitive substring of the product name.
	Name string
	// Category matches the category exactly, ignoring case.
	Category string
	MinCents *int64
	MaxCents *int64
}

// Validate rejects an inverted price range.
func (f Filter) Validate() error {
	if f.MinCents != nil && f.MaxCents != nil && *f.MinCents > *f.MaxCents {
		return errutil.Validation("minPrice", "minPrice must not exceed maxPrice")
	}
	return nil
}

// Matches reports whether p passes the filter.
func (f Filter) Matches(p *Product) bool {
	if f.Name != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Name)) {
		return false
	}
	if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
		return false
	}
	if f.MinCents != nil && p.PriceCents < *f.MinCents {
		return false
	}
	if f.MaxCents != nil && p.PriceCents > *f.MaxCents {
		return false
	}
	return true
}

// Repository persists products.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	Get(ctx context.Context, id ulid.ULID) (*Product, error)
	// List returns matching products, newest first.
	List(ctx context.Context, filter Filter) ([]*Product, error)
	// Categories returns the distinct non-empty categories in use, sorted.
	Categories(ctx context.Context) ([]string, error)
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id ulid.ULID) error
}

// ParsePrice converts a decimal amount such as "19.99" into cents. At most
// two fractional digits are accepted.
func ParsePrice(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errutil.Validation("price", "price is required")
	}

	whole, frac, hasFrac := strings.Cut(raw, ".")
	if whole == "" {
		whole = "0"
	}
	if hasFrac && (frac == "" || len(frac) > 2) {
		return 0, errutil.Validation("price", "price %q must have one or two decimal places", raw)
	}
	for len(frac) < 2 {
		frac += "0"
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || units < 0 {
		return 0, errutil.Validation("price", "price %q is not a valid amount", raw)
	}
	cents, err := strconv.ParseInt(frac, 10, 64)
	if err != nil || cents < 0 {
		return 0, errutil.Validation("price", "price %q is not a valid amount", raw)
	}
	if units > (1<<62)/100 {
		return 0, errutil.Validation("price", "price %q is too large", raw)
	}
	return units*100 + cents, nil
}

// ParseStock parses a stock count. An empty value means zero.
func ParseStock(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errutil.Validation("stock", "stock %q must be a non-negative integer", raw)
	}
	return n, nil
}

// FormatPrice renders cents as a decimal amount with two places.
func FormatPrice(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	frac := strconv.FormatInt(cents%100, 10)
	if len(frac) == 1 {
		frac = "0" + frac
	}
	return sign + strconv.FormatInt(cents/100, 10) + "." + frac
}
