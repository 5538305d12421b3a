// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package catalog

import (
	"context"
	"errors"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/storefront/storefront/internal/blob"
	"github.com/storefront/storefront/pkg/errutil"
)

// imageTypes maps accepted image extensions to their content types.
var imageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// Service coordinates product rows and their images.
type Service struct {
	repo   Repository
	blobs  blob.Store
	logger *slog.Logger
	now    func() time.Time
	newKey func(ext string) string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger used for best-effort image cleanup.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a new Service.
func NewService(repo Repository, blobs blob.Store, opts ...ServiceOption) (*Service, error) {
	if repo == nil {
		return nil, oops.Errorf("product repository is required")
	}
	if blobs == nil {
		return nil, oops.Errorf("blob store is required")
	}
	s := &Service{
		repo:   repo,
		blobs:  blobs,
		logger: slog.Default(),
		now:    time.Now,
		newKey: imageKey,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func imageKey(ext string) string {
	return "products/" + uuid.NewString() + ext
}

// List returns the products matching filter with image URLs resolved.
func (s *Service) List(ctx context.Context, filter Filter) ([]*Product, error) {
	filter.Name = strings.TrimSpace(filter.Name)
	filter.Category = strings.TrimSpace(filter.Category)
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	products, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, oops.Code("PRODUCT_LIST_FAILED").Wrap(err)
	}
	for _, p := range products {
		if err := s.resolveURL(ctx, p); err != nil {
			return nil, err
		}
	}
	return products, nil
}

// Categories returns the categories used by at least one product.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	categories, err := s.repo.Categories(ctx)
	if err != nil {
		return nil, oops.Code("PRODUCT_LIST_FAILED").With("operation", "list categories").Wrap(err)
	}
	return categories, nil
}

// Get returns one product.
func (s *Service) Get(ctx context.Context, id ulid.ULID) (*Product, error) {
	p, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.resolveURL(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) get(ctx context.Context, id ulid.ULID) (*Product, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code(errutil.CodeNotFound).
				With("product_id", id.String()).
				Errorf("product not found")
		}
		return nil, oops.Code("PRODUCT_LOOKUP_FAILED").
			With("product_id", id.String()).
			Wrap(err)
	}
	return p, nil
}

// Create stores a new product and its optional image. When the row cannot be
// written the uploaded image is removed again.
func (s *Service) Create(ctx context.Context, d Details, img *Image) (*Product, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	p := &Product{
		ID:         ulid.Make(),
		Name:       strings.TrimSpace(d.Name),
		Type:       strings.TrimSpace(d.Type),
		Category:   strings.TrimSpace(d.Category),
		PriceCents: d.PriceCents,
		Stock:      d.Stock,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if img != nil {
		key, err := s.upload(ctx, img)
		if err != nil {
			return nil, err
		}
		p.ImageKey = key
	}

	if err := s.repo.Create(ctx, p); err != nil {
		s.discard(ctx, p.ImageKey, "create rollback")
		return nil, oops.Code("PRODUCT_CREATE_FAILED").
			With("product_id", p.ID.String()).
			Wrap(err)
	}

	if err := s.resolveURL(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Update replaces a product's details. A non-nil image replaces the stored
// one, and the previous object is removed after the row is updated.
func (s *Service) Update(ctx context.Context, id ulid.ULID, d Details, img *Image) (*Product, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	p, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	oldKey := p.ImageKey
	p.Name = strings.TrimSpace(d.Name)
	p.Type = strings.TrimSpace(d.Type)
	p.Category = strings.TrimSpace(d.Category)
	p.PriceCents = d.PriceCents
	p.Stock = d.Stock
	p.UpdatedAt = s.now().UTC()

	if img != nil {
		key, err := s.upload(ctx, img)
		if err != nil {
			return nil, err
		}
		p.ImageKey = key
	}

	if err := s.repo.Update(ctx, p); err != nil {
		if p.ImageKey != oldKey {
			s.discard(ctx, p.ImageKey, "update rollback")
		}
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code(errutil.CodeNotFound).
				With("product_id", id.String()).
				Errorf("product not found")
		}
		return nil, oops.Code("PRODUCT_UPDATE_FAILED").
			With("product_id", id.String()).
			Wrap(err)
	}

	if p.ImageKey != oldKey {
		s.discard(ctx, oldKey, "replace image")
	}
	if err := s.resolveURL(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Delete removes a product and its image.
func (s *Service) Delete(ctx context.Context, id ulid.ULID) error {
	p, err := s.get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code(errutil.CodeNotFound).
				With("product_id", id.String()).
				Errorf("product not found")
		}
		return oops.Code("PRODUCT_DELETE_FAILED").
			With("product_id", id.String()).
			Wrap(err)
	}

	s.discard(ctx, p.ImageKey, "delete product")
	return nil
}

func (s *Service) upload(ctx context.Context, img *Image) (string, error) {
	ext := strings.ToLower(path.Ext(img.Filename))
	contentType, ok := imageTypes[ext]
	if !ok {
		return "", errutil.Validation("image", "unsupported image type %q", ext)
	}
	if img.ContentType != "" && strings.HasPrefix(img.ContentType, "image/") {
		contentType = img.ContentType
	}

	key := s.newKey(ext)
	if err := s.blobs.Put(ctx, key, img.Body, img.Size, contentType); err != nil {
		return "", oops.Code("PRODUCT_IMAGE_FAILED").
			With("operation", "upload image").
			With("key", key).
			Wrap(err)
	}
	return key, nil
}

// discard deletes an image object. Failures leave an orphaned object and are
// only logged.
func (s *Service) discard(ctx context.Context, key, operation string) {
	if key == "" {
		return
	}
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "best-effort image cleanup failed",
			"operation", operation,
			"key", key,
			"error", err)
	}
}

func (s *Service) resolveURL(ctx context.Context, p *Product) error {
	if p.ImageKey == "" {
		p.ImageURL = ""
		return nil
	}
	u, err := s.blobs.URL(ctx, p.ImageKey)
	if err != nil {
		return oops.Code("PRODUCT_IMAGE_FAILED").
			With("operation", "resolve image url").
			With("product_id", p.ID.String()).
			Wrap(err)
	}
	p.ImageURL = u
	return nil
}
