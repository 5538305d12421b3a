// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package httpapi

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/storefront/storefront/internal/catalog"
	"github.com/storefront/storefront/pkg/errutil"
)

// multipartMemory is how much of an upload is buffered before spilling to
// temporary files.
const multipartMemory = 4 << 20

type productView struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	Category   string    `json:"category"`
	Price      float64   `json:"price"`
	PriceCents int64     `json:"priceCents"`
	Stock      int       `json:"stock"`
	ImageURL   string    `json:"imageUrl,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type productResponse struct {
	Success   bool         `json:"success"`
	Message   string       `json:"message"`
	ProductID string       `json:"productId"`
	Product   *productView `json:"product"`
}

func newProductView(p *catalog.Product) *productView {
	return &productView{
		ID:         p.ID.String(),
		Name:       p.Name,
		Type:       p.Type,
		Category:   p.Category,
		Price:      float64(p.PriceCents) / 100,
		PriceCents: p.PriceCents,
		Stock:      p.Stock,
		ImageURL:   p.ImageURL,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

// productID parses the {id} path parameter. Malformed ids cannot name an
// existing product, so they are reported as not found.
func productID(r *http.Request) (ulid.ULID, error) {
	raw := chi.URLParam(r, "id")
	id, err := ulid.Parse(raw)
	if err != nil {
		return ulid.ULID{}, oops.Code(errutil.CodeNotFound).
			With("product_id", raw).
			Errorf("product not found")
	}
	return id, nil
}

// parseProductForm reads the multipart product form. The image part is
// optional; the caller must close the returned file when it is non-nil.
func parseProductForm(r *http.Request) (catalog.Details, *catalog.Image, multipart.File, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return catalog.Details{}, nil, nil, errutil.Validation("body", "upload too large")
		}
		return catalog.Details{}, nil, nil, errutil.Validation("body", "expected a multipart form")
	}

	price, err := catalog.ParsePrice(r.FormValue("price"))
	if err != nil {
		return catalog.Details{}, nil, nil, err
	}
	stock, err := catalog.ParseStock(r.FormValue("stock"))
	if err != nil {
		return catalog.Details{}, nil, nil, err
	}
	d := catalog.Details{
		Name:       r.FormValue("name"),
		Type:       r.FormValue("type"),
		Category:   r.FormValue("category"),
		PriceCents: price,
		Stock:      stock,
	}

	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return d, nil, nil, nil
	}
	if err != nil {
		return catalog.Details{}, nil, nil, errutil.Validation("image", "image could not be read")
	}
	img := &catalog.Image{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}
	return d, img, file, nil
}

type categoryView struct {
	Name string `json:"name"`
}

// priceBound parses an optional price query parameter into cents.
func priceBound(r *http.Request, param string) (*int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(param))
	if raw == "" {
		return nil, nil
	}
	cents, err := catalog.ParsePrice(raw)
	if err != nil {
		return nil, errutil.Validation(param, "%s %q is not a valid amount", param, raw)
	}
	return &cents, nil
}

// productFilter reads the name, category, minPrice and maxPrice query
// parameters.
func productFilter(r *http.Request) (catalog.Filter, error) {
	minCents, err := priceBound(r, "minPrice")
	if err != nil {
		return catalog.Filter{}, err
	}
	maxCents, err := priceBound(r, "maxPrice")
	if err != nil {
		return catalog.Filter{}, err
	}
	q := r.URL.Query()
	return catalog.Filter{
		Name:     q.Get("name"),
		Category: q.Get("category"),
		MinCents: minCents,
		MaxCents: maxCents,
	}, nil
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	filter, err := productFilter(r)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	products, err := s.deps.Catalog.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	views := make([]*productView, 0, len(products))
	for _, p := range products {
		views = append(views, newProductView(p))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.deps.Catalog.Categories(r.Context())
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	views := make([]categoryView, 0, len(categories))
	for _, c := range categories {
		views = append(views, categoryView{Name: c})
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	p, err := s.deps.Catalog.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newProductView(p))
}

func (s *Server) handleAddProduct(w http.ResponseWriter, r *http.Request) {
	d, img, file, err := parseProductForm(r)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	if file != nil {
		defer file.Close()
	}

	p, err := s.deps.Catalog.Create(r.Context(), d, img)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, productResponse{
		Success:   true,
		Message:   "Product added successfully",
		ProductID: p.ID.String(),
		Product:   newProductView(p),
	})
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	d, img, file, err := parseProductForm(r)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	if file != nil {
		defer file.Close()
	}

	p, err := s.deps.Catalog.Update(r.Context(), id, d, img)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, productResponse{
		Success:   true,
		Message:   "Product updated successfully",
		ProductID: p.ID.String(),
		Product:   newProductView(p),
	})
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := productID(r)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	if err := s.deps.Catalog.Delete(r.Context(), id); err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeMessage(w, http.StatusOK, "Product deleted successfully")
}
