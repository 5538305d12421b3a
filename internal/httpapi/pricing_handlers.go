// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/storefront/storefront/internal/pricing"
	"github.com/storefront/storefront/pkg/errutil"
)

type calculatePriceRequest struct {
	ProductType string `json:"productType"`
	Product     string `json:"product"`
	Location    string `json:"location"`
}

type quoteResponse struct {
	BasePrice      float64 `json:"basePrice"`
	GeoFactor      float64 `json:"geoFactor"`
	GeoAdjustment  float64 `json:"geoAdjustment"`
	DeliveryCharge float64 `json:"deliveryCharge"`
	FinalPrice     float64 `json:"finalPrice"`
	Basis          string  `json:"basis"`
}

type deliveryRequest struct {
	Region     string   `json:"region"`
	DistanceKM *float64 `json:"distance_km"`
	WeightKG   *float64 `json:"weight_kg"`
}

type deliveryView struct {
	ID         string    `json:"id"`
	Region     string    `json:"region"`
	BasePrice  float64   `json:"base_price"`
	DistanceKM float64   `json:"distance_km"`
	WeightKG   float64   `json:"weight_kg"`
	TotalCost  float64   `json:"total_cost"`
	CreatedAt  time.Time `json:"created_at"`
}

type deliveryResponse struct {
	Success bool `json:"success"`
	deliveryView
}

func newDeliveryView(d *pricing.Delivery) deliveryView {
	return deliveryView{
		ID:         d.ID.String(),
		Region:     d.Region,
		BasePrice:  d.BasePrice,
		DistanceKM: d.DistanceKM,
		WeightKG:   d.WeightKG,
		TotalCost:  d.TotalCost,
		CreatedAt:  d.CreatedAt,
	}
}

func (s *Server) handleCalculatePrice(w http.ResponseWriter, r *http.Request) {
	var req calculatePriceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	productType := strings.TrimSpace(req.ProductType)
	if productType == "" {
		productType = strings.TrimSpace(req.Product)
	}
	location := strings.TrimSpace(req.Location)
	if productType == "" || location == "" {
		writeError(w, r, s.logger, errutil.Validation("body", "Product type and location are required"))
		return
	}

	q, err := s.deps.Pricing.Quote(r.Context(), productType, location)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, quoteResponse{
		BasePrice:      q.BasePrice,
		GeoFactor:      q.GeoFactor,
		GeoAdjustment:  q.GeoAdjustment,
		DeliveryCharge: q.DeliveryCharge,
		FinalPrice:     q.FinalPrice,
		Basis:          q.Basis,
	})
}

func (s *Server) handleCalculateDelivery(w http.ResponseWriter, r *http.Request) {
	var req deliveryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	d, err := s.deps.Pricing.Delivery(r.Context(), strings.TrimSpace(req.Region), req.DistanceKM, req.WeightKG)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, deliveryResponse{Success: true, deliveryView: newDeliveryView(d)})
}

func (s *Server) handleListDeliveries(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, r, s.logger, errutil.Validation("limit", "limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	deliveries, err := s.deps.Pricing.ListDeliveries(r.Context(), limit)
	if err != nil {
		writeError(w, r, s.logger, err)
		return
	}

	views := make([]deliveryView, 0, len(deliveries))
	for _, d := range deliveries {
		views = append(views, newDeliveryView(d))
	}
	writeJSON(w, http.StatusOK, views)
}
