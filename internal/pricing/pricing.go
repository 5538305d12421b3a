// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

// Package pricing computes location-adjusted prices and delivery costs and
// records every calculation.
package pricing

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/storefront/storefront/pkg/errutil"
)

// Location describes how a market adjusts prices.
type Location struct {
	Demand   string
	Urban    bool
	Factor   float64
	Delivery float64
}

// DefaultBasePrice applies to product types missing from the base price table.
const DefaultBasePrice = 100.0

// DefaultLocation applies to locations missing from the location table.
var DefaultLocation = Location{Demand: "medium", Urban: true, Factor: 1.0, Delivery: 25}

var defaultBasePrices = map[string]float64{
	"electronics": 600,
	"clothing":    80,
	"furniture":   400,
}

var defaultLocations = map[string]Location{
	"new york":    {Demand: "high", Urban: true, Factor: 1.25, Delivery: 15},
	"los angeles": {Demand: "high", Urban: true, Factor: 1.20, Delivery: 20},
	"rural ohio":  {Demand: "low", Urban: false, Factor: 0.85, Delivery: 40},
}

// Delivery cost parameters.
const (
	DeliveryBasePrice = 20.0
	RatePerKM         = 0.5
	RatePerKG         = 1.5
)

// Quote is one price calculation.
type Quote struct {
	ID             ulid.ULID
	ProductType    string
	Location       string
	BasePrice      float64
	GeoFactor      float64
	GeoAdjustment  float64
	DeliveryCharge float64
	FinalPrice     float64
	Basis          string
	CreatedAt      time.Time
}

// Delivery is one delivery cost calculation.
type Delivery struct {
	ID         ulid.ULID
	Region     string
	BasePrice  float64
	DistanceKM float64
	WeightKG   float64
	TotalCost  float64
	CreatedAt  time.Time
}

// Calculator holds the pricing tables. Lookups are case-insensitive.
type Calculator struct {
	basePrices map[string]float64
	locations  map[string]Location
}

// NewCalculator creates a Calculator with the built-in tables.
func NewCalculator() *Calculator {
	return &Calculator{basePrices: defaultBasePrices, locations: defaultLocations}
}

// Quote prices productType for location.
func (c *Calculator) Quote(productType, location string) (*Quote, error) {
	productType = strings.TrimSpace(productType)
	location = strings.TrimSpace(location)
	if productType == "" {
		return nil, errutil.Validation("productType", "product type is required")
	}
	if location == "" {
		return nil, errutil.Validation("location", "location is required")
	}

	base, ok := c.basePrices[strings.ToLower(productType)]
	if !ok {
		base = DefaultBasePrice
	}
	loc, ok := c.locations[strings.ToLower(location)]
	if !ok {
		loc = DefaultLocation
	}

	adjustment := base * (loc.Factor - 1)
	area := "rural"
	if loc.Urban {
		area = "urban"
	}

	return &Quote{
		ProductType:    productType,
		Location:       location,
		BasePrice:      base,
		GeoFactor:      loc.Factor,
		GeoAdjustment:  math.Round(adjustment),
		DeliveryCharge: loc.Delivery,
		FinalPrice:     math.Round(base + adjustment + loc.Delivery),
		Basis:          fmt.Sprintf("Adjusted for %s demand in %s area", loc.Demand, area),
	}, nil
}

// DeliveryCost prices a delivery. Both inputs must be present, finite and
// not negative.
func (c *Calculator) DeliveryCost(region string, distanceKM, weightKG *float64) (*Delivery, error) {
	if distanceKM == nil {
		return nil, errutil.Validation("distance_km", "distance_km is required")
	}
	if weightKG == nil {
		return nil, errutil.Validation("weight_kg", "weight_kg is required")
	}
	if err := checkQuantity("distance_km", *distanceKM); err != nil {
		return nil, err
	}
	if err := checkQuantity("weight_kg", *weightKG); err != nil {
		return nil, err
	}

	total := DeliveryBasePrice + RatePerKM*(*distanceKM) + RatePerKG*(*weightKG)
	return &Delivery{
		Region:     strings.TrimSpace(region),
		BasePrice:  DeliveryBasePrice,
		DistanceKM: *distanceKM,
		WeightKG:   *weightKG,
		TotalCost:  math.Round(total*100) / 100,
	}, nil
}

func checkQuantity(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return errutil.Validation(field, "%s must be a number", field)
	}
	if v < 0 {
		return errutil.Validation(field, "%s must not be negative", field)
	}
	return nil
}
