// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/storefront/pkg/errutil"
)

func ptr(v float64) *float64 { return &v }

func TestCalculator_Quote(t *testing.T) {
	tests := []struct {
		name        string
		productType string
		location    string
		wantBase    float64
		wantFactor  float64
		wantAdjust  float64
		wantFee     float64
		wantFinal   float64
		wantBasis   string
	}{
		{
			name: "electronics in new york", productType: "electronics", location: "New York",
			wantBase: 600, wantFactor: 1.25, wantAdjust: 150, wantFee: 15, wantFinal: 765,
			wantBasis: "Adjusted for high demand in urban area",
		},
		{
			name: "clothing in los angeles", productType: "Clothing", location: "los angeles",
			wantBase: 80, wantFactor: 1.20, wantAdjust: 16, wantFee: 20, wantFinal: 116,
			wantBasis: "Adjusted for high demand in urban area",
		},
		{
			name: "furniture in rural ohio", productType: "furniture", location: "RURAL OHIO",
			wantBase: 400, wantFactor: 0.85, wantAdjust: -60, wantFee: 40, wantFinal: 380,
			wantBasis: "Adjusted for low demand in rural area",
		},
		{
			name: "unknown type and place", productType: "books", location: "Lisbon",
			wantBase: 100, wantFactor: 1.0, wantAdjust: 0, wantFee: 25, wantFinal: 125,
			wantBasis: "Adjusted for medium demand in urban area",
		},
	}

	calc := NewCalculator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := calc.Quote(tt.productType, tt.location)
			require.NoError(t, err)
			assert.Equal(t, tt.wantBase, q.BasePrice)
			assert.InDelta(t, tt.wantFactor, q.GeoFactor, 1e-9)
			assert.InDelta(t, tt.wantAdjust, q.GeoAdjustment, 1e-9)
			assert.Equal(t, tt.wantFee, q.DeliveryCharge)
			assert.InDelta(t, tt.wantFinal, q.FinalPrice, 1e-9)
			assert.Equal(t, tt.wantBasis, q.Basis)
			assert.Equal(t, tt.location, q.Location)
		})
	}
}

func TestCalculator_QuoteRequiresInputs(t *testing.T) {
	calc := NewCalculator()

	_, err := calc.Quote("", "New York")
	errutil.AssertErrorContext(t, err, "field", "productType")

	_, err = calc.Quote("electronics", "  ")
	errutil.AssertErrorCode(t, err, errutil.CodeValidation)
	errutil.AssertErrorContext(t, err, "field", "location")
}

func TestCalculator_DeliveryCost(t *testing.T) {
	calc := NewCalculator()

	d, err := calc.DeliveryCost(" north ", ptr(10), ptr(2))
	require.NoError(t, err)
	assert.Equal(t, "north", d.Region)
	assert.Equal(t, DeliveryBasePrice, d.BasePrice)
	assert.InDelta(t, 28.0, d.TotalCost, 1e-9)

	d, err = calc.DeliveryCost("", ptr(0), ptr(0))
	require.NoError(t, err)
	assert.InDelta(t, 20.0, d.TotalCost, 1e-9)

	d, err = calc.DeliveryCost("", ptr(3.3), ptr(1.1))
	require.NoError(t, err)
	assert.InDelta(t, 23.3, d.TotalCost, 1e-9)
}

func TestCalculator_DeliveryCostRejectsBadInput(t *testing.T) {
	calc := NewCalculator()

	tests := []struct {
		name     string
		distance *float64
		weight   *float64
		field    string
	}{
		{name: "missing distance", weight: ptr(1), field: "distance_km"},
		{name: "missing weight", distance: ptr(1), field: "weight_kg"},
		{name: "negative distance", distance: ptr(-1), weight: ptr(1), field: "distance_km"},
		{name: "negative weight", distance: ptr(1), weight: ptr(-0.5), field: "weight_kg"},
		{name: "nan", distance: ptr(math.NaN()), weight: ptr(1), field: "distance_km"},
		{name: "infinite", distance: ptr(1), weight: ptr(math.Inf(1)), field: "weight_kg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := calc.DeliveryCost("", tt.distance, tt.weight)
			errutil.AssertErrorCode(t, err, errutil.CodeValidation)
			errutil.AssertErrorContext(t, err, "field", tt.field)
		})
	}
}
