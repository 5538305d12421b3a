// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package errutil

import (
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertErrorCode fails the test unless err carries code. On mismatch the
// message shows the error text and its context.
func AssertErrorCode(t testing.TB, err error, code string) {
	t.Helper()
	oopsErr, ok := oops.AsOops(err)
	require.Truef(t, ok, "want oops error with code %s, got %T: %v", code, err, err)
	assert.Equalf(t, code, Code(err), "error %q, context %v", oopsErr.Error(), oopsErr.Context())
}

// AssertErrorContext fails the test unless the context of err maps key to value.
func AssertErrorContext(t testing.TB, err error, key string, value any) {
	t.Helper()
	oopsErr, ok := oops.AsOops(err)
	require.Truef(t, ok, "want oops error with %s=%v, got %T: %v", key, value, err, err)
	got, present := oopsErr.Context()[key]
	require.Truef(t, present, "context %v has no %q", oopsErr.Context(), key)
	assert.Equal(t, value, got)
}

// AssertValidation fails the test unless err is a VALIDATION_FAILED error
// naming field.
func AssertValidation(t testing.TB, err error, field string) {
	t.Helper()
	AssertErrorCode(t, err, CodeValidation)
	AssertErrorContext(t, err, "field", field)
}
