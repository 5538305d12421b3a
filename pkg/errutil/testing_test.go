// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package errutil_test

import (
	"errors"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"

	"github.com/storefront/storefront/pkg/errutil"
)

func TestAssertErrorCode_MatchingCode(t *testing.T) {
	err := oops.Code(errutil.CodeConflict).Errorf("principal exists")
	errutil.AssertErrorCode(t, err, errutil.CodeConflict)
}

func TestAssertErrorContext_MatchingKeyValue(t *testing.T) {
	err := oops.With("email", "a@x.com").Errorf("test error")
	errutil.AssertErrorContext(t, err, "email", "a@x.com")
}

func TestCode(t *testing.T) {
	t.Run("oops error with code", func(t *testing.T) {
		assert.Equal(t, errutil.CodeInvalidOTP, errutil.Code(oops.Code(errutil.CodeInvalidOTP).Errorf("bad code")))
	})

	t.Run("wrapping without a code keeps the inner code", func(t *testing.T) {
		inner := oops.Code(errutil.CodeNotFound).Errorf("missing")
		assert.Equal(t, errutil.CodeNotFound, errutil.Code(oops.With("id", "x").Wrap(inner)))
	})

	t.Run("plain error", func(t *testing.T) {
		assert.Empty(t, errutil.Code(errors.New("plain")))
	})

	t.Run("nil error", func(t *testing.T) {
		assert.Empty(t, errutil.Code(nil))
	})
}

func TestValidation(t *testing.T) {
	err := errutil.Validation("email", "%s is required", "email")
	errutil.AssertValidation(t, err, "email")
	assert.Contains(t, err.Error(), "email is required")
}
