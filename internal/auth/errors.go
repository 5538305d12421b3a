// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package auth

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned by repositories when a unique key is taken.
	ErrAlreadyExists = errors.New("already exists")

	// ErrSecretMismatch is returned by a ResetStore when an entry exists but the
	// submitted secret does not match it.
	ErrSecretMismatch = errors.New("secret mismatch")
)
