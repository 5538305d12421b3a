// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

// Package auth provides authentication primitives for the storefront.
//
// # Domain Types
//
// Principals are created with NewPrincipal, which validates the email
// address and principal kind. Users and admins share one type and are told
// apart by Kind; repositories keep them in separate namespaces.
//
// # Services
//
// Service types coordinate domain operations:
//   - Authenticator - registration, login, token verification, password changes
//   - ResetCoordinator - one-time code issue, verification and reset tickets
//
// Services are created with New* constructors that validate dependencies.
//
// # Reset Stores
//
// ResetCoordinator keeps pending codes and tickets in an injected ResetStore.
// MemoryResetStore serves single-instance deployments; the postgres
// subpackage provides a shared store.
package auth
