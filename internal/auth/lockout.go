// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package auth

import (
	"strings"
	"sync"
	"time"
)

// Login lockout configuration.
const (
	// LockoutDuration is how long a principal is locked after too many failures.
	LockoutDuration = 15 * time.Minute

	// LockoutThreshold is the number of consecutive failures that locks a principal.
	LockoutThreshold = 7
)

// IsLockedOut reports whether lockedUntil is after now.
func IsLockedOut(lockedUntil *time.Time, now time.Time) bool {
	return lockedUntil != nil && lockedUntil.After(now)
}

// ComputeLockoutTime returns the lockout deadline for a failure count, or
// nil below LockoutThreshold.
func ComputeLockoutTime(failures int, now time.Time) *time.Time {
	if failures < LockoutThreshold {
		return nil
	}
	until := now.Add(LockoutDuration)
	return &until
}

type lockoutKey struct {
	kind  Kind
	email string
}

type failureState struct {
	failures    int
	lockedUntil *time.Time
}

// LockoutTracker counts consecutive login failures per principal.
// State is held in process and cleared by a successful login or a
// password change.
type LockoutTracker struct {
	mu     sync.Mutex
	states map[lockoutKey]*failureState
}

// NewLockoutTracker creates an empty tracker.
func NewLockoutTracker() *LockoutTracker {
	return &LockoutTracker{states: make(map[lockoutKey]*failureState)}
}

func newLockoutKey(kind Kind, email string) lockoutKey {
	return lockoutKey{kind: kind, email: strings.ToLower(email)}
}

// Locked reports whether the principal is locked at now.
func (t *LockoutTracker) Locked(kind Kind, email string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.states[newLockoutKey(kind, email)]
	return ok && IsLockedOut(st.lockedUntil, now)
}

// RecordFailure counts a failed login and returns the new failure count.
func (t *LockoutTracker) RecordFailure(kind Kind, email string, now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := newLockoutKey(kind, email)
	st, ok := t.states[key]
	if !ok {
		st = &failureState{}
		t.states[key] = st
	}
	st.failures++
	st.lockedUntil = ComputeLockoutTime(st.failures, now)
	return st.failures
}

// RecordSuccess clears the principal's failures and lockout.
func (t *LockoutTracker) RecordSuccess(kind Kind, email string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.states, newLockoutKey(kind, email))
}
