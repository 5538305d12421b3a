// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package auth_test

import (
	"sync"

	"github.com/storefront/storefront/internal/auth"
)

// eventLog is an EventRecorder that keeps every event.
type eventLog struct {
	mu     sync.Mutex
	auth   []string
	resets []string
}

func (e *eventLog) RecordAuthEvent(kind auth.Kind, event string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.auth = append(e.auth, string(kind)+":"+event)
}

func (e *eventLog) RecordResetEvent(kind auth.Kind, event string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resets = append(e.resets, string(kind)+":"+event)
}
