// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Storefront Contributors

package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// MemoryResetStore is an in-process ResetStore. Entries are lost on restart.
//
// A single mutex guards the map; every operation is a short read-modify-write
// with no I/O under the lock, which makes each key's operations atomic.
type MemoryResetStore struct {
	mu      sync.Mutex
	entries map[ResetKey]PendingReset

	stopChan  chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	now       func() time.Time
	sweepSeen func(removed int64)
}

// NewMemoryResetStore creates a MemoryResetStore. When sweepInterval is
// positive a background goroutine removes expired entries; call Close to
// stop it.
func NewMemoryResetStore(sweepInterval time.Duration) *MemoryResetStore {
	return newMemoryResetStore(sweepInterval, time.Now, nil)
}

func newMemoryResetStore(sweepInterval time.Duration, now func() time.Time, sweepSeen func(int64)) *MemoryResetStore {
	s := &MemoryResetStore{
		entries:   make(map[ResetKey]PendingReset),
		stopChan:  make(chan struct{}),
		now:       now,
		sweepSeen: sweepSeen,
	}
	if sweepInterval > 0 {
		s.wg.Add(1)
		go s.sweepLoop(sweepInterval)
	}
	return s
}

// Save stores reset, replacing any entry under the same key.
func (s *MemoryResetStore) Save(_ context.Context, reset *PendingReset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[reset.Key] = *reset
	return nil
}

// Consume implements ResetStore.
func (s *MemoryResetStore) Consume(_ context.Context, key ResetKey, secretHash string, now time.Time, maxAttempts int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return ErrNotFound
	}
	if entry.IsExpired(now) {
		delete(s.entries, key)
		return ErrNotFound
	}
	if !SecretMatches(entry.SecretHash, secretHash) {
		entry.Attempts++
		if maxAttempts > 0 && entry.Attempts >= maxAttempts {
			delete(s.entries, key)
		} else {
			s.entries[key] = entry
		}
		return ErrSecretMismatch
	}

	delete(s.entries, key)
	return nil
}

// DeleteExpired removes entries expired at now.
func (s *MemoryResetStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int64
	for key, entry := range s.entries {
		if entry.IsExpired(now) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored entries, expired or not.
func (s *MemoryResetStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryResetStore) sweepLoop(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			removed, _ := s.DeleteExpired(context.Background(), s.now()) //nolint:errcheck // memory store never fails
			if removed > 0 {
				slog.Debug("swept expired reset entries", "removed", removed)
			}
			if s.sweepSeen != nil {
				s.sweepSeen(removed)
			}
		}
	}
}

// Close stops the sweep goroutine and waits for it to exit. It is safe to
// call more than once.
func (s *MemoryResetStore) Close() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
}

var _ ResetStore = (*MemoryResetStore)(nil)
