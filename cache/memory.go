// Copyright 2026 Fairgate Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cache

import (
	"sync"
	"time"
)

// MemoryStore is a map-backed score cache safe for concurrent use.
// Useful for tests and cache-less deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
	now     func() time.Time
}

// MemoryStoreOptionFunc is a function that modifies a MemoryStore
type MemoryStoreOptionFunc func(*MemoryStore)

// WithMemoryNowFunc overrides the wall clock used for logical expiry
// checks. This is mostly useful for testing.
func WithMemoryNowFunc(now func() time.Time) MemoryStoreOptionFunc {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemoryStore creates a new in-memory score cache
func NewMemoryStore(opts ...MemoryStoreOptionFunc) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]Entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the cached entry for a wallet if it is still logically
// fresh, or nil if absent or expired.
func (s *MemoryStore) Get(wallet string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[wallet]
	if !ok || entry.Expired(s.now()) {
		return nil, nil
	}
	return &entry, nil
}

// GetStale returns the cached entry for a wallet regardless of logical
// expiry.
func (s *MemoryStore) GetStale(wallet string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[wallet]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

// Set stores an entry for a wallet
func (s *MemoryStore) Set(wallet string, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[wallet] = entry
	return nil
}

// Delete removes the entry for a wallet
func (s *MemoryStore) Delete(wallet string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, wallet)
	return nil
}

// Close is a no-op for the in-memory store
func (s *MemoryStore) Close() error {
	return nil
}
