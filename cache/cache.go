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

import "time"

// Entry is a cached reputation score for a wallet address. Entries carry
// their own logical expiry so that a logically expired entry can still be
// read through GetStale during an upstream outage.
type Entry struct {
	Score    int           `json:"score"`
	Tier     string        `json:"tier,omitempty"`
	CachedAt time.Time     `json:"cachedAt"`
	TTL      time.Duration `json:"ttl"`
}

// Expired returns true if the entry's logical TTL has elapsed at the
// given time.
func (e *Entry) Expired(now time.Time) bool {
	return now.After(e.CachedAt.Add(e.TTL))
}

// Store is the score cache contract. Get only returns entries that are
// still logically fresh; GetStale ignores logical expiry for use as a
// last-resort fallback when the upstream provider is unavailable. Both
// return nil with no error when no usable entry exists.
type Store interface {
	Get(wallet string) (*Entry, error)
	GetStale(wallet string) (*Entry, error)
	Set(wallet string, entry Entry) error
	Delete(wallet string) error
	Close() error
}
