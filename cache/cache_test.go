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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryExpired(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	entry := Entry{
		Score:    600,
		CachedAt: now,
		TTL:      time.Hour,
	}
	assert.False(t, entry.Expired(now))
	assert.False(t, entry.Expired(now.Add(time.Hour)))
	assert.True(t, entry.Expired(now.Add(time.Hour+time.Second)))
}

// storeUnderTest runs the common Store contract against any implementation
func storeUnderTest(
	t *testing.T,
	store Store,
	now *time.Time,
) {
	t.Helper()

	// Absent entry
	entry, err := store.Get("wallet-a")
	require.NoError(t, err)
	assert.Nil(t, entry)
	entry, err = store.GetStale("wallet-a")
	require.NoError(t, err)
	assert.Nil(t, entry)

	// Fresh entry round trip
	err = store.Set("wallet-a", Entry{
		Score:    720,
		Tier:     "gold",
		CachedAt: *now,
		TTL:      time.Hour,
	})
	require.NoError(t, err)
	entry, err = store.Get("wallet-a")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, 720, entry.Score)
	assert.Equal(t, "gold", entry.Tier)

	// Logically expired entries disappear from Get but remain in GetStale
	*now = now.Add(2 * time.Hour)
	entry, err = store.Get("wallet-a")
	require.NoError(t, err)
	assert.Nil(t, entry)
	entry, err = store.GetStale("wallet-a")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, 720, entry.Score)

	// Delete removes the entry entirely
	require.NoError(t, store.Delete("wallet-a"))
	entry, err = store.GetStale("wallet-a")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestMemoryStore(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore(
		WithMemoryNowFunc(func() time.Time { return now }),
	)
	defer store.Close()
	storeUnderTest(t, store, &now)
}

func TestBadgerStoreInMemory(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	store, err := NewBadgerStore(
		WithNowFunc(func() time.Time { return now }),
	)
	require.NoError(t, err)
	defer store.Close()
	storeUnderTest(t, store, &now)
}

func TestBadgerStorePersistent(t *testing.T) {
	dataDir := t.TempDir()
	store, err := NewBadgerStore(WithDataDir(dataDir))
	require.NoError(t, err)

	err = store.Set("wallet-b", Entry{
		Score:    450,
		CachedAt: time.Now(),
		TTL:      time.Hour,
	})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Reopen and verify the entry survived
	store, err = NewBadgerStore(WithDataDir(dataDir))
	require.NoError(t, err)
	defer store.Close()
	entry, err := store.Get("wallet-b")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, 450, entry.Score)
}

func TestMemoryStoreConcurrent(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			_ = store.Set("wallet-c", Entry{
				Score:    i,
				CachedAt: time.Now(),
				TTL:      time.Hour,
			})
		}
	}()
	for i := 0; i < 100; i++ {
		_, err := store.Get("wallet-c")
		assert.NoError(t, err)
	}
	<-done
}
