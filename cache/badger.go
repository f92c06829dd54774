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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

const (
	// DefaultRetention is how long Badger physically keeps an entry
	// beyond its logical TTL. Logically expired entries remain readable
	// through GetStale until physical retention elapses.
	DefaultRetention = 7 * 24 * time.Hour

	keyPrefix = "score/"

	gcInterval     = 5 * time.Minute
	gcDiscardRatio = 0.5
)

// BadgerStore is a Badger-backed score cache. Data may not be persisted
// when no data directory is configured.
type BadgerStore struct {
	db        *badger.DB
	logger    *slog.Logger
	gcTicker  *time.Ticker
	gcStopCh  chan struct{}
	dataDir   string
	retention time.Duration
	now       func() time.Time
	gcWg      sync.WaitGroup
	closeOnce sync.Once
}

// BadgerStoreOptionFunc is a function that modifies a BadgerStore
type BadgerStoreOptionFunc func(*BadgerStore)

// WithLogger specifies the logger for the store
func WithLogger(logger *slog.Logger) BadgerStoreOptionFunc {
	return func(s *BadgerStore) {
		s.logger = logger
	}
}

// WithDataDir specifies the data directory. An empty data directory
// results in an in-memory cache.
func WithDataDir(dataDir string) BadgerStoreOptionFunc {
	return func(s *BadgerStore) {
		s.dataDir = dataDir
	}
}

// WithRetention specifies the physical retention period for entries
func WithRetention(retention time.Duration) BadgerStoreOptionFunc {
	return func(s *BadgerStore) {
		if retention > 0 {
			s.retention = retention
		}
	}
}

// WithNowFunc overrides the wall clock used for logical expiry checks.
// This is mostly useful for testing.
func WithNowFunc(now func() time.Time) BadgerStoreOptionFunc {
	return func(s *BadgerStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewBadgerStore creates a new Badger-backed score cache
func NewBadgerStore(opts ...BadgerStoreOptionFunc) (*BadgerStore, error) {
	s := &BadgerStore{
		retention: DefaultRetention,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	var db *badger.DB
	var err error
	if s.dataDir == "" {
		// No dataDir, use in-memory config
		badgerOpts := badger.DefaultOptions("").
			WithLogger(newBadgerLogger(s.logger)).
			// The default INFO logging is a bit verbose
			WithLoggingLevel(badger.WARNING).
			WithInMemory(true)
		db, err = badger.Open(badgerOpts)
		if err != nil {
			return nil, err
		}
	} else {
		// Make sure that we can read data dir, and create if it doesn't exist
		if _, err := os.Stat(s.dataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read data dir: %w", err)
			}
			if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", err)
			}
		}
		cacheDir := filepath.Join(s.dataDir, "cache")
		badgerOpts := badger.DefaultOptions(cacheDir).
			WithLogger(newBadgerLogger(s.logger)).
			WithLoggingLevel(badger.WARNING)
		db, err = badger.Open(badgerOpts)
		if err != nil {
			return nil, err
		}
		// Value log GC only applies to disk-backed stores
		s.gcTicker = time.NewTicker(gcInterval)
		s.gcStopCh = make(chan struct{})
		s.gcWg.Add(1)
		go s.valueLogGc(s.gcTicker, s.gcStopCh)
	}
	s.db = db
	return s, nil
}

func (s *BadgerStore) valueLogGc(t *time.Ticker, stop <-chan struct{}) {
	defer s.gcWg.Done()
	for {
		select {
		case <-t.C:
		again:
			err := s.db.RunValueLogGC(gcDiscardRatio)
			if err != nil {
				// Log any actual errors
				if !errors.Is(err, badger.ErrNoRewrite) {
					s.logger.Warn(
						fmt.Sprintf("cache DB: GC failure: %s", err),
						"component", "cache",
					)
				}
			} else {
				// Run it again if it just ran successfully
				goto again
			}
		case <-stop:
			return
		}
	}
}

// Get returns the cached entry for a wallet if it is still logically
// fresh, or nil if absent or expired.
func (s *BadgerStore) Get(wallet string) (*Entry, error) {
	entry, err := s.get(wallet)
	if err != nil || entry == nil {
		return nil, err
	}
	if entry.Expired(s.now()) {
		return nil, nil
	}
	return entry, nil
}

// GetStale returns the cached entry for a wallet regardless of logical
// expiry. Entries older than the physical retention period are gone.
func (s *BadgerStore) GetStale(wallet string) (*Entry, error) {
	return s.get(wallet)
}

func (s *BadgerStore) get(wallet string) (*Entry, error) {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + wallet))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("cache read for %s: %w", wallet, err)
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("decoding cache entry for %s: %w", wallet, err)
	}
	return &entry, nil
}

// Set stores an entry for a wallet. The Badger TTL is the physical
// retention period rather than the entry's logical TTL so that stale
// reads keep working during upstream outages.
func (s *BadgerStore) Set(wallet string, entry Entry) error {
	raw, err := json.Marshal(&entry)
	if err != nil {
		return fmt.Errorf("encoding cache entry for %s: %w", wallet, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(keyPrefix+wallet), raw).
			WithTTL(s.retention)
		return txn.SetEntry(e)
	})
	if err != nil {
		return fmt.Errorf("cache write for %s: %w", wallet, err)
	}
	return nil
}

// Delete removes the entry for a wallet
func (s *BadgerStore) Delete(wallet string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(keyPrefix + wallet))
	})
	if err != nil {
		return fmt.Errorf("cache delete for %s: %w", wallet, err)
	}
	return nil
}

// Close stops the GC goroutine and closes the underlying database
func (s *BadgerStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.gcTicker != nil {
			s.gcTicker.Stop()
			close(s.gcStopCh)
			s.gcWg.Wait()
		}
		err = s.db.Close()
	})
	return err
}

// badgerLogger is a wrapper type to give our logger a consistent interface
type badgerLogger struct {
	logger *slog.Logger
}

func newBadgerLogger(logger *slog.Logger) *badgerLogger {
	if logger == nil {
		// Create logger to throw away logs
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &badgerLogger{logger: logger}
}

func (b *badgerLogger) Infof(msg string, args ...any) {
	b.logger.Info(
		fmt.Sprintf(msg, args...),
		"component", "cache",
	)
}

func (b *badgerLogger) Warningf(msg string, args ...any) {
	b.logger.Warn(
		fmt.Sprintf(msg, args...),
		"component", "cache",
	)
}

func (b *badgerLogger) Debugf(msg string, args ...any) {
	b.logger.Debug(
		fmt.Sprintf(msg, args...),
		"component", "cache",
	)
}

func (b *badgerLogger) Errorf(msg string, args ...any) {
	b.logger.Error(
		fmt.Sprintf(msg, args...),
		"component", "cache",
	)
}
