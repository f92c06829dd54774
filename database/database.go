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

package database

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fairgate-io/fairgate/database/models"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

// DefaultNonceRetention is how long consumed sign-in nonces are kept
// before pruning. It must comfortably exceed the signature freshness
// window so a replayed nonce is always still on record when checked.
const DefaultNonceRetention = 24 * time.Hour

const noncePruneInterval = 6 * time.Hour

// Store provides persistent storage for memberships, community
// configuration, consumed nonces, and the audit trail.
type Store struct {
	promRegistry    prometheus.Registerer
	db              *gorm.DB
	logger          *slog.Logger
	timerVacuum     *time.Timer
	timerNoncePrune *time.Timer
	timerMutex      sync.Mutex
	dataDir         string
	nonceRetention  time.Duration
	closed          bool
	vacuumWG        sync.WaitGroup
	noncePruneWG    sync.WaitGroup
}

// StoreConfig is the configuration for the database store
type StoreConfig struct {
	Logger         *slog.Logger
	PromRegistry   prometheus.Registerer
	DataDir        string
	NonceRetention time.Duration
}

// New creates a SQLite-backed store. Uses an in-memory database if
// DataDir is empty.
func New(cfg StoreConfig) (*Store, error) {
	var gormDb *gorm.DB
	var err error
	if cfg.DataDir == "" {
		// Use in-memory database when no data directory is specified, useful for testing
		// cache=shared allows multiple connections to share the same in-memory database
		gormDb, err = gorm.Open(
			sqlite.Open("file::memory:?cache=shared"),
			&gorm.Config{
				Logger:                 gormlogger.Discard,
				SkipDefaultTransaction: true,
			},
		)
		if err != nil {
			return nil, err
		}
	} else {
		// Make sure that we can read data dir, and create if it doesn't exist
		if _, err := os.Stat(cfg.DataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read data dir: %w", err)
			}
			// Create data directory
			if err := os.MkdirAll(cfg.DataDir, fs.ModePerm); err != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", err)
			}
		}
		// Open sqlite DB
		dbPath := filepath.Join(
			cfg.DataDir,
			"fairgate.sqlite",
		)
		// WAL journal mode, disable sync on write, increase cache size to 50MB (from 2MB)
		connOpts := "_pragma=journal_mode(WAL)&_pragma=sync(OFF)&_pragma=cache_size(-50000)"
		gormDb, err = gorm.Open(
			sqlite.Open(
				fmt.Sprintf("file:%s?%s", dbPath, connOpts),
			),
			&gorm.Config{
				Logger:                 gormlogger.Discard,
				SkipDefaultTransaction: true,
			},
		)
		if err != nil {
			return nil, err
		}
	}
	db := &Store{
		db:             gormDb,
		dataDir:        cfg.DataDir,
		logger:         cfg.Logger,
		promRegistry:   cfg.PromRegistry,
		nonceRetention: cfg.NonceRetention,
	}
	if db.nonceRetention <= 0 {
		db.nonceRetention = DefaultNonceRetention
	}
	if err := db.init(); err != nil {
		// Store is available for recovery, so return it with error
		return db, err
	}
	// Create table schemas
	for _, model := range models.MigrateModels {
		db.logger.Debug(fmt.Sprintf("creating table: %#v", model))
		if err := db.db.AutoMigrate(model); err != nil {
			return db, err
		}
	}
	return db, nil
}

func (d *Store) init() error {
	if d.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		d.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	// Configure tracing for GORM
	if err := d.db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return err
	}
	// Schedule daily database vacuum to free unused space
	d.scheduleDailyVacuum()
	// Schedule periodic pruning of consumed sign-in nonces
	d.scheduleNoncePrune()
	return nil
}

func (d *Store) runVacuum() error {
	d.timerMutex.Lock()
	if d.dataDir == "" || d.closed {
		d.timerMutex.Unlock()
		return nil
	}
	// Track this vacuum operation while we know the store is open
	d.vacuumWG.Add(1)
	d.timerMutex.Unlock()
	defer d.vacuumWG.Done()

	if result := d.DB().Raw("VACUUM"); result.Error != nil {
		return result.Error
	}
	return nil
}

// scheduleDailyVacuum schedules a daily vacuum operation
func (d *Store) scheduleDailyVacuum() {
	d.timerMutex.Lock()
	defer d.timerMutex.Unlock()
	if d.closed {
		return
	}

	if d.timerVacuum != nil {
		d.timerVacuum.Stop()
	}
	daily := time.Duration(24) * time.Hour
	f := func() {
		d.logger.Debug(
			"running vacuum on sqlite database",
		)
		// schedule next run
		defer d.scheduleDailyVacuum()
		if err := d.runVacuum(); err != nil {
			d.logger.Error(
				"failed to free unused space in database",
				"component", "database",
				"error", err,
			)
		}
	}
	d.timerVacuum = time.AfterFunc(daily, f)
}

func (d *Store) runNoncePrune() error {
	d.timerMutex.Lock()
	if d.closed {
		d.timerMutex.Unlock()
		return nil
	}
	// Track this prune operation while we know the store is open
	d.noncePruneWG.Add(1)
	retention := d.nonceRetention
	d.timerMutex.Unlock()
	defer d.noncePruneWG.Done()

	pruned, err := d.PruneNonces(time.Now().Add(-retention))
	if err != nil {
		return err
	}
	if pruned > 0 {
		d.logger.Debug(
			"pruned consumed nonces",
			"component", "database",
			"count", pruned,
		)
	}
	return nil
}

// scheduleNoncePrune schedules periodic pruning of consumed nonces
func (d *Store) scheduleNoncePrune() {
	d.timerMutex.Lock()
	defer d.timerMutex.Unlock()
	if d.closed {
		return
	}

	if d.timerNoncePrune != nil {
		d.timerNoncePrune.Stop()
	}
	f := func() {
		// schedule next run
		defer d.scheduleNoncePrune()
		if err := d.runNoncePrune(); err != nil {
			d.logger.Error(
				"failed to prune consumed nonces",
				"component", "database",
				"error", err,
			)
		}
	}
	d.timerNoncePrune = time.AfterFunc(noncePruneInterval, f)
}

// AutoMigrate creates or updates database schema for the given models.
func (d *Store) AutoMigrate(dst ...any) error {
	return d.DB().AutoMigrate(dst...)
}

// Close shuts down the database connection and stops background processes.
func (d *Store) Close() error {
	d.timerMutex.Lock()
	d.closed = true
	if d.timerVacuum != nil {
		d.timerVacuum.Stop()
		d.timerVacuum = nil
	}
	if d.timerNoncePrune != nil {
		d.timerNoncePrune.Stop()
		d.timerNoncePrune = nil
	}
	d.timerMutex.Unlock()

	// Wait for any in-flight vacuum operations to complete
	d.vacuumWG.Wait()

	// Wait for any in-flight nonce prune operations to complete
	d.noncePruneWG.Wait()

	// get DB handle from gorm.DB
	db, err := d.DB().DB()
	if err != nil {
		return fmt.Errorf("get database handle: %w", err)
	}
	return db.Close()
}

// DB returns the underlying GORM database handle.
func (d *Store) DB() *gorm.DB {
	return d.db
}

// DataDir returns the path to the data directory used for storage
func (d *Store) DataDir() string {
	return d.dataDir
}

// Logger returns the logger instance
func (d *Store) Logger() *slog.Logger {
	return d.logger
}

// Transaction creates a new database transaction.
func (d *Store) Transaction() *gorm.DB {
	return d.DB().Begin()
}
