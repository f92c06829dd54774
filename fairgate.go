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

package fairgate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fairgate-io/fairgate/cache"
	"github.com/fairgate-io/fairgate/database"
	"github.com/fairgate-io/fairgate/database/models"
	"github.com/fairgate-io/fairgate/event"
	"github.com/fairgate-io/fairgate/lifecycle"
	"github.com/fairgate-io/fairgate/scoring"
	"github.com/fairgate-io/fairgate/siws"
)

// Gate is the reputation gate daemon: it verifies wallet ownership for
// new members, keeps reputation scores cached, and re-checks community
// memberships on a schedule.
type Gate struct {
	eventBus      *event.EventBus
	db            *database.Store
	scoreCache    cache.Store
	scores        *scoring.Resilient
	verifier      *siws.Verifier
	engine        *lifecycle.Engine
	timerRecheck  *time.Timer
	timerMutex    sync.Mutex
	timerStopped  bool
	recheckWG     sync.WaitGroup
	shutdownFuncs []func(context.Context) error
	config        Config
	done          chan struct{}
	shutdownOnce  sync.Once
}

// New creates a Gate and wires up its storage, score client, and
// lifecycle engine. The Gate is fully usable for one-shot operations
// after New; Run only adds background scheduling.
func New(cfg Config) (*Gate, error) {
	g := &Gate{
		config:   cfg,
		eventBus: event.NewEventBus(cfg.promRegistry, cfg.logger),
		done:     make(chan struct{}),
	}
	if err := g.configValidate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	// Load database
	db, err := database.New(database.StoreConfig{
		DataDir:        cfg.dataDir,
		Logger:         cfg.logger,
		PromRegistry:   cfg.promRegistry,
		NonceRetention: cfg.nonceRetention,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	g.db = db
	// Load score cache
	cacheOpts := []cache.BadgerStoreOptionFunc{
		cache.WithLogger(cfg.logger),
	}
	if cfg.dataDir != "" {
		cacheOpts = append(cacheOpts, cache.WithDataDir(cfg.dataDir))
	}
	if cfg.cacheRetention > 0 {
		cacheOpts = append(
			cacheOpts,
			cache.WithRetention(cfg.cacheRetention),
		)
	}
	scoreCache, err := cache.NewBadgerStore(cacheOpts...)
	if err != nil {
		return nil, errors.Join(
			fmt.Errorf("failed to open score cache: %w", err),
			g.db.Close(),
		)
	}
	g.scoreCache = scoreCache
	// Configure score client
	fetcher := cfg.scoreFetcher
	if fetcher == nil {
		clientOpts := []scoring.ClientOption{}
		if cfg.providerTimeout > 0 {
			clientOpts = append(
				clientOpts,
				scoring.WithRequestTimeout(cfg.providerTimeout),
			)
		}
		fetcher = scoring.NewClient(
			cfg.providerURL,
			cfg.providerAPIKey,
			clientOpts...,
		)
	}
	breakerOpts := []scoring.BreakerOptionFunc{
		scoring.WithBreakerLogger(cfg.logger),
	}
	if cfg.breakerThreshold > 0 {
		breakerOpts = append(
			breakerOpts,
			scoring.WithFailureThreshold(cfg.breakerThreshold),
		)
	}
	if cfg.breakerCooldown > 0 {
		breakerOpts = append(
			breakerOpts,
			scoring.WithCooldown(cfg.breakerCooldown),
		)
	}
	if cfg.promRegistry != nil {
		breakerOpts = append(
			breakerOpts,
			scoring.WithBreakerPrometheusRegistry(cfg.promRegistry),
		)
	}
	g.scores = scoring.NewResilient(scoring.ResilientConfig{
		Fetcher:      fetcher,
		Breaker:      scoring.NewBreaker(breakerOpts...),
		Cache:        g.scoreCache,
		Logger:       cfg.logger,
		PromRegistry: cfg.promRegistry,
	})
	// Configure sign-in verifier
	verifierOpts := []siws.VerifierOptionFunc{}
	if cfg.freshnessWindow > 0 {
		verifierOpts = append(
			verifierOpts,
			siws.WithFreshnessWindow(cfg.freshnessWindow),
		)
	}
	g.verifier = siws.NewVerifier(g.db, cfg.logger, verifierOpts...)
	// Configure lifecycle engine
	g.engine = lifecycle.NewEngine(lifecycle.EngineConfig{
		Logger:       cfg.logger,
		Store:        g.db,
		Verifier:     g.verifier,
		Scores:       g.scores,
		Access:       cfg.access,
		EventBus:     g.eventBus,
		PromRegistry: cfg.promRegistry,
	})
	return g, nil
}

// Run starts the re-check scheduler and blocks until Stop is called
func (g *Gate) Run() error {
	// Configure tracing
	if g.config.tracing {
		if err := g.setupTracing(); err != nil {
			return err
		}
	}
	g.scheduleRecheck()
	g.config.logger.Info(
		"reputation gate started",
		"component", "gate",
		"recheck_interval", g.config.recheckInterval.String(),
	)
	// Wait for shutdown signal
	<-g.done
	return nil
}

// scheduleRecheck schedules the next community re-check sweep
func (g *Gate) scheduleRecheck() {
	g.timerMutex.Lock()
	defer g.timerMutex.Unlock()
	if g.timerStopped {
		return
	}

	if g.timerRecheck != nil {
		g.timerRecheck.Stop()
	}
	f := func() {
		// schedule next run
		defer g.scheduleRecheck()
		g.runRecheck()
	}
	g.timerRecheck = time.AfterFunc(g.config.recheckInterval, f)
}

// runRecheck sweeps every community with re-checking enabled
func (g *Gate) runRecheck() {
	g.timerMutex.Lock()
	if g.timerStopped {
		g.timerMutex.Unlock()
		return
	}
	// Track this sweep while we know the gate is running
	g.recheckWG.Add(1)
	g.timerMutex.Unlock()
	defer g.recheckWG.Done()

	if _, err := g.RecheckCommunities(
		context.Background(),
		models.AuditSourceCron,
	); err != nil {
		g.config.logger.Error(
			"scheduled re-check failed",
			"component", "gate",
			"error", err,
		)
	}
}

// RecheckCommunities re-checks every membership across all communities
// with re-checking enabled and aggregates the per-community summaries.
// A failure in one community is collected and the sweep continues.
func (g *Gate) RecheckCommunities(
	ctx context.Context,
	source string,
) (*lifecycle.RecheckSummary, error) {
	start := time.Now()
	communities, err := g.db.ListCommunities(nil)
	if err != nil {
		return nil, fmt.Errorf("list communities: %w", err)
	}
	total := &lifecycle.RecheckSummary{}
	var errs []error
	for _, community := range communities {
		if !community.RecheckEnabled {
			continue
		}
		summary, err := g.engine.RecheckAll(
			ctx,
			community.CommunityID,
			source,
		)
		if err != nil {
			errs = append(
				errs,
				fmt.Errorf("community %q: %w", community.CommunityID, err),
			)
		}
		if summary != nil {
			total.Total += summary.Total
			total.Checked += summary.Checked
			total.Evicted += summary.Evicted
			total.Promoted += summary.Promoted
			total.Demoted += summary.Demoted
			total.Unchanged += summary.Unchanged
		}
	}
	total.ExecutionTimeMs = time.Since(start).Milliseconds()
	return total, errors.Join(errs...)
}

// Verify performs first-time wallet verification for a participant
func (g *Gate) Verify(
	ctx context.Context,
	req lifecycle.VerifyRequest,
) (*lifecycle.VerifyResult, error) {
	return g.engine.Verify(ctx, req)
}

// RecheckNow runs an immediate re-check of a single community
func (g *Gate) RecheckNow(
	ctx context.Context,
	communityID string,
	source string,
) (*lifecycle.RecheckSummary, error) {
	return g.engine.RecheckAll(ctx, communityID, source)
}

// RecheckMember runs an immediate re-check of a single member
func (g *Gate) RecheckMember(
	ctx context.Context,
	communityID, participantID string,
	source string,
) (string, error) {
	return g.engine.RecheckMember(ctx, communityID, participantID, source)
}

// CircuitBreakerStatus reports the score provider circuit breaker
// state for health-check surfaces
func (g *Gate) CircuitBreakerStatus() scoring.BreakerStatus {
	return g.scores.Status()
}

// Store returns the underlying database store
func (g *Gate) Store() *database.Store {
	return g.db
}

// EventBus returns the gate's event bus
func (g *Gate) EventBus() *event.EventBus {
	return g.eventBus
}

func (g *Gate) Stop() error {
	var err error
	g.shutdownOnce.Do(func() {
		err = g.shutdown()
	})
	return err
}

func (g *Gate) shutdown() error {
	// Create shutdown context with timeout (default 30s if not configured)
	shutdownTimeout := 30 * time.Second
	if g.config.shutdownTimeout > 0 {
		shutdownTimeout = g.config.shutdownTimeout
	}
	ctx, cancel := context.WithTimeout(
		context.Background(),
		shutdownTimeout,
	)
	defer cancel()

	var err error

	g.config.logger.Debug("starting graceful shutdown")

	// Phase 1: Stop scheduling new work
	g.config.logger.Debug("shutdown phase 1: stopping scheduler")

	g.timerMutex.Lock()
	g.timerStopped = true
	if g.timerRecheck != nil {
		g.timerRecheck.Stop()
		g.timerRecheck = nil
	}
	g.timerMutex.Unlock()

	// Wait for any in-flight re-check sweep to complete
	g.recheckWG.Wait()

	// Phase 2: Flush and close storage
	g.config.logger.Debug("shutdown phase 2: closing storage")

	if g.scoreCache != nil {
		if closeErr := g.scoreCache.Close(); closeErr != nil {
			err = errors.Join(
				err,
				fmt.Errorf("score cache close: %w", closeErr),
			)
		}
	}

	if g.db != nil {
		if closeErr := g.db.Close(); closeErr != nil {
			err = errors.Join(
				err,
				fmt.Errorf("database close: %w", closeErr),
			)
		}
	}

	// Phase 3: Cleanup resources
	g.config.logger.Debug("shutdown phase 3: cleanup resources")

	// Call registered shutdown functions
	for _, fn := range g.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(
				err,
				fmt.Errorf("shutdown function: %w", fnErr),
			)
		}
	}
	g.shutdownFuncs = nil

	if g.eventBus != nil {
		g.eventBus.Stop()
	}

	g.config.logger.Debug("graceful shutdown complete")
	close(g.done)
	return err
}
