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

package scoring

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"

	"github.com/fairgate-io/fairgate/cache"
	"github.com/fairgate-io/fairgate/tier"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sethvargo/go-retry"
)

const (
	DefaultRetryInitial = 2 * time.Second
	DefaultMaxRetries   = 3
)

// ErrProviderUnavailable is returned when the provider could not be
// reached and no cached score exists to fall back on. Callers must not
// substitute a default score of zero: that would deny access for an
// infrastructure problem rather than a reputation problem.
var ErrProviderUnavailable = errors.New(
	"reputation provider unavailable",
)

// Fetcher performs a single live score lookup
type Fetcher interface {
	FetchScore(ctx context.Context, wallet string) (int, error)
}

// BreakerStatus reports circuit breaker state for health surfaces
type BreakerStatus struct {
	State   BreakerState `json:"state"`
	Healthy bool         `json:"healthy"`
}

// ResilientConfig is the configuration for a Resilient score client
type ResilientConfig struct {
	Fetcher      Fetcher
	Breaker      *Breaker
	Cache        cache.Store
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	RetryInitial time.Duration
	MaxRetries   uint64
	// Batch fetch tuning (see batch.go)
	BatchConcurrency int
	BatchCooldown    time.Duration
	Now              func() time.Time
}

// Resilient wraps a score Fetcher with a circuit breaker, bounded
// retry-with-backoff, and cache fallback. The cache may be nil, which
// disables both the cache-aside path and the stale fallback.
type Resilient struct {
	fetcher          Fetcher
	breaker          *Breaker
	cache            cache.Store
	logger           *slog.Logger
	retryInitial     time.Duration
	maxRetries       uint64
	batchConcurrency int
	batchCooldown    time.Duration
	now              func() time.Time
	fetchCounter     *prometheus.CounterVec
}

// NewResilient creates a new Resilient score client
func NewResilient(cfg ResilientConfig) *Resilient {
	r := &Resilient{
		fetcher:          cfg.Fetcher,
		breaker:          cfg.Breaker,
		cache:            cfg.Cache,
		logger:           cfg.Logger,
		retryInitial:     cfg.RetryInitial,
		maxRetries:       cfg.MaxRetries,
		batchConcurrency: cfg.BatchConcurrency,
		batchCooldown:    cfg.BatchCooldown,
		now:              cfg.Now,
	}
	if r.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		r.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if r.breaker == nil {
		r.breaker = NewBreaker()
	}
	if r.retryInitial <= 0 {
		r.retryInitial = DefaultRetryInitial
	}
	if r.maxRetries == 0 {
		r.maxRetries = DefaultMaxRetries
	}
	if r.batchConcurrency <= 0 {
		r.batchConcurrency = DefaultBatchConcurrency
	}
	if r.batchCooldown <= 0 {
		r.batchCooldown = DefaultBatchCooldown
	}
	if r.now == nil {
		r.now = time.Now
	}
	if cfg.PromRegistry != nil {
		r.fetchCounter = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fairgate_scoring_fetches_total",
				Help: "Score fetches by outcome",
			},
			[]string{"outcome"},
		)
		cfg.PromRegistry.MustRegister(r.fetchCounter)
	}
	return r
}

// ScoreFor retrieves a score using the circuit breaker and bounded
// retry, falling back to the last cached score (even a logically
// expired one) when the provider is unavailable. Staleness is
// preferable to incorrectly denying access during an infrastructure
// fault.
func (r *Resilient) ScoreFor(
	ctx context.Context,
	wallet string,
) (int, error) {
	var score int
	execErr := r.breaker.Execute(func() error {
		return r.fetchWithRetry(ctx, wallet, &score)
	})
	if execErr == nil {
		r.countFetch("live")
		return score, nil
	}
	r.logger.Error(
		"score fetch failed",
		"component", "scoring",
		"wallet", abbreviateWallet(wallet),
		"error", execErr,
	)
	if r.cache != nil {
		stale, err := r.cache.GetStale(wallet)
		if err != nil {
			r.logger.Error(
				"cache fallback read failed",
				"component", "scoring",
				"wallet", abbreviateWallet(wallet),
				"error", err,
			)
		}
		if stale != nil {
			r.logger.Warn(
				"using cached score due to provider error",
				"component", "scoring",
				"wallet", abbreviateWallet(wallet),
				"score", stale.Score,
			)
			r.countFetch("stale")
			return stale.Score, nil
		}
	}
	r.countFetch("error")
	return 0, fmt.Errorf("%w: %w", ErrProviderUnavailable, execErr)
}

// ScoreForWithCache is the cache-aside variant of ScoreFor: a fresh
// cache hit returns immediately with no provider call; a miss performs
// the resilient fetch and populates the cache with a TTL based on the
// score band.
func (r *Resilient) ScoreForWithCache(
	ctx context.Context,
	wallet string,
) (int, error) {
	if r.cache == nil {
		return r.ScoreFor(ctx, wallet)
	}
	entry, err := r.cache.Get(wallet)
	if err != nil {
		r.logger.Error(
			"cache read failed",
			"component", "scoring",
			"wallet", abbreviateWallet(wallet),
			"error", err,
		)
	}
	if entry != nil {
		r.countFetch("cached")
		return entry.Score, nil
	}
	score, err := r.ScoreFor(ctx, wallet)
	if err != nil {
		return 0, err
	}
	if err := r.cache.Set(wallet, cache.Entry{
		Score:    score,
		CachedAt: r.now(),
		TTL:      tier.CacheTTL(score),
	}); err != nil {
		// Cache population is best-effort
		r.logger.Error(
			"cache write failed",
			"component", "scoring",
			"wallet", abbreviateWallet(wallet),
			"error", err,
		)
	}
	return score, nil
}

// Status returns the circuit breaker state for health-check surfaces
func (r *Resilient) Status() BreakerStatus {
	state := r.breaker.State()
	return BreakerStatus{
		State:   state,
		Healthy: state != StateOpen,
	}
}

func (r *Resilient) fetchWithRetry(
	ctx context.Context,
	wallet string,
	score *int,
) error {
	backoff := retry.WithMaxRetries(
		r.maxRetries,
		retry.NewExponential(r.retryInitial),
	)
	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		result, err := r.fetcher.FetchScore(ctx, wallet)
		if err != nil {
			if retryableFetchError(err) {
				r.logger.Info(
					"retrying score fetch",
					"component", "scoring",
					"wallet", abbreviateWallet(wallet),
					"attempt", attempt,
					"error", err,
				)
				return retry.RetryableError(err)
			}
			return err
		}
		*score = result
		return nil
	})
}

func (r *Resilient) countFetch(outcome string) {
	if r.fetchCounter != nil {
		r.fetchCounter.WithLabelValues(outcome).Inc()
	}
}

// retryableFetchError returns true for request timeouts, rate limiting,
// and server-side failures. Everything else (other 4xx, malformed
// responses) propagates immediately.
func retryableFetchError(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// abbreviateWallet truncates a wallet address for log output
func abbreviateWallet(wallet string) string {
	if len(wallet) <= 8 {
		return wallet
	}
	return wallet[:8] + "..."
}
