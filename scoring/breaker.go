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
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BreakerState represents the current state of a circuit breaker
type BreakerState string

const (
	StateClosed   BreakerState = "CLOSED"
	StateOpen     BreakerState = "OPEN"
	StateHalfOpen BreakerState = "HALF_OPEN"
)

const (
	DefaultFailureThreshold = 5
	DefaultCooldown         = 60 * time.Second
)

// ErrCircuitOpen is returned for calls made while the breaker is open
// and the cooldown has not yet elapsed. No call to the wrapped function
// is attempted.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Breaker is a circuit breaker guarding calls to a failing dependency.
// Each Breaker instance covers one external provider; construct one per
// provider and share it between callers. Safe for concurrent use.
type Breaker struct {
	mu          sync.Mutex
	state       BreakerState
	failures    int
	threshold   int
	cooldown    time.Duration
	nextAttempt time.Time
	now         func() time.Time
	logger      *slog.Logger
	stateGauge  prometheus.Gauge
}

// BreakerOptionFunc is a function that modifies a Breaker
type BreakerOptionFunc func(*Breaker)

// WithFailureThreshold sets the consecutive failure count that trips
// the breaker. The default is DefaultFailureThreshold.
func WithFailureThreshold(threshold int) BreakerOptionFunc {
	return func(b *Breaker) {
		if threshold > 0 {
			b.threshold = threshold
		}
	}
}

// WithCooldown sets how long the breaker stays open before allowing a
// probe call. The default is DefaultCooldown.
func WithCooldown(cooldown time.Duration) BreakerOptionFunc {
	return func(b *Breaker) {
		if cooldown > 0 {
			b.cooldown = cooldown
		}
	}
}

// WithBreakerClock overrides the wall clock used for cooldown checks.
// This is mostly useful for testing.
func WithBreakerClock(now func() time.Time) BreakerOptionFunc {
	return func(b *Breaker) {
		if now != nil {
			b.now = now
		}
	}
}

// WithBreakerLogger specifies the logger for the breaker
func WithBreakerLogger(logger *slog.Logger) BreakerOptionFunc {
	return func(b *Breaker) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithBreakerPrometheusRegistry registers a state gauge with the given
// registry (0 = closed, 1 = half-open, 2 = open).
func WithBreakerPrometheusRegistry(
	registry prometheus.Registerer,
) BreakerOptionFunc {
	return func(b *Breaker) {
		if registry == nil {
			return
		}
		b.stateGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fairgate_scoring_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		})
		registry.MustRegister(b.stateGauge)
	}
}

// NewBreaker creates a new circuit breaker in the closed state
func NewBreaker(opts ...BreakerOptionFunc) *Breaker {
	b := &Breaker{
		state:     StateClosed,
		threshold: DefaultFailureThreshold,
		cooldown:  DefaultCooldown,
		now:       time.Now,
		logger:    slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Execute runs fn through the breaker. While open and before the
// cooldown deadline it fails immediately with ErrCircuitOpen without
// invoking fn. The first call after the cooldown transitions to
// half-open and is allowed through as a probe; its success closes the
// breaker, its failure reopens it with a fresh cooldown.
func (b *Breaker) Execute(fn func() error) error {
	if err := b.allow(); err != nil {
		return err
	}
	err := fn()
	if err != nil {
		b.onFailure()
		return err
	}
	b.onSuccess()
	return nil
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen {
		if b.now().Before(b.nextAttempt) {
			return ErrCircuitOpen
		}
		b.setState(StateHalfOpen)
		b.logger.Info(
			"circuit breaker transitioning to HALF_OPEN",
			"component", "scoring",
		)
	}
	return nil
}

func (b *Breaker) onSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	if b.state == StateHalfOpen {
		b.setState(StateClosed)
		b.logger.Info(
			"circuit breaker CLOSED, provider recovered",
			"component", "scoring",
		)
	}
}

func (b *Breaker) onFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	if b.state == StateHalfOpen || b.failures >= b.threshold {
		b.setState(StateOpen)
		b.nextAttempt = b.now().Add(b.cooldown)
		b.logger.Error(
			"circuit breaker OPEN, too many provider failures",
			"component", "scoring",
			"failures", b.failures,
			"nextAttempt", b.nextAttempt,
		)
	}
}

// setState updates the state and gauge. Callers must hold the mutex.
func (b *Breaker) setState(state BreakerState) {
	b.state = state
	if b.stateGauge != nil {
		switch state {
		case StateClosed:
			b.stateGauge.Set(0)
		case StateHalfOpen:
			b.stateGauge.Set(1)
		case StateOpen:
			b.stateGauge.Set(2)
		}
	}
}

// State returns the current breaker state
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Healthy returns true unless the breaker is open
func (b *Breaker) Healthy() bool {
	return b.State() != StateOpen
}
