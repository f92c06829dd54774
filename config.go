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
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/fairgate-io/fairgate/lifecycle"
	"github.com/fairgate-io/fairgate/scoring"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultRecheckInterval is how often community memberships are
// re-checked against current reputation scores
const DefaultRecheckInterval = 24 * time.Hour

type Config struct {
	promRegistry     prometheus.Registerer
	logger           *slog.Logger
	access           lifecycle.AccessController
	scoreFetcher     scoring.Fetcher
	dataDir          string
	providerURL      string
	providerAPIKey   string
	providerTimeout  time.Duration
	recheckInterval  time.Duration
	nonceRetention   time.Duration
	cacheRetention   time.Duration
	freshnessWindow  time.Duration
	breakerThreshold int
	breakerCooldown  time.Duration
	tracing          bool
	tracingStdout    bool
	shutdownTimeout  time.Duration
}

func (g *Gate) configValidate() error {
	if g.config.providerURL == "" && g.config.scoreFetcher == nil {
		return errors.New("no reputation provider URL defined")
	}
	return nil
}

// ConfigOptionFunc is a type that represents functions that modify the Gate config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new fairgate config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger:          slog.New(slog.NewJSONHandler(io.Discard, nil)),
		recheckInterval: DefaultRecheckInterval,
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithLogger specifies the logger to use. This defaults to discarding log output
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to. In most cases, prometheus.DefaultRegistry would be
// a good choice to get metrics working
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithDataDir specifies the persistent data directory to use. The default is to store everything in memory
func WithDataDir(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithProviderURL specifies the base URL of the reputation score provider
func WithProviderURL(url string) ConfigOptionFunc {
	return func(c *Config) {
		c.providerURL = url
	}
}

// WithProviderAPIKey specifies the API key sent with score provider requests
func WithProviderAPIKey(apiKey string) ConfigOptionFunc {
	return func(c *Config) {
		c.providerAPIKey = apiKey
	}
}

// WithProviderTimeout specifies the per-request timeout for score provider requests. The default is 5 seconds
func WithProviderTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.providerTimeout = timeout
	}
}

// WithScoreFetcher overrides the score provider client. This is mostly
// useful for testing
func WithScoreFetcher(fetcher scoring.Fetcher) ConfigOptionFunc {
	return func(c *Config) {
		c.scoreFetcher = fetcher
	}
}

// WithAccessController specifies the chat platform integration to
// apply membership decisions through. The default only logs decisions
func WithAccessController(
	access lifecycle.AccessController,
) ConfigOptionFunc {
	return func(c *Config) {
		c.access = access
	}
}

// WithRecheckInterval specifies how often to re-check community
// memberships. The default is 24 hours
func WithRecheckInterval(interval time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.recheckInterval = interval
	}
}

// WithNonceRetention specifies how long consumed sign-in nonces are
// retained before pruning. The default is 24 hours
func WithNonceRetention(retention time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.nonceRetention = retention
	}
}

// WithCacheRetention specifies how long cached scores are physically
// retained for stale fallback reads. The default is 7 days
func WithCacheRetention(retention time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.cacheRetention = retention
	}
}

// WithFreshnessWindow specifies the maximum allowed clock drift for
// sign-in message timestamps. The default is 10 minutes
func WithFreshnessWindow(window time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.freshnessWindow = window
	}
}

// WithBreakerThreshold specifies the consecutive failure count that
// opens the score provider circuit breaker. The default is 5
func WithBreakerThreshold(threshold int) ConfigOptionFunc {
	return func(c *Config) {
		c.breakerThreshold = threshold
	}
}

// WithBreakerCooldown specifies how long the circuit breaker stays
// open before admitting a probe request. The default is 60 seconds
func WithBreakerCooldown(cooldown time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.breakerCooldown = cooldown
	}
}

// WithTracing enables tracing. By default, spans are submitted to a HTTP(s) endpoint using OTLP. This can be configured
// using the OTEL_EXPORTER_OTLP_* env vars documented in the README for [go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp]
func WithTracing(tracing bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracing = tracing
	}
}

// WithTracingStdout enables tracing output to stdout. This also requires tracing to enabled separately. This is mostly useful for debugging
func WithTracingStdout(stdout bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingStdout = stdout
	}
}

// WithShutdownTimeout specifies the timeout for graceful shutdown. The default is 30 seconds
func WithShutdownTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.shutdownTimeout = timeout
	}
}
