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

package node

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	_ "net/http/pprof" // #nosec G108
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fairgate-io/fairgate"
	"github.com/fairgate-io/fairgate/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func Run(cfg *config.Config, logger *slog.Logger) error {
	logger.Debug(fmt.Sprintf("config: %+v", cfg), "component", "node")

	// Parse shutdown timeout
	shutdownTimeout := 30 * time.Second // Default timeout
	if cfg.ShutdownTimeout != "" {
		var err error
		shutdownTimeout, err = time.ParseDuration(cfg.ShutdownTimeout)
		if err != nil {
			return fmt.Errorf("invalid shutdown timeout: %w", err)
		}
	}

	g, err := fairgate.New(
		fairgate.NewConfig(
			fairgate.WithLogger(logger),
			fairgate.WithDataDir(cfg.DatabasePath),
			fairgate.WithProviderURL(cfg.ProviderURL),
			fairgate.WithProviderAPIKey(cfg.ProviderAPIKey),
			fairgate.WithProviderTimeout(
				config.Duration(cfg.ProviderTimeout, 10*time.Second),
			),
			fairgate.WithRecheckInterval(
				config.Duration(cfg.RecheckInterval, fairgate.DefaultRecheckInterval),
			),
			fairgate.WithNonceRetention(
				config.Duration(cfg.NonceRetention, 24*time.Hour),
			),
			fairgate.WithCacheRetention(
				config.Duration(cfg.CacheRetention, 0),
			),
			fairgate.WithFreshnessWindow(
				config.Duration(cfg.FreshnessWindow, 10*time.Minute),
			),
			fairgate.WithBreakerThreshold(cfg.BreakerThreshold),
			fairgate.WithBreakerCooldown(
				config.Duration(cfg.BreakerCooldown, 60*time.Second),
			),
			fairgate.WithTracing(cfg.Tracing),
			fairgate.WithTracingStdout(cfg.TracingStdout),
			fairgate.WithShutdownTimeout(shutdownTimeout),
			// Enable metrics with default prometheus registry
			fairgate.WithPrometheusRegistry(prometheus.DefaultRegisterer),
		),
	)
	if err != nil {
		return err
	}

	// Health listener
	healthMux := http.NewServeMux()
	healthMux.HandleFunc(
		"/healthz",
		func(w http.ResponseWriter, _ *http.Request) {
			status := g.CircuitBreakerStatus()
			w.Header().Set("Content-Type", "application/json")
			if !status.Healthy {
				w.WriteHeader(http.StatusServiceUnavailable)
			}
			_ = json.NewEncoder(w).Encode(status)
		},
	)
	healthServer := &http.Server{
		Addr: fmt.Sprintf(
			"%s:%d",
			cfg.BindAddr,
			cfg.ApiPort,
		),
		Handler:           healthMux,
		ReadHeaderTimeout: 60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	logger.Info(
		"serving health checks on "+healthServer.Addr,
		"component", "node",
	)
	go func() {
		if err := healthServer.ListenAndServe(); err != nil &&
			err != http.ErrServerClosed {
			logger.Error(
				fmt.Sprintf("failed to start health listener: %s", err),
				"component", "node",
			)
			os.Exit(1)
		}
	}()

	// Metrics and debug listener
	http.Handle("/metrics", promhttp.Handler())
	logger.Info(
		"serving prometheus metrics on "+fmt.Sprintf(
			"%s:%d",
			cfg.BindAddr,
			cfg.MetricsPort,
		),
		"component",
		"node",
	)
	metricsServer := &http.Server{
		Addr: fmt.Sprintf(
			"%s:%d",
			cfg.BindAddr,
			cfg.MetricsPort,
		),
		ReadHeaderTimeout: 60 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil &&
			err != http.ErrServerClosed {
			logger.Error(
				fmt.Sprintf("failed to start metrics listener: %s", err),
				"component", "node",
			)
			os.Exit(1)
		}
	}()

	// Wait for interrupt/termination signal
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()

	// Run gate in goroutine
	errChan := make(chan error, 1)
	go func() {
		err := g.Run()
		select {
		case errChan <- err:
		case <-signalCtx.Done():
		}
	}()

	shutdownListeners := func() {
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			shutdownTimeout,
		)
		defer cancel()
		if err := healthServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("health server shutdown error", "error", err)
		}
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", "error", err)
		}
	}

	// Wait for signal or error
	select {
	case <-signalCtx.Done():
		logger.Info("signal received, initiating graceful shutdown")
		shutdownListeners()
		if err := g.Stop(); err != nil {
			logger.Error("shutdown errors occurred", "error", err)
			return err
		}
		logger.Info("shutdown complete")
		return nil

	case err := <-errChan:
		shutdownListeners()
		if err == nil {
			logger.Info("gate stopped")
			if err := g.Stop(); err != nil {
				logger.Error("shutdown errors occurred", "error", err)
				return err
			}
			return nil
		}
		if stopErr := g.Stop(); stopErr != nil {
			logger.Error("shutdown errors occurred", "error", stopErr)
		}
		return err
	}
}
