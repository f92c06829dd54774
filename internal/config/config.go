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

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "fairgate.config"

const DefaultShutdownTimeout = "30s"

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

type Config struct {
	DatabasePath     string `yaml:"databasePath"                                    split_words:"true"`
	BindAddr         string `yaml:"bindAddr"                                        split_words:"true"`
	ProviderURL      string `yaml:"providerUrl"      envconfig:"FAIRGATE_PROVIDER_URL"`
	ProviderAPIKey   string `yaml:"providerApiKey"   envconfig:"FAIRGATE_PROVIDER_API_KEY"`
	ProviderTimeout  string `yaml:"providerTimeout"                                 split_words:"true"`
	RecheckInterval  string `yaml:"recheckInterval"                                 split_words:"true"`
	NonceRetention   string `yaml:"nonceRetention"                                  split_words:"true"`
	CacheRetention   string `yaml:"cacheRetention"                                  split_words:"true"`
	FreshnessWindow  string `yaml:"freshnessWindow"                                 split_words:"true"`
	BreakerCooldown  string `yaml:"breakerCooldown"                                 split_words:"true"`
	ShutdownTimeout  string `yaml:"shutdownTimeout"                                 split_words:"true"`
	BreakerThreshold int    `yaml:"breakerThreshold"                                split_words:"true"`
	ApiPort          uint   `yaml:"apiPort"                                         split_words:"true"`
	MetricsPort      uint   `yaml:"metricsPort"                                     split_words:"true"`
	Tracing          bool   `yaml:"tracing"`
	TracingStdout    bool   `yaml:"tracingStdout"                                   split_words:"true"`
}

var globalConfig = &Config{
	DatabasePath:    ".fairgate",
	BindAddr:        "0.0.0.0",
	ApiPort:         8080,
	MetricsPort:     12798,
	RecheckInterval: "24h",
	ShutdownTimeout: DefaultShutdownTimeout,
}

func LoadConfig(configFile string) (*Config, error) {
	// Load config file as YAML if provided
	if configFile == "" {
		// Check for config file in this path: ~/.fairgate/fairgate.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(
				homeDir,
				".fairgate",
				"fairgate.yaml",
			)
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}

		// Try to check for /etc/fairgate/fairgate.yaml if still not found
		if configFile == "" {
			systemPath := "/etc/fairgate/fairgate.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}

	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Overlay config values onto existing defaults
		if err := yaml.Unmarshal(buf, globalConfig); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	// Process environment variables
	err := envconfig.Process("fairgate", globalConfig)
	if err != nil {
		return nil, fmt.Errorf("error processing environment: %+w", err)
	}
	// Make sure duration values parse before anything consumes them
	for name, value := range map[string]string{
		"providerTimeout": globalConfig.ProviderTimeout,
		"recheckInterval": globalConfig.RecheckInterval,
		"nonceRetention":  globalConfig.NonceRetention,
		"cacheRetention":  globalConfig.CacheRetention,
		"freshnessWindow": globalConfig.FreshnessWindow,
		"breakerCooldown": globalConfig.BreakerCooldown,
		"shutdownTimeout": globalConfig.ShutdownTimeout,
	} {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return nil, fmt.Errorf(
				"invalid %s value %q: %w",
				name,
				value,
				err,
			)
		}
	}
	return globalConfig, nil
}

func GetConfig() *Config {
	return globalConfig
}

// Duration parses a duration config value, returning the given default
// when the value is empty
func Duration(value string, def time.Duration) time.Duration {
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return d
}
