package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func resetGlobalConfig() {
	globalConfig = &Config{
		DatabasePath:    ".fairgate",
		BindAddr:        "0.0.0.0",
		ApiPort:         8080,
		MetricsPort:     12798,
		RecheckInterval: "24h",
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

func TestLoad_CompareFullStruct(t *testing.T) {
	resetGlobalConfig()
	yamlContent := `
databasePath: "/var/lib/fairgate"
bindAddr: "127.0.0.1"
providerUrl: "https://scores.example.org"
providerApiKey: "secret"
providerTimeout: "3s"
recheckInterval: "12h"
nonceRetention: "48h"
cacheRetention: "96h"
freshnessWindow: "5m"
breakerCooldown: "30s"
breakerThreshold: 3
apiPort: 8090
metricsPort: 8088
tracing: true
tracingStdout: true
`

	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "test-fairgate.yaml")

	err := os.WriteFile(tmpFile, []byte(yamlContent), 0644)
	if err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	defer os.Remove(tmpFile)

	expected := &Config{
		DatabasePath:     "/var/lib/fairgate",
		BindAddr:         "127.0.0.1",
		ProviderURL:      "https://scores.example.org",
		ProviderAPIKey:   "secret",
		ProviderTimeout:  "3s",
		RecheckInterval:  "12h",
		NonceRetention:   "48h",
		CacheRetention:   "96h",
		FreshnessWindow:  "5m",
		BreakerCooldown:  "30s",
		BreakerThreshold: 3,
		ApiPort:          8090,
		MetricsPort:      8088,
		ShutdownTimeout:  DefaultShutdownTimeout,
		Tracing:          true,
		TracingStdout:    true,
	}

	actual, err := LoadConfig(tmpFile)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if !reflect.DeepEqual(actual, expected) {
		t.Errorf(
			"Loaded config does not match expected.\nActual: %+v\nExpected: %+v",
			actual,
			expected,
		)
	}
}

func TestLoad_WithoutConfigFile_UsesDefaults(t *testing.T) {
	resetGlobalConfig()

	// Without Config file
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	// Expected is the original default values from globalConfig
	expected := &Config{
		DatabasePath:    ".fairgate",
		BindAddr:        "0.0.0.0",
		ApiPort:         8080,
		MetricsPort:     12798,
		RecheckInterval: "24h",
		ShutdownTimeout: DefaultShutdownTimeout,
	}

	if !reflect.DeepEqual(cfg, expected) {
		t.Errorf(
			"config mismatch without file:\nExpected: %+v\nGot:      %+v",
			expected,
			cfg,
		)
	}
}

func TestLoad_WithEnvironmentOverride(t *testing.T) {
	resetGlobalConfig()
	t.Setenv("FAIRGATE_PROVIDER_URL", "https://env.example.org")
	t.Setenv("FAIRGATE_PROVIDER_API_KEY", "env-secret")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if cfg.ProviderURL != "https://env.example.org" {
		t.Errorf(
			"expected ProviderURL from environment, got: %s",
			cfg.ProviderURL,
		)
	}
	if cfg.ProviderAPIKey != "env-secret" {
		t.Errorf(
			"expected ProviderAPIKey from environment, got: %s",
			cfg.ProviderAPIKey,
		)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	resetGlobalConfig()
	yamlContent := `
recheckInterval: "whenever"
`
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "test-bad-duration.yaml")
	if err := os.WriteFile(tmpFile, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	if _, err := LoadConfig(tmpFile); err == nil {
		t.Fatal("expected error for invalid duration value")
	}
}

func TestDuration(t *testing.T) {
	if got := Duration("", time.Minute); got != time.Minute {
		t.Errorf("expected default for empty value, got: %s", got)
	}
	if got := Duration("90s", time.Minute); got != 90*time.Second {
		t.Errorf("expected parsed value, got: %s", got)
	}
	if got := Duration("bogus", time.Minute); got != time.Minute {
		t.Errorf("expected default for invalid value, got: %s", got)
	}
}
