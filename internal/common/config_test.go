package common

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	if config.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", config.Server.Port)
	}
	if config.Storage.Backend != "badger" {
		t.Errorf("expected default backend badger, got %s", config.Storage.Backend)
	}
	if len(config.Clients.Yahoo.Relays) == 0 {
		t.Error("expected at least one default yahoo relay")
	}
	if config.Fetch.GetAttemptTimeout().Seconds() != 8 {
		t.Errorf("expected default attempt timeout 8s, got %v", config.Fetch.GetAttemptTimeout())
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "entrycheck.toml")

	content := `
environment = "production"

[server]
port = 9090

[storage]
backend = "memory"

[clients.alphavantage]
api_key = "test-key"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", config.Server.Port)
	}
	if config.Storage.Backend != "memory" {
		t.Errorf("expected memory backend, got %s", config.Storage.Backend)
	}
	if config.Clients.AlphaVantage.APIKey != "test-key" {
		t.Errorf("expected api key from file, got %q", config.Clients.AlphaVantage.APIKey)
	}
	if !config.IsProduction() {
		t.Error("expected production mode")
	}
	// Defaults survive a partial file.
	if config.Server.Host != "0.0.0.0" {
		t.Errorf("expected default host, got %s", config.Server.Host)
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	config, err := LoadConfig("does-not-exist.toml")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if config.Server.Port != 8080 {
		t.Errorf("expected default port, got %d", config.Server.Port)
	}
}

func TestLoadConfigRejectsUnknownBackend(t *testing.T) {
	t.Setenv("ENTRYCHECK_STORAGE_BACKEND", "cassandra")

	if _, err := LoadConfig(); err == nil {
		t.Error("expected validation error for unknown storage backend")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ENTRYCHECK_PORT", "7070")
	t.Setenv("ENTRYCHECK_LOG_LEVEL", "debug")
	t.Setenv("ENTRYCHECK_YAHOO_RELAYS", "https://relay-a/?u=, https://relay-b/?u=")

	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Server.Port != 7070 {
		t.Errorf("expected port override 7070, got %d", config.Server.Port)
	}
	if config.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %s", config.Logging.Level)
	}
	if len(config.Clients.Yahoo.Relays) != 2 || config.Clients.Yahoo.Relays[1] != "https://relay-b/?u=" {
		t.Errorf("unexpected relay override: %v", config.Clients.Yahoo.Relays)
	}
}

func TestResolveAPIKeyPriority(t *testing.T) {
	t.Setenv("ALPHAVANTAGE_API_KEY", "from-env")

	key, err := ResolveAPIKey(t.Context(), nil, "alphavantage", "from-config")
	if err != nil {
		t.Fatalf("ResolveAPIKey failed: %v", err)
	}
	if key != "from-env" {
		t.Errorf("expected env key to win, got %q", key)
	}

	key, err = ResolveAPIKey(t.Context(), nil, "twelvedata", "from-config")
	if err != nil {
		t.Fatalf("ResolveAPIKey failed: %v", err)
	}
	if key != "from-config" {
		t.Errorf("expected config fallback, got %q", key)
	}

	if _, err := ResolveAPIKey(t.Context(), nil, "twelvedata", ""); err == nil {
		t.Error("expected error when no key is available")
	}
}
