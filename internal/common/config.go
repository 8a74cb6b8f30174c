// Package common provides shared utilities for Entrycheck
package common

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/bobmcallan/entrycheck/internal/interfaces"
)

// Config holds all configuration for Entrycheck
type Config struct {
	Environment string        `toml:"environment"`
	Server      ServerConfig  `toml:"server"`
	Storage     StorageConfig `toml:"storage"`
	Clients     ClientsConfig `toml:"clients"`
	Fetch       FetchConfig   `toml:"fetch"`
	Logging     LoggingConfig `toml:"logging"`
	Auth        AuthConfig    `toml:"auth"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port" validate:"min=0,max=65535"`
}

// StorageConfig selects and configures the KV backend.
type StorageConfig struct {
	Backend string        `toml:"backend" validate:"oneof=memory badger surreal"`
	Path    string        `toml:"path"`
	Surreal SurrealConfig `toml:"surreal"`
}

// SurrealConfig holds SurrealDB connection settings for the optional
// "surreal" storage backend.
type SurrealConfig struct {
	Address   string `toml:"address"`
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
}

// ClientsConfig holds provider client configurations
type ClientsConfig struct {
	AlphaVantage ProviderConfig `toml:"alphavantage"`
	TwelveData   ProviderConfig `toml:"twelvedata"`
	Stooq        ProviderConfig `toml:"stooq"`
	Yahoo        YahooConfig    `toml:"yahoo"`
}

// ProviderConfig holds settings for one direct HTTP data provider.
type ProviderConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *ProviderConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// YahooConfig holds the Yahoo chart/search client settings. Yahoo is only
// reachable through CORS relay endpoints; each relay becomes one race
// attempt. A relay entry is a URL prefix the target URL is appended to,
// query-escaped.
type YahooConfig struct {
	Relays    []string `toml:"relays"`
	RateLimit int      `toml:"rate_limit"`
	Timeout   string   `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *YahooConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// FetchConfig tunes the two-phase fetch orchestration.
type FetchConfig struct {
	AttemptTimeout string   `toml:"attempt_timeout"`
	ResolveTimeout string   `toml:"resolve_timeout"`
	WarmSymbols    []string `toml:"warm_symbols"`
}

// GetAttemptTimeout parses the per-attempt timeout for the snapshot race.
func (c *FetchConfig) GetAttemptTimeout() time.Duration {
	d, err := time.ParseDuration(c.AttemptTimeout)
	if err != nil {
		return 8 * time.Second
	}
	return d
}

// GetResolveTimeout parses the symbol-search timeout.
func (c *FetchConfig) GetResolveTimeout() time.Duration {
	d, err := time.ParseDuration(c.ResolveTimeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `toml:"level" validate:"omitempty,oneof=trace debug info warn error"`
}

// AuthConfig holds admin authentication configuration. AdminKeyHash, when
// set, is a bcrypt hash compared against the submitted key; AdminKey is a
// plain-text fallback for development.
type AuthConfig struct {
	AdminKey     string `toml:"admin_key"`
	AdminKeyHash string `toml:"admin_key_hash"`
	JWTSecret    string `toml:"jwt_secret"`
	TokenExpiry  string `toml:"token_expiry"`
}

// GetTokenExpiry parses and returns the token expiry duration.
func (c *AuthConfig) GetTokenExpiry() time.Duration {
	d, err := time.ParseDuration(c.TokenExpiry)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Backend: "badger",
			Path:    "data/entrycheck",
			Surreal: SurrealConfig{
				Address:   "ws://localhost:8000",
				Namespace: "entrycheck",
				Database:  "entrycheck",
			},
		},
		Clients: ClientsConfig{
			AlphaVantage: ProviderConfig{
				BaseURL:   "https://www.alphavantage.co",
				RateLimit: 1,
				Timeout:   "10s",
			},
			TwelveData: ProviderConfig{
				BaseURL:   "https://api.twelvedata.com",
				RateLimit: 1,
				Timeout:   "10s",
			},
			Stooq: ProviderConfig{
				BaseURL:   "https://stooq.com",
				RateLimit: 2,
				Timeout:   "10s",
			},
			Yahoo: YahooConfig{
				Relays: []string{
					"https://api.allorigins.win/raw?url=",
					"https://corsproxy.io/?",
				},
				RateLimit: 2,
				Timeout:   "10s",
			},
		},
		Fetch: FetchConfig{
			AttemptTimeout: "8s",
			ResolveTimeout: "5s",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Auth: AuthConfig{
			AdminKey:    "dev-admin-key-change-in-production",
			JWTSecret:   "dev-jwt-secret-change-in-production",
			TokenExpiry: "24h",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides.
// A .env file in the working directory is loaded first so that overrides
// work the same from a shell or a dotenv file.
func LoadConfig(paths ...string) (*Config, error) {
	_ = godotenv.Load()

	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("ENTRYCHECK_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("ENTRYCHECK_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("ENTRYCHECK_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("ENTRYCHECK_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if backend := os.Getenv("ENTRYCHECK_STORAGE_BACKEND"); backend != "" {
		config.Storage.Backend = backend
	}

	if path := os.Getenv("ENTRYCHECK_DATA_PATH"); path != "" {
		config.Storage.Path = filepath.Join(path, "entrycheck")
	}

	if relays := os.Getenv("ENTRYCHECK_YAHOO_RELAYS"); relays != "" {
		parts := strings.Split(relays, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		config.Clients.Yahoo.Relays = parts
	}

	if v := os.Getenv("ENTRYCHECK_AUTH_ADMIN_KEY"); v != "" {
		config.Auth.AdminKey = v
	}
	if v := os.Getenv("ENTRYCHECK_AUTH_JWT_SECRET"); v != "" {
		config.Auth.JWTSecret = v
	}
	if v := os.Getenv("ENTRYCHECK_AUTH_TOKEN_EXPIRY"); v != "" {
		config.Auth.TokenExpiry = v
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// ResolveAPIKey resolves a provider API key from environment, credential
// store, or config fallback, in that priority order.
func ResolveAPIKey(ctx context.Context, store interfaces.CredentialStore, provider string, fallback string) (string, error) {
	envNames := map[string][]string{
		"alphavantage": {"ALPHAVANTAGE_API_KEY", "ENTRYCHECK_ALPHAVANTAGE_API_KEY"},
		"twelvedata":   {"TWELVEDATA_API_KEY", "ENTRYCHECK_TWELVEDATA_API_KEY"},
	}

	if names, ok := envNames[provider]; ok {
		for _, name := range names {
			if v := os.Getenv(name); v != "" {
				return v, nil
			}
		}
	}

	if store != nil {
		if key, err := store.GetKey(ctx, provider); err == nil && key != "" {
			return key, nil
		}
	}

	if fallback != "" {
		return fallback, nil
	}

	return "", fmt.Errorf("API key for '%s' not found in environment or store", provider)
}
