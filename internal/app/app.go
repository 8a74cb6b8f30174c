// Package app wires configuration, storage, clients, and services into the
// shared core used by cmd/entrycheck-server and cmd/entrycheck.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/entrycheck/internal/common"
	"github.com/bobmcallan/entrycheck/internal/interfaces"
	"github.com/bobmcallan/entrycheck/internal/market"
	"github.com/bobmcallan/entrycheck/internal/services/decision"
	"github.com/bobmcallan/entrycheck/internal/storage"
)

// App holds all initialized services and storage.
type App struct {
	Config          *common.Config
	Logger          *common.Logger
	KV              interfaces.KVStore
	Credentials     interfaces.CredentialStore
	MarketService   interfaces.MarketService
	DecisionService interfaces.DecisionService
	StartupTime     time.Time

	warmCancel context.CancelFunc
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes configuration, storage, and services. configPath may be
// empty, in which case ENTRYCHECK_CONFIG and the binary directory are tried.
func NewApp(configPath string) (*App, error) {
	startupStart := time.Now()

	// Load version from .version file (fallback if ldflags not set)
	common.LoadVersionFromFile()

	binDir := getBinaryDir()

	if configPath == "" {
		configPath = os.Getenv("ENTRYCHECK_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "entrycheck.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/entrycheck.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Resolve relative storage path to binary directory
	if config.Storage.Path != "" && !filepath.IsAbs(config.Storage.Path) {
		config.Storage.Path = filepath.Join(binDir, config.Storage.Path)
	}

	logger := common.NewLogger(config.Logging.Level)

	kv, err := storage.NewKVStore(logger, config.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	credentials := storage.NewCredentialStore(kv)
	ctx := context.Background()

	alphaKey, err := common.ResolveAPIKey(ctx, credentials, "alphavantage", config.Clients.AlphaVantage.APIKey)
	if err != nil {
		logger.Warn().Msg("Alpha Vantage API key not configured - provider excluded from the fetch race")
	}

	twelveKey, err := common.ResolveAPIKey(ctx, credentials, "twelvedata", config.Clients.TwelveData.APIKey)
	if err != nil {
		logger.Warn().Msg("Twelve Data API key not configured - provider excluded from the fetch race")
	}

	marketService := market.NewService(config, kv, alphaKey, twelveKey, logger)
	decisionService := decision.NewService(marketService, logger)

	a := &App{
		Config:          config,
		Logger:          logger,
		KV:              kv,
		Credentials:     credentials,
		MarketService:   marketService,
		DecisionService: decisionService,
		StartupTime:     startupStart,
	}

	logger.Info().Dur("startup", time.Since(startupStart)).Msg("App initialized")

	return a, nil
}

// StartWarmCache launches the background symbol-cache warming goroutine for
// the configured favourites.
func (a *App) StartWarmCache() {
	symbols := a.Config.Fetch.WarmSymbols
	if len(symbols) == 0 {
		return
	}

	warmCtx, warmCancel := context.WithTimeout(context.Background(), 5*time.Minute)
	a.warmCancel = warmCancel
	go func() {
		defer warmCancel()
		a.MarketService.WarmCache(warmCtx, symbols)
	}()
}

// Close releases all resources held by the App.
func (a *App) Close() {
	if a.warmCancel != nil {
		a.warmCancel()
		a.warmCancel = nil
	}
	if a.KV != nil {
		a.KV.Close()
		a.KV = nil
	}
}
