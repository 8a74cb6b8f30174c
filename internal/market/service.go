package market

import (
	"context"
	"sync"
	"time"

	"github.com/bobmcallan/entrycheck/internal/clients/alphavantage"
	"github.com/bobmcallan/entrycheck/internal/clients/stooq"
	"github.com/bobmcallan/entrycheck/internal/clients/twelvedata"
	"github.com/bobmcallan/entrycheck/internal/clients/yahoo"
	"github.com/bobmcallan/entrycheck/internal/common"
	"github.com/bobmcallan/entrycheck/internal/interfaces"
	"github.com/bobmcallan/entrycheck/internal/models"
	"github.com/bobmcallan/entrycheck/internal/signals"
)

// Service orchestrates the two-phase fetch: a critical snapshot race over
// every enabled provider, then best-effort trend and index history. The
// request fails only when phase 1 fails; phase 2 degrades silently to
// "unavailable" classifications.
type Service struct {
	logger   *common.Logger
	resolver *Resolver

	yahoos []interfaces.MarketDataProvider
	stooq  interfaces.MarketDataProvider

	// Keyed providers are built per request so a caller-supplied key can
	// override the configured one.
	alphaFactory  func(key string, mkt models.Market) interfaces.MarketDataProvider
	twelveFactory func(key string, mkt models.Market) interfaces.MarketDataProvider
	alphaKey      string
	twelveKey     string

	attemptTimeout time.Duration
}

// NewService wires the fetch service from configuration. kv backs the
// symbol-resolution cache; alphaKey/twelveKey are the startup-resolved
// provider keys (empty disables the provider unless a request overrides).
func NewService(cfg *common.Config, kv interfaces.KVStore, alphaKey, twelveKey string, logger *common.Logger) *Service {
	yahoos := make([]interfaces.MarketDataProvider, 0, len(cfg.Clients.Yahoo.Relays))
	var searcher interfaces.SymbolSearcher
	for _, relay := range cfg.Clients.Yahoo.Relays {
		client := yahoo.NewClient(relay,
			yahoo.WithLogger(logger),
			yahoo.WithRateLimit(cfg.Clients.Yahoo.RateLimit),
			yahoo.WithTimeout(cfg.Clients.Yahoo.GetTimeout()),
		)
		yahoos = append(yahoos, client)
		if searcher == nil {
			searcher = client
		}
	}

	stooqClient := stooq.NewClient(
		stooq.WithBaseURL(cfg.Clients.Stooq.BaseURL),
		stooq.WithLogger(logger),
		stooq.WithRateLimit(cfg.Clients.Stooq.RateLimit),
		stooq.WithTimeout(cfg.Clients.Stooq.GetTimeout()),
	)

	s := &Service{
		logger:         logger,
		yahoos:         yahoos,
		stooq:          stooqClient,
		alphaKey:       alphaKey,
		twelveKey:      twelveKey,
		attemptTimeout: cfg.Fetch.GetAttemptTimeout(),
	}

	if searcher != nil {
		s.resolver = NewResolver(searcher, kv, logger, cfg.Fetch.GetResolveTimeout())
	}

	avCfg := cfg.Clients.AlphaVantage
	s.alphaFactory = func(key string, _ models.Market) interfaces.MarketDataProvider {
		return alphavantage.NewClient(key,
			alphavantage.WithBaseURL(avCfg.BaseURL),
			alphavantage.WithLogger(logger),
			alphavantage.WithRateLimit(avCfg.RateLimit),
			alphavantage.WithTimeout(avCfg.GetTimeout()),
		)
	}

	tdCfg := cfg.Clients.TwelveData
	s.twelveFactory = func(key string, mkt models.Market) interfaces.MarketDataProvider {
		opts := []twelvedata.ClientOption{
			twelvedata.WithBaseURL(tdCfg.BaseURL),
			twelvedata.WithLogger(logger),
			twelvedata.WithRateLimit(tdCfg.RateLimit),
			twelvedata.WithTimeout(tdCfg.GetTimeout()),
		}
		if mkt == models.MarketJP {
			opts = append(opts, twelvedata.WithExchange("TSE"))
		}
		return twelvedata.NewClient(key, opts...)
	}

	return s
}

// FetchStockData runs the two-phase fetch for a ticker.
func (s *Service) FetchStockData(ctx context.Context, ticker string, mkt models.Market, creds models.Credentials) (*models.FetchResult, error) {
	code := CleanTicker(ticker)
	if code == "" {
		return nil, models.NewFetchError(models.ErrKindSymbolNotFound, "entrycheck", "ticker is empty", nil)
	}

	// Resolve the Yahoo symbol once up front. Resolution failure is not
	// fatal: the race still runs with the constructed venue guess.
	yahooSymbol := YahooGuess(code, mkt)
	if s.resolver != nil {
		if resolved, err := s.resolver.Resolve(ctx, code, mkt); err == nil {
			yahooSymbol = resolved
		} else {
			s.logger.Warn().Err(err).Str("code", code).Msg("Symbol resolution failed, racing with venue guess")
		}
	}

	start := time.Now()
	snapshot, err := Race(ctx, s.snapshotAttempts(code, yahooSymbol, mkt, creds))
	if err != nil {
		s.logger.Warn().Err(err).Str("ticker", code).Dur("elapsed", time.Since(start)).Msg("Snapshot race failed")
		return nil, err
	}

	s.logger.Debug().
		Str("ticker", code).
		Str("source", snapshot.Source).
		Dur("elapsed", time.Since(start)).
		Msg("Snapshot race won")

	result := &models.FetchResult{
		Snapshot:        snapshot,
		TrendSource:     models.DeriveUnavailable,
		SentimentSource: models.DeriveUnavailable,
	}

	// Phase 2 starts only after phase 1 resolves, to avoid saturating
	// shared relay capacity. The two fetches are independent; either may
	// fail without failing the request.
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		closes := snapshot.Closes
		if len(closes) < signals.MinTrendHistory {
			fetched, err := Race(ctx, s.historyAttempts(code, yahooSymbol, mkt, creds))
			if err != nil {
				s.logger.Debug().Err(err).Str("ticker", code).Msg("Trend history unavailable")
				return
			}
			closes = fetched
		}
		if trend, ok := signals.DeriveTrend(closes); ok {
			result.Trend = trend
			result.TrendSource = models.DeriveAuto
		}
	}()

	go func() {
		defer wg.Done()
		indexCloses, err := Race(ctx, s.indexAttempts(mkt))
		if err != nil {
			s.logger.Debug().Err(err).Str("market", string(mkt)).Msg("Index history unavailable")
			return
		}
		if sentiment, ok := signals.DeriveSentiment(indexCloses); ok {
			result.Sentiment = sentiment
			result.SentimentSource = models.DeriveAuto
		}
	}()

	wg.Wait()
	return result, nil
}

func (s *Service) snapshotAttempts(code, yahooSymbol string, mkt models.Market, creds models.Credentials) []Attempt[*models.StockSnapshot] {
	var attempts []Attempt[*models.StockSnapshot]

	for _, yc := range s.yahoos {
		provider := yc
		attempts = append(attempts, Attempt[*models.StockSnapshot]{
			Name:    provider.Name(),
			Timeout: s.attemptTimeout,
			Run: func(ctx context.Context) (*models.StockSnapshot, error) {
				return provider.FetchSnapshot(ctx, yahooSymbol)
			},
		})
	}

	if s.stooq != nil {
		symbol := StooqSymbol(code, mkt)
		attempts = append(attempts, Attempt[*models.StockSnapshot]{
			Name:    s.stooq.Name(),
			Timeout: s.attemptTimeout,
			Run: func(ctx context.Context) (*models.StockSnapshot, error) {
				return s.stooq.FetchSnapshot(ctx, symbol)
			},
		})
	}

	if key := firstNonEmpty(creds.AlphaVantageKey, s.alphaKey); key != "" {
		provider := s.alphaFactory(key, mkt)
		symbol := AlphaVantageSymbol(code, mkt)
		attempts = append(attempts, Attempt[*models.StockSnapshot]{
			Name:    provider.Name(),
			Timeout: s.attemptTimeout,
			Run: func(ctx context.Context) (*models.StockSnapshot, error) {
				return provider.FetchSnapshot(ctx, symbol)
			},
		})
	}

	if key := firstNonEmpty(creds.TwelveDataKey, s.twelveKey); key != "" {
		provider := s.twelveFactory(key, mkt)
		symbol := TwelveDataSymbol(code, mkt)
		attempts = append(attempts, Attempt[*models.StockSnapshot]{
			Name:    provider.Name(),
			Timeout: s.attemptTimeout,
			Run: func(ctx context.Context) (*models.StockSnapshot, error) {
				return provider.FetchSnapshot(ctx, symbol)
			},
		})
	}

	return attempts
}

func (s *Service) historyAttempts(code, yahooSymbol string, mkt models.Market, creds models.Credentials) []Attempt[[]float64] {
	var attempts []Attempt[[]float64]

	for _, yc := range s.yahoos {
		provider := yc
		attempts = append(attempts, Attempt[[]float64]{
			Name:    provider.Name(),
			Timeout: s.attemptTimeout,
			Run: func(ctx context.Context) ([]float64, error) {
				return provider.FetchHistory(ctx, yahooSymbol)
			},
		})
	}

	if s.stooq != nil {
		symbol := StooqSymbol(code, mkt)
		attempts = append(attempts, Attempt[[]float64]{
			Name:    s.stooq.Name(),
			Timeout: s.attemptTimeout,
			Run: func(ctx context.Context) ([]float64, error) {
				return s.stooq.FetchHistory(ctx, symbol)
			},
		})
	}

	if key := firstNonEmpty(creds.TwelveDataKey, s.twelveKey); key != "" {
		provider := s.twelveFactory(key, mkt)
		symbol := TwelveDataSymbol(code, mkt)
		attempts = append(attempts, Attempt[[]float64]{
			Name:    provider.Name(),
			Timeout: s.attemptTimeout,
			Run: func(ctx context.Context) ([]float64, error) {
				return provider.FetchHistory(ctx, symbol)
			},
		})
	}

	return attempts
}

func (s *Service) indexAttempts(mkt models.Market) []Attempt[[]float64] {
	var attempts []Attempt[[]float64]

	for _, yc := range s.yahoos {
		provider := yc
		symbol := YahooIndexSymbol(mkt)
		attempts = append(attempts, Attempt[[]float64]{
			Name:    provider.Name(),
			Timeout: s.attemptTimeout,
			Run: func(ctx context.Context) ([]float64, error) {
				return provider.FetchHistory(ctx, symbol)
			},
		})
	}

	if s.stooq != nil {
		symbol := StooqIndexSymbol(mkt)
		attempts = append(attempts, Attempt[[]float64]{
			Name:    s.stooq.Name(),
			Timeout: s.attemptTimeout,
			Run: func(ctx context.Context) ([]float64, error) {
				return s.stooq.FetchHistory(ctx, symbol)
			},
		})
	}

	return attempts
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

var _ interfaces.MarketService = (*Service)(nil)
