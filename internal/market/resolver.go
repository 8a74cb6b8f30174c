package market

import (
	"context"
	"strings"
	"time"

	"github.com/bobmcallan/entrycheck/internal/common"
	"github.com/bobmcallan/entrycheck/internal/interfaces"
	"github.com/bobmcallan/entrycheck/internal/models"
)

const symbolCachePrefix = "symbol:"

// Resolver maps cleaned ticker codes to Yahoo's canonical symbols. US
// codes need no disambiguation; Tokyo codes resolve through the Yahoo
// search endpoint with a persistent cache in front. Cache entries have no
// expiry: resolution of a given code is deterministic, so last-writer-wins
// is safe and re-resolution is pure waste.
type Resolver struct {
	searcher interfaces.SymbolSearcher
	cache    interfaces.KVStore
	logger   *common.Logger
	timeout  time.Duration
}

// NewResolver creates a symbol resolver over the given searcher and cache.
func NewResolver(searcher interfaces.SymbolSearcher, cache interfaces.KVStore, logger *common.Logger, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Resolver{
		searcher: searcher,
		cache:    cache,
		logger:   logger,
		timeout:  timeout,
	}
}

// Resolve returns the Yahoo symbol for a cleaned code. It fails only on
// transport, timeout, or rate-limit errors from the search endpoint; a
// search that merely finds nothing falls back to the default venue-suffix
// guess. Whatever symbol is chosen gets written to the cache first.
func (r *Resolver) Resolve(ctx context.Context, code string, mkt models.Market) (string, error) {
	if mkt != models.MarketJP {
		return code, nil
	}

	cacheKey := symbolCachePrefix + code
	if r.cache != nil {
		if cached, err := r.cache.Get(ctx, cacheKey); err == nil && cached != "" {
			r.logger.Debug().Str("code", code).Str("symbol", cached).Msg("Symbol cache hit")
			return cached, nil
		}
	}

	symbol, err := r.search(ctx, code, mkt)
	if err != nil {
		return "", err
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, cacheKey, symbol); err != nil {
			r.logger.Warn().Err(err).Str("code", code).Msg("Failed to cache resolved symbol")
		}
	}

	return symbol, nil
}

func (r *Resolver) search(ctx context.Context, code string, mkt models.Market) (string, error) {
	searchCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	matches, err := r.searcher.SearchSymbols(searchCtx, code)
	if err != nil {
		return "", models.ClassifyErr("resolver", err)
	}

	for _, m := range matches {
		if matchesJapan(m) {
			r.logger.Debug().Str("code", code).Str("symbol", m.Symbol).Msg("Symbol resolved via search")
			return m.Symbol, nil
		}
	}

	guess := YahooGuess(code, mkt)
	r.logger.Debug().Str("code", code).Str("symbol", guess).Msg("Symbol search found no market match, using venue guess")
	return guess, nil
}

// matchesJapan reports whether a search candidate's region fields indicate
// a Tokyo listing, case-insensitively.
func matchesJapan(m models.SymbolMatch) bool {
	if strings.EqualFold(m.Currency, "JPY") {
		return true
	}
	exchange := strings.ToUpper(m.Exchange)
	if strings.Contains(exchange, "JPX") || strings.Contains(exchange, "TOKYO") || exchange == "TYO" || exchange == "JPN" {
		return true
	}
	return strings.HasSuffix(strings.ToUpper(m.Symbol), ".T")
}
