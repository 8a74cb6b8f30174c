package market

import (
	"context"

	"github.com/bobmcallan/entrycheck/internal/models"
)

// WarmCache resolves a list of Tokyo ticker codes into the symbol cache so
// the first real request for a configured favourite skips the search
// round-trip. Errors are logged and skipped; warming is never load-bearing.
func (s *Service) WarmCache(ctx context.Context, tickers []string) {
	if s.resolver == nil {
		return
	}

	warmed := 0
	for _, raw := range tickers {
		if ctx.Err() != nil {
			return
		}
		code := CleanTicker(raw)
		if code == "" {
			continue
		}
		if _, err := s.resolver.Resolve(ctx, code, models.MarketJP); err != nil {
			s.logger.Debug().Err(err).Str("code", code).Msg("Symbol warm-up failed")
			continue
		}
		warmed++
	}

	if warmed > 0 {
		s.logger.Info().Int("count", warmed).Msg("Symbol cache warmed")
	}
}
