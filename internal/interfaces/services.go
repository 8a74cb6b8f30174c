package interfaces

import (
	"context"

	"github.com/bobmcallan/entrycheck/internal/models"
)

// MarketService runs the two-phase data acquisition for a ticker: a
// critical snapshot race followed by best-effort trend/sentiment history.
type MarketService interface {
	FetchStockData(ctx context.Context, ticker string, market models.Market, creds models.Credentials) (*models.FetchResult, error)
	// WarmCache pre-resolves ticker codes into the symbol cache.
	WarmCache(ctx context.Context, tickers []string)
}

// DecisionService scores analysis inputs into a trade signal. Analyze is
// pure and never fails on validated input.
type DecisionService interface {
	Analyze(input *models.AnalysisInput) *models.AnalysisResult
	FetchAndAnalyze(ctx context.Context, input *models.AnalysisInput, creds models.Credentials) (*models.AnalysisResult, *models.FetchResult, error)
}
