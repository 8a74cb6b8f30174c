// Package interfaces defines the contracts between Entrycheck layers
package interfaces

import (
	"context"

	"github.com/bobmcallan/entrycheck/internal/models"
)

// SnapshotProvider fetches the previous-session OHLCV snapshot for a
// provider-specific symbol. Implementations classify their failures into
// the models.FetchError taxonomy before returning.
type SnapshotProvider interface {
	Name() string
	FetchSnapshot(ctx context.Context, symbol string) (*models.StockSnapshot, error)
}

// HistoryProvider fetches an ordered (oldest-first) close sequence for a
// provider-specific symbol.
type HistoryProvider interface {
	Name() string
	FetchHistory(ctx context.Context, symbol string) ([]float64, error)
}

// MarketDataProvider serves both the critical snapshot phase and the
// best-effort history phase.
type MarketDataProvider interface {
	SnapshotProvider
	HistoryProvider
}

// SymbolSearcher resolves a free-form query to candidate provider symbols.
type SymbolSearcher interface {
	SearchSymbols(ctx context.Context, query string) ([]models.SymbolMatch, error)
}
