package market

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bobmcallan/entrycheck/internal/common"
	"github.com/bobmcallan/entrycheck/internal/interfaces"
	"github.com/bobmcallan/entrycheck/internal/models"
)

// stubProvider is a canned MarketDataProvider recording the symbols it was
// asked for.
type stubProvider struct {
	name       string
	snapshot   *models.StockSnapshot
	history    []float64
	err        error
	historyErr error

	mu      sync.Mutex
	symbols []string
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) record(symbol string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.symbols = append(p.symbols, symbol)
}

func (p *stubProvider) FetchSnapshot(_ context.Context, symbol string) (*models.StockSnapshot, error) {
	p.record(symbol)
	if p.err != nil {
		return nil, p.err
	}
	return p.snapshot, nil
}

func (p *stubProvider) FetchHistory(_ context.Context, symbol string) ([]float64, error) {
	p.record(symbol)
	if p.historyErr != nil {
		return nil, p.historyErr
	}
	if p.err != nil {
		return nil, p.err
	}
	return p.history, nil
}

func (p *stubProvider) requested(symbol string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.symbols {
		if s == symbol {
			return true
		}
	}
	return false
}

func risingCloses(n int) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	return closes
}

func newStubService(yahoo, stooqStub *stubProvider) *Service {
	s := &Service{
		logger:         common.NewLogger("error"),
		attemptTimeout: time.Second,
	}
	if yahoo != nil {
		s.yahoos = []interfaces.MarketDataProvider{yahoo}
	}
	if stooqStub != nil {
		s.stooq = stooqStub
	}
	return s
}

func TestFetchStockData_SnapshotAndDerivations(t *testing.T) {
	volume := int64(1_000_000)
	yahoo := &stubProvider{
		name: "yahoo",
		snapshot: &models.StockSnapshot{
			PrevHigh: 110,
			PrevLow:  100,
			Volume:   &volume,
			Closes:   risingCloses(30),
			Source:   "yahoo",
		},
		history: risingCloses(30),
	}

	service := newStubService(yahoo, nil)

	result, err := service.FetchStockData(context.Background(), "AAPL", models.MarketUS, models.Credentials{})
	if err != nil {
		t.Fatalf("FetchStockData failed: %v", err)
	}

	if result.Snapshot.Source != "yahoo" {
		t.Errorf("Source = %s, want yahoo", result.Snapshot.Source)
	}
	// 30 snapshot closes cover the trend derivation without a history race.
	if result.TrendSource != models.DeriveAuto || result.Trend != models.TrendUp {
		t.Errorf("trend = %s (%s), want up (auto)", result.Trend, result.TrendSource)
	}
	// The benchmark index history classifies sentiment.
	if result.SentimentSource != models.DeriveAuto || result.Sentiment != models.SentimentGood {
		t.Errorf("sentiment = %s (%s), want good (auto)", result.Sentiment, result.SentimentSource)
	}
	if !yahoo.requested("^GSPC") {
		t.Error("expected a fetch of the US benchmark index")
	}
}

func TestFetchStockData_EmptyTicker(t *testing.T) {
	service := newStubService(&stubProvider{name: "yahoo"}, nil)

	_, err := service.FetchStockData(context.Background(), "   ", models.MarketUS, models.Credentials{})
	if err == nil {
		t.Fatal("expected error for empty ticker")
	}
	if kind := models.KindOf(err); kind != models.ErrKindSymbolNotFound {
		t.Errorf("error kind = %s, want symbol_not_found", kind)
	}
}

func TestFetchStockData_AllProvidersFail(t *testing.T) {
	yahoo := &stubProvider{name: "yahoo", err: models.NewFetchError(models.ErrKindTimeout, "yahoo", "timed out", nil)}
	stooqStub := &stubProvider{name: "stooq", err: models.NewFetchError(models.ErrKindSymbolNotFound, "stooq", "no data", nil)}

	service := newStubService(yahoo, stooqStub)

	_, err := service.FetchStockData(context.Background(), "ZZZZ", models.MarketUS, models.Credentials{})
	if err == nil {
		t.Fatal("expected error when all providers fail")
	}

	var aggregate *AggregateError
	if !errors.As(err, &aggregate) {
		t.Fatalf("expected *AggregateError, got %T", err)
	}
	// The ranked aggregate surfaces the not-found over the timeout.
	var fetchErr *models.FetchError
	if !errors.As(aggregate.Best(), &fetchErr) || fetchErr.Kind != models.ErrKindSymbolNotFound {
		t.Errorf("best error = %v, want stooq symbol_not_found", aggregate.Best())
	}
}

func TestFetchStockData_Phase2DegradesQuietly(t *testing.T) {
	// Snapshot succeeds with too few closes for a trend; every history
	// fetch fails. The request must still succeed, with both
	// classifications unavailable.
	yahoo := &stubProvider{
		name: "yahoo",
		snapshot: &models.StockSnapshot{
			PrevHigh: 110,
			PrevLow:  100,
			Closes:   []float64{104, 105},
			Source:   "yahoo",
		},
		historyErr: fmt.Errorf("history endpoint down"),
	}

	service := newStubService(yahoo, nil)

	result, err := service.FetchStockData(context.Background(), "AAPL", models.MarketUS, models.Credentials{})
	if err != nil {
		t.Fatalf("FetchStockData failed: %v", err)
	}
	if result.TrendSource != models.DeriveUnavailable {
		t.Errorf("TrendSource = %s, want unavailable", result.TrendSource)
	}
	if result.SentimentSource != models.DeriveUnavailable {
		t.Errorf("SentimentSource = %s, want unavailable", result.SentimentSource)
	}
}

func TestFetchStockData_StooqFallback(t *testing.T) {
	yahoo := &stubProvider{name: "yahoo", err: models.NewFetchError(models.ErrKindRateLimited, "yahoo", "429", nil)}
	stooqStub := &stubProvider{
		name: "stooq",
		snapshot: &models.StockSnapshot{
			PrevHigh: 110,
			PrevLow:  100,
			Closes:   risingCloses(30),
			Source:   "stooq",
		},
		history: risingCloses(30),
	}

	service := newStubService(yahoo, stooqStub)

	result, err := service.FetchStockData(context.Background(), "7203", models.MarketJP, models.Credentials{})
	if err != nil {
		t.Fatalf("FetchStockData failed: %v", err)
	}
	if result.Snapshot.Source != "stooq" {
		t.Errorf("Source = %s, want stooq", result.Snapshot.Source)
	}
	// Stooq sees its own venue syntax, not the Yahoo symbol.
	if !stooqStub.requested("7203.jp") {
		t.Errorf("stooq symbols = %v, want 7203.jp", stooqStub.symbols)
	}
}

func TestSnapshotAttempts_KeyedProviderGating(t *testing.T) {
	service := newStubService(&stubProvider{name: "yahoo"}, nil)

	alphaKeys := []string{}
	service.alphaFactory = func(key string, _ models.Market) interfaces.MarketDataProvider {
		alphaKeys = append(alphaKeys, key)
		return &stubProvider{name: "alphavantage"}
	}
	twelveKeys := []string{}
	service.twelveFactory = func(key string, _ models.Market) interfaces.MarketDataProvider {
		twelveKeys = append(twelveKeys, key)
		return &stubProvider{name: "twelvedata"}
	}

	// No keys anywhere: only the keyless providers race.
	attempts := service.snapshotAttempts("AAPL", "AAPL", models.MarketUS, models.Credentials{})
	if len(attempts) != 1 {
		t.Fatalf("expected 1 attempt without keys, got %d", len(attempts))
	}

	// Configured keys enable both keyed providers.
	service.alphaKey = "configured-av"
	service.twelveKey = "configured-td"
	attempts = service.snapshotAttempts("AAPL", "AAPL", models.MarketUS, models.Credentials{})
	if len(attempts) != 3 {
		t.Fatalf("expected 3 attempts with keys, got %d", len(attempts))
	}
	if alphaKeys[len(alphaKeys)-1] != "configured-av" {
		t.Errorf("alpha key = %s, want configured-av", alphaKeys[len(alphaKeys)-1])
	}

	// A request credential overrides the configured key.
	service.snapshotAttempts("AAPL", "AAPL", models.MarketUS, models.Credentials{AlphaVantageKey: "request-av"})
	if alphaKeys[len(alphaKeys)-1] != "request-av" {
		t.Errorf("alpha key = %s, want request-av", alphaKeys[len(alphaKeys)-1])
	}
	if twelveKeys[len(twelveKeys)-1] != "configured-td" {
		t.Errorf("twelve key = %s, want configured-td", twelveKeys[len(twelveKeys)-1])
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := firstNonEmpty("", "b", "c"); got != "b" {
		t.Errorf("firstNonEmpty = %s, want b", got)
	}
	if got := firstNonEmpty("", ""); got != "" {
		t.Errorf("firstNonEmpty = %s, want empty", got)
	}
}
