package decision

import (
	"context"
	"fmt"
	"testing"

	"github.com/bobmcallan/entrycheck/internal/common"
	"github.com/bobmcallan/entrycheck/internal/models"
)

type stubMarket struct {
	result *models.FetchResult
	err    error
	calls  int
}

func (m *stubMarket) FetchStockData(_ context.Context, _ string, _ models.Market, _ models.Credentials) (*models.FetchResult, error) {
	m.calls++
	return m.result, m.err
}

func (m *stubMarket) WarmCache(_ context.Context, _ []string) {}

func newTestService(market *stubMarket) *Service {
	if market == nil {
		return NewService(nil, common.NewLogger("error"))
	}
	return NewService(market, common.NewLogger("error"))
}

func TestAnalyze_ShortHorizon(t *testing.T) {
	in := &models.AnalysisInput{
		Horizon:      models.HorizonShort,
		Ticker:       "7203",
		Market:       models.MarketJP,
		CurrentPrice: 105,
		PrevHigh:     110,
		PrevLow:      100,
		Focus:        5,
		Sentiment:    models.SentimentGood,
	}

	result := newTestService(nil).Analyze(in)

	// good(+2) + focus 5(+2) + mid-range(0) = 4.
	if result.TotalScore != 4 {
		t.Errorf("TotalScore = %d, want 4", result.TotalScore)
	}
	if len(result.Breakdown) != 3 {
		t.Errorf("short breakdown has %d entries, want 3", len(result.Breakdown))
	}
	for _, key := range []string{"trend", "earnings", "sector"} {
		if _, ok := result.Breakdown[key]; ok {
			t.Errorf("short breakdown must not contain %s", key)
		}
	}
	if result.Signal.Verdict != models.VerdictOK {
		t.Errorf("Verdict = %s, want ok", result.Signal.Verdict)
	}
	if result.StopLoss != 99 {
		t.Errorf("StopLoss = %v, want 99", result.StopLoss)
	}
	if result.RiskReward != nil {
		t.Error("short horizon must not report risk-reward")
	}
	if result.PricePosition != "range" {
		t.Errorf("PricePosition = %s, want range", result.PricePosition)
	}

	// Total always equals the breakdown sum.
	if result.TotalScore != result.Breakdown.Total() {
		t.Errorf("TotalScore %d != breakdown sum %d", result.TotalScore, result.Breakdown.Total())
	}
}

func TestAnalyze_MidHorizon(t *testing.T) {
	target := 120.0
	in := &models.AnalysisInput{
		Horizon:      models.HorizonMid,
		Ticker:       "AAPL",
		Market:       models.MarketUS,
		CurrentPrice: 105,
		PrevHigh:     110,
		PrevLow:      100,
		Focus:        4,
		Sentiment:    models.SentimentGood,
		Trend:        models.TrendUp,
		Earnings:     models.EarningsFar,
		Sector:       models.SectorStrong,
		TargetPrice:  &target,
	}

	result := newTestService(nil).Analyze(in)

	// good(+2) + focus 4(+1) + range(0) + up(+3) + far(+1) + strong(+2) = 9.
	if result.TotalScore != 9 {
		t.Errorf("TotalScore = %d, want 9", result.TotalScore)
	}
	if len(result.Breakdown) != 6 {
		t.Errorf("mid breakdown has %d entries, want 6", len(result.Breakdown))
	}
	if result.Signal.Verdict != models.VerdictOK {
		t.Errorf("Verdict = %s, want ok", result.Signal.Verdict)
	}
	// Stop 99.5, risk 5.5, reward 15: rr ~2.73.
	if result.RiskReward == nil {
		t.Fatal("expected risk-reward for mid horizon with target")
	}
	if rr := *result.RiskReward; rr < 2.72 || rr > 2.74 {
		t.Errorf("RiskReward = %v, want ~2.73", rr)
	}
	if result.Size.Tier != models.SizeLarge {
		t.Errorf("Size = %s, want large", result.Size.Tier)
	}
}

func TestFetchAndAnalyze_FillsFromSnapshot(t *testing.T) {
	volume := int64(2_500_000)
	market := &stubMarket{
		result: &models.FetchResult{
			Snapshot: &models.StockSnapshot{
				PrevHigh: 110,
				PrevLow:  100,
				Volume:   &volume,
				Closes:   []float64{100, 101, 102, 103, 104, 105},
				Source:   "yahoo",
			},
			Trend:           models.TrendUp,
			TrendSource:     models.DeriveAuto,
			Sentiment:       models.SentimentGood,
			SentimentSource: models.DeriveAuto,
		},
	}

	in := &models.AnalysisInput{
		Horizon: models.HorizonMid,
		Ticker:  "7203",
		Market:  models.MarketJP,
		Focus:   4,
	}

	result, fetched, err := newTestService(market).FetchAndAnalyze(context.Background(), in, models.Credentials{})
	if err != nil {
		t.Fatalf("FetchAndAnalyze failed: %v", err)
	}
	if market.calls != 1 {
		t.Errorf("expected one fetch, got %d", market.calls)
	}
	if fetched.Snapshot.Source != "yahoo" {
		t.Errorf("Source = %s, want yahoo", fetched.Snapshot.Source)
	}

	// Price fields come from the snapshot; last close is the current price.
	if in.CurrentPrice != 105 || in.PrevHigh != 110 || in.PrevLow != 100 {
		t.Errorf("inputs not filled: price=%v high=%v low=%v", in.CurrentPrice, in.PrevHigh, in.PrevLow)
	}
	if in.Volume == nil || *in.Volume != volume {
		t.Error("volume not filled from snapshot")
	}
	if in.Sentiment != models.SentimentGood || in.Trend != models.TrendUp {
		t.Errorf("auto classifications not applied: sentiment=%s trend=%s", in.Sentiment, in.Trend)
	}
	if result.CurrentPrice != 105 {
		t.Errorf("result price = %v, want 105", result.CurrentPrice)
	}
}

func TestFetchAndAnalyze_UserValuesWin(t *testing.T) {
	market := &stubMarket{
		result: &models.FetchResult{
			Snapshot: &models.StockSnapshot{
				PrevHigh: 110,
				PrevLow:  100,
				Closes:   []float64{100, 105},
			},
			Trend:           models.TrendDown,
			TrendSource:     models.DeriveAuto,
			Sentiment:       models.SentimentBad,
			SentimentSource: models.DeriveAuto,
		},
	}

	in := &models.AnalysisInput{
		Horizon:      models.HorizonMid,
		Ticker:       "7203",
		Market:       models.MarketJP,
		CurrentPrice: 200,
		PrevHigh:     210,
		PrevLow:      190,
		Focus:        4,
		Sentiment:    models.SentimentGood,
		Trend:        models.TrendUp,
	}

	if _, _, err := newTestService(market).FetchAndAnalyze(context.Background(), in, models.Credentials{}); err != nil {
		t.Fatalf("FetchAndAnalyze failed: %v", err)
	}

	if in.CurrentPrice != 200 || in.PrevHigh != 210 || in.PrevLow != 190 {
		t.Error("user-supplied prices must not be overwritten by the fetch")
	}
	if in.Sentiment != models.SentimentGood || in.Trend != models.TrendUp {
		t.Error("user-supplied classifications must not be overwritten")
	}
}

func TestFetchAndAnalyze_UnavailableDerivationsStayUnset(t *testing.T) {
	market := &stubMarket{
		result: &models.FetchResult{
			Snapshot: &models.StockSnapshot{
				PrevHigh: 110,
				PrevLow:  100,
				Closes:   []float64{100, 105},
			},
			TrendSource:     models.DeriveUnavailable,
			SentimentSource: models.DeriveUnavailable,
		},
	}

	in := &models.AnalysisInput{
		Horizon: models.HorizonMid,
		Ticker:  "7203",
		Market:  models.MarketJP,
		Focus:   4,
	}

	result, _, err := newTestService(market).FetchAndAnalyze(context.Background(), in, models.Credentials{})
	if err != nil {
		t.Fatalf("FetchAndAnalyze failed: %v", err)
	}

	if in.Sentiment != "" || in.Trend != "" {
		t.Error("unavailable derivations must stay unset")
	}
	// Unset classifications score zero, they do not block the analysis.
	if result.Breakdown["market"] != 0 || result.Breakdown["trend"] != 0 {
		t.Error("unset classifications must score zero")
	}
}

func TestFetchAndAnalyze_FetchError(t *testing.T) {
	market := &stubMarket{err: fmt.Errorf("all providers failed")}

	in := &models.AnalysisInput{Horizon: models.HorizonShort, Ticker: "7203", Market: models.MarketJP, Focus: 4}
	if _, _, err := newTestService(market).FetchAndAnalyze(context.Background(), in, models.Credentials{}); err == nil {
		t.Fatal("expected fetch error to propagate")
	}
}

func TestFetchAndAnalyze_NoMarketService(t *testing.T) {
	service := NewService(nil, common.NewLogger("error"))
	in := &models.AnalysisInput{Horizon: models.HorizonShort, Ticker: "7203", Market: models.MarketJP, Focus: 4}
	if _, _, err := service.FetchAndAnalyze(context.Background(), in, models.Credentials{}); err == nil {
		t.Fatal("expected error without a market service")
	}
}
