package decision

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmcallan/entrycheck/internal/common"
	"github.com/bobmcallan/entrycheck/internal/interfaces"
	"github.com/bobmcallan/entrycheck/internal/models"
)

// Service assembles the pure engine functions into full analyses and,
// optionally, fills inputs from a live fetch first.
type Service struct {
	market interfaces.MarketService
	logger *common.Logger
}

// NewService creates a decision service. market may be nil when only
// offline Analyze is needed (CLI with explicit prices).
func NewService(market interfaces.MarketService, logger *common.Logger) *Service {
	return &Service{market: market, logger: logger}
}

// Analyze scores validated inputs into a full analysis result. It is pure
// and never fails: input validation is the caller's concern.
func (s *Service) Analyze(in *models.AnalysisInput) *models.AnalysisResult {
	breakdown := models.ScoreBreakdown{
		"market": MarketScore(in.Sentiment),
		"focus":  FocusScore(in.Focus),
	}

	positionScore, positionLabel := PricePositionScore(in.CurrentPrice, in.PrevHigh, in.PrevLow)
	breakdown["price_position"] = positionScore

	if in.Horizon == models.HorizonMid {
		breakdown["trend"] = TrendScore(in.Trend)
		breakdown["earnings"] = EarningsScore(in.Earnings)
		breakdown["sector"] = SectorScore(in.Sector)
	}

	total := breakdown.Total()

	stop := StopLoss(in.CurrentPrice, in.PrevLow, in.Market)
	lossPercent := (in.CurrentPrice - stop) / in.CurrentPrice * 100

	var riskReward *float64
	if in.Horizon == models.HorizonMid {
		riskReward = RiskReward(in.CurrentPrice, stop, in.TargetPrice)
	}

	return &models.AnalysisResult{
		Horizon:       in.Horizon,
		Ticker:        in.Ticker,
		Market:        in.Market,
		CurrentPrice:  in.CurrentPrice,
		Breakdown:     breakdown,
		TotalScore:    total,
		Signal:        EvaluateSignal(in, total),
		StopLoss:      stop,
		LossPercent:   lossPercent,
		Size:          SizePosition(in, total, lossPercent, riskReward),
		Warnings:      BuildWarnings(in, riskReward),
		RiskReward:    riskReward,
		PricePosition: positionLabel,
	}
}

// FetchAndAnalyze fetches a snapshot for the input's ticker, fills the
// missing price fields and auto classifications (user-supplied values
// win), then runs Analyze. Derived classifications left unavailable by the
// fetch simply stay unset and score zero.
func (s *Service) FetchAndAnalyze(ctx context.Context, in *models.AnalysisInput, creds models.Credentials) (*models.AnalysisResult, *models.FetchResult, error) {
	if s.market == nil {
		return nil, nil, fmt.Errorf("no market service configured")
	}

	start := time.Now()
	fetched, err := s.market.FetchStockData(ctx, in.Ticker, in.Market, creds)
	if err != nil {
		return nil, nil, err
	}

	snapshot := fetched.Snapshot
	if in.PrevHigh == 0 {
		in.PrevHigh = snapshot.PrevHigh
	}
	if in.PrevLow == 0 {
		in.PrevLow = snapshot.PrevLow
	}
	if in.Volume == nil {
		in.Volume = snapshot.Volume
	}
	if in.CurrentPrice == 0 && len(snapshot.Closes) > 0 {
		in.CurrentPrice = snapshot.Closes[len(snapshot.Closes)-1]
	}

	if in.Sentiment == "" && fetched.SentimentSource == models.DeriveAuto {
		in.Sentiment = fetched.Sentiment
	}
	if in.Horizon == models.HorizonMid && in.Trend == "" && fetched.TrendSource == models.DeriveAuto {
		in.Trend = fetched.Trend
	}

	s.logger.Debug().
		Str("ticker", in.Ticker).
		Str("source", snapshot.Source).
		Dur("elapsed", time.Since(start)).
		Msg("Fetch for analysis complete")

	return s.Analyze(in), fetched, nil
}

var _ interfaces.DecisionService = (*Service)(nil)
