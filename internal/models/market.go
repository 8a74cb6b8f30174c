// Package models defines the core data structures for Entrycheck
package models

import "fmt"

// Market identifies the listing market of a ticker.
type Market string

const (
	MarketJP Market = "jp"
	MarketUS Market = "us"
)

// Valid reports whether the market tag is a known value.
func (m Market) Valid() bool {
	return m == MarketJP || m == MarketUS
}

// Horizon selects the analysis mode: intraday or swing.
type Horizon string

const (
	HorizonShort Horizon = "short"
	HorizonMid   Horizon = "mid"
)

// Sentiment is the coarse market-mood classification.
type Sentiment string

const (
	SentimentGood   Sentiment = "good"
	SentimentNormal Sentiment = "normal"
	SentimentBad    Sentiment = "bad"
)

// Trend is the coarse price-trend classification.
type Trend string

const (
	TrendUp   Trend = "up"
	TrendSide Trend = "side"
	TrendDown Trend = "down"
)

// EarningsProximity is the distance to the next earnings announcement.
type EarningsProximity string

const (
	EarningsFar      EarningsProximity = "far"
	EarningsMonth    EarningsProximity = "month"
	EarningsTwoWeeks EarningsProximity = "twoweeks"
	EarningsWeek     EarningsProximity = "week"
	EarningsUnknown  EarningsProximity = "unknown"
)

// SectorMomentum is the relative strength of the ticker's sector.
type SectorMomentum string

const (
	SectorStrong  SectorMomentum = "strong"
	SectorNeutral SectorMomentum = "neutral"
	SectorWeak    SectorMomentum = "weak"
)

// DeriveSource records whether a derived classification was computed or
// degraded because its history fetch failed.
type DeriveSource string

const (
	DeriveAuto        DeriveSource = "auto"
	DeriveUnavailable DeriveSource = "unavailable"
)

// StockSnapshot is the minimal OHLCV-derived record needed to run the
// decision engine for one ticker. Produced by exactly one provider per
// request and immutable once returned.
type StockSnapshot struct {
	PrevHigh float64   `json:"prev_high"`
	PrevLow  float64   `json:"prev_low"`
	Volume   *int64    `json:"volume,omitempty"`
	Date     string    `json:"date"`
	Closes   []float64 `json:"closes,omitempty"` // oldest first
	LongName string    `json:"long_name,omitempty"`
	Source   string    `json:"source,omitempty"` // winning provider, diagnostic only
}

// Validate checks the snapshot invariants: PrevHigh >= PrevLow > 0.
func (s *StockSnapshot) Validate() error {
	if s.PrevLow <= 0 {
		return fmt.Errorf("snapshot prev_low must be positive, got %v", s.PrevLow)
	}
	if s.PrevHigh < s.PrevLow {
		return fmt.Errorf("snapshot prev_high %v below prev_low %v", s.PrevHigh, s.PrevLow)
	}
	return nil
}

// SymbolMatch is one candidate returned by a provider symbol search.
type SymbolMatch struct {
	Symbol   string `json:"symbol"`
	Exchange string `json:"exchange,omitempty"`
	Currency string `json:"currency,omitempty"`
	LongName string `json:"long_name,omitempty"`
}

// FetchResult is a snapshot plus the best-effort derived classifications
// from the secondary fetch phase.
type FetchResult struct {
	Snapshot        *StockSnapshot `json:"snapshot"`
	Trend           Trend          `json:"trend,omitempty"`
	TrendSource     DeriveSource   `json:"trend_source"`
	Sentiment       Sentiment      `json:"sentiment,omitempty"`
	SentimentSource DeriveSource   `json:"sentiment_source"`
}

// Credentials carries optional per-request provider API keys. An empty
// field means "use the configured key, if any".
type Credentials struct {
	AlphaVantageKey string
	TwelveDataKey   string
}
