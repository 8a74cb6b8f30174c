// Package signals provides pure trend and sentiment classification over
// close-price history.
package signals

import "github.com/bobmcallan/entrycheck/internal/models"

// Minimum history lengths below which a classification is unavailable.
const (
	MinTrendHistory     = 10
	MinSentimentHistory = 6
)

// Thresholds and window bounds for the auto classifications. These are
// tuning policy, not market law.
const (
	shortWindowMin = 5
	shortWindowMax = 20

	sentimentShortLookback = 5
	sentimentLongLookback  = 20
	sentimentThresholdPct  = 1.0
)

// SMA returns the simple moving average of the last period closes.
func SMA(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period {
		return 0
	}
	sum := 0.0
	for _, c := range closes[len(closes)-period:] {
		sum += c
	}
	return sum / float64(period)
}

// DeriveTrend classifies the price trend from an oldest-first close
// sequence. The short moving-average window scales with available history,
// clamped to [5,20]; the long window spans the full history. Up requires
// the strict ordering price > short SMA > long SMA; down the reverse.
// Returns false when history is too short to classify.
func DeriveTrend(closes []float64) (models.Trend, bool) {
	if len(closes) < MinTrendHistory {
		return "", false
	}

	shortWin := len(closes) / 3
	if shortWin < shortWindowMin {
		shortWin = shortWindowMin
	}
	if shortWin > shortWindowMax {
		shortWin = shortWindowMax
	}

	price := closes[len(closes)-1]
	shortSMA := SMA(closes, shortWin)
	longSMA := SMA(closes, len(closes))

	switch {
	case price > shortSMA && shortSMA > longSMA:
		return models.TrendUp, true
	case price < shortSMA && shortSMA < longSMA:
		return models.TrendDown, true
	default:
		return models.TrendSide, true
	}
}

// DeriveSentiment classifies market mood from an oldest-first benchmark
// index close sequence: percentage change over ~5 periods and over ~20
// periods (clamped to available history). Good needs both positive with
// the short change above +1%; bad needs both negative with the short
// change below -1%. Returns false when history is too short.
func DeriveSentiment(indexCloses []float64) (models.Sentiment, bool) {
	if len(indexCloses) < MinSentimentHistory {
		return "", false
	}

	last := indexCloses[len(indexCloses)-1]

	shortChange := percentChange(indexCloses, sentimentShortLookback, last)

	longLookback := sentimentLongLookback
	if longLookback > len(indexCloses)-1 {
		longLookback = len(indexCloses) - 1
	}
	longChange := percentChange(indexCloses, longLookback, last)

	switch {
	case shortChange > sentimentThresholdPct && longChange > 0:
		return models.SentimentGood, true
	case shortChange < -sentimentThresholdPct && longChange < 0:
		return models.SentimentBad, true
	default:
		return models.SentimentNormal, true
	}
}

func percentChange(closes []float64, lookback int, last float64) float64 {
	base := closes[len(closes)-1-lookback]
	if base == 0 {
		return 0
	}
	return (last - base) / base * 100
}
