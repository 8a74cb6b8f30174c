// Package decision implements the horizon-parameterized scoring engine:
// sub-scores, the entry-signal rules, stop-loss, position sizing, and risk
// warnings. Everything here is pure; network concerns live in market.
package decision

import (
	"fmt"
	"math"

	"github.com/bobmcallan/entrycheck/internal/models"
)

// Entry-signal score thresholds per horizon.
const (
	shortOKThreshold    = 3
	shortWatchThreshold = 0
	midOKThreshold      = 5
	midWatchThreshold   = 1
)

// Price-position band: within 1% above the prior low counts as support,
// within 1% below the prior high counts as resistance.
const rangeBandPct = 0.01

// volatilityWarnPct is the prior-range width above which a volatility
// warning fires.
const volatilityWarnPct = 5.0

// MarketScore scores the market-sentiment classification. Unmapped values
// score 0.
func MarketScore(s models.Sentiment) int {
	switch s {
	case models.SentimentGood:
		return 2
	case models.SentimentNormal:
		return 0
	case models.SentimentBad:
		return -2
	default:
		return 0
	}
}

// FocusScore scores the trader's self-rated concentration, 1 (worst) to
// 5 (best). Out-of-range values score 0.
func FocusScore(focus int) int {
	switch focus {
	case 1:
		return -2
	case 2:
		return -1
	case 3:
		return 0
	case 4:
		return 1
	case 5:
		return 2
	default:
		return 0
	}
}

// PricePositionScore scores the current price against the prior range and
// labels the position. Boundaries are inclusive toward the band: price at
// exactly low*1.01 is near_support, price at exactly high*0.99 is
// near_resistance.
func PricePositionScore(price, prevHigh, prevLow float64) (int, string) {
	switch {
	case price > prevHigh:
		return -2, "above_high"
	case price < prevLow:
		return -3, "below_low"
	case price <= prevLow*(1+rangeBandPct):
		return 1, "near_support"
	case price >= prevHigh*(1-rangeBandPct):
		return -1, "near_resistance"
	default:
		return 0, "range"
	}
}

// TrendScore scores the mid-horizon trend classification.
func TrendScore(t models.Trend) int {
	switch t {
	case models.TrendUp:
		return 3
	case models.TrendSide:
		return 0
	case models.TrendDown:
		return -3
	default:
		return 0
	}
}

// EarningsScore scores earnings proximity for the mid horizon.
func EarningsScore(e models.EarningsProximity) int {
	switch e {
	case models.EarningsFar:
		return 1
	case models.EarningsMonth:
		return 0
	case models.EarningsTwoWeeks:
		return -1
	case models.EarningsWeek:
		return -3
	case models.EarningsUnknown:
		return 0
	default:
		return 0
	}
}

// SectorScore scores sector momentum for the mid horizon.
func SectorScore(s models.SectorMomentum) int {
	switch s {
	case models.SectorStrong:
		return 2
	case models.SectorNeutral:
		return 0
	case models.SectorWeak:
		return -2
	default:
		return 0
	}
}

// StopLoss computes the stop price: 0.5% below the prior low when price is
// above it, otherwise 2% below the current price, so the stop is always
// below the current price. Rounding follows the market's quote convention:
// whole yen for jp, cents for us.
func StopLoss(price, prevLow float64, mkt models.Market) float64 {
	var stop float64
	if price > prevLow {
		stop = prevLow * 0.995
	} else {
		stop = price * 0.98
	}
	return roundPrice(stop, mkt)
}

func roundPrice(v float64, mkt models.Market) float64 {
	if mkt == models.MarketJP {
		return math.Floor(v)
	}
	return math.Round(v*100) / 100
}

// RiskReward returns (target-price)/(price-stop), or nil when there is no
// target, the target is not above the current price, or the risk is not
// positive.
func RiskReward(price, stop float64, target *float64) *float64 {
	if target == nil || *target <= price {
		return nil
	}
	risk := price - stop
	if risk <= 0 {
		return nil
	}
	rr := (*target - price) / risk
	return &rr
}

// EvaluateSignal runs the entry-signal rules in order; the first match
// wins. Hard rules precede score thresholds, so a perfect score cannot
// rescue an unfocused trader.
func EvaluateSignal(in *models.AnalysisInput, total int) models.EntrySignal {
	if in.Focus <= 2 {
		return models.EntrySignal{
			Verdict: models.VerdictNG,
			Label:   "No entry",
			Reason:  fmt.Sprintf("focus %d/5 is too low to trade, regardless of score", in.Focus),
		}
	}

	if in.Horizon == models.HorizonShort && in.Sentiment == models.SentimentBad && in.Focus < 4 {
		return models.EntrySignal{
			Verdict: models.VerdictNG,
			Label:   "No entry",
			Reason:  "bad market sentiment needs focus 4+ for an intraday entry",
		}
	}

	okThreshold, watchThreshold := shortOKThreshold, shortWatchThreshold
	if in.Horizon == models.HorizonMid {
		okThreshold, watchThreshold = midOKThreshold, midWatchThreshold

		// Earnings within a week caps an otherwise-positive score at watch.
		if in.Earnings == models.EarningsWeek && total < okThreshold {
			return models.EntrySignal{
				Verdict: models.VerdictWatch,
				Label:   "Watch",
				Reason:  fmt.Sprintf("earnings within a week, score %d below %d", total, okThreshold),
			}
		}
	}

	switch {
	case total >= okThreshold:
		return models.EntrySignal{
			Verdict: models.VerdictOK,
			Label:   "Entry OK",
			Reason:  fmt.Sprintf("score %d meets the entry threshold %d", total, okThreshold),
		}
	case total >= watchThreshold:
		return models.EntrySignal{
			Verdict: models.VerdictWatch,
			Label:   "Watch",
			Reason:  fmt.Sprintf("score %d meets the watch threshold %d but not the entry threshold %d", total, watchThreshold, okThreshold),
		}
	default:
		return models.EntrySignal{
			Verdict: models.VerdictNG,
			Label:   "No entry",
			Reason:  fmt.Sprintf("score %d is below the watch threshold %d", total, watchThreshold),
		}
	}
}

// SizePosition assigns the position-size tier; the first matching tier
// wins. riskPercent is the stop distance as a percentage of the current
// price. A missing risk-reward ratio counts as 0 for the mid tiers.
func SizePosition(in *models.AnalysisInput, total int, riskPercent float64, riskReward *float64) models.PositionSize {
	if in.Horizon == models.HorizonShort {
		switch {
		case total >= 4 && riskPercent <= 2 && in.Focus >= 4 && in.Sentiment == models.SentimentGood:
			return models.PositionSize{Tier: models.SizeLarge, Label: "Large position",
				Reason: fmt.Sprintf("score %d with %.1f%% risk, high focus, good sentiment", total, riskPercent)}
		case total >= 2 && riskPercent <= 3 && in.Focus >= 3:
			return models.PositionSize{Tier: models.SizeMedium, Label: "Medium position",
				Reason: fmt.Sprintf("score %d with %.1f%% risk", total, riskPercent)}
		case total >= 0 && riskPercent <= 5:
			return models.PositionSize{Tier: models.SizeSmall, Label: "Small position",
				Reason: fmt.Sprintf("score %d with %.1f%% risk", total, riskPercent)}
		default:
			return models.PositionSize{Tier: models.SizePass, Label: "No position",
				Reason: fmt.Sprintf("score %d with %.1f%% risk fits no tier", total, riskPercent)}
		}
	}

	rr := 0.0
	if riskReward != nil {
		rr = *riskReward
	}
	switch {
	case total >= 7 && rr >= 2.5 && in.Focus >= 4 && in.Trend == models.TrendUp:
		return models.PositionSize{Tier: models.SizeLarge, Label: "Large position",
			Reason: fmt.Sprintf("score %d with risk-reward %.1f in an uptrend", total, rr)}
	case total >= 5 && rr >= 2.0 && in.Focus >= 3:
		return models.PositionSize{Tier: models.SizeMedium, Label: "Medium position",
			Reason: fmt.Sprintf("score %d with risk-reward %.1f", total, rr)}
	case total >= 2 && rr >= 1.5:
		return models.PositionSize{Tier: models.SizeSmall, Label: "Small position",
			Reason: fmt.Sprintf("score %d with risk-reward %.1f", total, rr)}
	default:
		return models.PositionSize{Tier: models.SizePass, Label: "No position",
			Reason: fmt.Sprintf("score %d with risk-reward %.1f fits no tier", total, rr)}
	}
}

// BuildWarnings evaluates the independent risk checks. Any subset may fire;
// order is the display order only.
func BuildWarnings(in *models.AnalysisInput, riskReward *float64) []models.RiskWarning {
	var warnings []models.RiskWarning

	switch {
	case in.Focus <= 2:
		warnings = append(warnings, models.RiskWarning{
			Level:   models.WarningCritical,
			Message: fmt.Sprintf("focus %d/5 is too low - do not trade today", in.Focus),
		})
	case in.Focus == 3:
		warnings = append(warnings, models.RiskWarning{
			Level:   models.WarningNormal,
			Message: "focus 3/5 is middling - keep size down",
		})
	}

	if in.Sentiment == models.SentimentBad {
		warnings = append(warnings, models.RiskWarning{
			Level:   models.WarningCritical,
			Message: "market sentiment is bad - expect failed breakouts",
		})
	}

	if in.CurrentPrice > in.PrevHigh {
		warnings = append(warnings, models.RiskWarning{
			Level:   models.WarningNormal,
			Message: "price is above the prior high - chasing risk",
		})
	}
	if in.CurrentPrice < in.PrevLow {
		warnings = append(warnings, models.RiskWarning{
			Level:   models.WarningNormal,
			Message: "price is below the prior low - falling knife risk",
		})
	}

	if in.PrevLow > 0 {
		volatility := (in.PrevHigh - in.PrevLow) / in.PrevLow * 100
		if volatility > volatilityWarnPct {
			warnings = append(warnings, models.RiskWarning{
				Level:   models.WarningNormal,
				Message: fmt.Sprintf("prior range volatility is %.1f%% - wide stops needed", volatility),
			})
		}
	}

	if in.Horizon == models.HorizonShort && in.Volume != nil && *in.Volume > 0 {
		warnings = append(warnings, models.RiskWarning{
			Level:   models.WarningNormal,
			Message: "cross-check today's volume against the recent average before entry",
		})
	}

	if in.Horizon == models.HorizonMid {
		if in.Trend == models.TrendDown {
			warnings = append(warnings, models.RiskWarning{
				Level:   models.WarningNormal,
				Message: "trend is down - swing entries fight the tape",
			})
		}

		switch in.Earnings {
		case models.EarningsWeek:
			warnings = append(warnings, models.RiskWarning{
				Level:   models.WarningCritical,
				Message: "earnings within a week - gap risk across the announcement",
			})
		case models.EarningsTwoWeeks:
			warnings = append(warnings, models.RiskWarning{
				Level:   models.WarningNormal,
				Message: "earnings within two weeks - plan the exit before the announcement",
			})
		}

		if in.Sector == models.SectorWeak {
			warnings = append(warnings, models.RiskWarning{
				Level:   models.WarningNormal,
				Message: "sector momentum is weak - the group is a headwind",
			})
		}

		if riskReward != nil && *riskReward < 1.5 {
			warnings = append(warnings, models.RiskWarning{
				Level:   models.WarningNormal,
				Message: fmt.Sprintf("risk-reward %.2f is below 1.5 - the target does not pay for the stop", *riskReward),
			})
		}
	}

	return warnings
}
