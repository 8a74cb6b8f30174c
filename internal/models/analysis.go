package models

// AnalysisInput is the user-supplied record the decision engine scores.
// Short-horizon analyses ignore the mid-only fields and vice versa.
type AnalysisInput struct {
	Horizon      Horizon `json:"horizon" validate:"required,oneof=short mid"`
	Ticker       string  `json:"ticker" validate:"required"`
	Market       Market  `json:"market" validate:"required,oneof=jp us"`
	CurrentPrice float64 `json:"current_price" validate:"required,gt=0"`
	PrevHigh     float64 `json:"prev_high" validate:"required,gt=0"`
	PrevLow      float64 `json:"prev_low" validate:"required,gt=0,ltefield=PrevHigh"`
	Volume       *int64  `json:"volume,omitempty"`
	Focus        int     `json:"focus" validate:"required,min=1,max=5"`

	Sentiment Sentiment `json:"sentiment,omitempty" validate:"omitempty,oneof=good normal bad"`

	// Mid-horizon only.
	Trend       Trend             `json:"trend,omitempty" validate:"omitempty,oneof=up side down"`
	Earnings    EarningsProximity `json:"earnings,omitempty" validate:"omitempty,oneof=far month twoweeks week unknown"`
	Sector      SectorMomentum    `json:"sector,omitempty" validate:"omitempty,oneof=strong neutral weak"`
	TargetPrice *float64          `json:"target_price,omitempty" validate:"omitempty,gt=0"`
}

// ScoreBreakdown maps a named sub-score to its signed value. The total
// score is always the exact sum of these values.
type ScoreBreakdown map[string]int

// Total sums the breakdown values.
func (b ScoreBreakdown) Total() int {
	total := 0
	for _, v := range b {
		total += v
	}
	return total
}

// Verdict is the entry-signal classification.
type Verdict string

const (
	VerdictOK    Verdict = "ok"
	VerdictWatch Verdict = "watch"
	VerdictNG    Verdict = "ng"
)

// EntrySignal is the go / wait / no-go outcome with the rule that fired.
type EntrySignal struct {
	Verdict Verdict `json:"verdict"`
	Label   string  `json:"label"`
	Reason  string  `json:"reason"`
}

// SizeTier is the position-size classification.
type SizeTier string

const (
	SizeLarge  SizeTier = "large"
	SizeMedium SizeTier = "medium"
	SizeSmall  SizeTier = "small"
	SizePass   SizeTier = "pass"
)

// PositionSize is the sizing recommendation with the tier rule that fired.
type PositionSize struct {
	Tier   SizeTier `json:"tier"`
	Label  string   `json:"label"`
	Reason string   `json:"reason"`
}

// WarningLevel grades a risk warning.
type WarningLevel string

const (
	WarningCritical WarningLevel = "critical"
	WarningNormal   WarningLevel = "warning"
)

// RiskWarning is one independent risk condition that fired for an analysis.
type RiskWarning struct {
	Level   WarningLevel `json:"level"`
	Message string       `json:"message"`
}

// AnalysisResult is the full outcome of one decision-engine run.
type AnalysisResult struct {
	Horizon       Horizon        `json:"horizon"`
	Ticker        string         `json:"ticker"`
	Market        Market         `json:"market"`
	CurrentPrice  float64        `json:"current_price"`
	Breakdown     ScoreBreakdown `json:"breakdown"`
	TotalScore    int            `json:"total_score"`
	Signal        EntrySignal    `json:"signal"`
	StopLoss      float64        `json:"stop_loss"`
	LossPercent   float64        `json:"loss_percent"`
	Size          PositionSize   `json:"size"`
	Warnings      []RiskWarning  `json:"warnings"`
	RiskReward    *float64       `json:"risk_reward,omitempty"` // mid only
	PricePosition string         `json:"price_position"`
}
