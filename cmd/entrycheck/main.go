// Command entrycheck is the one-shot CLI: it scores a single ticker from
// flags, fetching live data first unless the price fields are supplied.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/bobmcallan/entrycheck/internal/app"
	"github.com/bobmcallan/entrycheck/internal/common"
	"github.com/bobmcallan/entrycheck/internal/models"
	"github.com/bobmcallan/entrycheck/internal/services/decision"
)

type cliFlags struct {
	ticker    string
	market    string
	horizon   string
	focus     int
	sentiment string
	trend     string
	earnings  string
	sector    string
	target    float64
	price     float64
	high      float64
	low       float64
	volume    int64
	config    string
	jsonOut   bool
	avKey     string
	tdKey     string
}

func parseFlags() *cliFlags {
	f := &cliFlags{}
	flag.StringVar(&f.ticker, "ticker", "", "ticker code, e.g. 7203 or AAPL (required)")
	flag.StringVar(&f.market, "market", "jp", "market: jp or us")
	flag.StringVar(&f.horizon, "horizon", "short", "horizon: short or mid")
	flag.IntVar(&f.focus, "focus", 0, "focus/conviction score 1-5 (required)")
	flag.StringVar(&f.sentiment, "sentiment", "", "market sentiment override: good, normal, or bad")
	flag.StringVar(&f.trend, "trend", "", "trend override: up, side, or down (mid horizon)")
	flag.StringVar(&f.earnings, "earnings", "", "earnings proximity: far, month, twoweeks, week, or unknown (mid horizon)")
	flag.StringVar(&f.sector, "sector", "", "sector momentum: strong, neutral, or weak (mid horizon)")
	flag.Float64Var(&f.target, "target", 0, "target price for risk-reward (mid horizon)")
	flag.Float64Var(&f.price, "price", 0, "current price; with -high and -low, skips the live fetch")
	flag.Float64Var(&f.high, "high", 0, "prior high")
	flag.Float64Var(&f.low, "low", 0, "prior low")
	flag.Int64Var(&f.volume, "volume", 0, "average volume")
	flag.StringVar(&f.config, "config", "", "path to entrycheck.toml")
	flag.BoolVar(&f.jsonOut, "json", false, "print the raw analysis result as JSON")
	flag.StringVar(&f.avKey, "alphavantage-key", "", "Alpha Vantage API key override for this run")
	flag.StringVar(&f.tdKey, "twelvedata-key", "", "Twelve Data API key override for this run")
	flag.Parse()
	return f
}

func (f *cliFlags) toInput() *models.AnalysisInput {
	in := &models.AnalysisInput{
		Horizon:      models.Horizon(f.horizon),
		Ticker:       f.ticker,
		Market:       models.Market(f.market),
		CurrentPrice: f.price,
		PrevHigh:     f.high,
		PrevLow:      f.low,
		Focus:        f.focus,
		Sentiment:    models.Sentiment(f.sentiment),
		Trend:        models.Trend(f.trend),
		Earnings:     models.EarningsProximity(f.earnings),
		Sector:       models.SectorMomentum(f.sector),
	}
	if f.volume > 0 {
		in.Volume = &f.volume
	}
	if f.target > 0 {
		in.TargetPrice = &f.target
	}
	return in
}

// offline reports whether the flags carry a complete manual price set, in
// which case no live fetch is needed.
func (f *cliFlags) offline() bool {
	return f.price > 0 && f.high > 0 && f.low > 0
}

func main() {
	f := parseFlags()

	if f.ticker == "" || f.focus == 0 {
		fmt.Fprintln(os.Stderr, "entrycheck: -ticker and -focus are required")
		flag.Usage()
		os.Exit(2)
	}

	input := f.toInput()
	validate := validator.New()

	if f.offline() {
		if err := validate.Struct(input); err != nil {
			fmt.Fprintf(os.Stderr, "entrycheck: invalid input: %v\n", err)
			os.Exit(2)
		}

		logger := common.NewSilentLogger()
		result := decision.NewService(nil, logger).Analyze(input)
		printResult(result, nil, f.jsonOut)
		return
	}

	a, err := app.NewApp(f.config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "entrycheck: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	creds := models.Credentials{AlphaVantageKey: f.avKey, TwelveDataKey: f.tdKey}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	result, fetched, err := a.DecisionService.FetchAndAnalyze(ctx, input, creds)
	if err != nil {
		fmt.Fprintf(os.Stderr, "entrycheck: fetch failed: %v\n", err)
		os.Exit(1)
	}

	if err := validate.Struct(input); err != nil {
		fmt.Fprintf(os.Stderr, "entrycheck: fetched data incomplete: %v\n", err)
		os.Exit(1)
	}

	printResult(result, fetched, f.jsonOut)
}

func printResult(result *models.AnalysisResult, fetched *models.FetchResult, jsonOut bool) {
	if jsonOut {
		out := map[string]interface{}{"result": result}
		if fetched != nil {
			out["fetch"] = fetched
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(out)
		return
	}

	fmt.Printf("%s (%s, %s horizon)\n", result.Ticker, strings.ToUpper(string(result.Market)), result.Horizon)
	if fetched != nil && fetched.Snapshot != nil {
		name := fetched.Snapshot.LongName
		if name != "" {
			fmt.Printf("  %s\n", name)
		}
		fmt.Printf("  snapshot from %s (%s)\n", fetched.Snapshot.Source, fetched.Snapshot.Date)
	}

	fmt.Printf("\nPrice %.2f  position: %s\n", result.CurrentPrice, result.PricePosition)

	fmt.Println("\nScore breakdown:")
	for _, key := range []string{"market", "focus", "price_position", "trend", "earnings", "sector"} {
		if v, ok := result.Breakdown[key]; ok {
			fmt.Printf("  %-10s %+d\n", key, v)
		}
	}
	fmt.Printf("  %-10s %+d\n", "total", result.TotalScore)

	fmt.Printf("\nSignal: %s (%s)\n  %s\n", strings.ToUpper(string(result.Signal.Verdict)), result.Signal.Label, result.Signal.Reason)
	fmt.Printf("\nStop-loss: %.2f (%.1f%% below price)\n", result.StopLoss, result.LossPercent)
	if result.RiskReward != nil {
		fmt.Printf("Risk-reward: %.2f\n", *result.RiskReward)
	}
	fmt.Printf("Size: %s (%s)\n  %s\n", result.Size.Tier, result.Size.Label, result.Size.Reason)

	if len(result.Warnings) > 0 {
		fmt.Println("\nWarnings:")
		for _, warning := range result.Warnings {
			marker := "!"
			if warning.Level == models.WarningCritical {
				marker = "!!"
			}
			fmt.Printf("  %-2s %s\n", marker, warning.Message)
		}
	}
}
