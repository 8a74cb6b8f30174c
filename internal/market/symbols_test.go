package market

import (
	"testing"

	"github.com/bobmcallan/entrycheck/internal/models"
)

func TestCleanTicker(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"7203", "7203"},
		{"  7203  ", "7203"},
		{"aapl", "AAPL"},
		{"7203.T", "7203"},
		{"7203.tyo", "7203"},
		{"BRK.JP", "BRK"},
		{"msft.us", "MSFT"},
		{"7203 トヨタ自動車", "7203"},
		{"7203　トヨタ", "7203"}, // full-width space
		{"AAPL Apple Inc", "AAPL"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		if got := CleanTicker(tt.raw); got != tt.want {
			t.Errorf("CleanTicker(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestProviderSymbols(t *testing.T) {
	if got := StooqSymbol("7203", models.MarketJP); got != "7203.jp" {
		t.Errorf("StooqSymbol jp = %s, want 7203.jp", got)
	}
	if got := StooqSymbol("AAPL", models.MarketUS); got != "aapl.us" {
		t.Errorf("StooqSymbol us = %s, want aapl.us", got)
	}
	if got := StooqSymbol("^NKX", models.MarketJP); got != "^nkx" {
		t.Errorf("StooqSymbol index = %s, want ^nkx", got)
	}

	if got := AlphaVantageSymbol("7203", models.MarketJP); got != "7203.TYO" {
		t.Errorf("AlphaVantageSymbol jp = %s, want 7203.TYO", got)
	}
	if got := AlphaVantageSymbol("AAPL", models.MarketUS); got != "AAPL" {
		t.Errorf("AlphaVantageSymbol us = %s, want AAPL", got)
	}

	if got := TwelveDataSymbol("7203", models.MarketJP); got != "7203" {
		t.Errorf("TwelveDataSymbol = %s, want 7203", got)
	}

	if got := YahooGuess("7203", models.MarketJP); got != "7203.T" {
		t.Errorf("YahooGuess jp = %s, want 7203.T", got)
	}
	if got := YahooGuess("AAPL", models.MarketUS); got != "AAPL" {
		t.Errorf("YahooGuess us = %s, want AAPL", got)
	}
}

func TestIndexSymbols(t *testing.T) {
	if got := YahooIndexSymbol(models.MarketJP); got != "^N225" {
		t.Errorf("YahooIndexSymbol jp = %s", got)
	}
	if got := YahooIndexSymbol(models.MarketUS); got != "^GSPC" {
		t.Errorf("YahooIndexSymbol us = %s", got)
	}
	if got := StooqIndexSymbol(models.MarketJP); got != "^nkx" {
		t.Errorf("StooqIndexSymbol jp = %s", got)
	}
	if got := StooqIndexSymbol(models.MarketUS); got != "^spx" {
		t.Errorf("StooqIndexSymbol us = %s", got)
	}
}
