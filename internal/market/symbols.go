// Package market implements the data-acquisition side of Entrycheck:
// symbol normalization and resolution, the concurrent fetch race, and the
// two-phase fetch service.
package market

import (
	"strings"

	"github.com/bobmcallan/entrycheck/internal/models"
)

// venueSuffixes are trailing exchange decorations stripped during cleanup
// so that pasted symbols like "7203.T" normalize the same as "7203".
var venueSuffixes = []string{".T", ".TYO", ".JP", ".US"}

// CleanTicker normalizes free-form ticker input to a bare upper-case code.
// It is total: unparsable input degrades to a best-effort token rather than
// erroring, since providers surface "symbol not found" themselves.
func CleanTicker(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	// Keep only the leading token; anything after whitespace is usually a
	// pasted company name.
	if idx := strings.IndexAny(s, " \t　"); idx >= 0 {
		s = s[:idx]
	}

	upper := strings.ToUpper(s)
	for _, suffix := range venueSuffixes {
		if strings.HasSuffix(upper, suffix) {
			upper = upper[:len(upper)-len(suffix)]
			break
		}
	}

	return upper
}

// StooqSymbol maps a cleaned code to Stooq's lower-case venue syntax.
// Index symbols (leading caret) pass through unchanged.
func StooqSymbol(code string, market models.Market) string {
	lower := strings.ToLower(code)
	if strings.HasPrefix(lower, "^") {
		return lower
	}
	switch market {
	case models.MarketJP:
		return lower + ".jp"
	case models.MarketUS:
		return lower + ".us"
	default:
		return lower
	}
}

// AlphaVantageSymbol maps a cleaned code to Alpha Vantage syntax. Tokyo
// listings take the .TYO suffix; the provider reports unknown symbols
// itself when the guess misses.
func AlphaVantageSymbol(code string, market models.Market) string {
	if market == models.MarketJP {
		return code + ".TYO"
	}
	return code
}

// TwelveDataSymbol maps a cleaned code to Twelve Data syntax. The exchange
// disambiguation for Tokyo travels as a query parameter, not in the symbol.
func TwelveDataSymbol(code string, market models.Market) string {
	return code
}

// YahooGuess is the constructed fallback symbol used when search-based
// resolution finds nothing: code plus the market's default venue suffix.
func YahooGuess(code string, market models.Market) string {
	if market == models.MarketJP {
		return code + ".T"
	}
	return code
}

// YahooIndexSymbol returns the benchmark index symbol for sentiment
// derivation on the given market.
func YahooIndexSymbol(market models.Market) string {
	if market == models.MarketJP {
		return "^N225"
	}
	return "^GSPC"
}

// StooqIndexSymbol returns Stooq's benchmark index symbol for the market.
func StooqIndexSymbol(market models.Market) string {
	if market == models.MarketJP {
		return "^nkx"
	}
	return "^spx"
}
