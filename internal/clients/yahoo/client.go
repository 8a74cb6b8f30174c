// Package yahoo provides a client for the Yahoo Finance chart and search
// APIs, reached through a CORS relay endpoint. One client is bound to one
// relay; the fetch orchestrator races a client per configured relay.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/entrycheck/internal/common"
	"github.com/bobmcallan/entrycheck/internal/interfaces"
	"github.com/bobmcallan/entrycheck/internal/models"
)

const (
	chartBaseURL  = "https://query1.finance.yahoo.com/v8/finance/chart/"
	searchBaseURL = "https://query1.finance.yahoo.com/v1/finance/search"

	DefaultTimeout   = 10 * time.Second
	DefaultRateLimit = 2 // requests per second
)

// Client calls Yahoo Finance through a single CORS relay. An empty relay
// means direct access (useful for tests against httptest servers).
type Client struct {
	relay      string
	chartBase  string
	searchBase string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithChartBaseURL overrides the Yahoo chart endpoint (tests).
func WithChartBaseURL(base string) ClientOption {
	return func(c *Client) {
		c.chartBase = base
	}
}

// WithSearchBaseURL overrides the Yahoo search endpoint (tests).
func WithSearchBaseURL(base string) ClientOption {
	return func(c *Client) {
		c.searchBase = base
	}
}

// NewClient creates a Yahoo client bound to the given relay prefix.
func NewClient(relay string, opts ...ClientOption) *Client {
	c := &Client{
		relay:      relay,
		chartBase:  chartBaseURL,
		searchBase: searchBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:     common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Name returns the provider name used in error classification and logs.
func (c *Client) Name() string {
	if c.relay == "" {
		return "yahoo"
	}
	if u, err := url.Parse(strings.TrimSuffix(c.relay, "?")); err == nil && u.Host != "" {
		return "yahoo:" + u.Host
	}
	return "yahoo"
}

// target wraps a Yahoo URL in the relay prefix. The relay is an opaque
// pass-through; its failures classify the same as direct ones.
func (c *Client) target(rawURL string) string {
	if c.relay == "" {
		return rawURL
	}
	return c.relay + url.QueryEscape(rawURL)
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol   string `json:"symbol"`
		LongName string `json:"longName"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*int64   `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type searchResponse struct {
	Quotes []struct {
		Symbol   string `json:"symbol"`
		Exchange string `json:"exchange"`
		ExchDisp string `json:"exchDisp"`
		Currency string `json:"currency"`
		LongName string `json:"longname"`
	} `json:"quotes"`
}

// get performs a rate-limited relayed GET and decodes the JSON body.
func (c *Client) get(ctx context.Context, rawURL string, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return models.ClassifyErr(c.Name(), err)
	}

	reqURL := c.target(rawURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return models.NewFetchError(models.ErrKindTransport, c.Name(), "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.ClassifyErr(c.Name(), err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("url", rawURL).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("Yahoo request")

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return models.NewFetchError(models.ErrKindRateLimited, c.Name(), "rate limited by provider or relay", nil)
	case resp.StatusCode == http.StatusNotFound:
		return models.NewFetchError(models.ErrKindSymbolNotFound, c.Name(), "symbol not found", nil)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return models.NewFetchError(models.ErrKindTransport, c.Name(),
			fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return models.NewFetchError(models.ErrKindMalformedData, c.Name(), "response body is not valid JSON", err)
	}

	return nil
}

// fetchChart retrieves daily bars for the given range.
func (c *Client) fetchChart(ctx context.Context, symbol, rng string) (*chartResult, error) {
	rawURL := fmt.Sprintf("%s%s?range=%s&interval=1d", c.chartBase, url.PathEscape(symbol), rng)

	var resp chartResponse
	if err := c.get(ctx, rawURL, &resp); err != nil {
		return nil, err
	}

	if resp.Chart.Error != nil {
		if strings.EqualFold(resp.Chart.Error.Code, "Not Found") {
			return nil, models.NewFetchError(models.ErrKindSymbolNotFound, c.Name(),
				fmt.Sprintf("symbol %s not found", symbol), nil)
		}
		return nil, models.NewFetchError(models.ErrKindTransport, c.Name(), resp.Chart.Error.Description, nil)
	}

	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, models.NewFetchError(models.ErrKindMalformedData, c.Name(), "chart response missing result", nil)
	}

	return &resp.Chart.Result[0], nil
}

// FetchSnapshot retrieves the most recent completed bar plus the full close
// history. Trailing bars with null high/low (half-formed intraday rows) are
// skipped rather than trusted.
func (c *Client) FetchSnapshot(ctx context.Context, symbol string) (*models.StockSnapshot, error) {
	result, err := c.fetchChart(ctx, symbol, "3mo")
	if err != nil {
		return nil, err
	}

	quote := result.Indicators.Quote[0]

	last := -1
	for i := len(result.Timestamp) - 1; i >= 0; i-- {
		if i < len(quote.High) && i < len(quote.Low) && quote.High[i] != nil && quote.Low[i] != nil {
			last = i
			break
		}
	}
	if last < 0 {
		return nil, models.NewFetchError(models.ErrKindMalformedData, c.Name(), "no bar with both high and low", nil)
	}

	snapshot := &models.StockSnapshot{
		PrevHigh: *quote.High[last],
		PrevLow:  *quote.Low[last],
		Date:     time.Unix(result.Timestamp[last], 0).UTC().Format("2006-01-02"),
		Closes:   filterCloses(quote.Close),
		LongName: result.Meta.LongName,
		Source:   c.Name(),
	}
	if last < len(quote.Volume) && quote.Volume[last] != nil {
		v := *quote.Volume[last]
		snapshot.Volume = &v
	}

	if err := snapshot.Validate(); err != nil {
		return nil, models.NewFetchError(models.ErrKindMalformedData, c.Name(), err.Error(), nil)
	}

	return snapshot, nil
}

// FetchHistory retrieves the ordered close sequence for trend derivation.
func (c *Client) FetchHistory(ctx context.Context, symbol string) ([]float64, error) {
	result, err := c.fetchChart(ctx, symbol, "3mo")
	if err != nil {
		return nil, err
	}
	closes := filterCloses(result.Indicators.Quote[0].Close)
	if len(closes) == 0 {
		return nil, models.NewFetchError(models.ErrKindMalformedData, c.Name(), "chart has no closes", nil)
	}
	return closes, nil
}

// SearchSymbols resolves a free-form query to candidate symbols.
func (c *Client) SearchSymbols(ctx context.Context, query string) ([]models.SymbolMatch, error) {
	rawURL := fmt.Sprintf("%s?q=%s&quotesCount=6&newsCount=0", c.searchBase, url.QueryEscape(query))

	var resp searchResponse
	if err := c.get(ctx, rawURL, &resp); err != nil {
		return nil, err
	}

	matches := make([]models.SymbolMatch, 0, len(resp.Quotes))
	for _, q := range resp.Quotes {
		if q.Symbol == "" {
			continue
		}
		exchange := q.Exchange
		if exchange == "" {
			exchange = q.ExchDisp
		}
		matches = append(matches, models.SymbolMatch{
			Symbol:   q.Symbol,
			Exchange: exchange,
			Currency: q.Currency,
			LongName: q.LongName,
		})
	}
	return matches, nil
}

func filterCloses(closes []*float64) []float64 {
	out := make([]float64, 0, len(closes))
	for _, c := range closes {
		if c != nil {
			out = append(out, *c)
		}
	}
	return out
}

var (
	_ interfaces.SnapshotProvider = (*Client)(nil)
	_ interfaces.HistoryProvider  = (*Client)(nil)
	_ interfaces.SymbolSearcher   = (*Client)(nil)
)
