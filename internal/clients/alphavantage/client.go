// Package alphavantage provides a client for the Alpha Vantage daily
// time-series API.
package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/entrycheck/internal/common"
	"github.com/bobmcallan/entrycheck/internal/interfaces"
	"github.com/bobmcallan/entrycheck/internal/models"
)

const (
	DefaultBaseURL   = "https://www.alphavantage.co"
	DefaultTimeout   = 10 * time.Second
	DefaultRateLimit = 1 // requests per second; free tier is 25/day
)

// Client implements the SnapshotProvider and HistoryProvider interfaces
// against Alpha Vantage TIME_SERIES_DAILY.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

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

// NewClient creates a new Alpha Vantage client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
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
	return "alphavantage"
}

// dailyResponse mirrors the Alpha Vantage payload: a date-keyed map of
// string-typed OHLCV fields, plus the provider's error/throttle markers.
type dailyResponse struct {
	ErrorMessage string                       `json:"Error Message"`
	Note         string                       `json:"Note"`
	Information  string                       `json:"Information"`
	Series       map[string]map[string]string `json:"Time Series (Daily)"`
}

func (c *Client) fetchDaily(ctx context.Context, symbol string) (*dailyResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, models.ClassifyErr(c.Name(), err)
	}

	params := url.Values{}
	params.Set("function", "TIME_SERIES_DAILY")
	params.Set("symbol", symbol)
	params.Set("outputsize", "compact")
	params.Set("apikey", c.apiKey)

	reqURL := fmt.Sprintf("%s/query?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, models.NewFetchError(models.ErrKindTransport, c.Name(), "failed to create request", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, models.ClassifyErr(c.Name(), err)
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("symbol", symbol).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("Alpha Vantage request")

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, models.NewFetchError(models.ErrKindTransport, c.Name(),
			fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(body)), nil)
	}

	var daily dailyResponse
	if err := json.NewDecoder(resp.Body).Decode(&daily); err != nil {
		return nil, models.NewFetchError(models.ErrKindMalformedData, c.Name(), "response body is not valid JSON", err)
	}

	// The provider signals problems inside a 200 body.
	if daily.ErrorMessage != "" {
		return nil, models.NewFetchError(models.ErrKindSymbolNotFound, c.Name(),
			fmt.Sprintf("symbol %s not found", symbol), nil)
	}
	if daily.Note != "" || daily.Information != "" {
		return nil, models.NewFetchError(models.ErrKindRateLimited, c.Name(), "API call frequency limit reached", nil)
	}
	if len(daily.Series) == 0 {
		return nil, models.NewFetchError(models.ErrKindMalformedData, c.Name(), "response missing daily time series", nil)
	}

	return &daily, nil
}

// orderedRows returns the series dates sorted ascending.
func (d *dailyResponse) orderedDates() []string {
	dates := make([]string, 0, len(d.Series))
	for date := range d.Series {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates
}

// FetchSnapshot retrieves the previous session's high/low/volume plus the
// full ordered close sequence. Non-numeric close entries are skipped.
func (c *Client) FetchSnapshot(ctx context.Context, symbol string) (*models.StockSnapshot, error) {
	daily, err := c.fetchDaily(ctx, symbol)
	if err != nil {
		return nil, err
	}

	dates := daily.orderedDates()
	lastDate := dates[len(dates)-1]
	row := daily.Series[lastDate]

	high, errHigh := strconv.ParseFloat(row["2. high"], 64)
	low, errLow := strconv.ParseFloat(row["3. low"], 64)
	if errHigh != nil || errLow != nil {
		return nil, models.NewFetchError(models.ErrKindMalformedData, c.Name(), "latest row missing high/low", nil)
	}

	closes := make([]float64, 0, len(dates))
	for _, date := range dates {
		if v, err := strconv.ParseFloat(daily.Series[date]["4. close"], 64); err == nil {
			closes = append(closes, v)
		}
	}

	snapshot := &models.StockSnapshot{
		PrevHigh: high,
		PrevLow:  low,
		Date:     lastDate,
		Closes:   closes,
		Source:   c.Name(),
	}
	if v, err := strconv.ParseInt(row["5. volume"], 10, 64); err == nil {
		snapshot.Volume = &v
	}

	if err := snapshot.Validate(); err != nil {
		return nil, models.NewFetchError(models.ErrKindMalformedData, c.Name(), err.Error(), nil)
	}

	return snapshot, nil
}

// FetchHistory retrieves the ordered close sequence for trend derivation.
func (c *Client) FetchHistory(ctx context.Context, symbol string) ([]float64, error) {
	daily, err := c.fetchDaily(ctx, symbol)
	if err != nil {
		return nil, err
	}

	dates := daily.orderedDates()
	closes := make([]float64, 0, len(dates))
	for _, date := range dates {
		if v, err := strconv.ParseFloat(daily.Series[date]["4. close"], 64); err == nil {
			closes = append(closes, v)
		}
	}
	if len(closes) == 0 {
		return nil, models.NewFetchError(models.ErrKindMalformedData, c.Name(), "series has no parsable closes", nil)
	}
	return closes, nil
}

var (
	_ interfaces.SnapshotProvider = (*Client)(nil)
	_ interfaces.HistoryProvider  = (*Client)(nil)
)
