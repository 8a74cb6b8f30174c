// Package twelvedata provides a client for the Twelve Data time-series API.
package twelvedata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/entrycheck/internal/common"
	"github.com/bobmcallan/entrycheck/internal/interfaces"
	"github.com/bobmcallan/entrycheck/internal/models"
)

const (
	DefaultBaseURL   = "https://api.twelvedata.com"
	DefaultTimeout   = 10 * time.Second
	DefaultRateLimit = 1 // requests per second
)

// Client implements SnapshotProvider and HistoryProvider against the
// Twelve Data time_series endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	exchange   string // optional exchange pin, e.g. "TSE" for Tokyo
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

// WithExchange pins the exchange query parameter on every request.
func WithExchange(exchange string) ClientOption {
	return func(c *Client) {
		c.exchange = exchange
	}
}

// NewClient creates a new Twelve Data client
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
	return "twelvedata"
}

type timeSeriesResponse struct {
	Meta struct {
		Symbol string `json:"symbol"`
	} `json:"meta"`
	Values []struct {
		Datetime string `json:"datetime"`
		High     string `json:"high"`
		Low      string `json:"low"`
		Close    string `json:"close"`
		Volume   string `json:"volume"`
	} `json:"values"`
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (c *Client) fetchSeries(ctx context.Context, symbol string, outputSize int) (*timeSeriesResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, models.ClassifyErr(c.Name(), err)
	}

	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", "1day")
	params.Set("outputsize", strconv.Itoa(outputSize))
	params.Set("apikey", c.apiKey)
	if c.exchange != "" {
		params.Set("exchange", c.exchange)
	}

	reqURL := fmt.Sprintf("%s/time_series?%s", c.baseURL, params.Encode())
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
		Msg("Twelve Data request")

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusBadRequest &&
		resp.StatusCode != http.StatusNotFound && resp.StatusCode != http.StatusTooManyRequests {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, models.NewFetchError(models.ErrKindTransport, c.Name(),
			fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(body)), nil)
	}

	var series timeSeriesResponse
	if err := json.NewDecoder(resp.Body).Decode(&series); err != nil {
		return nil, models.NewFetchError(models.ErrKindMalformedData, c.Name(), "response body is not valid JSON", err)
	}

	// Twelve Data reports failures in-band with status "error".
	if strings.EqualFold(series.Status, "error") {
		switch {
		case series.Code == http.StatusTooManyRequests:
			return nil, models.NewFetchError(models.ErrKindRateLimited, c.Name(), "API credit limit reached", nil)
		case series.Code == http.StatusNotFound,
			series.Code == http.StatusBadRequest && strings.Contains(strings.ToLower(series.Message), "symbol"):
			return nil, models.NewFetchError(models.ErrKindSymbolNotFound, c.Name(),
				fmt.Sprintf("symbol %s not found", symbol), nil)
		default:
			return nil, models.NewFetchError(models.ErrKindMalformedData, c.Name(), series.Message, nil)
		}
	}

	if len(series.Values) == 0 {
		return nil, models.NewFetchError(models.ErrKindMalformedData, c.Name(), "time series has no values", nil)
	}

	return &series, nil
}

// FetchSnapshot retrieves the previous session's bar plus the ordered close
// history. Twelve Data returns newest-first rows; closes are reversed to
// oldest-first.
func (c *Client) FetchSnapshot(ctx context.Context, symbol string) (*models.StockSnapshot, error) {
	series, err := c.fetchSeries(ctx, symbol, 90)
	if err != nil {
		return nil, err
	}

	latest := series.Values[0]
	high, errHigh := strconv.ParseFloat(latest.High, 64)
	low, errLow := strconv.ParseFloat(latest.Low, 64)
	if errHigh != nil || errLow != nil {
		return nil, models.NewFetchError(models.ErrKindMalformedData, c.Name(), "latest value missing high/low", nil)
	}

	snapshot := &models.StockSnapshot{
		PrevHigh: high,
		PrevLow:  low,
		Date:     latest.Datetime,
		Closes:   c.orderedCloses(series),
		Source:   c.Name(),
	}
	if v, err := strconv.ParseInt(latest.Volume, 10, 64); err == nil {
		snapshot.Volume = &v
	}

	if err := snapshot.Validate(); err != nil {
		return nil, models.NewFetchError(models.ErrKindMalformedData, c.Name(), err.Error(), nil)
	}

	return snapshot, nil
}

// FetchHistory retrieves the ordered (oldest-first) close sequence.
func (c *Client) FetchHistory(ctx context.Context, symbol string) ([]float64, error) {
	series, err := c.fetchSeries(ctx, symbol, 90)
	if err != nil {
		return nil, err
	}
	closes := c.orderedCloses(series)
	if len(closes) == 0 {
		return nil, models.NewFetchError(models.ErrKindMalformedData, c.Name(), "series has no parsable closes", nil)
	}
	return closes, nil
}

func (c *Client) orderedCloses(series *timeSeriesResponse) []float64 {
	closes := make([]float64, 0, len(series.Values))
	for i := len(series.Values) - 1; i >= 0; i-- {
		if v, err := strconv.ParseFloat(series.Values[i].Close, 64); err == nil {
			closes = append(closes, v)
		}
	}
	return closes
}

var (
	_ interfaces.SnapshotProvider = (*Client)(nil)
	_ interfaces.HistoryProvider  = (*Client)(nil)
)
