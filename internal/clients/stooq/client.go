// Package stooq provides a client for the Stooq CSV download endpoint.
// Stooq is keyless and not CORS-restricted, so it is always part of the
// snapshot race and also serves benchmark index closes.
package stooq

import (
	"context"
	"encoding/csv"
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
	DefaultBaseURL   = "https://stooq.com"
	DefaultTimeout   = 10 * time.Second
	DefaultRateLimit = 2 // requests per second
)

// Client implements SnapshotProvider and HistoryProvider over Stooq's
// delimited-text daily download.
type Client struct {
	baseURL    string
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

// NewClient creates a new Stooq client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
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
	return "stooq"
}

// table is a parsed delimited-text response with name-resolved columns.
type table struct {
	cols map[string]int
	rows [][]string
}

func (t *table) cell(row []string, name string) (string, bool) {
	idx, ok := t.cols[name]
	if !ok || idx >= len(row) {
		return "", false
	}
	return row[idx], true
}

func (c *Client) fetchCSV(ctx context.Context, symbol string) (*table, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, models.ClassifyErr(c.Name(), err)
	}

	reqURL := fmt.Sprintf("%s/q/d/l/?s=%s&i=d", c.baseURL, url.QueryEscape(symbol))
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
		Msg("Stooq request")

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, models.NewFetchError(models.ErrKindRateLimited, c.Name(), "daily download limit exceeded", nil)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, models.NewFetchError(models.ErrKindTransport, c.Name(),
			fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, models.ClassifyErr(c.Name(), err)
	}

	text := strings.TrimSpace(string(body))
	if strings.EqualFold(text, "No data") || text == "" {
		return nil, models.NewFetchError(models.ErrKindSymbolNotFound, c.Name(),
			fmt.Sprintf("symbol %s not found", symbol), nil)
	}
	if strings.Contains(strings.ToLower(text), "exceeded the daily hits limit") {
		return nil, models.NewFetchError(models.ErrKindRateLimited, c.Name(), "daily download limit exceeded", nil)
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil || len(records) < 2 {
		return nil, models.NewFetchError(models.ErrKindMalformedData, c.Name(), "response is not a data table", err)
	}

	// Column positions come from the header row, matched by name.
	cols := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}

	rows := make([][]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		empty := true
		for _, cell := range rec {
			if strings.TrimSpace(cell) != "" {
				empty = false
				break
			}
		}
		if !empty {
			rows = append(rows, rec)
		}
	}
	if len(rows) == 0 {
		return nil, models.NewFetchError(models.ErrKindMalformedData, c.Name(), "data table has no rows", nil)
	}

	return &table{cols: cols, rows: rows}, nil
}

// FetchSnapshot parses the last non-empty data line as the previous session
// and the close column as the ordered history. Missing high/low columns are
// a fatal parse error.
func (c *Client) FetchSnapshot(ctx context.Context, symbol string) (*models.StockSnapshot, error) {
	tbl, err := c.fetchCSV(ctx, symbol)
	if err != nil {
		return nil, err
	}

	if _, ok := tbl.cols["high"]; !ok {
		return nil, models.NewFetchError(models.ErrKindMalformedData, c.Name(), "table missing high column", nil)
	}
	if _, ok := tbl.cols["low"]; !ok {
		return nil, models.NewFetchError(models.ErrKindMalformedData, c.Name(), "table missing low column", nil)
	}

	last := tbl.rows[len(tbl.rows)-1]
	highStr, _ := tbl.cell(last, "high")
	lowStr, _ := tbl.cell(last, "low")
	high, errHigh := strconv.ParseFloat(highStr, 64)
	low, errLow := strconv.ParseFloat(lowStr, 64)
	if errHigh != nil || errLow != nil {
		return nil, models.NewFetchError(models.ErrKindMalformedData, c.Name(), "last row missing high/low", nil)
	}

	snapshot := &models.StockSnapshot{
		PrevHigh: high,
		PrevLow:  low,
		Closes:   tbl.closes(),
		Source:   c.Name(),
	}
	if date, ok := tbl.cell(last, "date"); ok {
		snapshot.Date = date
	}
	if volStr, ok := tbl.cell(last, "volume"); ok {
		if v, err := strconv.ParseInt(volStr, 10, 64); err == nil {
			snapshot.Volume = &v
		}
	}

	if err := snapshot.Validate(); err != nil {
		return nil, models.NewFetchError(models.ErrKindMalformedData, c.Name(), err.Error(), nil)
	}

	return snapshot, nil
}

// FetchHistory retrieves the ordered close sequence. Stooq rows are already
// oldest-first.
func (c *Client) FetchHistory(ctx context.Context, symbol string) ([]float64, error) {
	tbl, err := c.fetchCSV(ctx, symbol)
	if err != nil {
		return nil, err
	}
	closes := tbl.closes()
	if len(closes) == 0 {
		return nil, models.NewFetchError(models.ErrKindMalformedData, c.Name(), "table has no parsable closes", nil)
	}
	return closes, nil
}

func (t *table) closes() []float64 {
	if _, ok := t.cols["close"]; !ok {
		return nil
	}
	closes := make([]float64, 0, len(t.rows))
	for _, row := range t.rows {
		if s, ok := t.cell(row, "close"); ok {
			if v, err := strconv.ParseFloat(s, 64); err == nil {
				closes = append(closes, v)
			}
		}
	}
	return closes
}

var (
	_ interfaces.SnapshotProvider = (*Client)(nil)
	_ interfaces.HistoryProvider  = (*Client)(nil)
)
