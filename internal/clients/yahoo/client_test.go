package yahoo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/bobmcallan/entrycheck/internal/models"
)

const chartBody = `{
	"chart": {
		"result": [{
			"meta": {"symbol": "7203.T", "longName": "Toyota Motor Corporation"},
			"timestamp": [1700000000, 1700086400, 1700172800],
			"indicators": {
				"quote": [{
					"high":   [104.0, 108.5, null],
					"low":    [100.0, 103.0, null],
					"close":  [102.0, 105.0, null],
					"volume": [1000000, 1200000, null]
				}]
			}
		}],
		"error": null
	}
}`

func newChartTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	client := NewClient("",
		WithChartBaseURL(server.URL+"/v8/finance/chart/"),
		WithSearchBaseURL(server.URL+"/v1/finance/search"),
		WithRateLimit(1000),
	)
	return client, server
}

func TestFetchSnapshot(t *testing.T) {
	client, server := newChartTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("interval") != "1d" {
			t.Errorf("missing interval param: %s", r.URL.RawQuery)
		}
		fmt.Fprint(w, chartBody)
	})
	defer server.Close()

	snapshot, err := client.FetchSnapshot(context.Background(), "7203.T")
	if err != nil {
		t.Fatalf("FetchSnapshot failed: %v", err)
	}

	// The trailing null bar is skipped; the last complete bar wins.
	if snapshot.PrevHigh != 108.5 || snapshot.PrevLow != 103.0 {
		t.Errorf("high/low = %v/%v, want 108.5/103.0", snapshot.PrevHigh, snapshot.PrevLow)
	}
	if snapshot.Volume == nil || *snapshot.Volume != 1200000 {
		t.Error("expected volume 1200000")
	}
	// Null closes are filtered from the history.
	if len(snapshot.Closes) != 2 {
		t.Errorf("closes = %v, want 2 non-null entries", snapshot.Closes)
	}
	if snapshot.LongName != "Toyota Motor Corporation" {
		t.Errorf("LongName = %s", snapshot.LongName)
	}
	if snapshot.Source != "yahoo" {
		t.Errorf("Source = %s, want yahoo", snapshot.Source)
	}
}

func TestFetchHistory(t *testing.T) {
	client, server := newChartTestClient(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, chartBody)
	})
	defer server.Close()

	closes, err := client.FetchHistory(context.Background(), "7203.T")
	if err != nil {
		t.Fatalf("FetchHistory failed: %v", err)
	}
	if len(closes) != 2 || closes[0] != 102.0 || closes[1] != 105.0 {
		t.Errorf("closes = %v", closes)
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    models.FetchErrorKind
	}{
		{
			"http 429",
			func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTooManyRequests) },
			models.ErrKindRateLimited,
		},
		{
			"http 404",
			func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) },
			models.ErrKindSymbolNotFound,
		},
		{
			"http 500",
			func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
			models.ErrKindTransport,
		},
		{
			"broken json",
			func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, "<html>not json</html>") },
			models.ErrKindMalformedData,
		},
		{
			"in-band not found",
			func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"chart": {"result": null, "error": {"code": "Not Found", "description": "No data found"}}}`)
			},
			models.ErrKindSymbolNotFound,
		},
		{
			"empty result",
			func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"chart": {"result": [], "error": null}}`)
			},
			models.ErrKindMalformedData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, server := newChartTestClient(tt.handler)
			defer server.Close()

			_, err := client.FetchSnapshot(context.Background(), "7203.T")
			if err == nil {
				t.Fatal("expected error")
			}
			var fetchErr *models.FetchError
			if !errors.As(err, &fetchErr) {
				t.Fatalf("expected FetchError, got %T", err)
			}
			if fetchErr.Kind != tt.want {
				t.Errorf("kind = %s, want %s", fetchErr.Kind, tt.want)
			}
		})
	}
}

func TestFetchSnapshot_AllBarsIncomplete(t *testing.T) {
	client, server := newChartTestClient(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"chart": {
				"result": [{
					"meta": {"symbol": "X"},
					"timestamp": [1700000000],
					"indicators": {"quote": [{"high": [null], "low": [null], "close": [null], "volume": [null]}]}
				}],
				"error": null
			}
		}`)
	})
	defer server.Close()

	_, err := client.FetchSnapshot(context.Background(), "X")
	if models.KindOf(err) != models.ErrKindMalformedData {
		t.Errorf("expected malformed_data, got %v", err)
	}
}

func TestSearchSymbols(t *testing.T) {
	client, server := newChartTestClient(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "7203" {
			t.Errorf("query = %s, want 7203", got)
		}
		fmt.Fprint(w, `{
			"quotes": [
				{"symbol": "7203.T", "exchange": "JPX", "currency": "JPY", "longname": "Toyota Motor Corporation"},
				{"symbol": "", "exchange": "ignored"},
				{"symbol": "7203.MX", "exchDisp": "Mexico", "currency": "MXN"}
			]
		}`)
	})
	defer server.Close()

	matches, err := client.SearchSymbols(context.Background(), "7203")
	if err != nil {
		t.Fatalf("SearchSymbols failed: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("matches = %d, want 2 (blank symbol dropped)", len(matches))
	}
	if matches[0].Symbol != "7203.T" || matches[0].Exchange != "JPX" || matches[0].Currency != "JPY" {
		t.Errorf("first match = %+v", matches[0])
	}
	// exchDisp backfills a missing exchange code.
	if matches[1].Exchange != "Mexico" {
		t.Errorf("second match exchange = %s, want Mexico", matches[1].Exchange)
	}
}

func TestRelayWrapping(t *testing.T) {
	var requested string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = r.URL.String()
		fmt.Fprint(w, chartBody)
	}))
	defer server.Close()

	client := NewClient(server.URL+"/get?url=", WithRateLimit(1000))

	if _, err := client.FetchSnapshot(context.Background(), "7203.T"); err != nil {
		t.Fatalf("FetchSnapshot via relay failed: %v", err)
	}

	wrapped := url.QueryEscape("https://query1.finance.yahoo.com/v8/finance/chart/7203.T?range=3mo&interval=1d")
	if requested != "/get?url="+wrapped {
		t.Errorf("relay request = %s, want /get?url=%s", requested, wrapped)
	}
}

func TestName(t *testing.T) {
	if got := NewClient("").Name(); got != "yahoo" {
		t.Errorf("direct Name = %s, want yahoo", got)
	}
	if got := NewClient("https://api.allorigins.win/raw?url=").Name(); got != "yahoo:api.allorigins.win" {
		t.Errorf("relay Name = %s", got)
	}
}
