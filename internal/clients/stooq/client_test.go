package stooq

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bobmcallan/entrycheck/internal/models"
)

const csvBody = `Date,Open,High,Low,Close,Volume
2026-08-20,101.0,104.0,100.0,102.0,1000000
2026-08-21,104.0,108.5,103.0,105.0,1200000
`

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	client := NewClient(WithBaseURL(server.URL), WithRateLimit(1000))
	return client, server
}

func TestFetchSnapshot(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("s"); got != "7203.jp" {
			t.Errorf("symbol = %s, want 7203.jp", got)
		}
		fmt.Fprint(w, csvBody)
	})
	defer server.Close()

	snapshot, err := client.FetchSnapshot(context.Background(), "7203.jp")
	if err != nil {
		t.Fatalf("FetchSnapshot failed: %v", err)
	}

	// The last data line is the previous session.
	if snapshot.PrevHigh != 108.5 || snapshot.PrevLow != 103.0 {
		t.Errorf("high/low = %v/%v, want 108.5/103.0", snapshot.PrevHigh, snapshot.PrevLow)
	}
	if snapshot.Date != "2026-08-21" {
		t.Errorf("Date = %s", snapshot.Date)
	}
	if snapshot.Volume == nil || *snapshot.Volume != 1200000 {
		t.Error("expected volume 1200000")
	}
	if len(snapshot.Closes) != 2 || snapshot.Closes[0] != 102.0 {
		t.Errorf("closes = %v, want [102 105]", snapshot.Closes)
	}
	if snapshot.Source != "stooq" {
		t.Errorf("Source = %s", snapshot.Source)
	}
}

func TestFetchSnapshot_TrailingBlankLine(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, csvBody+"\n\n")
	})
	defer server.Close()

	snapshot, err := client.FetchSnapshot(context.Background(), "7203.jp")
	if err != nil {
		t.Fatalf("FetchSnapshot failed: %v", err)
	}
	if snapshot.PrevHigh != 108.5 {
		t.Errorf("blank trailing lines must not shift the last row, high = %v", snapshot.PrevHigh)
	}
}

func TestFetchHistory(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, csvBody)
	})
	defer server.Close()

	closes, err := client.FetchHistory(context.Background(), "^nkx")
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
			"no data body",
			func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, "No data") },
			models.ErrKindSymbolNotFound,
		},
		{
			"empty body",
			func(w http.ResponseWriter, r *http.Request) {},
			models.ErrKindSymbolNotFound,
		},
		{
			"daily limit text",
			func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, "Exceeded the daily hits limit")
			},
			models.ErrKindRateLimited,
		},
		{
			"http 429",
			func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTooManyRequests) },
			models.ErrKindRateLimited,
		},
		{
			"http 500",
			func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
			models.ErrKindTransport,
		},
		{
			"header only",
			func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, "Date,Open,High,Low,Close,Volume\n")
			},
			models.ErrKindMalformedData,
		},
		{
			"missing high column",
			func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, "Date,Close\n2026-08-21,105.0\n")
			},
			models.ErrKindMalformedData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, server := newTestClient(tt.handler)
			defer server.Close()

			_, err := client.FetchSnapshot(context.Background(), "zzzz.us")
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
