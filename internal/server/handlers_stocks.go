package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/bobmcallan/entrycheck/internal/models"
	"github.com/bobmcallan/entrycheck/internal/services/decision"
)

// routeStocks dispatches /api/stocks/{ticker} and /api/stocks/{ticker}/chart.
func (s *Server) routeStocks(w http.ResponseWriter, r *http.Request) {
	if strings.HasSuffix(r.URL.Path, "/chart") {
		s.handleStockChart(w, r)
		return
	}
	s.handleStockSnapshot(w, r)
}

// queryMarket parses the required market query parameter.
func queryMarket(w http.ResponseWriter, r *http.Request) (models.Market, bool) {
	mkt := models.Market(r.URL.Query().Get("market"))
	if !mkt.Valid() {
		WriteError(w, http.StatusBadRequest, "market query parameter must be 'jp' or 'us'")
		return "", false
	}
	return mkt, true
}

// handleStockSnapshot handles GET /api/stocks/{ticker}?market=jp|us. It
// runs the full two-phase fetch and returns the snapshot with derived
// classifications, without scoring.
func (s *Server) handleStockSnapshot(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	ticker := PathParam(r, "/api/stocks/", "")
	if ticker == "" {
		WriteError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	mkt, ok := queryMarket(w, r)
	if !ok {
		return
	}

	result, err := s.app.MarketService.FetchStockData(r.Context(), ticker, mkt, requestCredentials(r))
	if err != nil {
		writeFetchError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, result)
}

// handleStockChart handles GET /api/stocks/{ticker}/chart?market=jp|us&stop=N.
// It renders the close history as a PNG with an optional stop-loss line; a
// missing stop parameter draws the engine's computed stop.
func (s *Server) handleStockChart(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	ticker := PathParam(r, "/api/stocks/", "/chart")
	if ticker == "" {
		WriteError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	mkt, ok := queryMarket(w, r)
	if !ok {
		return
	}

	result, err := s.app.MarketService.FetchStockData(r.Context(), ticker, mkt, requestCredentials(r))
	if err != nil {
		writeFetchError(w, err)
		return
	}

	snapshot := result.Snapshot
	stop := 0.0
	if raw := r.URL.Query().Get("stop"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 {
			WriteError(w, http.StatusBadRequest, "stop query parameter must be a positive number")
			return
		}
		stop = parsed
	} else if len(snapshot.Closes) > 0 {
		price := snapshot.Closes[len(snapshot.Closes)-1]
		stop = decision.StopLoss(price, snapshot.PrevLow, mkt)
	}

	png, err := decision.RenderClosesChart(snapshot, stop)
	if err != nil {
		WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
