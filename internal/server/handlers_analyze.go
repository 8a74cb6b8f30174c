package server

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/bobmcallan/entrycheck/internal/models"
)

// Request credential headers. A key supplied here overrides the configured
// one for this request only and is never persisted.
const (
	headerAlphaVantageKey = "X-Entrycheck-AlphaVantage-Key"
	headerTwelveDataKey   = "X-Entrycheck-TwelveData-Key"
)

var validate = validator.New()

// requestCredentials extracts per-request provider keys from headers.
func requestCredentials(r *http.Request) models.Credentials {
	return models.Credentials{
		AlphaVantageKey: r.Header.Get(headerAlphaVantageKey),
		TwelveDataKey:   r.Header.Get(headerTwelveDataKey),
	}
}

// analyzeRequest is the POST /api/analyze body: the analysis input plus a
// flag selecting offline or fetch-backed analysis.
type analyzeRequest struct {
	models.AnalysisInput
	Fetch bool `json:"fetch,omitempty"`
}

type analyzeResponse struct {
	Result *models.AnalysisResult `json:"result"`
	Fetch  *models.FetchResult    `json:"fetch,omitempty"`
}

// handleAnalyze handles POST /api/analyze. With fetch=false every price
// field must be present; with fetch=true missing prices and classifications
// are filled from live data before scoring.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req analyzeRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	input := req.AnalysisInput

	if req.Fetch {
		// Fetch mode fills CurrentPrice/PrevHigh/PrevLow; validate only the
		// fields the user must always supply.
		if err := validatePartialInput(&input); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}

		result, fetched, err := s.app.DecisionService.FetchAndAnalyze(r.Context(), &input, requestCredentials(r))
		if err != nil {
			writeFetchError(w, err)
			return
		}

		// The fetch may have filled everything; re-validate before trusting
		// the scored result.
		if err := validate.Struct(&input); err != nil {
			WriteError(w, http.StatusBadGateway, "fetched data incomplete: "+err.Error())
			return
		}

		WriteJSON(w, http.StatusOK, analyzeResponse{Result: result, Fetch: fetched})
		return
	}

	if err := validate.Struct(&input); err != nil {
		WriteError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	result := s.app.DecisionService.Analyze(&input)
	WriteJSON(w, http.StatusOK, analyzeResponse{Result: result})
}

// validatePartialInput checks the always-required fields for fetch-backed
// analysis: identity, horizon, and focus.
func validatePartialInput(in *models.AnalysisInput) error {
	partial := struct {
		Horizon models.Horizon `validate:"required,oneof=short mid"`
		Ticker  string         `validate:"required"`
		Market  models.Market  `validate:"required,oneof=jp us"`
		Focus   int            `validate:"required,min=1,max=5"`
	}{in.Horizon, in.Ticker, in.Market, in.Focus}

	if err := validate.Struct(&partial); err != nil {
		return errors.New(validationMessage(err))
	}
	return nil
}

// validationMessage flattens validator errors into one readable line.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		first := verrs[0]
		return "invalid field " + first.Field() + ": failed " + first.Tag() + " validation"
	}
	return err.Error()
}

// writeFetchError maps the fetch-error taxonomy onto HTTP statuses.
func writeFetchError(w http.ResponseWriter, err error) {
	kind := models.KindOf(err)
	status := http.StatusBadGateway
	switch kind {
	case models.ErrKindSymbolNotFound:
		status = http.StatusNotFound
	case models.ErrKindRateLimited:
		status = http.StatusTooManyRequests
	case models.ErrKindTimeout:
		status = http.StatusGatewayTimeout
	}
	WriteErrorWithCode(w, status, err.Error(), string(kind))
}
