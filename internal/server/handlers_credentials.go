package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/bobmcallan/entrycheck/internal/interfaces"
)

// knownProviders are the providers whose API keys the credential store
// accepts.
var knownProviders = map[string]bool{
	"alphavantage": true,
	"twelvedata":   true,
}

type credentialStatus struct {
	Provider   string `json:"provider"`
	Configured bool   `json:"configured"`
}

type credentialRequest struct {
	Key string `json:"key"`
}

// handleCredentials dispatches /api/credentials/{provider}: GET reports
// whether a key is stored (never the key itself), PUT stores one, DELETE
// removes it. Mutations require an admin bearer token.
func (s *Server) handleCredentials(w http.ResponseWriter, r *http.Request) {
	provider := strings.ToLower(PathParam(r, "/api/credentials/", ""))
	if !knownProviders[provider] {
		WriteError(w, http.StatusNotFound, "unknown provider")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleCredentialGet(w, r, provider)
	case http.MethodPut:
		s.handleCredentialPut(w, r, provider)
	case http.MethodDelete:
		s.handleCredentialDelete(w, r, provider)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (s *Server) handleCredentialGet(w http.ResponseWriter, r *http.Request, provider string) {
	_, err := s.app.Credentials.GetKey(r.Context(), provider)
	if err != nil && !errors.Is(err, interfaces.ErrKeyNotFound) {
		WriteError(w, http.StatusInternalServerError, "credential lookup failed")
		return
	}

	WriteJSON(w, http.StatusOK, credentialStatus{
		Provider:   provider,
		Configured: err == nil,
	})
}

func (s *Server) handleCredentialPut(w http.ResponseWriter, r *http.Request, provider string) {
	if !s.requireAdmin(w, r) {
		return
	}

	var req credentialRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Key) == "" {
		WriteError(w, http.StatusBadRequest, "key is required")
		return
	}

	if err := s.app.Credentials.SetKey(r.Context(), provider, req.Key); err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to store credential")
		return
	}

	s.logger.Info().Str("provider", provider).Msg("Provider credential stored")
	WriteJSON(w, http.StatusOK, credentialStatus{Provider: provider, Configured: true})
}

func (s *Server) handleCredentialDelete(w http.ResponseWriter, r *http.Request, provider string) {
	if !s.requireAdmin(w, r) {
		return
	}

	if err := s.app.Credentials.ClearKey(r.Context(), provider); err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to clear credential")
		return
	}

	s.logger.Info().Str("provider", provider).Msg("Provider credential cleared")
	WriteJSON(w, http.StatusOK, credentialStatus{Provider: provider, Configured: false})
}
