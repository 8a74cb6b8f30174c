package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/bobmcallan/entrycheck/internal/common"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/api/shutdown", s.handleShutdown)

	// Analysis
	mux.HandleFunc("/api/analyze", s.handleAnalyze)

	// Market data
	mux.HandleFunc("/api/stocks/", s.routeStocks)

	// Auth
	mux.HandleFunc("/api/auth/login", s.handleAuthLogin)

	// Credentials
	mux.HandleFunc("/api/credentials/", s.handleCredentials)
}

// handleHealth handles GET /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": common.GetVersion(),
		"uptime":  time.Since(s.app.StartupTime).Round(time.Second).String(),
	})
}

// handleVersion handles GET /api/version.
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"version":    common.GetVersion(),
		"build":      common.GetBuild(),
		"git_commit": common.GetGitCommit(),
		"go_version": runtime.Version(),
	})
}

// handleConfig handles GET /api/config. Secrets are masked; the endpoint
// exists so a deployment can be inspected without shell access.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	cfg := s.app.Config
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"environment": cfg.Environment,
		"server": map[string]interface{}{
			"host": cfg.Server.Host,
			"port": cfg.Server.Port,
		},
		"storage": map[string]interface{}{
			"backend": cfg.Storage.Backend,
			"path":    cfg.Storage.Path,
		},
		"clients": map[string]interface{}{
			"yahoo_relays":            cfg.Clients.Yahoo.Relays,
			"alphavantage_configured": cfg.Clients.AlphaVantage.APIKey != "",
			"twelvedata_configured":   cfg.Clients.TwelveData.APIKey != "",
		},
		"fetch": map[string]interface{}{
			"attempt_timeout": cfg.Fetch.GetAttemptTimeout().String(),
			"resolve_timeout": cfg.Fetch.GetResolveTimeout().String(),
			"warm_symbols":    cfg.Fetch.WarmSymbols,
		},
		"logging": map[string]interface{}{
			"level": cfg.Logging.Level,
		},
	})
}

// handleShutdown handles POST /api/shutdown (dev mode only).
func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	if s.app.Config.IsProduction() {
		WriteError(w, http.StatusForbidden, "Shutdown endpoint disabled in production")
		return
	}

	s.logger.Info().Msg("Shutdown requested via HTTP endpoint")

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Shutting down gracefully...\n"))

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	if s.shutdownChan != nil {
		go func() {
			time.Sleep(100 * time.Millisecond)
			s.shutdownChan <- struct{}{}
		}()
	}
}
