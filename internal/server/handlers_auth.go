package server

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/bobmcallan/entrycheck/internal/common"
)

// --- JWT helpers ---

// signJWT creates a signed HMAC-SHA256 admin token.
func signJWT(config *common.AuthConfig) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": "admin",
		"iss": "entrycheck-server",
		"iat": now.Unix(),
		"exp": now.Add(config.GetTokenExpiry()).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.JWTSecret))
}

// validateJWT parses and validates a JWT token string using the given secret.
func validateJWT(tokenString string, secret []byte) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// checkAdminKey compares a submitted key against the configured admin
// credential. A bcrypt hash takes precedence over the plain-text dev key.
func checkAdminKey(submitted string, config *common.AuthConfig) bool {
	if submitted == "" {
		return false
	}
	if config.AdminKeyHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(config.AdminKeyHash), []byte(submitted)) == nil
	}
	if config.AdminKey != "" {
		return subtle.ConstantTimeCompare([]byte(submitted), []byte(config.AdminKey)) == 1
	}
	return false
}

// requireAdmin validates the Authorization bearer token on mutating routes.
// Returns false after writing a 401 when the token is absent or invalid.
func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		w.Header().Set("WWW-Authenticate", "Bearer")
		WriteError(w, http.StatusUnauthorized, "Authorization bearer token required")
		return false
	}

	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	claims, err := validateJWT(tokenString, []byte(s.app.Config.Auth.JWTSecret))
	if err != nil {
		w.Header().Set("WWW-Authenticate", "Bearer")
		WriteError(w, http.StatusUnauthorized, "invalid or expired token")
		return false
	}

	if sub, _ := claims["sub"].(string); sub != "admin" {
		w.Header().Set("WWW-Authenticate", "Bearer")
		WriteError(w, http.StatusUnauthorized, "invalid token claims")
		return false
	}

	return true
}

type loginRequest struct {
	AdminKey string `json:"admin_key"`
}

type loginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

// handleAuthLogin handles POST /api/auth/login: exchanges the admin key for
// a bearer token used on the credential-management routes.
func (s *Server) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req loginRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	if !checkAdminKey(req.AdminKey, &s.app.Config.Auth) {
		s.logger.Warn().Str("remote", r.RemoteAddr).Msg("Failed admin login attempt")
		WriteError(w, http.StatusUnauthorized, "invalid admin key")
		return
	}

	token, err := signJWT(&s.app.Config.Auth)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "failed to sign token")
		return
	}

	WriteJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresIn: int64(s.app.Config.Auth.GetTokenExpiry().Seconds()),
	})
}
