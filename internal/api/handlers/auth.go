package handlers

import (
	"errors"
	"net/http"

	"github.com/wonny/autoinvest/backend/internal/api/auth"
	"github.com/wonny/autoinvest/backend/pkg/logger"
)

// AuthHandler exchanges the admin password for a bearer token
type AuthHandler struct {
	issuer *auth.Issuer
	logger *logger.Logger
}

// NewAuthHandler creates an auth handler
func NewAuthHandler(issuer *auth.Issuer, log *logger.Logger) *AuthHandler {
	return &AuthHandler{issuer: issuer, logger: log}
}

type tokenRequest struct {
	Password string `json:"password"`
}

// Token issues a JWT
// POST /api/auth/token
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	if !h.issuer.Enabled() {
		respondError(w, http.StatusNotFound, "Authentication is disabled")
		return
	}

	var req tokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid token request")
		return
	}

	token, expires, err := h.issuer.Issue(req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		h.logger.WithField("remote", r.RemoteAddr).Warn("Rejected token request")
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to issue token")
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"token":      token,
		"token_type": "Bearer",
		"expires_at": expires,
	})
}
