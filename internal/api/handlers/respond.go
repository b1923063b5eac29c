package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/wonny/autoinvest/backend/internal/botconfig"
	"github.com/wonny/autoinvest/backend/internal/contracts"
	"github.com/wonny/autoinvest/backend/pkg/logger"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondServiceError maps domain errors onto status codes
func respondServiceError(w http.ResponseWriter, log *logger.Logger, err error, what string) {
	var verr botconfig.ValidationError
	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusBadRequest, map[string]string{
			"error": verr.Message,
			"field": verr.Field,
		})
	case errors.Is(err, contracts.ErrNotFound):
		respondError(w, http.StatusNotFound, what+" not found")
	case errors.Is(err, contracts.ErrAlreadyExists):
		respondError(w, http.StatusConflict, what+" already exists")
	default:
		log.WithError(err).Error("Request failed: " + what)
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decodeJSON decodes a body strictly; unknown fields are rejected
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// parseLimit reads ?limit= clamped to [1, maxLimit]
func parseLimit(r *http.Request) int {
	limit := defaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit
}
