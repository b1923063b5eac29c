package handlers

import (
	"net/http"

	"github.com/wonny/autoinvest/backend/internal/botconfig"
	"github.com/wonny/autoinvest/backend/internal/contracts"
	"github.com/wonny/autoinvest/backend/pkg/logger"
)

// ConfigHandler serves the global bot configuration
type ConfigHandler struct {
	service *botconfig.Service
	logger  *logger.Logger
}

// NewConfigHandler creates a config handler
func NewConfigHandler(service *botconfig.Service, log *logger.Logger) *ConfigHandler {
	return &ConfigHandler{service: service, logger: log}
}

// Get returns the configuration
// GET /api/config
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.service.Get(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "config")
		return
	}
	respondJSON(w, http.StatusOK, cfg)
}

// Put replaces the whole document; listeners reschedule on success
// PUT /api/config
func (h *ConfigHandler) Put(w http.ResponseWriter, r *http.Request) {
	var cfg contracts.BotConfig
	if err := decodeJSON(w, r, &cfg); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid config document: "+err.Error())
		return
	}

	saved, err := h.service.Update(r.Context(), &cfg)
	if err != nil {
		respondServiceError(w, h.logger, err, "config")
		return
	}
	respondJSON(w, http.StatusOK, saved)
}
