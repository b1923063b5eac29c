package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/wonny/autoinvest/backend/internal/contracts"
	"github.com/wonny/autoinvest/backend/internal/watchlist"
	"github.com/wonny/autoinvest/backend/pkg/logger"
)

// WatchlistHandler manages watchlist items
type WatchlistHandler struct {
	service *watchlist.Service
	logger  *logger.Logger
}

// NewWatchlistHandler creates a watchlist handler
func NewWatchlistHandler(service *watchlist.Service, log *logger.Logger) *WatchlistHandler {
	return &WatchlistHandler{service: service, logger: log}
}

// List returns every item in insertion order
// GET /api/watchlist
func (h *WatchlistHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "watchlist")
		return
	}
	if items == nil {
		items = []contracts.WatchlistItem{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"count": len(items),
	})
}

// Get returns one item
// GET /api/watchlist/{symbol}
func (h *WatchlistHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.Get(r.Context(), symbolVar(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "watchlist item")
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// Create adds an item
// POST /api/watchlist
func (h *WatchlistHandler) Create(w http.ResponseWriter, r *http.Request) {
	var item contracts.WatchlistItem
	if err := decodeJSON(w, r, &item); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid watchlist item: "+err.Error())
		return
	}

	if err := h.service.Add(r.Context(), &item); err != nil {
		respondServiceError(w, h.logger, err, "watchlist item")
		return
	}
	respondJSON(w, http.StatusCreated, item)
}

// Update replaces an item; the path symbol wins over the body
// PUT /api/watchlist/{symbol}
func (h *WatchlistHandler) Update(w http.ResponseWriter, r *http.Request) {
	var item contracts.WatchlistItem
	if err := decodeJSON(w, r, &item); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid watchlist item: "+err.Error())
		return
	}
	item.Symbol = symbolVar(r)

	if err := h.service.Update(r.Context(), &item); err != nil {
		respondServiceError(w, h.logger, err, "watchlist item")
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// Delete removes an item
// DELETE /api/watchlist/{symbol}
func (h *WatchlistHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Remove(r.Context(), symbolVar(r)); err != nil {
		respondServiceError(w, h.logger, err, "watchlist item")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func symbolVar(r *http.Request) string {
	return strings.ToUpper(strings.TrimSpace(mux.Vars(r)["symbol"]))
}
