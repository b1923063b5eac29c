package handlers

import (
	"net/http"

	"github.com/wonny/autoinvest/backend/internal/contracts"
	"github.com/wonny/autoinvest/backend/pkg/logger"
)

// LogsHandler serves the audit trail, newest first
type LogsHandler struct {
	logs   contracts.LogRepository
	logger *logger.Logger
}

// NewLogsHandler creates a logs handler
func NewLogsHandler(logs contracts.LogRepository, log *logger.Logger) *LogsHandler {
	return &LogsHandler{logs: logs, logger: log}
}

// Analysis returns recent AnalysisLog entries
// GET /api/logs?limit=
func (h *LogsHandler) Analysis(w http.ResponseWriter, r *http.Request) {
	logs, err := h.logs.ListAnalysisLogs(r.Context(), parseLimit(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "analysis logs")
		return
	}
	if logs == nil {
		logs = []contracts.AnalysisLog{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"logs": logs, "count": len(logs)})
}

// MarketState returns recent MarketStateLog entries
// GET /api/market-state-logs?limit=
func (h *LogsHandler) MarketState(w http.ResponseWriter, r *http.Request) {
	logs, err := h.logs.ListMarketStateLogs(r.Context(), parseLimit(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "market state logs")
		return
	}
	if logs == nil {
		logs = []contracts.MarketStateLog{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"logs": logs, "count": len(logs)})
}

// Runs returns recent RunLog entries
// GET /api/runs?limit=
func (h *LogsHandler) Runs(w http.ResponseWriter, r *http.Request) {
	runs, err := h.logs.ListRuns(r.Context(), parseLimit(r))
	if err != nil {
		respondServiceError(w, h.logger, err, "runs")
		return
	}
	if runs == nil {
		runs = []contracts.RunLog{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"runs": runs, "count": len(runs)})
}
