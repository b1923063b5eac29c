package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/wonny/autoinvest/backend/internal/contracts"
	"github.com/wonny/autoinvest/backend/internal/scheduler"
	"github.com/wonny/autoinvest/backend/pkg/logger"
)

// Dispatcher is the scheduler surface the API drives
type Dispatcher interface {
	Trigger(ctx context.Context, trigger contracts.TriggerType) scheduler.Acceptance
	Status() scheduler.Status
}

// ConfigReader returns the current bot configuration
type ConfigReader interface {
	Get(ctx context.Context) (*contracts.BotConfig, error)
}

// SubscriberCounter reports live websocket subscribers
type SubscriberCounter interface {
	Clients() int
}

// RunHandler triggers runs and reports bot status
type RunHandler struct {
	dispatcher Dispatcher
	configs    ConfigReader
	broker     contracts.BrokerageClient
	hub        SubscriberCounter
	brokerMode string
	logger     *logger.Logger
}

// NewRunHandler creates a run handler. hub may be nil.
func NewRunHandler(dispatcher Dispatcher, configs ConfigReader, broker contracts.BrokerageClient, hub SubscriberCounter, brokerMode string, log *logger.Logger) *RunHandler {
	return &RunHandler{
		dispatcher: dispatcher,
		configs:    configs,
		broker:     broker,
		hub:        hub,
		brokerMode: brokerMode,
		logger:     log,
	}
}

type runRequest struct {
	Manual *bool `json:"manual"`
}

// Trigger starts a run. The body is optional and defaults to a manual run.
// POST /api/run
func (h *RunHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := decodeJSON(w, r, &req); err != nil && err != io.EOF {
		respondError(w, http.StatusBadRequest, "Invalid run request: "+err.Error())
		return
	}

	trigger := contracts.TriggerManual
	if req.Manual != nil && !*req.Manual {
		trigger = contracts.TriggerAutomatic
	}

	acc := h.dispatcher.Trigger(context.WithoutCancel(r.Context()), trigger)
	if !acc.Accepted {
		respondJSON(w, http.StatusConflict, acc)
		return
	}

	h.logger.WithFields(map[string]interface{}{
		"run_id":  acc.RunID,
		"trigger": trigger,
	}).Info("Run accepted via API")
	respondJSON(w, http.StatusAccepted, acc)
}

// Status reports scheduler, configuration and brokerage state
// GET /api/status
func (h *RunHandler) Status(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"scheduler":   h.dispatcher.Status(),
		"broker_mode": h.brokerMode,
	}

	if h.broker != nil {
		resp["broker_authenticated"] = h.broker.IsAuthenticated()
	}
	if h.hub != nil {
		resp["ws_clients"] = h.hub.Clients()
	}

	cfg, err := h.configs.Get(r.Context())
	if err != nil {
		h.logger.WithError(err).Warn("Failed to load config for status")
	} else {
		resp["is_active"] = cfg.IsActive
		resp["auto_execute_trades"] = cfg.AutoExecuteTrades
		resp["schedule_type"] = cfg.ScheduleType
	}

	respondJSON(w, http.StatusOK, resp)
}
