package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/wonny/autoinvest/backend/internal/contracts"
	"github.com/wonny/autoinvest/backend/pkg/deadline"
	"github.com/wonny/autoinvest/backend/pkg/logger"
)

// NotificationHandler sends operator test messages
type NotificationHandler struct {
	notifier contracts.Notifier
	timeout  time.Duration
	logger   *logger.Logger
}

// NewNotificationHandler creates a notification handler
func NewNotificationHandler(notifier contracts.Notifier, timeout time.Duration, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{notifier: notifier, timeout: timeout, logger: log}
}

type testNotificationRequest struct {
	Message string `json:"message"`
}

// Test delivers a message and reports the delivery error, if any
// POST /api/notifications/test
func (h *NotificationHandler) Test(w http.ResponseWriter, r *http.Request) {
	var req testNotificationRequest
	if err := decodeJSON(w, r, &req); err != nil && err != io.EOF {
		respondError(w, http.StatusBadRequest, "Invalid notification request: "+err.Error())
		return
	}
	if req.Message == "" {
		req.Message = "🔔 Test notification from autoinvest"
	}

	_, err := deadline.Call(r.Context(), h.timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, h.notifier.Send(ctx, req.Message)
	})
	if err != nil {
		h.logger.WithError(err).Warn("Test notification failed")
		respondJSON(w, http.StatusBadGateway, map[string]interface{}{"sent": false, "error": err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"sent": true})
}
