package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wonny/autoinvest/backend/internal/contracts"
	"github.com/wonny/autoinvest/backend/pkg/deadline"
	"github.com/wonny/autoinvest/backend/pkg/logger"
)

// =============================================================================
// Session Gate - 자동 실행 허용 여부 판단
// =============================================================================

// ReasonManualOverride is recorded for every manual evaluation
const ReasonManualOverride = "manual override"

// Decision is the outcome of one session evaluation
type Decision struct {
	Proceed   bool                    `json:"proceed"`
	Status    contracts.SessionStatus `json:"status"`
	Reason    string                  `json:"reason"`
	RawStatus string                  `json:"raw_status,omitempty"`
}

// Gate answers "may this run act now?"
// ⭐ SSOT: 장 운영 상태 판단은 여기서만
type Gate struct {
	provider contracts.MarketStatusProvider
	timeout  time.Duration
	logger   *logger.Logger
}

// NewGate creates a session gate. timeout bounds the status lookup.
func NewGate(provider contracts.MarketStatusProvider, timeout time.Duration, log *logger.Logger) *Gate {
	return &Gate{
		provider: provider,
		timeout:  timeout,
		logger:   log.WithComponent("session"),
	}
}

// Check evaluates the session for a trigger type.
// MANUAL always proceeds; the status lookup only annotates the record.
// AUTOMATIC proceeds only on a confirmed open market and fails closed otherwise.
func (g *Gate) Check(ctx context.Context, trigger contracts.TriggerType) Decision {
	raw, err := deadline.Call(ctx, g.timeout, g.provider.MarketStatus)

	status, reason := classify(raw, err)

	if trigger == contracts.TriggerManual {
		d := Decision{Proceed: true, Status: status, Reason: ReasonManualOverride, RawStatus: raw}
		g.logger.WithFields(map[string]interface{}{
			"trigger": trigger,
			"status":  d.Status,
		}).Info("Session gate bypassed")
		return d
	}

	d := Decision{
		Proceed:   status == contracts.SessionOpen,
		Status:    status,
		Reason:    reason,
		RawStatus: raw,
	}

	log := g.logger.WithFields(map[string]interface{}{
		"trigger": trigger,
		"status":  d.Status,
		"raw":     raw,
	})
	if err != nil {
		log = log.WithError(err)
	}
	if d.Proceed {
		log.Info("Session gate open")
	} else {
		log.Warn("Session gate closed")
	}
	return d
}

// classify maps the collaborator answer onto a session status
func classify(raw string, err error) (contracts.SessionStatus, string) {
	if err != nil {
		return contracts.SessionUnknown, fmt.Sprintf("status check failed: %v", err)
	}

	normalized := strings.ToLower(strings.TrimSpace(raw))
	switch normalized {
	case "open", "normal":
		return contracts.SessionOpen, fmt.Sprintf("market status %q", raw)
	case "closed", "close":
		return contracts.SessionClosed, fmt.Sprintf("market status %q", raw)
	case "":
		return contracts.SessionUnknown, "empty market status"
	default:
		return contracts.SessionUnknown, fmt.Sprintf("unrecognized market status %q", raw)
	}
}
