package execution

import (
	"fmt"

	"github.com/wonny/autoinvest/backend/internal/contracts"
	"github.com/wonny/autoinvest/backend/pkg/logger"
)

// =============================================================================
// Execution Gate - 주문 제출 직전 최종 승인
// =============================================================================

// Authorization is the gate's answer for one intended order
type Authorization struct {
	Allow          bool                      `json:"allow"`
	StatusIfDenied contracts.ExecutionStatus `json:"status_if_denied,omitempty"`
	Reason         string                    `json:"reason,omitempty"`
}

// executable lists the verdicts that may lead to an order per action/leg
var executable = map[contracts.Action][]contracts.Decision{
	contracts.ActionSIP:  {contracts.DecisionExecute},
	contracts.ActionBuy:  {contracts.DecisionExecute},
	contracts.ActionSell: {contracts.DecisionExecute, contracts.DecisionSell},
	contracts.ActionHold: {},
}

var exitLeg = []contracts.Decision{contracts.DecisionExecute, contracts.DecisionSell, contracts.DecisionExitAndReenter}
var reentryLeg = []contracts.Decision{contracts.DecisionExecute}

// ExecutableSet returns the verdicts that authorise an order for action.
// phase selects the EXIT_AND_REENTER leg and is ignored otherwise.
func ExecutableSet(action contracts.Action, phase contracts.ExitPhase) []contracts.Decision {
	if action == contracts.ActionExitAndReenter {
		if phase == contracts.PhaseReentry {
			return reentryLeg
		}
		return exitLeg
	}
	return executable[action]
}

// IsExecutable reports whether d is in the executable set
func IsExecutable(d contracts.Decision, action contracts.Action, phase contracts.ExitPhase) bool {
	for _, allowed := range ExecutableSet(action, phase) {
		if d == allowed {
			return true
		}
	}
	return false
}

// Gate combines verdict executability with the global kill-switch.
// It behaves identically for manual and automatic triggers.
// ⭐ SSOT: 주문 승인 판단은 여기서만
type Gate struct {
	logger *logger.Logger
}

// NewGate creates an execution gate
func NewGate(log *logger.Logger) *Gate {
	return &Gate{logger: log.WithComponent("execution_gate")}
}

// Authorize checks the verdict first, then the kill-switch
func (g *Gate) Authorize(verdict contracts.AdvisoryVerdict, action contracts.Action, phase contracts.ExitPhase, cfg *contracts.BotConfig) Authorization {
	var a Authorization

	switch {
	case !IsExecutable(verdict.Decision, action, phase):
		a = Authorization{
			StatusIfDenied: contracts.StatusSkippedLLMDecision,
			Reason:         fmt.Sprintf("verdict %s not executable for %s", displayDecision(verdict.Decision), action),
		}
	case !cfg.AutoExecuteTrades:
		a = Authorization{
			StatusIfDenied: contracts.StatusSkippedAutoExecuteDisabled,
			Reason:         "auto_execute_trades is off",
		}
	default:
		a = Authorization{Allow: true}
	}

	g.logger.WithFields(map[string]interface{}{
		"action":   action,
		"phase":    phase,
		"decision": verdict.Decision,
		"allow":    a.Allow,
		"status":   a.StatusIfDenied,
	}).Debug("Execution gate evaluated")
	return a
}

func displayDecision(d contracts.Decision) string {
	if d == contracts.DecisionNone {
		return "NONE"
	}
	return string(d)
}
