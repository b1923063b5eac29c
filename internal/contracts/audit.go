package contracts

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TriggerType distinguishes operator runs from scheduled ones
type TriggerType string

const (
	TriggerManual    TriggerType = "MANUAL"
	TriggerAutomatic TriggerType = "AUTOMATIC"
)

// SessionStatus is the outcome of a market session evaluation
type SessionStatus string

const (
	SessionOpen    SessionStatus = "OPEN"
	SessionClosed  SessionStatus = "CLOSED"
	SessionUnknown SessionStatus = "UNKNOWN"
)

// ExecutionStatus is surfaced verbatim to operators
type ExecutionStatus string

const (
	StatusExecuted                   ExecutionStatus = "EXECUTED"
	StatusSkippedAutoExecuteDisabled ExecutionStatus = "SKIPPED_AUTO_EXECUTE_DISABLED"
	StatusSkippedLLMDecision         ExecutionStatus = "SKIPPED_LLM_DECISION"
	StatusSkippedPolicy              ExecutionStatus = "SKIPPED_POLICY"
	StatusSkippedNotDue              ExecutionStatus = "SKIPPED_NOT_DUE"
	StatusFailed                     ExecutionStatus = "FAILED"
)

// AnalysisLog is the immutable record of one item in one run
// ⭐ SSOT: (종목, 실행) 당 정확히 1건
type AnalysisLog struct {
	ID               uuid.UUID       `json:"id"`
	RunID            uuid.UUID       `json:"run_id"`
	Symbol           string          `json:"symbol"`
	Action           Action          `json:"action"`
	TriggerType      TriggerType     `json:"trigger_type"`
	AdvisoryDecision Decision        `json:"advisory_decision"`
	Rationale        string          `json:"rationale,omitempty"`
	Model            string          `json:"model,omitempty"`
	ExecutionStatus  ExecutionStatus `json:"execution_status"`
	OrderID          string          `json:"order_id,omitempty"`
	OrderSide        OrderSide       `json:"order_side,omitempty"`
	Quantity         int64           `json:"quantity,omitempty"`
	Price            decimal.Decimal `json:"price"`
	Detail           string          `json:"detail,omitempty"` // policy or gate reason
	Error            string          `json:"error,omitempty"`
	Timestamp        time.Time       `json:"timestamp"`
}

// MarketStateLog is the immutable record of one session gate evaluation
type MarketStateLog struct {
	ID          uuid.UUID     `json:"id"`
	RunID       uuid.UUID     `json:"run_id"`
	Timestamp   time.Time     `json:"timestamp"`
	Status      SessionStatus `json:"status"`
	TriggerType TriggerType   `json:"trigger_type"`
	Reason      string        `json:"reason"`
	RawStatus   string        `json:"raw_status,omitempty"`
}

// RunOutcome summarises how a run ended
type RunOutcome string

const (
	RunCompleted RunOutcome = "COMPLETED"
	RunGated     RunOutcome = "GATED"    // session gate refused
	RunInactive  RunOutcome = "INACTIVE" // automatic fire with is_active=false
	RunFailed    RunOutcome = "FAILED"   // config/watchlist could not be loaded
	RunRunning   RunOutcome = "RUNNING"
)

// RunLog records one pass of the pipeline
type RunLog struct {
	RunID          uuid.UUID   `json:"run_id"`
	TriggerType    TriggerType `json:"trigger_type"`
	StartedAt      time.Time   `json:"started_at"`
	FinishedAt     *time.Time  `json:"finished_at,omitempty"`
	Outcome        RunOutcome  `json:"outcome"`
	ItemsProcessed int         `json:"items_processed"`
	ItemsExecuted  int         `json:"items_executed"`
	Error          string      `json:"error,omitempty"`
}
