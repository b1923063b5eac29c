package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/autoinvest/backend/internal/brain"
	"github.com/wonny/autoinvest/backend/internal/contracts"
)

// Runner executes one pipeline run
// ⭐ SSOT: 스케줄러가 호출하는 실행 인터페이스는 여기서만 정의
type Runner interface {
	Run(ctx context.Context, runID uuid.UUID, trigger contracts.TriggerType) (*brain.RunResult, error)
}

// RunFunc adapts a function to Runner
type RunFunc func(ctx context.Context, runID uuid.UUID, trigger contracts.TriggerType) (*brain.RunResult, error)

// Run calls f
func (f RunFunc) Run(ctx context.Context, runID uuid.UUID, trigger contracts.TriggerType) (*brain.RunResult, error) {
	return f(ctx, runID, trigger)
}

// JobResult represents the result of one dispatched run
type JobResult struct {
	RunID          string                `json:"run_id"`
	Trigger        contracts.TriggerType `json:"trigger"`
	StartTime      time.Time             `json:"start_time"`
	EndTime        time.Time             `json:"end_time"`
	Duration       time.Duration         `json:"duration"`
	Outcome        contracts.RunOutcome  `json:"outcome"`
	ItemsProcessed int                   `json:"items_processed"`
	ItemsExecuted  int                   `json:"items_executed"`
	Success        bool                  `json:"success"`
	Error          string                `json:"error,omitempty"`
}

// JobHistory stores run history
type JobHistory struct {
	Results []JobResult
}

// AddResult adds a result to history
func (h *JobHistory) AddResult(result JobResult) {
	h.Results = append(h.Results, result)

	// Keep only last 100 results
	if len(h.Results) > 100 {
		h.Results = h.Results[len(h.Results)-100:]
	}
}

// GetLatestResults returns the latest N results, newest last
func (h *JobHistory) GetLatestResults(n int) []JobResult {
	if n > len(h.Results) {
		n = len(h.Results)
	}

	if n == 0 {
		return []JobResult{}
	}

	out := make([]JobResult, n)
	copy(out, h.Results[len(h.Results)-n:])
	return out
}

// GetFailedResults returns all failed results
func (h *JobHistory) GetFailedResults() []JobResult {
	failed := make([]JobResult, 0)
	for _, result := range h.Results {
		if !result.Success {
			failed = append(failed, result)
		}
	}
	return failed
}

// GetSuccessRate returns the success rate as a percentage
func (h *JobHistory) GetSuccessRate() float64 {
	if len(h.Results) == 0 {
		return 0
	}
	return float64(len(h.Results)-len(h.GetFailedResults())) / float64(len(h.Results)) * 100
}
