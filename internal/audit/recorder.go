package audit

import (
	"context"
	"time"

	"github.com/wonny/autoinvest/backend/internal/contracts"
	"github.com/wonny/autoinvest/backend/internal/realtime"
	"github.com/wonny/autoinvest/backend/pkg/deadline"
	"github.com/wonny/autoinvest/backend/pkg/logger"
)

// Recorder persists the audit trail, pushes it to dashboard subscribers and
// dispatches operator alerts.
// ⭐ SSOT: 감사 로그 기록 + 알림 발송은 여기서만
type Recorder struct {
	logs          contracts.LogRepository
	notifier      contracts.Notifier
	events        realtime.Publisher
	notifyTimeout time.Duration
	logger        *logger.Logger
}

// NewRecorder creates a recorder. notifier and events may be nil.
func NewRecorder(
	logs contracts.LogRepository,
	notifier contracts.Notifier,
	events realtime.Publisher,
	notifyTimeout time.Duration,
	log *logger.Logger,
) *Recorder {
	if events == nil {
		events = realtime.NopPublisher{}
	}
	return &Recorder{
		logs:          logs,
		notifier:      notifier,
		events:        events,
		notifyTimeout: notifyTimeout,
		logger:        log.WithComponent("audit"),
	}
}

// Analysis appends the per-item log
func (r *Recorder) Analysis(ctx context.Context, l *contracts.AnalysisLog) error {
	r.logger.WithFields(map[string]interface{}{
		"run_id":   l.RunID.String(),
		"symbol":   l.Symbol,
		"action":   l.Action,
		"decision": l.AdvisoryDecision,
		"status":   l.ExecutionStatus,
	}).Info("Item processed")

	if err := r.logs.InsertAnalysisLog(ctx, l); err != nil {
		r.logger.WithError(err).WithField("symbol", l.Symbol).Error("Failed to persist analysis log")
		return err
	}
	r.events.Publish(realtime.Event{Type: realtime.EventAnalysisLog, Timestamp: l.Timestamp, Payload: l})
	return nil
}

// MarketState appends one session gate evaluation
func (r *Recorder) MarketState(ctx context.Context, l *contracts.MarketStateLog) error {
	r.logger.WithFields(map[string]interface{}{
		"run_id":  l.RunID.String(),
		"status":  l.Status,
		"trigger": l.TriggerType,
		"reason":  l.Reason,
	}).Info("Session evaluated")

	if err := r.logs.InsertMarketStateLog(ctx, l); err != nil {
		r.logger.WithError(err).Error("Failed to persist market state log")
		return err
	}
	r.events.Publish(realtime.Event{Type: realtime.EventMarketStateLog, Timestamp: l.Timestamp, Payload: l})
	return nil
}

// RunStarted records a run in RUNNING state
func (r *Recorder) RunStarted(ctx context.Context, run *contracts.RunLog) {
	if err := r.logs.SaveRun(ctx, run); err != nil {
		r.logger.WithError(err).Error("Failed to persist run start")
	}
	r.events.Publish(realtime.Event{Type: realtime.EventRunStarted, Timestamp: run.StartedAt, Payload: run})
}

// RunFinished records the final run outcome
func (r *Recorder) RunFinished(ctx context.Context, run *contracts.RunLog) {
	r.logger.WithFields(map[string]interface{}{
		"run_id":    run.RunID.String(),
		"outcome":   run.Outcome,
		"processed": run.ItemsProcessed,
		"executed":  run.ItemsExecuted,
	}).Info("Run finished")

	if err := r.logs.SaveRun(ctx, run); err != nil {
		r.logger.WithError(err).Error("Failed to persist run result")
	}
	r.events.Publish(realtime.Event{Type: realtime.EventRunFinished, Payload: run})
}

// Notify sends an operator alert. Failures are logged and swallowed.
func (r *Recorder) Notify(ctx context.Context, message string) {
	if r.notifier == nil || message == "" {
		return
	}

	_, err := deadline.Call(ctx, r.notifyTimeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, r.notifier.Send(ctx, message)
	})
	if err != nil {
		r.logger.WithError(err).Warn("Notification failed")
	}
}
