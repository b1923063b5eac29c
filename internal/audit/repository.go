package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/autoinvest/backend/internal/contracts"
)

// Repository handles audit data persistence
// ⭐ SSOT: Audit 로그 저장/조회는 여기서만 (append-only)
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new audit repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InsertAnalysisLog appends one analysis log
func (r *Repository) InsertAnalysisLog(ctx context.Context, l *contracts.AnalysisLog) error {
	query := `
		INSERT INTO analysis_logs (
			id, run_id, symbol, action, trigger_type, advisory_decision, rationale, model,
			execution_status, order_id, order_side, quantity, price, detail, error, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.pool.Exec(ctx, query,
		l.ID, l.RunID, l.Symbol, string(l.Action), string(l.TriggerType), string(l.AdvisoryDecision),
		l.Rationale, l.Model, string(l.ExecutionStatus), l.OrderID, string(l.OrderSide),
		l.Quantity, l.Price, l.Detail, l.Error, l.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert analysis log: %w", err)
	}
	return nil
}

// InsertMarketStateLog appends one session gate evaluation
func (r *Repository) InsertMarketStateLog(ctx context.Context, l *contracts.MarketStateLog) error {
	query := `
		INSERT INTO market_state_logs (id, run_id, status, trigger_type, reason, raw_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		l.ID, l.RunID, string(l.Status), string(l.TriggerType), l.Reason, l.RawStatus, l.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert market state log: %w", err)
	}
	return nil
}

// SaveRun upserts a run record; called at start and again at finish
func (r *Repository) SaveRun(ctx context.Context, run *contracts.RunLog) error {
	query := `
		INSERT INTO run_logs (
			run_id, trigger_type, started_at, finished_at, outcome, items_processed, items_executed, error
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (run_id) DO UPDATE SET
			finished_at = EXCLUDED.finished_at,
			outcome = EXCLUDED.outcome,
			items_processed = EXCLUDED.items_processed,
			items_executed = EXCLUDED.items_executed,
			error = EXCLUDED.error
	`

	_, err := r.pool.Exec(ctx, query,
		run.RunID, string(run.TriggerType), run.StartedAt, run.FinishedAt, string(run.Outcome),
		run.ItemsProcessed, run.ItemsExecuted, run.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// ListAnalysisLogs returns the newest analysis logs first
func (r *Repository) ListAnalysisLogs(ctx context.Context, limit int) ([]contracts.AnalysisLog, error) {
	query := `
		SELECT id, run_id, symbol, action, trigger_type, advisory_decision, rationale, model,
		       execution_status, order_id, order_side, quantity, price, detail, error, created_at
		FROM analysis_logs
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query analysis logs: %w", err)
	}
	defer rows.Close()

	logs := make([]contracts.AnalysisLog, 0)
	for rows.Next() {
		var l contracts.AnalysisLog
		var action, trigger, decision, status, side string

		err := rows.Scan(
			&l.ID, &l.RunID, &l.Symbol, &action, &trigger, &decision, &l.Rationale, &l.Model,
			&status, &l.OrderID, &side, &l.Quantity, &l.Price, &l.Detail, &l.Error, &l.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analysis log: %w", err)
		}

		l.Action = contracts.Action(action)
		l.TriggerType = contracts.TriggerType(trigger)
		l.AdvisoryDecision = contracts.Decision(decision)
		l.ExecutionStatus = contracts.ExecutionStatus(status)
		l.OrderSide = contracts.OrderSide(side)
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate analysis logs: %w", err)
	}
	return logs, nil
}

// ListMarketStateLogs returns the newest session evaluations first
func (r *Repository) ListMarketStateLogs(ctx context.Context, limit int) ([]contracts.MarketStateLog, error) {
	query := `
		SELECT id, run_id, status, trigger_type, reason, raw_status, created_at
		FROM market_state_logs
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query market state logs: %w", err)
	}
	defer rows.Close()

	logs := make([]contracts.MarketStateLog, 0)
	for rows.Next() {
		var l contracts.MarketStateLog
		var status, trigger string

		if err := rows.Scan(&l.ID, &l.RunID, &status, &trigger, &l.Reason, &l.RawStatus, &l.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan market state log: %w", err)
		}
		l.Status = contracts.SessionStatus(status)
		l.TriggerType = contracts.TriggerType(trigger)
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate market state logs: %w", err)
	}
	return logs, nil
}

// ListRuns returns the newest runs first
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]contracts.RunLog, error) {
	query := `
		SELECT run_id, trigger_type, started_at, finished_at, outcome, items_processed, items_executed, error
		FROM run_logs
		ORDER BY started_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]contracts.RunLog, 0)
	for rows.Next() {
		var run contracts.RunLog
		var trigger, outcome string

		err := rows.Scan(
			&run.RunID, &trigger, &run.StartedAt, &run.FinishedAt, &outcome,
			&run.ItemsProcessed, &run.ItemsExecuted, &run.Error,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.TriggerType = contracts.TriggerType(trigger)
		run.Outcome = contracts.RunOutcome(outcome)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}

var _ contracts.LogRepository = (*Repository)(nil)
