package brain

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wonny/autoinvest/backend/internal/advisory"
	"github.com/wonny/autoinvest/backend/internal/audit"
	"github.com/wonny/autoinvest/backend/internal/contracts"
	"github.com/wonny/autoinvest/backend/internal/enrichment"
	"github.com/wonny/autoinvest/backend/internal/execution"
	"github.com/wonny/autoinvest/backend/internal/policy"
	"github.com/wonny/autoinvest/backend/internal/session"
	"github.com/wonny/autoinvest/backend/pkg/clock"
	"github.com/wonny/autoinvest/backend/pkg/deadline"
	"github.com/wonny/autoinvest/backend/pkg/logger"
)

// Orchestrator runs one pass over the watchlist:
// Session Gate → (per item, in insertion order) Enrichment → Advisory →
// Policy → Execution Gate → Submitter → Audit/Notify
// ⭐ SSOT: 실행 흐름 조율은 여기서만
type Orchestrator struct {
	configs   contracts.ConfigRepository
	watchlist contracts.WatchlistRepository
	broker    contracts.BrokerageClient

	session   *session.Gate
	enricher  *enrichment.Adapter
	advisor   *advisory.Pipeline
	engine    *policy.Engine
	ledger    *policy.Ledger
	gate      *execution.Gate
	submitter *execution.Submitter
	recorder  *audit.Recorder
	streaks   *audit.StreakTracker

	brokerTimeout time.Duration
	clock         clock.Clock
	logger        *logger.Logger
}

// Deps groups the orchestrator's collaborators
type Deps struct {
	Configs   contracts.ConfigRepository
	Watchlist contracts.WatchlistRepository
	Broker    contracts.BrokerageClient

	Session   *session.Gate
	Enricher  *enrichment.Adapter
	Advisor   *advisory.Pipeline
	Engine    *policy.Engine
	Ledger    *policy.Ledger
	Gate      *execution.Gate
	Submitter *execution.Submitter
	Recorder  *audit.Recorder
	Streaks   *audit.StreakTracker

	BrokerTimeout time.Duration
	Clock         clock.Clock
	Logger        *logger.Logger
}

// NewOrchestrator creates a new orchestrator
func NewOrchestrator(d Deps) *Orchestrator {
	if d.Clock == nil {
		d.Clock = clock.Real{}
	}
	if d.Streaks == nil {
		d.Streaks = audit.NewStreakTracker(3)
	}
	return &Orchestrator{
		configs:       d.Configs,
		watchlist:     d.Watchlist,
		broker:        d.Broker,
		session:       d.Session,
		enricher:      d.Enricher,
		advisor:       d.Advisor,
		engine:        d.Engine,
		ledger:        d.Ledger,
		gate:          d.Gate,
		submitter:     d.Submitter,
		recorder:      d.Recorder,
		streaks:       d.Streaks,
		brokerTimeout: d.BrokerTimeout,
		clock:         d.Clock,
		logger:        d.Logger.WithComponent("orchestrator"),
	}
}

// RunResult holds the results of a complete run
type RunResult struct {
	Run     contracts.RunLog        `json:"run"`
	Session session.Decision        `json:"session"`
	Items   []contracts.AnalysisLog `json:"items"`
}

// runContext is the snapshot one run works against
type runContext struct {
	runID    uuid.UUID
	trigger  contracts.TriggerType
	cfg      *contracts.BotConfig
	holdings map[string]contracts.Holding
	// holdingsOK marks a successful snapshot; a symbol missing from it holds zero
	holdingsOK bool
	// brokerErr is set when the brokerage session could not be established
	brokerErr error
	missing   map[string]struct{}
	enriched  bool
}

// Run executes one run. The returned error is non-nil only when the run could
// not start processing items (config or watchlist unavailable).
func (o *Orchestrator) Run(ctx context.Context, runID uuid.UUID, trigger contracts.TriggerType) (*RunResult, error) {
	startTime := o.clock.Now()

	result := &RunResult{
		Run: contracts.RunLog{
			RunID:       runID,
			TriggerType: trigger,
			StartedAt:   startTime,
			Outcome:     contracts.RunRunning,
		},
		Items: make([]contracts.AnalysisLog, 0),
	}
	log := o.logger.WithRun(runID.String(), string(trigger))
	log.Info("Starting run")
	o.recorder.RunStarted(ctx, &result.Run)

	// 1. Session gate: strictly before config and watchlist are read
	decision := o.session.Check(ctx, trigger)
	result.Session = decision
	_ = o.recorder.MarketState(ctx, &contracts.MarketStateLog{
		ID:          uuid.New(),
		RunID:       runID,
		Timestamp:   o.clock.Now(),
		Status:      decision.Status,
		TriggerType: trigger,
		Reason:      decision.Reason,
		RawStatus:   decision.RawStatus,
	})

	rc := &runContext{runID: runID, trigger: trigger, missing: make(map[string]struct{})}
	defer func() { o.observeHealth(ctx, decision, rc) }()

	if !decision.Proceed {
		log.WithField("status", decision.Status).Warn("Run stopped by session gate")
		return o.finish(ctx, result, contracts.RunGated, nil), nil
	}

	// 2. Config snapshot
	cfg, err := o.configs.Get(ctx)
	if err != nil {
		err = fmt.Errorf("load config: %w", err)
		return o.finish(ctx, result, contracts.RunFailed, err), err
	}
	rc.cfg = cfg

	if trigger == contracts.TriggerAutomatic && !cfg.IsActive {
		log.Info("Bot inactive, automatic run skipped")
		return o.finish(ctx, result, contracts.RunInactive, nil), nil
	}

	// 3. Watchlist snapshot
	items, err := o.watchlist.List(ctx)
	if err != nil {
		err = fmt.Errorf("load watchlist: %w", err)
		return o.finish(ctx, result, contracts.RunFailed, err), err
	}

	// 4. Brokerage session + holdings snapshot
	o.prepareBroker(ctx, rc)

	log.WithFields(map[string]interface{}{
		"items":        len(items),
		"auto_execute": cfg.AutoExecuteTrades,
	}).Info("Processing watchlist")

	for i := range items {
		entry := o.processItem(ctx, rc, &items[i])
		_ = o.recorder.Analysis(ctx, &entry)
		result.Items = append(result.Items, entry)

		result.Run.ItemsProcessed++
		if entry.ExecutionStatus == contracts.StatusExecuted {
			result.Run.ItemsExecuted++
		}
	}

	return o.finish(ctx, result, contracts.RunCompleted, nil), nil
}

func (o *Orchestrator) finish(ctx context.Context, result *RunResult, outcome contracts.RunOutcome, err error) *RunResult {
	finished := o.clock.Now()
	result.Run.FinishedAt = &finished
	result.Run.Outcome = outcome
	if err != nil {
		result.Run.Error = err.Error()
		o.logger.WithError(err).WithField("run_id", result.Run.RunID.String()).Error("Run failed")
	}
	o.recorder.RunFinished(ctx, &result.Run)
	return result
}

func (o *Orchestrator) observeHealth(ctx context.Context, decision session.Decision, rc *runContext) {
	missing := make([]string, 0, len(rc.missing))
	for f := range rc.missing {
		missing = append(missing, f)
	}
	sort.Strings(missing)

	alerts := o.streaks.Observe(audit.RunHealth{
		SessionUnknown:    decision.Status == contracts.SessionUnknown,
		EnrichmentChecked: rc.enriched,
		MissingFields:     missing,
	})
	for _, msg := range alerts {
		o.recorder.Notify(ctx, msg)
	}
}

// prepareBroker authenticates if needed and snapshots holdings.
// Failure is recorded on every item rather than aborting the run.
func (o *Orchestrator) prepareBroker(ctx context.Context, rc *runContext) {
	if !o.broker.IsAuthenticated() {
		_, err := deadline.Call(ctx, o.brokerTimeout, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, o.broker.Authenticate(ctx)
		})
		if err != nil {
			rc.brokerErr = fmt.Errorf("brokerage not authenticated: %w", err)
			o.logger.WithError(err).Error("Brokerage authentication failed")
			o.recorder.Notify(ctx, audit.AuthFailureAlert(err))
			return
		}
	}

	rc.holdings = make(map[string]contracts.Holding)
	holdings, err := deadline.Call(ctx, o.brokerTimeout, o.broker.GetHoldings)
	if err != nil {
		o.logger.WithError(err).Warn("Holdings unavailable, using watchlist positions")
		return
	}
	for _, h := range holdings {
		rc.holdings[strings.ToUpper(h.Symbol)] = h
	}
	rc.holdingsOK = true
}

// processItem runs one item through the pipeline and returns its single log
func (o *Orchestrator) processItem(ctx context.Context, rc *runContext, item *contracts.WatchlistItem) (entry contracts.AnalysisLog) {
	entry = contracts.AnalysisLog{
		ID:               uuid.New(),
		RunID:            rc.runID,
		Symbol:           item.Symbol,
		Action:           item.Action,
		TriggerType:      rc.trigger,
		AdvisoryDecision: contracts.DecisionNone,
	}
	log := o.logger.WithRun(rc.runID.String(), string(rc.trigger)).WithItem(item.Symbol, string(item.Action))

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", fmt.Sprint(r)).Error("Item processing panicked")
			entry.ExecutionStatus = contracts.StatusFailed
			entry.Error = fmt.Sprintf("internal error: %v", r)
		}
		entry.Timestamp = o.clock.Now()
	}()

	fail := func(err error) contracts.AnalysisLog {
		log.WithError(err).Warn("Item failed")
		entry.ExecutionStatus = contracts.StatusFailed
		entry.Error = err.Error()
		return entry
	}

	// Plan
	var reservation *contracts.ReservedBalance
	if item.Action == contracts.ActionExitAndReenter {
		r, err := o.ledger.ActiveReservation(ctx, item.Symbol)
		if err != nil {
			return fail(err)
		}
		reservation = r
	}
	plan := policy.PlanFor(item, reservation)

	// SIP due check; the schedule advances once per due evaluation whatever follows
	if sip, ok := plan.(policy.SIPPlan); ok {
		due, next := policy.NextDue(sip.NextActionDate, sip.FrequencyDays, o.clock.Now())
		if !due {
			entry.ExecutionStatus = contracts.StatusSkippedNotDue
			entry.Detail = "next sip due " + sip.NextActionDate.Format("2006-01-02 15:04")
			return entry
		}
		if err := o.ledger.AdvanceSIP(ctx, item.Symbol, next); err != nil {
			log.WithError(err).Error("Failed to advance SIP schedule")
		}
	}

	if rc.brokerErr != nil {
		return fail(rc.brokerErr)
	}

	// Account state
	snap, err := o.accountState(ctx, rc, item, plan)
	if err != nil {
		return fail(err)
	}
	state := snap.AccountState

	// Enrichment + advisory (always, so the log shows what would have happened)
	enrich := o.enricher.Enrich(ctx, item)
	rc.enriched = true
	for _, f := range enrich.Missing() {
		rc.missing[f] = struct{}{}
	}

	verdict := o.advisor.RequestVerdict(ctx, item, state, enrich, rc.cfg)
	entry.AdvisoryDecision = verdict.Decision
	entry.Rationale = verdict.Rationale
	entry.Model = verdict.Model

	// Policy
	intent := o.engine.Evaluate(plan, item, state, rc.cfg)
	if !intent.HasOrder() {
		entry.ExecutionStatus = contracts.StatusSkippedPolicy
		entry.Detail = intent.Reason
		return entry
	}
	entry.OrderSide = intent.Order.Side
	entry.Quantity = intent.Order.Quantity
	entry.Price = intent.Order.Price

	// Execution gate
	auth := o.gate.Authorize(verdict, item.Action, policy.Phase(plan), rc.cfg)
	if !auth.Allow {
		entry.ExecutionStatus = auth.StatusIfDenied
		entry.Detail = auth.Reason
		if auth.StatusIfDenied == contracts.StatusSkippedAutoExecuteDisabled {
			o.recorder.Notify(ctx, audit.WouldHaveExecuted(item.Symbol, item.Action, intent.Order, verdict.Rationale))
		}
		return entry
	}
	entry.Detail = intent.Reason

	if intent.Order.Side == contracts.OrderSideBuy && snap.fundsErr != nil {
		return fail(fmt.Errorf("funds unavailable: %w", snap.fundsErr))
	}

	// Submit
	executed, err := o.submitter.Submit(ctx, execution.Request{
		RunID:     rc.runID,
		Spec:      *intent.Order,
		Charges:   intent.Charges.Total,
		Available: state.AvailableCash,
	})
	if err != nil {
		if errors.Is(err, execution.ErrInsufficientBalance) {
			entry.Detail = err.Error()
			err = execution.ErrInsufficientBalance
		}
		entry = fail(err)
		o.recorder.Notify(ctx, audit.FailureAlert(item.Symbol, entry.Error))
		return entry
	}

	entry.ExecutionStatus = contracts.StatusExecuted
	entry.OrderID = executed.OrderID

	// Settlement: the order stands even if bookkeeping fails
	if err := o.ledger.Settle(ctx, item, state, intent, executed.OrderID); err != nil {
		log.WithError(err).Error("Settlement failed after execution")
		entry.Error = "settlement: " + err.Error()
	}

	o.recorder.Notify(ctx, audit.TradeConfirmation(&entry))
	return entry
}

// itemState carries the account view plus a funds lookup failure, which
// only matters for buys
type itemState struct {
	contracts.AccountState
	fundsErr error
}

// accountState builds the holding and cash view
func (o *Orchestrator) accountState(
	ctx context.Context,
	rc *runContext,
	item *contracts.WatchlistItem,
	plan policy.Plan,
) (itemState, error) {
	state := contracts.AccountState{
		Quantity: item.Quantity,
		AvgPrice: item.AvgPrice,
		Phase:    policy.Phase(plan),
	}
	if p, ok := plan.(policy.ExitReenterPlan); ok {
		state.Reservation = p.Reservation
	}
	// Watchlist quantity is only a fallback for a failed holdings fetch
	if rc.holdingsOK && state.Phase != contracts.PhaseReentry {
		h, ok := rc.holdings[strings.ToUpper(item.Symbol)]
		state.Quantity = h.Quantity
		if ok && h.AvgPrice.IsPositive() {
			state.AvgPrice = h.AvgPrice
		}
	}

	quote, err := deadline.Call(ctx, o.brokerTimeout, func(ctx context.Context) (*contracts.Quote, error) {
		return o.broker.GetQuote(ctx, item.Instrument())
	})
	if err != nil {
		return itemState{}, fmt.Errorf("quote unavailable: %w", err)
	}
	state.LTP = quote.LTP

	funds, fundsErr := deadline.Call(ctx, o.brokerTimeout, o.broker.GetFunds)
	cash := decimal.Zero
	if fundsErr == nil {
		cash = funds.AvailableCash
	} else {
		o.logger.WithError(fundsErr).WithField("symbol", item.Symbol).Warn("Funds unavailable")
	}

	available, err := o.ledger.AvailableCash(ctx, cash, item.Symbol)
	if err != nil {
		return itemState{}, err
	}
	state.AvailableCash = available
	return itemState{AccountState: state, fundsErr: fundsErr}, nil
}
