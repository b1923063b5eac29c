package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/wonny/autoinvest/backend/internal/brain"
	"github.com/wonny/autoinvest/backend/internal/contracts"
	"github.com/wonny/autoinvest/backend/pkg/logger"
)

// ErrRunInProgress is returned when a run is requested while one is active
var ErrRunInProgress = errors.New("run already in progress")

// Acceptance is the immediate answer to a trigger request
type Acceptance struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
	RunID    string `json:"run_id,omitempty"`
}

// Status is a point-in-time view of the dispatcher
type Status struct {
	Running     bool        `json:"running"`
	CurrentRun  string      `json:"current_run,omitempty"`
	Scheduled   bool        `json:"scheduled"`
	Schedule    string      `json:"schedule,omitempty"`
	NextRun     *time.Time  `json:"next_run,omitempty"`
	SuccessRate float64     `json:"success_rate"`
	Recent      []JobResult `json:"recent"`
}

// Dispatcher owns the single automatic schedule and the run-in-progress flag.
// At most one run is active; overlapping requests are rejected, never queued.
// ⭐ SSOT: 실행 트리거/상호배제는 여기서만
type Dispatcher struct {
	cron     *cron.Cron
	runner   Runner
	location *time.Location
	logger   *logger.Logger

	running    atomic.Bool
	currentRun atomic.Value // string

	mu       sync.Mutex
	entryID  cron.EntryID
	schedule string
	history  *JobHistory
	baseCtx  context.Context
	wg       sync.WaitGroup
}

// New creates a dispatcher firing in loc
func New(runner Runner, loc *time.Location, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		cron:     cron.New(cron.WithLocation(loc)),
		runner:   runner,
		location: loc,
		logger:   log.WithComponent("scheduler"),
		history:  &JobHistory{},
		baseCtx:  context.Background(),
	}
}

// Start starts the cron loop; runs started afterwards use ctx
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	d.baseCtx = ctx
	d.mu.Unlock()

	d.logger.Info("Starting scheduler")
	d.cron.Start()
}

// Stop stops firing and waits for an active run to finish
func (d *Dispatcher) Stop() {
	d.logger.Info("Stopping scheduler")
	<-d.cron.Stop().Done()
	d.wg.Wait()
	d.logger.Info("Scheduler stopped")
}

// ScheduleConfig replaces the automatic schedule. An inactive config removes
// it; manual triggers keep working either way.
func (d *Dispatcher) ScheduleConfig(cfg contracts.BotConfig) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.entryID != 0 {
		d.cron.Remove(d.entryID)
		d.entryID = 0
		d.schedule = ""
	}

	if !cfg.IsActive {
		d.logger.Info("Bot inactive, automatic schedule cleared")
		return nil
	}

	sched, desc, err := FromConfig(cfg, d.location)
	if err != nil {
		return err
	}

	d.entryID = d.cron.Schedule(sched, cron.FuncJob(func() {
		acc := d.Trigger(d.context(), contracts.TriggerAutomatic)
		if !acc.Accepted {
			d.logger.WithField("reason", acc.Reason).Warn("Scheduled fire rejected")
		}
	}))
	d.schedule = desc

	d.logger.WithFields(map[string]interface{}{
		"schedule": desc,
		"next":     d.cron.Entry(d.entryID).Next,
	}).Info("Automatic schedule set")
	return nil
}

// TriggerManualRun starts a MANUAL run unless one is active
func (d *Dispatcher) TriggerManualRun(ctx context.Context) Acceptance {
	return d.Trigger(ctx, contracts.TriggerManual)
}

// Trigger starts a run on its own goroutine and returns immediately.
// The run outlives ctx; it uses the dispatcher's base context.
func (d *Dispatcher) Trigger(ctx context.Context, trigger contracts.TriggerType) Acceptance {
	runID, ok := d.acquire()
	if !ok {
		return Acceptance{Accepted: false, Reason: ErrRunInProgress.Error()}
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		_, _ = d.execute(d.context(), runID, trigger)
	}()

	return Acceptance{Accepted: true, RunID: runID.String()}
}

// RunSync runs in the caller's goroutine; used by the CLI
func (d *Dispatcher) RunSync(ctx context.Context, trigger contracts.TriggerType) (*brain.RunResult, error) {
	runID, ok := d.acquire()
	if !ok {
		return nil, ErrRunInProgress
	}
	return d.execute(ctx, runID, trigger)
}

// Wait blocks until no dispatched run is active
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Status reports the current state and recent history
func (d *Dispatcher) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()

	st := Status{
		Running:     d.running.Load(),
		Scheduled:   d.entryID != 0,
		Schedule:    d.schedule,
		SuccessRate: d.history.GetSuccessRate(),
		Recent:      d.history.GetLatestResults(10),
	}
	if cur, ok := d.currentRun.Load().(string); ok && st.Running {
		st.CurrentRun = cur
	}
	if d.entryID != 0 {
		next := d.cron.Entry(d.entryID).Next
		if !next.IsZero() {
			st.NextRun = &next
		}
	}
	return st
}

// History returns up to n recent results, newest last
func (d *Dispatcher) History(n int) []JobResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.history.GetLatestResults(n)
}

func (d *Dispatcher) context() context.Context {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.baseCtx
}

func (d *Dispatcher) acquire() (uuid.UUID, bool) {
	if !d.running.CompareAndSwap(false, true) {
		return uuid.Nil, false
	}
	runID := uuid.New()
	d.currentRun.Store(runID.String())
	return runID, true
}

// execute runs and records history; the flag is released on return
func (d *Dispatcher) execute(ctx context.Context, runID uuid.UUID, trigger contracts.TriggerType) (res *brain.RunResult, err error) {
	defer d.running.Store(false)

	startTime := time.Now()
	log := d.logger.WithFields(map[string]interface{}{"run_id": runID.String(), "trigger": trigger})
	log.Info("Run dispatched")

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("Run panicked")
			err = errors.New("run panicked")
		}

		endTime := time.Now()
		result := JobResult{
			RunID:     runID.String(),
			Trigger:   trigger,
			StartTime: startTime,
			EndTime:   endTime,
			Duration:  endTime.Sub(startTime),
			Success:   err == nil,
		}
		if res != nil {
			result.Outcome = res.Run.Outcome
			result.ItemsProcessed = res.Run.ItemsProcessed
			result.ItemsExecuted = res.Run.ItemsExecuted
		}
		if err != nil {
			result.Error = err.Error()
			result.Outcome = contracts.RunFailed
		}

		d.mu.Lock()
		d.history.AddResult(result)
		d.mu.Unlock()

		log.WithFields(map[string]interface{}{
			"duration": result.Duration,
			"outcome":  result.Outcome,
		}).Info("Run completed")
	}()

	return d.runner.Run(ctx, runID, trigger)
}
