// Stride - Membership Retention and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stride

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/stride/internal/engine"
	"github.com/tomtom215/stride/internal/logging"
	"github.com/tomtom215/stride/internal/metrics"
	"github.com/tomtom215/stride/internal/models"
	"github.com/tomtom215/stride/internal/validation"
)

// Source supplies the input streams of a run.
type Source interface {
	LoadInputs(ctx context.Context) (*models.Inputs, error)
}

// Publisher receives a completed snapshot. A publisher must either apply the
// whole snapshot or leave its previous output untouched.
type Publisher interface {
	PublishSnapshot(ctx context.Context, snap *models.Snapshot) error
}

// RunLog records the lifecycle of each run.
type RunLog interface {
	StartRun(ctx context.Context, run *models.PipelineRun) error
	FinishRun(ctx context.Context, run *models.PipelineRun) error
}

// RunHistory reports the highest generation published before this process
// started, so generations keep increasing across restarts.
type RunHistory interface {
	LastGeneration(ctx context.Context) (int64, error)
}

// Store is the in-memory snapshot slot swapped last on success.
type Store interface {
	Generation() int64
	PublishSnapshot(ctx context.Context, snap *models.Snapshot) error
}

// Config controls scheduling and limits.
type Config struct {
	// Interval between scheduled runs. Zero disables the schedule.
	Interval time.Duration

	// Timeout bounds one run end to end. Zero means no limit.
	Timeout time.Duration

	// RunOnStartup triggers a run as soon as Start is called.
	RunOnStartup bool
}

// Dependencies wires a Runner. Publishers, RunLog and History are optional.
type Dependencies struct {
	Source     Source
	Engine     *engine.Engine
	Store      Store
	Publishers []Publisher
	RunLog     RunLog
	History    RunHistory
}

// errorKinds classifies run failures for metrics.
var errorKinds = map[string]error{
	"validation":  engine.ErrValidation,
	"integrity":   engine.ErrIntegrity,
	"empty_input": engine.ErrEmptyInput,
	"timeout":     context.DeadlineExceeded,
	"canceled":    context.Canceled,
}

// finishTimeout bounds the run log write after a run that may have hit its
// own deadline.
const finishTimeout = 10 * time.Second

// Runner executes the load, validate, compute and publish sequence, either
// on demand (RunOnce) or on an interval between Start and Stop.
type Runner struct {
	cfg  Config
	deps Dependencies

	// runMu serializes runs so generations are assigned in order
	runMu sync.Mutex

	// guarded by runMu
	seeded         bool
	baseGeneration int64

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup

	lastRun *models.PipelineRun
	now     func() time.Time
	log     zerolog.Logger
}

// NewRunner creates a Runner. Source, Engine and Store are required.
func NewRunner(cfg Config, deps Dependencies) (*Runner, error) {
	if deps.Source == nil {
		return nil, fmt.Errorf("pipeline source is required")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("pipeline engine is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("pipeline snapshot store is required")
	}
	return &Runner{cfg: cfg, deps: deps, now: time.Now, log: logging.WithComponent("pipeline")}, nil
}

// RunOnce executes a single run and returns the published snapshot.
func (r *Runner) RunOnce(ctx context.Context) (*models.Snapshot, error) {
	return r.Run(ctx)
}

// Run executes one run. On any failure nothing newer is published: the
// previous snapshot remains current in the store and in every publisher that
// applies snapshots atomically.
func (r *Runner) Run(ctx context.Context) (snap *models.Snapshot, err error) {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	run := &models.PipelineRun{
		ID:            uuid.New().String(),
		CorrelationID: logging.GenerateCorrelationID(),
		StartedAt:     r.now().UTC(),
		Status:        models.RunStatusRunning,
	}
	ctx = logging.ContextWithCorrelationID(ctx, run.CorrelationID)
	log := logging.Ctx(ctx)
	start := time.Now()

	if r.deps.RunLog != nil {
		if err := r.deps.RunLog.StartRun(ctx, run); err != nil {
			return nil, fmt.Errorf("failed to start run: %w", err)
		}
	}

	defer func() {
		r.finish(ctx, run, snap, err)
		metrics.RecordPipelineRun(time.Since(start), err, metrics.ClassifyError(err, errorKinds))
	}()

	log.Info().Str("run_id", run.ID).Msg("Pipeline run started")

	if err = r.seedGeneration(ctx); err != nil {
		return nil, err
	}

	inputs, err := r.deps.Source.LoadInputs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load inputs: %w", err)
	}
	run.Users = len(inputs.Users)
	run.Subscriptions = len(inputs.Subscriptions)
	run.Events = len(inputs.Events)
	log.Debug().
		Int("users", run.Users).
		Int("subscriptions", run.Subscriptions).
		Int("events", run.Events).
		Msg("Inputs loaded")

	if err = validation.ValidateInputs(inputs); err != nil {
		return nil, err
	}

	snap, err = r.deps.Engine.Run(ctx, inputs)
	if err != nil {
		return nil, err
	}
	snap.Metadata.RunID = run.ID
	snap.Metadata.Generation = max(r.deps.Store.Generation(), r.baseGeneration) + 1

	for _, p := range r.deps.Publishers {
		if err = p.PublishSnapshot(ctx, snap); err != nil {
			return nil, fmt.Errorf("failed to publish snapshot: %w", err)
		}
	}
	if err = r.deps.Store.PublishSnapshot(ctx, snap); err != nil {
		return nil, fmt.Errorf("failed to swap snapshot: %w", err)
	}
	r.baseGeneration = snap.Metadata.Generation

	log.Info().
		Str("run_id", run.ID).
		Int64("generation", snap.Metadata.Generation).
		Time("horizon", snap.Metadata.SnapshotHorizon).
		Int64("compute_ms", snap.Metadata.ComputeTimeMs).
		Int("fact_rows", totalRows(snap.Metadata.Stats.Rows)).
		Msg("Pipeline run succeeded")
	return snap, nil
}

// seedGeneration reads the run history once. A failed read is retried on the
// next run.
func (r *Runner) seedGeneration(ctx context.Context) error {
	if r.seeded || r.deps.History == nil {
		return nil
	}
	last, err := r.deps.History.LastGeneration(ctx)
	if err != nil {
		return fmt.Errorf("failed to read run history: %w", err)
	}
	r.baseGeneration = max(r.baseGeneration, last)
	r.seeded = true
	if last > 0 {
		logging.Ctx(ctx).Debug().Int64("generation", last).Msg("Continuing from recorded generation")
	}
	return nil
}

// finish records the outcome in the run log and keeps it as LastRun.
func (r *Runner) finish(ctx context.Context, run *models.PipelineRun, snap *models.Snapshot, runErr error) {
	finished := r.now().UTC()
	run.FinishedAt = &finished

	if runErr != nil {
		run.Status = models.RunStatusFailed
		run.Error = runErr.Error()
		logging.Ctx(ctx).Error().Err(runErr).Str("run_id", run.ID).Msg("Pipeline run failed")
	} else {
		run.Status = models.RunStatusSucceeded
		run.Generation = snap.Metadata.Generation
		run.FactRows = totalRows(snap.Metadata.Stats.Rows)
	}

	if r.deps.RunLog != nil {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
		defer cancel()
		if err := r.deps.RunLog.FinishRun(fctx, run); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("run_id", run.ID).Msg("Failed to record run outcome")
		}
	}

	r.mu.Lock()
	copied := *run
	r.lastRun = &copied
	r.mu.Unlock()
}

// LastRun returns the most recent finished run, or nil.
func (r *Runner) LastRun() *models.PipelineRun {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lastRun == nil {
		return nil
	}
	copied := *r.lastRun
	return &copied
}

// Start begins scheduled runs. It returns immediately.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return fmt.Errorf("pipeline runner is already running")
	}
	r.running = true
	r.stopChan = make(chan struct{})

	r.log.Info().
		Dur("interval", r.cfg.Interval).
		Bool("run_on_startup", r.cfg.RunOnStartup).
		Msg("Starting pipeline runner")

	r.wg.Add(1)
	go r.loop(ctx, r.stopChan)
	return nil
}

// Stop ends scheduled runs and waits for an in-flight run to return.
func (r *Runner) Stop() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return fmt.Errorf("pipeline runner is not running")
	}
	r.running = false
	close(r.stopChan)
	r.mu.Unlock()

	r.wg.Wait()
	r.log.Info().Msg("Pipeline runner stopped")
	return nil
}

func (r *Runner) loop(ctx context.Context, stop <-chan struct{}) {
	defer r.wg.Done()

	// a run in flight must observe Stop as well as ctx
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-stop:
			cancel()
		case <-runCtx.Done():
		}
	}()

	if r.cfg.RunOnStartup {
		r.scheduledRun(runCtx)
	}
	if r.cfg.Interval <= 0 {
		<-runCtx.Done()
		return
	}

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-runCtx.Done():
			return
		case <-ticker.C:
			r.scheduledRun(runCtx)
		}
	}
}

// scheduledRun logs failures; the schedule continues with the previous
// snapshot in place.
func (r *Runner) scheduledRun(ctx context.Context) {
	if _, err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		r.log.Warn().Err(err).Msg("Scheduled pipeline run failed (will retry on next interval)")
	}
}

func totalRows(rows map[string]int) int {
	var n int
	for _, v := range rows {
		n += v
	}
	return n
}
