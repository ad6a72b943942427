// Stride - Membership Retention and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stride

package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/stride/internal/engine"
	"github.com/tomtom215/stride/internal/models"
	"github.com/tomtom215/stride/internal/snapshot"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func goodInputs() *models.Inputs {
	end := day(2023, 3, 10)
	return &models.Inputs{
		Users: []models.User{
			{UserID: "u1", BranchID: "north"},
			{UserID: "u2", BranchID: "north"},
		},
		Subscriptions: []models.Subscription{
			{UserID: "u1", Plan: models.PlanBasic, StartDate: day(2023, 1, 2), Price: 40},
			{UserID: "u2", Plan: models.PlanBasic, StartDate: day(2023, 1, 9), EndDate: &end, Price: 40},
		},
		Events: []models.ActivityEvent{
			{UserID: "u1", EventDate: day(2023, 1, 3)},
			{UserID: "u2", EventDate: day(2023, 2, 14)},
		},
	}
}

// fakeSource returns the current inputs or err. With block set it waits for
// ctx to end instead.
type fakeSource struct {
	mu     sync.Mutex
	inputs *models.Inputs
	err    error
	block  bool
}

func (s *fakeSource) set(in *models.Inputs, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inputs, s.err = in, err
}

func (s *fakeSource) LoadInputs(ctx context.Context) (*models.Inputs, error) {
	s.mu.Lock()
	in, err, block := s.inputs, s.err, s.block
	s.mu.Unlock()
	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return in, err
}

type fakePublisher struct {
	mu        sync.Mutex
	err       error
	published []*models.Snapshot
}

func (p *fakePublisher) PublishSnapshot(_ context.Context, snap *models.Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, snap)
	return nil
}

type fakeRunLog struct {
	mu       sync.Mutex
	started  []models.PipelineRun
	finished []models.PipelineRun
}

func (l *fakeRunLog) StartRun(_ context.Context, run *models.PipelineRun) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.started = append(l.started, *run)
	return nil
}

func (l *fakeRunLog) FinishRun(_ context.Context, run *models.PipelineRun) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.finished = append(l.finished, *run)
	return nil
}

func (l *fakeRunLog) last() models.PipelineRun {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.finished[len(l.finished)-1]
}

type fixture struct {
	source    *fakeSource
	publisher *fakePublisher
	runLog    *fakeRunLog
	store     *snapshot.Store
	runner    *Runner
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	f := &fixture{
		source:    &fakeSource{inputs: goodInputs()},
		publisher: &fakePublisher{},
		runLog:    &fakeRunLog{},
		store:     snapshot.New(),
	}
	runner, err := NewRunner(cfg, Dependencies{
		Source:     f.source,
		Engine:     engine.New(engine.Config{Horizon: day(2023, 4, 15), Parallelism: 2}),
		Store:      f.store,
		Publishers: []Publisher{f.publisher},
		RunLog:     f.runLog,
	})
	checkNoError(t, err)
	f.runner = runner
	return f
}

func TestNewRunner_RequiresDependencies(t *testing.T) {
	eng := engine.New(engine.Config{})
	store := snapshot.New()
	src := &fakeSource{}

	_, err := NewRunner(Config{}, Dependencies{Engine: eng, Store: store})
	checkError(t, err, "missing source")
	_, err = NewRunner(Config{}, Dependencies{Source: src, Store: store})
	checkError(t, err, "missing engine")
	_, err = NewRunner(Config{}, Dependencies{Source: src, Engine: eng})
	checkError(t, err, "missing store")

	r, err := NewRunner(Config{}, Dependencies{Source: src, Engine: eng, Store: store})
	checkNoError(t, err)
	checkNil(t, r.LastRun())
}

func TestRunner_RunOnceSucceeds(t *testing.T) {
	f := newFixture(t, Config{})

	snap, err := f.runner.RunOnce(context.Background())
	checkNoError(t, err)
	requireNotNil(t, snap)

	checkEqual(t, snap.Metadata.Generation, int64(1))
	checkNotEmpty(t, snap.Metadata.RunID)
	checkEqual(t, snap.Metadata.SnapshotHorizon, day(2023, 4, 15))
	checkSame(t, f.store.Load(), snap)
	requireLen(t, f.publisher.published, 1)
	checkSame(t, f.publisher.published[0], snap)

	requireLen(t, f.runLog.started, 1)
	checkEqual(t, f.runLog.started[0].Status, models.RunStatusRunning)
	done := f.runLog.last()
	checkEqual(t, done.ID, snap.Metadata.RunID)
	checkEqual(t, done.Status, models.RunStatusSucceeded)
	checkEqual(t, done.Generation, int64(1))
	checkEqual(t, done.Users, 2)
	checkEqual(t, done.Subscriptions, 2)
	checkEqual(t, done.Events, 2)
	checkPositive(t, done.FactRows)
	checkNotNil(t, done.FinishedAt)
	checkLen(t, done.CorrelationID, 8)

	last := f.runner.LastRun()
	requireNotNil(t, last)
	checkEqual(t, last.ID, done.ID)
}

func TestRunner_GenerationsIncrease(t *testing.T) {
	f := newFixture(t, Config{})

	for want := int64(1); want <= 3; want++ {
		snap, err := f.runner.Run(context.Background())
		checkNoError(t, err)
		checkEqual(t, snap.Metadata.Generation, want)
	}
	checkEqual(t, f.store.Generation(), int64(3))
}

// fakeHistory reports a fixed last generation, or err.
type fakeHistory struct {
	mu    sync.Mutex
	last  int64
	err   error
	calls int
}

func (h *fakeHistory) LastGeneration(_ context.Context) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	return h.last, h.err
}

func TestRunner_GenerationsContinueFromHistory(t *testing.T) {
	history := &fakeHistory{last: 7}
	store := snapshot.New()
	r, err := NewRunner(Config{}, Dependencies{
		Source:  &fakeSource{inputs: goodInputs()},
		Engine:  engine.New(engine.Config{Horizon: day(2023, 4, 15)}),
		Store:   store,
		History: history,
	})
	checkNoError(t, err)

	for want := int64(8); want <= 9; want++ {
		snap, err := r.RunOnce(context.Background())
		checkNoError(t, err)
		checkEqual(t, snap.Metadata.Generation, want)
	}
	checkEqual(t, store.Generation(), int64(9))
	checkEqual(t, history.calls, 1, "history is read once per process")
}

func TestRunner_HistoryErrorFailsRunAndRetries(t *testing.T) {
	history := &fakeHistory{err: errors.New("database is locked")}
	store := snapshot.New()
	r, err := NewRunner(Config{}, Dependencies{
		Source:  &fakeSource{inputs: goodInputs()},
		Engine:  engine.New(engine.Config{Horizon: day(2023, 4, 15)}),
		Store:   store,
		History: history,
	})
	checkNoError(t, err)

	_, err = r.RunOnce(context.Background())
	checkError(t, err)
	checkNil(t, store.Load())
	checkEqual(t, r.LastRun().Status, models.RunStatusFailed)

	history.mu.Lock()
	history.err, history.last = nil, 4
	history.mu.Unlock()

	snap, err := r.RunOnce(context.Background())
	checkNoError(t, err)
	checkEqual(t, snap.Metadata.Generation, int64(5))
	checkEqual(t, history.calls, 2)
}

func TestRunner_FailureKeepsPreviousSnapshot(t *testing.T) {
	invalid := goodInputs()
	invalid.Subscriptions[0].Price = -1

	orphanEvent := goodInputs()
	orphanEvent.Events = append(orphanEvent.Events, models.ActivityEvent{UserID: "ghost", EventDate: day(2023, 2, 1)})

	tests := []struct {
		name    string
		inputs  *models.Inputs
		loadErr error
		want    error
	}{
		{"validation", invalid, nil, engine.ErrValidation},
		{"integrity", orphanEvent, nil, engine.ErrIntegrity},
		{"empty input", &models.Inputs{}, nil, engine.ErrEmptyInput},
		{"source error", nil, errors.New("connection reset"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, Config{})
			first, err := f.runner.Run(context.Background())
			checkNoError(t, err)

			f.source.set(tt.inputs, tt.loadErr)
			snap, err := f.runner.Run(context.Background())
			checkError(t, err)
			checkNil(t, snap)
			if tt.want != nil {
				checkErrorIs(t, err, tt.want)
			} else {
				checkErrorIs(t, err, tt.loadErr)
			}

			checkSame(t, f.store.Load(), first, "previous snapshot must stay current")
			checkLen(t, f.publisher.published, 1)

			failed := f.runLog.last()
			checkEqual(t, failed.Status, models.RunStatusFailed)
			checkNotEmpty(t, failed.Error)
			checkZero(t, failed.Generation)
			checkEqual(t, f.runner.LastRun().Status, models.RunStatusFailed)
		})
	}
}

func TestRunner_PublisherFailureLeavesStoreUntouched(t *testing.T) {
	f := newFixture(t, Config{})
	f.publisher.err = errors.New("disk full")

	_, err := f.runner.Run(context.Background())
	checkError(t, err)
	checkErrorIs(t, err, f.publisher.err)
	checkNil(t, f.store.Load())
	checkEqual(t, f.runLog.last().Status, models.RunStatusFailed)

	f.publisher.err = nil
	snap, err := f.runner.Run(context.Background())
	checkNoError(t, err)
	checkEqual(t, snap.Metadata.Generation, int64(1), "a failed run must not consume a generation")
}

func TestRunner_Timeout(t *testing.T) {
	f := newFixture(t, Config{Timeout: 50 * time.Millisecond})
	f.source.block = true

	start := time.Now()
	_, err := f.runner.Run(context.Background())
	checkError(t, err)
	checkErrorIs(t, err, context.DeadlineExceeded)
	checkLess(t, time.Since(start), 5*time.Second)
	checkEqual(t, f.runLog.last().Status, models.RunStatusFailed, "outcome is recorded after the deadline")
}

func TestRunner_ConcurrentRunsAreSerialized(t *testing.T) {
	f := newFixture(t, Config{})

	var wg sync.WaitGroup
	gens := make(chan int64, 6)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, err := f.runner.Run(context.Background())
			if checkNoError(t, err) {
				gens <- snap.Metadata.Generation
			}
		}()
	}
	wg.Wait()
	close(gens)

	seen := make(map[int64]bool)
	for g := range gens {
		checkFalse(t, seen[g], "generation %d assigned twice", g)
		seen[g] = true
	}
	checkLen(t, seen, 6)
	checkEqual(t, f.store.Generation(), int64(6))
}

func TestRunner_StartStop(t *testing.T) {
	f := newFixture(t, Config{RunOnStartup: true, Interval: 20 * time.Millisecond})

	checkNoError(t, f.runner.Start(context.Background()))
	checkError(t, f.runner.Start(context.Background()), "second Start must fail")

	checkEventually(t, func() bool {
		return f.store.Generation() >= 2
	}, 5*time.Second, 10*time.Millisecond, "scheduled runs should publish new generations")

	checkNoError(t, f.runner.Stop())
	checkError(t, f.runner.Stop(), "Stop on a stopped runner must fail")

	gen := f.store.Generation()
	time.Sleep(60 * time.Millisecond)
	checkEqual(t, f.store.Generation(), gen, "no runs after Stop")
}

func TestRunner_StartWithoutInterval(t *testing.T) {
	f := newFixture(t, Config{RunOnStartup: true})

	checkNoError(t, f.runner.Start(context.Background()))
	checkEventually(t, func() bool {
		return f.store.Generation() == 1
	}, 5*time.Second, 10*time.Millisecond)
	checkNoError(t, f.runner.Stop())
	checkEqual(t, f.store.Generation(), int64(1))
}

func TestRunner_StopCancelsInFlightRun(t *testing.T) {
	f := newFixture(t, Config{RunOnStartup: true})
	f.source.block = true

	checkNoError(t, f.runner.Start(context.Background()))
	checkEventually(t, func() bool {
		f.runLog.mu.Lock()
		defer f.runLog.mu.Unlock()
		return len(f.runLog.started) == 1
	}, 5*time.Second, 10*time.Millisecond)

	stopped := make(chan error, 1)
	go func() { stopped <- f.runner.Stop() }()

	select {
	case err := <-stopped:
		checkNoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not cancel the in-flight run")
	}
	checkEqual(t, f.runLog.last().Status, models.RunStatusFailed)
}
