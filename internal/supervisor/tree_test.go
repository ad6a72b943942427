// Stride - Membership Retention and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stride

package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

// countingService records how often it was started and fails its first
// failures runs.
type countingService struct {
	name     string
	starts   atomic.Int32
	failures int32
	started  chan struct{}
}

func newCountingService(name string, failures int32) *countingService {
	return &countingService{name: name, failures: failures, started: make(chan struct{}, 16)}
}

func (s *countingService) Serve(ctx context.Context) error {
	n := s.starts.Add(1)
	select {
	case s.started <- struct{}{}:
	default:
	}
	if n <= s.failures {
		return errors.New("simulated failure")
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *countingService) String() string {
	return s.name
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func waitStarted(t *testing.T, s *countingService) {
	t.Helper()
	select {
	case <-s.started:
	case <-time.After(5 * time.Second):
		t.Fatalf("service %s did not start", s.name)
	}
}

func TestSupervisorTreeConstruction(t *testing.T) {
	t.Run("creates hierarchical supervisor tree", func(t *testing.T) {
		tree, err := NewSupervisorTree(quietLogger(), TreeConfig{
			FailureThreshold: 3,
			FailureBackoff:   time.Second,
			ShutdownTimeout:  5 * time.Second,
		})
		if err != nil {
			t.Fatalf("failed to create tree: %v", err)
		}
		if tree.Root() == nil {
			t.Error("root supervisor should not be nil")
		}
		if tree.config.FailureThreshold != 3 {
			t.Errorf("expected FailureThreshold 3, got %f", tree.config.FailureThreshold)
		}
	})

	t.Run("applies default values for zero config", func(t *testing.T) {
		tree, err := NewSupervisorTree(quietLogger(), TreeConfig{})
		if err != nil {
			t.Fatalf("failed to create tree: %v", err)
		}
		want := DefaultTreeConfig()
		if tree.config != want {
			t.Errorf("expected defaults %+v, got %+v", want, tree.config)
		}
	})
}

func TestSupervisorTreeLifecycle(t *testing.T) {
	tree, err := NewSupervisorTree(quietLogger(), TreeConfig{ShutdownTimeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("failed to create tree: %v", err)
	}

	pipeline := newCountingService("pipeline", 0)
	api := newCountingService("api", 0)
	tree.AddPipelineService(pipeline)
	tree.AddAPIService(api)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	waitStarted(t, pipeline)
	waitStarted(t, api)
	cancel()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("unexpected error from tree: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("tree did not stop after cancellation")
	}

	report, err := tree.UnstoppedServiceReport()
	if err != nil {
		t.Fatalf("UnstoppedServiceReport() error = %v", err)
	}
	if len(report) != 0 {
		t.Errorf("expected every service to stop, got %v", report)
	}
}

func TestSupervisorTreeRestartsFailedPipeline(t *testing.T) {
	tree, err := NewSupervisorTree(quietLogger(), TreeConfig{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		ShutdownTimeout:  2 * time.Second,
	})
	if err != nil {
		t.Fatalf("failed to create tree: %v", err)
	}

	pipeline := newCountingService("pipeline", 2)
	api := newCountingService("api", 0)
	tree.AddPipelineService(pipeline)
	tree.AddAPIService(api)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := tree.ServeBackground(ctx)

	deadline := time.After(5 * time.Second)
	for pipeline.starts.Load() < 3 {
		select {
		case <-pipeline.started:
		case <-deadline:
			t.Fatalf("pipeline restarted %d times, want 3 starts", pipeline.starts.Load())
		}
	}

	if got := api.starts.Load(); got != 1 {
		t.Errorf("api started %d times, want 1 (pipeline failures must not restart it)", got)
	}

	cancel()
	<-errCh
}
