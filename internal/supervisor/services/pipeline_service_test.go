// Stride - Membership Retention and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stride

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

type mockRunner struct {
	startErr  error
	stopErr   error
	starts    atomic.Int32
	stops     atomic.Int32
	startedCh chan struct{}
}

func newMockRunner() *mockRunner {
	return &mockRunner{startedCh: make(chan struct{}, 1)}
}

func (m *mockRunner) Start(ctx context.Context) error {
	m.starts.Add(1)
	if m.startErr != nil {
		return m.startErr
	}
	select {
	case m.startedCh <- struct{}{}:
	default:
	}
	return nil
}

func (m *mockRunner) Stop() error {
	m.stops.Add(1)
	return m.stopErr
}

func TestPipelineService_Interface(t *testing.T) {
	var _ suture.Service = (*PipelineService)(nil)
	if NewPipelineService(newMockRunner()).String() != "pipeline-runner" {
		t.Error("unexpected service name")
	}
}

func TestPipelineService_StartThenStopOnCancel(t *testing.T) {
	runner := newMockRunner()
	svc := NewPipelineService(runner)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	select {
	case <-runner.startedCh:
	case <-time.After(5 * time.Second):
		t.Fatal("runner was not started")
	}
	if runner.stops.Load() != 0 {
		t.Error("runner stopped before cancellation")
	}
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if runner.starts.Load() != 1 || runner.stops.Load() != 1 {
		t.Errorf("starts/stops = %d/%d, want 1/1", runner.starts.Load(), runner.stops.Load())
	}
}

func TestPipelineService_StartError(t *testing.T) {
	runner := newMockRunner()
	runner.startErr = errors.New("already running")
	svc := NewPipelineService(runner)

	err := svc.Serve(context.Background())
	if !errors.Is(err, runner.startErr) {
		t.Errorf("expected wrapped start error, got %v", err)
	}
	if runner.stops.Load() != 0 {
		t.Error("Stop must not be called when Start failed")
	}
}

func TestPipelineService_StopError(t *testing.T) {
	runner := newMockRunner()
	runner.stopErr = errors.New("not running")
	svc := NewPipelineService(runner)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := svc.Serve(ctx); !errors.Is(err, runner.stopErr) {
		t.Errorf("expected wrapped stop error, got %v", err)
	}
}
