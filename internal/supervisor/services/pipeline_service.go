// Stride - Membership Retention and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stride

package services

import (
	"context"
	"fmt"
)

// StartStopManager is the Start/Stop lifecycle of *pipeline.Runner.
type StartStopManager interface {
	Start(ctx context.Context) error
	Stop() error
}

// PipelineService adapts the pipeline runner to suture's Serve pattern:
// Start, wait for cancellation, then Stop.
type PipelineService struct {
	manager StartStopManager
	name    string
}

// NewPipelineService wraps a runner.
//
//	tree.AddPipelineService(services.NewPipelineService(runner))
func NewPipelineService(manager StartStopManager) *PipelineService {
	return &PipelineService{
		manager: manager,
		name:    "pipeline-runner",
	}
}

// Serve implements suture.Service. A failed Start is returned so suture
// restarts the service under its backoff policy.
func (s *PipelineService) Serve(ctx context.Context) error {
	if err := s.manager.Start(ctx); err != nil {
		return fmt.Errorf("pipeline runner start failed: %w", err)
	}

	<-ctx.Done()

	// Stop waits for an in-flight run to return
	if err := s.manager.Stop(); err != nil {
		return fmt.Errorf("pipeline runner stop failed: %w", err)
	}
	return ctx.Err()
}

// String names the service in supervisor logs.
func (s *PipelineService) String() string {
	return s.name
}
