// Stride - Membership Retention and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stride

// Package snapshot holds the currently published snapshot in memory.
//
// Readers call Load and get either nil (nothing published yet) or a complete
// snapshot. A publish replaces the pointer atomically, so a reader never sees
// fact sets from two different runs. Snapshots must not be mutated after
// they are published.
package snapshot

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/tomtom215/stride/internal/metrics"
	"github.com/tomtom215/stride/internal/models"
)

// Store is safe for concurrent use.
type Store struct {
	current atomic.Pointer[models.Snapshot]
}

// New returns an empty Store.
func New() *Store {
	return &Store{}
}

// Load returns the published snapshot, or nil.
func (s *Store) Load() *models.Snapshot {
	return s.current.Load()
}

// Generation returns the generation of the published snapshot, 0 if none.
func (s *Store) Generation() int64 {
	if snap := s.current.Load(); snap != nil {
		return snap.Metadata.Generation
	}
	return 0
}

// Swap publishes snap and returns the snapshot it replaced. Generations must
// increase.
func (s *Store) Swap(snap *models.Snapshot) (*models.Snapshot, error) {
	if snap == nil {
		return nil, fmt.Errorf("snapshot is nil")
	}
	for {
		prev := s.current.Load()
		if prev != nil && snap.Metadata.Generation <= prev.Metadata.Generation {
			return nil, fmt.Errorf("snapshot generation %d is not newer than %d",
				snap.Metadata.Generation, prev.Metadata.Generation)
		}
		if s.current.CompareAndSwap(prev, snap) {
			metrics.RecordSnapshot(snap.Metadata.Generation, snap.Metadata.Stats.Rows)
			return prev, nil
		}
	}
}

// PublishSnapshot makes the Store usable as a pipeline publisher.
func (s *Store) PublishSnapshot(_ context.Context, snap *models.Snapshot) error {
	_, err := s.Swap(snap)
	return err
}
