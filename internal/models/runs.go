// Stride - Membership Retention and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stride

package models

import "time"

// Pipeline run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// PipelineRun is one entry of the run log.
type PipelineRun struct {
	ID            string     `json:"id"`
	CorrelationID string     `json:"correlation_id"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
	Status        string     `json:"status"`
	Error         string     `json:"error,omitempty"`

	Users         int `json:"users"`
	Subscriptions int `json:"subscriptions"`
	Events        int `json:"events"`

	// FactRows is the total number of rows across all published fact sets
	FactRows   int   `json:"fact_rows"`
	Generation int64 `json:"generation"`
}
