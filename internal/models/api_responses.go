// Stride - Membership Retention and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stride

package models

import (
	"time"
)

// APIResponse represents a standardized API response wrapper used by all HTTP endpoints.
//
// Status field values:
//   - "success": Request completed successfully, see Data field
//   - "error": Request failed, see Error field for details
//
// Example successful response:
//
//	{
//	  "status": "success",
//	  "data": [{"month_start": "2023-02-01T00:00:00Z", "opening_active": 12}],
//	  "metadata": {
//	    "timestamp": "2025-11-28T12:00:00Z",
//	    "generation": 4,
//	    "count": 1
//	  }
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`

	// Generation identifies the snapshot that served the response
	Generation int64 `json:"generation,omitempty"`

	Count int `json:"count,omitempty"`
}

// APIError represents an error response with structured error details.
//
// Fields:
//   - Code: Machine-readable error code (e.g., "VALIDATION_ERROR", "NO_SNAPSHOT")
//   - Message: Human-readable error message
//   - Details: Additional context (field names, constraints, etc.)
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HealthStatus reports whether the service can answer fact queries.
type HealthStatus struct {
	Status string `json:"status"`

	// Ready is true once a snapshot has been published
	Ready bool `json:"ready"`

	DatabaseConnected bool       `json:"database_connected"`
	Generation        int64      `json:"generation"`
	SnapshotHorizon   *time.Time `json:"snapshot_horizon,omitempty"`
	GeneratedAt       *time.Time `json:"generated_at,omitempty"`
	Uptime            float64    `json:"uptime_seconds"`
}
