// Stride - Membership Retention and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stride

package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var (
	errInvalid = errors.New("invalid record")
	errBroken  = errors.New("integrity violation")
)

func TestClassifyError(t *testing.T) {
	kinds := map[string]error{
		"validation": errInvalid,
		"integrity":  errBroken,
		"timeout":    context.DeadlineExceeded,
	}

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil error", nil, "none"},
		{"direct sentinel", errInvalid, "validation"},
		{"wrapped sentinel", fmt.Errorf("users[3]: %w", errBroken), "integrity"},
		{"context deadline", fmt.Errorf("stage ltv: %w", context.DeadlineExceeded), "timeout"},
		{"unknown error", errors.New("disk full"), "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err, kinds); got != tt.want {
				t.Errorf("ClassifyError() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRecordPipelineRun(t *testing.T) {
	success := PipelineRunsTotal.WithLabelValues(StatusSuccess, "none")
	failure := PipelineRunsTotal.WithLabelValues(StatusFailure, "integrity")
	successBefore := testutil.ToFloat64(success)
	failureBefore := testutil.ToFloat64(failure)

	RecordPipelineRun(120*time.Millisecond, nil, "ignored")
	RecordPipelineRun(80*time.Millisecond, errBroken, "integrity")

	if got := testutil.ToFloat64(success) - successBefore; got != 1 {
		t.Errorf("Expected 1 successful run, got %v", got)
	}
	if got := testutil.ToFloat64(failure) - failureBefore; got != 1 {
		t.Errorf("Expected 1 failed run, got %v", got)
	}
	if testutil.ToFloat64(PipelineLastSuccess) == 0 {
		t.Error("Expected last success timestamp to be set")
	}
}

func TestRecordSnapshot(t *testing.T) {
	RecordSnapshot(7, map[string]int{"churn": 12, "ltv": 30})

	if got := testutil.ToFloat64(SnapshotGeneration); got != 7 {
		t.Errorf("Expected generation 7, got %v", got)
	}
	if got := testutil.ToFloat64(FactSetRows.WithLabelValues("churn")); got != 12 {
		t.Errorf("Expected 12 churn rows, got %v", got)
	}
	if got := testutil.ToFloat64(FactSetRows.WithLabelValues("ltv")); got != 30 {
		t.Errorf("Expected 30 ltv rows, got %v", got)
	}
}

func TestRecordDBQuery(t *testing.T) {
	tests := []struct {
		name      string
		operation string
		table     string
		err       error
		wantType  string
	}{
		{"successful select", "SELECT", "users", nil, ""},
		{"short error", "INSERT", "fact_churn", errors.New("constraint failed"), "constraint failed"},
		{
			"long error truncated",
			"DELETE",
			"fact_ltv",
			errors.New("this is a very long error message that exceeds fifty characters and should be truncated"),
			"this is a very long error message that exceeds fif",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			RecordDBQuery(tt.operation, tt.table, 5*time.Millisecond, tt.err)
			if tt.err == nil {
				return
			}
			counter := DBQueryErrors.WithLabelValues(tt.operation, tt.table, tt.wantType)
			if got := testutil.ToFloat64(counter); got < 1 {
				t.Errorf("Expected error counter for %q, got %v", tt.wantType, got)
			}
		})
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	TrackActiveRequest(true)
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests) - before; got != 1 {
		t.Errorf("Expected 1 active request, got %v", got)
	}
	TrackActiveRequest(false)
}

func TestMetricsLint(t *testing.T) {
	RecordStage("ltv", time.Millisecond)
	RecordAPIRequest("GET", "/api/v1/snapshot", "200", time.Millisecond)

	problems, err := testutil.GatherAndLint(prometheus.DefaultGatherer)
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}
	for _, p := range problems {
		t.Logf("Metric lint problem: %s: %s", p.Metric, p.Text)
	}
}
