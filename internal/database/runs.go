// Stride - Membership Retention and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stride

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/stride/internal/metrics"
	"github.com/tomtom215/stride/internal/models"
)

// ErrNoRuns is returned when the run log has no matching entry.
var ErrNoRuns = errors.New("no pipeline runs recorded")

// StartRun records a run as running.
func (db *DB) StartRun(ctx context.Context, run *models.PipelineRun) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	start := time.Now()
	defer func() { metrics.RecordDBQuery("INSERT", TablePipelineRuns, time.Since(start), err) }()

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO pipeline_runs (id, correlation_id, started_at, status)
		VALUES (?, ?, ?, ?)`,
		run.ID, run.CorrelationID, run.StartedAt, models.RunStatusRunning)
	if err != nil {
		return fmt.Errorf("failed to record run start: %w", err)
	}
	return nil
}

// FinishRun stores the final status, error and counts of a run.
func (db *DB) FinishRun(ctx context.Context, run *models.PipelineRun) (err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	start := time.Now()
	defer func() { metrics.RecordDBQuery("UPDATE", TablePipelineRuns, time.Since(start), err) }()

	res, err := db.conn.ExecContext(ctx, `
		UPDATE pipeline_runs
		SET finished_at = ?, status = ?, error = ?,
		    users = ?, subscriptions = ?, events = ?, fact_rows = ?, generation = ?
		WHERE id = ?`,
		nullTime(run.FinishedAt), run.Status, nullString(run.Error),
		run.Users, run.Subscriptions, run.Events, run.FactRows, run.Generation,
		run.ID)
	if err != nil {
		return fmt.Errorf("failed to record run finish: %w", err)
	}
	if n, raErr := res.RowsAffected(); raErr == nil && n == 0 {
		return fmt.Errorf("failed to record run finish: run %s not found", run.ID)
	}
	return nil
}

const runColumns = `id, correlation_id, started_at, finished_at, status, error,
	users, subscriptions, events, fact_rows, generation`

// LastSuccessfulRun returns the most recent succeeded run, or ErrNoRuns.
func (db *DB) LastSuccessfulRun(ctx context.Context) (*models.PipelineRun, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, `
		SELECT `+runColumns+`
		FROM pipeline_runs
		WHERE status = ?
		ORDER BY started_at DESC
		LIMIT 1`, models.RunStatusSucceeded)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRuns
	}
	return run, err
}

// LastGeneration returns the highest generation of any succeeded run, or 0
// when none has succeeded.
func (db *DB) LastGeneration(ctx context.Context) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var generation int64
	err := db.conn.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(generation), 0)
		FROM pipeline_runs
		WHERE status = ?`, models.RunStatusSucceeded).Scan(&generation)
	if err != nil {
		return 0, fmt.Errorf("failed to read last generation: %w", err)
	}
	return generation, nil
}

// RecentRuns returns up to limit runs, newest first.
func (db *DB) RecentRuns(ctx context.Context, limit int) ([]models.PipelineRun, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM pipeline_runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, errorContext("query recent runs", err)
	}
	defer closeWithLog(rows, "rows")

	var runs []models.PipelineRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (*models.PipelineRun, error) {
	var (
		run      models.PipelineRun
		finished sql.NullTime
		errMsg   sql.NullString
	)
	err := s.Scan(&run.ID, &run.CorrelationID, &run.StartedAt, &finished, &run.Status, &errMsg,
		&run.Users, &run.Subscriptions, &run.Events, &run.FactRows, &run.Generation)
	if err != nil {
		return nil, err
	}
	run.StartedAt = run.StartedAt.UTC()
	run.FinishedAt = timePtr(finished)
	run.Error = errMsg.String
	return &run, nil
}
