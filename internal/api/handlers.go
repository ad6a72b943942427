// Stride - Membership Retention and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stride

package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/stride/internal/models"
)

// SnapshotSource returns the published snapshot, or nil before the first run.
type SnapshotSource interface {
	Load() *models.Snapshot
}

// Pinger checks a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RunHistory lists recent pipeline runs.
type RunHistory interface {
	RecentRuns(ctx context.Context, limit int) ([]models.PipelineRun, error)
}

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 500
)

// Handler serves the read API. Only snapshots is required.
type Handler struct {
	snapshots SnapshotSource
	db        Pinger
	runs      RunHistory
	startTime time.Time
}

// NewHandler creates a Handler. db and runs may be nil.
func NewHandler(snapshots SnapshotSource, db Pinger, runs RunHistory) *Handler {
	return &Handler{
		snapshots: snapshots,
		db:        db,
		runs:      runs,
		startTime: time.Now(),
	}
}

// HealthLive reports that the process is serving requests.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     map[string]string{"status": "alive"},
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
	})
}

// HealthReady returns 200 once a snapshot is published and the database, if
// any, answers a ping. Otherwise it returns 503 with the same body shape.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	health := models.HealthStatus{
		Status:            "ready",
		DatabaseConnected: true,
		Uptime:            time.Since(h.startTime).Seconds(),
	}
	if h.db != nil && h.db.Ping(r.Context()) != nil {
		health.DatabaseConnected = false
	}

	snap := h.snapshots.Load()
	if snap != nil {
		health.Ready = true
		health.Generation = snap.Metadata.Generation
		horizon := snap.Metadata.SnapshotHorizon
		generated := snap.Metadata.GeneratedAt
		health.SnapshotHorizon = &horizon
		health.GeneratedAt = &generated
	}

	status := http.StatusOK
	switch {
	case snap == nil:
		health.Status = "no_snapshot"
		status = http.StatusServiceUnavailable
	case !health.DatabaseConnected:
		health.Status = "degraded"
		status = http.StatusServiceUnavailable
	}

	respondJSON(w, status, &models.APIResponse{
		Status:   "success",
		Data:     health,
		Metadata: models.Metadata{Timestamp: time.Now().UTC(), Generation: health.Generation},
	})
}

// Snapshot returns the metadata of the published snapshot.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	snap := h.snapshots.Load()
	if snap == nil {
		respondNoSnapshot(w)
		return
	}
	respondData(w, r, snap.Metadata, snap.Metadata.Generation, 1, start)
}

// FactSets lists the fact set names with their row counts and filters.
func (h *Handler) FactSets(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	snap := h.snapshots.Load()
	if snap == nil {
		respondNoSnapshot(w)
		return
	}

	type setInfo struct {
		Name    string   `json:"name"`
		Rows    int      `json:"rows"`
		Filters []string `json:"filters"`
	}
	names := factSetNames()
	sets := make([]setInfo, 0, len(names))
	for _, name := range names {
		filters := factSets[name].filters
		if filters == nil {
			filters = []string{}
		}
		sets = append(sets, setInfo{Name: name, Rows: snap.Metadata.Stats.Rows[name], Filters: filters})
	}
	respondData(w, r, sets, snap.Metadata.Generation, len(sets), start)
}

// Facts returns one page of the fact set named by the {set} path parameter.
func (h *Handler) Facts(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	name := chi.URLParam(r, "set")
	set, ok := factSets[name]
	if !ok {
		respondAPIError(w, http.StatusNotFound, &models.APIError{
			Code:    "UNKNOWN_FACT_SET",
			Message: "Unknown fact set",
			Details: map[string]interface{}{"set": sanitizeLogValue(name), "available": factSetNames()},
		}, nil)
		return
	}

	q, apiErr := parseFactsQuery(r)
	if apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr, nil)
		return
	}
	for _, f := range q.used() {
		if !set.supports(f) {
			respondAPIError(w, http.StatusBadRequest, &models.APIError{
				Code:    "FILTER_NOT_SUPPORTED",
				Message: "Fact set " + name + " cannot be filtered by " + f,
				Details: map[string]interface{}{"filters": set.filters},
			}, nil)
			return
		}
	}

	snap := h.snapshots.Load()
	if snap == nil {
		respondNoSnapshot(w)
		return
	}

	page := set.rows(snap, q)
	w.Header().Set("X-Total-Count", strconv.Itoa(page.total))
	respondData(w, r, page.rows, snap.Metadata.Generation, page.count, start)
}

// Runs returns the most recent pipeline runs, newest first.
func (h *Handler) Runs(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	limit, ok := getIntParam(r, "limit", defaultRunsLimit)
	if !ok || limit < 1 || limit > maxRunsLimit {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR",
			"limit must be an integer between 1 and "+strconv.Itoa(maxRunsLimit), nil)
		return
	}

	runs, err := h.runs.RecentRuns(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "QUERY_ERROR", "Failed to list pipeline runs", err)
		return
	}
	if runs == nil {
		runs = []models.PipelineRun{}
	}

	var generation int64
	if snap := h.snapshots.Load(); snap != nil {
		generation = snap.Metadata.Generation
	}
	respondData(w, r, runs, generation, len(runs), start)
}

func respondNoSnapshot(w http.ResponseWriter) {
	respondError(w, http.StatusServiceUnavailable, "NO_SNAPSHOT",
		"No snapshot has been published yet", nil)
}
