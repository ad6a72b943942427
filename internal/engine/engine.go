// Stride - Membership Retention and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stride

package engine

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/stride/internal/logging"
	"github.com/tomtom215/stride/internal/metrics"
	"github.com/tomtom215/stride/internal/models"
)

// Stage names used in logs and the stage duration histogram.
const (
	StageConsolidate    = "consolidate"
	StageCalendar       = "calendar"
	StageCohorts        = "cohorts"
	StageMembershipFact = "membership_facts"
	StageActivityFact   = "activity_facts"
	StageRetention      = "retention"
	StageChurn          = "churn"
	StageEngagement     = "engagement"
	StageLTV            = "ltv"
	StageSummary        = "summary"
)

// Config controls an Engine.
type Config struct {
	// Horizon is the snapshot date. Open memberships extend to it and
	// memberships ending after it are treated as open. Zero means today (UTC).
	Horizon time.Time

	// Parallelism bounds concurrent partition work. Zero means NumCPU.
	Parallelism int
}

// Engine turns validated inputs into a complete snapshot. It holds no state
// between runs and is safe for concurrent use.
type Engine struct {
	horizon     time.Time
	parallelism int
	now         func() time.Time
}

// New creates an Engine.
func New(cfg Config) *Engine {
	p := cfg.Parallelism
	if p <= 0 {
		p = runtime.NumCPU()
	}
	return &Engine{
		horizon:     cfg.Horizon,
		parallelism: p,
		now:         time.Now,
	}
}

// Horizon returns the snapshot date a run would use.
func (e *Engine) Horizon() time.Time {
	if e.horizon.IsZero() {
		return DateTrunc(e.now().UTC())
	}
	return DateTrunc(e.horizon)
}

// CohortFacts groups the cohort-period fact sets.
type CohortFacts struct {
	Retention  *RetentionResult
	Churn      []models.CohortChurnFact
	Engagement []models.CohortEngagementFact
	LTV        *LTVResult
}

// Run executes every stage over in and returns the snapshot. Metadata RunID
// and Generation are left for the publisher to fill. On any error no
// snapshot is returned.
func (e *Engine) Run(ctx context.Context, in *models.Inputs) (*models.Snapshot, error) {
	start := time.Now()
	horizon := e.Horizon()
	log := logging.Ctx(ctx)

	if err := CheckIntegrity(in); err != nil {
		return nil, err
	}

	var intervals []models.MembershipInterval
	if err := e.stage(ctx, StageConsolidate, func() (int, error) {
		var err error
		intervals, err = ConsolidateMemberships(in.Subscriptions, horizon)
		return len(intervals), err
	}); err != nil {
		return nil, err
	}

	var calendar []models.CalendarMonth
	if err := e.stage(ctx, StageCalendar, func() (int, error) {
		var err error
		calendar, err = BuildCalendar(intervals, horizon)
		return len(calendar), err
	}); err != nil {
		return nil, err
	}

	var cohorts []models.CohortAssignment
	if err := e.stage(ctx, StageCohorts, func() (int, error) {
		var err error
		cohorts, err = AssignCohorts(intervals, in.Users)
		return len(cohorts), err
	}); err != nil {
		return nil, err
	}

	var (
		membershipFacts []models.MonthlyMembershipFact
		activity        *ActivityFactsResult
		cohortFacts     *CohortFacts
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := e.stage(gctx, StageMembershipFact, func() (int, error) {
			var err error
			membershipFacts, err = BuildMembershipFacts(calendar, intervals, in.Users)
			return len(membershipFacts), err
		}); err != nil {
			return err
		}
		return e.stage(gctx, StageActivityFact, func() (int, error) {
			var err error
			activity, err = BuildActivityFacts(calendar, intervals, in.Users, in.Events, membershipFacts)
			if err != nil {
				return 0, err
			}
			return len(activity.Facts), nil
		})
	})
	g.Go(func() error {
		var err error
		cohortFacts, err = e.BuildCohortFacts(gctx, calendar, intervals, cohorts, in)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var (
		summary []models.CohortPeriodSummary
		curve   []models.RetentionPoint
	)
	if err := e.stage(ctx, StageSummary, func() (int, error) {
		summary = BuildCohortSummary(cohortFacts.Engagement, cohortFacts.LTV.Facts)
		curve = BuildRetentionCurve(cohortFacts.Engagement)
		return len(summary), nil
	}); err != nil {
		return nil, err
	}

	snap := &models.Snapshot{
		Calendar:        calendar,
		Memberships:     intervals,
		Cohorts:         cohorts,
		MembershipFacts: membershipFacts,
		ActivityFacts:   activity.Facts,
		Retention:       cohortFacts.Retention.Records,
		Churn:           cohortFacts.Churn,
		Engagement:      cohortFacts.Engagement,
		LTV:             cohortFacts.LTV.Facts,
		CohortSummary:   summary,
		RetentionCurve:  curve,
	}
	snap.Metadata = models.SnapshotMetadata{
		SnapshotHorizon: horizon,
		GeneratedAt:     e.now().UTC(),
		ComputeTimeMs:   time.Since(start).Milliseconds(),
		Stats: models.RunStats{
			Users:                   len(in.Users),
			Subscriptions:           len(in.Subscriptions),
			Events:                  len(in.Events),
			EventsOutsideCalendar:   activity.EventsOutsideCalendar,
			UsersWithoutCohort:      cohortFacts.Retention.UsersWithoutCohort,
			NegativePeriodsExcluded: cohortFacts.Retention.NegativePeriods + cohortFacts.LTV.NegativePeriods,
			Rows:                    snap.RowCounts(),
		},
	}

	if n := snap.Metadata.Stats.UsersWithoutCohort; n > 0 {
		log.Warn().Int("users", n).Msg("Activity from users without a membership excluded from cohort facts")
	}
	if n := snap.Metadata.Stats.EventsOutsideCalendar; n > 0 {
		log.Warn().Int("events", n).Msg("Events outside the calendar range excluded from monthly facts")
	}

	return snap, nil
}

// BuildCohortFacts computes retention then engagement, alongside churn and
// LTV, for already consolidated memberships and assigned cohorts.
func (e *Engine) BuildCohortFacts(
	ctx context.Context,
	calendar []models.CalendarMonth,
	intervals []models.MembershipInterval,
	cohorts []models.CohortAssignment,
	in *models.Inputs,
) (*CohortFacts, error) {
	facts := &CohortFacts{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := e.stage(gctx, StageRetention, func() (int, error) {
			var err error
			facts.Retention, err = BuildRetention(calendar, cohorts, in.Users, in.Events)
			if err != nil {
				return 0, err
			}
			return len(facts.Retention.Records), nil
		}); err != nil {
			return err
		}
		return e.stage(gctx, StageEngagement, func() (int, error) {
			facts.Engagement = BuildEngagement(calendar, cohorts, facts.Retention.Records)
			return len(facts.Engagement), nil
		})
	})
	g.Go(func() error {
		return e.stage(gctx, StageChurn, func() (int, error) {
			var err error
			facts.Churn, err = BuildChurn(calendar, intervals, cohorts)
			return len(facts.Churn), err
		})
	})
	g.Go(func() error {
		return e.stage(gctx, StageLTV, func() (int, error) {
			var err error
			facts.LTV, err = BuildLTV(gctx, in.Subscriptions, cohorts, e.parallelism)
			if err != nil {
				return 0, err
			}
			return len(facts.LTV.Facts), nil
		})
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return facts, nil
}

// stage times fn, logs its row count and aborts early on cancellation.
func (e *Engine) stage(ctx context.Context, name string, fn func() (int, error)) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("stage %s: %w", name, err)
	}
	start := time.Now()
	rows, err := fn()
	elapsed := time.Since(start)
	metrics.RecordStage(name, elapsed)
	if err != nil {
		logging.Ctx(ctx).Debug().Err(err).Str("stage", name).Msg("Stage failed")
		return err
	}
	logging.Ctx(ctx).Debug().
		Str("stage", name).
		Int("rows", rows).
		Dur("duration", elapsed).
		Msg("Stage complete")
	return nil
}
