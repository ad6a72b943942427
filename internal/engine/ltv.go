// Stride - Membership Retention and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stride

package engine

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/stride/internal/models"
)

// LTVResult carries lifetime value facts and the payment months dropped for
// preceding the payer's cohort.
type LTVResult struct {
	Facts           []models.CohortLTVFact
	NegativePeriods int
}

type ltvAgg struct {
	revenue float64
	users   map[string]struct{}
}

// BuildLTV attributes each subscription record's price to the month of its
// start date, groups payments by cohort partition and period, and accumulates
// revenue within each partition in period order. Partitions are accumulated
// concurrently, bounded by parallelism.
func BuildLTV(ctx context.Context, records []models.Subscription, cohorts []models.CohortAssignment, parallelism int) (*LTVResult, error) {
	cidx := indexCohorts(cohorts)
	result := &LTVResult{}

	type payment struct {
		userID string
		month  time.Time
	}
	payments := make(map[payment]float64)
	for _, rec := range records {
		payments[payment{userID: rec.UserID, month: MonthTrunc(rec.StartDate)}] += rec.Price
	}

	partitions := make(map[cohortKey]map[int]*ltvAgg)
	for p, amount := range payments {
		c, ok := cidx[p.userID]
		if !ok {
			return nil, &IntegrityError{Rule: RuleMembershipUser, Record: "cohort for user_id=" + p.userID}
		}
		period := CohortPeriod(p.month, c.CohortMonth)
		if period < 0 {
			result.NegativePeriods++
			continue
		}
		ck := keyOf(c)
		periods, ok := partitions[ck]
		if !ok {
			periods = make(map[int]*ltvAgg)
			partitions[ck] = periods
		}
		a, ok := periods[period]
		if !ok {
			a = &ltvAgg{users: make(map[string]struct{})}
			periods[period] = a
		}
		a.revenue += amount
		a.users[p.userID] = struct{}{}
	}

	keys := sortedCohortKeys(partitions)
	out := make([][]models.CohortLTVFact, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	if parallelism > 0 {
		g.SetLimit(parallelism)
	}
	for i, ck := range keys {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = accumulatePartition(ck, partitions[ck])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, facts := range out {
		result.Facts = append(result.Facts, facts...)
	}
	return result, nil
}

// accumulatePartition emits one row per paid period of a cohort partition
// with a running revenue total.
func accumulatePartition(ck cohortKey, periods map[int]*ltvAgg) []models.CohortLTVFact {
	order := make([]int, 0, len(periods))
	for p := range periods {
		order = append(order, p)
	}
	sort.Ints(order)

	facts := make([]models.CohortLTVFact, 0, len(order))
	var running float64
	for _, p := range order {
		a := periods[p]
		running += a.revenue
		facts = append(facts, models.CohortLTVFact{
			CohortMonth:       ck.cohort,
			BranchID:          ck.branch,
			Plan:              ck.plan,
			CohortPeriod:      p,
			Revenue:           round2(a.revenue),
			PayingUsers:       len(a.users),
			CumulativeRevenue: round2(running),
			AvgRevenuePerUser: ratio(a.revenue, float64(len(a.users)), 1),
		})
	}
	return facts
}
