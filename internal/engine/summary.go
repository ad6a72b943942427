// Stride - Membership Retention and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stride

package engine

import (
	"sort"

	"github.com/tomtom215/stride/internal/models"
)

// BuildCohortSummary joins engagement and LTV into one dense row per cohort
// partition and period. Periods without payments report zero revenue and
// carry the previous cumulative revenue forward.
func BuildCohortSummary(engagement []models.CohortEngagementFact, ltv []models.CohortLTVFact) []models.CohortPeriodSummary {
	type row struct {
		retained int
		events   int
	}
	rows := make(map[cohortPeriodKey]row, len(engagement))
	lastPeriod := make(map[cohortKey]int)
	for _, e := range engagement {
		ck := cohortKey{cohort: e.CohortMonth, branch: e.BranchID, plan: e.Plan}
		rows[cohortPeriodKey{cohortKey: ck, period: e.CohortPeriod}] = row{retained: e.ActiveUsers, events: e.TotalWorkouts}
		if p, ok := lastPeriod[ck]; !ok || e.CohortPeriod > p {
			lastPeriod[ck] = e.CohortPeriod
		}
	}

	payments := make(map[cohortPeriodKey]models.CohortLTVFact, len(ltv))
	for _, l := range ltv {
		ck := cohortKey{cohort: l.CohortMonth, branch: l.BranchID, plan: l.Plan}
		payments[cohortPeriodKey{cohortKey: ck, period: l.CohortPeriod}] = l
		if p, ok := lastPeriod[ck]; !ok || l.CohortPeriod > p {
			lastPeriod[ck] = l.CohortPeriod
		}
	}

	summary := make([]models.CohortPeriodSummary, 0, len(rows))
	for _, ck := range sortedCohortKeys(lastPeriod) {
		var cumulative float64
		for period := 0; period <= lastPeriod[ck]; period++ {
			k := cohortPeriodKey{cohortKey: ck, period: period}
			r := rows[k]
			var revenue float64
			if l, ok := payments[k]; ok {
				revenue = l.Revenue
				cumulative = l.CumulativeRevenue
			}
			summary = append(summary, models.CohortPeriodSummary{
				CohortMonth:               ck.cohort,
				BranchID:                  ck.branch,
				Plan:                      ck.plan,
				CohortPeriod:              period,
				RetainedUsers:             r.retained,
				TotalEvents:               r.events,
				Revenue:                   revenue,
				CumulativeRevenue:         cumulative,
				AvgRevenuePerRetainedUser: ratio(revenue, float64(r.retained), 1),
			})
		}
	}
	return summary
}

// BuildRetentionCurve aggregates the retention rate of every cohort partition
// by period: average, median, minimum and maximum across partitions that
// reach that period.
func BuildRetentionCurve(engagement []models.CohortEngagementFact) []models.RetentionPoint {
	byPeriod := make(map[int][]float64)
	maxPeriod := -1
	for _, e := range engagement {
		if e.InitialUsers == 0 {
			continue
		}
		rate := float64(e.ActiveUsers) / float64(e.InitialUsers) * 100
		byPeriod[e.CohortPeriod] = append(byPeriod[e.CohortPeriod], rate)
		if e.CohortPeriod > maxPeriod {
			maxPeriod = e.CohortPeriod
		}
	}

	curve := make([]models.RetentionPoint, 0, maxPeriod+1)
	for period := 0; period <= maxPeriod; period++ {
		rates := byPeriod[period]
		if len(rates) == 0 {
			continue
		}
		curve = append(curve, models.RetentionPoint{
			CohortPeriod:     period,
			AverageRetention: round2(average(rates)),
			MedianRetention:  round2(median(rates)),
			MinRetention:     round2(minFloat(rates)),
			MaxRetention:     round2(maxFloat(rates)),
			CohortsWithData:  len(rates),
		})
	}
	return curve
}

func average(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func minFloat(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	result := vals[0]
	for _, v := range vals[1:] {
		if v < result {
			result = v
		}
	}
	return result
}

func maxFloat(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	result := vals[0]
	for _, v := range vals[1:] {
		if v > result {
			result = v
		}
	}
	return result
}
