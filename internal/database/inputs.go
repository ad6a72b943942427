// Stride - Membership Retention and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stride

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tomtom215/stride/internal/metrics"
	"github.com/tomtom215/stride/internal/models"
)

// InsertUsers appends users in a single transaction.
func (db *DB) InsertUsers(ctx context.Context, users []models.User) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	return db.withTx(ctx, func(tx *sql.Tx) error {
		return insertRows(ctx, tx, TableUsers, []string{"user_id", "branch_id", "gender", "age"}, len(users), func(i int) []any {
			u := users[i]
			return []any{u.UserID, u.BranchID, nullString(u.Gender), nullInt(u.Age)}
		})
	})
}

// InsertSubscriptions appends subscription records in a single transaction.
func (db *DB) InsertSubscriptions(ctx context.Context, subs []models.Subscription) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	return db.withTx(ctx, func(tx *sql.Tx) error {
		return insertRows(ctx, tx, TableSubscriptions, []string{"user_id", "plan", "start_date", "end_date", "price"}, len(subs), func(i int) []any {
			s := subs[i]
			return []any{s.UserID, string(s.Plan), s.StartDate, nullTime(s.EndDate), s.Price}
		})
	})
}

// InsertActivityEvents appends activity events in a single transaction.
func (db *DB) InsertActivityEvents(ctx context.Context, events []models.ActivityEvent) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	return db.withTx(ctx, func(tx *sql.Tx) error {
		return insertRows(ctx, tx, TableActivityEvents, []string{"user_id", "event_date", "event_time", "category"}, len(events), func(i int) []any {
			ev := events[i]
			return []any{ev.UserID, ev.EventDate, nullString(ev.EventTime), nullString(ev.Category)}
		})
	})
}

// LoadInputs reads the three input streams. Rows come back in a stable
// order so runs over unchanged data are reproducible.
func (db *DB) LoadInputs(ctx context.Context) (*models.Inputs, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	users, err := db.loadUsers(ctx)
	if err != nil {
		return nil, errorContext("load users", err)
	}
	subs, err := db.loadSubscriptions(ctx)
	if err != nil {
		return nil, errorContext("load subscriptions", err)
	}
	events, err := db.loadActivityEvents(ctx)
	if err != nil {
		return nil, errorContext("load activity events", err)
	}
	return &models.Inputs{Users: users, Subscriptions: subs, Events: events}, nil
}

func (db *DB) loadUsers(ctx context.Context) (users []models.User, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("SELECT", TableUsers, time.Since(start), err) }()

	rows, err := db.conn.QueryContext(ctx, `SELECT user_id, branch_id, gender, age FROM users ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer closeWithLog(rows, "rows")

	for rows.Next() {
		var (
			u      models.User
			gender sql.NullString
			age    sql.NullInt64
		)
		if err = rows.Scan(&u.UserID, &u.BranchID, &gender, &age); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		u.Gender = gender.String
		u.Age = int(age.Int64)
		users = append(users, u)
	}
	return users, rows.Err()
}

func (db *DB) loadSubscriptions(ctx context.Context) (subs []models.Subscription, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("SELECT", TableSubscriptions, time.Since(start), err) }()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT user_id, plan, start_date, end_date, price
		FROM subscriptions
		ORDER BY user_id, start_date, plan`)
	if err != nil {
		return nil, err
	}
	defer closeWithLog(rows, "rows")

	for rows.Next() {
		var (
			s    models.Subscription
			plan string
			end  sql.NullTime
		)
		if err = rows.Scan(&s.UserID, &plan, &s.StartDate, &end, &s.Price); err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		s.Plan = models.Plan(plan)
		s.StartDate = s.StartDate.UTC()
		s.EndDate = timePtr(end)
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

func (db *DB) loadActivityEvents(ctx context.Context) (events []models.ActivityEvent, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("SELECT", TableActivityEvents, time.Since(start), err) }()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT user_id, event_date, event_time, category
		FROM activity_events
		ORDER BY user_id, event_date, event_time`)
	if err != nil {
		return nil, err
	}
	defer closeWithLog(rows, "rows")

	for rows.Next() {
		var (
			ev               models.ActivityEvent
			eventTime, categ sql.NullString
		)
		if err = rows.Scan(&ev.UserID, &ev.EventDate, &eventTime, &categ); err != nil {
			return nil, fmt.Errorf("failed to scan activity event: %w", err)
		}
		ev.EventDate = ev.EventDate.UTC()
		ev.EventTime = eventTime.String
		ev.Category = categ.String
		events = append(events, ev)
	}
	return events, rows.Err()
}
