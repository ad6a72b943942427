// Stride - Membership Retention and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stride

package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/stride/internal/metrics"
)

// insertRows prepares an INSERT for columns of table inside tx and executes
// it once per row. args returns the values of row i in column order.
func insertRows(ctx context.Context, tx *sql.Tx, table string, columns []string, n int, args func(i int) []any) error {
	if n == 0 {
		return nil
	}
	start := time.Now()

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ", "), placeholders)

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		metrics.RecordDBQuery("INSERT", table, time.Since(start), err)
		return fmt.Errorf("failed to prepare insert into %s: %w", table, err)
	}
	defer closeWithLog(stmt, "prepared statement")

	for i := 0; i < n; i++ {
		if _, err = stmt.ExecContext(ctx, args(i)...); err != nil {
			metrics.RecordDBQuery("INSERT", table, time.Since(start), err)
			return fmt.Errorf("failed to insert row %d into %s: %w", i, table, err)
		}
	}
	metrics.RecordDBQuery("INSERT", table, time.Since(start), nil)
	return nil
}

// withTx runs fn in a transaction, committing on success and rolling back on
// any error.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		rollback(tx, err)
		return err
	}
	if err := tx.Commit(); err != nil {
		rollback(tx, err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

func floatPtr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	v := nf.Float64
	return &v
}
