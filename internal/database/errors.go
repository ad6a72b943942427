// Stride - Membership Retention and Cohort Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stride

package database

import (
	"database/sql"
	"errors"
	"fmt"
	"io"

	"github.com/tomtom215/stride/internal/logging"
)

// closeWithLog closes a resource and logs a failure without returning it.
func closeWithLog(closer io.Closer, resourceType string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		logging.Warn().Str("type", resourceType).Err(err).Msg("Failed to close resource")
	}
}

// closeQuietly closes a resource on an error path where the close error is
// not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}

// rollback aborts tx after a failure, logging a rollback error alongside the
// original one.
func rollback(tx *sql.Tx, cause error) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		logging.Error().
			Err(err).
			AnErr("original_error", cause).
			Msg("Transaction rollback failed")
	}
}

// errorContext prefixes err with the failed operation.
func errorContext(operation string, err error) error {
	return fmt.Errorf("%s: %w", operation, err)
}
