// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package dbsync

import (
	"errors"
	"fmt"
)

// ErrNoPrimaryKey is returned when a table declares zero primary-key columns.
// Such tables cannot be reconciled: every row would collapse onto the same
// empty key, so we reject the configuration up front instead of silently
// corrupting the snapshot.
var ErrNoPrimaryKey = errors.New("table has no primary key columns")

// MalformedRowError reports a fetched row that is missing a declared column.
// It aborts reconciliation of the affected table only; sibling tables proceed.
type MalformedRowError struct {
	Table  string
	Column string
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("malformed row in table %q: missing column %q", e.Table, e.Column)
}

// WriteConflictError reports a target write rejected by a database constraint
// (unique key, foreign key, NOT NULL, CHECK). The affected table's transaction
// is rolled back as a whole; other tables keep their independent commits.
type WriteConflictError struct {
	Table      string
	Constraint string
	Err        error
}

func (e *WriteConflictError) Error() string {
	if e.Constraint != "" {
		return fmt.Sprintf("write conflict on table %q (constraint %s): %v", e.Table, e.Constraint, e.Err)
	}
	return fmt.Sprintf("write conflict on table %q: %v", e.Table, e.Err)
}

func (e *WriteConflictError) Unwrap() error {
	return e.Err
}
