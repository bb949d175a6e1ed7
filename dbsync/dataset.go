// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package dbsync

import (
	"context"
)

// Dataset is the narrow contract the reconciler needs from a database: schema
// discovery, full-table row fetch, and transaction control. The core never
// reimplements these; it consumes them.
type Dataset interface {
	// Tables returns the discovered table schemas keyed by table name,
	// including each table's ordered primary-key column list.
	Tables(ctx context.Context) (map[string]*TableSchema, error)

	// FetchRows returns the full current row collection for one table as an
	// already-materialized sequence.
	FetchRows(ctx context.Context, table string) ([]Row, error)

	// Begin opens one transaction. The reconciler opens exactly one per
	// table it applies, commits it on success and rolls it back on failure.
	Begin(ctx context.Context) (Session, error)

	// Close releases the underlying connection resources.
	Close(ctx context.Context) error
}

// Session is one open transaction against a dataset. Insert and Update
// report constraint violations as *WriteConflictError so the caller can
// roll back the affected table and continue with its siblings.
type Session interface {
	Insert(ctx context.Context, schema *TableSchema, row Row) error
	Update(ctx context.Context, schema *TableSchema, upd RowUpdate) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
