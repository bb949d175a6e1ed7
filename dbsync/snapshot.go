// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package dbsync

import (
	"strings"
)

// Row is one table row as fetched from a dataset: column name to value.
// Rows are treated as read-only snapshots; changes are always expressed as
// explicit insert/update instructions, never by mutating a Row in place.
type Row map[string]any

// RowKey is the canonical encoding of a row's primary-key tuple. It is the
// sole identity used to match rows across the sample and target datasets.
type RowKey string

// Snapshot is an in-memory keyed view of one table's rows at one instant.
// It is built fresh per table per dataset per reconciliation pass and
// discarded once the plan is computed.
type Snapshot map[RowKey]Row

// KeyForRow derives the primary-key tuple of a row in schema-declared order.
// Returns a MalformedRowError when the row lacks a declared key column.
func KeyForRow(schema *TableSchema, row Row) (RowKey, error) {
	var sb strings.Builder
	for i, col := range schema.PrimaryKey {
		v, ok := row[col]
		if !ok {
			return "", &MalformedRowError{Table: schema.Name, Column: col}
		}
		if i > 0 {
			sb.WriteByte(0x1f)
		}
		sb.WriteString(keyComponent(v))
	}
	return RowKey(sb.String()), nil
}

// BuildSnapshot converts an ordered sequence of fetched rows into a snapshot
// keyed by primary-key tuple. When two rows produce the same key the later
// row wins, matching the source iteration order of the fetch.
func BuildSnapshot(schema *TableSchema, rows []Row) (Snapshot, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	snap := make(Snapshot, len(rows))
	for _, row := range rows {
		key, err := KeyForRow(schema, row)
		if err != nil {
			return nil, err
		}
		snap[key] = row
	}
	return snap, nil
}
