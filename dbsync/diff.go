// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package dbsync

import (
	"sort"
)

// RowUpdate instructs the applier to set only the changed columns of one
// existing target row, identified by its primary-key values.
type RowUpdate struct {
	Key       RowKey
	KeyValues Row            // primary-key column -> value, for the WHERE clause
	Changes   map[string]any // column -> new value, only columns that differ
}

// TablePlan is the computed convergence plan for one table: rows to insert
// into the target plus column-level updates for rows present on both sides.
// The plan is set-like; Inserts and Updates are sorted by key only to keep
// logs and tests deterministic.
type TablePlan struct {
	Schema  *TableSchema
	Inserts []Row
	Updates []RowUpdate
}

// Empty reports whether the plan contains no work.
func (p *TablePlan) Empty() bool {
	return len(p.Inserts) == 0 && len(p.Updates) == 0
}

// DiffSnapshots computes the minimal plan converging target toward sample.
// Every key present in the sample snapshot is classified: absent from the
// target -> full-row insert; present -> column-by-column comparison under
// each column's semantic type, emitting an update only when at least one
// column differs. Keys present only in the target are never visited, which
// is why deletions are out of scope.
func DiffSnapshots(schema *TableSchema, sample, target Snapshot) *TablePlan {
	plan := &TablePlan{Schema: schema}

	insertKeys := make([]RowKey, 0)
	for key, sampleRow := range sample {
		targetRow, exists := target[key]
		if !exists {
			insertKeys = append(insertKeys, key)
			continue
		}

		changes := make(map[string]any)
		for _, col := range schema.Columns {
			sv := sampleRow[col.Name]
			tv := targetRow[col.Name]
			if !valuesEqual(col.Type, sv, tv) {
				changes[col.Name] = sv
			}
		}
		if len(changes) == 0 {
			continue
		}

		keyValues := make(Row, len(schema.PrimaryKey))
		for _, pk := range schema.PrimaryKey {
			keyValues[pk] = sampleRow[pk]
		}
		plan.Updates = append(plan.Updates, RowUpdate{
			Key:       key,
			KeyValues: keyValues,
			Changes:   changes,
		})
	}

	sort.Slice(insertKeys, func(i, j int) bool { return insertKeys[i] < insertKeys[j] })
	for _, key := range insertKeys {
		plan.Inserts = append(plan.Inserts, sample[key])
	}
	sort.Slice(plan.Updates, func(i, j int) bool { return plan.Updates[i].Key < plan.Updates[j].Key })

	return plan
}
