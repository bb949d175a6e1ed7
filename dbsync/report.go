// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package dbsync

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// TableState tracks one table through the reconciliation state machine:
// Pending -> Snapshotted -> Planned -> Applied | Skipped | Failed.
// Skipped is reached directly from Pending when the table is absent on the
// target; Failed is terminal for that table only.
type TableState string

const (
	StatePending     TableState = "pending"
	StateSnapshotted TableState = "snapshotted"
	StatePlanned     TableState = "planned"
	StateApplied     TableState = "applied"
	StateSkipped     TableState = "skipped"
	StateFailed      TableState = "failed"
)

// TableResult is the final outcome for one table.
type TableResult struct {
	Table  string
	State  TableState
	Counts AppliedCounts
	Err    error
}

// Report summarizes one reconciliation run for the operator: per table,
// applied with counts, skipped, or failed with reason.
type Report struct {
	RunID   uuid.UUID
	DryRun  bool
	Results []TableResult
}

// HasFailures reports whether any table ended in StateFailed.
func (r *Report) HasFailures() bool {
	for _, res := range r.Results {
		if res.State == StateFailed {
			return true
		}
	}
	return false
}

// Skipped returns the names of tables absent on the target.
func (r *Report) Skipped() []string {
	var names []string
	for _, res := range r.Results {
		if res.State == StateSkipped {
			names = append(names, res.Table)
		}
	}
	return names
}

// TotalCounts sums applied counts across all tables.
func (r *Report) TotalCounts() AppliedCounts {
	var total AppliedCounts
	for _, res := range r.Results {
		total.Inserted += res.Counts.Inserted
		total.Updated += res.Counts.Updated
	}
	return total
}

// Summary renders the per-table outcome list as a human-readable block.
func (r *Report) Summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "sync run %s", r.RunID)
	if r.DryRun {
		sb.WriteString(" (dry run)")
	}
	sb.WriteByte('\n')
	for _, res := range r.Results {
		switch res.State {
		case StateApplied:
			fmt.Fprintf(&sb, "  %s: applied (%d inserted, %d updated)\n",
				res.Table, res.Counts.Inserted, res.Counts.Updated)
		case StatePlanned:
			fmt.Fprintf(&sb, "  %s: planned (%d inserts, %d updates)\n",
				res.Table, res.Counts.Inserted, res.Counts.Updated)
		case StateSkipped:
			fmt.Fprintf(&sb, "  %s: skipped (absent on target)\n", res.Table)
		case StateFailed:
			fmt.Fprintf(&sb, "  %s: failed (%v)\n", res.Table, res.Err)
		default:
			fmt.Fprintf(&sb, "  %s: %s\n", res.Table, res.State)
		}
	}
	return sb.String()
}
