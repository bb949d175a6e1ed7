// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package dbsync

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
)

// TableFailure records a table whose planning or apply step failed. Failures
// are table-scoped: one table failing never blocks or corrupts another.
type TableFailure struct {
	Table string
	Err   error
}

// SyncPlan is the outcome of one planning pass across both datasets: one
// plan per table present on both sides, the sample-only tables that were
// skipped, and per-table planning failures.
type SyncPlan struct {
	Tables   []*TablePlan
	Skipped  []string
	Failures []TableFailure
}

// Planner computes per-table convergence plans without mutating any data,
// which is what makes dry runs possible.
type Planner struct {
	sample Dataset
	target Dataset
	logger *slog.Logger
}

// NewPlanner creates a planner over a sample (reference) and target dataset.
func NewPlanner(sample, target Dataset, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{sample: sample, target: target, logger: logger}
}

// PlanAll iterates every table of the sample dataset in name order. Tables
// absent from the target are recorded as skipped, never as errors. For each
// common table it snapshots both sides and diffs them into a TablePlan.
// The optional filter restricts planning to the named tables.
func (p *Planner) PlanAll(ctx context.Context, filter []string) (*SyncPlan, error) {
	sampleTables, err := p.sample.Tables(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover sample schema: %w", err)
	}
	targetTables, err := p.target.Tables(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover target schema: %w", err)
	}

	names := make([]string, 0, len(sampleTables))
	for name := range sampleTables {
		if len(filter) > 0 && !containsName(filter, name) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	plan := &SyncPlan{}
	for _, name := range names {
		if _, exists := targetTables[name]; !exists {
			p.logger.Info("Table absent on target, skipping", "table", name)
			plan.Skipped = append(plan.Skipped, name)
			continue
		}

		tablePlan, err := p.planTable(ctx, sampleTables[name])
		if err != nil {
			p.logger.Warn("Planning failed for table", "table", name, "error", err)
			plan.Failures = append(plan.Failures, TableFailure{Table: name, Err: err})
			continue
		}
		plan.Tables = append(plan.Tables, tablePlan)
	}

	return plan, nil
}

// planTable builds both snapshots for one table and diffs them. Column sets
// are assumed identical between same-named tables; the sample schema is
// authoritative for the comparison.
func (p *Planner) planTable(ctx context.Context, schema *TableSchema) (*TablePlan, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}

	sampleRows, err := p.sample.FetchRows(ctx, schema.Name)
	if err != nil {
		return nil, fmt.Errorf("fetch sample rows: %w", err)
	}
	targetRows, err := p.target.FetchRows(ctx, schema.Name)
	if err != nil {
		return nil, fmt.Errorf("fetch target rows: %w", err)
	}

	sampleSnap, err := BuildSnapshot(schema, sampleRows)
	if err != nil {
		return nil, err
	}
	targetSnap, err := BuildSnapshot(schema, targetRows)
	if err != nil {
		return nil, err
	}

	tablePlan := DiffSnapshots(schema, sampleSnap, targetSnap)
	p.logger.Debug("Planned table",
		"table", schema.Name,
		"sample_rows", len(sampleSnap),
		"target_rows", len(targetSnap),
		"inserts", len(tablePlan.Inserts),
		"updates", len(tablePlan.Updates))
	return tablePlan, nil
}

func containsName(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
