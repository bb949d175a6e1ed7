// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package dbsync

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
)

// Config holds the reconciliation options. It is created once at startup,
// read-only thereafter, and passed explicitly to the Synchronizer; there is
// no process-global connection or metadata state.
type Config struct {
	// Tables optionally restricts reconciliation to the named tables.
	// Empty means every table present in the sample dataset.
	Tables []string

	// DryRun computes and reports plans without opening a single write
	// transaction against the target.
	DryRun bool
}

// Synchronizer drives the full reconciliation: plan every common table, then
// apply each plan in its own transaction. Tables are independent; a failure
// in one never blocks or rolls back another.
type Synchronizer struct {
	cfg    Config
	sample Dataset
	target Dataset
	logger *slog.Logger
}

// NewSynchronizer creates a synchronizer bringing target into agreement with
// sample. The logger may be nil, in which case slog.Default() is used.
func NewSynchronizer(sample, target Dataset, cfg Config, logger *slog.Logger) *Synchronizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{cfg: cfg, sample: sample, target: target, logger: logger}
}

// Sync runs one reconciliation pass and returns the per-table report.
// A second run with no intervening sample changes produces empty plans:
// the pass is idempotent. Only run-level problems (schema discovery failing
// outright) are returned as an error; per-table problems land in the report.
func (s *Synchronizer) Sync(ctx context.Context) (*Report, error) {
	report := &Report{RunID: uuid.New(), DryRun: s.cfg.DryRun}
	logger := s.logger.With("run_id", report.RunID)

	planner := NewPlanner(s.sample, s.target, logger)
	plan, err := planner.PlanAll(ctx, s.cfg.Tables)
	if err != nil {
		return nil, err
	}

	for _, name := range plan.Skipped {
		report.Results = append(report.Results, TableResult{Table: name, State: StateSkipped})
	}
	for _, failure := range plan.Failures {
		report.Results = append(report.Results, TableResult{
			Table: failure.Table,
			State: StateFailed,
			Err:   failure.Err,
		})
	}

	for _, tablePlan := range plan.Tables {
		report.Results = append(report.Results, s.applyTable(ctx, logger, tablePlan))
	}

	total := report.TotalCounts()
	logger.Info("Reconciliation finished",
		"tables", len(plan.Tables),
		"skipped", len(plan.Skipped),
		"failed", countFailed(report.Results),
		"inserted", total.Inserted,
		"updated", total.Updated,
		"dry_run", s.cfg.DryRun)
	return report, nil
}

// applyTable applies one planned table, or records the plan when dry-running.
func (s *Synchronizer) applyTable(ctx context.Context, logger *slog.Logger, plan *TablePlan) TableResult {
	name := plan.Schema.Name
	planned := AppliedCounts{Inserted: len(plan.Inserts), Updated: len(plan.Updates)}

	if s.cfg.DryRun {
		logger.Info("Dry run, plan not applied",
			"table", name, "inserts", planned.Inserted, "updates", planned.Updated)
		return TableResult{Table: name, State: StatePlanned, Counts: planned}
	}

	counts, err := ApplyPlan(ctx, s.target, plan, logger)
	if err != nil {
		var conflict *WriteConflictError
		if errors.As(err, &conflict) {
			logger.Warn("Write conflict, table rolled back",
				"table", name, "constraint", conflict.Constraint, "error", conflict.Err)
		} else {
			logger.Warn("Apply failed, table rolled back", "table", name, "error", err)
		}
		return TableResult{Table: name, State: StateFailed, Err: err}
	}

	logger.Info("Table reconciled",
		"table", name, "inserted", counts.Inserted, "updated", counts.Updated)
	return TableResult{Table: name, State: StateApplied, Counts: counts}
}

func countFailed(results []TableResult) int {
	n := 0
	for _, res := range results {
		if res.State == StateFailed {
			n++
		}
	}
	return n
}
