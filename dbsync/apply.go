// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package dbsync

import (
	"context"
	"fmt"
	"log/slog"
)

// AppliedCounts reports how many rows a table plan created and modified.
type AppliedCounts struct {
	Inserted int
	Updated  int
}

// ApplyPlan executes one table's plan against the target dataset inside a
// single transaction: all inserts, then all column-level updates, then one
// commit. Any write failure rolls the whole table back, so application is
// all-or-nothing per table. Constraint violations surface as
// *WriteConflictError from the session.
func ApplyPlan(ctx context.Context, target Dataset, plan *TablePlan, logger *slog.Logger) (AppliedCounts, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var counts AppliedCounts
	if plan.Empty() {
		return counts, nil
	}

	sess, err := target.Begin(ctx)
	if err != nil {
		return counts, fmt.Errorf("begin transaction for table %q: %w", plan.Schema.Name, err)
	}

	for _, row := range plan.Inserts {
		if err := sess.Insert(ctx, plan.Schema, row); err != nil {
			_ = sess.Rollback(ctx)
			return AppliedCounts{}, err
		}
		counts.Inserted++
	}

	for _, upd := range plan.Updates {
		if err := sess.Update(ctx, plan.Schema, upd); err != nil {
			_ = sess.Rollback(ctx)
			return AppliedCounts{}, err
		}
		counts.Updated++
	}

	if err := sess.Commit(ctx); err != nil {
		_ = sess.Rollback(ctx)
		return AppliedCounts{}, fmt.Errorf("commit table %q: %w", plan.Schema.Name, err)
	}

	logger.Debug("Applied table plan",
		"table", plan.Schema.Name,
		"inserted", counts.Inserted,
		"updated", counts.Updated)
	return counts, nil
}
