// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ded2322/test-task/dbsync"
)

var (
	sampleDBURL  string
	sampleSQLite string
	targetDBURL  string
	targetSQLite string
	schemaName   string
	tables       string
	dryRun       bool
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "dbsync",
	Short: "Reconcile a target database against a sample database",
	Long: `dbsync brings a target database into agreement with a sample (reference)
database, table by table. For every table present in both datasets it inserts
the rows missing from the target and updates only the columns that differ.
Rows present only in the target are never deleted.`,
	RunE:          run,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Flags().StringVar(&sampleDBURL, "sample-db-url", "", "PostgreSQL connection string for the sample database (env SAMPLE_DB_URL)")
	rootCmd.Flags().StringVar(&sampleSQLite, "sample-sqlite", "", "SQLite file path for the sample database")
	rootCmd.Flags().StringVar(&targetDBURL, "target-db-url", "", "PostgreSQL connection string for the target database (env TARGET_DB_URL)")
	rootCmd.Flags().StringVar(&targetSQLite, "target-sqlite", "", "SQLite file path for the target database")
	rootCmd.Flags().StringVarP(&schemaName, "schema", "s", "public", "PostgreSQL schema name")
	rootCmd.Flags().StringVarP(&tables, "tables", "t", "", "Specific tables to reconcile (comma-separated, optional)")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Compute and report plans without writing to the target")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func run(cmd *cobra.Command, args []string) error {
	// Best effort; a missing .env file is fine.
	_ = godotenv.Load()

	if sampleDBURL == "" {
		sampleDBURL = os.Getenv("SAMPLE_DB_URL")
	}
	if targetDBURL == "" {
		targetDBURL = os.Getenv("TARGET_DB_URL")
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx := context.Background()

	sample, err := openDataset(ctx, "sample", sampleDBURL, sampleSQLite, logger)
	if err != nil {
		return err
	}
	defer closeDataset(ctx, sample, "sample", logger)

	target, err := openDataset(ctx, "target", targetDBURL, targetSQLite, logger)
	if err != nil {
		return err
	}
	defer closeDataset(ctx, target, "target", logger)

	cfg := dbsync.Config{DryRun: dryRun}
	if tables != "" {
		for _, t := range strings.Split(tables, ",") {
			if t = strings.TrimSpace(t); t != "" {
				cfg.Tables = append(cfg.Tables, t)
			}
		}
	}

	sync := dbsync.NewSynchronizer(sample, target, cfg, logger)
	report, err := sync.Sync(ctx)
	if err != nil {
		return fmt.Errorf("synchronization failed: %w", err)
	}

	fmt.Print(report.Summary())
	if report.HasFailures() {
		return fmt.Errorf("one or more tables failed to reconcile")
	}
	return nil
}

// openDataset resolves one side of the reconciliation to a concrete dataset.
// Exactly one of the postgres URL or the sqlite path must be set per side.
func openDataset(ctx context.Context, side, dbURL, sqlitePath string, logger *slog.Logger) (dbsync.Dataset, error) {
	switch {
	case dbURL != "" && sqlitePath != "":
		return nil, fmt.Errorf("%s: only one of --%s-db-url and --%s-sqlite can be specified", side, side, side)
	case sqlitePath != "":
		ds, err := dbsync.NewSQLiteDataset(ctx, sqlitePath, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s sqlite database: %w", side, err)
		}
		return ds, nil
	case dbURL != "":
		ds, err := dbsync.NewPostgresDataset(ctx, dbURL, schemaName, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to %s database: %w", side, err)
		}
		return ds, nil
	default:
		return nil, fmt.Errorf("%s: one of --%s-db-url or --%s-sqlite must be specified", side, side, side)
	}
}

func closeDataset(ctx context.Context, ds dbsync.Dataset, side string, logger *slog.Logger) {
	if err := ds.Close(ctx); err != nil {
		logger.Warn("Failed to close dataset", "side", side, "error", err)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
