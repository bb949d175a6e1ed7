// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package dbsync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/mattn/go-sqlite3"
)

// SQLiteDataset exposes one SQLite database as a Dataset. Schema discovery
// uses sqlite_master plus PRAGMA table_info; the PRAGMA's pk column carries
// the 1-based position of each column inside the primary key, which gives us
// the declared key order.
type SQLiteDataset struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteDataset opens the SQLite database at path (":memory:" works).
// The connection pool is capped at one connection so in-memory databases
// keep a single coherent view.
func NewSQLiteDataset(ctx context.Context, path string, logger *slog.Logger) (*SQLiteDataset, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	return &SQLiteDataset{db: db, logger: logger}, nil
}

// Tables discovers every user table and its column/primary-key layout.
func (d *SQLiteDataset) Tables(ctx context.Context) (map[string]*TableSchema, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}

	tables := make(map[string]*TableSchema, len(names))
	for _, name := range names {
		schema, err := d.tableSchema(ctx, name)
		if err != nil {
			return nil, err
		}
		tables[name] = schema
	}

	d.logger.Debug("Discovered sqlite schema", "table_count", len(tables))
	return tables, nil
}

// tableSchema reads one table's layout via PRAGMA table_info.
func (d *SQLiteDataset) tableSchema(ctx context.Context, table string) (*TableSchema, error) {
	rows, err := d.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteSQLiteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("failed to get table info for %s: %w", table, err)
	}
	defer rows.Close()

	schema := &TableSchema{Name: table}
	type pkColumn struct {
		name string
		pos  int
	}
	var pkColumns []pkColumn

	for rows.Next() {
		var cid int
		var name, declaredType string
		var notNull, pk int
		var defaultValue sql.NullString

		if err := rows.Scan(&cid, &name, &declaredType, &notNull, &defaultValue, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column info: %w", err)
		}

		schema.Columns = append(schema.Columns, Column{
			Name: name,
			Type: columnTypeFromSQLite(declaredType),
		})
		if pk > 0 {
			pkColumns = append(pkColumns, pkColumn{name: name, pos: pk})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns: %w", err)
	}

	sort.Slice(pkColumns, func(i, j int) bool { return pkColumns[i].pos < pkColumns[j].pos })
	for _, pk := range pkColumns {
		schema.PrimaryKey = append(schema.PrimaryKey, pk.name)
	}

	return schema, nil
}

// FetchRows materializes the full current contents of one table. Text
// columns handed back as []byte by the driver are normalized to string, so
// they round-trip as TEXT instead of BLOB and compare cleanly against other
// backends.
func (d *SQLiteDataset) FetchRows(ctx context.Context, table string) ([]Row, error) {
	schema, err := d.tableSchema(ctx, table)
	if err != nil {
		return nil, err
	}

	rows, err := d.db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s", quoteSQLiteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rows from %s: %w", table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns from %s: %w", table, err)
	}

	var result []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row from %s: %w", table, err)
		}

		row := make(Row, len(cols))
		for i, col := range cols {
			value := values[i]
			if b, ok := value.([]byte); ok && schema.ColumnType(col) != TypeBlob {
				value = string(b)
			}
			row[col] = value
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows from %s: %w", table, err)
	}
	return result, nil
}

// Begin opens one transaction for one table's plan.
func (d *SQLiteDataset) Begin(ctx context.Context) (Session, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteSession{tx: tx}, nil
}

// Close releases the database handle.
func (d *SQLiteDataset) Close(_ context.Context) error {
	return d.db.Close()
}

type sqliteSession struct {
	tx *sql.Tx
}

func (s *sqliteSession) Insert(ctx context.Context, schema *TableSchema, row Row) error {
	var cols []string
	var placeholders []string
	var args []any
	for _, col := range schema.Columns {
		value, present := row[col.Name]
		if !present {
			continue
		}
		cols = append(cols, quoteSQLiteIdent(col.Name))
		placeholders = append(placeholders, "?")
		args = append(args, value)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteSQLiteIdent(schema.Name),
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "))

	if _, err := s.tx.ExecContext(ctx, query, args...); err != nil {
		return classifySQLiteWriteError(schema.Name, err)
	}
	return nil
}

func (s *sqliteSession) Update(ctx context.Context, schema *TableSchema, upd RowUpdate) error {
	var assignments []string
	var conditions []string
	var args []any

	// Iterate declared columns so the generated SQL is deterministic.
	for _, col := range schema.Columns {
		value, changed := upd.Changes[col.Name]
		if !changed {
			continue
		}
		assignments = append(assignments, quoteSQLiteIdent(col.Name)+" = ?")
		args = append(args, value)
	}
	for _, pk := range schema.PrimaryKey {
		conditions = append(conditions, quoteSQLiteIdent(pk)+" = ?")
		args = append(args, upd.KeyValues[pk])
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		quoteSQLiteIdent(schema.Name),
		strings.Join(assignments, ", "),
		strings.Join(conditions, " AND "))

	if _, err := s.tx.ExecContext(ctx, query, args...); err != nil {
		return classifySQLiteWriteError(schema.Name, err)
	}
	return nil
}

func (s *sqliteSession) Commit(_ context.Context) error {
	return s.tx.Commit()
}

func (s *sqliteSession) Rollback(_ context.Context) error {
	return s.tx.Rollback()
}

// classifySQLiteWriteError converts constraint violations into
// *WriteConflictError; anything else passes through wrapped.
func classifySQLiteWriteError(table string, err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return &WriteConflictError{Table: table, Err: err}
	}
	return fmt.Errorf("write to table %q failed: %w", table, err)
}

func quoteSQLiteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
