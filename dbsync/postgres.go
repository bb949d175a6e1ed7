// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package dbsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresDataset exposes one PostgreSQL database as a Dataset. Schema
// discovery reads information_schema; writes go through one pgx transaction
// per reconciled table.
type PostgresDataset struct {
	pool       *pgxpool.Pool
	schemaName string
	logger     *slog.Logger
}

// NewPostgresDataset connects to the given database URL. schemaName selects
// the namespace to reconcile; empty means "public".
func NewPostgresDataset(ctx context.Context, url, schemaName string, logger *slog.Logger) (*PostgresDataset, error) {
	if schemaName == "" {
		schemaName = "public"
	}
	if logger == nil {
		logger = slog.Default()
	}

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresDataset{pool: pool, schemaName: schemaName, logger: logger}, nil
}

// Tables discovers every base table in the configured schema along with its
// ordered column list and ordered primary-key columns.
func (d *PostgresDataset) Tables(ctx context.Context) (map[string]*TableSchema, error) {
	const columnsQuery = `
		SELECT c.table_name, c.column_name, lower(c.udt_name)
		FROM information_schema.columns c
		JOIN information_schema.tables t
			ON t.table_schema = c.table_schema
			AND t.table_name = c.table_name
		WHERE c.table_schema = @schema_name
		  AND t.table_type = 'BASE TABLE'
		ORDER BY c.table_name, c.ordinal_position`

	rows, err := d.pool.Query(ctx, columnsQuery, pgx.NamedArgs{"schema_name": d.schemaName})
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	defer rows.Close()

	tables := make(map[string]*TableSchema)
	for rows.Next() {
		var tableName, columnName, udtName string
		if err := rows.Scan(&tableName, &columnName, &udtName); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		schema := tables[tableName]
		if schema == nil {
			schema = &TableSchema{Name: tableName}
			tables[tableName] = schema
		}
		schema.Columns = append(schema.Columns, Column{
			Name: columnName,
			Type: columnTypeFromPostgres(udtName),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns: %w", err)
	}

	const pkQuery = `
		SELECT tc.table_name, kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON kcu.constraint_name = tc.constraint_name
			AND kcu.constraint_schema = tc.constraint_schema
		WHERE tc.constraint_type = 'PRIMARY KEY'
		  AND tc.table_schema = @schema_name
		ORDER BY tc.table_name, kcu.ordinal_position`

	pkRows, err := d.pool.Query(ctx, pkQuery, pgx.NamedArgs{"schema_name": d.schemaName})
	if err != nil {
		return nil, fmt.Errorf("failed to query primary keys: %w", err)
	}
	defer pkRows.Close()

	for pkRows.Next() {
		var tableName, columnName string
		if err := pkRows.Scan(&tableName, &columnName); err != nil {
			return nil, fmt.Errorf("failed to scan primary key column: %w", err)
		}
		if schema, exists := tables[tableName]; exists {
			schema.PrimaryKey = append(schema.PrimaryKey, columnName)
		}
	}
	if err := pkRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating primary keys: %w", err)
	}

	d.logger.Debug("Discovered postgres schema", "schema", d.schemaName, "table_count", len(tables))
	return tables, nil
}

// FetchRows materializes the full current contents of one table.
func (d *PostgresDataset) FetchRows(ctx context.Context, table string) ([]Row, error) {
	query := fmt.Sprintf("SELECT * FROM %s.%s",
		pgx.Identifier{d.schemaName}.Sanitize(),
		pgx.Identifier{table}.Sanitize())

	rows, err := d.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rows from %s: %w", table, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var result []Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row values from %s: %w", table, err)
		}
		row := make(Row, len(fields))
		for i, field := range fields {
			row[field.Name] = values[i]
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows from %s: %w", table, err)
	}
	return result, nil
}

// Begin opens one transaction for one table's plan.
func (d *PostgresDataset) Begin(ctx context.Context) (Session, error) {
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &postgresSession{tx: tx, schemaName: d.schemaName}, nil
}

// Close releases the connection pool.
func (d *PostgresDataset) Close(_ context.Context) error {
	d.pool.Close()
	return nil
}

type postgresSession struct {
	tx         pgx.Tx
	schemaName string
}

func (s *postgresSession) Insert(ctx context.Context, schema *TableSchema, row Row) error {
	var cols []string
	var placeholders []string
	args := pgx.NamedArgs{}
	for _, col := range schema.Columns {
		value, present := row[col.Name]
		if !present {
			continue
		}
		cols = append(cols, pgx.Identifier{col.Name}.Sanitize())
		placeholders = append(placeholders, "@"+col.Name)
		args[col.Name] = value
	}

	query := fmt.Sprintf("INSERT INTO %s.%s (%s) VALUES (%s)",
		pgx.Identifier{s.schemaName}.Sanitize(),
		pgx.Identifier{schema.Name}.Sanitize(),
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "))

	if _, err := s.tx.Exec(ctx, query, args); err != nil {
		return classifyPostgresWriteError(schema.Name, err)
	}
	return nil
}

func (s *postgresSession) Update(ctx context.Context, schema *TableSchema, upd RowUpdate) error {
	var assignments []string
	var conditions []string
	args := pgx.NamedArgs{}

	// Iterate declared columns so the generated SQL is deterministic.
	for _, col := range schema.Columns {
		value, changed := upd.Changes[col.Name]
		if !changed {
			continue
		}
		assignments = append(assignments,
			fmt.Sprintf("%s = @set_%s", pgx.Identifier{col.Name}.Sanitize(), col.Name))
		args["set_"+col.Name] = value
	}
	for _, pk := range schema.PrimaryKey {
		conditions = append(conditions,
			fmt.Sprintf("%s = @key_%s", pgx.Identifier{pk}.Sanitize(), pk))
		args["key_"+pk] = upd.KeyValues[pk]
	}

	query := fmt.Sprintf("UPDATE %s.%s SET %s WHERE %s",
		pgx.Identifier{s.schemaName}.Sanitize(),
		pgx.Identifier{schema.Name}.Sanitize(),
		strings.Join(assignments, ", "),
		strings.Join(conditions, " AND "))

	if _, err := s.tx.Exec(ctx, query, args); err != nil {
		return classifyPostgresWriteError(schema.Name, err)
	}
	return nil
}

func (s *postgresSession) Commit(ctx context.Context) error {
	return s.tx.Commit(ctx)
}

func (s *postgresSession) Rollback(ctx context.Context) error {
	return s.tx.Rollback(ctx)
}

// classifyPostgresWriteError converts SQLSTATE class 23 (integrity constraint
// violation) into *WriteConflictError; anything else passes through wrapped.
func classifyPostgresWriteError(table string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.SQLState(), "23") {
		return &WriteConflictError{Table: table, Constraint: pgErr.ConstraintName, Err: err}
	}
	return fmt.Errorf("write to table %q failed: %w", table, err)
}
