// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package dbsync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestSQLiteDataset(t *testing.T) *SQLiteDataset {
	t.Helper()
	ds, err := NewSQLiteDataset(context.Background(), ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ds.Close(context.Background()) })
	return ds
}

// textOf reads a text column value regardless of whether the driver handed
// back string or []byte.
func textOf(v any) string {
	s, _ := asString(v)
	return s
}

func execAll(t *testing.T, ds *SQLiteDataset, stmts ...string) {
	t.Helper()
	for _, stmt := range stmts {
		_, err := ds.db.Exec(stmt)
		require.NoError(t, err, "statement: %s", stmt)
	}
}

func TestSQLiteDataset_Tables(t *testing.T) {
	ds := newTestSQLiteDataset(t)
	execAll(t, ds,
		`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL, email TEXT)`,
		`CREATE TABLE memberships (org_id INTEGER, user_id INTEGER, role TEXT, PRIMARY KEY (org_id, user_id))`,
	)

	tables, err := ds.Tables(context.Background())
	require.NoError(t, err)
	require.Len(t, tables, 2)

	users := tables["users"]
	require.NotNil(t, users)
	require.Equal(t, []string{"id"}, users.PrimaryKey)
	require.Equal(t, []string{"id", "name", "email"}, users.ColumnNames())
	require.Equal(t, TypeInteger, users.ColumnType("id"))
	require.Equal(t, TypeText, users.ColumnType("email"))

	memberships := tables["memberships"]
	require.NotNil(t, memberships)
	require.Equal(t, []string{"org_id", "user_id"}, memberships.PrimaryKey)
}

func TestSQLiteDataset_TableWithoutPrimaryKey(t *testing.T) {
	ds := newTestSQLiteDataset(t)
	execAll(t, ds, `CREATE TABLE log_lines (line TEXT)`)

	tables, err := ds.Tables(context.Background())
	require.NoError(t, err)
	require.Empty(t, tables["log_lines"].PrimaryKey)
	require.ErrorIs(t, tables["log_lines"].Validate(), ErrNoPrimaryKey)
}

func TestSQLiteDataset_FetchRows(t *testing.T) {
	ds := newTestSQLiteDataset(t)
	execAll(t, ds,
		`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, email TEXT)`,
		`INSERT INTO users VALUES (1, 'Alice', 'a@x.com'), (2, 'Bob', NULL)`,
	)

	rows, err := ds.FetchRows(context.Background(), "users")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byID := map[int64]Row{}
	for _, row := range rows {
		id, ok := asInt64(row["id"])
		require.True(t, ok)
		byID[id] = row
	}
	require.Equal(t, "Alice", textOf(byID[1]["name"]))
	require.Nil(t, byID[2]["email"])
}

func TestSQLiteSession_InsertAndUpdate(t *testing.T) {
	ds := newTestSQLiteDataset(t)
	execAll(t, ds,
		`CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT, email TEXT)`,
		`INSERT INTO users VALUES (1, 'Alice', 'old@x.com')`,
	)

	tables, err := ds.Tables(context.Background())
	require.NoError(t, err)
	schema := tables["users"]

	ctx := context.Background()
	sess, err := ds.Begin(ctx)
	require.NoError(t, err)

	require.NoError(t, sess.Insert(ctx, schema, Row{"id": int64(3), "name": "Carol", "email": "c@x.com"}))
	require.NoError(t, sess.Update(ctx, schema, RowUpdate{
		KeyValues: Row{"id": int64(1)},
		Changes:   map[string]any{"email": "a@x.com"},
	}))
	require.NoError(t, sess.Commit(ctx))

	rows, err := ds.FetchRows(ctx, "users")
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

func TestSQLiteSession_ConstraintViolationIsWriteConflict(t *testing.T) {
	ds := newTestSQLiteDataset(t)
	execAll(t, ds,
		`CREATE TABLE users (id INTEGER PRIMARY KEY, email TEXT UNIQUE)`,
		`INSERT INTO users VALUES (1, 'a@x.com')`,
	)

	tables, err := ds.Tables(context.Background())
	require.NoError(t, err)
	schema := tables["users"]

	ctx := context.Background()
	sess, err := ds.Begin(ctx)
	require.NoError(t, err)
	defer func() { _ = sess.Rollback(ctx) }()

	err = sess.Insert(ctx, schema, Row{"id": int64(2), "email": "a@x.com"})
	var conflict *WriteConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, "users", conflict.Table)
}
