// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package dbsync

import (
	"fmt"
	"strings"
)

// ColumnType is the semantic type used when comparing column values across
// datasets. Values are always compared by semantic type, never by their
// string rendering, so formatting differences between backends cannot
// produce false diffs.
type ColumnType string

const (
	TypeInteger ColumnType = "integer"
	TypeReal    ColumnType = "real"
	TypeText    ColumnType = "text"
	TypeBlob    ColumnType = "blob"
	TypeBool    ColumnType = "bool"
	TypeTime    ColumnType = "time"
	TypeAny     ColumnType = "any"
)

// Column describes one column of a reconciled table.
type Column struct {
	Name string
	Type ColumnType
}

// TableSchema is the per-table descriptor consulted by the snapshot builder
// and the differ: ordered column list plus the ordered primary-key column
// names as declared by the source database.
type TableSchema struct {
	Name       string
	Columns    []Column
	PrimaryKey []string
}

// Validate rejects schemas the reconciler cannot work with. A table without
// a primary key has no row identity, so every row would collide under the
// same empty key.
func (s *TableSchema) Validate() error {
	if len(s.PrimaryKey) == 0 {
		return fmt.Errorf("table %q: %w", s.Name, ErrNoPrimaryKey)
	}
	for _, pk := range s.PrimaryKey {
		if !s.HasColumn(pk) {
			return fmt.Errorf("table %q: primary key column %q is not declared", s.Name, pk)
		}
	}
	return nil
}

// HasColumn reports whether the schema declares the named column.
func (s *TableSchema) HasColumn(name string) bool {
	for _, c := range s.Columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

// ColumnType returns the semantic type of the named column, or TypeAny when
// the column is unknown.
func (s *TableSchema) ColumnType(name string) ColumnType {
	for _, c := range s.Columns {
		if c.Name == name {
			return c.Type
		}
	}
	return TypeAny
}

// ColumnNames returns the declared column names in order.
func (s *TableSchema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// columnTypeFromPostgres maps an information_schema udt_name to a semantic type.
func columnTypeFromPostgres(udtName string) ColumnType {
	switch strings.ToLower(udtName) {
	case "int2", "int4", "int8", "serial", "bigserial", "smallserial":
		return TypeInteger
	case "float4", "float8", "numeric":
		return TypeReal
	case "text", "varchar", "bpchar", "char", "name", "uuid":
		return TypeText
	case "bytea":
		return TypeBlob
	case "bool":
		return TypeBool
	case "timestamp", "timestamptz", "date", "time", "timetz":
		return TypeTime
	default:
		return TypeAny
	}
}

// columnTypeFromSQLite maps a declared SQLite column type to a semantic type
// using SQLite's affinity rules (substring matching on the declared type).
func columnTypeFromSQLite(declaredType string) ColumnType {
	dt := strings.ToLower(declaredType)
	switch {
	case strings.Contains(dt, "int"):
		return TypeInteger
	case strings.Contains(dt, "real"), strings.Contains(dt, "floa"), strings.Contains(dt, "doub"), strings.Contains(dt, "numeric"), strings.Contains(dt, "decimal"):
		return TypeReal
	case strings.Contains(dt, "blob"):
		return TypeBlob
	case strings.Contains(dt, "bool"):
		return TypeBool
	case strings.Contains(dt, "date"), strings.Contains(dt, "time"):
		return TypeTime
	case strings.Contains(dt, "char"), strings.Contains(dt, "text"), strings.Contains(dt, "clob"):
		return TypeText
	default:
		return TypeAny
	}
}
