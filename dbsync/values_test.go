// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package dbsync

import (
	"testing"
	"time"
)

// TestValuesEqual verifies semantic comparison across driver value widths.
func TestValuesEqual(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		ct   ColumnType
		a    any
		b    any
		want bool
	}{
		{"both nil", TypeText, nil, nil, true},
		{"nil vs value", TypeText, nil, "x", false},
		{"value vs nil", TypeInteger, int64(1), nil, false},
		{"equal strings", TypeText, "a@x.com", "a@x.com", true},
		{"different strings", TypeText, "a@x.com", "old@x.com", false},
		{"string vs bytes same content", TypeText, "abc", []byte("abc"), true},
		{"int32 vs int64", TypeInteger, int32(42), int64(42), true},
		{"int vs int64 different", TypeInteger, 41, int64(42), false},
		{"float64 widened integer", TypeInteger, float64(7), int64(7), true},
		{"float equality", TypeReal, float32(1.5), float64(1.5), true},
		{"int vs float same value", TypeReal, int64(2), float64(2.0), true},
		{"int vs float different", TypeReal, int64(2), float64(2.5), false},
		{"blob equal", TypeBlob, []byte{1, 2, 3}, []byte{1, 2, 3}, true},
		{"blob different", TypeBlob, []byte{1, 2, 3}, []byte{1, 2, 4}, false},
		{"bool equal", TypeBool, true, true, true},
		{"bool different", TypeBool, true, false, false},
		{"time equal different zones", TypeTime, now, now.UTC(), true},
		{"time different", TypeTime, now, now.Add(time.Second), false},
		{"any numeric pair", TypeAny, int16(9), uint8(9), true},
		{"text number never equals integer rendering", TypeAny, "1", int64(1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := valuesEqual(tt.ct, tt.a, tt.b); got != tt.want {
				t.Errorf("valuesEqual(%v, %v, %v) = %v, want %v", tt.ct, tt.a, tt.b, got, tt.want)
			}
		})
	}
}

// TestKeyComponent_NoCollisions verifies that distinct key tuples cannot
// produce the same encoded key.
func TestKeyComponent_NoCollisions(t *testing.T) {
	schema := &TableSchema{
		Name: "pairs",
		Columns: []Column{
			{Name: "a", Type: TypeText},
			{Name: "b", Type: TypeText},
		},
		PrimaryKey: []string{"a", "b"},
	}

	k1, err := KeyForRow(schema, Row{"a": "1", "b": "2x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	k2, err := KeyForRow(schema, Row{"a": "12", "b": "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if k1 == k2 {
		t.Fatalf("expected distinct keys, both encoded as %q", k1)
	}
}

// TestKeyComponent_TypedTags verifies that a text "1" and the integer 1
// produce different keys while driver width differences do not.
func TestKeyComponent_TypedTags(t *testing.T) {
	if keyComponent("1") == keyComponent(int64(1)) {
		t.Fatal("text and integer keys must not collide")
	}
	if keyComponent(int32(5)) != keyComponent(int64(5)) {
		t.Fatal("integer width must not affect the key")
	}
	if keyComponent(float64(5)) != keyComponent(int64(5)) {
		t.Fatal("integral float must normalize to the integer key")
	}
}
