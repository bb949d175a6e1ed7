// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package dbsync

import (
	"bytes"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"
)

// valuesEqual compares two column values under the column's semantic type.
// Numbers compare numerically regardless of driver-reported width, text
// compares exactly, blobs compare byte-exact, and two NULLs compare equal.
// String renderings are never compared, so "1.0" vs "1" style formatting
// differences cannot produce spurious updates.
func valuesEqual(ct ColumnType, a, b any) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}

	switch ct {
	case TypeBlob:
		ab, aok := asBytes(a)
		bb, bok := asBytes(b)
		if aok && bok {
			return bytes.Equal(ab, bb)
		}
	case TypeText:
		as, aok := asString(a)
		bs, bok := asString(b)
		if aok && bok {
			return as == bs
		}
	case TypeTime:
		at, aok := a.(time.Time)
		bt, bok := b.(time.Time)
		if aok && bok {
			return at.Equal(bt)
		}
	}

	// Numeric comparison covers TypeInteger, TypeReal and any numeric pair
	// that reaches here under TypeAny.
	if ai, aok := asInt64(a); aok {
		if bi, bok := asInt64(b); bok {
			return ai == bi
		}
	}
	if af, aok := asFloat64(a); aok {
		if bf, bok := asFloat64(b); bok {
			return af == bf
		}
	}

	if ab, aok := a.(bool); aok {
		if bb, bok := b.(bool); bok {
			return ab == bb
		}
	}

	return reflect.DeepEqual(a, b)
}

func asBytes(v any) ([]byte, bool) {
	switch t := v.(type) {
	case []byte:
		return t, true
	case string:
		return []byte(t), true
	}
	return nil, false
}

func asString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case []byte:
		return string(t), true
	}
	return "", false
}

func asInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int8:
		return int64(t), true
	case int16:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case uint:
		if uint64(t) <= math.MaxInt64 {
			return int64(t), true
		}
	case uint8:
		return int64(t), true
	case uint16:
		return int64(t), true
	case uint32:
		return int64(t), true
	case uint64:
		if t <= math.MaxInt64 {
			return int64(t), true
		}
	case float64:
		if t == math.Trunc(t) && t >= math.MinInt64 && t <= math.MaxInt64 {
			return int64(t), true
		}
	case float32:
		return asInt64(float64(t))
	}
	return 0, false
}

func asFloat64(v any) (float64, bool) {
	switch t := v.(type) {
	case float32:
		return float64(t), true
	case float64:
		return t, true
	}
	if i, ok := asInt64(v); ok {
		return float64(i), true
	}
	return 0, false
}

// keyComponent renders one primary-key value into an unambiguous string
// fragment. Each fragment is tagged with the value's semantic kind and
// length-prefixed where the payload is free-form, so distinct tuples can
// never collide ("1","2x" vs "12","x") and a text "1" never matches the
// integer 1.
func keyComponent(v any) string {
	if v == nil {
		return "n"
	}
	if i, ok := asInt64(v); ok {
		// Integral floats normalize to int64 so the same key read back from
		// a driver that widens to float64 still matches.
		return "i" + strconv.FormatInt(i, 10)
	}
	if f, ok := asFloat64(v); ok {
		return "f" + strconv.FormatFloat(f, 'g', -1, 64)
	}
	if b, ok := v.(bool); ok {
		if b {
			return "b1"
		}
		return "b0"
	}
	if t, ok := v.(time.Time); ok {
		return "t" + strconv.FormatInt(t.UnixNano(), 10)
	}
	if s, ok := asString(v); ok {
		return "s" + strconv.Itoa(len(s)) + ":" + s
	}
	s := fmt.Sprintf("%v", v)
	return "x" + strconv.Itoa(len(s)) + ":" + s
}
