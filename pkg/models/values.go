package models

import (
	"encoding/json"
	"strconv"
)

// ValuesEqual compares two payload values strictly: values of different kinds
// are never equal, numbers are compared by value regardless of their Go type,
// and composite values (maps, slices) are never equal to each other.
func ValuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if fa, ok := ToFloat64(a); ok {
		fb, ok := ToFloat64(b)

		return ok && fa == fb
	}

	switch av := a.(type) {
	case string:
		bv, ok := b.(string)

		return ok && av == bv
	case bool:
		bv, ok := b.(bool)

		return ok && av == bv
	default:
		return false
	}
}

// ToFloat64 converts numeric values to float64. Strings are not parsed.
func ToFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()

		return f, err == nil
	default:
		return 0, false
	}
}

// StringOf renders a payload value as text. A missing value renders empty.
func StringOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	}

	if f, ok := ToFloat64(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}

	out, err := json.Marshal(v)
	if err != nil {
		return ""
	}

	return string(out)
}
