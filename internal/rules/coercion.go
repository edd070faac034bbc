// internal/rules/coercion.go
package rules

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

/*
 * Value normalization and numeric/time coercion for rule evaluation.
 *
 * Rule values are stored JSON-encoded and, for historical reasons, almost
 * always as arrays: ["Technology"] for an equality rule, [500] for ">=".
 * normalizeComparisonValue is the single place that knows this:
 *   - scalar and ordering operators take the first element of an array
 *     (an empty array leaves nothing to compare against)
 *   - in/not_in need an array
 *   - between needs exactly [low, high]
 *   - is_null/is_not_null ignore the value
 *
 * Numbers arrive as int, int64, float64 (from JSON) and friends. They are
 * compared as float64. A string that parses as a number is accepted on one
 * side of a numeric comparison; two strings always compare as strings.
 * String operators never coerce.
 */

// dateLayouts are accepted when a string is compared with a time value.
var dateLayouts = []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"}

// decodeValue parses a stored rule value. Empty input decodes to nil.
func decodeValue(raw json.RawMessage) (any, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// normalizeComparisonValue turns a decoded rule value into the operand the
// operator compares against. ok is false when the value cannot serve the
// operator; such rules never match.
func normalizeComparisonValue(op Operator, raw any) (any, bool) {
	switch op {
	case OpIsNull, OpIsNotNull:
		return nil, true
	case OpIn, OpNotIn:
		arr, ok := raw.([]any)
		return arr, ok
	case OpBetween:
		arr, ok := raw.([]any)
		if !ok || len(arr) != 2 {
			return nil, false
		}
		return arr, true
	case OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte,
		OpContains, OpNotContains, OpStartsWith, OpEndsWith:
		if arr, ok := raw.([]any); ok {
			if len(arr) == 0 {
				return nil, false
			}
			return arr[0], true
		}
		return raw, true
	default:
		return nil, false
	}
}

// asNumbers converts both values to float64 for numeric comparison.
// At most one side may be a numeric string.
func asNumbers(a, b any) (float64, float64, bool) {
	na, oka := toFloat64(a)
	nb, okb := toFloat64(b)
	switch {
	case oka && okb:
		return na, nb, true
	case oka:
		nb, okb = parseNumeric(b)
		return na, nb, okb
	case okb:
		na, oka = parseNumeric(a)
		return na, nb, oka
	default:
		return 0, 0, false
	}
}

// toFloat64 converts value to float64 if it has a numeric Go type.
func toFloat64(v any) (float64, bool) {
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

// parseNumeric accepts strings holding a number.
// Whitespace-only strings are not valid numbers.
func parseNumeric(v any) (float64, bool) {
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// compareTimes orders two values when at least one is a time.Time and the
// other is a time or a date string.
func compareTimes(a, b any) (int, bool) {
	ta, aIsTime := a.(time.Time)
	tb, bIsTime := b.(time.Time)
	if !aIsTime && !bIsTime {
		return 0, false
	}
	var ok bool
	if !aIsTime {
		if ta, ok = parseTime(a); !ok {
			return 0, false
		}
	}
	if !bIsTime {
		if tb, ok = parseTime(b); !ok {
			return 0, false
		}
	}
	return ta.Compare(tb), true
}

func parseTime(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
