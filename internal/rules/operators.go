// internal/rules/operators.go
package rules

import (
	"strings"
)

/*
 * Operator comparison logic.
 *
 * Sixteen operator spellings map onto fifteen behaviours ("=" and "==" are
 * the same loose equality). Targets reaching Compare have already been
 * normalized by normalizeComparisonValue, so array-wrapped scalars are
 * unwrapped and in/not_in/between targets are known to be arrays.
 *
 * Operators:
 *   - is_null/is_not_null: nil checks, target ignored
 *   - =, ==, !=: loose equality (numbers compare numerically, numeric strings
 *     equal numbers of the same value)
 *   - >, >=, <, <=, between: numeric when both sides are numeric, lexicographic
 *     when both are strings, chronological for time values
 *   - in/not_in: membership with equality semantics; nil never belongs
 *   - contains/not_contains/starts_with/ends_with: strings only, no coercion
 *
 * Every operator fails closed: incomparable operands and unknown operators
 * return false. Nothing here panics on arbitrary entity values.
 */

// Operator enumerates rule operators.
type Operator int

const (
	OpUnknown Operator = iota
	OpEq
	OpNeq
	OpGt
	OpGte
	OpLt
	OpLte
	OpIn
	OpNotIn
	OpContains
	OpNotContains
	OpStartsWith
	OpEndsWith
	OpIsNull
	OpIsNotNull
	OpBetween
)

var operatorNames = map[string]Operator{
	"=":            OpEq,
	"==":           OpEq,
	"!=":           OpNeq,
	">":            OpGt,
	">=":           OpGte,
	"<":            OpLt,
	"<=":           OpLte,
	"in":           OpIn,
	"not_in":       OpNotIn,
	"contains":     OpContains,
	"not_contains": OpNotContains,
	"starts_with":  OpStartsWith,
	"ends_with":    OpEndsWith,
	"is_null":      OpIsNull,
	"is_not_null":  OpIsNotNull,
	"between":      OpBetween,
}

// ParseOperator maps a stored operator string to its enum value.
// Unrecognized strings map to OpUnknown, which never matches.
func ParseOperator(s string) Operator {
	return operatorNames[strings.TrimSpace(s)]
}

// String returns the canonical spelling.
func (op Operator) String() string {
	switch op {
	case OpEq:
		return "="
	case OpNeq:
		return "!="
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	case OpIn:
		return "in"
	case OpNotIn:
		return "not_in"
	case OpContains:
		return "contains"
	case OpNotContains:
		return "not_contains"
	case OpStartsWith:
		return "starts_with"
	case OpEndsWith:
		return "ends_with"
	case OpIsNull:
		return "is_null"
	case OpIsNotNull:
		return "is_not_null"
	case OpBetween:
		return "between"
	default:
		return "unknown"
	}
}

// Compare applies the operator to the resolved field value and the
// normalized target.
func Compare(op Operator, value, target any) bool {
	switch op {
	case OpIsNull:
		return value == nil
	case OpIsNotNull:
		return value != nil
	case OpEq:
		return compareEqual(value, target)
	case OpNeq:
		return !compareEqual(value, target)
	case OpGt:
		c, ok := compareOrdered(value, target)
		return ok && c > 0
	case OpGte:
		c, ok := compareOrdered(value, target)
		return ok && c >= 0
	case OpLt:
		c, ok := compareOrdered(value, target)
		return ok && c < 0
	case OpLte:
		c, ok := compareOrdered(value, target)
		return ok && c <= 0
	case OpIn:
		return value != nil && compareIn(value, target)
	case OpNotIn:
		return value != nil && isList(target) && !compareIn(value, target)
	case OpContains:
		return compareStrings(value, target, strings.Contains)
	case OpNotContains:
		return compareStrings(value, target, func(s, sub string) bool { return !strings.Contains(s, sub) })
	case OpStartsWith:
		return compareStrings(value, target, strings.HasPrefix)
	case OpEndsWith:
		return compareStrings(value, target, strings.HasSuffix)
	case OpBetween:
		return compareBetween(value, target)
	default:
		return false
	}
}

// compareEqual performs loose equality.
// nil equals only nil; lists and objects never compare equal.
func compareEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if na, nb, ok := asNumbers(a, b); ok {
		return na == nb
	}
	switch av := a.(type) {
	case string:
		bs, ok := b.(string)
		return ok && av == bs
	case bool:
		bb, ok := b.(bool)
		return ok && av == bb
	}
	if c, ok := compareTimes(a, b); ok {
		return c == 0
	}
	return false
}

// compareOrdered performs three-way comparison (-1/0/1).
// ok is false when the operands have no common ordering.
func compareOrdered(a, b any) (int, bool) {
	if a == nil || b == nil {
		return 0, false
	}
	if na, nb, ok := asNumbers(a, b); ok {
		switch {
		case na < nb:
			return -1, true
		case na > nb:
			return 1, true
		default:
			return 0, true
		}
	}
	if sa, ok := a.(string); ok {
		if sb, ok := b.(string); ok {
			return strings.Compare(sa, sb), true
		}
	}
	return compareTimes(a, b)
}

// compareIn checks if value exists in set using equality semantics.
func compareIn(value, set any) bool {
	arr, ok := set.([]any)
	if !ok {
		return false
	}
	for _, elem := range arr {
		if compareEqual(value, elem) {
			return true
		}
	}
	return false
}

// compareBetween checks low <= value <= high; set is a normalized [low, high].
func compareBetween(value, set any) bool {
	arr, ok := set.([]any)
	if !ok || len(arr) != 2 {
		return false
	}
	lo, ok := compareOrdered(value, arr[0])
	if !ok || lo < 0 {
		return false
	}
	hi, ok := compareOrdered(value, arr[1])
	return ok && hi <= 0
}

// compareStrings applies fn when both operands are strings.
// Returns false for non-string types.
func compareStrings(value, target any, fn func(s, t string) bool) bool {
	vs, ok1 := value.(string)
	ts, ok2 := target.(string)
	if !ok1 || !ok2 {
		return false
	}
	return fn(vs, ts)
}

func isList(v any) bool {
	_, ok := v.([]any)
	return ok
}
