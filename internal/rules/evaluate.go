// internal/rules/evaluate.go
package rules

import (
	"github.com/solatis/groundskeeper/internal/types"
)

/*
 * Rule evaluation.
 *
 * Evaluation flow:
 *   1. Inactive rule: false, nothing else is looked at
 *   2. Malformed rule (unknown operator, value unfit for operator): false
 *   3. Resolve the field path against the subject (nil when absent)
 *   4. Compare the resolved value with the normalized target
 *
 * Evaluation is pure: no I/O, no shared state, no panics on arbitrary
 * entity values. The same subject and rule always give the same answer.
 */

// Evaluate reports whether rule matches src.
// Convenience wrapper that compiles on every call; the matcher compiles once.
func Evaluate(rule *types.Rule, src FieldSource) bool {
	return Compile(rule).Evaluate(src)
}

// Evaluate reports whether the compiled rule matches src.
func (r *CompiledRule) Evaluate(src FieldSource) bool {
	matched, _ := r.evaluate(src)
	return matched
}

// evaluate also returns the resolved value for match diagnostics.
func (r *CompiledRule) evaluate(src FieldSource) (bool, any) {
	if !r.Active || !r.Valid {
		return false, nil
	}
	value := resolveSegments(src, r.Path)
	return Compare(r.Operator, value, r.Target), value
}
