// internal/rules/compile.go
package rules

import (
	"fmt"

	"github.com/solatis/groundskeeper/internal/types"
)

/*
 * Rule compilation and validation.
 *
 * Compile turns a stored types.Rule into a CompiledRule: operator parsed,
 * field path split, JSON value decoded and normalized once. Evaluation then
 * only resolves the field and compares.
 *
 * Compile never fails. A rule whose operator is unknown or whose value does
 * not fit its operator compiles to a rule with Valid=false, which never
 * matches. Stored rows written by older versions must not break matching.
 *
 * Validate is the strict counterpart used on the write path, so that new
 * malformed rules are rejected before they reach storage.
 */

// CompiledRule is a pre-processed rule ready for evaluation.
type CompiledRule struct {
	ID          types.RuleID
	TerritoryID types.TerritoryID
	FieldName   string
	Path        []string
	Operator    Operator
	Target      any // normalized comparison value
	Priority    int
	Active      bool
	Valid       bool // false when operator or value is malformed
	Cost        int
}

// Compile pre-processes a rule for repeated evaluation.
func Compile(rule *types.Rule) *CompiledRule {
	op := ParseOperator(rule.Operator)
	path := SplitPath(rule.FieldName)

	compiled := &CompiledRule{
		ID:          rule.ID,
		TerritoryID: rule.TerritoryID,
		FieldName:   rule.FieldName,
		Path:        path,
		Operator:    op,
		Priority:    rule.Priority,
		Active:      rule.IsActive,
		Cost:        CalculateRuleCost(path, op),
	}

	if op == OpUnknown || len(path) == 0 || len(path) > types.MaxPathDepth {
		return compiled
	}

	raw, err := decodeValue(rule.Value)
	if err != nil {
		return compiled
	}
	target, ok := normalizeComparisonValue(op, raw)
	if !ok {
		return compiled
	}

	compiled.Target = target
	compiled.Valid = true
	return compiled
}

// Validate rejects rules that would compile to a never-matching rule.
// Used before persisting admin input.
func Validate(rule *types.Rule) error {
	op := ParseOperator(rule.Operator)
	if op == OpUnknown {
		return fmt.Errorf("%w: %q", types.ErrInvalidOperator, rule.Operator)
	}

	path := SplitPath(rule.FieldName)
	if len(path) == 0 {
		return fmt.Errorf("%w: empty field name", types.ErrInvalidRuleValue)
	}
	if len(path) > types.MaxPathDepth {
		return types.ErrPathTooDeep
	}
	for _, seg := range path {
		if seg == "" {
			return fmt.Errorf("%w: empty segment in field name %q", types.ErrInvalidRuleValue, rule.FieldName)
		}
	}

	raw, err := decodeValue(rule.Value)
	if err != nil {
		return fmt.Errorf("%w: %v", types.ErrInvalidRuleValue, err)
	}

	switch op {
	case OpIn, OpNotIn:
		arr, ok := raw.([]any)
		if !ok {
			return fmt.Errorf("%w: %s requires an array", types.ErrInvalidRuleValue, op)
		}
		if len(arr) > types.MaxInOperatorValues {
			return types.ErrTooManyInValues
		}
	case OpBetween:
		arr, ok := raw.([]any)
		if !ok || len(arr) != 2 {
			return fmt.Errorf("%w: between requires [low, high]", types.ErrInvalidRuleValue)
		}
		if _, ok := compareOrdered(arr[0], arr[1]); !ok {
			return fmt.Errorf("%w: between bounds are not comparable", types.ErrInvalidRuleValue)
		}
	case OpIsNull, OpIsNotNull:
		// value ignored
	default:
		if raw == nil {
			return fmt.Errorf("%w: %s requires a value", types.ErrInvalidRuleValue, op)
		}
		if _, ok := normalizeComparisonValue(op, raw); !ok {
			return fmt.Errorf("%w: %s requires a value", types.ErrInvalidRuleValue, op)
		}
	}

	return nil
}
