// internal/rules/cost.go
package rules

/*
 * Cost model for rule evaluation order.
 *
 * Within one territory and one priority level every satisfied rule selects
 * the same territory, so the matcher is free to try cheaper rules first. The
 * cost only reorders rules inside that group; it never changes which
 * territory wins.
 *
 * cost = lookup_cost * segments + operator_cost
 *
 * Relation hops dominate: each segment is an interface call and, for maps,
 * a hash lookup. Membership lists cost more than scalar comparisons.
 */

const (
	// Operator base costs
	CostNullCheck = 1
	CostEq        = 5
	CostOrdered   = 7
	CostBetween   = 9
	CostIn        = 8
	CostString    = 10

	// Field lookup cost per path segment
	CostLookupPerSegment = 32
)

// CalculateRuleCost computes the evaluation cost for one rule.
func CalculateRuleCost(path []string, op Operator) int {
	return len(path)*CostLookupPerSegment + operatorCost(op)
}

// operatorCost returns base cost for operator execution.
func operatorCost(op Operator) int {
	switch op {
	case OpIsNull, OpIsNotNull:
		return CostNullCheck
	case OpEq, OpNeq:
		return CostEq
	case OpGt, OpGte, OpLt, OpLte:
		return CostOrdered
	case OpBetween:
		return CostBetween
	case OpIn, OpNotIn:
		return CostIn
	case OpContains, OpNotContains, OpStartsWith, OpEndsWith:
		return CostString
	default:
		return CostEq
	}
}
