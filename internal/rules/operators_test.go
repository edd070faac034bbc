package rules

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/solatis/groundskeeper/internal/types"
)

func TestParseOperator(t *testing.T) {
	tests := []struct {
		in   string
		want Operator
	}{
		{"=", OpEq},
		{"==", OpEq},
		{"!=", OpNeq},
		{">", OpGt},
		{">=", OpGte},
		{"<", OpLt},
		{"<=", OpLte},
		{"in", OpIn},
		{"not_in", OpNotIn},
		{"contains", OpContains},
		{"not_contains", OpNotContains},
		{"starts_with", OpStartsWith},
		{"ends_with", OpEndsWith},
		{"is_null", OpIsNull},
		{"is_not_null", OpIsNotNull},
		{"between", OpBetween},
		{" in ", OpIn},
		{"IN", OpUnknown},
		{"like", OpUnknown},
		{"", OpUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseOperator(tt.in); got != tt.want {
				t.Errorf("ParseOperator(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestCompare_UnknownOperator(t *testing.T) {
	if Compare(OpUnknown, "a", "a") {
		t.Errorf("Compare(OpUnknown) = true, want false")
	}
	if Compare(Operator(99), 1, 1) {
		t.Errorf("Compare(Operator(99)) = true, want false")
	}
}

func TestCompare_UncomparableValuesDoNotPanic(t *testing.T) {
	values := []any{
		nil,
		[]any{1, 2},
		map[string]any{"a": 1},
		struct{}{},
		"text",
		3.5,
		true,
	}
	ops := []Operator{OpEq, OpNeq, OpGt, OpGte, OpLt, OpLte, OpIn, OpNotIn,
		OpContains, OpNotContains, OpStartsWith, OpEndsWith, OpIsNull, OpIsNotNull, OpBetween}

	for _, op := range ops {
		for _, v := range values {
			for _, target := range values {
				_ = Compare(op, v, target)
			}
		}
	}
}

func TestNormalizeComparisonValue(t *testing.T) {
	tests := []struct {
		name   string
		op     Operator
		raw    any
		want   any
		wantOK bool
	}{
		{"scalar unwraps first", OpEq, []any{"a", "b"}, "a", true},
		{"scalar passthrough", OpEq, "a", "a", true},
		{"scalar empty array", OpEq, []any{}, nil, false},
		{"ordering unwraps", OpGte, []any{500.0}, 500.0, true},
		{"string op unwraps", OpContains, []any{"Tech"}, "Tech", true},
		{"null check ignores value", OpIsNull, []any{"x"}, nil, true},
		{"in requires array", OpIn, "US", nil, false},
		{"between requires pair", OpBetween, []any{1.0}, nil, false},
		{"unknown operator", OpUnknown, "x", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := normalizeComparisonValue(tt.op, tt.raw)
			if ok != tt.wantOK {
				t.Fatalf("normalizeComparisonValue() ok = %v, want %v", ok, tt.wantOK)
			}
			if tt.wantOK && tt.op != OpIn && tt.op != OpNotIn && tt.op != OpBetween && got != tt.want {
				t.Errorf("normalizeComparisonValue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	return b
}

// Property tests for operator invariants.
func TestOperators_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	anyOp := gen.OneConstOf("=", "==", "!=", ">", ">=", "<", "<=", "in", "not_in",
		"contains", "not_contains", "starts_with", "ends_with", "is_null", "is_not_null", "between")

	properties.Property("inactive rule never matches", prop.ForAll(
		func(op string, field string, value int) bool {
			r := &types.Rule{
				FieldName: "f",
				Operator:  op,
				Value:     mustJSON(t, []any{value, value + 10}),
				IsActive:  false,
			}
			return !Evaluate(r, record{"f": field}) && !Evaluate(r, record{"f": value}) && !Evaluate(r, record{})
		},
		anyOp,
		gen.AlphaString(),
		gen.IntRange(-1000, 1000),
	))

	properties.Property("in and not_in are complementary for present values", prop.ForAll(
		func(set []string, v string) bool {
			if set == nil {
				set = []string{}
			}
			value := mustJSON(t, set)
			in := &types.Rule{FieldName: "f", Operator: "in", Value: value, IsActive: true}
			notIn := &types.Rule{FieldName: "f", Operator: "not_in", Value: value, IsActive: true}
			entity := record{"f": v}
			return Evaluate(in, entity) != Evaluate(notIn, entity)
		},
		gen.SliceOf(gen.OneConstOf("US", "CA", "MX", "DE", "FR"), reflect.TypeOf("")),
		gen.OneConstOf("US", "CA", "MX", "DE", "FR", "JP"),
	))

	properties.Property("in and not_in are both false for nil", prop.ForAll(
		func(set []string) bool {
			value := mustJSON(t, set)
			in := &types.Rule{FieldName: "f", Operator: "in", Value: value, IsActive: true}
			notIn := &types.Rule{FieldName: "f", Operator: "not_in", Value: value, IsActive: true}
			return !Evaluate(in, record{}) && !Evaluate(notIn, record{})
		},
		gen.SliceOf(gen.AlphaString()),
	))

	properties.Property("between is inclusive and agrees with >= and <=", prop.ForAll(
		func(lo, width, v int) bool {
			hi := lo + width
			r := &types.Rule{FieldName: "f", Operator: "between", Value: mustJSON(t, []int{lo, hi}), IsActive: true}
			return Evaluate(r, record{"f": v}) == (v >= lo && v <= hi)
		},
		gen.IntRange(-500, 500),
		gen.IntRange(0, 500),
		gen.IntRange(-1200, 1200),
	))

	properties.Property("= and != are complementary for present values", prop.ForAll(
		func(a, b string) bool {
			eq := &types.Rule{FieldName: "f", Operator: "=", Value: mustJSON(t, []string{a}), IsActive: true}
			neq := &types.Rule{FieldName: "f", Operator: "!=", Value: mustJSON(t, []string{a}), IsActive: true}
			entity := record{"f": b}
			return Evaluate(eq, entity) != Evaluate(neq, entity)
		},
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
