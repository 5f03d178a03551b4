package engine

import (
	"strconv"

	"github.com/utafrali/promo-backoffice/internal/domain"
)

// Matches reports whether a subject satisfies all of the given rules.
// Rules are ANDed; an empty rule set passes trivially without consulting
// the fact source. A rule whose attribute cannot be resolved fails closed.
// Pure function: never errors, never mutates its inputs.
func Matches(rules []domain.PromotionRule, facts FactSource) bool {
	for _, rule := range rules {
		if !ruleSatisfied(rule, facts) {
			return false
		}
	}
	return true
}

// EligibleItems filters cart items through target-scope rules. An empty rule
// set leaves every item eligible.
func EligibleItems(rules []domain.PromotionRule, items []domain.CartItem) []domain.CartItem {
	if len(rules) == 0 {
		return items
	}

	var eligible []domain.CartItem
	for _, item := range items {
		if Matches(rules, ItemFacts(&item)) {
			eligible = append(eligible, item)
		}
	}
	return eligible
}

func ruleSatisfied(rule domain.PromotionRule, facts FactSource) bool {
	value, ok := facts(rule.Attribute)
	if !ok {
		return false
	}

	values := normalizeValues(rule.Values)

	switch rule.Operator {
	case domain.OperatorEQ:
		return len(values) > 0 && equals(value, values[0])
	case domain.OperatorNE:
		return len(values) > 0 && !equals(value, values[0])
	case domain.OperatorIN:
		return containsValue(values, value)
	case domain.OperatorNIN:
		return !containsValue(values, value)
	case domain.OperatorGT:
		return compareNumeric(value, values, func(a, b float64) bool { return a > b })
	case domain.OperatorGTE:
		return compareNumeric(value, values, func(a, b float64) bool { return a >= b })
	case domain.OperatorLT:
		return compareNumeric(value, values, func(a, b float64) bool { return a < b })
	case domain.OperatorLTE:
		return compareNumeric(value, values, func(a, b float64) bool { return a <= b })
	default:
		return false
	}
}

// normalizeValues wraps a scalar in a one-element slice. Persisted rules are
// already arrays; this guards rules built in memory.
func normalizeValues(values []any) []any {
	if values == nil {
		return []any{}
	}
	return values
}

func containsValue(values []any, value any) bool {
	for _, v := range values {
		if equals(value, v) {
			return true
		}
	}
	return false
}

// equals compares a fact value against a rule value. Numbers compare
// numerically across Go numeric types (rule values round-trip through JSON
// as float64 while facts are int/int64); strings and booleans require an
// exact type and value match. A numeric string never equals a number:
// equality is strict, string coercion is reserved for the ordering
// operators.
func equals(a, b any) bool {
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}

	af, aok := numericValue(a)
	bf, bok := numericValue(b)
	return aok && bok && af == bf
}

// compareNumeric evaluates an ordering operator against the first rule value.
// Either side failing numeric coercion fails the rule.
func compareNumeric(value any, values []any, cmp func(a, b float64) bool) bool {
	if len(values) == 0 {
		return false
	}
	a, ok := toNumber(value)
	if !ok {
		return false
	}
	b, ok := toNumber(values[0])
	if !ok {
		return false
	}
	return cmp(a, b)
}

// numericValue converts a Go numeric type to float64. Strings are not
// numbers here; see toNumber.
func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// toNumber coerces a value to float64 for the ordering operators. Numeric
// strings coerce like JavaScript's Number(); anything else fails.
func toNumber(v any) (float64, bool) {
	if f, ok := numericValue(v); ok {
		return f, true
	}
	if s, ok := v.(string); ok {
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return 0, false
}
