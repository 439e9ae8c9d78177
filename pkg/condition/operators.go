package condition

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Operator is a comparison operator applied between a payload field and a
// configured literal.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpContains    Operator = "contains"
	OpNotContains Operator = "not_contains"
	OpRegex       Operator = "regex"
	OpGt          Operator = "gt"
	OpGte         Operator = "gte"
	OpLt          Operator = "lt"
	OpLte         Operator = "lte"
	OpExists      Operator = "exists"
	OpNotExists   Operator = "not_exists"
)

// Known reports whether the operator is part of the closed set.
func (op Operator) Known() bool {
	switch op {
	case OpEquals, OpNotEquals, OpContains, OpNotContains, OpRegex,
		OpGt, OpGte, OpLt, OpLte, OpExists, OpNotExists:
		return true
	}

	return false
}

// RequiresValue reports whether the operator needs a right-hand literal.
func (op Operator) RequiresValue() bool {
	switch op {
	case OpExists, OpNotExists:
		return false
	}

	return true
}

func compare(op Operator, left, right any) (bool, error) {
	switch op {
	case OpEquals:
		return equal(left, right), nil
	case OpNotEquals:
		return !equal(left, right), nil
	case OpContains:
		return containsOp(left, right)
	case OpNotContains:
		ok, err := containsOp(left, right)

		return !ok, err
	case OpRegex:
		return regexOp(left, right)
	case OpGt, OpGte, OpLt, OpLte:
		return numericCompare(op, left, right)
	default:
		return false, fmt.Errorf("unknown operator: %s", op)
	}
}

// toFloat64 coerces any numeric value to float64. JSON decoding produces
// float64 for numbers, but values set by scripts or actions may carry Go ints.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}

	return 0, false
}

// equal compares numeric types by value, bools by identity, everything else by
// string form.
func equal(left, right any) bool {
	lf, lok := toFloat64(left)
	rf, rok := toFloat64(right)

	if lok && rok {
		return math.Abs(lf-rf) < 1e-9
	}

	if lb, ok := left.(bool); ok {
		if rb, ok := right.(bool); ok {
			return lb == rb
		}

		return false
	}

	return fmt.Sprintf("%v", left) == fmt.Sprintf("%v", right)
}

func numericCompare(op Operator, left, right any) (bool, error) {
	lf, lok := toFloat64(left)
	rf, rok := toFloat64(right)

	if !lok || !rok {
		return false, fmt.Errorf("operator %s requires numeric operands, got %T and %T", op, left, right)
	}

	switch op {
	case OpGt:
		return lf > rf, nil
	case OpGte:
		return lf >= rf, nil
	case OpLt:
		return lf < rf, nil
	case OpLte:
		return lf <= rf, nil
	}

	return false, nil
}

func containsOp(left, right any) (bool, error) {
	ls, ok := left.(string)
	if !ok {
		return false, fmt.Errorf("contains: field value must be a string, got %T", left)
	}

	return strings.Contains(ls, fmt.Sprintf("%v", right)), nil
}

func regexOp(left, right any) (bool, error) {
	ls, ok := left.(string)
	if !ok {
		return false, fmt.Errorf("regex: field value must be a string, got %T", left)
	}

	pattern, ok := right.(string)
	if !ok {
		return false, fmt.Errorf("regex: pattern must be a string, got %T", right)
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Errorf("regex: invalid pattern %q: %w", pattern, err)
	}

	return re.MatchString(ls), nil
}
