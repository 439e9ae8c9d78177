// Package condition evaluates trigger and step predicates against event payloads
// and execution variables.
package condition

import (
	"fmt"
	"strings"
)

// Condition is a single predicate over a dot-separated field path.
type Condition struct {
	Field    string   `json:"field"    validate:"required"`
	Operator Operator `json:"operator" validate:"required"`
	Value    any      `json:"value,omitempty"`
}

// Evaluate resolves the condition's field against scope and applies the operator.
// A missing field is only truthy for not_exists; every other operator treats it
// as a normal non-match for equals-style checks and an error for typed ones.
func (c Condition) Evaluate(scope map[string]any) (bool, error) {
	value, found := Lookup(scope, c.Field)

	switch c.Operator {
	case OpExists:
		return found, nil
	case OpNotExists:
		return !found, nil
	}

	if !found {
		switch c.Operator {
		case OpNotEquals, OpNotContains:
			return true, nil
		default:
			return false, nil
		}
	}

	return compare(c.Operator, value, c.Value)
}

// Validate checks the condition is structurally usable before matching starts.
func (c Condition) Validate() error {
	if c.Field == "" {
		return fmt.Errorf("condition field is required")
	}

	if !c.Operator.Known() {
		return fmt.Errorf("unknown condition operator %q", c.Operator)
	}

	if c.Operator.RequiresValue() && c.Value == nil {
		return fmt.Errorf("operator %q requires a comparison value", c.Operator)
	}

	return nil
}

// Lookup resolves a dot-separated path like "payload.steam_id" in nested maps.
func Lookup(scope map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")

	var current any = scope

	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

// All reports whether every condition holds. The first error aborts evaluation.
func All(conditions []Condition, scope map[string]any) (bool, error) {
	for _, cond := range conditions {
		ok, err := cond.Evaluate(scope)
		if err != nil {
			return false, fmt.Errorf("condition on %q: %w", cond.Field, err)
		}

		if !ok {
			return false, nil
		}
	}

	return true, nil
}
