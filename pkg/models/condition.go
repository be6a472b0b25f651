package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/Acurioustractor/actflow/pkg/interpolate"
)

// Condition languages.
const (
	ConditionLanguageSimple = "simple"
	ConditionLanguageExpr   = "expr"
)

// Simple condition operators.
const (
	OperatorEq       = "eq"
	OperatorNe       = "ne"
	OperatorGt       = "gt"
	OperatorGte      = "gte"
	OperatorLt       = "lt"
	OperatorLte      = "lte"
	OperatorContains = "contains"
	OperatorExists   = "exists"
)

var ErrInvalidCondition = errors.New("invalid condition")

// Condition is a boolean guard attached to a workflow step. The default
// "simple" language compares a dot-path field of the execution context
// against a value; the "expr" language evaluates an expr-lang expression
// with the execution context as its environment.
//
// An absent field is never equal to a concrete value, never ordered against
// numbers, and never contains anything; use the "exists" operator for
// explicit presence checks. Malformed conditions evaluate to an error, never
// silently to true.
type Condition struct {
	Language   string `json:"language,omitempty"`
	Field      string `json:"field,omitempty"`
	Operator   string `json:"operator,omitempty"`
	Value      any    `json:"value,omitempty"`
	Expression string `json:"expression,omitempty"`
}

var simpleOperators = map[string]bool{
	OperatorEq:       true,
	OperatorNe:       true,
	OperatorGt:       true,
	OperatorGte:      true,
	OperatorLt:       true,
	OperatorLte:      true,
	OperatorContains: true,
	OperatorExists:   true,
}

// Validate checks the condition definition without evaluating it.
func (c *Condition) Validate() error {
	switch c.Language {
	case "", ConditionLanguageSimple:
		if c.Field == "" {
			return fmt.Errorf("%w: simple condition requires a field", ErrInvalidCondition)
		}

		if !simpleOperators[c.Operator] {
			return fmt.Errorf("%w: unsupported operator %q", ErrInvalidCondition, c.Operator)
		}

		return nil
	case ConditionLanguageExpr:
		if c.Expression == "" {
			return fmt.Errorf("%w: expr condition requires an expression", ErrInvalidCondition)
		}

		return nil
	default:
		return fmt.Errorf("%w: unsupported language %q", ErrInvalidCondition, c.Language)
	}
}

// Evaluate resolves the condition against the execution context. The
// condition value may itself be a template string and is interpolated before
// comparison.
func (c *Condition) Evaluate(context map[string]any) (bool, error) {
	if err := c.Validate(); err != nil {
		return false, err
	}

	if c.Language == ConditionLanguageExpr {
		return c.evaluateExpr(context)
	}

	return c.evaluateSimple(context)
}

func (c *Condition) evaluateExpr(context map[string]any) (bool, error) {
	output, err := expr.Eval(c.Expression, context)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrInvalidCondition, err)
	}

	result, ok := output.(bool)
	if !ok {
		return false, fmt.Errorf("%w: expression %q returned %T, want bool",
			ErrInvalidCondition, c.Expression, output)
	}

	return result, nil
}

func (c *Condition) evaluateSimple(context map[string]any) (bool, error) {
	actual, present := interpolate.Lookup(context, c.Field)
	expected := interpolate.Resolve(c.Value, context)

	if c.Operator == OperatorExists {
		return present, nil
	}

	if !present {
		// Absent values equal nothing and order against nothing.
		return c.Operator == OperatorNe, nil
	}

	switch c.Operator {
	case OperatorEq:
		return looseEqual(actual, expected), nil
	case OperatorNe:
		return !looseEqual(actual, expected), nil
	case OperatorGt, OperatorGte, OperatorLt, OperatorLte:
		return compareOrdered(c.Operator, actual, expected)
	case OperatorContains:
		return containsValue(actual, expected), nil
	}

	return false, fmt.Errorf("%w: unsupported operator %q", ErrInvalidCondition, c.Operator)
}

// looseEqual compares scalars with numeric coercion, so JSON-decoded float64
// values compare equal to configured ints.
func looseEqual(a, b any) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}

		return false
	}

	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func compareOrdered(operator string, a, b any) (bool, error) {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)

	if !aok || !bok {
		return false, fmt.Errorf("%w: operator %q requires numeric operands, got %T and %T",
			ErrInvalidCondition, operator, a, b)
	}

	switch operator {
	case OperatorGt:
		return af > bf, nil
	case OperatorGte:
		return af >= bf, nil
	case OperatorLt:
		return af < bf, nil
	default:
		return af <= bf, nil
	}
}

func containsValue(haystack, needle any) bool {
	switch h := haystack.(type) {
	case string:
		return strings.Contains(h, fmt.Sprintf("%v", needle))
	case []any:
		for _, item := range h {
			if looseEqual(item, needle) {
				return true
			}
		}
	}

	return false
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}
