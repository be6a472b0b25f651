package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func conditionContext() map[string]any {
	return map[string]any{
		"trigger": map[string]any{
			"amount":  float64(150),
			"status":  "paid",
			"tags":    []any{"vip", "recurring"},
			"premium": true,
		},
	}
}

func TestCondition_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		condition Condition
		wantErr   bool
	}{
		{"valid simple", Condition{Field: "trigger.amount", Operator: OperatorGt, Value: 100}, false},
		{"valid explicit simple", Condition{Language: "simple", Field: "x", Operator: OperatorExists}, false},
		{"valid expr", Condition{Language: "expr", Expression: "trigger.amount > 100"}, false},
		{"simple without field", Condition{Operator: OperatorEq, Value: 1}, true},
		{"simple bad operator", Condition{Field: "x", Operator: "like"}, true},
		{"expr without expression", Condition{Language: "expr"}, true},
		{"unknown language", Condition{Language: "lua", Expression: "true"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.condition.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidCondition)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestCondition_EvaluateSimple(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		condition Condition
		want      bool
	}{
		{"eq string", Condition{Field: "trigger.status", Operator: OperatorEq, Value: "paid"}, true},
		{"eq numeric coercion", Condition{Field: "trigger.amount", Operator: OperatorEq, Value: 150}, true},
		{"ne", Condition{Field: "trigger.status", Operator: OperatorNe, Value: "refunded"}, true},
		{"gt true", Condition{Field: "trigger.amount", Operator: OperatorGt, Value: 100}, true},
		{"gt false", Condition{Field: "trigger.amount", Operator: OperatorGt, Value: 150}, false},
		{"gte boundary", Condition{Field: "trigger.amount", Operator: OperatorGte, Value: 150}, true},
		{"lt", Condition{Field: "trigger.amount", Operator: OperatorLt, Value: 200}, true},
		{"lte boundary", Condition{Field: "trigger.amount", Operator: OperatorLte, Value: 150}, true},
		{"contains slice", Condition{Field: "trigger.tags", Operator: OperatorContains, Value: "vip"}, true},
		{"contains slice miss", Condition{Field: "trigger.tags", Operator: OperatorContains, Value: "new"}, false},
		{"contains string", Condition{Field: "trigger.status", Operator: OperatorContains, Value: "ai"}, true},
		{"exists present", Condition{Field: "trigger.premium", Operator: OperatorExists}, true},
		{"exists absent", Condition{Field: "trigger.coupon", Operator: OperatorExists}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := tt.condition.Evaluate(conditionContext())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCondition_AbsentField(t *testing.T) {
	t.Parallel()

	context := conditionContext()

	// Absent fields equal nothing.
	got, err := (&Condition{Field: "trigger.coupon", Operator: OperatorEq, Value: "x"}).Evaluate(context)
	require.NoError(t, err)
	assert.False(t, got)

	// ... so ne against an absent field is true.
	got, err = (&Condition{Field: "trigger.coupon", Operator: OperatorNe, Value: "x"}).Evaluate(context)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = (&Condition{Field: "trigger.coupon", Operator: OperatorGt, Value: 1}).Evaluate(context)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestCondition_TemplateValue(t *testing.T) {
	t.Parallel()

	context := map[string]any{
		"trigger": map[string]any{"expected": "paid", "status": "paid"},
	}

	condition := Condition{Field: "trigger.status", Operator: OperatorEq, Value: "{{trigger.expected}}"}

	got, err := condition.Evaluate(context)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestCondition_OrderedNonNumericErrors(t *testing.T) {
	t.Parallel()

	condition := Condition{Field: "trigger.status", Operator: OperatorGt, Value: 10}

	_, err := condition.Evaluate(conditionContext())
	require.ErrorIs(t, err, ErrInvalidCondition)
}

func TestCondition_EvaluateExpr(t *testing.T) {
	t.Parallel()

	got, err := (&Condition{
		Language:   ConditionLanguageExpr,
		Expression: `trigger.amount > 100 && trigger.status == "paid"`,
	}).Evaluate(conditionContext())
	require.NoError(t, err)
	assert.True(t, got)

	got, err = (&Condition{
		Language:   ConditionLanguageExpr,
		Expression: `"vip" in trigger.tags`,
	}).Evaluate(conditionContext())
	require.NoError(t, err)
	assert.True(t, got)
}

func TestCondition_ExprNonBooleanErrors(t *testing.T) {
	t.Parallel()

	_, err := (&Condition{
		Language:   ConditionLanguageExpr,
		Expression: "trigger.amount + 1",
	}).Evaluate(conditionContext())
	require.ErrorIs(t, err, ErrInvalidCondition)
}

func TestCondition_ExprSyntaxErrorFails(t *testing.T) {
	t.Parallel()

	_, err := (&Condition{
		Language:   ConditionLanguageExpr,
		Expression: "trigger.amount >",
	}).Evaluate(conditionContext())
	require.ErrorIs(t, err, ErrInvalidCondition)
}
