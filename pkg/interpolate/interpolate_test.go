package interpolate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext() map[string]any {
	return map[string]any{
		"trigger": map[string]any{
			"order_id": "ord-42",
			"amount":   19.99,
			"customer": map[string]any{
				"name":    "Ada",
				"premium": true,
			},
			"items": []any{
				map[string]any{"sku": "A-1"},
				map[string]any{"sku": "B-2"},
			},
		},
		"step_1": map[string]any{
			"status_code": 200,
		},
	}
}

func TestResolve_WholeStringKeepsNativeType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		template string
		want     any
	}{
		{"string value", "{{trigger.order_id}}", "ord-42"},
		{"float value", "{{trigger.amount}}", 19.99},
		{"bool value", "{{trigger.customer.premium}}", true},
		{"int value", "{{step_1.status_code}}", 200},
		{"map value", "{{trigger.customer}}", map[string]any{"name": "Ada", "premium": true}},
		{"slice index", "{{trigger.items.1.sku}}", "B-2"},
		{"whitespace inside braces", "{{ trigger.order_id }}", "ord-42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Resolve(tt.template, testContext()))
		})
	}
}

func TestResolve_EmbeddedReferencesStringify(t *testing.T) {
	t.Parallel()

	got := Resolve("order {{trigger.order_id}} for {{trigger.customer.name}}", testContext())
	assert.Equal(t, "order ord-42 for Ada", got)

	got = Resolve("amount: {{trigger.amount}}", testContext())
	assert.Equal(t, "amount: 19.99", got)
}

func TestResolve_UnresolvedReferenceLeftVerbatim(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "{{missing.path}}", Resolve("{{missing.path}}", testContext()))
	assert.Equal(t, "value: {{missing.path}}", Resolve("value: {{missing.path}}", testContext()))
}

func TestResolve_Idempotent(t *testing.T) {
	t.Parallel()

	context := testContext()
	input := map[string]any{
		"url":     "https://api.example.com/orders/{{trigger.order_id}}",
		"missing": "{{not.there}}",
		"static":  42,
	}

	once := Resolve(input, context)
	twice := Resolve(once, context)

	assert.Equal(t, once, twice)
}

func TestResolve_Deterministic(t *testing.T) {
	t.Parallel()

	context := testContext()
	input := map[string]any{"a": "{{trigger.amount}}", "b": []any{"{{trigger.order_id}}"}}

	assert.Equal(t, Resolve(input, context), Resolve(input, context))
}

func TestResolve_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	input := map[string]any{"key": "{{trigger.order_id}}"}
	Resolve(input, testContext())

	assert.Equal(t, "{{trigger.order_id}}", input["key"])
}

func TestResolveConfig_NilConfig(t *testing.T) {
	t.Parallel()

	resolved := ResolveConfig(nil, testContext())
	require.NotNil(t, resolved)
	assert.Empty(t, resolved)
}

func TestLookup(t *testing.T) {
	t.Parallel()

	context := testContext()

	value, ok := Lookup(context, "trigger.customer.name")
	require.True(t, ok)
	assert.Equal(t, "Ada", value)

	_, ok = Lookup(context, "trigger.customer.age")
	assert.False(t, ok)

	_, ok = Lookup(context, "trigger.items.9")
	assert.False(t, ok)

	_, ok = Lookup(context, "trigger.items.x")
	assert.False(t, ok)

	_, ok = Lookup(context, "")
	assert.False(t, ok)
}

func TestLookup_PresentNilDistinctFromAbsent(t *testing.T) {
	t.Parallel()

	context := map[string]any{"key": nil}

	value, ok := Lookup(context, "key")
	require.True(t, ok)
	assert.Nil(t, value)
}

func TestStringify(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", Stringify(nil))
	assert.Equal(t, "text", Stringify("text"))
	assert.Equal(t, "true", Stringify(true))
	assert.Equal(t, "3.5", Stringify(3.5))
	assert.Equal(t, "7", Stringify(7))
	assert.Equal(t, `["a","b"]`, Stringify([]any{"a", "b"}))
}
