package infer

import (
	"encoding/json"
	"testing"

	"github.com/nirholas/specbridge/internal/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInfer(t *testing.T) {
	tests := []struct {
		name     string
		example  any
		expected ir.SchemaType
	}{
		{name: "nil", example: nil, expected: ir.TypeNull},
		{name: "bool", example: true, expected: ir.TypeBoolean},
		{name: "string", example: "hello", expected: ir.TypeString},
		{name: "integral float", example: float64(5), expected: ir.TypeInteger},
		{name: "fractional float", example: 5.5, expected: ir.TypeNumber},
		{name: "int", example: 42, expected: ir.TypeInteger},
		{name: "array", example: []any{"a", "b"}, expected: ir.TypeArray},
		{name: "object", example: map[string]any{"k": "v"}, expected: ir.TypeObject},
		{name: "unclassifiable", example: struct{}{}, expected: ir.TypeString},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := Infer(tt.example)
			require.NotNil(t, node)
			assert.Equal(t, tt.expected, node.Type)
		})
	}
}

func TestInfer_ArrayUsesFirstElement(t *testing.T) {
	node := Infer([]any{float64(1), "later elements are ignored"})
	require.NotNil(t, node.Items)
	assert.Equal(t, ir.TypeInteger, node.Items.Type)

	empty := Infer([]any{})
	require.NotNil(t, empty.Items)
	assert.Empty(t, empty.Items.Type)
}

func TestInfer_NestedObject(t *testing.T) {
	example := map[string]any{
		"user": map[string]any{
			"id":    float64(7),
			"name":  "alice",
			"score": 9.5,
		},
		"tags": []any{"a"},
	}
	node := Infer(example)
	require.Equal(t, ir.TypeObject, node.Type)

	user := node.Properties["user"]
	require.NotNil(t, user)
	assert.Equal(t, ir.TypeInteger, user.Properties["id"].Type)
	assert.Equal(t, ir.TypeString, user.Properties["name"].Type)
	assert.Equal(t, ir.TypeNumber, user.Properties["score"].Type)

	tags := node.Properties["tags"]
	require.NotNil(t, tags)
	assert.Equal(t, ir.TypeArray, tags.Type)
	assert.Equal(t, ir.TypeString, tags.Items.Type)
}

func TestInfer_DeepStructureTerminates(t *testing.T) {
	// A structure deeper than the recursion cutoff must still infer.
	deep := any("leaf")
	for i := 0; i < 100; i++ {
		deep = map[string]any{"next": deep}
	}
	node := Infer(deep)
	require.NotNil(t, node)
	assert.Equal(t, ir.TypeObject, node.Type)
}

// Round-trip guarantee: a schema inferred from an example must accept the
// example it was inferred from.
func TestInfer_RoundTrip(t *testing.T) {
	examples := []string{
		`{"id": 1, "name": "widget", "price": 9.99, "tags": ["a", "b"], "meta": {"stock": 3}}`,
		`{"empty": [], "nothing": null, "flag": false}`,
		`[{"a": 1}, {"a": 2}]`,
		`"just a string"`,
	}
	for _, raw := range examples {
		t.Run(raw, func(t *testing.T) {
			var example any
			require.NoError(t, json.Unmarshal([]byte(raw), &example))
			schema := Infer(example)
			assert.NoError(t, ir.ValidateExample(schema, example))
		})
	}
}

func TestMerge(t *testing.T) {
	t.Run("widens integer and number", func(t *testing.T) {
		merged := Merge(Infer(float64(1)), Infer(1.5))
		assert.Equal(t, ir.TypeNumber, merged.Type)
	})

	t.Run("first seen property wins", func(t *testing.T) {
		a := Infer(map[string]any{"id": float64(1)})
		b := Infer(map[string]any{"id": "str", "extra": true})
		merged := Merge(a, b)
		// id conflicts: integer vs string widens to string
		assert.Equal(t, ir.TypeString, merged.Properties["id"].Type)
		// properties only seen later are still added
		assert.Equal(t, ir.TypeBoolean, merged.Properties["extra"].Type)
	})

	t.Run("null widens to the other type", func(t *testing.T) {
		merged := Merge(Infer(nil), Infer("x"))
		assert.Equal(t, ir.TypeString, merged.Type)
	})

	t.Run("keeps required signals", func(t *testing.T) {
		a := ir.NewObjectSchema()
		a.SetProperty("id", &ir.SchemaNode{Type: ir.TypeInteger}, true)
		b := ir.NewObjectSchema()
		b.SetProperty("name", &ir.SchemaNode{Type: ir.TypeString}, false)
		merged := Merge(a, b)
		assert.True(t, merged.IsRequired("id"))
	})

	t.Run("does not mutate inputs", func(t *testing.T) {
		a := Infer(map[string]any{"x": float64(1)})
		b := Infer(map[string]any{"y": "s"})
		Merge(a, b)
		assert.NotContains(t, a.Properties, "y")
	})

	t.Run("nil operands are skipped", func(t *testing.T) {
		merged := Merge(nil, Infer("x"), nil)
		assert.Equal(t, ir.TypeString, merged.Type)
	})
}
