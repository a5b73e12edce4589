// Package infer derives JSON-Schema-shaped nodes from example values. It is
// the shared fallback for every extractor that lacks an explicit schema:
// Postman and Insomnia bodies, HAR captures and loose protobuf scalars.
package infer

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/nirholas/specbridge/internal/ir"
)

// maxDepth cuts off recursion into self-referential or absurdly deep example
// structures. Past the cutoff a value degrades to a bare object node.
const maxDepth = 32

// Infer derives a schema from a single example value. Pure and total: every
// input produces some schema, and the example always validates against it.
func Infer(example any) *ir.SchemaNode {
	return inferDepth(example, 0)
}

func inferDepth(example any, depth int) *ir.SchemaNode {
	if depth >= maxDepth {
		return &ir.SchemaNode{Type: ir.TypeObject}
	}
	switch v := example.(type) {
	case nil:
		return &ir.SchemaNode{Type: ir.TypeNull}
	case bool:
		return &ir.SchemaNode{Type: ir.TypeBoolean}
	case string:
		return &ir.SchemaNode{Type: ir.TypeString}
	case float64:
		// JSON numbers arrive as float64; integral values are integers.
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return &ir.SchemaNode{Type: ir.TypeInteger}
		}
		return &ir.SchemaNode{Type: ir.TypeNumber}
	case float32:
		return inferDepth(float64(v), depth)
	case int:
		return &ir.SchemaNode{Type: ir.TypeInteger}
	case int32:
		return &ir.SchemaNode{Type: ir.TypeInteger}
	case int64:
		return &ir.SchemaNode{Type: ir.TypeInteger}
	case json.Number:
		if _, err := v.Int64(); err == nil {
			return &ir.SchemaNode{Type: ir.TypeInteger}
		}
		return &ir.SchemaNode{Type: ir.TypeNumber}
	case []any:
		node := &ir.SchemaNode{Type: ir.TypeArray}
		if len(v) > 0 {
			// Arrays infer from their first element only.
			node.Items = inferDepth(v[0], depth+1)
		} else {
			node.Items = &ir.SchemaNode{}
		}
		return node
	case map[string]any:
		node := ir.NewObjectSchema()
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			node.Properties[k] = inferDepth(v[k], depth+1)
		}
		return node
	default:
		// Safe fallback for anything we cannot classify.
		return &ir.SchemaNode{Type: ir.TypeString}
	}
}

// Merge unions schemas observed for the same logical field across multiple
// samples. The first-seen definition of a property wins; on a type conflict
// the result widens (integer and number merge to number, anything else
// merges to string). Required-ness already recorded is never dropped by a
// later sample that happens to omit the field, but a property missing from a
// later sample is not retroactively added to required.
func Merge(schemas ...*ir.SchemaNode) *ir.SchemaNode {
	var out *ir.SchemaNode
	for _, s := range schemas {
		if s == nil {
			continue
		}
		if out == nil {
			out = cloneNode(s)
			continue
		}
		out = mergePair(out, s)
	}
	return out
}

func mergePair(a, b *ir.SchemaNode) *ir.SchemaNode {
	if a.Type != b.Type {
		return &ir.SchemaNode{Type: widen(a.Type, b.Type), Description: a.Description}
	}
	switch a.Type {
	case ir.TypeObject:
		for name, prop := range b.Properties {
			if existing, ok := a.Properties[name]; ok {
				a.Properties[name] = mergePair(existing, prop)
			} else {
				if a.Properties == nil {
					a.Properties = map[string]*ir.SchemaNode{}
				}
				a.Properties[name] = cloneNode(prop)
			}
		}
		return a
	case ir.TypeArray:
		if a.Items == nil {
			a.Items = cloneNode(b.Items)
		} else if b.Items != nil {
			a.Items = mergePair(a.Items, b.Items)
		}
		return a
	default:
		return a
	}
}

// widen picks the loosest type that accepts both operands.
func widen(a, b ir.SchemaType) ir.SchemaType {
	if a == b {
		return a
	}
	numeric := func(t ir.SchemaType) bool { return t == ir.TypeInteger || t == ir.TypeNumber }
	if numeric(a) && numeric(b) {
		return ir.TypeNumber
	}
	if a == ir.TypeNull {
		return b
	}
	if b == ir.TypeNull {
		return a
	}
	return ir.TypeString
}

func cloneNode(s *ir.SchemaNode) *ir.SchemaNode {
	if s == nil {
		return nil
	}
	out := *s
	if s.Properties != nil {
		out.Properties = make(map[string]*ir.SchemaNode, len(s.Properties))
		for k, v := range s.Properties {
			out.Properties[k] = cloneNode(v)
		}
	}
	out.Required = append([]string(nil), s.Required...)
	out.Items = cloneNode(s.Items)
	return &out
}
