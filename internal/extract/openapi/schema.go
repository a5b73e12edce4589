package openapi

import (
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/nirholas/specbridge/internal/ir"
)

// schemaDepthLimit bounds recursion into self-referential component schemas.
// Past the limit a schema degrades to a bare object node.
const schemaDepthLimit = 24

// convertSchemaRef lowers a kin-openapi schema into an IR node. Cycles are
// broken by tracking visited schema values: a revisited schema collapses to
// an object node with no further expansion.
func convertSchemaRef(ref *openapi3.SchemaRef) *ir.SchemaNode {
	return convertSchema(ref, map[*openapi3.Schema]bool{}, 0)
}

func convertSchema(ref *openapi3.SchemaRef, visited map[*openapi3.Schema]bool, depth int) *ir.SchemaNode {
	if ref == nil || ref.Value == nil {
		return &ir.SchemaNode{Type: ir.TypeObject}
	}
	val := ref.Value
	if visited[val] || depth >= schemaDepthLimit {
		return &ir.SchemaNode{Type: ir.TypeObject, Description: val.Description}
	}
	visited[val] = true
	defer delete(visited, val)

	// allOf merges subschemas into one object.
	if len(val.AllOf) > 0 {
		merged := ir.NewObjectSchema()
		merged.Description = val.Description
		for _, sub := range val.AllOf {
			subNode := convertSchema(sub, visited, depth+1)
			for name, prop := range subNode.Properties {
				merged.SetProperty(name, prop, subNode.IsRequired(name))
			}
		}
		return merged
	}

	// oneOf/anyOf keep their variants; consumers may flatten further.
	if len(val.OneOf) > 0 || len(val.AnyOf) > 0 {
		variants := val.OneOf
		if len(variants) == 0 {
			variants = val.AnyOf
		}
		node := &ir.SchemaNode{Description: val.Description}
		for _, sub := range variants {
			node.OneOf = append(node.OneOf, convertSchema(sub, visited, depth+1))
		}
		return node
	}

	node := &ir.SchemaNode{
		Description: val.Description,
		Format:      val.Format,
		Default:     val.Default,
		Example:     val.Example,
	}
	if len(val.Enum) > 0 {
		node.Enum = append(node.Enum, val.Enum...)
	}

	switch {
	case val.Type == nil:
		node.Type = ir.TypeObject
	case val.Type.Includes(openapi3.TypeArray):
		node.Type = ir.TypeArray
		if val.Items != nil {
			node.Items = convertSchema(val.Items, visited, depth+1)
		}
	case val.Type.Includes(openapi3.TypeObject):
		node.Type = ir.TypeObject
		node.Properties = map[string]*ir.SchemaNode{}
		for name, prop := range val.Properties {
			node.Properties[name] = convertSchema(prop, visited, depth+1)
		}
		node.Required = append([]string(nil), val.Required...)
	case val.Type.Includes(openapi3.TypeInteger):
		node.Type = ir.TypeInteger
	case val.Type.Includes(openapi3.TypeNumber):
		node.Type = ir.TypeNumber
	case val.Type.Includes(openapi3.TypeBoolean):
		node.Type = ir.TypeBoolean
	case val.Type.Includes(openapi3.TypeNull):
		node.Type = ir.TypeNull
	default:
		node.Type = ir.TypeString
	}
	return node
}
