// Package graphql extracts callable tools from GraphQL schemas. SDL text and
// introspection JSON are equivalent inputs: both lower into one internal
// representation before tools are built. Only inputs are fully typed;
// object, interface and union return types stay named placeholders since a
// tool definition only needs to describe what can be called.
package graphql

import (
	"fmt"
	"strings"

	"github.com/nirholas/specbridge/internal/ir"
	"github.com/nirholas/specbridge/internal/logger"
	"go.uber.org/zap"
)

// scalarTable is the table-driven mapping from GraphQL scalars to schema
// kinds. Unknown custom scalars degrade to string with a descriptive note.
var scalarTable = map[string]ir.SchemaType{
	"Int":     ir.TypeInteger,
	"Float":   ir.TypeNumber,
	"String":  ir.TypeString,
	"Boolean": ir.TypeBoolean,
	"ID":      ir.TypeString,
}

// inputDepthLimit bounds recursion through mutually referencing input types.
const inputDepthLimit = 16

// Extract parses SDL or introspection JSON and returns one tool per root
// field: field_name for queries, mutate_field_name for mutations,
// subscribe_field_name for subscriptions.
func Extract(data []byte) (*ir.UnifiedParseResult, error) {
	text := strings.TrimSpace(string(data))
	var schema *Schema
	var err error
	if strings.HasPrefix(text, "{") {
		schema, err = parseIntrospection([]byte(text))
	} else {
		schema, err = parseSDL(text)
	}
	if err != nil {
		return nil, err
	}

	result := &ir.UnifiedParseResult{
		Format: ir.FormatGraphQL,
		Info:   ir.Info{Description: schema.Description},
	}
	for _, field := range schema.Query {
		result.Tools = append(result.Tools, buildTool(schema, field, OpQuery))
	}
	for _, field := range schema.Mutation {
		result.Tools = append(result.Tools, buildTool(schema, field, OpMutation))
	}
	for _, field := range schema.Subscription {
		result.Tools = append(result.Tools, buildTool(schema, field, OpSubscription))
	}
	logger.Info("Extracted GraphQL tools", zap.Int("count", len(result.Tools)))
	return result, nil
}

func buildTool(schema *Schema, field Field, op OperationType) ir.ToolDefinition {
	input := ir.NewObjectSchema()
	for _, arg := range field.Args {
		node := typeToSchema(schema, arg.Type, 0)
		if node.Description == "" {
			node.Description = arg.Description
		}
		// Required exactly when non-null with no declared default.
		required := arg.Type != nil && arg.Type.NonNull && !arg.HasDefault
		input.SetProperty(arg.Name, node, required)
	}

	returnType := ""
	if named := field.ReturnType.Unwrap(); named != nil {
		returnType = named.Name
	}
	return ir.ToolDefinition{
		Name:        toolName(field.Name, op),
		Description: describeField(field, op, returnType),
		InputSchema: input,
		Metadata: ir.Metadata{
			Format:     ir.FormatGraphQL,
			Deprecated: field.Deprecated,
			GraphQL: &ir.GraphQLBinding{
				OperationType: string(op),
				FieldName:     field.Name,
				ReturnType:    returnType,
			},
		},
	}
}

func toolName(field string, op OperationType) string {
	name := toSnake(field)
	switch op {
	case OpMutation:
		return "mutate_" + name
	case OpSubscription:
		return "subscribe_" + name
	default:
		return name
	}
}

func describeField(field Field, op OperationType, returnType string) string {
	if field.Description != "" {
		return field.Description
	}
	verb := map[OperationType]string{
		OpQuery:        "Query",
		OpMutation:     "Mutation",
		OpSubscription: "Subscription",
	}[op]
	if returnType != "" {
		return fmt.Sprintf("%s %s returning %s", verb, field.Name, returnType)
	}
	return fmt.Sprintf("%s %s", verb, field.Name)
}

// typeToSchema lowers a type reference into an IR node. Non-null wrappers
// only affect required-ness and are transparent here; lists become arrays;
// enums and input objects resolve through the schema's tables.
func typeToSchema(schema *Schema, ref *TypeRef, depth int) *ir.SchemaNode {
	if ref == nil || depth >= inputDepthLimit {
		return &ir.SchemaNode{Type: ir.TypeString}
	}
	switch {
	case ref.NonNull:
		return typeToSchema(schema, ref.OfType, depth)
	case ref.List:
		return &ir.SchemaNode{Type: ir.TypeArray, Items: typeToSchema(schema, ref.OfType, depth+1)}
	}

	name := ref.Name
	if kind, ok := scalarTable[name]; ok {
		return &ir.SchemaNode{Type: kind}
	}
	if values, ok := schema.Enums[name]; ok {
		node := &ir.SchemaNode{Type: ir.TypeString}
		for _, v := range values {
			node.Enum = append(node.Enum, v)
		}
		return node
	}
	if fields, ok := schema.Inputs[name]; ok {
		node := ir.NewObjectSchema()
		node.Description = name
		for _, f := range fields {
			child := typeToSchema(schema, f.Type, depth+1)
			if child.Description == "" {
				child.Description = f.Description
			}
			required := f.Type != nil && f.Type.NonNull && !f.HasDefault
			node.SetProperty(f.Name, child, required)
		}
		return node
	}
	// Unknown custom scalar: degrade to string with a note.
	return &ir.SchemaNode{
		Type:        ir.TypeString,
		Description: fmt.Sprintf("Custom scalar %s (treated as string)", name),
	}
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				prev := rune(s[i-1])
				if prev >= 'a' && prev <= 'z' || prev >= '0' && prev <= '9' {
					b.WriteByte('_')
				}
			}
			b.WriteRune(r - 'A' + 'a')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
