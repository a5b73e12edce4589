package graphql

import (
	"encoding/json"
	"fmt"

	"github.com/nirholas/specbridge/internal/ir"
	"github.com/spf13/cast"
)

// parseIntrospection converts an introspection-JSON result into the same
// internal representation the SDL scanner produces, so both variants feed
// one extraction path.
func parseIntrospection(data []byte) (*Schema, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ir.MalformedSpecError{Format: ir.FormatGraphQL, Cause: err}
	}
	root := doc
	if inner, ok := doc["data"].(map[string]any); ok {
		root = inner
	}
	rawSchema, ok := root["__schema"].(map[string]any)
	if !ok {
		return nil, &ir.MalformedSpecError{
			Format: ir.FormatGraphQL,
			Cause:  fmt.Errorf("missing __schema key"),
		}
	}

	schema := newSchema()
	schema.Description = cast.ToString(rawSchema["description"])

	rootFor := map[string]OperationType{}
	for key, op := range map[string]OperationType{
		"queryType":        OpQuery,
		"mutationType":     OpMutation,
		"subscriptionType": OpSubscription,
	} {
		if t, ok := rawSchema[key].(map[string]any); ok {
			if name := cast.ToString(t["name"]); name != "" {
				rootFor[name] = op
			}
		}
	}

	types, _ := rawSchema["types"].([]any)
	for _, rawType := range types {
		t, ok := rawType.(map[string]any)
		if !ok {
			continue
		}
		name := cast.ToString(t["name"])
		kind := cast.ToString(t["kind"])
		switch kind {
		case "OBJECT":
			op, isRoot := rootFor[name]
			if !isRoot {
				continue
			}
			fields := introspectionFields(t)
			switch op {
			case OpQuery:
				schema.Query = append(schema.Query, fields...)
			case OpMutation:
				schema.Mutation = append(schema.Mutation, fields...)
			case OpSubscription:
				schema.Subscription = append(schema.Subscription, fields...)
			}
		case "INPUT_OBJECT":
			schema.Inputs[name] = introspectionInputFields(t)
		case "ENUM":
			if isBuiltin(name) {
				continue
			}
			var values []string
			if enumValues, ok := t["enumValues"].([]any); ok {
				for _, ev := range enumValues {
					if m, ok := ev.(map[string]any); ok {
						values = append(values, cast.ToString(m["name"]))
					}
				}
			}
			schema.Enums[name] = values
		case "SCALAR":
			if !isBuiltinScalar(name) && !isBuiltin(name) {
				schema.Scalars[name] = true
			}
		}
	}
	return schema, nil
}

func introspectionFields(t map[string]any) []Field {
	raw, _ := t["fields"].([]any)
	var out []Field
	for _, rf := range raw {
		f, ok := rf.(map[string]any)
		if !ok {
			continue
		}
		field := Field{
			Name:        cast.ToString(f["name"]),
			Description: cast.ToString(f["description"]),
			Deprecated:  cast.ToBool(f["isDeprecated"]),
			ReturnType:  introspectionTypeRef(f["type"]),
		}
		if args, ok := f["args"].([]any); ok {
			for _, ra := range args {
				a, ok := ra.(map[string]any)
				if !ok {
					continue
				}
				arg := Argument{
					Name:        cast.ToString(a["name"]),
					Description: cast.ToString(a["description"]),
					Type:        introspectionTypeRef(a["type"]),
				}
				if dv, present := a["defaultValue"]; present && dv != nil {
					arg.HasDefault = true
					arg.Default = cast.ToString(dv)
				}
				field.Args = append(field.Args, arg)
			}
		}
		if field.Name != "" && !isBuiltin(field.Name) {
			out = append(out, field)
		}
	}
	return out
}

func introspectionInputFields(t map[string]any) []InputField {
	raw, _ := t["inputFields"].([]any)
	var out []InputField
	for _, rf := range raw {
		f, ok := rf.(map[string]any)
		if !ok {
			continue
		}
		field := InputField{
			Name:        cast.ToString(f["name"]),
			Description: cast.ToString(f["description"]),
			Type:        introspectionTypeRef(f["type"]),
		}
		if dv, present := f["defaultValue"]; present && dv != nil {
			field.HasDefault = true
		}
		if field.Name != "" {
			out = append(out, field)
		}
	}
	return out
}

// introspectionTypeRef converts the nested {kind, name, ofType} shape.
func introspectionTypeRef(raw any) *TypeRef {
	t, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	kind := cast.ToString(t["kind"])
	switch kind {
	case "NON_NULL":
		return &TypeRef{NonNull: true, OfType: introspectionTypeRef(t["ofType"])}
	case "LIST":
		return &TypeRef{List: true, OfType: introspectionTypeRef(t["ofType"])}
	default:
		return &TypeRef{Name: cast.ToString(t["name"])}
	}
}

func isBuiltin(name string) bool {
	return len(name) >= 2 && name[0] == '_' && name[1] == '_'
}

func isBuiltinScalar(name string) bool {
	switch name {
	case "Int", "Float", "String", "Boolean", "ID":
		return true
	}
	return false
}
