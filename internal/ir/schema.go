package ir

// SchemaType enumerates the JSON-Schema-shaped kinds a SchemaNode can take.
type SchemaType string

const (
	TypeString  SchemaType = "string"
	TypeNumber  SchemaType = "number"
	TypeInteger SchemaType = "integer"
	TypeBoolean SchemaType = "boolean"
	TypeNull    SchemaType = "null"
	TypeArray   SchemaType = "array"
	TypeObject  SchemaType = "object"
)

// SchemaNode is the recursive schema representation shared by every
// extractor. A node is exactly one of: a typed node (Type set), an enum
// (Enum set), a oneOf (OneOf set) or a reference (Ref set).
type SchemaNode struct {
	Type        SchemaType             `json:"type,omitempty"`
	Description string                 `json:"description,omitempty"`
	Format      string                 `json:"format,omitempty"`
	Properties  map[string]*SchemaNode `json:"properties,omitempty"`
	Required    []string               `json:"required,omitempty"`
	Items       *SchemaNode            `json:"items,omitempty"`
	Enum        []any                  `json:"enum,omitempty"`
	OneOf       []*SchemaNode          `json:"oneOf,omitempty"`
	Ref         string                 `json:"$ref,omitempty"`
	Default     any                    `json:"default,omitempty"`
	Example     any                    `json:"example,omitempty"`
}

// NewObjectSchema returns an empty object node. Every tool's input schema
// starts from one of these: the top level is always type object, even for
// single-scalar-argument tools.
func NewObjectSchema() *SchemaNode {
	return &SchemaNode{
		Type:       TypeObject,
		Properties: map[string]*SchemaNode{},
	}
}

// SetProperty adds a named property, marking it required when asked. Adding
// the same name twice keeps the first definition but still records the
// required flag.
func (s *SchemaNode) SetProperty(name string, node *SchemaNode, required bool) {
	if s.Properties == nil {
		s.Properties = map[string]*SchemaNode{}
	}
	if _, ok := s.Properties[name]; !ok {
		s.Properties[name] = node
	}
	if required && !s.IsRequired(name) {
		s.Required = append(s.Required, name)
	}
}

// IsRequired reports whether name is in the required list.
func (s *SchemaNode) IsRequired(name string) bool {
	for _, r := range s.Required {
		if r == name {
			return true
		}
	}
	return false
}

// ToMap renders the node as a plain JSON-Schema map, the shape template
// backends and MCP tool registration expect.
func (s *SchemaNode) ToMap() map[string]any {
	if s == nil {
		return nil
	}
	m := map[string]any{}
	if s.Ref != "" {
		m["$ref"] = s.Ref
		if s.Description != "" {
			m["description"] = s.Description
		}
		return m
	}
	if len(s.OneOf) > 0 {
		variants := make([]any, 0, len(s.OneOf))
		for _, v := range s.OneOf {
			variants = append(variants, v.ToMap())
		}
		m["oneOf"] = variants
		if s.Description != "" {
			m["description"] = s.Description
		}
		return m
	}
	if s.Type != "" {
		m["type"] = string(s.Type)
	}
	if s.Description != "" {
		m["description"] = s.Description
	}
	if s.Format != "" {
		m["format"] = s.Format
	}
	if len(s.Enum) > 0 {
		m["enum"] = s.Enum
	}
	if s.Default != nil {
		m["default"] = s.Default
	}
	if s.Example != nil {
		m["example"] = s.Example
	}
	if len(s.Properties) > 0 {
		props := map[string]any{}
		for name, p := range s.Properties {
			props[name] = p.ToMap()
		}
		m["properties"] = props
	} else if s.Type == TypeObject {
		m["properties"] = map[string]any{}
	}
	if len(s.Required) > 0 {
		m["required"] = append([]string(nil), s.Required...)
	}
	if s.Items != nil {
		m["items"] = s.Items.ToMap()
	}
	return m
}
