package protobuf

import (
	"fmt"

	"github.com/nirholas/specbridge/internal/ir"
)

// scalarTable covers every protobuf scalar kind.
var scalarTable = map[string]*ir.SchemaNode{
	"double":   {Type: ir.TypeNumber},
	"float":    {Type: ir.TypeNumber},
	"int32":    {Type: ir.TypeInteger},
	"int64":    {Type: ir.TypeInteger},
	"uint32":   {Type: ir.TypeInteger},
	"uint64":   {Type: ir.TypeInteger},
	"sint32":   {Type: ir.TypeInteger},
	"sint64":   {Type: ir.TypeInteger},
	"fixed32":  {Type: ir.TypeInteger},
	"fixed64":  {Type: ir.TypeInteger},
	"sfixed32": {Type: ir.TypeInteger},
	"sfixed64": {Type: ir.TypeInteger},
	"bool":     {Type: ir.TypeBoolean},
	"string":   {Type: ir.TypeString},
	"bytes":    {Type: ir.TypeString, Format: "byte"},
}

// wellKnownTable maps google.protobuf well-known types to their JSON
// projections.
var wellKnownTable = map[string]*ir.SchemaNode{
	"google.protobuf.Timestamp":   {Type: ir.TypeString, Format: "date-time"},
	"google.protobuf.Duration":    {Type: ir.TypeString, Format: "duration"},
	"google.protobuf.StringValue": {Type: ir.TypeString},
	"google.protobuf.BytesValue":  {Type: ir.TypeString, Format: "byte"},
	"google.protobuf.BoolValue":   {Type: ir.TypeBoolean},
	"google.protobuf.Int32Value":  {Type: ir.TypeInteger},
	"google.protobuf.Int64Value":  {Type: ir.TypeInteger},
	"google.protobuf.UInt32Value": {Type: ir.TypeInteger},
	"google.protobuf.UInt64Value": {Type: ir.TypeInteger},
	"google.protobuf.FloatValue":  {Type: ir.TypeNumber},
	"google.protobuf.DoubleValue": {Type: ir.TypeNumber},
	"google.protobuf.Struct":      {Type: ir.TypeObject},
	"google.protobuf.Value":       {Type: ir.TypeObject},
	"google.protobuf.Empty":       {Type: ir.TypeObject},
	"google.protobuf.FieldMask":   {Type: ir.TypeString},
	"google.protobuf.Any":         {Type: ir.TypeObject},
}

// MessageTable resolves type names to declarations and memoizes each
// message's schema projection. The table is threaded through one conversion
// invocation, never a package global, which also solves forward references:
// it is fully populated before any lookup runs.
type MessageTable struct {
	pkg      string
	messages map[string]*Message
	enums    map[string]*Enum
	memo     map[string]*ir.SchemaNode
	building map[string]bool
}

// NewMessageTable indexes every message and enum in the file, including
// nested declarations, under both their short and fully qualified names.
func NewMessageTable(file *File) *MessageTable {
	t := &MessageTable{
		pkg:      file.Package,
		messages: map[string]*Message{},
		enums:    map[string]*Enum{},
		memo:     map[string]*ir.SchemaNode{},
		building: map[string]bool{},
	}
	var walk func(msgs []*Message)
	walk = func(msgs []*Message) {
		for _, m := range msgs {
			t.messages[m.Name] = m
			t.messages[m.FullName] = m
			if file.Package != "" {
				t.messages[file.Package+"."+m.FullName] = m
			}
			for _, e := range m.Enums {
				t.enums[e.Name] = e
				t.enums[e.FullName] = e
			}
			walk(m.Messages)
		}
	}
	walk(file.Messages)
	for _, e := range file.Enums {
		t.enums[e.Name] = e
		if file.Package != "" {
			t.enums[file.Package+"."+e.Name] = e
		}
	}
	return t
}

// Lookup returns the message registered under name, if any.
func (t *MessageTable) Lookup(name string) (*Message, bool) {
	m, ok := t.messages[name]
	return m, ok
}

// Schema projects a message to its JSON-Schema shape. Projections are
// memoized by name; recursive references collapse to a $ref so derivation
// terminates.
func (t *MessageTable) Schema(typeName string) *ir.SchemaNode {
	if node := lookupScalar(typeName); node != nil {
		return node
	}
	if enum, ok := t.enums[typeName]; ok {
		return enumSchema(enum)
	}
	msg, ok := t.messages[typeName]
	if !ok {
		// Unresolvable type: degrade to an annotated object.
		return &ir.SchemaNode{
			Type:        ir.TypeObject,
			Description: fmt.Sprintf("Unresolved message type %s", typeName),
		}
	}
	if cached, ok := t.memo[msg.FullName]; ok {
		return cached
	}
	if t.building[msg.FullName] {
		return &ir.SchemaNode{Ref: "#/$defs/" + msg.FullName}
	}
	t.building[msg.FullName] = true
	node := t.messageSchema(msg)
	delete(t.building, msg.FullName)
	t.memo[msg.FullName] = node
	return node
}

func (t *MessageTable) messageSchema(msg *Message) *ir.SchemaNode {
	node := ir.NewObjectSchema()
	for _, field := range msg.Fields {
		node.Properties[field.Name] = t.fieldSchema(field)
	}
	return node
}

func (t *MessageTable) fieldSchema(field Field) *ir.SchemaNode {
	if field.IsMap {
		// JSON projection of map<K,V> is an object keyed by string.
		return &ir.SchemaNode{
			Type:        ir.TypeObject,
			Description: fmt.Sprintf("map<%s, %s>", field.KeyType, field.ValType),
		}
	}
	inner := t.Schema(field.Type)
	if field.Repeated {
		return &ir.SchemaNode{Type: ir.TypeArray, Items: inner}
	}
	return inner
}

func lookupScalar(typeName string) *ir.SchemaNode {
	if node, ok := scalarTable[typeName]; ok {
		copied := *node
		return &copied
	}
	if node, ok := wellKnownTable[typeName]; ok {
		copied := *node
		return &copied
	}
	return nil
}

func enumSchema(enum *Enum) *ir.SchemaNode {
	node := &ir.SchemaNode{Type: ir.TypeString}
	for _, v := range enum.Values {
		node.Enum = append(node.Enum, v.Name)
	}
	return node
}
