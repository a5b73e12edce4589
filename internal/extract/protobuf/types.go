package protobuf

// Parsed mirror of a .proto file. The scanner is a brace-matching line
// scanner, not a full grammar: it extracts the declarations tool conversion
// needs and skips the rest.

// File is one parsed .proto source.
type File struct {
	Package  string
	Imports  []string
	Options  map[string]string
	Messages []*Message
	Enums    []*Enum
	Services []*Service
}

// Message is a message declaration, possibly nested.
type Message struct {
	Name     string
	FullName string // dotted, including enclosing messages
	Fields   []Field
	Messages []*Message
	Enums    []*Enum
}

// Field is one message field with its wire number and modifiers.
type Field struct {
	Name     string
	Type     string
	Number   int
	Repeated bool
	Optional bool
	IsMap    bool
	KeyType  string
	ValType  string
}

// Enum is an enum declaration.
type Enum struct {
	Name     string
	FullName string
	Values   []EnumValue
}

// EnumValue pairs an enum value name with its number.
type EnumValue struct {
	Name   string
	Number int
}

// Service is a service declaration with its rpc methods.
type Service struct {
	Name string
	RPCs []RPC
}

// RPC is one rpc declaration. Streaming flags are preserved even though
// tool-call semantics are unary.
type RPC struct {
	Name            string
	InputType       string
	OutputType      string
	ClientStreaming bool
	ServerStreaming bool
	HTTPRule        *HTTPRule
}

// HTTPRule is a google.api.http transcoding annotation.
type HTTPRule struct {
	Method string
	Path   string
	Body   string
}
