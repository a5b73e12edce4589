package graphql

// Internal schema representation shared by the SDL and introspection
// front-ends. Only what can be called is modeled in depth: arguments are
// fully typed, return types stay named placeholders.

// OperationType names a GraphQL root operation kind.
type OperationType string

const (
	OpQuery        OperationType = "query"
	OpMutation     OperationType = "mutation"
	OpSubscription OperationType = "subscription"
)

// TypeRef is a possibly wrapped GraphQL type reference.
type TypeRef struct {
	Name    string // set for named types
	NonNull bool
	List    bool
	OfType  *TypeRef // element type for lists, inner type for non-null
}

// Unwrap strips non-null and list wrappers down to the named type.
func (t *TypeRef) Unwrap() *TypeRef {
	cur := t
	for cur != nil && cur.Name == "" && cur.OfType != nil {
		cur = cur.OfType
	}
	return cur
}

// Argument is one field argument.
type Argument struct {
	Name        string
	Description string
	Type        *TypeRef
	HasDefault  bool
	Default     string
}

// Field is one root-type field, the unit that becomes a tool.
type Field struct {
	Name        string
	Description string
	Args        []Argument
	ReturnType  *TypeRef
	Deprecated  bool
}

// InputField is one field of an input object type.
type InputField struct {
	Name        string
	Description string
	Type        *TypeRef
	HasDefault  bool
}

// Schema is the converged representation both input variants produce.
type Schema struct {
	Query        []Field
	Mutation     []Field
	Subscription []Field
	Inputs       map[string][]InputField
	Enums        map[string][]string
	Scalars      map[string]bool
	Description  string
}

func newSchema() *Schema {
	return &Schema{
		Inputs:  map[string][]InputField{},
		Enums:   map[string][]string{},
		Scalars: map[string]bool{},
	}
}
