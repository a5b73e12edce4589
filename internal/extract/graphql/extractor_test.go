package graphql

import (
	"errors"
	"testing"

	"github.com/nirholas/specbridge/internal/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sdl = `
"""Schema docs are stripped."""
scalar DateTime

enum Role {
  ADMIN
  MEMBER
}

input CreateUserInput {
  name: String!
  email: String
  role: Role = MEMBER
}

type User {
  id: ID!
  name: String!
}

type Query {
  users(limit: Int = 10, role: Role): [User!]!
  user(id: ID!): User
}

type Mutation {
  createUser(input: CreateUserInput!): User
}

type Subscription {
  userUpdated(id: ID!): User
}
`

func extractSDL(t *testing.T) *ir.UnifiedParseResult {
	t.Helper()
	result, err := Extract([]byte(sdl))
	require.NoError(t, err)
	return result
}

func findTool(t *testing.T, result *ir.UnifiedParseResult, name string) ir.ToolDefinition {
	t.Helper()
	for _, tool := range result.Tools {
		if tool.Name == name {
			return tool
		}
	}
	t.Fatalf("tool %q not found", name)
	return ir.ToolDefinition{}
}

func TestExtract_SDLToolNames(t *testing.T) {
	result := extractSDL(t)
	var names []string
	for _, tool := range result.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"users", "user", "mutate_create_user", "subscribe_user_updated"}, names)
}

func TestExtract_MutationRequiredInput(t *testing.T) {
	result := extractSDL(t)
	tool := findTool(t, result, "mutate_create_user")

	require.NotNil(t, tool.InputSchema)
	assert.Equal(t, ir.TypeObject, tool.InputSchema.Type)
	assert.True(t, tool.InputSchema.IsRequired("input"))

	input := tool.InputSchema.Properties["input"]
	require.NotNil(t, input)
	assert.Equal(t, ir.TypeObject, input.Type)
	// name is non-null with no default: required. email is nullable, role
	// has a default: neither is required.
	assert.True(t, input.IsRequired("name"))
	assert.False(t, input.IsRequired("email"))
	assert.False(t, input.IsRequired("role"))

	require.NotNil(t, tool.Metadata.GraphQL)
	assert.Equal(t, "mutation", tool.Metadata.GraphQL.OperationType)
	assert.Equal(t, "createUser", tool.Metadata.GraphQL.FieldName)
	assert.Equal(t, "User", tool.Metadata.GraphQL.ReturnType)
}

func TestExtract_ArgumentTypes(t *testing.T) {
	result := extractSDL(t)
	tool := findTool(t, result, "users")

	limit := tool.InputSchema.Properties["limit"]
	require.NotNil(t, limit)
	assert.Equal(t, ir.TypeInteger, limit.Type)
	// Has a default, so not required even though declared.
	assert.False(t, tool.InputSchema.IsRequired("limit"))

	role := tool.InputSchema.Properties["role"]
	require.NotNil(t, role)
	assert.Equal(t, ir.TypeString, role.Type)
	assert.ElementsMatch(t, []any{"ADMIN", "MEMBER"}, role.Enum)
}

func TestExtract_RequiredScalarArg(t *testing.T) {
	result := extractSDL(t)
	tool := findTool(t, result, "user")
	assert.True(t, tool.InputSchema.IsRequired("id"))
	assert.Equal(t, ir.TypeString, tool.InputSchema.Properties["id"].Type)
}

func TestExtract_ReturnTypesNotExpanded(t *testing.T) {
	result := extractSDL(t)
	tool := findTool(t, result, "users")
	// Return type is a named placeholder only.
	assert.Equal(t, "User", tool.Metadata.GraphQL.ReturnType)
}

func TestExtract_Introspection(t *testing.T) {
	introspection := `{"data": {"__schema": {
	  "queryType": {"name": "Query"},
	  "mutationType": {"name": "Mutation"},
	  "types": [
	    {"kind": "OBJECT", "name": "Query", "fields": [
	      {"name": "ping", "description": "Health check", "args": [], "type": {"kind": "SCALAR", "name": "String"}}
	    ]},
	    {"kind": "OBJECT", "name": "Mutation", "fields": [
	      {"name": "setFlag", "args": [
	        {"name": "enabled", "type": {"kind": "NON_NULL", "ofType": {"kind": "SCALAR", "name": "Boolean"}}}
	      ], "type": {"kind": "SCALAR", "name": "Boolean"}}
	    ]},
	    {"kind": "SCALAR", "name": "Boolean"},
	    {"kind": "SCALAR", "name": "String"}
	  ]
	}}}`
	result, err := Extract([]byte(introspection))
	require.NoError(t, err)

	ping := findTool(t, result, "ping")
	assert.Equal(t, "Health check", ping.Description)

	setFlag := findTool(t, result, "mutate_set_flag")
	assert.True(t, setFlag.InputSchema.IsRequired("enabled"))
	assert.Equal(t, ir.TypeBoolean, setFlag.InputSchema.Properties["enabled"].Type)
}

func TestExtract_UnknownScalarDegradesToString(t *testing.T) {
	schema := `
type Query {
  recent(since: DateTime!): String
}
`
	result, err := Extract([]byte(schema))
	require.NoError(t, err)
	tool := findTool(t, result, "recent")
	since := tool.InputSchema.Properties["since"]
	require.NotNil(t, since)
	assert.Equal(t, ir.TypeString, since.Type)
	assert.Contains(t, since.Description, "DateTime")
}

func TestParseSDL_DeclarationNames(t *testing.T) {
	schema, err := parseSDL(`
type Query implements Node @cacheControl(maxAge: 60) {
  ping: String
}

enum Status @internal {
  ACTIVE
  INACTIVE
}

input Filter@deprecated {
  q: String
}
`)
	require.NoError(t, err)
	require.Len(t, schema.Query, 1)
	assert.Equal(t, "ping", schema.Query[0].Name)
	assert.Equal(t, []string{"ACTIVE", "INACTIVE"}, schema.Enums["Status"])
	assert.Contains(t, schema.Inputs, "Filter")
}

func TestExtract_Malformed(t *testing.T) {
	_, err := Extract([]byte("this is not a schema at all"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ir.ErrMalformedSpec))

	_, err = Extract([]byte(`{"not": "introspection"}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ir.ErrMalformedSpec))
}
