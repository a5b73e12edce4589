package openapi

import (
	"errors"
	"fmt"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/nirholas/specbridge/internal/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const petstore = `{
  "openapi": "3.0.0",
  "info": {"title": "Petstore", "version": "1.0.0"},
  "paths": {
    "/users/{id}": {
      "get": {
        "summary": "Get user by ID",
        "parameters": [
          {"name": "id", "in": "path", "required": true, "schema": {"type": "string"}},
          {"name": "include", "in": "query", "schema": {"type": "string"}}
        ],
        "responses": {
          "200": {
            "description": "ok",
            "content": {"application/json": {"schema": {"type": "object", "properties": {"id": {"type": "string"}, "name": {"type": "string"}}}}}
          }
        }
      }
    },
    "/users": {
      "post": {
        "operationId": "createUser",
        "tags": ["users"],
        "requestBody": {
          "required": true,
          "content": {"application/json": {"schema": {
            "type": "object",
            "properties": {"name": {"type": "string"}, "email": {"type": "string"}},
            "required": ["name"]
          }}}
        },
        "responses": {"201": {"description": "created"}}
      },
      "get": {
        "operationId": "listUsers",
        "tags": ["users"],
        "parameters": [
          {"name": "cursor", "in": "query", "schema": {"type": "string"}},
          {"name": "limit", "in": "query", "schema": {"type": "integer"}}
        ],
        "responses": {"200": {"description": "ok"}}
      }
    }
  }
}`

func extract(t *testing.T, spec string, opts Options) *ir.UnifiedParseResult {
	t.Helper()
	e := NewExtractor(opts)
	result, err := e.Extract([]byte(spec))
	require.NoError(t, err)
	return result
}

func toolByName(t *testing.T, result *ir.UnifiedParseResult, name string) ir.ToolDefinition {
	t.Helper()
	for _, tool := range result.Tools {
		if tool.Name == name {
			return tool
		}
	}
	t.Fatalf("tool %q not found in %v", name, toolNames(result))
	return ir.ToolDefinition{}
}

func toolNames(result *ir.UnifiedParseResult) []string {
	names := make([]string, 0, len(result.Tools))
	for _, tool := range result.Tools {
		names = append(names, tool.Name)
	}
	return names
}

func TestExtract_OneToolPerOperation(t *testing.T) {
	result := extract(t, petstore, DefaultOptions())
	assert.Len(t, result.Tools, 3)
	assert.Equal(t, ir.FormatOpenAPI, result.Format)
	assert.Equal(t, "Petstore", result.Info.Title)

	// No two tools share a name.
	seen := map[string]bool{}
	for _, tool := range result.Tools {
		assert.False(t, seen[tool.Name], "duplicate tool name %q", tool.Name)
		seen[tool.Name] = true
	}
}

func TestExtract_PathParamsAlwaysRequired(t *testing.T) {
	result := extract(t, petstore, DefaultOptions())
	tool := toolByName(t, result, "get_users_id")
	require.NotNil(t, tool.InputSchema)
	assert.Equal(t, ir.TypeObject, tool.InputSchema.Type)
	assert.True(t, tool.InputSchema.IsRequired("id"))
	assert.False(t, tool.InputSchema.IsRequired("include"))
}

func TestExtract_ToolNaming(t *testing.T) {
	t.Run("default snake_case from method and path", func(t *testing.T) {
		result := extract(t, petstore, DefaultOptions())
		tool := toolByName(t, result, "get_users_id")
		assert.Equal(t, "GET", tool.Metadata.HTTP.Method)
		assert.Equal(t, "/users/{id}", tool.Metadata.HTTP.Path)
	})

	t.Run("operationId wins when present", func(t *testing.T) {
		result := extract(t, petstore, DefaultOptions())
		tool := toolByName(t, result, "create_user")
		assert.Equal(t, "POST", tool.Metadata.HTTP.Method)
	})

	t.Run("camelCase option", func(t *testing.T) {
		opts := DefaultOptions()
		opts.Naming = NamingCamel
		result := extract(t, petstore, opts)
		assert.Contains(t, toolNames(result), "createUser")
		assert.Contains(t, toolNames(result), "getUsersId")
	})

	t.Run("prefix option", func(t *testing.T) {
		opts := DefaultOptions()
		opts.NamePrefix = "api_"
		result := extract(t, petstore, opts)
		assert.Contains(t, toolNames(result), "api_create_user")
	})
}

func TestExtract_BodyFlattening(t *testing.T) {
	result := extract(t, petstore, DefaultOptions())
	tool := toolByName(t, result, "create_user")

	// Two scalar properties flatten into the top level.
	assert.Contains(t, tool.InputSchema.Properties, "name")
	assert.Contains(t, tool.InputSchema.Properties, "email")
	assert.NotContains(t, tool.InputSchema.Properties, "body")
	assert.True(t, tool.InputSchema.IsRequired("name"))
	assert.False(t, tool.InputSchema.IsRequired("email"))
}

func TestExtract_LargeBodyNests(t *testing.T) {
	props := ""
	for i := 0; i < 7; i++ {
		if i > 0 {
			props += ","
		}
		props += fmt.Sprintf(`"field%d": {"type": "string"}`, i)
	}
	spec := fmt.Sprintf(`{
	  "openapi": "3.0.0",
	  "info": {"title": "t", "version": "1"},
	  "paths": {"/things": {"post": {
	    "requestBody": {"required": true, "content": {"application/json": {"schema": {"type": "object", "properties": {%s}}}}},
	    "responses": {"200": {"description": "ok"}}
	  }}}
	}`, props)

	result := extract(t, spec, DefaultOptions())
	tool := toolByName(t, result, "post_things")
	require.Contains(t, tool.InputSchema.Properties, "body")
	assert.True(t, tool.InputSchema.IsRequired("body"))
	assert.Len(t, tool.InputSchema.Properties["body"].Properties, 7)
}

func TestExtract_ResponseContentTypeSelection(t *testing.T) {
	spec := `{
	  "openapi": "3.0.0",
	  "info": {"title": "t", "version": "1"},
	  "paths": {"/reports": {"get": {
	    "requestBody": {"content": {
	      "text/csv": {"example": "a,b"},
	      "application/json": {"example": {"rows": 2}}
	    }},
	    "responses": {"200": {"description": "ok", "content": {
	      "text/plain": {"schema": {"type": "string"}},
	      "application/json": {"schema": {"type": "object"}},
	      "application/xml": {"schema": {"type": "object"}}
	    }}}
	  }}}
	}`
	e := NewExtractor(DefaultOptions())
	require.NoError(t, e.Parse([]byte(spec)))
	require.NoError(t, e.Analyze())
	require.Len(t, e.Endpoints(), 1)

	// JSON wins whenever the operation offers it.
	ep := e.Endpoints()[0]
	require.Len(t, ep.Responses, 1)
	assert.Equal(t, "application/json", ep.Responses[0].ContentType)
	require.Len(t, ep.Examples, 1)
	assert.Equal(t, map[string]any{"body": map[string]any{"rows": float64(2)}}, ep.Examples[0].Input)

	t.Run("no json falls back to first content type", func(t *testing.T) {
		contentType, mt := preferredMediaType(openapi3.Content{
			"text/plain":      openapi3.NewMediaType(),
			"application/xml": openapi3.NewMediaType(),
		})
		require.NotNil(t, mt)
		assert.Equal(t, "application/xml", contentType)
	})
}

func TestExtract_MalformedPathTemplateWarns(t *testing.T) {
	spec := `{
	  "openapi": "3.0.0",
	  "info": {"title": "t", "version": "1"},
	  "paths": {"/items/{a b}": {"get": {"responses": {"200": {"description": "ok"}}}}}
	}`
	result := extract(t, spec, DefaultOptions())
	require.Len(t, result.Tools, 1)

	var found bool
	for _, w := range result.Warnings {
		if w.Location == "GET /items/{a b}" {
			found = true
			assert.Contains(t, w.Message, "URI template")
		}
	}
	assert.True(t, found, "expected a warning for the malformed path template, got %v", result.Warnings)
}

func TestExtract_PaginationDetection(t *testing.T) {
	result := extract(t, petstore, DefaultOptions())
	tool := toolByName(t, result, "list_users")
	require.NotNil(t, tool.Metadata.HTTP.Pagination)
	assert.Equal(t, ir.PaginationCursor, tool.Metadata.HTTP.Pagination.Style)
	assert.Equal(t, "cursor", tool.Metadata.HTTP.Pagination.ParamName)
	assert.Equal(t, "limit", tool.Metadata.HTTP.Pagination.LimitParam)
}

func TestDetectPagination(t *testing.T) {
	q := func(name string) Parameter { return Parameter{Name: name, In: InQuery} }
	tests := []struct {
		name     string
		params   []Parameter
		expected ir.PaginationStyle
	}{
		{name: "cursor", params: []Parameter{q("cursor")}, expected: ir.PaginationCursor},
		{name: "offset", params: []Parameter{q("offset")}, expected: ir.PaginationOffset},
		{name: "skip", params: []Parameter{q("skip")}, expected: ir.PaginationOffset},
		{name: "page", params: []Parameter{q("page")}, expected: ir.PaginationPage},
		{name: "cursor wins over offset", params: []Parameter{q("offset"), q("cursor")}, expected: ir.PaginationCursor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pattern := DetectPagination(tt.params)
			require.NotNil(t, pattern)
			assert.Equal(t, tt.expected, pattern.Style)

			// Idempotent: re-running yields the same pattern.
			again := DetectPagination(tt.params)
			assert.Equal(t, pattern, again)
		})
	}

	t.Run("limit alone is not pagination", func(t *testing.T) {
		assert.Nil(t, DetectPagination([]Parameter{q("limit")}))
	})
	t.Run("per_page is a limit, not a page index", func(t *testing.T) {
		pattern := DetectPagination([]Parameter{q("page"), q("per_page")})
		require.NotNil(t, pattern)
		assert.Equal(t, ir.PaginationPage, pattern.Style)
		assert.Equal(t, "per_page", pattern.LimitParam)
	})
	t.Run("path params are ignored", func(t *testing.T) {
		assert.Nil(t, DetectPagination([]Parameter{{Name: "page", In: InPath}}))
	})
}

func TestExtract_Swagger2Conversion(t *testing.T) {
	spec := `{
	  "swagger": "2.0",
	  "info": {"title": "Legacy", "version": "1.0"},
	  "paths": {"/items": {"get": {"responses": {"200": {"description": "ok"}}}}}
	}`
	result := extract(t, spec, DefaultOptions())
	assert.Equal(t, "Legacy", result.Info.Title)
	assert.Contains(t, toolNames(result), "get_items")
}

func TestExtract_YAMLInput(t *testing.T) {
	spec := "openapi: 3.0.0\ninfo:\n  title: YamlAPI\n  version: '1.0'\npaths:\n  /ping:\n    get:\n      responses:\n        '200':\n          description: ok\n"
	result := extract(t, spec, DefaultOptions())
	assert.Equal(t, "YamlAPI", result.Info.Title)
	assert.Contains(t, toolNames(result), "get_ping")
}

func TestParse_Failures(t *testing.T) {
	tests := []struct {
		name string
		spec string
	}{
		{name: "not json or yaml", spec: "{{{{"},
		{name: "missing version field", spec: `{"info": {"title": "t"}}`},
		{name: "unsupported version", spec: `{"openapi": "4.0.0", "info": {}}`},
		{name: "unsupported swagger version", spec: `{"swagger": "1.2", "info": {}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewExtractor(DefaultOptions())
			err := e.Parse([]byte(tt.spec))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ir.ErrMalformedSpec))
		})
	}
}

func TestAnalyze_Filters(t *testing.T) {
	t.Run("tag allow list", func(t *testing.T) {
		opts := DefaultOptions()
		opts.Filters.Tags = []string{"users"}
		result := extract(t, petstore, opts)
		assert.ElementsMatch(t, []string{"create_user", "list_users"}, toolNames(result))
	})

	t.Run("method allow list", func(t *testing.T) {
		opts := DefaultOptions()
		opts.Filters.Methods = []string{"POST"}
		result := extract(t, petstore, opts)
		assert.Equal(t, []string{"create_user"}, toolNames(result))
	})

	t.Run("path glob allow list", func(t *testing.T) {
		opts := DefaultOptions()
		opts.Filters.PathGlobs = []string{"/users"}
		result := extract(t, petstore, opts)
		assert.ElementsMatch(t, []string{"create_user", "list_users"}, toolNames(result))
	})

	t.Run("operation id exclude", func(t *testing.T) {
		opts := DefaultOptions()
		opts.Filters.ExcludeOps = []string{"createUser"}
		result := extract(t, petstore, opts)
		assert.NotContains(t, toolNames(result), "create_user")
	})

	t.Run("operation id include", func(t *testing.T) {
		opts := DefaultOptions()
		opts.Filters.IncludeOps = []string{"listUsers"}
		result := extract(t, petstore, opts)
		assert.Equal(t, []string{"list_users"}, toolNames(result))
	})
}

func TestExtract_AuthDetection(t *testing.T) {
	spec := `{
	  "openapi": "3.0.0",
	  "info": {"title": "Secure", "version": "1"},
	  "components": {"securitySchemes": {
	    "apiKeyAuth": {"type": "apiKey", "in": "header", "name": "X-API-Key"},
	    "bearerAuth": {"type": "http", "scheme": "bearer"}
	  }},
	  "security": [{"apiKeyAuth": []}],
	  "paths": {"/secret": {"get": {"responses": {"200": {"description": "ok"}}}}}
	}`
	result := extract(t, spec, DefaultOptions())
	require.NotNil(t, result.Auth)
	assert.Len(t, result.Auth.Schemes, 2)

	tool := toolByName(t, result, "get_secret")
	require.NotNil(t, tool.Metadata.Auth)
	assert.Equal(t, ir.AuthAPIKey, tool.Metadata.Auth.Type)
	assert.Equal(t, "header", tool.Metadata.Auth.In)
	assert.Equal(t, "X-API-Key", tool.Metadata.Auth.Name)
}

func TestEnvVarName(t *testing.T) {
	tests := []struct {
		scheme   string
		expected string
	}{
		{scheme: "apiKeyAuth", expected: "API_KEY_AUTH_API_KEY"},
		{scheme: "bearer_token", expected: "BEARER_TOKEN"},
		{scheme: "myKey", expected: "MY_KEY"},
		{scheme: "github", expected: "GITHUB_API_KEY"},
		{scheme: "", expected: "API_API_KEY"},
	}
	for _, tt := range tests {
		t.Run(tt.scheme, func(t *testing.T) {
			assert.Equal(t, tt.expected, EnvVarName(tt.scheme))
		})
	}
}

func TestApplyNaming(t *testing.T) {
	tests := []struct {
		in    string
		style NamingStyle
		out   string
	}{
		{in: "createUser", style: NamingSnake, out: "create_user"},
		{in: "create_user", style: NamingCamel, out: "createUser"},
		{in: "get-users-id", style: NamingSnake, out: "get_users_id"},
		{in: "HTTPServer", style: NamingSnake, out: "httpserver"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.out, applyNaming(tt.in, tt.style))
		})
	}
}
