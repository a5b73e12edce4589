package detect

import (
	"errors"
	"testing"

	"github.com/nirholas/specbridge/internal/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected ir.Format
	}{
		{
			name:     "openapi 3 json",
			input:    `{"openapi": "3.0.0", "info": {"title": "t"}, "paths": {}}`,
			expected: ir.FormatOpenAPI,
		},
		{
			name:     "swagger 2 json",
			input:    `{"swagger": "2.0", "info": {"title": "t"}, "paths": {}}`,
			expected: ir.FormatOpenAPI,
		},
		{
			name:     "openapi yaml",
			input:    "openapi: 3.1.0\ninfo:\n  title: t\npaths: {}\n",
			expected: ir.FormatOpenAPI,
		},
		{
			name:     "asyncapi yaml",
			input:    "asyncapi: 2.6.0\nchannels: {}\n",
			expected: ir.FormatAsyncAPI,
		},
		{
			name:     "graphql sdl",
			input:    "type Query {\n  users: [User]\n}\n",
			expected: ir.FormatGraphQL,
		},
		{
			name:     "graphql schema block",
			input:    "schema {\n  query: RootQuery\n}\n",
			expected: ir.FormatGraphQL,
		},
		{
			name:     "graphql introspection",
			input:    `{"__schema": {"queryType": {"name": "Query"}}}`,
			expected: ir.FormatGraphQL,
		},
		{
			name:     "graphql introspection under data",
			input:    `{"data": {"__schema": {"queryType": {"name": "Query"}}}}`,
			expected: ir.FormatGraphQL,
		},
		{
			name:     "proto sdl",
			input:    "syntax = \"proto3\";\npackage demo;\nservice Svc { rpc Get (Req) returns (Resp); }\n",
			expected: ir.FormatGRPC,
		},
		{
			name:     "postman by schema url",
			input:    `{"info": {"name": "c", "schema": "https://schema.getpostman.com/json/collection/v2.1.0/collection.json"}, "item": []}`,
			expected: ir.FormatPostman,
		},
		{
			name:     "postman fallback item plus info",
			input:    `{"info": {"name": "c"}, "item": [{"name": "req"}]}`,
			expected: ir.FormatPostman,
		},
		{
			name:     "insomnia export",
			input:    `{"_type": "export", "__export_format": 4, "resources": []}`,
			expected: ir.FormatInsomnia,
		},
		{
			name:     "har",
			input:    `{"log": {"version": "1.2", "entries": []}}`,
			expected: ir.FormatHAR,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			format, err := Detect([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, format)
		})
	}
}

func TestDetect_Unsupported(t *testing.T) {
	inputs := []string{
		"",
		"just some free text that matches nothing in particular",
		`{"random": "json object"}`,
		"key: value\nother: thing\n",
	}
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := Detect([]byte(input))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ir.ErrUnsupportedFormat))
		})
	}
}

// Byte-identical input must classify identically on repeated calls.
func TestDetect_Deterministic(t *testing.T) {
	input := []byte(`{"log": {"version": "1.2", "entries": []}}`)
	first, err1 := Detect(input)
	second, err2 := Detect(input)
	assert.Equal(t, first, second)
	assert.Equal(t, err1, err2)
}

func TestDetect_SDLBeforeStructuredParse(t *testing.T) {
	// SDL is not valid JSON/YAML; the textual check must win before any
	// structured parse is attempted.
	sdl := "type Mutation {\n  createUser(input: CreateUserInput!): User\n}\n"
	format, err := Detect([]byte(sdl))
	require.NoError(t, err)
	assert.Equal(t, ir.FormatGraphQL, format)
}
