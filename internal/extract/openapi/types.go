package openapi

import (
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/nirholas/specbridge/internal/ir"
)

// ParameterLocation partitions endpoint parameters by where they travel.
type ParameterLocation string

const (
	InPath   ParameterLocation = "path"
	InQuery  ParameterLocation = "query"
	InHeader ParameterLocation = "header"
	InCookie ParameterLocation = "cookie"
)

// Parameter is one declared endpoint parameter.
type Parameter struct {
	Name        string
	In          ParameterLocation
	Description string
	Required    bool
	Schema      *ir.SchemaNode
}

// RequestBody is the endpoint's declared body, already lowered to IR schema.
type RequestBody struct {
	ContentType string
	Required    bool
	Schema      *ir.SchemaNode
}

// Response is one declared response, in declaration order.
type Response struct {
	Status      string
	Description string
	ContentType string
	Schema      *ir.SchemaNode
	Example     any
}

// EndpointInfo is the intermediate entity between analysis and
// transformation. Created once per discovered operation, consumed once by
// the transformer to produce exactly one tool, then discarded.
type EndpointInfo struct {
	Path        string
	Method      string
	OperationID string
	Summary     string
	Description string
	Tags        []string
	Deprecated  bool
	Parameters  []Parameter
	Body        *RequestBody
	Responses   []Response
	Security    []ir.AuthRequirement
	Pagination  *ir.PaginationPattern
	Examples    []ir.Example
	Webhook     bool
}

// Filters narrow which operations the analyzer keeps. Empty slices mean no
// filtering on that axis.
type Filters struct {
	Tags              []string
	PathGlobs         []string
	Methods           []string
	IncludeOps        []string
	ExcludeOps        []string
	IncludeDeprecated bool
}

// NamingStyle selects the tool-name casing convention.
type NamingStyle string

const (
	NamingSnake NamingStyle = "snake_case"
	NamingCamel NamingStyle = "camelCase"
)

// Options drives the full parse→analyze→transform pipeline.
type Options struct {
	ResolveRefs     bool
	IncludeExamples bool
	Filters         Filters
	Naming          NamingStyle
	NamePrefix      string
	// FlattenBodyLimit is the property count up to which a request body is
	// flattened into the tool's top-level properties. Larger or array-shaped
	// bodies nest under a single required "body" property.
	FlattenBodyLimit int
}

// DefaultOptions mirror the engine's documented defaults.
func DefaultOptions() Options {
	return Options{
		ResolveRefs:      true,
		IncludeExamples:  true,
		Naming:           NamingSnake,
		FlattenBodyLimit: 5,
	}
}

// Extractor runs the four-stage OpenAPI pipeline. The parsed document and
// the analyzed endpoints are kept so callers can inspect intermediate
// results, mirroring the staged design.
type Extractor struct {
	opts      Options
	doc       *openapi3.T
	endpoints []EndpointInfo
	warnings  []ir.Warning
}
