// Package ir defines the canonical tool representation that every format
// extractor converges on and that the code generator consumes.
package ir

// Format identifies a supported API description format.
type Format string

const (
	FormatOpenAPI    Format = "openapi"
	FormatAsyncAPI   Format = "asyncapi"
	FormatGraphQL    Format = "graphql"
	FormatGRPC       Format = "grpc"
	FormatPostman    Format = "postman"
	FormatInsomnia   Format = "insomnia"
	FormatHAR        Format = "har"
	FormatSourceCode Format = "source-code"
)

// Formats lists every format the detector can return, in detection order.
var Formats = []Format{
	FormatGraphQL,
	FormatGRPC,
	FormatOpenAPI,
	FormatAsyncAPI,
	FormatPostman,
	FormatInsomnia,
	FormatHAR,
}

// KnownFormat reports whether f is a format an extractor is registered for.
// Callers use it to reject bad format overrides before dispatch.
func KnownFormat(f Format) bool {
	for _, known := range Formats {
		if f == known {
			return true
		}
	}
	return false
}

// Confidence rates how much a heuristically derived tool can be trusted.
// Only HAR and source-code analysis attach a confidence; spec-backed
// extractors leave it empty.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ToolDefinition is one callable unit: a name, an input schema and enough
// metadata to invoke the underlying operation.
type ToolDefinition struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema *SchemaNode `json:"inputSchema"`
	Metadata    Metadata    `json:"metadata"`
	Examples    []Example   `json:"examples,omitempty"`
}

// Example pairs a sample input with the output it produced, when known.
type Example struct {
	Input  map[string]any `json:"input,omitempty"`
	Output any            `json:"output,omitempty"`
}

// Metadata carries the fields meaningful to a tool's origin format. Exactly
// one of the per-format blocks is set, selected by Format.
type Metadata struct {
	Format Format `json:"format"`

	HTTP    *HTTPBinding    `json:"http,omitempty"`
	Channel *ChannelBinding `json:"channel,omitempty"`
	GraphQL *GraphQLBinding `json:"graphql,omitempty"`
	GRPC    *GRPCBinding    `json:"grpc,omitempty"`
	Folder  string          `json:"folder,omitempty"`

	Tags       []string         `json:"tags,omitempty"`
	Deprecated bool             `json:"deprecated,omitempty"`
	Auth       *AuthRequirement `json:"auth,omitempty"`
	Confidence Confidence       `json:"confidence,omitempty"`
}

// HTTPBinding describes the HTTP call a tool maps to. Used by OpenAPI, HAR,
// Postman, Insomnia and the source-code analyzers, and by gRPC methods that
// carry a transcoding annotation.
type HTTPBinding struct {
	Method      string             `json:"method"`
	Path        string             `json:"path"`
	BaseURL     string             `json:"baseUrl,omitempty"`
	ContentType string             `json:"contentType,omitempty"`
	Headers     map[string]string  `json:"headers,omitempty"`
	Pagination  *PaginationPattern `json:"pagination,omitempty"`
	SampleCount int                `json:"sampleCount,omitempty"`
}

// ChannelBinding names the AsyncAPI channel and operation kind behind a tool.
type ChannelBinding struct {
	Channel   string `json:"channel"`
	Operation string `json:"operation"` // publish or subscribe
	Protocol  string `json:"protocol,omitempty"`
}

// GraphQLBinding records the root operation a tool was built from.
type GraphQLBinding struct {
	OperationType string `json:"operationType"` // query, mutation, subscription
	FieldName     string `json:"fieldName"`
	ReturnType    string `json:"returnType,omitempty"`
}

// GRPCBinding records the service and method a tool invokes. Streaming flags
// are preserved even though tool-call semantics are unary; a generator
// backend may reject or special-case streaming methods.
type GRPCBinding struct {
	Service         string       `json:"service"`
	Method          string       `json:"method"`
	Package         string       `json:"package,omitempty"`
	ClientStreaming bool         `json:"clientStreaming"`
	ServerStreaming bool         `json:"serverStreaming"`
	HTTPRule        *HTTPBinding `json:"httpRule,omitempty"`
}

// PaginationStyle classifies how an endpoint pages its results.
type PaginationStyle string

const (
	PaginationCursor PaginationStyle = "cursor"
	PaginationOffset PaginationStyle = "offset"
	PaginationPage   PaginationStyle = "page"
)

// PaginationPattern captures the parameter names an endpoint paginates with.
type PaginationPattern struct {
	Style      PaginationStyle `json:"style"`
	ParamName  string          `json:"paramName"`
	LimitParam string          `json:"limitParam,omitempty"`
}

// AuthType enumerates the authentication schemes the engine understands.
type AuthType string

const (
	AuthNone   AuthType = "none"
	AuthAPIKey AuthType = "apiKey"
	AuthBearer AuthType = "bearer"
	AuthBasic  AuthType = "basic"
	AuthOAuth2 AuthType = "oauth2"
	AuthOpenID AuthType = "openIdConnect"
)

// AuthRequirement describes how a tool's underlying call authenticates.
// EnvVar is a deterministic environment-variable name synthesized from the
// security scheme so generated code knows where to read the credential.
type AuthRequirement struct {
	Type   AuthType `json:"type"`
	Scheme string   `json:"scheme,omitempty"`
	In     string   `json:"in,omitempty"`   // header, query or cookie for apiKey
	Name   string   `json:"name,omitempty"` // carrier parameter name
	EnvVar string   `json:"envVar,omitempty"`
	Flows  []string `json:"flows,omitempty"` // oauth2 flow names
}

// Info mirrors the source document's info block.
type Info struct {
	Title       string `json:"title,omitempty"`
	Version     string `json:"version,omitempty"`
	Description string `json:"description,omitempty"`
}

// Warning is a non-fatal anomaly accumulated during analysis. Warnings are
// surfaced alongside results, never thrown.
type Warning struct {
	Message  string `json:"message"`
	Location string `json:"location,omitempty"`
}

// AuthSummary aggregates the security schemes discovered in a document.
type AuthSummary struct {
	Type    AuthType          `json:"type"`
	Schemes []AuthRequirement `json:"schemes,omitempty"`
}

// UnifiedParseResult is the façade's output: one conversion invocation's
// tools plus everything a caller needs to report on it.
type UnifiedParseResult struct {
	Format       Format           `json:"format"`
	Info         Info             `json:"info"`
	Tools        []ToolDefinition `json:"tools"`
	Auth         *AuthSummary     `json:"auth,omitempty"`
	Warnings     []Warning        `json:"warnings,omitempty"`
	InvocationID string           `json:"invocationId,omitempty"`
}
