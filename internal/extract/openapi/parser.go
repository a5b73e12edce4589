// Package openapi implements the four-stage OpenAPI pipeline: parse the
// document, analyze every operation into EndpointInfo, transform each
// EndpointInfo into exactly one tool definition, and hand the result to the
// generator. OpenAPI 2.0 documents are converted to 3.0 before analysis.
package openapi

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/nirholas/specbridge/internal/ir"
	"github.com/nirholas/specbridge/internal/logger"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// NewExtractor creates an extractor with the given pipeline options.
func NewExtractor(opts Options) *Extractor {
	if opts.FlattenBodyLimit == 0 {
		opts.FlattenBodyLimit = DefaultOptions().FlattenBodyLimit
	}
	if opts.Naming == "" {
		opts.Naming = NamingSnake
	}
	return &Extractor{opts: opts}
}

// Extract runs the full pipeline on raw spec bytes and returns the unified
// result. Parse failures are fatal for the whole input; analyzer anomalies
// are accumulated as warnings and the affected operation is skipped.
func (e *Extractor) Extract(data []byte) (*ir.UnifiedParseResult, error) {
	if err := e.Parse(data); err != nil {
		return nil, err
	}
	if err := e.Analyze(); err != nil {
		return nil, err
	}
	tools := e.Transform()

	result := &ir.UnifiedParseResult{
		Format:   ir.FormatOpenAPI,
		Tools:    tools,
		Warnings: e.warnings,
	}
	if e.doc.Info != nil {
		result.Info = ir.Info{
			Title:       e.doc.Info.Title,
			Version:     e.doc.Info.Version,
			Description: e.doc.Info.Description,
		}
	}
	if auth := e.documentAuth(); auth != nil {
		result.Auth = auth
	}
	return result, nil
}

// Parse loads the document, converting Swagger 2.0 when needed and
// resolving $ref pointers when the options ask for it.
func (e *Extractor) Parse(data []byte) error {
	normalized, err := normalizeToJSON(data)
	if err != nil {
		return &ir.MalformedSpecError{Format: ir.FormatOpenAPI, Cause: err}
	}

	var head map[string]any
	if err := json.Unmarshal(normalized, &head); err != nil {
		return &ir.MalformedSpecError{Format: ir.FormatOpenAPI, Cause: fmt.Errorf("invalid JSON in OpenAPI spec: %w", err)}
	}

	swaggerVersion, hasSwagger := head["swagger"]
	openapiVersion, hasOpenAPI := head["openapi"]
	if !hasSwagger && !hasOpenAPI {
		return &ir.MalformedSpecError{
			Format: ir.FormatOpenAPI,
			Cause:  fmt.Errorf("document is missing 'swagger' or 'openapi' version field"),
		}
	}

	if hasSwagger {
		doc, err := convertSwagger(normalized, swaggerVersion)
		if err != nil {
			return &ir.MalformedSpecError{Format: ir.FormatOpenAPI, Cause: err}
		}
		e.doc = doc
		return e.validateStructure()
	}

	if ver, ok := openapiVersion.(string); !ok || !strings.HasPrefix(ver, "3.") {
		return &ir.MalformedSpecError{
			Format: ir.FormatOpenAPI,
			Cause:  fmt.Errorf("unsupported OpenAPI version: %v", openapiVersion),
		}
	}

	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = e.opts.ResolveRefs
	doc, err := loader.LoadFromData(normalized)
	if err != nil {
		logger.Error("Failed to parse OpenAPI 3.x spec", zap.Error(err))
		return &ir.MalformedSpecError{Format: ir.FormatOpenAPI, Cause: err}
	}
	if doc == nil {
		return &ir.MalformedSpecError{Format: ir.FormatOpenAPI, Cause: fmt.Errorf("document is empty")}
	}
	if e.opts.ResolveRefs {
		if err := loader.ResolveRefsIn(doc, nil); err != nil {
			// Remote resolution failure is fatal: no partial-spec fallback.
			return &ir.MalformedSpecError{Format: ir.FormatOpenAPI, Cause: fmt.Errorf("failed to resolve refs: %w", err)}
		}
	}
	e.doc = doc
	return e.validateStructure()
}

// validateStructure rejects documents missing both info and any operation
// container (paths or 3.1 webhooks).
func (e *Extractor) validateStructure() error {
	hasInfo := e.doc.Info != nil
	hasPaths := e.doc.Paths != nil && e.doc.Paths.Len() > 0
	hasWebhooks := len(webhooksOf(e.doc)) > 0
	if !hasInfo && !hasPaths && !hasWebhooks {
		return &ir.MalformedSpecError{
			Format: ir.FormatOpenAPI,
			Cause:  fmt.Errorf("document has neither info nor paths/webhooks"),
		}
	}
	return nil
}

// Doc exposes the parsed document for callers that need direct access.
func (e *Extractor) Doc() *openapi3.T { return e.doc }

// Endpoints exposes the analyzed endpoints.
func (e *Extractor) Endpoints() []EndpointInfo { return e.endpoints }

// Warnings returns the anomalies accumulated so far.
func (e *Extractor) Warnings() []ir.Warning { return e.warnings }

func convertSwagger(data []byte, version any) (*openapi3.T, error) {
	var doc2 openapi2.T
	if err := json.Unmarshal(data, &doc2); err != nil {
		return nil, fmt.Errorf("failed to parse OpenAPI 2.0 spec: %w", err)
	}
	if doc2.Swagger != "2.0" {
		return nil, fmt.Errorf("unsupported Swagger version: %v", version)
	}
	logger.Info("Detected OpenAPI 2.0 spec, converting to 3.0")
	converted, err := openapi2conv.ToV3(&doc2)
	if err != nil {
		return nil, fmt.Errorf("failed to convert OpenAPI 2.0 to 3.0: %w", err)
	}
	return converted, nil
}

// normalizeToJSON accepts JSON or YAML bytes and returns JSON bytes.
func normalizeToJSON(data []byte) ([]byte, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		return []byte(trimmed), nil
	}
	var obj map[string]any
	if err := yaml.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("input is neither valid JSON nor YAML: %w", err)
	}
	out, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// webhooksOf returns the 3.1 webhooks map via the document extensions, since
// kin-openapi surfaces unknown top-level keys there.
func webhooksOf(doc *openapi3.T) map[string]any {
	if doc == nil || doc.Extensions == nil {
		return nil
	}
	if hooks, ok := doc.Extensions["webhooks"].(map[string]any); ok {
		return hooks
	}
	return nil
}
