// Package converter is the unified parsing façade: detection, dispatch to
// the matching extractor and post-processing into one UnifiedParseResult.
package converter

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/nirholas/specbridge/internal/analyze"
	"github.com/nirholas/specbridge/internal/detect"
	"github.com/nirholas/specbridge/internal/extract/asyncapi"
	"github.com/nirholas/specbridge/internal/extract/graphql"
	"github.com/nirholas/specbridge/internal/extract/har"
	"github.com/nirholas/specbridge/internal/extract/insomnia"
	"github.com/nirholas/specbridge/internal/extract/openapi"
	"github.com/nirholas/specbridge/internal/extract/postman"
	"github.com/nirholas/specbridge/internal/extract/protobuf"
	"github.com/nirholas/specbridge/internal/ir"
	"github.com/nirholas/specbridge/internal/logger"
	"go.uber.org/zap"
)

// GroupBy selects how the generator buckets tools into modules.
type GroupBy string

const (
	GroupByTags  GroupBy = "tags"
	GroupByPaths GroupBy = "paths"
	GroupByNone  GroupBy = "none"
)

// Options drive one conversion invocation.
type Options struct {
	// Format skips detection when set.
	Format            ir.Format
	GroupBy           GroupBy
	IncludeExamples   bool
	ResolveRefs       bool
	IncludeDeprecated bool
	// OperationFilter keeps only tools the predicate accepts. Nil keeps
	// everything.
	OperationFilter func(ir.ToolDefinition) bool
	// OpenAPI carries the extra knobs of the OpenAPI pipeline (naming,
	// filters, body flattening). Shared by the source-code analyzers.
	OpenAPI openapi.Options
}

// DefaultOptions mirror the documented defaults of the engine.
func DefaultOptions() Options {
	return Options{
		GroupBy:         GroupByTags,
		IncludeExamples: true,
		ResolveRefs:     true,
		OpenAPI:         openapi.DefaultOptions(),
	}
}

// Converter runs the straight-line pipeline. One instance is safe for
// concurrent invocations: all per-conversion state lives on the stack.
type Converter struct {
	adjuster *Adjuster
}

func NewConverter(adjuster *Adjuster) *Converter {
	return &Converter{adjuster: adjuster}
}

// ParseSpec detects the input's format (unless overridden), dispatches to
// the matching extractor and finalizes the result. Detection and parse
// failures are fatal; extractor warnings come back on the result.
func (c *Converter) ParseSpec(input []byte, opts Options) (*ir.UnifiedParseResult, error) {
	format := opts.Format
	if format == "" {
		detected, err := detect.Detect(input)
		if err != nil {
			return nil, err
		}
		format = detected
	} else if !ir.KnownFormat(format) {
		return nil, &ir.UnsupportedFormatError{
			Hint: fmt.Sprintf("unknown format override %q", format),
		}
	}

	result, err := c.dispatch(input, format, opts)
	if err != nil {
		return nil, err
	}
	c.finalize(result, opts)
	return result, nil
}

// ParseSource runs the source-code route analyzers over {path, content}
// pairs supplied by the caller's file fetcher.
func (c *Converter) ParseSource(files []analyze.File, opts Options) (*ir.UnifiedParseResult, error) {
	oaOpts := c.openAPIOptions(opts)
	result := analyze.Run(files, oaOpts)
	if result == nil {
		return nil, &ir.UnsupportedFormatError{
			Hint: "no route analyzer recognized the source files",
		}
	}
	c.finalize(result, opts)
	return result, nil
}

// dispatch is the one exhaustive match over the closed format set. A
// format the detector can return but this switch does not handle is a
// programming error, caught by the default branch.
func (c *Converter) dispatch(input []byte, format ir.Format, opts Options) (*ir.UnifiedParseResult, error) {
	switch format {
	case ir.FormatOpenAPI:
		extractor := openapi.NewExtractor(c.openAPIOptions(opts))
		return extractor.Extract(input)
	case ir.FormatAsyncAPI:
		return asyncapi.Extract(input)
	case ir.FormatGraphQL:
		return graphql.Extract(input)
	case ir.FormatGRPC:
		return protobuf.Extract(input)
	case ir.FormatPostman:
		return postman.Extract(input)
	case ir.FormatInsomnia:
		return insomnia.Extract(input)
	case ir.FormatHAR:
		return har.Extract(input)
	default:
		return nil, &ir.UnsupportedFormatError{
			Hint: fmt.Sprintf("no extractor registered for format %q", format),
		}
	}
}

func (c *Converter) openAPIOptions(opts Options) openapi.Options {
	oa := opts.OpenAPI
	// Default only the unset field; the caller's naming and filter choices
	// must survive.
	if oa.FlattenBodyLimit == 0 {
		oa.FlattenBodyLimit = openapi.DefaultOptions().FlattenBodyLimit
	}
	oa.ResolveRefs = opts.ResolveRefs
	oa.IncludeExamples = opts.IncludeExamples
	oa.Filters.IncludeDeprecated = opts.IncludeDeprecated
	return oa
}

// finalize applies post-extraction policy shared by every format:
// deprecation filtering, the caller's operation predicate, description
// and route adjustments, and the invocation id.
func (c *Converter) finalize(result *ir.UnifiedParseResult, opts Options) {
	kept := result.Tools[:0]
	for _, tool := range result.Tools {
		if tool.Metadata.Deprecated && !opts.IncludeDeprecated {
			continue
		}
		if opts.OperationFilter != nil && !opts.OperationFilter(tool) {
			continue
		}
		if c.adjuster != nil {
			if !c.adjuster.Keep(tool) {
				continue
			}
			tool.Description = c.adjuster.Description(tool)
		}
		if opts.IncludeExamples {
			tool.Examples = validExamples(result, tool)
		} else {
			tool.Examples = nil
		}
		kept = append(kept, tool)
	}
	result.Tools = kept
	result.InvocationID = uuid.NewString()

	logger.Info("Conversion finished",
		zap.String("format", string(result.Format)),
		zap.String("invocation_id", result.InvocationID),
		zap.Int("tools", len(result.Tools)),
		zap.Int("warnings", len(result.Warnings)))
}

// validExamples drops examples whose input no longer satisfies the tool's
// schema, which happens when an adjustment or filter reshapes the tool
// after extraction. Dropped examples become warnings.
func validExamples(result *ir.UnifiedParseResult, tool ir.ToolDefinition) []ir.Example {
	kept := tool.Examples[:0]
	for _, example := range tool.Examples {
		if example.Input != nil {
			if err := ir.ValidateExample(tool.InputSchema, example.Input); err != nil {
				result.Warnings = append(result.Warnings, ir.Warning{
					Message:  fmt.Sprintf("dropped example that does not match the input schema: %v", err),
					Location: tool.Name,
				})
				continue
			}
		}
		kept = append(kept, example)
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}

// GroupKey buckets one tool for module generation under the configured
// grouping policy.
func GroupKey(tool ir.ToolDefinition, groupBy GroupBy) string {
	switch groupBy {
	case GroupByTags:
		if len(tool.Metadata.Tags) > 0 {
			return tool.Metadata.Tags[0]
		}
	case GroupByPaths:
		if tool.Metadata.HTTP != nil {
			if segments := splitPath(tool.Metadata.HTTP.Path); len(segments) > 0 {
				return segments[0]
			}
		}
	}
	return "tools"
}

func splitPath(path string) []string {
	var segments []string
	for _, s := range strings.Split(path, "/") {
		if s != "" && s[0] != '{' {
			segments = append(segments, s)
		}
	}
	return segments
}
