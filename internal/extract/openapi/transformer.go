package openapi

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/nirholas/specbridge/internal/ir"
	"github.com/yosida95/uritemplate/v3"
)

// TransformEndpoints runs the transformation stage over endpoints built
// outside the OpenAPI pipeline. The source-code route analyzers produce
// EndpointInfo directly and reuse the same naming, flattening and
// deduplication rules through this entry point.
func TransformEndpoints(endpoints []EndpointInfo, opts Options) []ir.ToolDefinition {
	e := &Extractor{opts: opts, endpoints: endpoints}
	return e.Transform()
}

// Transform maps each analyzed endpoint to exactly one tool definition.
// Names are deduplicated by numeric suffix so no two tools in one result
// collide.
func (e *Extractor) Transform() []ir.ToolDefinition {
	tools := make([]ir.ToolDefinition, 0, len(e.endpoints))
	seen := map[string]int{}
	for i := range e.endpoints {
		tool := e.transformEndpoint(&e.endpoints[i])
		if n := seen[tool.Name]; n > 0 {
			seen[tool.Name] = n + 1
			tool.Name = fmt.Sprintf("%s_%d", tool.Name, n+1)
		} else {
			seen[tool.Name] = 1
		}
		tools = append(tools, tool)
	}
	return tools
}

func (e *Extractor) transformEndpoint(info *EndpointInfo) ir.ToolDefinition {
	schema := ir.NewObjectSchema()

	for _, param := range info.Parameters {
		node := param.Schema
		if node == nil {
			node = &ir.SchemaNode{Type: ir.TypeString}
		}
		if node.Description == "" {
			node.Description = param.Description
		}
		// Path parameters are always required, whatever the spec says.
		required := param.Required || param.In == InPath
		schema.SetProperty(param.Name, node, required)
	}

	e.addBody(schema, info)

	meta := ir.Metadata{
		Format:     ir.FormatOpenAPI,
		Tags:       info.Tags,
		Deprecated: info.Deprecated,
		HTTP: &ir.HTTPBinding{
			Method:     info.Method,
			Path:       info.Path,
			Pagination: info.Pagination,
		},
	}
	if info.Body != nil {
		meta.HTTP.ContentType = info.Body.ContentType
	}
	if len(info.Security) > 0 {
		meta.Auth = &info.Security[0]
	}
	if _, err := uritemplate.New(info.Path); err != nil {
		e.warn(fmt.Sprintf("path is not a well-formed URI template: %v", err), info.Method+" "+info.Path)
	}

	return ir.ToolDefinition{
		Name:        e.toolName(info),
		Description: describeEndpoint(info),
		InputSchema: schema,
		Metadata:    meta,
		Examples:    info.Examples,
	}
}

// addBody applies the flattening rule: bodies with at most FlattenBodyLimit
// top-level non-array properties merge into the tool's own properties to cut
// call-site friction; anything larger or array-shaped nests under one
// required "body" property.
func (e *Extractor) addBody(schema *ir.SchemaNode, info *EndpointInfo) {
	body := info.Body
	if body == nil || body.Schema == nil {
		return
	}
	bs := body.Schema
	flatten := bs.Type == ir.TypeObject &&
		len(bs.Properties) > 0 &&
		len(bs.Properties) <= e.opts.FlattenBodyLimit
	if flatten {
		for _, prop := range bs.Properties {
			if prop.Type == ir.TypeArray {
				flatten = false
				break
			}
		}
	}
	if flatten {
		names := make([]string, 0, len(bs.Properties))
		for name := range bs.Properties {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			schema.SetProperty(name, bs.Properties[name], body.Required && bs.IsRequired(name))
		}
		return
	}
	node := bs
	if node.Description == "" {
		node.Description = "Request body"
	}
	schema.SetProperty("body", node, true)
}

// toolName derives a deterministic name from the operation id when present,
// else from method plus path segments.
func (e *Extractor) toolName(info *EndpointInfo) string {
	var base string
	if info.OperationID != "" {
		base = info.OperationID
	} else {
		p := strings.Trim(info.Path, "/")
		p = strings.ReplaceAll(p, "{", "")
		p = strings.ReplaceAll(p, "}", "")
		p = strings.ReplaceAll(p, "/", "_")
		base = strings.ToLower(info.Method) + "_" + p
	}
	name := applyNaming(base, e.opts.Naming)
	if e.opts.NamePrefix != "" {
		name = e.opts.NamePrefix + name
	}
	return name
}

func describeEndpoint(info *EndpointInfo) string {
	if info.Description != "" {
		return info.Description
	}
	if info.Summary != "" {
		return info.Summary
	}
	return fmt.Sprintf("%s %s", info.Method, info.Path)
}

// applyNaming normalizes an identifier into the requested casing.
func applyNaming(name string, style NamingStyle) string {
	words := splitWords(name)
	if len(words) == 0 {
		return strings.ToLower(name)
	}
	switch style {
	case NamingCamel:
		var b strings.Builder
		for i, w := range words {
			if i == 0 {
				b.WriteString(w)
				continue
			}
			b.WriteString(strings.ToUpper(w[:1]) + w[1:])
		}
		return b.String()
	default:
		return strings.Join(words, "_")
	}
}

// splitWords breaks an identifier at underscores, dashes, slashes and
// camelCase boundaries, returning lower-case words.
func splitWords(s string) []string {
	var words []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			words = append(words, current.String())
			current.Reset()
		}
	}
	runes := []rune(s)
	for i, r := range runes {
		switch {
		case unicode.IsUpper(r):
			if i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])) {
				flush()
			}
			current.WriteRune(unicode.ToLower(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			current.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return words
}
