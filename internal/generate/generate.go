// Package generate is the templated backend: finalized tool definitions
// plus generation options in, a relative-path to file-contents map out.
// The engine never touches the filesystem; persisting the files is the
// caller's job.
package generate

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/nirholas/specbridge/internal/converter"
	"github.com/nirholas/specbridge/internal/ir"
)

// Target selects the emitted language.
type Target string

const (
	TargetTypeScript Target = "typescript"
	TargetJavaScript Target = "javascript"
)

// Features are the independently toggleable behaviors of generated tools.
type Features struct {
	// PaginationAutoFollow emits a next-page loop for tools whose source
	// endpoint was detected as paginated.
	PaginationAutoFollow bool
	// Retry wraps calls in exponential backoff.
	Retry bool
	// CacheTTL enables an in-memory response cache for GET tools, in
	// seconds. Zero disables caching.
	CacheTTL int
	// InputValidation checks required properties before dispatch.
	InputValidation bool
}

// AuthStrategy binds the generated server to one credential source.
type AuthStrategy struct {
	Type   ir.AuthType
	EnvVar string
	// Header overrides the header name for apiKey auth.
	Header string
}

// Options drive one generation run.
type Options struct {
	Target        Target
	ServerName    string
	ServerVersion string
	BaseURL       string
	GroupBy       converter.GroupBy
	Auth          *AuthStrategy
	Features      Features
	// PaginationCap bounds the auto-follow loop. Tunable, not load-bearing.
	PaginationCap int
}

// DefaultOptions mirror the documented generator defaults.
func DefaultOptions() Options {
	return Options{
		Target:        TargetTypeScript,
		ServerName:    "generated-server",
		ServerVersion: "0.1.0",
		GroupBy:       converter.GroupByTags,
		Features: Features{
			Retry:           true,
			InputValidation: true,
		},
		PaginationCap: 10,
	}
}

// Generate renders the full file set for the tools: server entry point,
// grouped tool modules, runtime utilities, manifest and README. The
// result is deterministic for identical input.
func Generate(tools []ir.ToolDefinition, opts Options) (map[string]string, error) {
	if opts.ServerName == "" {
		opts.ServerName = "generated-server"
	}
	if opts.ServerVersion == "" {
		opts.ServerVersion = "0.1.0"
	}
	if opts.PaginationCap <= 0 {
		opts.PaginationCap = 10
	}
	switch opts.Target {
	case TargetTypeScript, TargetJavaScript:
	case "":
		opts.Target = TargetTypeScript
	default:
		return nil, fmt.Errorf("unsupported generation target %q", opts.Target)
	}

	ctx, err := buildContext(tools, opts)
	if err != nil {
		return nil, err
	}

	files := map[string]string{}
	ext := ctx.Ext

	render := func(path string, tmpl string, data any) error {
		out, err := execTemplate(tmpl, data)
		if err != nil {
			return fmt.Errorf("rendering %s: %w", path, err)
		}
		files[path] = out
		return nil
	}

	if err := render("package.json", manifestTemplate, ctx); err != nil {
		return nil, err
	}
	if err := render("README.md", readmeTemplate, ctx); err != nil {
		return nil, err
	}
	if err := render("src/runtime."+ext, runtimeTemplate, ctx); err != nil {
		return nil, err
	}
	if err := render("src/index."+ext, indexTemplate, ctx); err != nil {
		return nil, err
	}
	for _, group := range ctx.Groups {
		if err := render("src/tools/"+group.FileName+"."+ext, groupTemplate, struct {
			*renderContext
			Group *toolGroup
		}{ctx, group}); err != nil {
			return nil, err
		}
	}
	return files, nil
}

// renderContext is the template input: everything is precomputed here so
// no template ever re-derives information from the IR.
type renderContext struct {
	Options
	TypeScript bool
	Ext        string
	Groups     []*toolGroup
	ToolCount  int
	EnvVars    []string
}

type toolGroup struct {
	Name     string
	FileName string
	Symbol   string
	Tools    []*renderedTool
}

type renderedTool struct {
	Name         string
	Symbol       string
	Description  string
	SchemaJSON   string
	Required     []string
	Method       string
	Path         string
	BaseURL      string
	ContentType  string
	PathParams   []string
	BodyProps    []string
	QueryProps   []string
	Paginated    bool
	PageParam    string
	Cacheable    bool
	Deprecated   bool
	HTTPBound    bool
	FormatNote   string
	AuthEnvVar   string
	RequiredJSON string
}

func buildContext(tools []ir.ToolDefinition, opts Options) (*renderContext, error) {
	grouped := map[string]*toolGroup{}
	var order []string
	envVars := map[string]bool{}

	for _, tool := range tools {
		key := converter.GroupKey(tool, opts.GroupBy)
		group, ok := grouped[key]
		if !ok {
			group = &toolGroup{
				Name:     key,
				FileName: fileName(key),
				Symbol:   symbol(key) + "Tools",
			}
			grouped[key] = group
			order = append(order, key)
		}
		rt, err := renderTool(tool, opts)
		if err != nil {
			return nil, err
		}
		if rt.AuthEnvVar != "" {
			envVars[rt.AuthEnvVar] = true
		}
		group.Tools = append(group.Tools, rt)
	}
	sort.Strings(order)

	ctx := &renderContext{
		Options:    opts,
		TypeScript: opts.Target == TargetTypeScript,
		Ext:        extensionFor(opts.Target),
		ToolCount:  len(tools),
	}
	for _, key := range order {
		ctx.Groups = append(ctx.Groups, grouped[key])
	}
	if opts.Auth != nil && opts.Auth.EnvVar != "" {
		envVars[opts.Auth.EnvVar] = true
	}
	for v := range envVars {
		ctx.EnvVars = append(ctx.EnvVars, v)
	}
	sort.Strings(ctx.EnvVars)
	return ctx, nil
}

func renderTool(tool ir.ToolDefinition, opts Options) (*renderedTool, error) {
	schema, err := json.MarshalIndent(tool.InputSchema.ToMap(), "  ", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling schema for %s: %w", tool.Name, err)
	}
	requiredJSON, err := json.Marshal(requiredOf(tool))
	if err != nil {
		return nil, err
	}

	rt := &renderedTool{
		Name:         tool.Name,
		Symbol:       symbol(tool.Name),
		Description:  tool.Description,
		SchemaJSON:   string(schema),
		Required:     requiredOf(tool),
		RequiredJSON: string(requiredJSON),
		Deprecated:   tool.Metadata.Deprecated,
	}
	if tool.Metadata.Auth != nil && tool.Metadata.Auth.EnvVar != "" {
		rt.AuthEnvVar = tool.Metadata.Auth.EnvVar
	}
	if http := tool.Metadata.HTTP; http != nil {
		rt.HTTPBound = true
		rt.Method = http.Method
		rt.Path = http.Path
		rt.BaseURL = http.BaseURL
		rt.ContentType = http.ContentType
		rt.PathParams = templateParams(http.Path)
		rt.Cacheable = opts.Features.CacheTTL > 0 && http.Method == "GET"
		if http.Pagination != nil {
			rt.Paginated = opts.Features.PaginationAutoFollow
			rt.PageParam = http.Pagination.ParamName
		}
		for name := range tool.InputSchema.Properties {
			if contains(rt.PathParams, name) {
				continue
			}
			if http.Method == "GET" || http.Method == "DELETE" || http.Method == "HEAD" {
				rt.QueryProps = append(rt.QueryProps, name)
			} else {
				rt.BodyProps = append(rt.BodyProps, name)
			}
		}
		sort.Strings(rt.QueryProps)
		sort.Strings(rt.BodyProps)
	} else {
		rt.FormatNote = formatNote(tool.Metadata)
	}
	return rt, nil
}

func requiredOf(tool ir.ToolDefinition) []string {
	required := append([]string(nil), tool.InputSchema.Required...)
	if required == nil {
		required = []string{}
	}
	return required
}

// formatNote explains why a tool has no HTTP dispatch. Non-HTTP bindings
// (message channels, gRPC without transcoding, GraphQL) generate a stub
// that surfaces the invocation metadata instead of calling anything.
func formatNote(meta ir.Metadata) string {
	switch {
	case meta.Channel != nil:
		return fmt.Sprintf("%s on channel %q over %s", meta.Channel.Operation, meta.Channel.Channel, meta.Channel.Protocol)
	case meta.GRPC != nil:
		return fmt.Sprintf("gRPC %s/%s", meta.GRPC.Service, meta.GRPC.Method)
	case meta.GraphQL != nil:
		return fmt.Sprintf("GraphQL %s %s", meta.GraphQL.OperationType, meta.GraphQL.FieldName)
	}
	return "no HTTP binding available"
}

func templateParams(path string) []string {
	var params []string
	for _, segment := range strings.Split(path, "/") {
		if strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}") {
			name := strings.Trim(segment, "{}")
			if idx := strings.Index(name, "="); idx >= 0 {
				name = name[:idx]
			}
			params = append(params, name)
		}
	}
	return params
}

func extensionFor(target Target) string {
	if target == TargetJavaScript {
		return "js"
	}
	return "ts"
}

// symbol turns a tool or group name into a valid camelCase identifier.
func symbol(name string) string {
	var b strings.Builder
	upper := false
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
			if upper && b.Len() > 0 {
				b.WriteRune(r - 'a' + 'A')
			} else {
				b.WriteRune(r)
			}
			upper = false
		case r >= '0' && r <= '9':
			// Digits have no uppercase form; a separator before one is dropped.
			b.WriteRune(r)
			upper = false
		case r >= 'A' && r <= 'Z':
			if b.Len() == 0 {
				b.WriteRune(r - 'A' + 'a')
			} else {
				b.WriteRune(r)
			}
			upper = false
		default:
			upper = true
		}
	}
	if b.Len() == 0 {
		return "tool"
	}
	out := b.String()
	if out[0] >= '0' && out[0] <= '9' {
		out = "t" + out
	}
	return out
}

func fileName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if b.Len() > 0 && !strings.HasSuffix(b.String(), "-") {
			b.WriteByte('-')
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "tools"
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
