package analyze

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nirholas/specbridge/internal/extract/openapi"
	"github.com/nirholas/specbridge/internal/ir"
)

var (
	expressImportRe = regexp.MustCompile(`require\(['"]express['"]\)|from\s+['"]express['"]`)
	expressRouteRe  = regexp.MustCompile("^\\s*[A-Za-z_$][\\w$]*\\.(get|post|put|patch|delete|options|head)\\s*\\(\\s*['\"`]([^'\"`]+)['\"`]")
	tsInterfaceRe   = regexp.MustCompile(`^\s*(?:export\s+)?interface\s+(\w+)\s*\{`)
	tsFieldRe       = regexp.MustCompile(`^\s*(\w+)(\?)?\s*:\s*([^;,]+?)\s*[;,]?\s*$`)
	bodyCastRe      = regexp.MustCompile(`req\.body\s+as\s+(\w+)`)
	queryAccessRe   = regexp.MustCompile(`req\.query\.(\w+)`)
	queryDestrucRe  = regexp.MustCompile(`(?:const|let|var)\s*\{([^}]+)\}\s*=\s*req\.query`)
)

// ExpressAnalyzer mines Express-style route declarations
// (app.get('/path', handler)) from JavaScript/TypeScript sources.
type ExpressAnalyzer struct{}

func NewExpressAnalyzer() *ExpressAnalyzer { return &ExpressAnalyzer{} }

func (a *ExpressAnalyzer) Name() string { return "express" }

func (a *ExpressAnalyzer) CanAnalyze(files []File) bool {
	imported, routed := false, false
	for _, f := range files {
		if !imported && expressImportRe.MatchString(f.Content) {
			imported = true
		}
		if !routed {
			for _, line := range strings.Split(f.Content, "\n") {
				if expressRouteRe.MatchString(line) {
					routed = true
					break
				}
			}
		}
		if imported && routed {
			return true
		}
	}
	return false
}

func (a *ExpressAnalyzer) Analyze(files []File) *Result {
	result := &Result{Schemas: map[string]*ir.SchemaNode{}}
	// Two passes: the type table must be fully populated before any
	// handler is matched against it, so a route in one file can use an
	// interface declared in another.
	for _, f := range files {
		a.collectInterfaces(f, result)
	}
	for _, f := range files {
		a.collectRoutes(f, result)
	}
	return result
}

func (a *ExpressAnalyzer) collectInterfaces(f File, result *Result) {
	lines := strings.Split(f.Content, "\n")
	for i := 0; i < len(lines); i++ {
		m := tsInterfaceRe.FindStringSubmatch(lines[i])
		if m == nil {
			continue
		}
		node := ir.NewObjectSchema()
		depth := strings.Count(lines[i], "{") - strings.Count(lines[i], "}")
		for i++; i < len(lines) && depth > 0; i++ {
			line := lines[i]
			depth += strings.Count(line, "{") - strings.Count(line, "}")
			fm := tsFieldRe.FindStringSubmatch(line)
			if fm == nil {
				continue
			}
			node.SetProperty(fm[1], tsTypeToSchema(fm[3]), fm[2] != "?")
		}
		i--
		result.Schemas[m[1]] = node
	}
}

func (a *ExpressAnalyzer) collectRoutes(f File, result *Result) {
	lines := strings.Split(f.Content, "\n")
	for i := 0; i < len(lines); i++ {
		m := expressRouteRe.FindStringSubmatch(lines[i])
		if m == nil {
			continue
		}
		method := strings.ToUpper(m[1])
		path, pathParams := normalizePath(m[2])

		info := openapi.EndpointInfo{
			Path:   path,
			Method: method,
		}
		for _, p := range pathParams {
			info.Parameters = append(info.Parameters, openapi.Parameter{
				Name:     p,
				In:       openapi.InPath,
				Required: true,
				Schema:   &ir.SchemaNode{Type: ir.TypeString},
			})
		}

		handler := handlerRegion(lines, i)
		a.addQueryParams(&info, handler)
		a.addBody(&info, handler, result, f.Path)

		doc := precedingDocComment(lines, i)
		doc.apply(&info)

		result.Endpoints = append(result.Endpoints, info)
	}
}

// handlerRegion returns the lines of the route call, tracked by paren
// depth from the declaration line.
func handlerRegion(lines []string, start int) []string {
	depth := 0
	for i := start; i < len(lines); i++ {
		depth += strings.Count(lines[i], "(") - strings.Count(lines[i], ")")
		if depth <= 0 {
			return lines[start : i+1]
		}
	}
	return lines[start:]
}

func (a *ExpressAnalyzer) addQueryParams(info *openapi.EndpointInfo, handler []string) {
	seen := map[string]bool{}
	add := func(name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		info.Parameters = append(info.Parameters, openapi.Parameter{
			Name:   name,
			In:     openapi.InQuery,
			Schema: &ir.SchemaNode{Type: ir.TypeString},
		})
	}
	for _, line := range handler {
		for _, m := range queryAccessRe.FindAllStringSubmatch(line, -1) {
			add(m[1])
		}
		if m := queryDestrucRe.FindStringSubmatch(line); m != nil {
			for _, name := range strings.Split(m[1], ",") {
				add(strings.TrimSpace(strings.Split(name, "=")[0]))
			}
		}
	}
}

// addBody matches a `req.body as TypeName` cast against the collected
// interface table. A cast to an unknown type is recorded as a warning
// and skipped.
func (a *ExpressAnalyzer) addBody(info *openapi.EndpointInfo, handler []string, result *Result, filePath string) {
	for _, line := range handler {
		m := bodyCastRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		schema, ok := result.Schemas[m[1]]
		if !ok {
			result.Warnings = append(result.Warnings, ir.Warning{
				Message:  fmt.Sprintf("request body type %q has no matching interface declaration", m[1]),
				Location: filePath,
			})
			return
		}
		info.Body = &openapi.RequestBody{
			ContentType: "application/json",
			Required:    true,
			Schema:      schema,
		}
		return
	}
}

// precedingDocComment walks backwards from the route line collecting a
// /** ... */ block or a run of // lines directly above it.
func precedingDocComment(lines []string, routeLine int) docBlock {
	var collected []string
	i := routeLine - 1
	for i >= 0 && strings.TrimSpace(lines[i]) == "" {
		i--
	}
	if i < 0 {
		return docBlock{Params: map[string]string{}}
	}
	trimmed := strings.TrimSpace(lines[i])
	switch {
	case strings.HasSuffix(trimmed, "*/"):
		for ; i >= 0; i-- {
			line := strings.TrimSpace(lines[i])
			line = strings.TrimSuffix(line, "*/")
			line = strings.TrimPrefix(line, "/**")
			line = strings.TrimPrefix(line, "/*")
			collected = append([]string{line}, collected...)
			if strings.HasPrefix(strings.TrimSpace(lines[i]), "/*") {
				break
			}
		}
	case strings.HasPrefix(trimmed, "//"):
		for ; i >= 0 && strings.HasPrefix(strings.TrimSpace(lines[i]), "//"); i-- {
			line := strings.TrimPrefix(strings.TrimSpace(lines[i]), "//")
			collected = append([]string{line}, collected...)
		}
	}
	return parseDocLines(collected)
}

func tsTypeToSchema(ts string) *ir.SchemaNode {
	ts = strings.TrimSpace(ts)
	if strings.HasSuffix(ts, "[]") {
		return &ir.SchemaNode{
			Type:  ir.TypeArray,
			Items: tsTypeToSchema(strings.TrimSuffix(ts, "[]")),
		}
	}
	if inner, ok := genericArg(ts, "Array"); ok {
		return &ir.SchemaNode{Type: ir.TypeArray, Items: tsTypeToSchema(inner)}
	}
	switch ts {
	case "string":
		return &ir.SchemaNode{Type: ir.TypeString}
	case "number":
		return &ir.SchemaNode{Type: ir.TypeNumber}
	case "boolean":
		return &ir.SchemaNode{Type: ir.TypeBoolean}
	case "Date":
		return &ir.SchemaNode{Type: ir.TypeString, Format: "date-time"}
	case "null":
		return &ir.SchemaNode{Type: ir.TypeNull}
	case "any", "unknown", "object":
		return &ir.SchemaNode{Type: ir.TypeObject}
	}
	// String-literal unions read as enums.
	if strings.Contains(ts, "|") && strings.Contains(ts, "'") {
		var values []any
		for _, part := range strings.Split(ts, "|") {
			part = strings.Trim(strings.TrimSpace(part), "'\"")
			values = append(values, part)
		}
		return &ir.SchemaNode{Type: ir.TypeString, Enum: values}
	}
	return &ir.SchemaNode{Type: ir.TypeString}
}

func genericArg(ts, name string) (string, bool) {
	if strings.HasPrefix(ts, name+"<") && strings.HasSuffix(ts, ">") {
		return ts[len(name)+1 : len(ts)-1], true
	}
	return "", false
}
