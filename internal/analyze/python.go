package analyze

import (
	"regexp"
	"strings"

	"github.com/nirholas/specbridge/internal/extract/openapi"
	"github.com/nirholas/specbridge/internal/ir"
)

var (
	pythonImportRe   = regexp.MustCompile(`from\s+(fastapi|flask)\s+import|import\s+(fastapi|flask)\b`)
	fastapiRouteRe   = regexp.MustCompile(`^\s*@\s*[\w.]+\.(get|post|put|patch|delete|options|head)\(\s*['"]([^'"]+)['"]`)
	flaskRouteRe     = regexp.MustCompile(`^\s*@\s*[\w.]+\.route\(\s*['"]([^'"]+)['"](.*)\)`)
	flaskMethodsRe   = regexp.MustCompile(`methods\s*=\s*\[([^\]]*)\]`)
	pyDefRe          = regexp.MustCompile(`^\s*(?:async\s+)?def\s+(\w+)\s*\(([^)]*)`)
	pydanticClassRe  = regexp.MustCompile(`^\s*class\s+(\w+)\s*\(\s*(?:pydantic\.)?BaseModel\s*\)\s*:`)
	pyClassFieldRe   = regexp.MustCompile(`^\s+(\w+)\s*:\s*([^=#]+?)\s*(=.*)?$`)
	pyDeprecatedRe   = regexp.MustCompile(`deprecated\s*=\s*True`)
	routeDecoratorRe = regexp.MustCompile(`^\s*@`)
)

// PythonAnalyzer mines FastAPI decorator routes (@app.get("/items"))
// and Flask routes (@app.route("/items", methods=["GET"])) plus
// Pydantic model declarations from Python sources.
type PythonAnalyzer struct{}

func NewPythonAnalyzer() *PythonAnalyzer { return &PythonAnalyzer{} }

func (a *PythonAnalyzer) Name() string { return "fastapi-flask" }

func (a *PythonAnalyzer) CanAnalyze(files []File) bool {
	imported, routed := false, false
	for _, f := range files {
		if !imported && pythonImportRe.MatchString(f.Content) {
			imported = true
		}
		if !routed {
			for _, line := range strings.Split(f.Content, "\n") {
				if fastapiRouteRe.MatchString(line) || flaskRouteRe.MatchString(line) {
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

func (a *PythonAnalyzer) Analyze(files []File) *Result {
	result := &Result{Schemas: map[string]*ir.SchemaNode{}}
	for _, f := range files {
		a.collectModels(f, result)
	}
	for _, f := range files {
		a.collectRoutes(f, result)
	}
	return result
}

// collectModels registers every Pydantic model body as an object schema.
// Fields with a default value (including None) are optional.
func (a *PythonAnalyzer) collectModels(f File, result *Result) {
	lines := strings.Split(f.Content, "\n")
	for i := 0; i < len(lines); i++ {
		m := pydanticClassRe.FindStringSubmatch(lines[i])
		if m == nil {
			continue
		}
		node := ir.NewObjectSchema()
		for i++; i < len(lines); i++ {
			line := lines[i]
			if strings.TrimSpace(line) == "" {
				continue
			}
			if !strings.HasPrefix(line, " ") && !strings.HasPrefix(line, "\t") {
				break
			}
			fm := pyClassFieldRe.FindStringSubmatch(line)
			if fm == nil {
				continue
			}
			hasDefault := fm[3] != ""
			schema := pyTypeToSchema(fm[2])
			optionalType := strings.HasPrefix(strings.TrimSpace(fm[2]), "Optional[")
			node.SetProperty(fm[1], schema, !hasDefault && !optionalType)
		}
		i--
		result.Schemas[m[1]] = node
	}
}

func (a *PythonAnalyzer) collectRoutes(f File, result *Result) {
	lines := strings.Split(f.Content, "\n")
	for i := 0; i < len(lines); i++ {
		var rawPath string
		var methods []string
		deprecated := false

		if m := fastapiRouteRe.FindStringSubmatch(lines[i]); m != nil {
			rawPath = m[2]
			methods = []string{strings.ToUpper(m[1])}
			deprecated = pyDeprecatedRe.MatchString(lines[i])
		} else if m := flaskRouteRe.FindStringSubmatch(lines[i]); m != nil {
			rawPath = m[1]
			methods = flaskMethods(m[2])
		} else {
			continue
		}

		defLine, def := nextDef(lines, i+1)
		if def == nil {
			result.Warnings = append(result.Warnings, ir.Warning{
				Message:  "route decorator has no following function definition",
				Location: f.Path,
			})
			continue
		}

		path, pathParams := normalizePath(rawPath)
		doc := parseDocLines(docstringLines(lines, defLine))

		for _, method := range methods {
			info := openapi.EndpointInfo{
				Path:        path,
				Method:      method,
				OperationID: def.name,
				Deprecated:  deprecated,
			}
			a.bindParams(&info, def, pathParams, result)
			doc.apply(&info)
			if doc.Deprecated {
				info.Deprecated = true
			}
			result.Endpoints = append(result.Endpoints, info)
		}
	}
}

type pyDef struct {
	name   string
	params []pyParam
}

type pyParam struct {
	name       string
	typeName   string
	hasDefault bool
}

// nextDef finds the def that the decorator stack decorates, skipping
// any further decorators between them.
func nextDef(lines []string, from int) (int, *pyDef) {
	for i := from; i < len(lines) && i < from+10; i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" || routeDecoratorRe.MatchString(lines[i]) {
			continue
		}
		m := pyDefRe.FindStringSubmatch(lines[i])
		if m == nil {
			return 0, nil
		}
		// Signatures can span lines; gather until the paren closes.
		sig := m[2]
		depth := strings.Count(lines[i], "(") - strings.Count(lines[i], ")")
		for j := i + 1; j < len(lines) && depth > 0; j++ {
			sig += " " + strings.TrimSpace(strings.SplitN(lines[j], ")", 2)[0])
			depth += strings.Count(lines[j], "(") - strings.Count(lines[j], ")")
		}
		def := &pyDef{name: m[1]}
		for _, raw := range splitTopLevel(sig) {
			raw = strings.TrimSpace(raw)
			if raw == "" || raw == "self" || strings.HasPrefix(raw, "*") {
				continue
			}
			p := pyParam{}
			if name, rest, ok := strings.Cut(raw, ":"); ok {
				p.name = strings.TrimSpace(name)
				typePart := rest
				if t, _, hasEq := strings.Cut(rest, "="); hasEq {
					typePart = t
					p.hasDefault = true
				}
				p.typeName = strings.TrimSpace(typePart)
			} else {
				name, _, hasEq := strings.Cut(raw, "=")
				p.name = strings.TrimSpace(name)
				p.hasDefault = hasEq
			}
			def.params = append(def.params, p)
		}
		return i, def
	}
	return 0, nil
}

// splitTopLevel splits a signature on commas that are not nested inside
// brackets, so Dict[str, int] stays one parameter.
func splitTopLevel(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '[', '(':
			depth++
		case ']', ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// bindParams assigns each handler parameter a location: names matching
// a path placeholder are path parameters, names matching a collected
// model become the request body, everything else is a query parameter.
func (a *PythonAnalyzer) bindParams(info *openapi.EndpointInfo, def *pyDef, pathParams []string, result *Result) {
	isPathParam := map[string]bool{}
	for _, p := range pathParams {
		isPathParam[p] = true
	}
	for _, p := range def.params {
		if isPathParam[p.name] {
			info.Parameters = append(info.Parameters, openapi.Parameter{
				Name:     p.name,
				In:       openapi.InPath,
				Required: true,
				Schema:   pyTypeToSchema(p.typeName),
			})
			delete(isPathParam, p.name)
			continue
		}
		if schema, ok := result.Schemas[strings.TrimSpace(p.typeName)]; ok {
			info.Body = &openapi.RequestBody{
				ContentType: "application/json",
				Required:    !p.hasDefault,
				Schema:      schema,
			}
			continue
		}
		info.Parameters = append(info.Parameters, openapi.Parameter{
			Name:     p.name,
			In:       openapi.InQuery,
			Required: !p.hasDefault && !strings.HasPrefix(p.typeName, "Optional["),
			Schema:   pyTypeToSchema(p.typeName),
		})
	}
	// Placeholders with no matching handler parameter still need to be
	// declared, or the transform stage would drop them.
	for _, p := range pathParams {
		if isPathParam[p] {
			info.Parameters = append(info.Parameters, openapi.Parameter{
				Name:     p,
				In:       openapi.InPath,
				Required: true,
				Schema:   &ir.SchemaNode{Type: ir.TypeString},
			})
		}
	}
}

// docstringLines returns the triple-quoted docstring placed as the
// first statement of the function body, if any.
func docstringLines(lines []string, defLine int) []string {
	i := defLine + 1
	// skip the remainder of a multi-line signature
	for i < len(lines) && !strings.Contains(lines[defLine], ":") {
		if strings.Contains(lines[i], ":") && strings.Contains(lines[i], ")") {
			defLine = i
		}
		i++
	}
	for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
		i++
	}
	if i >= len(lines) {
		return nil
	}
	trimmed := strings.TrimSpace(lines[i])
	quote := ""
	switch {
	case strings.HasPrefix(trimmed, `"""`):
		quote = `"""`
	case strings.HasPrefix(trimmed, "'''"):
		quote = "'''"
	default:
		return nil
	}
	first := strings.TrimPrefix(trimmed, quote)
	if strings.HasSuffix(first, quote) && first != "" {
		return []string{strings.TrimSuffix(first, quote)}
	}
	collected := []string{first}
	for i++; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if strings.HasSuffix(line, quote) || strings.HasPrefix(line, quote) {
			collected = append(collected, strings.TrimSuffix(line, quote))
			break
		}
		collected = append(collected, line)
	}
	return collected
}

func pyTypeToSchema(py string) *ir.SchemaNode {
	py = strings.TrimSpace(py)
	if inner, ok := bracketArg(py, "Optional"); ok {
		return pyTypeToSchema(inner)
	}
	if inner, ok := bracketArg(py, "List"); ok {
		return &ir.SchemaNode{Type: ir.TypeArray, Items: pyTypeToSchema(inner)}
	}
	if inner, ok := bracketArg(py, "list"); ok {
		return &ir.SchemaNode{Type: ir.TypeArray, Items: pyTypeToSchema(inner)}
	}
	switch py {
	case "str":
		return &ir.SchemaNode{Type: ir.TypeString}
	case "int":
		return &ir.SchemaNode{Type: ir.TypeInteger}
	case "float":
		return &ir.SchemaNode{Type: ir.TypeNumber}
	case "bool":
		return &ir.SchemaNode{Type: ir.TypeBoolean}
	case "dict", "Dict":
		return &ir.SchemaNode{Type: ir.TypeObject}
	case "datetime", "datetime.datetime":
		return &ir.SchemaNode{Type: ir.TypeString, Format: "date-time"}
	case "date", "datetime.date":
		return &ir.SchemaNode{Type: ir.TypeString, Format: "date"}
	case "list", "List":
		return &ir.SchemaNode{Type: ir.TypeArray}
	}
	if strings.HasPrefix(py, "Dict[") || strings.HasPrefix(py, "dict[") {
		return &ir.SchemaNode{Type: ir.TypeObject}
	}
	return &ir.SchemaNode{Type: ir.TypeString}
}

func bracketArg(py, name string) (string, bool) {
	if strings.HasPrefix(py, name+"[") && strings.HasSuffix(py, "]") {
		return py[len(name)+1 : len(py)-1], true
	}
	return "", false
}

func flaskMethods(rest string) []string {
	m := flaskMethodsRe.FindStringSubmatch(rest)
	if m == nil {
		return []string{"GET"}
	}
	var methods []string
	for _, raw := range strings.Split(m[1], ",") {
		method := strings.ToUpper(strings.Trim(strings.TrimSpace(raw), `'"`))
		if method != "" {
			methods = append(methods, method)
		}
	}
	if len(methods) == 0 {
		return []string{"GET"}
	}
	return methods
}
