// Package insomnia extracts one tool per request from Insomnia workspace
// exports (format 4). Environment variables are substituted into URLs and
// bodies before schema inference, mirroring the Postman extractor.
package insomnia

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/nirholas/specbridge/internal/infer"
	"github.com/nirholas/specbridge/internal/ir"
	"github.com/spf13/cast"
)

// Extract parses an Insomnia export and builds one tool per request
// resource. Request groups become folder paths; ordering is stable by
// resource id so output is reproducible.
func Extract(data []byte) (*ir.UnifiedParseResult, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ir.MalformedSpecError{Format: ir.FormatInsomnia, Cause: err}
	}
	if t := cast.ToString(doc["_type"]); t != "export" {
		return nil, &ir.MalformedSpecError{
			Format: ir.FormatInsomnia,
			Cause:  fmt.Errorf("document is not an Insomnia export"),
		}
	}
	resources, ok := doc["resources"].([]any)
	if !ok {
		return nil, &ir.MalformedSpecError{
			Format: ir.FormatInsomnia,
			Cause:  fmt.Errorf("export has no resources array"),
		}
	}

	groups := map[string]group{}
	vars := map[string]string{}
	var requests []map[string]any
	title := ""

	for _, raw := range resources {
		res, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		switch cast.ToString(res["_type"]) {
		case "workspace":
			if title == "" {
				title = cast.ToString(res["name"])
			}
		case "request_group":
			groups[cast.ToString(res["_id"])] = group{
				name:   cast.ToString(res["name"]),
				parent: cast.ToString(res["parentId"]),
			}
		case "environment":
			if envData, ok := res["data"].(map[string]any); ok {
				for k, v := range envData {
					vars[k] = cast.ToString(v)
				}
			}
		case "request":
			requests = append(requests, res)
		}
	}

	sort.Slice(requests, func(i, j int) bool {
		return cast.ToString(requests[i]["_id"]) < cast.ToString(requests[j]["_id"])
	})

	result := &ir.UnifiedParseResult{
		Format: ir.FormatInsomnia,
		Info:   ir.Info{Title: title},
	}
	seen := map[string]int{}
	for _, req := range requests {
		tool := buildTool(req, groups, vars)
		if n := seen[tool.Name]; n > 0 {
			seen[tool.Name] = n + 1
			tool.Name = fmt.Sprintf("%s_%d", tool.Name, n+1)
		} else {
			seen[tool.Name] = 1
		}
		result.Tools = append(result.Tools, tool)
	}
	return result, nil
}

type group struct {
	name   string
	parent string
}

func buildTool(req map[string]any, groups map[string]group, vars map[string]string) ir.ToolDefinition {
	name := cast.ToString(req["name"])
	method := strings.ToUpper(cast.ToString(req["method"]))
	if method == "" {
		method = "GET"
	}
	folder := folderPath(cast.ToString(req["parentId"]), groups)
	rawURL := substitute(cast.ToString(req["url"]), vars)

	input := ir.NewObjectSchema()
	for _, p := range pathParams(rawURL) {
		input.SetProperty(p, &ir.SchemaNode{
			Type:        ir.TypeString,
			Description: fmt.Sprintf("Path parameter: %s", p),
		}, true)
	}
	if params, ok := req["parameters"].([]any); ok {
		for _, raw := range params {
			if m, ok := raw.(map[string]any); ok {
				key := cast.ToString(m["name"])
				if key == "" {
					continue
				}
				node := &ir.SchemaNode{
					Type:        ir.TypeString,
					Description: fmt.Sprintf("Query parameter: %s", key),
				}
				if value := substitute(cast.ToString(m["value"]), vars); value != "" {
					node.Example = value
				}
				input.SetProperty(key, node, false)
			}
		}
	}
	addBody(input, req, vars)

	description := cast.ToString(req["description"])
	if description == "" {
		description = fmt.Sprintf("%s %s", method, displayPath(rawURL))
	}

	meta := ir.Metadata{
		Format: ir.FormatInsomnia,
		HTTP:   &ir.HTTPBinding{Method: method, Path: displayPath(rawURL)},
		Folder: strings.Join(folder, "/"),
	}
	if base := baseOf(rawURL); base != "" {
		meta.HTTP.BaseURL = base
	}
	if auth := parseAuth(req["authentication"]); auth != nil {
		meta.Auth = auth
	}

	parts := append(append([]string(nil), folder...), name)
	return ir.ToolDefinition{
		Name:        toSnake(strings.Join(parts, "_")),
		Description: description,
		InputSchema: input,
		Metadata:    meta,
	}
}

func addBody(input *ir.SchemaNode, req map[string]any, vars map[string]string) {
	body, ok := req["body"].(map[string]any)
	if !ok {
		return
	}
	text := substitute(cast.ToString(body["text"]), vars)
	if text == "" {
		return
	}
	var example any
	if err := json.Unmarshal([]byte(text), &example); err != nil {
		return
	}
	node := infer.Infer(example)
	if node.Type == ir.TypeObject {
		names := make([]string, 0, len(node.Properties))
		for n := range node.Properties {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			input.SetProperty(n, node.Properties[n], false)
		}
		return
	}
	input.SetProperty("body", node, false)
}

func parseAuth(raw any) *ir.AuthRequirement {
	auth, ok := raw.(map[string]any)
	if !ok {
		return nil
	}
	switch cast.ToString(auth["type"]) {
	case "bearer":
		return &ir.AuthRequirement{Type: ir.AuthBearer}
	case "basic":
		return &ir.AuthRequirement{Type: ir.AuthBasic}
	case "apikey":
		return &ir.AuthRequirement{
			Type: ir.AuthAPIKey,
			In:   "header",
			Name: cast.ToString(auth["key"]),
		}
	case "oauth2":
		return &ir.AuthRequirement{Type: ir.AuthOAuth2}
	}
	return nil
}

func folderPath(parentID string, groups map[string]group) []string {
	var parts []string
	for parentID != "" {
		g, ok := groups[parentID]
		if !ok {
			break
		}
		parts = append([]string{g.name}, parts...)
		parentID = g.parent
	}
	return parts
}

// substitute resolves {{ _.name }} and {{name}} placeholders against the
// merged environment. Unknown variables collapse to empty.
func substitute(s string, vars map[string]string) string {
	for {
		start := strings.Index(s, "{{")
		if start < 0 {
			return s
		}
		end := strings.Index(s[start:], "}}")
		if end < 0 {
			return s
		}
		name := strings.TrimSpace(s[start+2 : start+end])
		name = strings.TrimPrefix(name, "_.")
		s = s[:start] + vars[name] + s[start+end+2:]
	}
}

func pathParams(rawURL string) []string {
	var out []string
	for _, segment := range strings.Split(pathOf(rawURL), "/") {
		if strings.HasPrefix(segment, ":") && len(segment) > 1 {
			out = append(out, segment[1:])
		}
	}
	return out
}

func pathOf(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		return u.Path
	}
	return rawURL
}

func baseOf(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Scheme != "" {
		return u.Scheme + "://" + u.Host
	}
	return ""
}

func displayPath(rawURL string) string {
	var segments []string
	for _, segment := range strings.Split(pathOf(rawURL), "/") {
		if strings.HasPrefix(segment, ":") && len(segment) > 1 {
			segments = append(segments, "{"+segment[1:]+"}")
			continue
		}
		segments = append(segments, segment)
	}
	return strings.Join(segments, "/")
}

func toSnake(s string) string {
	var b strings.Builder
	prevUnderscore := false
	for i, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			if i > 0 && !prevUnderscore {
				prev := rune(s[i-1])
				if prev >= 'a' && prev <= 'z' || prev >= '0' && prev <= '9' {
					b.WriteByte('_')
				}
			}
			b.WriteRune(r - 'A' + 'a')
			prevUnderscore = false
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
		default:
			if !prevUnderscore && b.Len() > 0 {
				b.WriteByte('_')
			}
			prevUnderscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}
