// Package postman extracts one tool per request from Postman collection
// exports (v2.x). Collection variables are substituted into URLs and bodies
// before schema inference runs, so {{base_url}} placeholders never leak into
// generated schemas.
package postman

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/nirholas/specbridge/internal/infer"
	"github.com/nirholas/specbridge/internal/ir"
	"github.com/spf13/cast"
)

// Extract parses a collection and walks its folder tree depth-first,
// producing one tool per request.
func Extract(data []byte) (*ir.UnifiedParseResult, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ir.MalformedSpecError{Format: ir.FormatPostman, Cause: err}
	}
	items, ok := doc["item"].([]any)
	if !ok {
		return nil, &ir.MalformedSpecError{
			Format: ir.FormatPostman,
			Cause:  fmt.Errorf("collection has no item array"),
		}
	}

	result := &ir.UnifiedParseResult{Format: ir.FormatPostman}
	if info, ok := doc["info"].(map[string]any); ok {
		result.Info = ir.Info{
			Title:       cast.ToString(info["name"]),
			Description: cast.ToString(info["description"]),
		}
	}

	vars := collectVariables(doc)
	walker := &walker{vars: vars, result: result, seen: map[string]int{}}
	walker.walk(items, nil)
	return result, nil
}

type walker struct {
	vars   map[string]string
	result *ir.UnifiedParseResult
	seen   map[string]int
}

func (w *walker) walk(items []any, folder []string) {
	for _, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		name := cast.ToString(item["name"])
		if children, ok := item["item"].([]any); ok {
			sub := append(append([]string(nil), folder...), name)
			w.walk(children, sub)
			continue
		}
		request, ok := item["request"].(map[string]any)
		if !ok {
			w.result.Warnings = append(w.result.Warnings, ir.Warning{
				Message:  "item is neither a folder nor a request, skipped",
				Location: strings.Join(append(folder, name), "/"),
			})
			continue
		}
		w.result.Tools = append(w.result.Tools, w.buildTool(name, folder, request))
	}
}

func (w *walker) buildTool(name string, folder []string, request map[string]any) ir.ToolDefinition {
	method := strings.ToUpper(cast.ToString(request["method"]))
	if method == "" {
		method = "GET"
	}
	rawURL, pathParams, queryParams := w.parseURL(request["url"])

	input := ir.NewObjectSchema()
	// Path parameters are always required, matching every other extractor.
	for _, p := range pathParams {
		input.SetProperty(p, &ir.SchemaNode{
			Type:        ir.TypeString,
			Description: fmt.Sprintf("Path parameter: %s", p),
		}, true)
	}
	for param, value := range queryParams {
		node := &ir.SchemaNode{
			Type:        ir.TypeString,
			Description: fmt.Sprintf("Query parameter: %s", param),
		}
		if value != "" {
			node.Example = value
		}
		input.SetProperty(param, node, false)
	}
	w.addBody(input, request)

	toolName := w.uniqueName(folder, name)
	description := cast.ToString(request["description"])
	if description == "" {
		description = fmt.Sprintf("%s %s", method, displayPath(rawURL))
	}

	binding := &ir.HTTPBinding{Method: method, Path: displayPath(rawURL)}
	if base := baseOf(rawURL); base != "" {
		binding.BaseURL = base
	}
	meta := ir.Metadata{
		Format: ir.FormatPostman,
		HTTP:   binding,
		Folder: strings.Join(folder, "/"),
	}
	if auth := w.parseAuth(request["auth"]); auth != nil {
		meta.Auth = auth
	}

	return ir.ToolDefinition{
		Name:        toolName,
		Description: description,
		InputSchema: input,
		Metadata:    meta,
	}
}

// parseURL normalizes the request URL (string or structured form), applies
// variable substitution and returns the resolved URL, path parameter names
// and query parameters with their sample values.
func (w *walker) parseURL(raw any) (string, []string, map[string]string) {
	var rawURL string
	queryParams := map[string]string{}
	var pathParams []string

	switch v := raw.(type) {
	case string:
		rawURL = v
	case map[string]any:
		rawURL = cast.ToString(v["raw"])
		if query, ok := v["query"].([]any); ok {
			for _, q := range query {
				if m, ok := q.(map[string]any); ok {
					key := cast.ToString(m["key"])
					if key != "" {
						queryParams[key] = w.substitute(cast.ToString(m["value"]))
					}
				}
			}
		}
		if vars, ok := v["variable"].([]any); ok {
			for _, pv := range vars {
				if m, ok := pv.(map[string]any); ok {
					if key := cast.ToString(m["key"]); key != "" {
						pathParams = append(pathParams, key)
					}
				}
			}
		}
	}

	rawURL = w.substitute(rawURL)
	// Postman :name segments normalize to {name} placeholders.
	for _, segment := range strings.Split(pathOf(rawURL), "/") {
		if strings.HasPrefix(segment, ":") && len(segment) > 1 {
			name := segment[1:]
			if !contains(pathParams, name) {
				pathParams = append(pathParams, name)
			}
		}
	}
	return rawURL, pathParams, queryParams
}

func (w *walker) addBody(input *ir.SchemaNode, request map[string]any) {
	body, ok := request["body"].(map[string]any)
	if !ok {
		return
	}
	switch cast.ToString(body["mode"]) {
	case "raw":
		raw := w.substitute(cast.ToString(body["raw"]))
		var example any
		if err := json.Unmarshal([]byte(raw), &example); err == nil {
			node := infer.Infer(example)
			if node.Type == ir.TypeObject {
				for name, prop := range node.Properties {
					input.SetProperty(name, prop, false)
				}
			} else {
				input.SetProperty("body", node, false)
			}
		}
	case "urlencoded", "formdata":
		if fields, ok := body[cast.ToString(body["mode"])].([]any); ok {
			for _, f := range fields {
				if m, ok := f.(map[string]any); ok {
					key := cast.ToString(m["key"])
					if key != "" {
						input.SetProperty(key, &ir.SchemaNode{Type: ir.TypeString}, false)
					}
				}
			}
		}
	}
}

func (w *walker) parseAuth(raw any) *ir.AuthRequirement {
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
		req := &ir.AuthRequirement{Type: ir.AuthAPIKey, In: "header"}
		if params, ok := auth["apikey"].([]any); ok {
			for _, p := range params {
				if m, ok := p.(map[string]any); ok {
					switch cast.ToString(m["key"]) {
					case "key":
						req.Name = cast.ToString(m["value"])
					case "in":
						req.In = cast.ToString(m["value"])
					}
				}
			}
		}
		return req
	case "oauth2":
		return &ir.AuthRequirement{Type: ir.AuthOAuth2}
	}
	return nil
}

// substitute replaces {{variable}} placeholders with collection values.
// Unknown variables collapse to an empty string so they cannot leak into
// schemas or URLs.
func (w *walker) substitute(s string) string {
	for {
		start := strings.Index(s, "{{")
		if start < 0 {
			return s
		}
		end := strings.Index(s[start:], "}}")
		if end < 0 {
			return s
		}
		name := s[start+2 : start+end]
		s = s[:start] + w.vars[name] + s[start+end+2:]
	}
}

func (w *walker) uniqueName(folder []string, name string) string {
	parts := append(append([]string(nil), folder...), name)
	base := toSnake(strings.Join(parts, "_"))
	if n := w.seen[base]; n > 0 {
		w.seen[base] = n + 1
		return fmt.Sprintf("%s_%d", base, n+1)
	}
	w.seen[base] = 1
	return base
}

func collectVariables(doc map[string]any) map[string]string {
	out := map[string]string{}
	if vars, ok := doc["variable"].([]any); ok {
		for _, v := range vars {
			if m, ok := v.(map[string]any); ok {
				key := cast.ToString(m["key"])
				if key != "" {
					out[key] = cast.ToString(m["value"])
				}
			}
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
	p := pathOf(rawURL)
	var segments []string
	for _, segment := range strings.Split(p, "/") {
		if strings.HasPrefix(segment, ":") && len(segment) > 1 {
			segments = append(segments, "{"+segment[1:]+"}")
			continue
		}
		segments = append(segments, segment)
	}
	return strings.Join(segments, "/")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
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
