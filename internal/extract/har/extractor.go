// Package har reconstructs an API surface from HTTP Archive captures.
// Entries are grouped by method and inferred path pattern, so repeated
// calls like GET /orders/1 .. /orders/5 collapse into a single tool for
// /orders/{order_id}. Because a capture only shows traffic that actually
// happened, every tool carries a confidence annotation.
package har

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/nirholas/specbridge/internal/infer"
	"github.com/nirholas/specbridge/internal/ir"
	"github.com/yosida95/uritemplate/v3"
)

var (
	numericSegment = regexp.MustCompile(`^\d+$`)
	uuidSegment    = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)
	hashSegment    = regexp.MustCompile(`^[0-9a-f]{24,}$`)
)

// Extract parses a HAR capture and builds one tool per observed
// (method, path pattern) pair.
func Extract(data []byte) (*ir.UnifiedParseResult, error) {
	var doc struct {
		Log struct {
			Version string `json:"version"`
			Creator struct {
				Name string `json:"name"`
			} `json:"creator"`
			Entries []entry `json:"entries"`
		} `json:"log"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ir.MalformedSpecError{Format: ir.FormatHAR, Cause: err}
	}
	if doc.Log.Version == "" || doc.Log.Entries == nil {
		return nil, &ir.MalformedSpecError{
			Format: ir.FormatHAR,
			Cause:  fmt.Errorf("document has no log.version or log.entries"),
		}
	}

	result := &ir.UnifiedParseResult{
		Format: ir.FormatHAR,
		Info:   ir.Info{Title: doc.Log.Creator.Name},
	}

	groups := map[string]*endpointGroup{}
	var order []string
	for _, e := range doc.Log.Entries {
		method := strings.ToUpper(e.Request.Method)
		if method == "" || e.Request.URL == "" {
			continue
		}
		u, err := url.Parse(e.Request.URL)
		if err != nil {
			result.Warnings = append(result.Warnings, ir.Warning{
				Message: fmt.Sprintf("skipping entry with unparseable URL %q", e.Request.URL),
			})
			continue
		}
		pattern, params := inferPattern(u.Path)
		key := method + " " + pattern
		g, ok := groups[key]
		if !ok {
			g = &endpointGroup{
				method:  method,
				pattern: pattern,
				params:  params,
				baseURL: u.Scheme + "://" + u.Host,
				queries: map[string]string{},
			}
			groups[key] = g
			order = append(order, key)
		}
		g.observe(e, u)
	}

	sort.Strings(order)
	for _, key := range order {
		result.Tools = append(result.Tools, groups[key].tool())
	}
	if len(result.Tools) == 0 {
		result.Warnings = append(result.Warnings, ir.Warning{
			Message: "capture contained no usable requests",
		})
	}
	return result, nil
}

type entry struct {
	Request struct {
		Method  string `json:"method"`
		URL     string `json:"url"`
		Headers []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		} `json:"headers"`
		QueryString []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		} `json:"queryString"`
		PostData struct {
			MimeType string `json:"mimeType"`
			Text     string `json:"text"`
		} `json:"postData"`
	} `json:"request"`
	Response struct {
		Status  int `json:"status"`
		Content struct {
			MimeType string `json:"mimeType"`
			Text     string `json:"text"`
		} `json:"content"`
	} `json:"response"`
}

// endpointGroup accumulates every observed sample for one
// (method, pattern) pair.
type endpointGroup struct {
	method    string
	pattern   string
	params    []string
	baseURL   string
	queries   map[string]string
	body      *ir.SchemaNode
	auth      *ir.AuthRequirement
	samples   int
	successes int
}

func (g *endpointGroup) observe(e entry, u *url.URL) {
	g.samples++
	if e.Response.Status >= 200 && e.Response.Status < 300 {
		g.successes++
	}
	for _, q := range e.Request.QueryString {
		if _, ok := g.queries[q.Name]; !ok {
			g.queries[q.Name] = q.Value
		}
	}
	for name, values := range u.Query() {
		if _, ok := g.queries[name]; !ok && len(values) > 0 {
			g.queries[name] = values[0]
		}
	}
	if g.auth == nil {
		g.auth = detectAuth(e)
	}
	if text := e.Request.PostData.Text; text != "" && strings.Contains(e.Request.PostData.MimeType, "json") {
		var example any
		if err := json.Unmarshal([]byte(text), &example); err == nil {
			inferred := infer.Infer(example)
			if g.body == nil {
				g.body = inferred
			} else {
				g.body = infer.Merge(g.body, inferred)
			}
		}
	}
}

func (g *endpointGroup) tool() ir.ToolDefinition {
	input := ir.NewObjectSchema()
	for _, p := range g.params {
		input.SetProperty(p, &ir.SchemaNode{
			Type:        ir.TypeString,
			Description: fmt.Sprintf("Path parameter: %s", p),
		}, true)
	}
	names := make([]string, 0, len(g.queries))
	for name := range g.queries {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		node := &ir.SchemaNode{
			Type:        ir.TypeString,
			Description: fmt.Sprintf("Query parameter: %s", name),
		}
		if g.queries[name] != "" {
			node.Example = g.queries[name]
		}
		input.SetProperty(name, node, false)
	}
	if g.body != nil && g.body.Type == ir.TypeObject {
		props := make([]string, 0, len(g.body.Properties))
		for name := range g.body.Properties {
			props = append(props, name)
		}
		sort.Strings(props)
		for _, name := range props {
			input.SetProperty(name, g.body.Properties[name], false)
		}
	} else if g.body != nil {
		input.SetProperty("body", g.body, false)
	}

	confidence := g.confidence()
	meta := ir.Metadata{
		Format:     ir.FormatHAR,
		Confidence: confidence,
		HTTP: &ir.HTTPBinding{
			Method:      g.method,
			Path:        g.pattern,
			BaseURL:     g.baseURL,
			SampleCount: g.samples,
		},
		Auth: g.auth,
	}
	return ir.ToolDefinition{
		Name: toolName(g.method, g.pattern),
		Description: fmt.Sprintf("%s %s (reconstructed from %d observed request(s), confidence: %s)",
			g.method, g.pattern, g.samples, confidence),
		InputSchema: input,
		Metadata:    meta,
	}
}

// confidence grades how much traffic backs the reconstruction: ten or
// more samples with at least one success rate high, three samples or
// any success rate medium, anything thinner stays low.
func (g *endpointGroup) confidence() ir.Confidence {
	switch {
	case g.samples >= 10 && g.successes > 0:
		return ir.ConfidenceHigh
	case g.samples >= 3 || g.successes > 0:
		return ir.ConfidenceMedium
	default:
		return ir.ConfidenceLow
	}
}

func detectAuth(e entry) *ir.AuthRequirement {
	for _, h := range e.Request.Headers {
		name := strings.ToLower(h.Name)
		switch {
		case name == "authorization":
			if strings.HasPrefix(strings.ToLower(h.Value), "basic ") {
				return &ir.AuthRequirement{Type: ir.AuthBasic}
			}
			return &ir.AuthRequirement{Type: ir.AuthBearer}
		case name == "x-api-key" || name == "api-key" || name == "apikey":
			return &ir.AuthRequirement{Type: ir.AuthAPIKey, In: "header", Name: h.Name}
		}
	}
	return nil
}

// inferPattern replaces identifier-looking segments (numeric, UUID, long
// hex) with a named placeholder derived from the preceding segment:
// /orders/5 becomes /orders/{order_id}.
func inferPattern(path string) (string, []string) {
	segments := strings.Split(path, "/")
	seen := map[string]bool{}
	replaced := false
	for i, segment := range segments {
		if segment == "" || !isIdentifier(segment) {
			continue
		}
		name := "id"
		if i > 0 && segments[i-1] != "" && !strings.HasPrefix(segments[i-1], "{") {
			name = singular(segments[i-1]) + "_id"
		}
		for seen[name] {
			name += "_"
		}
		seen[name] = true
		segments[i] = "{" + name + "}"
		replaced = true
	}
	if !replaced {
		return path, nil
	}
	// The rewritten path must be a valid URI template; its parsed variable
	// names are the pattern's parameters.
	pattern := strings.Join(segments, "/")
	tpl, err := uritemplate.New(pattern)
	if err != nil {
		return path, nil
	}
	return pattern, tpl.Varnames()
}

func isIdentifier(segment string) bool {
	return numericSegment.MatchString(segment) ||
		uuidSegment.MatchString(segment) ||
		hashSegment.MatchString(segment)
}

func singular(s string) string {
	s = strings.ToLower(s)
	switch {
	case strings.HasSuffix(s, "ies"):
		return s[:len(s)-3] + "y"
	case strings.HasSuffix(s, "ses"):
		return s[:len(s)-2]
	case strings.HasSuffix(s, "s") && !strings.HasSuffix(s, "ss"):
		return s[:len(s)-1]
	}
	return s
}

func toolName(method, pattern string) string {
	var parts []string
	parts = append(parts, strings.ToLower(method))
	for _, segment := range strings.Split(pattern, "/") {
		if segment == "" {
			continue
		}
		if strings.HasPrefix(segment, "{") {
			parts = append(parts, "by", strings.Trim(segment, "{}"))
			continue
		}
		parts = append(parts, sanitize(segment))
	}
	return strings.Join(parts, "_")
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if b.Len() > 0 && !strings.HasSuffix(b.String(), "_") {
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), "_")
}
