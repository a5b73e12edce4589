package openapi

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/nirholas/specbridge/internal/ir"
	"github.com/nirholas/specbridge/internal/logger"
	"go.uber.org/zap"
)

// analyzedMethods is the fixed set of HTTP methods the analyzer walks per
// path item.
var analyzedMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS"}

// Analyze walks every path item and webhook, producing one EndpointInfo per
// method/path combination that survives the configured filters. Path items
// with no operations are skipped silently.
func (e *Extractor) Analyze() error {
	if e.doc == nil {
		return &ir.MalformedSpecError{Format: ir.FormatOpenAPI, Cause: fmt.Errorf("analyze called before parse")}
	}
	e.endpoints = nil

	pathsMap := map[string]*openapi3.PathItem{}
	if e.doc.Paths != nil {
		pathsMap = e.doc.Paths.Map()
	}
	// Deterministic enumeration regardless of map ordering.
	paths := make([]string, 0, len(pathsMap))
	for p := range pathsMap {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		e.analyzePathItem(p, pathsMap[p], false)
	}
	e.analyzeWebhooks()
	return nil
}

func (e *Extractor) analyzePathItem(p string, item *openapi3.PathItem, webhook bool) {
	if item == nil {
		return
	}
	ops := map[string]*openapi3.Operation{
		"GET":     item.Get,
		"POST":    item.Post,
		"PUT":     item.Put,
		"DELETE":  item.Delete,
		"PATCH":   item.Patch,
		"HEAD":    item.Head,
		"OPTIONS": item.Options,
	}
	for _, method := range analyzedMethods {
		op := ops[method]
		if op == nil {
			continue
		}
		if !e.keep(p, method, op) {
			continue
		}
		info := e.buildEndpoint(p, method, item, op)
		info.Webhook = webhook
		e.endpoints = append(e.endpoints, info)
	}
}

// analyzeWebhooks walks 3.1 webhook declarations. kin-openapi keeps unknown
// top-level keys in Extensions, so webhook path items arrive as raw maps and
// anomalies there degrade to warnings rather than errors.
func (e *Extractor) analyzeWebhooks() {
	hooks := webhooksOf(e.doc)
	if len(hooks) == 0 {
		return
	}
	names := make([]string, 0, len(hooks))
	for name := range hooks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		raw, ok := hooks[name].(map[string]any)
		if !ok {
			e.warn(fmt.Sprintf("webhook %q has an unexpected shape, skipped", name), "webhooks/"+name)
			continue
		}
		for _, method := range analyzedMethods {
			opRaw, ok := raw[strings.ToLower(method)].(map[string]any)
			if !ok {
				continue
			}
			info := EndpointInfo{
				Path:    "/" + name,
				Method:  method,
				Webhook: true,
			}
			if summary, ok := opRaw["summary"].(string); ok {
				info.Summary = summary
			}
			if desc, ok := opRaw["description"].(string); ok {
				info.Description = desc
			}
			if opID, ok := opRaw["operationId"].(string); ok {
				info.OperationID = opID
			}
			if !e.keepFiltered(info.Path, method, info.OperationID, nil, false) {
				continue
			}
			e.endpoints = append(e.endpoints, info)
		}
	}
}

func (e *Extractor) keep(p, method string, op *openapi3.Operation) bool {
	return e.keepFiltered(p, method, op.OperationID, op.Tags, op.Deprecated)
}

func (e *Extractor) keepFiltered(p, method, opID string, tags []string, deprecated bool) bool {
	f := e.opts.Filters
	if deprecated && !f.IncludeDeprecated {
		return false
	}
	if len(f.Methods) > 0 && !containsFold(f.Methods, method) {
		return false
	}
	if len(f.Tags) > 0 && !intersects(f.Tags, tags) {
		return false
	}
	if len(f.PathGlobs) > 0 {
		matched := false
		for _, glob := range f.PathGlobs {
			if ok, _ := path.Match(glob, p); ok {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	if len(f.IncludeOps) > 0 && (opID == "" || !contains(f.IncludeOps, opID)) {
		return false
	}
	if opID != "" && contains(f.ExcludeOps, opID) {
		return false
	}
	return true
}

func (e *Extractor) buildEndpoint(p, method string, item *openapi3.PathItem, op *openapi3.Operation) EndpointInfo {
	info := EndpointInfo{
		Path:        p,
		Method:      method,
		OperationID: op.OperationID,
		Summary:     op.Summary,
		Description: op.Description,
		Tags:        append([]string(nil), op.Tags...),
		Deprecated:  op.Deprecated,
	}

	// Path-item parameters apply to every operation; operation parameters
	// override by (name, in).
	seen := map[string]bool{}
	appendParam := func(ref *openapi3.ParameterRef) {
		if ref == nil || ref.Value == nil {
			return
		}
		v := ref.Value
		key := v.In + ":" + v.Name
		if seen[key] {
			return
		}
		seen[key] = true
		info.Parameters = append(info.Parameters, Parameter{
			Name:        v.Name,
			In:          ParameterLocation(v.In),
			Description: v.Description,
			Required:    v.Required || v.In == "path",
			Schema:      convertSchemaRef(v.Schema),
		})
	}
	for _, ref := range op.Parameters {
		appendParam(ref)
	}
	for _, ref := range item.Parameters {
		appendParam(ref)
	}

	if body := extractBody(op); body != nil {
		info.Body = body
	}
	info.Responses = extractResponses(op)
	info.Security = e.operationSecurity(op)
	info.Pagination = DetectPagination(info.Parameters)
	if e.opts.IncludeExamples {
		info.Examples = extractExamples(op)
	}
	return info
}

func extractBody(op *openapi3.Operation) *RequestBody {
	if op.RequestBody == nil || op.RequestBody.Value == nil {
		return nil
	}
	mediaType, mt := preferredMediaType(op.RequestBody.Value.Content)
	if mt == nil || mt.Schema == nil {
		return nil
	}
	return &RequestBody{
		ContentType: mediaType,
		Required:    op.RequestBody.Value.Required,
		Schema:      convertSchemaRef(mt.Schema),
	}
}

func extractResponses(op *openapi3.Operation) []Response {
	if op.Responses == nil {
		return nil
	}
	statuses := make([]string, 0, op.Responses.Len())
	for status := range op.Responses.Map() {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)

	var out []Response
	for _, status := range statuses {
		ref := op.Responses.Map()[status]
		if ref == nil || ref.Value == nil {
			continue
		}
		resp := Response{Status: status}
		if ref.Value.Description != nil {
			resp.Description = *ref.Value.Description
		}
		if contentType, mt := preferredMediaType(ref.Value.Content); mt != nil {
			resp.ContentType = contentType
			if mt.Schema != nil {
				resp.Schema = convertSchemaRef(mt.Schema)
			}
			if mt.Example != nil {
				resp.Example = mt.Example
			}
		}
		out = append(out, resp)
	}
	return out
}

func extractExamples(op *openapi3.Operation) []ir.Example {
	var out []ir.Example
	if op.RequestBody != nil && op.RequestBody.Value != nil {
		if _, mt := preferredMediaType(op.RequestBody.Value.Content); mt != nil && mt.Example != nil {
			out = append(out, ir.Example{Input: map[string]any{"body": mt.Example}})
		}
	}
	return out
}

// preferredMediaType picks one representation deterministically: JSON when
// present, otherwise the lexicographically first content type.
func preferredMediaType(content openapi3.Content) (string, *openapi3.MediaType) {
	if mt, ok := content["application/json"]; ok {
		return "application/json", mt
	}
	keys := make([]string, 0, len(content))
	for k := range content {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) == 0 {
		return "", nil
	}
	return keys[0], content[keys[0]]
}

func (e *Extractor) warn(message, location string) {
	logger.Warn("Analyzer anomaly", zap.String("location", location), zap.String("message", message))
	e.warnings = append(e.warnings, ir.Warning{Message: message, Location: location})
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

func intersects(a, b []string) bool {
	for _, x := range a {
		if contains(b, x) {
			return true
		}
	}
	return false
}
