// Package detect classifies raw spec input into one of the supported
// formats. Detection order matters because signatures overlap: GraphQL SDL
// is checked textually before any JSON/YAML parse is attempted, since SDL is
// not valid JSON or YAML, while its introspection variant is plain JSON.
package detect

import (
	"encoding/json"
	"strings"

	"github.com/nirholas/specbridge/internal/ir"
	"gopkg.in/yaml.v3"
)

// graphqlMarkers are textual signatures only SDL documents carry.
var graphqlMarkers = []string{
	"type Query",
	"type Mutation",
	"type Subscription",
	"schema {",
	"schema{",
}

// postmanSchemaHost identifies Postman collection schema URLs regardless of
// transport scheme.
const postmanSchemaHost = "schema.getpostman.com"

// Detect inspects raw input and returns its format. The check is total and
// deterministic: byte-identical input always yields the same answer.
func Detect(input []byte) (ir.Format, error) {
	text := strings.TrimSpace(string(input))
	if text == "" {
		return "", &ir.UnsupportedFormatError{Hint: "empty input"}
	}

	if looksLikeGraphQLSDL(text) {
		return ir.FormatGraphQL, nil
	}
	if looksLikeProto(text) {
		return ir.FormatGRPC, nil
	}

	doc, ok := parseStructured([]byte(text))
	if !ok {
		return "", &ir.UnsupportedFormatError{Hint: "input is neither valid JSON nor YAML"}
	}
	return DetectObject(doc)
}

// DetectObject classifies an already-parsed document. Checks run in a fixed
// order because several signatures are weaker versions of others.
func DetectObject(doc map[string]any) (ir.Format, error) {
	if doc == nil {
		return "", &ir.UnsupportedFormatError{Hint: "empty document"}
	}
	if _, ok := doc["openapi"]; ok {
		return ir.FormatOpenAPI, nil
	}
	if _, ok := doc["swagger"]; ok {
		return ir.FormatOpenAPI, nil
	}
	if _, ok := doc["asyncapi"]; ok {
		return ir.FormatAsyncAPI, nil
	}
	if isPostman(doc) {
		return ir.FormatPostman, nil
	}
	if isInsomnia(doc) {
		return ir.FormatInsomnia, nil
	}
	if isHAR(doc) {
		return ir.FormatHAR, nil
	}
	if isGraphQLIntrospection(doc) {
		return ir.FormatGraphQL, nil
	}
	return "", &ir.UnsupportedFormatError{Hint: "no known signature matched"}
}

func looksLikeGraphQLSDL(text string) bool {
	// Introspection JSON begins with '{'; SDL never does.
	if strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[") {
		return false
	}
	for _, marker := range graphqlMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

func looksLikeProto(text string) bool {
	if strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[") {
		return false
	}
	if strings.Contains(text, `syntax = "proto3"`) || strings.Contains(text, `syntax = "proto2"`) {
		return true
	}
	return strings.Contains(text, "service ") && strings.Contains(text, "rpc ")
}

func parseStructured(data []byte) (map[string]any, bool) {
	var asJSON map[string]any
	if err := json.Unmarshal(data, &asJSON); err == nil {
		return asJSON, true
	}
	var asYAML map[string]any
	if err := yaml.Unmarshal(data, &asYAML); err == nil && asYAML != nil {
		return asYAML, true
	}
	return nil, false
}

func isPostman(doc map[string]any) bool {
	info, ok := doc["info"].(map[string]any)
	if ok {
		if schemaURL, ok := info["schema"].(string); ok {
			trimmed := strings.TrimPrefix(strings.TrimPrefix(schemaURL, "https://"), "http://")
			if strings.HasPrefix(trimmed, postmanSchemaHost) {
				return true
			}
		}
	}
	// Weaker signal: an item array alongside an info block.
	if _, hasItems := doc["item"].([]any); hasItems && ok {
		return true
	}
	return false
}

func isInsomnia(doc map[string]any) bool {
	if t, ok := doc["_type"].(string); !ok || t != "export" {
		return false
	}
	_, hasFormat := doc["__export_format"]
	return hasFormat
}

func isHAR(doc map[string]any) bool {
	log, ok := doc["log"].(map[string]any)
	if !ok {
		return false
	}
	if _, ok := log["version"]; !ok {
		return false
	}
	_, hasEntries := log["entries"].([]any)
	return hasEntries
}

func isGraphQLIntrospection(doc map[string]any) bool {
	if _, ok := doc["__schema"]; ok {
		return true
	}
	if data, ok := doc["data"].(map[string]any); ok {
		_, ok := data["__schema"]
		return ok
	}
	return false
}
