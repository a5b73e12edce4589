// Package asyncapi extracts one tool per channel operation from AsyncAPI 2.x
// documents.
package asyncapi

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/nirholas/specbridge/internal/ir"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// Extract parses an AsyncAPI document (JSON or YAML) and builds one tool per
// publish/subscribe operation on each channel.
func Extract(data []byte) (*ir.UnifiedParseResult, error) {
	doc, err := parse(data)
	if err != nil {
		return nil, err
	}
	if _, ok := doc["asyncapi"]; !ok {
		return nil, &ir.MalformedSpecError{
			Format: ir.FormatAsyncAPI,
			Cause:  fmt.Errorf("document is missing the 'asyncapi' version field"),
		}
	}

	result := &ir.UnifiedParseResult{Format: ir.FormatAsyncAPI}
	if info, ok := doc["info"].(map[string]any); ok {
		result.Info = ir.Info{
			Title:       cast.ToString(info["title"]),
			Version:     cast.ToString(info["version"]),
			Description: cast.ToString(info["description"]),
		}
	}

	channels, _ := doc["channels"].(map[string]any)
	names := make([]string, 0, len(channels))
	for name := range channels {
		names = append(names, name)
	}
	sort.Strings(names)

	protocol := firstServerProtocol(doc)
	for _, name := range names {
		channel, ok := channels[name].(map[string]any)
		if !ok {
			result.Warnings = append(result.Warnings, ir.Warning{
				Message:  "channel has an unexpected shape, skipped",
				Location: "channels/" + name,
			})
			continue
		}
		for _, opKind := range []string{"publish", "subscribe"} {
			op, ok := channel[opKind].(map[string]any)
			if !ok {
				continue
			}
			result.Tools = append(result.Tools, buildTool(name, opKind, protocol, op))
		}
	}
	return result, nil
}

func buildTool(channel, opKind, protocol string, op map[string]any) ir.ToolDefinition {
	input := ir.NewObjectSchema()
	if message, ok := op["message"].(map[string]any); ok {
		if payload, ok := message["payload"].(map[string]any); ok {
			node := convertRawSchema(payload, 0)
			if node.Type == ir.TypeObject {
				input = node
			} else {
				input.SetProperty("message", node, true)
			}
		}
	}

	name := cast.ToString(op["operationId"])
	if name == "" {
		name = opKind + "_" + sanitizeChannel(channel)
	}

	description := cast.ToString(op["description"])
	if description == "" {
		description = cast.ToString(op["summary"])
	}
	if description == "" {
		description = fmt.Sprintf("%s on channel %s", strings.ToUpper(opKind[:1])+opKind[1:], channel)
	}

	return ir.ToolDefinition{
		Name:        toSnake(name),
		Description: description,
		InputSchema: input,
		Metadata: ir.Metadata{
			Format: ir.FormatAsyncAPI,
			Channel: &ir.ChannelBinding{
				Channel:   channel,
				Operation: opKind,
				Protocol:  protocol,
			},
		},
	}
}

// convertRawSchema lowers a raw JSON-Schema-shaped map (the payload shape
// AsyncAPI embeds) into an IR node.
func convertRawSchema(raw map[string]any, depth int) *ir.SchemaNode {
	if depth >= 24 {
		return &ir.SchemaNode{Type: ir.TypeObject}
	}
	node := &ir.SchemaNode{
		Description: cast.ToString(raw["description"]),
		Format:      cast.ToString(raw["format"]),
	}
	if enum, ok := raw["enum"].([]any); ok {
		node.Enum = enum
	}
	switch cast.ToString(raw["type"]) {
	case "object", "":
		node.Type = ir.TypeObject
		node.Properties = map[string]*ir.SchemaNode{}
		if props, ok := raw["properties"].(map[string]any); ok {
			for name, sub := range props {
				if subMap, ok := sub.(map[string]any); ok {
					node.Properties[name] = convertRawSchema(subMap, depth+1)
				}
			}
		}
		if required, ok := raw["required"].([]any); ok {
			for _, r := range required {
				node.Required = append(node.Required, cast.ToString(r))
			}
		}
	case "array":
		node.Type = ir.TypeArray
		if items, ok := raw["items"].(map[string]any); ok {
			node.Items = convertRawSchema(items, depth+1)
		}
	case "integer":
		node.Type = ir.TypeInteger
	case "number":
		node.Type = ir.TypeNumber
	case "boolean":
		node.Type = ir.TypeBoolean
	case "null":
		node.Type = ir.TypeNull
	default:
		node.Type = ir.TypeString
	}
	return node
}

func firstServerProtocol(doc map[string]any) string {
	servers, ok := doc["servers"].(map[string]any)
	if !ok {
		return ""
	}
	names := make([]string, 0, len(servers))
	for name := range servers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if server, ok := servers[name].(map[string]any); ok {
			if protocol := cast.ToString(server["protocol"]); protocol != "" {
				return protocol
			}
		}
	}
	return ""
}

func sanitizeChannel(channel string) string {
	replacer := strings.NewReplacer("/", "_", ".", "_", "{", "", "}", "", "-", "_")
	return strings.Trim(replacer.Replace(channel), "_")
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				prev := rune(s[i-1])
				if prev >= 'a' && prev <= 'z' || prev >= '0' && prev <= '9' {
					b.WriteByte('_')
				}
			}
			b.WriteRune(r - 'A' + 'a')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func parse(data []byte) (map[string]any, error) {
	trimmed := strings.TrimSpace(string(data))
	var doc map[string]any
	if strings.HasPrefix(trimmed, "{") {
		if err := json.Unmarshal([]byte(trimmed), &doc); err != nil {
			return nil, &ir.MalformedSpecError{Format: ir.FormatAsyncAPI, Cause: err}
		}
		return doc, nil
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ir.MalformedSpecError{Format: ir.FormatAsyncAPI, Cause: err}
	}
	return doc, nil
}
