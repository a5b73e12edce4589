// Package protobuf extracts callable tools from gRPC service definitions in
// .proto source. One tool per rpc method; streaming methods keep their flags
// in metadata but are presented with unary call semantics.
package protobuf

import (
	"fmt"
	"strings"

	"github.com/nirholas/specbridge/internal/ir"
	"github.com/nirholas/specbridge/internal/logger"
	"go.uber.org/zap"
)

// Extract parses proto source and builds one tool per service rpc.
func Extract(data []byte) (*ir.UnifiedParseResult, error) {
	file, err := ParseFile(string(data))
	if err != nil {
		return nil, err
	}
	table := NewMessageTable(file)

	result := &ir.UnifiedParseResult{
		Format: ir.FormatGRPC,
		Info:   ir.Info{Title: file.Package},
	}
	for _, svc := range file.Services {
		for _, rpc := range svc.RPCs {
			result.Tools = append(result.Tools, buildTool(file, table, svc, rpc))
		}
	}
	if len(file.Services) == 0 {
		result.Warnings = append(result.Warnings, ir.Warning{
			Message: "proto file declares no services; no tools produced",
		})
	}
	logger.Info("Extracted protobuf tools",
		zap.String("package", file.Package),
		zap.Int("count", len(result.Tools)))
	return result, nil
}

func buildTool(file *File, table *MessageTable, svc *Service, rpc RPC) ir.ToolDefinition {
	input := ir.NewObjectSchema()
	if _, ok := table.Lookup(rpc.InputType); ok {
		// Proto3 fields are all optional on the wire; transcoding path
		// parameters become required below. The memoized message schema is
		// shared across rpcs, so copy its property map instead of aliasing.
		for name, node := range table.Schema(rpc.InputType).Properties {
			input.Properties[name] = node
		}
	} else if !strings.HasPrefix(rpc.InputType, "google.protobuf.") {
		input.Description = fmt.Sprintf("Unresolved request type %s", rpc.InputType)
	}

	binding := &ir.GRPCBinding{
		Service:         svc.Name,
		Method:          rpc.Name,
		Package:         file.Package,
		ClientStreaming: rpc.ClientStreaming,
		ServerStreaming: rpc.ServerStreaming,
	}
	if rpc.HTTPRule != nil {
		binding.HTTPRule = &ir.HTTPBinding{
			Method: rpc.HTTPRule.Method,
			Path:   rpc.HTTPRule.Path,
		}
		// Path parameters of the transcoded route are always required.
		for _, param := range templateParams(rpc.HTTPRule.Path) {
			if _, ok := input.Properties[param]; !ok {
				input.Properties[param] = &ir.SchemaNode{Type: ir.TypeString}
			}
			if !input.IsRequired(param) {
				input.Required = append(input.Required, param)
			}
		}
	}

	return ir.ToolDefinition{
		Name:        toSnake(svc.Name) + "_" + toSnake(rpc.Name),
		Description: describeRPC(svc, rpc),
		InputSchema: input,
		Metadata: ir.Metadata{
			Format: ir.FormatGRPC,
			GRPC:   binding,
		},
	}
}

func describeRPC(svc *Service, rpc RPC) string {
	desc := fmt.Sprintf("Call %s.%s (%s -> %s)", svc.Name, rpc.Name, rpc.InputType, rpc.OutputType)
	switch {
	case rpc.ClientStreaming && rpc.ServerStreaming:
		desc += "; bidirectional streaming simplified to a single request/response"
	case rpc.ServerStreaming:
		desc += "; server streaming simplified to a single response"
	case rpc.ClientStreaming:
		desc += "; client streaming simplified to a single request"
	}
	return desc
}

// templateParams extracts {name} placeholders from a transcoding path.
func templateParams(path string) []string {
	var out []string
	for _, part := range strings.Split(path, "/") {
		if strings.HasPrefix(part, "{") && strings.HasSuffix(part, "}") {
			name := strings.Trim(part, "{}")
			// google.api.http allows {name=pattern}; keep the name only.
			if idx := strings.Index(name, "="); idx >= 0 {
				name = name[:idx]
			}
			if name != "" {
				out = append(out, name)
			}
		}
	}
	return out
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
