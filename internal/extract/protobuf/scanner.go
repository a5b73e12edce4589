package protobuf

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/nirholas/specbridge/internal/ir"
)

var (
	packageRe  = regexp.MustCompile(`^package\s+([\w.]+)\s*;`)
	importRe   = regexp.MustCompile(`^import\s+(?:public\s+)?"([^"]+)"\s*;`)
	optionRe   = regexp.MustCompile(`^option\s+([\w.]+)\s*=\s*"?([^";]*)"?\s*;`)
	fieldRe    = regexp.MustCompile(`^(repeated\s+|optional\s+|required\s+)?([\w.]+)\s+(\w+)\s*=\s*(\d+)`)
	mapRe      = regexp.MustCompile(`^map\s*<\s*([\w.]+)\s*,\s*([\w.]+)\s*>\s+(\w+)\s*=\s*(\d+)`)
	enumValRe  = regexp.MustCompile(`^(\w+)\s*=\s*(-?\d+)`)
	rpcRe      = regexp.MustCompile(`^rpc\s+(\w+)\s*\(\s*(stream\s+)?([\w.]+)\s*\)\s*returns\s*\(\s*(stream\s+)?([\w.]+)\s*\)`)
	httpVerbRe = regexp.MustCompile(`(get|put|post|delete|patch)\s*:\s*"([^"]+)"`)
	httpBodyRe = regexp.MustCompile(`body\s*:\s*"([^"]+)"`)
)

// ParseFile scans .proto text into its declaration mirror. Brace matching
// tracks nesting; unrecognized statements are skipped.
func ParseFile(text string) (*File, error) {
	file := &File{Options: map[string]string{}}
	lines := splitStatements(stripProtoComments(text))

	i := 0
	for i < len(lines) {
		line := strings.TrimSpace(lines[i])
		switch {
		case line == "" || strings.HasPrefix(line, "syntax"):
			i++
		case packageRe.MatchString(line):
			file.Package = packageRe.FindStringSubmatch(line)[1]
			i++
		case importRe.MatchString(line):
			file.Imports = append(file.Imports, importRe.FindStringSubmatch(line)[1])
			i++
		case optionRe.MatchString(line):
			m := optionRe.FindStringSubmatch(line)
			file.Options[m[1]] = m[2]
			i++
		case strings.HasPrefix(line, "enum "):
			enum, next := parseEnum(lines, i, "")
			if enum != nil {
				file.Enums = append(file.Enums, enum)
			}
			i = next
		case strings.HasPrefix(line, "message "):
			msg, next := parseMessage(lines, i, "")
			if msg != nil {
				file.Messages = append(file.Messages, msg)
			}
			i = next
		case strings.HasPrefix(line, "service "):
			svc, next := parseService(lines, i)
			if svc != nil {
				file.Services = append(file.Services, svc)
			}
			i = next
		default:
			i++
		}
	}

	if file.Package == "" && len(file.Messages) == 0 && len(file.Services) == 0 && len(file.Enums) == 0 {
		return nil, &ir.MalformedSpecError{
			Format: ir.FormatGRPC,
			Cause:  fmt.Errorf("no protobuf declarations found"),
		}
	}
	return file, nil
}

// parseMessage scans one message block, recursing into nested messages and
// enums. prefix is the dotted path of enclosing messages.
func parseMessage(lines []string, start int, prefix string) (*Message, int) {
	header := strings.TrimSpace(lines[start])
	name := identAfterKeyword(header, "message")
	if name == "" {
		return nil, skipBlock(lines, start)
	}
	full := name
	if prefix != "" {
		full = prefix + "." + name
	}
	msg := &Message{Name: name, FullName: full}

	end := blockEnd(lines, start)
	i := start + 1
	for i < end {
		line := strings.TrimSpace(lines[i])
		switch {
		case line == "" || line == "}" || strings.HasPrefix(line, "option ") ||
			strings.HasPrefix(line, "reserved ") || strings.HasPrefix(line, "oneof "):
			// oneof members still match fieldRe on their own lines.
			i++
		case strings.HasPrefix(line, "message "):
			nested, next := parseMessage(lines, i, full)
			if nested != nil {
				msg.Messages = append(msg.Messages, nested)
			}
			i = next
		case strings.HasPrefix(line, "enum "):
			nested, next := parseEnum(lines, i, full)
			if nested != nil {
				msg.Enums = append(msg.Enums, nested)
			}
			i = next
		case mapRe.MatchString(line):
			m := mapRe.FindStringSubmatch(line)
			number, _ := strconv.Atoi(m[4])
			msg.Fields = append(msg.Fields, Field{
				Name: m[3], IsMap: true, KeyType: m[1], ValType: m[2], Number: number,
			})
			i++
		case fieldRe.MatchString(line):
			m := fieldRe.FindStringSubmatch(line)
			number, _ := strconv.Atoi(m[4])
			modifier := strings.TrimSpace(m[1])
			msg.Fields = append(msg.Fields, Field{
				Name:     m[3],
				Type:     m[2],
				Number:   number,
				Repeated: modifier == "repeated",
				Optional: modifier == "optional",
			})
			i++
		default:
			i++
		}
	}
	return msg, end + 1
}

func parseEnum(lines []string, start int, prefix string) (*Enum, int) {
	header := strings.TrimSpace(lines[start])
	name := identAfterKeyword(header, "enum")
	if name == "" {
		return nil, skipBlock(lines, start)
	}
	full := name
	if prefix != "" {
		full = prefix + "." + name
	}
	enum := &Enum{Name: name, FullName: full}

	end := blockEnd(lines, start)
	for i := start + 1; i < end; i++ {
		line := strings.TrimSpace(lines[i])
		if m := enumValRe.FindStringSubmatch(line); m != nil {
			number, _ := strconv.Atoi(m[2])
			enum.Values = append(enum.Values, EnumValue{Name: m[1], Number: number})
		}
	}
	return enum, end + 1
}

func parseService(lines []string, start int) (*Service, int) {
	header := strings.TrimSpace(lines[start])
	name := identAfterKeyword(header, "service")
	if name == "" {
		return nil, skipBlock(lines, start)
	}
	svc := &Service{Name: name}

	end := blockEnd(lines, start)
	i := start + 1
	for i < end {
		line := strings.TrimSpace(lines[i])
		if m := rpcRe.FindStringSubmatch(line); m != nil {
			rpc := RPC{
				Name:            m[1],
				ClientStreaming: strings.TrimSpace(m[2]) == "stream",
				InputType:       m[3],
				ServerStreaming: strings.TrimSpace(m[4]) == "stream",
				OutputType:      m[5],
			}
			// An rpc with a body block may carry a google.api.http option.
			if strings.Contains(line, "{") && !strings.Contains(line, "}") {
				bodyEnd := blockEnd(lines, i)
				rpc.HTTPRule = parseHTTPRule(lines[i : bodyEnd+1])
				i = bodyEnd + 1
			} else {
				i++
			}
			svc.RPCs = append(svc.RPCs, rpc)
			continue
		}
		i++
	}
	return svc, end + 1
}

// parseHTTPRule extracts the google.api.http annotation from an rpc body.
func parseHTTPRule(block []string) *HTTPRule {
	joined := strings.Join(block, "\n")
	if !strings.Contains(joined, "google.api.http") {
		return nil
	}
	rule := &HTTPRule{}
	if m := httpVerbRe.FindStringSubmatch(joined); m != nil {
		rule.Method = strings.ToUpper(m[1])
		rule.Path = m[2]
	}
	if m := httpBodyRe.FindStringSubmatch(joined); m != nil {
		rule.Body = m[1]
	}
	if rule.Method == "" {
		return nil
	}
	return rule
}

// blockEnd returns the index of the line holding the brace that closes the
// block opened on start's line.
func blockEnd(lines []string, start int) int {
	depth := 0
	opened := false
	for i := start; i < len(lines); i++ {
		for _, r := range lines[i] {
			switch r {
			case '{':
				depth++
				opened = true
			case '}':
				depth--
				if opened && depth == 0 {
					return i
				}
			}
		}
	}
	return len(lines) - 1
}

func skipBlock(lines []string, start int) int {
	return blockEnd(lines, start) + 1
}

func identAfterKeyword(line, keyword string) string {
	rest := strings.TrimSpace(strings.TrimPrefix(line, keyword))
	fields := strings.FieldsFunc(rest, func(r rune) bool { return r == ' ' || r == '{' || r == '\t' })
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// stripProtoComments removes // and /* */ comments.
func stripProtoComments(text string) string {
	for {
		start := strings.Index(text, "/*")
		if start < 0 {
			break
		}
		end := strings.Index(text[start+2:], "*/")
		if end < 0 {
			text = text[:start]
			break
		}
		text = text[:start] + text[start+2+end+2:]
	}
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// splitStatements keeps one declaration or brace per scanner line.
func splitStatements(text string) []string {
	return strings.Split(text, "\n")
}
