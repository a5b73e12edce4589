package graphql

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/nirholas/specbridge/internal/ir"
)

// parseSDL scans schema-definition-language text into the internal schema
// representation. A line-oriented scanner with brace tracking, not a full
// grammar: unsupported constructs (directives, interfaces, unions as inputs)
// are skipped.
func parseSDL(text string) (*Schema, error) {
	schema := newSchema()
	rootNames := map[string]OperationType{
		"Query":        OpQuery,
		"Mutation":     OpMutation,
		"Subscription": OpSubscription,
	}

	lines := strings.Split(stripComments(text), "\n")
	i := 0
	sawDefinition := false
	for i < len(lines) {
		line := strings.TrimSpace(lines[i])
		switch {
		case strings.HasPrefix(line, "schema"):
			// schema { query: RootQuery } remaps root type names.
			block, next := collectBlock(lines, i)
			for _, entry := range block {
				parts := strings.SplitN(entry, ":", 2)
				if len(parts) != 2 {
					continue
				}
				op := OperationType(strings.TrimSpace(parts[0]))
				name := strings.TrimSpace(parts[1])
				switch op {
				case OpQuery, OpMutation, OpSubscription:
					rootNames[name] = op
				}
			}
			sawDefinition = true
			i = next
		case strings.HasPrefix(line, "scalar "):
			name := strings.TrimSpace(strings.TrimPrefix(line, "scalar "))
			if name != "" {
				schema.Scalars[strings.Fields(name)[0]] = true
			}
			sawDefinition = true
			i++
		case strings.HasPrefix(line, "enum "):
			name := identAfter(line, "enum ")
			block, next := collectBlock(lines, i)
			var values []string
			for _, v := range block {
				v = strings.TrimSpace(v)
				if v != "" {
					values = append(values, strings.Fields(v)[0])
				}
			}
			if name != "" {
				schema.Enums[name] = values
			}
			sawDefinition = true
			i = next
		case strings.HasPrefix(line, "input "):
			name := identAfter(line, "input ")
			block, next := collectBlock(lines, i)
			schema.Inputs[name] = parseInputFields(block)
			sawDefinition = true
			i = next
		case strings.HasPrefix(line, "type "):
			name := identAfter(line, "type ")
			block, next := collectBlock(lines, i)
			if op, ok := rootNames[name]; ok {
				fields := parseFields(block)
				switch op {
				case OpQuery:
					schema.Query = append(schema.Query, fields...)
				case OpMutation:
					schema.Mutation = append(schema.Mutation, fields...)
				case OpSubscription:
					schema.Subscription = append(schema.Subscription, fields...)
				}
			}
			// Non-root object types are return shapes; not expanded.
			sawDefinition = true
			i = next
		default:
			i++
		}
	}

	if !sawDefinition {
		return nil, &ir.MalformedSpecError{
			Format: ir.FormatGraphQL,
			Cause:  fmt.Errorf("no type definitions found in SDL"),
		}
	}
	return schema, nil
}

// identAfter extracts the identifier following a declaration keyword,
// dropping whatever trails it (implements clauses, directives, the opening
// brace).
func identAfter(line, prefix string) string {
	rest := strings.TrimSpace(strings.TrimPrefix(line, prefix))
	for i, r := range rest {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return rest[:i]
		}
	}
	return rest
}

// collectBlock gathers the entries between the `{` on or after start and its
// matching `}`, one entry per line, and returns the index after the block.
func collectBlock(lines []string, start int) ([]string, int) {
	depth := 0
	opened := false
	var entries []string
	i := start
	for ; i < len(lines); i++ {
		line := lines[i]
		for _, r := range line {
			switch r {
			case '{':
				depth++
				opened = true
			case '}':
				depth--
			}
		}
		if opened && i > start {
			trimmed := strings.TrimSpace(strings.Trim(line, "{}"))
			if trimmed != "" && depth >= 0 {
				entries = append(entries, trimmed)
			}
		} else if opened && i == start {
			// Inline entries on the opening line: type X { a: B }
			if open := strings.Index(line, "{"); open >= 0 {
				inline := line[open+1:]
				inline = strings.TrimSuffix(strings.TrimSpace(inline), "}")
				if strings.TrimSpace(inline) != "" {
					entries = append(entries, strings.TrimSpace(inline))
				}
			}
		}
		if opened && depth == 0 {
			return entries, i + 1
		}
	}
	return entries, i
}

// parseFields parses root-type field declarations of the form
// name(arg: Type! = default, ...): ReturnType
func parseFields(entries []string) []Field {
	var fields []Field
	for _, entry := range entries {
		field, ok := parseField(entry)
		if ok {
			fields = append(fields, field)
		}
	}
	return fields
}

func parseField(entry string) (Field, bool) {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return Field{}, false
	}
	var field Field

	argsStart := strings.Index(entry, "(")
	argsEnd := strings.LastIndex(entry, ")")
	if argsStart >= 0 && argsEnd > argsStart {
		field.Name = strings.TrimSpace(entry[:argsStart])
		for _, raw := range splitArgs(entry[argsStart+1 : argsEnd]) {
			if arg, ok := parseArgument(raw); ok {
				field.Args = append(field.Args, arg)
			}
		}
		rest := entry[argsEnd+1:]
		if idx := strings.Index(rest, ":"); idx >= 0 {
			field.ReturnType = parseTypeRef(strings.TrimSpace(rest[idx+1:]))
		}
	} else {
		parts := strings.SplitN(entry, ":", 2)
		if len(parts) != 2 {
			return Field{}, false
		}
		field.Name = strings.TrimSpace(parts[0])
		field.ReturnType = parseTypeRef(strings.TrimSpace(parts[1]))
	}
	if field.Name == "" || strings.ContainsAny(field.Name, " \t") {
		return Field{}, false
	}
	field.Deprecated = strings.Contains(entry, "@deprecated")
	return field, true
}

func parseInputFields(entries []string) []InputField {
	var fields []InputField
	for _, entry := range entries {
		parts := strings.SplitN(entry, ":", 2)
		if len(parts) != 2 {
			continue
		}
		name := strings.TrimSpace(parts[0])
		typePart := strings.TrimSpace(parts[1])
		hasDefault := false
		if idx := strings.Index(typePart, "="); idx >= 0 {
			typePart = strings.TrimSpace(typePart[:idx])
			hasDefault = true
		}
		if name == "" || typePart == "" {
			continue
		}
		fields = append(fields, InputField{
			Name:       name,
			Type:       parseTypeRef(typePart),
			HasDefault: hasDefault,
		})
	}
	return fields
}

func parseArgument(raw string) (Argument, bool) {
	parts := strings.SplitN(raw, ":", 2)
	if len(parts) != 2 {
		return Argument{}, false
	}
	arg := Argument{Name: strings.TrimSpace(parts[0])}
	typePart := strings.TrimSpace(parts[1])
	if idx := strings.Index(typePart, "="); idx >= 0 {
		arg.HasDefault = true
		arg.Default = strings.TrimSpace(typePart[idx+1:])
		typePart = strings.TrimSpace(typePart[:idx])
	}
	if arg.Name == "" || typePart == "" {
		return Argument{}, false
	}
	arg.Type = parseTypeRef(typePart)
	return arg, true
}

// splitArgs splits an argument list on commas that are not nested inside
// brackets (list defaults like [1, 2] must stay whole).
func splitArgs(raw string) []string {
	var out []string
	depth := 0
	var current strings.Builder
	for _, r := range raw {
		switch r {
		case '[', '(':
			depth++
			current.WriteRune(r)
		case ']', ')':
			depth--
			current.WriteRune(r)
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(current.String()))
				current.Reset()
				continue
			}
			current.WriteRune(r)
		default:
			current.WriteRune(r)
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		out = append(out, s)
	}
	return out
}

// parseTypeRef parses a type expression like [Item!]! into nested wrappers.
func parseTypeRef(expr string) *TypeRef {
	expr = strings.TrimSpace(expr)
	// Trailing directives belong to the field, not the type.
	if idx := strings.Index(expr, "@"); idx >= 0 {
		expr = strings.TrimSpace(expr[:idx])
	}
	if expr == "" {
		return nil
	}
	if strings.HasSuffix(expr, "!") {
		inner := parseTypeRef(strings.TrimSuffix(expr, "!"))
		return &TypeRef{NonNull: true, OfType: inner}
	}
	if strings.HasPrefix(expr, "[") && strings.HasSuffix(expr, "]") {
		inner := parseTypeRef(expr[1 : len(expr)-1])
		return &TypeRef{List: true, OfType: inner}
	}
	return &TypeRef{Name: expr}
}

// stripComments removes GraphQL comments and triple-quoted descriptions.
func stripComments(text string) string {
	// Drop block descriptions first.
	for {
		start := strings.Index(text, `"""`)
		if start < 0 {
			break
		}
		end := strings.Index(text[start+3:], `"""`)
		if end < 0 {
			text = text[:start]
			break
		}
		text = text[:start] + text[start+3+end+3:]
	}
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = line[:idx]
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
