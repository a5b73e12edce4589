package openapi

import (
	"sort"
	"strings"
	"unicode"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/nirholas/specbridge/internal/ir"
)

// operationSecurity resolves an operation's security requirements against
// the document's declared schemes, falling back to the document-level
// security block when the operation declares none.
func (e *Extractor) operationSecurity(op *openapi3.Operation) []ir.AuthRequirement {
	requirements := e.doc.Security
	if op.Security != nil {
		requirements = *op.Security
	}
	if len(requirements) == 0 {
		return nil
	}

	var out []ir.AuthRequirement
	seen := map[string]bool{}
	for _, req := range requirements {
		names := make([]string, 0, len(req))
		for name := range req {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if seen[name] {
				continue
			}
			seen[name] = true
			if auth := e.resolveScheme(name); auth != nil {
				out = append(out, *auth)
			}
		}
	}
	return out
}

func (e *Extractor) resolveScheme(name string) *ir.AuthRequirement {
	if e.doc.Components == nil || e.doc.Components.SecuritySchemes == nil {
		return nil
	}
	ref, ok := e.doc.Components.SecuritySchemes[name]
	if !ok || ref.Value == nil {
		return nil
	}
	return SchemeToAuth(name, ref.Value)
}

// SchemeToAuth maps one OpenAPI security scheme to the IR auth shape, with a
// deterministic environment-variable name synthesized from the scheme name.
func SchemeToAuth(name string, scheme *openapi3.SecurityScheme) *ir.AuthRequirement {
	auth := &ir.AuthRequirement{
		Scheme: name,
		EnvVar: EnvVarName(name),
	}
	switch scheme.Type {
	case "apiKey":
		auth.Type = ir.AuthAPIKey
		auth.In = scheme.In
		auth.Name = scheme.Name
	case "http":
		switch strings.ToLower(scheme.Scheme) {
		case "bearer":
			auth.Type = ir.AuthBearer
		case "basic":
			auth.Type = ir.AuthBasic
		default:
			auth.Type = ir.AuthBearer
		}
	case "oauth2":
		auth.Type = ir.AuthOAuth2
		if scheme.Flows != nil {
			if scheme.Flows.AuthorizationCode != nil {
				auth.Flows = append(auth.Flows, "authorizationCode")
			}
			if scheme.Flows.ClientCredentials != nil {
				auth.Flows = append(auth.Flows, "clientCredentials")
			}
			if scheme.Flows.Implicit != nil {
				auth.Flows = append(auth.Flows, "implicit")
			}
			if scheme.Flows.Password != nil {
				auth.Flows = append(auth.Flows, "password")
			}
		}
	case "openIdConnect":
		auth.Type = ir.AuthOpenID
	default:
		return nil
	}
	return auth
}

// EnvVarName synthesizes a deterministic environment-variable name from a
// security-scheme name: non-alphanumerics collapse to underscores, camelCase
// boundaries split, and the result is upper-cased with an _API_KEY suffix
// unless the name already ends in key or token.
func EnvVarName(schemeName string) string {
	var parts []string
	var current strings.Builder
	flush := func() {
		if current.Len() > 0 {
			parts = append(parts, current.String())
			current.Reset()
		}
	}
	runes := []rune(schemeName)
	for i, r := range runes {
		switch {
		case unicode.IsUpper(r) && i > 0 && unicode.IsLower(runes[i-1]):
			flush()
			current.WriteRune(unicode.ToLower(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			current.WriteRune(unicode.ToLower(r))
		default:
			flush()
		}
	}
	flush()
	if len(parts) == 0 {
		parts = []string{"api"}
	}
	name := strings.ToUpper(strings.Join(parts, "_"))
	last := parts[len(parts)-1]
	if last != "key" && last != "token" && last != "secret" {
		name += "_API_KEY"
	}
	return name
}

// documentAuth summarizes every scheme the document declares.
func (e *Extractor) documentAuth() *ir.AuthSummary {
	if e.doc.Components == nil || len(e.doc.Components.SecuritySchemes) == 0 {
		return nil
	}
	names := make([]string, 0, len(e.doc.Components.SecuritySchemes))
	for name := range e.doc.Components.SecuritySchemes {
		names = append(names, name)
	}
	sort.Strings(names)

	summary := &ir.AuthSummary{Type: ir.AuthNone}
	for _, name := range names {
		ref := e.doc.Components.SecuritySchemes[name]
		if ref == nil || ref.Value == nil {
			continue
		}
		if auth := SchemeToAuth(name, ref.Value); auth != nil {
			summary.Schemes = append(summary.Schemes, *auth)
			if summary.Type == ir.AuthNone {
				summary.Type = auth.Type
			}
		}
	}
	if len(summary.Schemes) == 0 {
		return nil
	}
	return summary
}
