// Package analyze mines framework route declarations straight out of
// source text. The analyzers are deliberately heuristic line scanners,
// not host-language parsers: anything they cannot interpret is skipped
// and at most recorded as a warning, because real files mix supported
// and unsupported constructs freely. Discovered routes share the
// OpenAPI transformation stage so naming, body flattening and name
// deduplication behave identically to spec-derived tools.
package analyze

import (
	"sort"
	"strings"

	"github.com/nirholas/specbridge/internal/extract/openapi"
	"github.com/nirholas/specbridge/internal/ir"
)

// File is the unit of input supplied by the caller's file-fetching
// collaborator.
type File struct {
	Path    string
	Content string
}

// Result carries everything one analyzer discovered. Failures of
// individual declarations land in Warnings; the analyzer itself never
// returns an error.
type Result struct {
	Endpoints       []openapi.EndpointInfo
	Schemas         map[string]*ir.SchemaNode
	SecuritySchemes []ir.AuthRequirement
	Warnings        []ir.Warning
}

// Analyzer is one framework-specific route miner.
type Analyzer interface {
	// Name reports the framework family this analyzer understands.
	Name() string
	// CanAnalyze is a cheap textual signature check: a framework import
	// plus at least one route declaration.
	CanAnalyze(files []File) bool
	// Analyze scans every file and returns all recognized routes.
	Analyze(files []File) *Result
}

// Analyzers returns the supported analyzers in the order they are tried.
func Analyzers() []Analyzer {
	return []Analyzer{NewExpressAnalyzer(), NewPythonAnalyzer()}
}

// Run offers the files to every analyzer, collects routes from all
// that match and converts them into tools. Returns nil when no analyzer
// recognizes the input.
func Run(files []File, opts openapi.Options) *ir.UnifiedParseResult {
	// Order of input files must not affect output, only its enumeration
	// order. A stable sort on path pins that down before names are
	// assigned.
	sorted := append([]File(nil), files...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	var endpoints []openapi.EndpointInfo
	var warnings []ir.Warning
	matched := false
	for _, a := range Analyzers() {
		if !a.CanAnalyze(sorted) {
			continue
		}
		matched = true
		res := a.Analyze(sorted)
		endpoints = append(endpoints, res.Endpoints...)
		warnings = append(warnings, res.Warnings...)
	}
	if !matched {
		return nil
	}

	result := &ir.UnifiedParseResult{
		Format:   ir.FormatSourceCode,
		Tools:    openapi.TransformEndpoints(endpoints, opts),
		Warnings: warnings,
	}
	for i := range result.Tools {
		result.Tools[i].Metadata.Format = ir.FormatSourceCode
		if result.Tools[i].Metadata.Confidence == "" {
			result.Tools[i].Metadata.Confidence = ir.ConfidenceLow
		}
	}
	return result
}

// normalizePath rewrites framework-native path parameter syntax into the
// canonical {name} placeholder: Express ":id" and Flask "<int:id>" both
// become "{id}".
func normalizePath(path string) (string, []string) {
	var params []string
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		switch {
		case strings.HasPrefix(segment, ":") && len(segment) > 1:
			name := strings.TrimSuffix(segment[1:], "?")
			segments[i] = "{" + name + "}"
			params = append(params, name)
		case strings.HasPrefix(segment, "<") && strings.HasSuffix(segment, ">"):
			name := segment[1 : len(segment)-1]
			if idx := strings.LastIndex(name, ":"); idx >= 0 {
				name = name[idx+1:]
			}
			segments[i] = "{" + name + "}"
			params = append(params, name)
		case strings.HasPrefix(segment, "{") && strings.HasSuffix(segment, "}"):
			params = append(params, strings.Trim(segment, "{}"))
		}
	}
	return strings.Join(segments, "/"), params
}

// docBlock is the permissive single-line-at-a-time documentation grammar
// shared by both analyzers. Tag lines (@summary, @description, @tags,
// @deprecated, @param) override positional text; untagged lines build
// the description.
type docBlock struct {
	Summary     string
	Description string
	Tags        []string
	Deprecated  bool
	Params      map[string]string
	Present     bool
}

func parseDocLines(lines []string) docBlock {
	doc := docBlock{Params: map[string]string{}}
	var free []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "*")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		doc.Present = true
		switch {
		case strings.HasPrefix(line, "@summary "):
			doc.Summary = strings.TrimSpace(strings.TrimPrefix(line, "@summary "))
		case strings.HasPrefix(line, "@description "):
			doc.Description = strings.TrimSpace(strings.TrimPrefix(line, "@description "))
		case strings.HasPrefix(line, "@tags "):
			for _, tag := range strings.Split(strings.TrimPrefix(line, "@tags "), ",") {
				if tag = strings.TrimSpace(tag); tag != "" {
					doc.Tags = append(doc.Tags, tag)
				}
			}
		case line == "@deprecated" || strings.HasPrefix(line, "@deprecated "):
			doc.Deprecated = true
		case strings.HasPrefix(line, "@param "):
			rest := strings.TrimSpace(strings.TrimPrefix(line, "@param "))
			if name, desc, ok := strings.Cut(rest, " "); ok {
				doc.Params[name] = strings.TrimSpace(desc)
			} else {
				doc.Params[rest] = ""
			}
		case strings.HasPrefix(line, "@"):
			// Unknown tag, skipped on purpose.
		default:
			free = append(free, line)
		}
	}
	if len(free) > 0 {
		if doc.Summary == "" {
			doc.Summary = free[0]
			free = free[1:]
		}
		if doc.Description == "" && len(free) > 0 {
			doc.Description = strings.Join(free, " ")
		}
	}
	return doc
}

func (d docBlock) apply(info *openapi.EndpointInfo) {
	info.Summary = d.Summary
	info.Description = d.Description
	info.Tags = d.Tags
	info.Deprecated = d.Deprecated
	for i, p := range info.Parameters {
		if desc, ok := d.Params[p.Name]; ok && desc != "" {
			info.Parameters[i].Description = desc
		}
	}
}
