package openapi

import (
	"strings"

	"github.com/nirholas/specbridge/internal/ir"
)

// Parameter-name stems that signal each pagination style. Matching is by
// case-insensitive substring so cursor, nextCursor and page_cursor all hit.
var (
	cursorStems = []string{"cursor", "after", "next_token", "continuation"}
	offsetStems = []string{"offset", "skip", "start_index"}
	pageStems   = []string{"page", "page_number", "pagenum"}
	limitStems  = []string{"limit", "per_page", "page_size", "count", "max_results"}
)

// DetectPagination classifies an endpoint's pagination style from its query
// parameter names. A cursor-like name overrides any other match since it is
// the strongest signal; otherwise the first matching parameter wins. A
// limit-like parameter is captured regardless of style. Idempotent: the same
// parameter list always yields the same pattern.
func DetectPagination(params []Parameter) *ir.PaginationPattern {
	var pattern *ir.PaginationPattern
	var limitParam string

	for _, p := range params {
		if p.In != InQuery {
			continue
		}
		name := strings.ToLower(p.Name)
		switch {
		case matchesStem(name, cursorStems):
			if pattern == nil || pattern.Style != ir.PaginationCursor {
				pattern = &ir.PaginationPattern{Style: ir.PaginationCursor, ParamName: p.Name}
			}
		// Limit stems are checked before page stems: per_page and page_size
		// are limits, not page indices.
		case matchesStem(name, limitStems):
			if limitParam == "" {
				limitParam = p.Name
			}
		case matchesStem(name, offsetStems):
			if pattern == nil {
				pattern = &ir.PaginationPattern{Style: ir.PaginationOffset, ParamName: p.Name}
			}
		case matchesStem(name, pageStems):
			if pattern == nil {
				pattern = &ir.PaginationPattern{Style: ir.PaginationPage, ParamName: p.Name}
			}
		}
	}

	if pattern != nil {
		pattern.LimitParam = limitParam
	}
	return pattern
}

func matchesStem(name string, stems []string) bool {
	normalized := strings.NewReplacer("-", "_", ".", "_").Replace(name)
	for _, stem := range stems {
		if normalized == stem || strings.Contains(normalized, stem) {
			return true
		}
	}
	return false
}
