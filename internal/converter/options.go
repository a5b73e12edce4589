package converter

import (
	"github.com/nirholas/specbridge/internal/config"
	"github.com/nirholas/specbridge/internal/extract/openapi"
	"github.com/nirholas/specbridge/internal/ir"
)

// OptionsFromConfig maps the conversion section of the runtime config onto
// pipeline options, falling back to the documented defaults for anything
// left unset.
func OptionsFromConfig(cfg config.ConvertConfig) Options {
	opts := DefaultOptions()
	opts.Format = ir.Format(cfg.Format)
	if cfg.GroupBy != "" {
		opts.GroupBy = GroupBy(cfg.GroupBy)
	}
	opts.IncludeExamples = cfg.IncludeExamples
	opts.ResolveRefs = cfg.ResolveRefs
	opts.IncludeDeprecated = cfg.IncludeDeprecated

	if cfg.Naming != "" {
		opts.OpenAPI.Naming = openapi.NamingStyle(cfg.Naming)
	}
	opts.OpenAPI.NamePrefix = cfg.NamePrefix
	opts.OpenAPI.Filters.Tags = cfg.Tags
	opts.OpenAPI.Filters.Methods = cfg.Methods
	opts.OpenAPI.Filters.PathGlobs = cfg.PathGlobs
	return opts
}
