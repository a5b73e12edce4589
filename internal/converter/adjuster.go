package converter

import (
	"os"

	"github.com/nirholas/specbridge/internal/ir"
	"github.com/nirholas/specbridge/internal/logger"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Adjustments is the YAML shape of a tool-adjustments file: route
// selections narrow which tools survive conversion, description
// overrides replace synthesized text with curated wording.
type Adjustments struct {
	Descriptions []ToolDescription `yaml:"descriptions,omitempty"`
	Routes       []RouteSelection  `yaml:"routes,omitempty"`
}

type ToolDescription struct {
	Path    string        `yaml:"path"`
	Updates []FieldUpdate `yaml:"updates"`
}

type FieldUpdate struct {
	Method         string `yaml:"method"`
	NewDescription string `yaml:"new_description"`
}

type RouteSelection struct {
	Path    string   `yaml:"path"`
	Methods []string `yaml:"methods"`
}

// Adjuster applies filtering and description overrides from a YAML
// adjustments file.
type Adjuster struct {
	adjustments *Adjustments
}

func NewAdjuster() *Adjuster {
	return &Adjuster{adjustments: &Adjustments{}}
}

// Load reads adjustments from a YAML file. A missing or empty path is
// not an error: the adjuster stays a no-op.
func (a *Adjuster) Load(filePath string) error {
	if filePath == "" {
		logger.Info("No adjustments file provided")
		return nil
	}

	logger.Info("Loading adjustments from file", zap.String("file", filePath))
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		logger.Error("Adjustments file not found")
		return nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}

	var adjustments Adjustments
	if err := yaml.Unmarshal(data, &adjustments); err != nil {
		return err
	}
	a.adjustments = &adjustments
	return nil
}

// Keep reports whether a tool survives route filtering. Tools without an
// HTTP binding are never filtered: selections address method+path pairs.
func (a *Adjuster) Keep(tool ir.ToolDefinition) bool {
	if a.adjustments == nil || len(a.adjustments.Routes) == 0 {
		return true
	}
	if tool.Metadata.HTTP == nil {
		return true
	}
	for _, selection := range a.adjustments.Routes {
		if selection.Path != tool.Metadata.HTTP.Path {
			continue
		}
		for _, m := range selection.Methods {
			if m == tool.Metadata.HTTP.Method {
				return true
			}
		}
		return false
	}
	return false
}

// Description returns the override for a tool's method+path when one is
// configured, else the tool's own description.
func (a *Adjuster) Description(tool ir.ToolDefinition) string {
	if a.adjustments == nil || len(a.adjustments.Descriptions) == 0 || tool.Metadata.HTTP == nil {
		return tool.Description
	}
	for _, desc := range a.adjustments.Descriptions {
		if desc.Path != tool.Metadata.HTTP.Path {
			continue
		}
		for _, update := range desc.Updates {
			if update.Method == tool.Metadata.HTTP.Method {
				return update.NewDescription
			}
		}
		break
	}
	return tool.Description
}
