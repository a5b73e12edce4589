package ir

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// ValidateExample checks a sample value against a schema node. Used by the
// inference round-trip guarantee (a schema inferred from an example must
// accept that example) and by the generator's input-validation feature.
func ValidateExample(schema *SchemaNode, example any) error {
	if schema == nil {
		return fmt.Errorf("nil schema")
	}
	schemaJSON, err := json.Marshal(schema.ToMap())
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewGoLoader(example),
	)
	if err != nil {
		return fmt.Errorf("failed to validate example: %w", err)
	}
	if !result.Valid() {
		errs := result.Errors()
		if len(errs) > 0 {
			return fmt.Errorf("example does not match schema: %s", errs[0].String())
		}
		return fmt.Errorf("example does not match schema")
	}
	return nil
}
