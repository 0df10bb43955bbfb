// CUE schema validation code
package config

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/encoding/yaml"
)

//go:embed schema.cue
var schemaSource string

// validateWithCue checks raw YAML config bytes against the embedded CUE
// schema before decoding.
func validateWithCue(configBytes []byte) error {
	ctx := cuecontext.New()

	configFile, err := yaml.Extract("config.yaml", configBytes)
	if err != nil {
		return fmt.Errorf("cannot compile YAML config: %w", err)
	}
	configVal := ctx.BuildFile(configFile)
	if configVal.Err() != nil {
		return fmt.Errorf("cannot compile YAML config: %w", configVal.Err())
	}

	schemaVal := ctx.CompileString(schemaSource)
	if schemaVal.Err() != nil {
		return fmt.Errorf("cannot compile CUE schema: %w", schemaVal.Err())
	}

	// Merge values with schema
	final := configVal.Unify(schemaVal)
	if final.Err() != nil {
		return fmt.Errorf("schema unify failed: %w", final.Err())
	}

	// Validate final structure
	if err := final.Validate(); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
