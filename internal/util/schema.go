package util

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	js "github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed config.schema.json
var configSchema []byte

const configSchemaURL = "file:///config.schema.json"

// ConfigValidator validates configuration documents before they are decoded.
type ConfigValidator struct {
	schema *js.Schema
}

// Validate validates the document. The document is converted to its JSON form first so that values decoded
// from YAML or TOML are checked the same way as JSON values.
func (v *ConfigValidator) Validate(doc map[string]any) error {
	var o any
	dec := json.NewDecoder(bytes.NewReader([]byte(JSONStringify(doc))))
	dec.UseNumber()
	if err := dec.Decode(&o); err != nil {
		return fmt.Errorf("error converting configuration: %w", err)
	}
	if err := v.schema.Validate(o); err != nil {
		if verr, ok := err.(*js.ValidationError); ok {
			return fmt.Errorf("invalid configuration: %s", verr.Error())
		}
		return err
	}
	return nil
}

// NewConfigValidator compiles the configuration schema.
func NewConfigValidator() (*ConfigValidator, error) {
	compiler := js.NewCompiler()
	if err := compiler.AddResource(configSchemaURL, bytes.NewReader(configSchema)); err != nil {
		return nil, fmt.Errorf("error adding schema: %w", err)
	}
	schema, err := compiler.Compile(configSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("error compiling schema: %w", err)
	}
	return &ConfigValidator{schema: schema}, nil
}
