package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/invopop/jsonschema"
)

//go:embed schema.json
var embeddedSchema string

// VerifyAgainstEmbeddedSchema validates the config against the embedded JSON schema.
// Only the subset of keywords the generated schema uses is checked: $ref, type, properties,
// items, additionalProperties, enum, minimum and maximum.
func VerifyAgainstEmbeddedSchema(cfg *Config) error {
	var schema map[string]any
	if err := json.Unmarshal([]byte(embeddedSchema), &schema); err != nil {
		return fmt.Errorf("parse embedded schema: %w", err)
	}

	// convert config to JSON for validation
	configData, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	var configMap map[string]any
	if err := json.Unmarshal(configData, &configMap); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}

	defs, _ := schema["$defs"].(map[string]any)
	if err := checkValue(configMap, schema, defs, "config"); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	// basic validation - check required fields match
	if err := validateRequiredFields(cfg); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	return nil
}

func checkValue(val any, schema, defs map[string]any, path string) error {
	if ref, ok := schema["$ref"].(string); ok {
		name := strings.TrimPrefix(ref, "#/$defs/")
		def, found := defs[name].(map[string]any)
		if !found {
			return fmt.Errorf("%s: unknown schema reference %s", path, ref)
		}
		return checkValue(val, def, defs, path)
	}

	if enum, ok := schema["enum"].([]any); ok && len(enum) > 0 {
		if !slices.Contains(enum, val) {
			return fmt.Errorf("%s: value %v not in %v", path, val, enum)
		}
	}

	switch v := val.(type) {
	case map[string]any:
		if props, ok := schema["properties"].(map[string]any); ok {
			for key, propSchema := range props {
				ps, ok := propSchema.(map[string]any)
				if !ok {
					continue
				}
				child, present := v[key]
				if !present || child == nil {
					continue
				}
				if err := checkValue(child, ps, defs, path+"."+key); err != nil {
					return err
				}
			}
		}
		if addl, ok := schema["additionalProperties"].(map[string]any); ok {
			for key, child := range v {
				if err := checkValue(child, addl, defs, path+"."+key); err != nil {
					return err
				}
			}
		}
	case []any:
		if items, ok := schema["items"].(map[string]any); ok {
			for i, child := range v {
				if err := checkValue(child, items, defs, fmt.Sprintf("%s[%d]", path, i)); err != nil {
					return err
				}
			}
		}
	case float64:
		if minVal, ok := schema["minimum"].(float64); ok && v < minVal {
			return fmt.Errorf("%s: %v is less than minimum %v", path, v, minVal)
		}
		if maxVal, ok := schema["maximum"].(float64); ok && v > maxVal {
			return fmt.Errorf("%s: %v is greater than maximum %v", path, v, maxVal)
		}
	}
	return nil
}

// validateRequiredFields performs basic validation of required fields
func validateRequiredFields(cfg *Config) error {
	if cfg.Retry.Attempts == 0 {
		return fmt.Errorf("retry.attempts is required")
	}
	if cfg.Image.ResponseFormat == "" {
		return fmt.Errorf("image.response_format is required")
	}
	if cfg.Format.Placeholder == "" {
		return fmt.Errorf("format.placeholder is required")
	}
	if len(cfg.Format.Markers) == 0 {
		return fmt.Errorf("format.markers is required")
	}
	for i, f := range cfg.Sources.Feeds {
		if f.URL == "" {
			return fmt.Errorf("sources.feeds[%d].url is required", i)
		}
	}
	return nil
}

// GenerateSchema generates a JSON schema for the Config struct
func GenerateSchema() (*jsonschema.Schema, error) {
	return jsonschema.Reflect(&Config{}), nil
}
