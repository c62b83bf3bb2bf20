package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/invopop/jsonschema"

	"github.com/umputun/autoposter/pkg/config"
	"github.com/umputun/autoposter/pkg/domain"
)

// usage: schema [config-schema.json] [settings-schema.json]
func main() {
	configPath, settingsPath := "schema.json", ""
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	if len(os.Args) > 2 {
		settingsPath = os.Args[2]
	}

	if err := writeSchema(jsonschema.Reflect(&config.Config{}), configPath); err != nil {
		log.Fatalf("failed to write config schema: %v", err)
	}
	fmt.Printf("Config schema generated successfully at %s\n", configPath)

	if settingsPath == "" {
		return
	}
	if err := writeSchema(jsonschema.Reflect(&domain.Settings{}), settingsPath); err != nil {
		log.Fatalf("failed to write settings schema: %v", err)
	}
	fmt.Printf("Settings schema generated successfully at %s\n", settingsPath)
}

func writeSchema(schema *jsonschema.Schema, path string) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil { //nolint:gosec // schema file is not sensitive
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
