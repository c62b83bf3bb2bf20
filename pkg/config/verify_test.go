package config

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyAgainstEmbeddedSchema(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
		errMsg  string
	}{
		{name: "valid config", mutate: func(c *Config) {}},
		{
			name:    "response format outside enum",
			mutate:  func(c *Config) { c.Image.ResponseFormat = "gif" },
			wantErr: true,
			errMsg:  "config.image.response_format",
		},
		{
			name:    "jitter above maximum",
			mutate:  func(c *Config) { c.Retry.Jitter = 1.5 },
			wantErr: true,
			errMsg:  "greater than maximum",
		},
		{
			name:    "zero attempts below minimum",
			mutate:  func(c *Config) { c.Retry.Attempts = 0 },
			wantErr: true,
			errMsg:  "less than minimum",
		},
		{
			name:    "feed without url",
			mutate:  func(c *Config) { c.Sources.Feeds = []FeedConfig{{Name: "x"}} },
			wantErr: true,
			errMsg:  "sources.feeds[0].url is required",
		},
		{
			name:    "empty placeholder",
			mutate:  func(c *Config) { c.Format.Placeholder = "" },
			wantErr: true,
			errMsg:  "format.placeholder is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := VerifyAgainstEmbeddedSchema(cfg)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestEmbeddedSchemaMatchesConfig(t *testing.T) {
	var schema struct {
		Defs map[string]struct {
			Properties map[string]any `json:"properties"`
		} `json:"$defs"`
	}
	require.NoError(t, json.Unmarshal([]byte(embeddedSchema), &schema))

	generated, err := GenerateSchema()
	require.NoError(t, err)
	require.NotNil(t, generated)

	data, err := json.Marshal(Default())
	require.NoError(t, err)
	var cfgMap map[string]any
	require.NoError(t, json.Unmarshal(data, &cfgMap))

	cfgDef, ok := schema.Defs["Config"]
	require.True(t, ok)
	for key := range cfgMap {
		assert.Contains(t, cfgDef.Properties, key, "schema.json is stale, run go generate")
	}
}
