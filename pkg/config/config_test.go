package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		configContent := `
llm:
  temperature: 0.5
  max_tokens: 900
  timeout: 20s
image:
  response_format: b64_json
  dir: /tmp/images
sources:
  extract_content: true
  feeds:
    - url: https://example.com/feed1.xml
      name: Feed1
    - url: https://example.com/feed2.xml
retry:
  attempts: 5
  initial: 500ms
  max_delay: 5s
format:
  hashtags: [design, interior]
server:
  listen: ":9090"
  timeout: 45s
timezone: UTC
`
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "test-config.yml")
		err := os.WriteFile(configPath, []byte(configContent), 0o644)
		require.NoError(t, err)

		cfg, err := Load(configPath)
		require.NoError(t, err)
		require.NotNil(t, cfg)

		assert.InDelta(t, 0.5, cfg.LLM.Temperature, 0.001)
		assert.Equal(t, 900, cfg.LLM.MaxTokens)
		assert.Equal(t, 20*time.Second, cfg.LLM.Timeout)
		assert.Equal(t, "b64_json", cfg.Image.ResponseFormat)
		assert.Equal(t, "/tmp/images", cfg.Image.Dir)
		assert.True(t, cfg.Sources.ExtractContent)
		require.Len(t, cfg.Sources.Feeds, 2)
		assert.Equal(t, "Feed1", cfg.Sources.Feeds[0].Name)
		assert.Equal(t, "https://example.com/feed2.xml", cfg.Sources.Feeds[1].Name, "name defaults to url")
		assert.Equal(t, 5, cfg.Retry.Attempts)
		assert.Equal(t, 500*time.Millisecond, cfg.Retry.Initial)
		assert.Equal(t, 5*time.Second, cfg.Retry.MaxDelay)
		assert.Equal(t, []string{"design", "interior"}, cfg.Format.Hashtags)
		assert.Equal(t, ":9090", cfg.Server.Listen)
		assert.Equal(t, 45*time.Second, cfg.Server.Timeout)
		assert.Equal(t, time.UTC, cfg.Location())
	})

	t.Run("defaults", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "test-config.yml")
		err := os.WriteFile(configPath, []byte("llm:\n  max_tokens: 100\n"), 0o644)
		require.NoError(t, err)

		cfg, err := Load(configPath)
		require.NoError(t, err)

		assert.InDelta(t, 0.8, cfg.LLM.Temperature, 0.001)
		assert.Equal(t, 3, cfg.LLM.ResampleAttempts)
		assert.Equal(t, "url", cfg.Image.ResponseFormat)
		assert.Len(t, cfg.Image.Styles, 4)
		assert.Empty(t, cfg.Sources.Feeds)
		assert.Equal(t, 3, cfg.Retry.Attempts)
		assert.Equal(t, time.Second, cfg.Retry.Initial)
		assert.Equal(t, 10*time.Second, cfg.Retry.MaxDelay)
		assert.InDelta(t, 0.1, cfg.Retry.Jitter, 0.001)
		assert.Equal(t, []string{"expert", "friendly", "inspiring", "motivating", "practical"}, cfg.ToneNames())
		assert.Equal(t, []string{"evening", "festive", "morning", "night"}, cfg.MoodNames())
		assert.Equal(t, []string{"✦", "•", "─", "▫"}, cfg.Format.Markers)
		assert.Empty(t, cfg.Server.Listen, "status server disabled by default")
		assert.Equal(t, "Local", cfg.Timezone)
	})

	t.Run("env expansion", func(t *testing.T) {
		t.Setenv("TEST_FEED_URL", "https://example.com/env.xml")
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "test-config.yml")
		content := "sources:\n  feeds:\n    - url: ${TEST_FEED_URL}\n"
		require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))

		cfg, err := Load(configPath)
		require.NoError(t, err)
		require.Len(t, cfg.Sources.Feeds, 1)
		assert.Equal(t, "https://example.com/env.xml", cfg.Sources.Feeds[0].URL)
	})

	t.Run("file not found", func(t *testing.T) {
		cfg, err := Load("/non/existent/file.yml")
		require.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "read config file")
	})

	t.Run("invalid yaml", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "bad.yml")
		require.NoError(t, os.WriteFile(configPath, []byte("llm: [unclosed"), 0o644))

		_, err := Load(configPath)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse config")
	})
}

func TestValidate(t *testing.T) {
	tbl := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"temperature", func(c *Config) { c.LLM.Temperature = 3 }, "llm.temperature"},
		{"response format", func(c *Config) { c.Image.ResponseFormat = "png" }, "image.response_format"},
		{"feed url", func(c *Config) { c.Sources.Feeds = []FeedConfig{{URL: "ftp://x"}} }, "sources.feeds[0].url"},
		{"jitter", func(c *Config) { c.Retry.Jitter = 2 }, "retry.jitter"},
		{"delays", func(c *Config) { c.Retry.MaxDelay = time.Millisecond }, "retry.max_delay"},
		{"tone case", func(c *Config) { c.Format.Tones["Loud"] = ToneConfig{Emoji: []string{"📣"}} }, "must be lowercase"},
		{"tone emoji", func(c *Config) { c.Format.Tones["calm"] = ToneConfig{} }, "emoji must not be empty"},
		{"timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, "invalid timezone"},
	}

	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	require.NoError(t, validate(Default()))
}
