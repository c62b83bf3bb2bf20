package config

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:generate go run ../../cmd/schema/main.go schema.json

// Config holds the static application configuration. Everything here is tuning,
// runtime state an admin can change lives in domain.Settings.
type Config struct {
	LLM      LLMConfig     `yaml:"llm" json:"llm" jsonschema:"description=Text generation tuning"`
	Image    ImageConfig   `yaml:"image" json:"image" jsonschema:"description=Image generation configuration"`
	Sources  SourcesConfig `yaml:"sources" json:"sources" jsonschema:"description=Content seed sources"`
	Retry    RetryConfig   `yaml:"retry" json:"retry" jsonschema:"description=Retry policy for external calls"`
	Format   FormatConfig  `yaml:"format" json:"format" jsonschema:"description=Post formatter presets"`
	Server   ServerConfig  `yaml:"server" json:"server" jsonschema:"description=Status server configuration"`
	Timezone string        `yaml:"timezone" json:"timezone" jsonschema:"default=Local,description=Timezone for posting times (IANA name)"`
}

// LLMConfig holds text generation settings, endpoint, key and models come from runtime settings
type LLMConfig struct {
	Temperature       float64       `yaml:"temperature" json:"temperature" jsonschema:"default=0.8,minimum=0,maximum=2,description=Temperature for post drafts"`
	MaxTokens         int           `yaml:"max_tokens" json:"max_tokens" jsonschema:"default=700,description=Maximum tokens in a post draft"`
	Timeout           time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=60s,description=Request timeout"`
	SystemPrompt      string        `yaml:"system_prompt" json:"system_prompt" jsonschema:"description=System prompt for post drafts (optional)"`
	ImagePromptSystem string        `yaml:"image_prompt_system" json:"image_prompt_system" jsonschema:"description=System prompt for image prompt generation (optional)"`
	ImagePromptTokens int           `yaml:"image_prompt_tokens" json:"image_prompt_tokens" jsonschema:"default=200,description=Maximum tokens in an image prompt"`
	ResampleAttempts  int           `yaml:"resample_attempts" json:"resample_attempts" jsonschema:"default=3,minimum=1,description=Total draft attempts when generated content repeats a recent post"`
}

// ImageConfig holds image generation settings
type ImageConfig struct {
	Disabled       bool              `yaml:"disabled" json:"disabled" jsonschema:"default=false,description=Publish text-only posts without images"`
	ResponseFormat string            `yaml:"response_format" json:"response_format" jsonschema:"default=url,enum=url,enum=b64_json,description=Image API response format"`
	Quality        string            `yaml:"quality" json:"quality" jsonschema:"description=Image quality passed to the API (optional)"`
	Dir            string            `yaml:"dir" json:"dir" jsonschema:"default=images,description=Directory for decoded images"`
	Timeout        time.Duration     `yaml:"timeout" json:"timeout" jsonschema:"default=120s,description=Image request timeout"`
	Styles         map[string]string `yaml:"styles" json:"styles" jsonschema:"description=Prompt suffix per image style"`
}

// FeedConfig describes a single feed used as a content seed source
type FeedConfig struct {
	URL  string `yaml:"url" json:"url" jsonschema:"required,description=Feed URL"`
	Name string `yaml:"name" json:"name" jsonschema:"description=Feed name (defaults to URL)"`
}

// SourcesConfig holds content seed source settings
type SourcesConfig struct {
	Feeds          []FeedConfig  `yaml:"feeds" json:"feeds" jsonschema:"description=RSS/Atom feeds (empty list means topic-only seeds)"`
	ExtractContent bool          `yaml:"extract_content" json:"extract_content" jsonschema:"default=false,description=Extract full article text for feed seeds"`
	Timeout        time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=Feed and page fetch timeout"`
	UserAgent      string        `yaml:"user_agent" json:"user_agent" jsonschema:"default=Autoposter/1.0,description=User agent for HTTP requests"`
	MaxItems       int           `yaml:"max_items" json:"max_items" jsonschema:"default=20,description=Items inspected per feed"`
	MinTextLength  int           `yaml:"min_text_length" json:"min_text_length" jsonschema:"default=100,description=Minimum extracted text length to keep"`
}

// RetryConfig holds the backoff policy applied to each external call
type RetryConfig struct {
	Attempts int           `yaml:"attempts" json:"attempts" jsonschema:"default=3,minimum=1,description=Total attempts per call"`
	Initial  time.Duration `yaml:"initial" json:"initial" jsonschema:"default=1s,description=Initial delay"`
	MaxDelay time.Duration `yaml:"max_delay" json:"max_delay" jsonschema:"default=10s,description=Maximum delay"`
	Jitter   float64       `yaml:"jitter" json:"jitter" jsonschema:"default=0.1,minimum=0,maximum=1,description=Jitter factor"`
}

// ToneConfig describes a writing tone preset
type ToneConfig struct {
	Description string   `yaml:"description" json:"description" jsonschema:"description=Instruction passed to the text generator"`
	Emoji       []string `yaml:"emoji" json:"emoji" jsonschema:"description=Emoji pool for the title prefix"`
}

// FormatConfig holds formatter presets
type FormatConfig struct {
	Tones       map[string]ToneConfig `yaml:"tones" json:"tones" jsonschema:"description=Tone presets"`
	Moods       map[string][]string   `yaml:"moods" json:"moods" jsonschema:"description=Mood emoji pools"`
	Markers     []string              `yaml:"markers" json:"markers" jsonschema:"description=Rotating bullet markers"`
	Hashtags    []string              `yaml:"hashtags" json:"hashtags" jsonschema:"description=Fallback hashtags without the leading #"`
	Placeholder string                `yaml:"placeholder" json:"placeholder" jsonschema:"description=Text used when the draft is empty"`
}

// ServerConfig holds status server settings
type ServerConfig struct {
	Listen  string        `yaml:"listen" json:"listen" jsonschema:"description=Status server listen address (empty disables the server)"`
	Timeout time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=HTTP server timeout"`
}

// Default returns configuration used when no config file is given
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// expand environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	setDefaults(&cfg)

	// validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	// verify against embedded schema
	if err := VerifyAgainstEmbeddedSchema(&cfg); err != nil {
		return nil, fmt.Errorf("verify config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(cfg *Config) {
	// llm
	if cfg.LLM.Temperature == 0 {
		cfg.LLM.Temperature = 0.8
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = 700
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 60 * time.Second
	}
	if cfg.LLM.ImagePromptTokens == 0 {
		cfg.LLM.ImagePromptTokens = 200
	}
	if cfg.LLM.ResampleAttempts == 0 {
		cfg.LLM.ResampleAttempts = 3
	}

	// image
	if cfg.Image.ResponseFormat == "" {
		cfg.Image.ResponseFormat = "url"
	}
	if cfg.Image.Dir == "" {
		cfg.Image.Dir = "images"
	}
	if cfg.Image.Timeout == 0 {
		cfg.Image.Timeout = 120 * time.Second
	}
	if len(cfg.Image.Styles) == 0 {
		cfg.Image.Styles = map[string]string{
			"DEFAULT":   "",
			"KANDINSKY": "in the style of Wassily Kandinsky, abstract painting, bold geometric shapes, vivid colors",
			"UHD":       "ultra high definition, highly detailed, sharp focus, professional photography",
			"ANIME":     "in anime style, cel shading, vibrant colors, detailed illustration",
		}
	}

	// sources
	for i := range cfg.Sources.Feeds {
		if cfg.Sources.Feeds[i].Name == "" {
			cfg.Sources.Feeds[i].Name = cfg.Sources.Feeds[i].URL
		}
	}
	if cfg.Sources.Timeout == 0 {
		cfg.Sources.Timeout = 30 * time.Second
	}
	if cfg.Sources.UserAgent == "" {
		cfg.Sources.UserAgent = "Autoposter/1.0"
	}
	if cfg.Sources.MaxItems == 0 {
		cfg.Sources.MaxItems = 20
	}
	if cfg.Sources.MinTextLength == 0 {
		cfg.Sources.MinTextLength = 100
	}

	// retry
	if cfg.Retry.Attempts == 0 {
		cfg.Retry.Attempts = 3
	}
	if cfg.Retry.Initial == 0 {
		cfg.Retry.Initial = time.Second
	}
	if cfg.Retry.MaxDelay == 0 {
		cfg.Retry.MaxDelay = 10 * time.Second
	}
	if cfg.Retry.Jitter == 0 {
		cfg.Retry.Jitter = 0.1
	}

	// format
	if len(cfg.Format.Tones) == 0 {
		cfg.Format.Tones = map[string]ToneConfig{
			"motivating": {Description: "energetic and motivating, pushes the reader to act", Emoji: []string{"🔥", "⚡", "🚀", "💪", "✨"}},
			"expert":     {Description: "confident and expert, backed by facts and specifics", Emoji: []string{"📌", "💎", "🧠", "📊", "🔍"}},
			"friendly":   {Description: "warm and friendly, like talking to a good friend", Emoji: []string{"👋", "😊", "🤗", "💬", "🌟"}},
			"inspiring":  {Description: "inspiring and uplifting, with vivid imagery", Emoji: []string{"🌈", "✨", "🕊", "🌱", "🌟"}},
			"practical":  {Description: "practical and to the point, with actionable steps", Emoji: []string{"🛠", "✅", "📎", "🧩", "📝"}},
		}
	}
	if len(cfg.Format.Moods) == 0 {
		cfg.Format.Moods = map[string][]string{
			"morning": {"🌅", "☀️"},
			"evening": {"🌆", "🌙"},
			"festive": {"🎉", "🎊"},
			"night":   {"🌃", "⭐"},
		}
	}
	if len(cfg.Format.Markers) == 0 {
		cfg.Format.Markers = []string{"✦", "•", "─", "▫"}
	}
	if len(cfg.Format.Hashtags) == 0 {
		cfg.Format.Hashtags = []string{"useful", "tips", "inspiration", "telegram"}
	}
	if cfg.Format.Placeholder == "" {
		cfg.Format.Placeholder = "A new day brings new ideas for your channel!"
	}

	// server
	if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = 30 * time.Second
	}

	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}
}

// validate checks configuration for correctness
func validate(cfg *Config) error {
	if cfg.LLM.Temperature < 0 || cfg.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2")
	}
	if cfg.LLM.ResampleAttempts < 1 {
		return fmt.Errorf("llm.resample_attempts must be at least 1")
	}

	switch cfg.Image.ResponseFormat {
	case "url", "b64_json":
	default:
		return fmt.Errorf("image.response_format must be url or b64_json, got %q", cfg.Image.ResponseFormat)
	}

	for i, f := range cfg.Sources.Feeds {
		if !strings.HasPrefix(f.URL, "http://") && !strings.HasPrefix(f.URL, "https://") {
			return fmt.Errorf("sources.feeds[%d].url must be http(s), got %q", i, f.URL)
		}
	}

	if cfg.Retry.Attempts < 1 {
		return fmt.Errorf("retry.attempts must be at least 1")
	}
	if cfg.Retry.Jitter < 0 || cfg.Retry.Jitter > 1 {
		return fmt.Errorf("retry.jitter must be between 0 and 1")
	}
	if cfg.Retry.MaxDelay < cfg.Retry.Initial {
		return fmt.Errorf("retry.max_delay must not be less than retry.initial")
	}

	for name, tone := range cfg.Format.Tones {
		if name != strings.ToLower(name) {
			return fmt.Errorf("format.tones key %q must be lowercase", name)
		}
		if len(tone.Emoji) == 0 {
			return fmt.Errorf("format.tones.%s.emoji must not be empty", name)
		}
	}
	for name := range cfg.Format.Moods {
		if name != strings.ToLower(name) {
			return fmt.Errorf("format.moods key %q must be lowercase", name)
		}
	}

	if cfg.Server.Listen != "" && cfg.Server.Timeout < time.Second {
		return fmt.Errorf("server timeout must be at least 1 second")
	}

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}

	return nil
}

// Location returns the configured timezone, falls back to local time
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// ToneNames returns configured tone names
func (c *Config) ToneNames() []string {
	return slices.Sorted(maps.Keys(c.Format.Tones))
}

// MoodNames returns configured mood names
func (c *Config) MoodNames() []string {
	return slices.Sorted(maps.Keys(c.Format.Moods))
}
