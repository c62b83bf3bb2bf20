package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

const (
	// MaxRecentHashes is the cap on remembered content hashes
	MaxRecentHashes = 10
	// MaxRecentSeeds is the cap on remembered seed fingerprints
	MaxRecentSeeds = 50
)

// ImageStyles lists supported image styles
var ImageStyles = []string{"DEFAULT", "KANDINSKY", "UHD", "ANIME"}

// Settings is the mutable runtime configuration of the bot, persisted as JSON
type Settings struct {
	AdminIDs        []int64  `json:"admin_ids" jsonschema:"description=Telegram user ids allowed to run admin commands"`
	Topic           string   `json:"topic" jsonschema:"description=Channel topic"`
	PostingTimes    []string `json:"posting_times" jsonschema:"description=Daily posting times in HH:MM"`
	Tone            string   `json:"tone" jsonschema:"description=Writing tone preset"`
	Mood            string   `json:"mood" jsonschema:"description=Mood preset"`
	ImageStyle      string   `json:"image_style" jsonschema:"enum=DEFAULT,enum=KANDINSKY,enum=UHD,enum=ANIME"`
	ImageWidth      int      `json:"image_width" jsonschema:"minimum=256,maximum=4096"`
	ImageHeight     int      `json:"image_height" jsonschema:"minimum=256,maximum=4096"`
	ImageModel      string   `json:"image_model"`
	ImageAPIURL     string   `json:"image_api_url" jsonschema:"description=Image API endpoint; empty reuses openai_url"`
	ImageAPIKey     string   `json:"image_api_key" jsonschema:"description=Image API key; empty reuses openai_key"`
	OpenAIURL       string   `json:"openai_url"`
	OpenAIKey       string   `json:"openai_key"`
	TextModel       string   `json:"text_model"`
	PromptModel     string   `json:"prompt_model"`
	Channel         string   `json:"channel" jsonschema:"description=Channel @username or numeric chat id"`
	AutopostEnabled bool     `json:"autopost_enabled"`
	SourceKeywords  []string `json:"source_keywords"`
	RecentHashes    []string `json:"recent_hashes"`
	RecentSeeds     []string `json:"recent_seeds"`
	Stats           Stats    `json:"stats"`
}

// Stats holds posting counters
type Stats struct {
	TotalPosts int        `json:"total_posts"`
	LastPostAt *time.Time `json:"last_post_at,omitempty"`
}

// Clone returns a deep copy, slices and pointers are not shared
func (s Settings) Clone() Settings {
	res := s
	res.AdminIDs = slices.Clone(s.AdminIDs)
	res.PostingTimes = slices.Clone(s.PostingTimes)
	res.SourceKeywords = slices.Clone(s.SourceKeywords)
	res.RecentHashes = slices.Clone(s.RecentHashes)
	res.RecentSeeds = slices.Clone(s.RecentSeeds)
	if s.Stats.LastPostAt != nil {
		ts := *s.Stats.LastPostAt
		res.Stats.LastPostAt = &ts
	}
	return res
}

// Validate checks values which can't be fixed silently
func (s Settings) Validate() error {
	for _, t := range s.PostingTimes {
		if _, _, err := ParsePostingTime(t); err != nil {
			return err
		}
	}
	if s.ImageStyle != "" && !slices.Contains(ImageStyles, s.ImageStyle) {
		return fmt.Errorf("unknown image style %q, allowed: %s", s.ImageStyle, strings.Join(ImageStyles, ", "))
	}
	if s.ImageWidth < 256 || s.ImageWidth > 4096 {
		return fmt.Errorf("image width %d out of range 256..4096", s.ImageWidth)
	}
	if s.ImageHeight < 256 || s.ImageHeight > 4096 {
		return fmt.Errorf("image height %d out of range 256..4096", s.ImageHeight)
	}
	if s.Stats.TotalPosts < 0 {
		return fmt.Errorf("negative total posts %d", s.Stats.TotalPosts)
	}
	if len(s.RecentHashes) > MaxRecentHashes {
		return fmt.Errorf("%d recent hashes, at most %d allowed", len(s.RecentHashes), MaxRecentHashes)
	}
	if len(s.RecentSeeds) > MaxRecentSeeds {
		return fmt.Errorf("%d recent seeds, at most %d allowed", len(s.RecentSeeds), MaxRecentSeeds)
	}
	return nil
}

// CheckPresets verifies tone and mood against allowed preset names, empty allowed list accepts anything
func (s Settings) CheckPresets(tones, moods []string) error {
	if len(tones) > 0 && s.Tone != "" && !slices.Contains(tones, s.Tone) {
		return fmt.Errorf("unknown tone %q, allowed: %s", s.Tone, strings.Join(tones, ", "))
	}
	if len(moods) > 0 && s.Mood != "" && !slices.Contains(moods, s.Mood) {
		return fmt.Errorf("unknown mood %q, allowed: %s", s.Mood, strings.Join(moods, ", "))
	}
	return nil
}

// HasHash reports whether the content hash was published recently
func (s Settings) HasHash(hash string) bool {
	return slices.Contains(s.RecentHashes, hash)
}

// HasSeed reports whether the seed fingerprint was published recently
func (s Settings) HasSeed(id string) bool {
	return slices.Contains(s.RecentSeeds, id)
}

// RecordPublish registers a successful publication
func (s *Settings) RecordPublish(hash, seedID string, at time.Time) {
	s.RecentHashes = pushFront(s.RecentHashes, hash, MaxRecentHashes)
	if seedID != "" {
		s.RecentSeeds = pushFront(s.RecentSeeds, seedID, MaxRecentSeeds)
	}
	s.Stats.TotalPosts++
	ts := at.UTC()
	s.Stats.LastPostAt = &ts
}

// ReadyToSchedule reports whether scheduled posting can be set up
func (s Settings) ReadyToSchedule() bool {
	return s.AutopostEnabled && s.Channel != ""
}

// ParsePostingTime parses HH:MM into hour and minute
func ParsePostingTime(v string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(v))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid posting time %q, expected HH:MM", v)
	}
	return t.Hour(), t.Minute(), nil
}

// ParsePostingTimes splits a comma separated list of HH:MM values, empty items dropped
func ParsePostingTimes(v string) ([]string, error) {
	res := []string{}
	for _, item := range strings.Split(v, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		h, m, err := ParsePostingTime(item)
		if err != nil {
			return nil, err
		}
		res = append(res, fmt.Sprintf("%02d:%02d", h, m))
	}
	return res, nil
}

func pushFront(list []string, v string, limit int) []string {
	res := make([]string, 0, limit)
	res = append(res, v)
	for _, item := range list {
		if len(res) >= limit {
			break
		}
		if item == v {
			continue
		}
		res = append(res, item)
	}
	return res
}

// Redacted returns a copy with api keys masked, safe to show or log
func (s Settings) Redacted() Settings {
	res := s.Clone()
	res.OpenAIKey = MaskSecret(s.OpenAIKey)
	res.ImageAPIKey = MaskSecret(s.ImageAPIKey)
	return res
}

// MaskSecret hides all but the last 4 characters of long secrets, short ones are hidden completely
func MaskSecret(v string) string {
	switch {
	case v == "":
		return ""
	case len(v) <= 8:
		return "****"
	default:
		return "****" + v[len(v)-4:]
	}
}
