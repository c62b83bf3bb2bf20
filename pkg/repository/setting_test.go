package repository

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/autoposter/pkg/domain"
)

func testDefaults() domain.Settings {
	return domain.Settings{
		AdminIDs:     []int64{100},
		Topic:        "productivity",
		PostingTimes: []string{"09:00"},
		Tone:         "friendly",
		Mood:         "morning",
		ImageStyle:   "DEFAULT",
		ImageWidth:   1024,
		ImageHeight:  1024,
		ImageModel:   "dall-e-3",
		OpenAIURL:    "https://api.openai.com/v1",
		OpenAIKey:    "env-key",
		TextModel:    "gpt-4o-mini",
		PromptModel:  "gpt-4o-mini",
		Channel:      "@env_channel",
	}
}

var (
	testTones = []string{"expert", "friendly"}
	testMoods = []string{"evening", "morning"}
)

func TestSettingRepository_LoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.json")
	repo := NewSettingRepository(path, testDefaults())

	s, err := repo.Load()
	require.NoError(t, err)
	assert.Equal(t, "productivity", s.Topic)
	assert.Equal(t, "@env_channel", s.Channel)

	data, err := os.ReadFile(path)
	require.NoError(t, err, "file created from defaults")
	var persisted domain.Settings
	require.NoError(t, json.Unmarshal(data, &persisted))
	assert.Equal(t, []int64{100}, persisted.AdminIDs)
}

func TestSettingRepository_LoadOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
  "topic": "travel",
  "posting_times": ["08:15", "20:00"],
  "openai_key": "",
  "channel": "",
  "autopost_enabled": true,
  "image_width": 512,
  "image_height": 768,
  "recent_hashes": ["h1"],
  "stats": {"total_posts": 3}
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	repo := NewSettingRepository(path, testDefaults())
	s, err := repo.Load()
	require.NoError(t, err)

	assert.Equal(t, "travel", s.Topic)
	assert.Equal(t, []string{"08:15", "20:00"}, s.PostingTimes)
	assert.True(t, s.AutopostEnabled)
	assert.Equal(t, 512, s.ImageWidth)
	assert.Equal(t, []string{"h1"}, s.RecentHashes)
	assert.Equal(t, 3, s.Stats.TotalPosts)

	// environment is the floor for empty credentials and channel
	assert.Equal(t, "env-key", s.OpenAIKey)
	assert.Equal(t, "@env_channel", s.Channel)
	assert.Equal(t, []int64{100}, s.AdminIDs)
	assert.Equal(t, "gpt-4o-mini", s.TextModel, "missing field keeps default")
}

func TestSettingRepository_LoadErrors(t *testing.T) {
	tbl := []struct {
		name    string
		content string
		errMsg  string
	}{
		{"malformed json", `{"topic": `, "parse settings file"},
		{"wrong type", `{"posting_times": "09:00"}`, "parse settings file"},
		{"bad time", `{"posting_times": ["9am"]}`, "invalid posting time"},
		{"bad style", `{"image_style": "OIL"}`, "unknown image style"},
		{"bad size", `{"image_width": 20}`, "image width"},
		{"too many hashes", `{"recent_hashes": ["1","2","3","4","5","6","7","8","9","10","11","12","13","14","15"]}`,
			"15 recent hashes, at most 10 allowed"},
		{"unknown tone", `{"tone": "sarcastic"}`, `unknown tone "sarcastic"`},
		{"unknown mood", `{"mood": "gloomy"}`, `unknown mood "gloomy"`},
	}

	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))
			repo := NewSettingRepository(path, testDefaults(), WithPresets(testTones, testMoods))
			_, err := repo.Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, tt.content, string(data), "bad file is not repaired")
		})
	}
}

func TestSettingRepository_Update(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	repo := NewSettingRepository(path, testDefaults())
	_, err := repo.Load()
	require.NoError(t, err)

	s, err := repo.Update(func(s *domain.Settings) error {
		s.Topic = "cooking"
		s.RecordPublish("hash1", "seed1", time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "cooking", s.Topic)
	assert.Equal(t, "cooking", repo.Get().Topic)

	// reload from disk in a fresh repository
	repo2 := NewSettingRepository(path, testDefaults())
	s2, err := repo2.Load()
	require.NoError(t, err)
	assert.Equal(t, "cooking", s2.Topic)
	assert.Equal(t, []string{"hash1"}, s2.RecentHashes)
	assert.Equal(t, []string{"seed1"}, s2.RecentSeeds)
	assert.Equal(t, 1, s2.Stats.TotalPosts)
	require.NotNil(t, s2.Stats.LastPostAt)
	assert.Equal(t, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), s2.Stats.LastPostAt.UTC())

	t.Run("invalid update rejected", func(t *testing.T) {
		_, err := repo.Update(func(s *domain.Settings) error {
			s.PostingTimes = []string{"99:99"}
			return nil
		})
		require.Error(t, err)
		assert.Equal(t, []string{"09:00"}, repo.Get().PostingTimes)
	})

	t.Run("mutation error rejected", func(t *testing.T) {
		_, err := repo.Update(func(s *domain.Settings) error {
			s.Topic = "ignored"
			return errors.New("nope")
		})
		require.EqualError(t, err, "nope")
		assert.Equal(t, "cooking", repo.Get().Topic)
	})

	t.Run("get returns a copy", func(t *testing.T) {
		s := repo.Get()
		s.RecentHashes[0] = "changed"
		assert.Equal(t, "hash1", repo.Get().RecentHashes[0])
	})

	t.Run("no temp files left", func(t *testing.T) {
		entries, err := os.ReadDir(filepath.Dir(path))
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "config.json", entries[0].Name())
	})
}

func TestSettingRepository_Presets(t *testing.T) {
	t.Run("unknown default tone", func(t *testing.T) {
		defaults := testDefaults()
		defaults.Tone = "sarcastic"
		path := filepath.Join(t.TempDir(), "config.json")
		_, err := NewSettingRepository(path, defaults, WithPresets(testTones, testMoods)).Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid default settings")
		_, statErr := os.Stat(path)
		assert.True(t, errors.Is(statErr, os.ErrNotExist), "nothing written")
	})

	t.Run("unknown mood update rejected", func(t *testing.T) {
		repo := NewSettingRepository(filepath.Join(t.TempDir(), "config.json"), testDefaults(), WithPresets(testTones, testMoods))
		_, err := repo.Load()
		require.NoError(t, err)
		_, err = repo.Update(func(s *domain.Settings) error {
			s.Mood = "gloomy"
			return nil
		})
		require.Error(t, err)
		assert.Equal(t, "morning", repo.Get().Mood)

		_, err = repo.Update(func(s *domain.Settings) error {
			s.Tone = "expert"
			return nil
		})
		require.NoError(t, err)
	})
}

func TestSettingRepository_Reset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	repo := NewSettingRepository(path, testDefaults())
	_, err := repo.Load()
	require.NoError(t, err)

	_, err = repo.Update(func(s *domain.Settings) error {
		s.AdminIDs = []int64{100, 200}
		s.Topic = "cars"
		s.AutopostEnabled = true
		s.RecordPublish("h", "s", time.Now())
		return nil
	})
	require.NoError(t, err)

	s, err := repo.Reset()
	require.NoError(t, err)
	assert.Equal(t, "productivity", s.Topic)
	assert.False(t, s.AutopostEnabled)
	assert.Equal(t, []int64{100, 200}, s.AdminIDs, "admin ids survive reset")
	assert.Empty(t, s.RecentHashes)
	assert.Empty(t, s.RecentSeeds)
	assert.Zero(t, s.Stats.TotalPosts)
	assert.Nil(t, s.Stats.LastPostAt)

	repo2 := NewSettingRepository(path, testDefaults())
	s2, err := repo2.Load()
	require.NoError(t, err)
	assert.Equal(t, "productivity", s2.Topic)
	assert.Equal(t, []int64{100, 200}, s2.AdminIDs)
}
