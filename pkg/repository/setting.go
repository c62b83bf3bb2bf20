// Package repository keeps runtime settings in a JSON file
package repository

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/autoposter/pkg/domain"
)

// SettingRepository keeps runtime settings in memory and persists them to a JSON file.
// Every change rewrites the whole file, there are no partial writes.
type SettingRepository struct {
	path     string
	defaults domain.Settings

	tones    []string
	moods    []string

	mu      sync.RWMutex
	current domain.Settings
}

// Option customizes SettingRepository
type Option func(r *SettingRepository)

// WithPresets limits tone and mood to the given preset names
func WithPresets(tones, moods []string) Option {
	return func(r *SettingRepository) {
		r.tones, r.moods = tones, moods
	}
}

// NewSettingRepository makes a repository for the given file, defaults are the environment-derived values
func NewSettingRepository(path string, defaults domain.Settings, opts ...Option) *SettingRepository {
	r := &SettingRepository{path: path, defaults: defaults.Clone(), current: defaults.Clone()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load reads the persisted file and overlays it on defaults. Missing file is created from defaults.
// Malformed content is reported as is, nothing gets repaired.
func (r *SettingRepository) Load() (domain.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		lgr.Printf("[INFO] settings file %s not found, creating from defaults", r.path)
		if err = r.validate(r.defaults); err != nil {
			return domain.Settings{}, fmt.Errorf("invalid default settings: %w", err)
		}
		if err = r.write(r.defaults); err != nil {
			return domain.Settings{}, err
		}
		r.current = r.defaults.Clone()
		return r.current.Clone(), nil
	}
	if err != nil {
		return domain.Settings{}, fmt.Errorf("read settings file: %w", err)
	}

	loaded := r.defaults.Clone()
	if err = json.Unmarshal(data, &loaded); err != nil {
		return domain.Settings{}, fmt.Errorf("parse settings file %s: %w", r.path, err)
	}
	applyFloor(&loaded, r.defaults)
	if err = r.validate(loaded); err != nil {
		return domain.Settings{}, fmt.Errorf("validate settings file %s: %w", r.path, err)
	}

	r.current = loaded
	lgr.Printf("[INFO] settings loaded from %s, autopost=%v, times=%v", r.path, loaded.AutopostEnabled, loaded.PostingTimes)
	return r.current.Clone(), nil
}

// Get returns a copy of the current settings
func (r *SettingRepository) Get() domain.Settings {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current.Clone()
}

// Update applies fn to a copy of the settings, validates and persists the result.
// In-memory state changes only if the write succeeded.
func (r *SettingRepository) Update(fn func(s *domain.Settings) error) (domain.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	upd := r.current.Clone()
	if err := fn(&upd); err != nil {
		return r.current.Clone(), err
	}
	if err := r.validate(upd); err != nil {
		return r.current.Clone(), fmt.Errorf("invalid settings: %w", err)
	}
	if err := r.write(upd); err != nil {
		return r.current.Clone(), err
	}
	r.current = upd
	return r.current.Clone(), nil
}

// Reset drops all overrides and returns to defaults. Admin ids survive, hashes and stats are cleared.
func (r *SettingRepository) Reset() (domain.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	upd := r.defaults.Clone()
	if len(r.current.AdminIDs) > 0 {
		upd.AdminIDs = append([]int64{}, r.current.AdminIDs...)
	}
	upd.RecentHashes = nil
	upd.RecentSeeds = nil
	upd.Stats = domain.Stats{}
	if err := r.write(upd); err != nil {
		return r.current.Clone(), err
	}
	r.current = upd
	lgr.Printf("[INFO] settings reset to defaults")
	return r.current.Clone(), nil
}

func (r *SettingRepository) validate(s domain.Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	return s.CheckPresets(r.tones, r.moods)
}

// write replaces the file with a temp file and rename, readers never see a partial file
func (r *SettingRepository) write(s domain.Settings) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("make settings dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp settings file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after successful rename

	if _, err = tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write settings: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync settings: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close settings: %w", err)
	}
	if err = os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("chmod settings: %w", err)
	}
	if err = os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("rename settings: %w", err)
	}
	return nil
}

// applyFloor keeps environment values for credentials, models and channel left empty in the file
func applyFloor(s *domain.Settings, env domain.Settings) {
	floor := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	floor(&s.OpenAIURL, env.OpenAIURL)
	floor(&s.OpenAIKey, env.OpenAIKey)
	floor(&s.TextModel, env.TextModel)
	floor(&s.PromptModel, env.PromptModel)
	floor(&s.ImageModel, env.ImageModel)
	floor(&s.ImageAPIURL, env.ImageAPIURL)
	floor(&s.ImageAPIKey, env.ImageAPIKey)
	floor(&s.Channel, env.Channel)
	floor(&s.Topic, env.Topic)
	floor(&s.Tone, env.Tone)
	floor(&s.Mood, env.Mood)
	floor(&s.ImageStyle, env.ImageStyle)
	if len(s.AdminIDs) == 0 {
		s.AdminIDs = append([]int64{}, env.AdminIDs...)
	}
}
