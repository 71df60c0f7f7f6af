package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadFromMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"model": "small",
		"language": "ja",
		"noise_level": 0.05,
		"breath_time": 2,
		"audio": {"backend": "pulse"}
	}`), 0o600))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	require.Equal(t, "small", cfg.Model)
	require.Equal(t, "ja", cfg.PinnedLanguage())
	require.NotNil(t, cfg.NoiseLevel)
	require.InDelta(t, 0.05, *cfg.NoiseLevel, 1e-9)
	require.Equal(t, 2.0, cfg.BreathTime)
	require.Equal(t, BackendPulse, cfg.Audio.Backend)
	// untouched nested fields keep their defaults
	require.Equal(t, 44100, cfg.Audio.SampleRate)
	require.Equal(t, 1024, cfg.Audio.FrameSize)
}

func TestLoadFromRejectsMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))

	_, err := LoadFrom(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse config")
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := Default()
	cfg.Task = TaskTranslate
	require.NoError(t, cfg.Save(path))

	loaded, err := LoadFrom(path)
	require.NoError(t, err)
	require.Equal(t, TaskTranslate, loaded.Task)
}

func TestValidate(t *testing.T) {
	level := func(v float64) *float64 { return &v }

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "unknown task", mutate: func(c *Config) { c.Task = "summarize" }},
		{name: "unknown backend", mutate: func(c *Config) { c.Audio.Backend = "alsa" }},
		{name: "unknown handoff", mutate: func(c *Config) { c.Handoff = "pipe" }},
		{name: "empty model", mutate: func(c *Config) { c.Model = "" }},
		{name: "zero sample rate", mutate: func(c *Config) { c.Audio.SampleRate = 0 }},
		{name: "zero frame size", mutate: func(c *Config) { c.Audio.FrameSize = 0 }},
		{name: "negative breath time", mutate: func(c *Config) { c.BreathTime = -1 }},
		{name: "negative max utterance", mutate: func(c *Config) { c.MaxUtterance = -1 }},
		{name: "noise level above one", mutate: func(c *Config) { c.NoiseLevel = level(1.5) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			require.True(t, errors.Is(err, ErrInvalid))
		})
	}
}

func TestPinnedLanguageAuto(t *testing.T) {
	cfg := Default()
	require.Equal(t, "", cfg.PinnedLanguage())
}
