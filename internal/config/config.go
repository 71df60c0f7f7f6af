package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

const (
	TaskTranscribe = "transcribe"
	TaskTranslate  = "translate"

	BackendPortAudio = "portaudio"
	BackendPulse     = "pulse"

	HandoffInProcess  = "inprocess"
	HandoffSubprocess = "subprocess"

	// LanguageAuto asks the engine to detect the spoken language.
	LanguageAuto = "auto"
)

type Config struct {
	Model        string        `json:"model"`         // "tiny", "base", "small", "medium", "large-v3", ...
	Language     string        `json:"language"`      // "auto", "en", "ja", ...
	Task         string        `json:"task"`          // "transcribe" or "translate"
	NoiseLevel   *float64      `json:"noise_level"`   // nil means calibrate at startup
	BreathTime   float64       `json:"breath_time"`   // seconds of silence that end an utterance
	MaxUtterance float64       `json:"max_utterance"` // seconds, 0 disables the cap
	Diag         bool          `json:"diag"`
	LogLevel     string        `json:"log_level"`
	LogFile      bool          `json:"log_file"`
	Handoff      string        `json:"handoff"` // "inprocess" or "subprocess"
	Clipboard    bool          `json:"clipboard"`
	Tray         bool          `json:"tray"`
	MetricsAddr  string        `json:"metrics_addr"`
	Audio        AudioConfig   `json:"audio"`
	Whisper      WhisperConfig `json:"whisper"`
}

type AudioConfig struct {
	Backend    string `json:"backend"` // "portaudio" or "pulse"
	DeviceID   string `json:"device_id"`
	SampleRate int    `json:"sample_rate"`
	FrameSize  int    `json:"frame_size"`
}

type WhisperConfig struct {
	Threads int `json:"threads"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Model:        "medium",
		Language:     LanguageAuto,
		Task:         TaskTranscribe,
		NoiseLevel:   nil,
		BreathTime:   1.5,
		MaxUtterance: 30,
		Diag:         false,
		LogLevel:     "info",
		LogFile:      false,
		Handoff:      HandoffInProcess,
		Audio: AudioConfig{
			Backend:    BackendPortAudio,
			DeviceID:   "",
			SampleRate: 44100,
			FrameSize:  1024,
		},
		Whisper: WhisperConfig{
			Threads: 0, // Auto-detect
		},
	}
}

// Load reads the config from the platform config path or returns defaults
func Load() (*Config, error) {
	return LoadFrom(Path())
}

// LoadFrom overlays the JSON file at path on top of the defaults. A missing
// file is not an error.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes the config to path
func (c *Config) Save(path string) error {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate reports the first setting the pipeline cannot run with.
func (c *Config) Validate() error {
	switch c.Task {
	case TaskTranscribe, TaskTranslate:
	default:
		return fmt.Errorf("%w: task %q", ErrInvalid, c.Task)
	}
	switch c.Audio.Backend {
	case BackendPortAudio, BackendPulse:
	default:
		return fmt.Errorf("%w: audio backend %q", ErrInvalid, c.Audio.Backend)
	}
	switch c.Handoff {
	case HandoffInProcess, HandoffSubprocess:
	default:
		return fmt.Errorf("%w: handoff %q", ErrInvalid, c.Handoff)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: model is empty", ErrInvalid)
	}
	if c.Audio.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalid, c.Audio.SampleRate)
	}
	if c.Audio.FrameSize <= 0 {
		return fmt.Errorf("%w: frame size %d", ErrInvalid, c.Audio.FrameSize)
	}
	if c.BreathTime < 0 {
		return fmt.Errorf("%w: breath time %g", ErrInvalid, c.BreathTime)
	}
	if c.MaxUtterance < 0 {
		return fmt.Errorf("%w: max utterance %g", ErrInvalid, c.MaxUtterance)
	}
	if c.NoiseLevel != nil && (*c.NoiseLevel < 0 || *c.NoiseLevel > 1) {
		return fmt.Errorf("%w: noise level %g outside [0,1]", ErrInvalid, *c.NoiseLevel)
	}
	return nil
}

// PinnedLanguage returns the configured language, or "" when it should be
// detected per utterance.
func (c *Config) PinnedLanguage() string {
	if c.Language == LanguageAuto {
		return ""
	}
	return c.Language
}

// Path returns the platform-specific config file path
func Path() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("APPDATA")
	default: // linux
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.config"
		}
	}

	return filepath.Join(base, "whisper-dictate", "config.json")
}

// ModelsPath returns the platform-specific models directory path
func ModelsPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("LOCALAPPDATA")
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.local/share"
		}
	}

	return filepath.Join(base, "whisper-dictate", "models")
}
