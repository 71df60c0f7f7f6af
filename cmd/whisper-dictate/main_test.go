package main

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petems/whisper-dictate/internal/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newCLI(&stdout, &stderr).command()
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), err
}

func missingConfig(t *testing.T) string {
	return filepath.Join(t.TempDir(), "config.json")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "whisper-dictate dev (unknown)\n", out)
}

func TestVersionSkipsConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := execute(t, "--config", path, "version")
	require.NoError(t, err)
}

func TestInvalidFlagIsRejectedBeforeRunning(t *testing.T) {
	_, err := execute(t, "--config", missingConfig(t), "--task", "summarize", "devices")
	require.ErrorIs(t, err, config.ErrInvalid)
}

func TestNoiseLevelOutOfRange(t *testing.T) {
	_, err := execute(t, "--config", missingConfig(t), "--noise-level", "1.5", "devices")
	require.ErrorIs(t, err, config.ErrInvalid)
}

func TestCaptureRequiresMailbox(t *testing.T) {
	_, err := execute(t, "--config", missingConfig(t), "capture")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mailbox")
}

func TestResolveLayersFlagsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"model":"small","breath_time":2,"language":"de"}`), 0o600))

	c := newCLI(&bytes.Buffer{}, &bytes.Buffer{})
	root := c.command()
	require.NoError(t, root.ParseFlags([]string{
		"--config", path,
		"--language", "en",
		"--noise-level", "0.03",
		"--max-utterance", "0",
	}))
	require.NoError(t, c.resolve(root))

	cfg := c.cfg
	assert.Equal(t, "small", cfg.Model)
	assert.Equal(t, 2.0, cfg.BreathTime)
	assert.Equal(t, "en", cfg.Language)
	require.NotNil(t, cfg.NoiseLevel)
	assert.Equal(t, 0.03, *cfg.NoiseLevel)
	assert.Equal(t, 0.0, cfg.MaxUtterance)
	// untouched flags keep defaults
	assert.Equal(t, config.TaskTranscribe, cfg.Task)
	assert.Equal(t, config.HandoffInProcess, cfg.Handoff)
}

func TestResolveWithoutNoiseLevelCalibrates(t *testing.T) {
	c := newCLI(&bytes.Buffer{}, &bytes.Buffer{})
	root := c.command()
	require.NoError(t, root.ParseFlags([]string{"--config", missingConfig(t)}))
	require.NoError(t, c.resolve(root))
	assert.Nil(t, c.cfg.NoiseLevel)
}

func TestCaptureArgs(t *testing.T) {
	cfg := config.Default()
	cfg.Audio.Backend = config.BackendPulse
	cfg.Audio.DeviceID = "alsa_input.usb"
	cfg.BreathTime = 0.8

	args := captureArgs(cfg, "", "/tmp/box")
	joined := strings.Join(args, " ")
	assert.Equal(t, []string{"capture", "--mailbox", "/tmp/box"}, args[:3])
	assert.Contains(t, joined, "--backend pulse")
	assert.Contains(t, joined, "--device alsa_input.usb")
	assert.Contains(t, joined, "--breath-time 0.8")
	assert.Contains(t, joined, "--max-utterance 30")
	assert.NotContains(t, joined, "--noise-level")
	assert.NotContains(t, joined, "--config")
	assert.NotContains(t, joined, "--diag")

	level := 0.07
	cfg.NoiseLevel = &level
	cfg.Diag = true
	joined = strings.Join(captureArgs(cfg, "/etc/wd.json", "/tmp/box"), " ")
	assert.Contains(t, joined, "--noise-level 0.07")
	assert.Contains(t, joined, "--config /etc/wd.json")
	assert.Contains(t, joined, "--diag")
}

func TestCaptureArgsRoundTrip(t *testing.T) {
	level := 0.05
	want := config.Default()
	want.NoiseLevel = &level
	want.BreathTime = 1.25
	want.Audio.SampleRate = 48000

	c := newCLI(&bytes.Buffer{}, &bytes.Buffer{})
	root := c.command()
	capture, _, err := root.Find([]string{"capture"})
	require.NoError(t, err)

	args := captureArgs(want, missingConfig(t), "/tmp/box")[1:]
	require.NoError(t, capture.ParseFlags(args))
	require.NoError(t, c.resolve(capture))

	got := c.cfg
	require.NotNil(t, got.NoiseLevel)
	assert.Equal(t, level, *got.NoiseLevel)
	assert.Equal(t, want.BreathTime, got.BreathTime)
	assert.Equal(t, want.MaxUtterance, got.MaxUtterance)
	assert.Equal(t, want.Audio, got.Audio)
}

func TestConfigSaveWritesEffectiveSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	out, err := execute(t, "--config", path, "--model", "small", "--noise-level", "0.02", "config", "save")
	require.NoError(t, err)
	assert.Equal(t, path+"\n", out)

	saved, err := config.LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "small", saved.Model)
	require.NotNil(t, saved.NoiseLevel)
	assert.Equal(t, 0.02, *saved.NoiseLevel)
}

func TestResolveReadsPlatformConfig(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("platform config lives under APPDATA")
	}
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))

	path := config.Path()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(`{"model":"tiny"}`), 0o600))

	c := newCLI(&bytes.Buffer{}, &bytes.Buffer{})
	root := c.command()
	require.NoError(t, root.ParseFlags(nil))
	require.NoError(t, c.resolve(root))
	assert.Equal(t, "tiny", c.cfg.Model)
}
