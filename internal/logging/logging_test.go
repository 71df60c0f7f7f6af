package logging

import (
	"bytes"
	"os"
	"runtime"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	require.Equal(t, zerolog.InfoLevel, parseLevel(Options{}))
	require.Equal(t, zerolog.WarnLevel, parseLevel(Options{Level: "warn"}))
	require.Equal(t, zerolog.InfoLevel, parseLevel(Options{Level: "chatty"}))
	require.Equal(t, zerolog.DebugLevel, parseLevel(Options{Level: "error", Diag: true}))
}

func TestNewWithWriterFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, Options{Level: "info"})

	log.Debug().Msg("hidden")
	log.Info().Msg("detected noise level")

	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), "detected noise level")
}

func TestNewWithWriterAppendsToStateFile(t *testing.T) {
	if runtime.GOOS == "darwin" || runtime.GOOS == "windows" {
		t.Skip("log path ignores XDG_STATE_HOME on this platform")
	}
	t.Setenv("XDG_STATE_HOME", t.TempDir())

	var buf bytes.Buffer
	log := NewWithWriter(&buf, Options{File: true})
	log.Info().Msg("press Ctrl+C to quit")

	data, err := os.ReadFile(Path())
	require.NoError(t, err)
	require.Contains(t, string(data), "press Ctrl+C to quit")
}
