package logging

import (
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/rs/zerolog"
)

// Options controls where diagnostics go. Recognized text is never logged.
type Options struct {
	Level string
	Diag  bool // forces debug level
	File  bool // also append JSON lines to Path()
}

// New creates a zerolog logger writing human-readable lines to stderr
func New(opts Options) zerolog.Logger {
	return NewWithWriter(os.Stderr, opts)
}

// NewWithWriter is New with an explicit console stream.
func NewWithWriter(console io.Writer, opts Options) zerolog.Logger {
	var out io.Writer = zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339}

	if opts.File {
		logPath := Path()
		if err := os.MkdirAll(filepath.Dir(logPath), 0755); err == nil {
			if logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644); err == nil {
				// Multi-writer: console + file
				out = zerolog.MultiLevelWriter(out, logFile)
			}
		}
	}

	return zerolog.New(out).Level(parseLevel(opts)).With().Timestamp().Logger()
}

func parseLevel(opts Options) zerolog.Level {
	if opts.Diag {
		return zerolog.DebugLevel
	}
	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil || opts.Level == "" {
		return zerolog.InfoLevel
	}
	return level
}

// Path returns platform-specific log file path
func Path() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Logs"
	case "windows":
		base = os.Getenv("LOCALAPPDATA")
	default:
		if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.local/state"
		}
	}

	return filepath.Join(base, "whisper-dictate", "whisper-dictate.log")
}
