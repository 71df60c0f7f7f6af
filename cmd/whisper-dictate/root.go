package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/petems/whisper-dictate/internal/app"
	"github.com/petems/whisper-dictate/internal/audio"
	"github.com/petems/whisper-dictate/internal/config"
	"github.com/petems/whisper-dictate/internal/handoff"
	"github.com/petems/whisper-dictate/internal/logging"
	"github.com/petems/whisper-dictate/internal/metrics"
	"github.com/petems/whisper-dictate/internal/permissions"
	"github.com/petems/whisper-dictate/internal/transcribe"
	"github.com/petems/whisper-dictate/internal/tray"
)

// flagValues holds command-line overrides. Only flags the user actually set
// are applied on top of the config file.
type flagValues struct {
	configPath   string
	model        string
	language     string
	task         string
	noiseLevel   float64
	breathTime   float64
	maxUtterance float64
	diag         bool
	logLevel     string
	logFile      bool
	backend      string
	device       string
	sampleRate   int
	handoff      string
	clipboard    bool
	tray         bool
	metricsAddr  string
	threads      int
}

type cli struct {
	flags  flagValues
	cfg    *config.Config
	log    zerolog.Logger
	stdout io.Writer
	stderr io.Writer
}

func newCLI(stdout, stderr io.Writer) *cli {
	return &cli{stdout: stdout, stderr: stderr, log: zerolog.Nop()}
}

func (c *cli) command() *cobra.Command {
	root := &cobra.Command{
		Use:   "whisper-dictate",
		Short: "Local microphone dictation with whisper.cpp",
		Long: `whisper-dictate measures the room's background noise, then listens
continuously. Every utterance followed by a pause is transcribed and
printed to stdout as one line.

Examples:
  # Pin the language and keep a copy on the clipboard
  whisper-dictate --language en --clipboard

  # Skip calibration in a known environment
  whisper-dictate --noise-level 0.02

  # Run capture in a separate process
  whisper-dictate --handoff subprocess
`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.resolve(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.listen(cmd.Context())
		},
	}
	root.SetOut(c.stdout)
	root.SetErr(c.stderr)

	f := &c.flags
	pf := root.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "config file (default is "+config.Path()+")")
	pf.StringVar(&f.model, "model", "", "whisper model name or path to a ggml .bin file")
	pf.StringVar(&f.language, "language", "", `spoken language code, or "auto" to detect per utterance`)
	pf.StringVar(&f.task, "task", "", `"transcribe" or "translate" (to English)`)
	pf.Float64Var(&f.noiseLevel, "noise-level", 0, "fixed speech threshold in [0,1]; skips calibration")
	pf.Float64Var(&f.breathTime, "breath-time", 0, "seconds of silence that end an utterance")
	pf.Float64Var(&f.maxUtterance, "max-utterance", 0, "longest utterance in seconds before it is cut (0 disables)")
	pf.BoolVar(&f.diag, "diag", false, "verbose diagnostics on stderr")
	pf.StringVar(&f.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.BoolVar(&f.logFile, "log-file", false, "also write logs to "+logging.Path())
	pf.StringVar(&f.backend, "backend", "", `audio backend, "portaudio" or "pulse"`)
	pf.StringVar(&f.device, "device", "", "input device name (default device when empty)")
	pf.IntVar(&f.sampleRate, "sample-rate", 0, "capture sample rate in Hz")
	pf.StringVar(&f.handoff, "handoff", "", `"inprocess" or "subprocess"`)
	pf.BoolVar(&f.clipboard, "clipboard", false, "copy every line to the clipboard")
	pf.BoolVar(&f.tray, "tray", false, "show status in the system tray")
	pf.StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	pf.IntVar(&f.threads, "threads", 0, "whisper threads (0 auto-detects)")

	root.AddCommand(c.captureCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.devicesCommand())
	root.AddCommand(c.versionCommand())
	return root
}

// resolve loads the config file, applies flags the user set, validates the
// result and builds the logger.
func (c *cli) resolve(cmd *cobra.Command) error {
	var (
		cfg *config.Config
		err error
	)
	if c.flags.configPath == "" {
		cfg, err = config.Load()
	} else {
		cfg, err = config.LoadFrom(c.flags.configPath)
	}
	if err != nil {
		return err
	}
	c.applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	c.cfg = cfg
	c.log = logging.NewWithWriter(c.stderr, logging.Options{
		Level: cfg.LogLevel,
		Diag:  cfg.Diag,
		File:  cfg.LogFile,
	})
	return nil
}

func (c *cli) applyFlags(cmd *cobra.Command, cfg *config.Config) {
	f := &c.flags
	set := cmd.Flags().Changed

	if set("model") {
		cfg.Model = f.model
	}
	if set("language") {
		cfg.Language = f.language
	}
	if set("task") {
		cfg.Task = f.task
	}
	if set("noise-level") {
		v := f.noiseLevel
		cfg.NoiseLevel = &v
	}
	if set("breath-time") {
		cfg.BreathTime = f.breathTime
	}
	if set("max-utterance") {
		cfg.MaxUtterance = f.maxUtterance
	}
	if set("diag") {
		cfg.Diag = f.diag
	}
	if set("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if set("log-file") {
		cfg.LogFile = f.logFile
	}
	if set("backend") {
		cfg.Audio.Backend = f.backend
	}
	if set("device") {
		cfg.Audio.DeviceID = f.device
	}
	if set("sample-rate") {
		cfg.Audio.SampleRate = f.sampleRate
	}
	if set("handoff") {
		cfg.Handoff = f.handoff
	}
	if set("clipboard") {
		cfg.Clipboard = f.clipboard
	}
	if set("tray") {
		cfg.Tray = f.tray
	}
	if set("metrics-addr") {
		cfg.MetricsAddr = f.metricsAddr
	}
	if set("threads") {
		cfg.Whisper.Threads = f.threads
	}
}

// listen runs a dictation session until interrupted. An interrupt is a
// normal exit.
func (c *cli) listen(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, log := c.cfg, c.log
	if err := permissions.EnsureMicrophone(log); err != nil {
		return err
	}

	m := metrics.New()
	if cfg.MetricsAddr != "" {
		go func() {
			if err := m.Serve(ctx, cfg.MetricsAddr); err != nil {
				log.Error().Err(err).Str("addr", cfg.MetricsAddr).Msg("Metrics server failed")
			}
		}()
	}

	engine, err := transcribe.NewWhisper(ctx, cfg.Model, cfg.Whisper, log)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	defer engine.Close()

	opts := app.Config{
		Transcriber: engine,
		Config:      cfg,
		Logger:      log,
		Output:      c.stdout,
		Metrics:     m,
	}
	if cfg.Clipboard {
		opts.Clipboard = app.SystemClipboard{}
	}

	var ui *tray.UI
	if cfg.Tray {
		ui = tray.New(stop, Version, Commit, log)
		opts.StatusUpdater = ui
	}

	run := func(ctx context.Context) error {
		if cfg.Handoff == config.HandoffSubprocess {
			return c.runSubprocess(ctx, opts)
		}
		return c.runInProcess(ctx, opts)
	}

	log.Info().Str("version", Version).Msg("whisper-dictate starting")
	if ui == nil {
		return run(ctx)
	}

	// the tray owns the main goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx)
		stop()
	}()
	if err := ui.Run(ctx); err != nil {
		return err
	}
	return <-errCh
}

func (c *cli) runInProcess(ctx context.Context, opts app.Config) error {
	cfg := opts.Config
	src, err := audio.Open(ctx, cfg.Audio, audio.NewFormat(cfg.Audio))
	if err != nil {
		return err
	}
	defer src.Close()

	opts.Handoff = handoff.NewSlot()
	return app.New(opts).Run(ctx, src)
}

func (c *cli) runSubprocess(ctx context.Context, opts app.Config) error {
	cfg := opts.Config
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}

	dir, err := os.MkdirTemp("", "whisper-dictate-")
	if err != nil {
		return fmt.Errorf("create mailbox: %w", err)
	}
	defer os.RemoveAll(dir)

	box, err := handoff.NewMailbox(dir, cfg.Audio.FrameSize)
	if err != nil {
		return err
	}
	opts.Handoff = box

	child := app.CaptureProcess{
		Path: exe,
		Args: captureArgs(cfg, c.flags.configPath, dir),
	}
	if cfg.Diag {
		child.Stderr = c.stderr
	}
	return app.New(opts).RunWithProcess(ctx, child)
}

// captureArgs repeats the resolved capture settings for the child so it
// does not depend on the parent's flag parsing.
func captureArgs(cfg *config.Config, configPath, dir string) []string {
	args := []string{"capture", "--mailbox", dir}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	args = append(args,
		"--backend", cfg.Audio.Backend,
		"--device", cfg.Audio.DeviceID,
		"--sample-rate", strconv.Itoa(cfg.Audio.SampleRate),
		"--breath-time", strconv.FormatFloat(cfg.BreathTime, 'g', -1, 64),
		"--max-utterance", strconv.FormatFloat(cfg.MaxUtterance, 'g', -1, 64),
	)
	if cfg.NoiseLevel != nil {
		args = append(args, "--noise-level", strconv.FormatFloat(*cfg.NoiseLevel, 'g', -1, 64))
	}
	if cfg.Diag {
		args = append(args, "--diag")
	}
	return args
}
