package app

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/petems/whisper-dictate/internal/audio"
	"github.com/petems/whisper-dictate/internal/config"
	"github.com/petems/whisper-dictate/internal/handoff"
	"github.com/petems/whisper-dictate/internal/metrics"
	"github.com/petems/whisper-dictate/internal/transcribe"
)

// StatusUpdater is an interface for updating status (e.g., tray icon)
type StatusUpdater interface {
	SetCalibrating()
	SetListening()
	SetRecording()
	SetTranscribing()
	SetError()
}

// Clipboard receives a copy of every recognized line.
type Clipboard interface {
	WriteAll(text string) error
}

type Config struct {
	Handoff       handoff.Channel
	Transcriber   transcribe.Engine // only needed by Listen
	Config        *config.Config
	Logger        zerolog.Logger
	Output        io.Writer // recognized text, defaults to os.Stdout
	Metrics       *metrics.Metrics
	StatusUpdater StatusUpdater // Optional - can be nil
	Clipboard     Clipboard     // Optional - can be nil
}

// App runs the two halves of a dictation session: the capture unit that
// turns microphone frames into utterances, and the transcription loop that
// prints them. They share nothing but the handoff channel.
type App struct {
	handoff handoff.Channel
	stt     transcribe.Engine
	cfg     *config.Config
	format  audio.Format
	log     zerolog.Logger
	out     io.Writer
	metrics *metrics.Metrics
	status  StatusUpdater
	clip    Clipboard
}

func New(cfg Config) *App {
	a := &App{
		handoff: cfg.Handoff,
		stt:     cfg.Transcriber,
		cfg:     cfg.Config,
		format:  audio.NewFormat(cfg.Config.Audio),
		log:     cfg.Logger,
		out:     cfg.Output,
		metrics: cfg.Metrics,
		status:  cfg.StatusUpdater,
		clip:    cfg.Clipboard,
	}
	if a.out == nil {
		a.out = os.Stdout
	}
	if a.status == nil {
		a.status = nopStatus{}
	}
	return a
}

// Run drives capture and transcription concurrently until ctx is cancelled
// or either side fails. Cancellation is a clean exit.
func (a *App) Run(ctx context.Context, src audio.Source) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Capture(ctx, src) })
	g.Go(func() error { return a.Listen(ctx) })
	return g.Wait()
}

type nopStatus struct{}

func (nopStatus) SetCalibrating()  {}
func (nopStatus) SetListening()    {}
func (nopStatus) SetRecording()    {}
func (nopStatus) SetTranscribing() {}
func (nopStatus) SetError()        {}
