package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/petems/whisper-dictate/internal/audio"
	"github.com/petems/whisper-dictate/internal/handoff"
	"github.com/petems/whisper-dictate/internal/transcribe"
)

// Listen is the transcription loop: wait for the ready gate, then take one
// utterance at a time and print its text. A failed utterance is logged and
// skipped. It returns nil when ctx is cancelled.
func (a *App) Listen(ctx context.Context) error {
	if a.cfg.NoiseLevel == nil {
		a.log.Info().Msg("Waiting for noise level detection")
	}
	if err := a.handoff.WaitReady(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("wait for capture: %w", err)
	}
	a.log.Info().Msg("Press Ctrl+C to quit")

	for {
		u, err := a.handoff.Take(ctx)
		if errors.Is(err, handoff.ErrCorruptPayload) {
			a.log.Error().Err(err).Msg("Discarded unreadable utterance")
			a.status.SetError()
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("take utterance: %w", err)
		}
		a.handle(ctx, u)
	}
}

func (a *App) handle(ctx context.Context, u *audio.Utterance) {
	a.status.SetTranscribing()
	a.log.Debug().Int("frames", u.Frames).Dur("duration", u.Duration()).Msg("Transcribing utterance")

	start := time.Now()
	line, err := a.recognize(ctx, u)
	a.metrics.Transcribed(err, time.Since(start))
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		a.log.Error().Err(err).Msg("Transcription failed, skipping utterance")
		a.status.SetError()
		return
	}
	a.status.SetListening()

	if line == "" {
		a.log.Debug().Msg("No text recognized")
		return
	}
	fmt.Fprintln(a.out, line)

	if a.clip != nil {
		if err := a.clip.WriteAll(line); err != nil {
			a.log.Warn().Err(err).Msg("Failed to copy text to clipboard")
		}
	}
}

func (a *App) recognize(ctx context.Context, u *audio.Utterance) (string, error) {
	samples, err := transcribe.Resample(u.PCM, u.Format.SampleRate)
	if err != nil {
		return "", err
	}

	lang := a.cfg.PinnedLanguage()
	res, err := a.stt.Transcribe(ctx, transcribe.Request{
		Samples:  samples,
		Language: lang,
		Task:     transcribe.Task(a.cfg.Task),
	})
	if err != nil {
		return "", err
	}
	return FormatLine(res, lang == ""), nil
}

// FormatLine renders one output line, prefixed with "[lang] " when the
// language was detected rather than pinned.
func FormatLine(res transcribe.Result, tagLanguage bool) string {
	text := strings.TrimSpace(res.Text)
	if text == "" {
		return ""
	}
	if tagLanguage && res.Language != "" {
		return fmt.Sprintf("[%s] %s", res.Language, text)
	}
	return text
}
