package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/petems/whisper-dictate/internal/audio"
	"github.com/petems/whisper-dictate/internal/metrics"
	"github.com/petems/whisper-dictate/internal/vad"
)

// noisyThreshold is the top of the useful noise-level range. A calibrated
// value above it usually means the room was not quiet.
const noisyThreshold = 0.2

// Capture is the capture unit: calibrate (unless a noise level is
// configured), open the ready gate, then segment frames and publish each
// utterance. It returns nil when ctx is cancelled.
func (a *App) Capture(ctx context.Context, src vad.FrameReader) error {
	reader := meteredReader{src: src, metrics: a.metrics}

	threshold, err := a.noiseThreshold(ctx, reader)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	a.metrics.SetThreshold(threshold)

	seg, err := vad.NewSegmenter(vad.Config{
		Format:       a.format,
		Threshold:    threshold,
		BreathFrames: a.breathFrames(),
		MaxFrames:    a.format.FramesFor(a.cfg.MaxUtterance),
		OnTransition: a.onTransition,
	})
	if err != nil {
		return err
	}

	if err := a.handoff.SignalReady(); err != nil {
		return fmt.Errorf("signal ready: %w", err)
	}
	a.status.SetListening()
	a.log.Debug().Msg("Waiting for speech")

	err = seg.Run(ctx, reader, a.publish)
	if err != nil && !errors.Is(err, audio.ErrClosed) {
		return fmt.Errorf("capture: %w", err)
	}
	return nil
}

func (a *App) breathFrames() int {
	return a.format.FramesFor(a.cfg.BreathTime)
}

func (a *App) noiseThreshold(ctx context.Context, r vad.FrameReader) (float64, error) {
	if a.cfg.NoiseLevel != nil {
		a.log.Info().Float64("noise_level", *a.cfg.NoiseLevel).Msg("Using configured noise level")
		return *a.cfg.NoiseLevel, nil
	}

	a.status.SetCalibrating()
	a.log.Info().Msg("Detecting noise level, stay quiet")

	window := a.breathFrames()
	if window < 1 {
		window = 1
	}
	threshold, err := vad.Calibrate(ctx, r, window)
	if err != nil {
		return 0, err
	}

	a.log.Info().Float64("noise_level", threshold).Msg("Detected noise level")
	if threshold > noisyThreshold {
		a.log.Warn().
			Float64("noise_level", threshold).
			Msg("Noise level is high, speech may go undetected; pass --noise-level to override")
	}
	return threshold, nil
}

func (a *App) publish(ctx context.Context, seg *vad.Segment) error {
	u := seg.Utterance
	a.metrics.UtteranceSealed(string(seg.Reason), u.Duration())
	a.log.Debug().
		Int("frames", u.Frames).
		Dur("duration", u.Duration()).
		Str("reason", string(seg.Reason)).
		Msg("Sealed utterance")

	start := time.Now()
	if err := a.handoff.Publish(ctx, u); err != nil {
		return err
	}
	a.metrics.Published(time.Since(start))
	return nil
}

func (a *App) onTransition(_, to vad.State) {
	switch to {
	case vad.StateRecording:
		a.status.SetRecording()
		a.log.Debug().Msg("Speech detected")
	case vad.StateWaiting:
		a.status.SetListening()
		a.log.Debug().Msg("Waiting for speech")
	}
}

// meteredReader counts frames as they come off the device.
type meteredReader struct {
	src     vad.FrameReader
	metrics *metrics.Metrics
}

func (r meteredReader) ReadFrame(ctx context.Context) (audio.Frame, error) {
	f, err := r.src.ReadFrame(ctx)
	if err == nil {
		r.metrics.FrameRead()
	}
	return f, err
}
