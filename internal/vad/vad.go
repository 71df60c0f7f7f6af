// Package vad classifies frames as speech or silence against a noise
// threshold and cuts the stream into utterances bounded by silence.
package vad

import (
	"context"
	"errors"
	"fmt"

	"github.com/petems/whisper-dictate/internal/audio"
)

// CalibrationFactor scales the loudest calibration frame into a threshold.
const CalibrationFactor = 4

// FrameReader is the part of audio.Source the detector needs.
type FrameReader interface {
	ReadFrame(ctx context.Context) (audio.Frame, error)
}

// Calibrate reads 2*windowFrames frames of (assumed) silence and returns
// the loudest observed volume times CalibrationFactor.
func Calibrate(ctx context.Context, r FrameReader, windowFrames int) (float64, error) {
	if windowFrames <= 0 {
		return 0, errors.New("calibration window must be at least one frame")
	}

	var loudest float64
	for i := 0; i < windowFrames*2; i++ {
		frame, err := r.ReadFrame(ctx)
		if err != nil {
			return 0, fmt.Errorf("calibrate noise level: %w", err)
		}
		if frame.Volume > loudest {
			loudest = frame.Volume
		}
	}
	return loudest * CalibrationFactor, nil
}
