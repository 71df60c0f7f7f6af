// Package audio owns the microphone and the PCM data model: fixed-size
// frames with their volume, and the utterances assembled from them.
package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/petems/whisper-dictate/internal/config"
)

// ErrClosed is returned by ReadFrame once the source has been closed.
var ErrClosed = errors.New("audio source closed")

// maxAmplitude is the magnitude of the most negative int16 sample.
const maxAmplitude = 1 << 15

// Source yields fixed-size frames from a capture device
type Source interface {
	// ReadFrame blocks until exactly one frame is available.
	ReadFrame(ctx context.Context) (Frame, error)
	Close() error
}

// Device represents an audio input device
type Device struct {
	ID      string
	Name    string
	Default bool
}

// Format is the immutable capture layout shared by every stage.
type Format struct {
	SampleRate  int
	FrameSize   int // samples per frame
	Channels    int
	SampleWidth int // bytes per sample
}

// NewFormat derives the mono 16-bit capture format from config.
func NewFormat(cfg config.AudioConfig) Format {
	return Format{
		SampleRate:  cfg.SampleRate,
		FrameSize:   cfg.FrameSize,
		Channels:    1,
		SampleWidth: 2,
	}
}

// FrameBytes is the size of one frame's PCM payload.
func (f Format) FrameBytes() int {
	return f.FrameSize * f.Channels * f.SampleWidth
}

func (f Format) FrameDuration() time.Duration {
	return time.Duration(f.FrameSize) * time.Second / time.Duration(f.SampleRate)
}

// FramesFor converts a duration in seconds to a whole number of frames,
// rounding down.
func (f Format) FramesFor(seconds float64) int {
	return int(float64(f.SampleRate) / float64(f.FrameSize) * seconds)
}

// Frame is one block of little-endian int16 PCM plus its volume.
type Frame struct {
	PCM    []byte
	Volume float64
}

// NewFrame wraps pcm and computes its volume.
func NewFrame(pcm []byte) Frame {
	return Frame{PCM: pcm, Volume: Volume(pcm)}
}

// Volume returns the RMS of 16-bit little-endian PCM normalized to [0,1].
func Volume(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sumSq float64
	for i := 0; i < n; i++ {
		s := float64(int16(binary.LittleEndian.Uint16(pcm[i*2:]))) / maxAmplitude
		sumSq += s * s
	}
	return math.Sqrt(sumSq / float64(n))
}

// Open acquires the configured capture device. The caller owns the returned
// Source and must Close it.
func Open(ctx context.Context, cfg config.AudioConfig, format Format) (Source, error) {
	switch cfg.Backend {
	case config.BackendPortAudio:
		return openPortAudio(cfg.DeviceID, format)
	case config.BackendPulse:
		return openPulse(ctx, cfg.DeviceID, format)
	default:
		return nil, fmt.Errorf("unknown audio backend %q", cfg.Backend)
	}
}

// ListDevices enumerates input devices for backend.
func ListDevices(ctx context.Context, backend string) ([]Device, error) {
	switch backend {
	case config.BackendPortAudio:
		return listPortAudioDevices()
	case config.BackendPulse:
		return listPulseDevices(ctx)
	default:
		return nil, fmt.Errorf("unknown audio backend %q", backend)
	}
}

func samplesToPCM(samples []int16) []byte {
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}
	return pcm
}
