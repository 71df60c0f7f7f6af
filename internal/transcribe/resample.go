package transcribe

import (
	"encoding/binary"
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Resample converts mono 16-bit little-endian PCM captured at rate into
// float samples at SampleRate.
func Resample(pcm []byte, rate int) ([]float32, error) {
	n := len(pcm) / 2
	input := make([]float64, n)
	for i := 0; i < n; i++ {
		input[i] = float64(int16(binary.LittleEndian.Uint16(pcm[i*2:]))) / 32768.0
	}

	if rate == SampleRate {
		return toFloat32(input), nil
	}
	if rate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", rate)
	}

	r, err := resampling.New(&resampling.Config{
		InputRate:  float64(rate),
		OutputRate: float64(SampleRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}

	output, err := r.Process(input)
	if err != nil {
		return nil, fmt.Errorf("resample error: %w", err)
	}
	// Process keeps the filter delay line buffered; the tail only comes out on Flush.
	tail, err := r.Flush()
	if err != nil {
		return nil, fmt.Errorf("resample flush: %w", err)
	}
	return toFloat32(append(output, tail...)), nil
}

func toFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, s := range in {
		switch {
		case s > 1:
			s = 1
		case s < -1:
			s = -1
		}
		out[i] = float32(s)
	}
	return out
}
