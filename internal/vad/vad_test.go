package vad

import (
	"context"
	"io"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/petems/whisper-dictate/internal/audio"
)

var testFormat = audio.Format{SampleRate: 44100, FrameSize: 4, Channels: 1, SampleWidth: 2}

// scriptedReader replays frames with the given volumes, then returns io.EOF.
type scriptedReader struct {
	volumes []float64
	next    int
}

func (r *scriptedReader) ReadFrame(ctx context.Context) (audio.Frame, error) {
	if err := ctx.Err(); err != nil {
		return audio.Frame{}, err
	}
	if r.next >= len(r.volumes) {
		return audio.Frame{}, io.EOF
	}
	v := r.volumes[r.next]
	r.next++
	return frameWithVolume(r.next, v), nil
}

// frameWithVolume tags the payload with its index so ordering is checkable.
func frameWithVolume(index int, volume float64) audio.Frame {
	pcm := make([]byte, testFormat.FrameBytes())
	pcm[0] = byte(index)
	return audio.Frame{PCM: pcm, Volume: volume}
}

func TestCalibrateReturnsScaledMaximum(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	volumes := make([]float64, 20)
	var loudest float64
	for i := range volumes {
		volumes[i] = rng.Float64() * 0.01
		if volumes[i] > loudest {
			loudest = volumes[i]
		}
	}

	threshold, err := Calibrate(context.Background(), &scriptedReader{volumes: volumes}, 10)
	require.NoError(t, err)
	require.Equal(t, loudest*4, threshold)

	again, err := Calibrate(context.Background(), &scriptedReader{volumes: volumes}, 10)
	require.NoError(t, err)
	require.Equal(t, threshold, again)
}

func TestCalibrateReadsTwiceTheWindow(t *testing.T) {
	r := &scriptedReader{volumes: make([]float64, 30)}
	_, err := Calibrate(context.Background(), r, 5)
	require.NoError(t, err)
	require.Equal(t, 10, r.next)
}

func TestCalibrateShortStream(t *testing.T) {
	_, err := Calibrate(context.Background(), &scriptedReader{volumes: []float64{0.01}}, 5)
	require.ErrorIs(t, err, io.EOF)
}

func TestCalibrateRejectsEmptyWindow(t *testing.T) {
	_, err := Calibrate(context.Background(), &scriptedReader{}, 0)
	require.Error(t, err)
}
