package transcribe

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func pcmOf(samples []int16) []byte {
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(s))
	}
	return pcm
}

func TestResamplePassthroughAtEngineRate(t *testing.T) {
	got, err := Resample(pcmOf([]int16{0, 16384, -32768, 32767}), SampleRate)
	require.NoError(t, err)
	require.Equal(t, []float32{0, 0.5, -1, float32(32767.0 / 32768.0)}, got)
}

func TestResampleDownsamplesCaptureRate(t *testing.T) {
	const rate = 44100
	samples := make([]int16, rate) // one second of a 440 Hz tone
	for i := range samples {
		samples[i] = int16(8000 * math.Sin(2*math.Pi*440*float64(i)/rate))
	}

	got, err := Resample(pcmOf(samples), rate)
	require.NoError(t, err)
	require.InDelta(t, SampleRate, len(got), 32)
	for _, s := range got {
		require.LessOrEqual(t, s, float32(1))
		require.GreaterOrEqual(t, s, float32(-1))
	}
}

func TestResampleKeepsTail(t *testing.T) {
	const rate = 44100
	// half a second of silence, then a tone that runs to the last sample,
	// as in an utterance cut at the length cap mid-word
	samples := make([]int16, rate)
	for i := rate / 2; i < rate; i++ {
		samples[i] = int16(8000 * math.Sin(2*math.Pi*440*float64(i)/rate))
	}

	got, err := Resample(pcmOf(samples), rate)
	require.NoError(t, err)
	require.Greater(t, len(got), SampleRate-32)

	// the last 10ms of output must still carry the tone
	tail := got[len(got)-SampleRate/100:]
	require.Greater(t, rms(tail), 0.05)
}

func rms(samples []float32) float64 {
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

func TestResampleRejectsBadRate(t *testing.T) {
	_, err := Resample(pcmOf([]int16{1}), 0)
	require.Error(t, err)
}
