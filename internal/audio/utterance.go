package audio

import (
	"encoding/binary"
	"time"
)

// Utterance is one contiguous speech span, trailing silence included.
type Utterance struct {
	Format Format
	Frames int
	PCM    []byte
}

// NewUtterance starts an utterance seeded with its first speech frame.
func NewUtterance(format Format, first Frame) *Utterance {
	u := &Utterance{
		Format: format,
		PCM:    make([]byte, 0, format.FrameBytes()*8),
	}
	u.Append(first)
	return u
}

func (u *Utterance) Append(f Frame) {
	u.PCM = append(u.PCM, f.PCM...)
	u.Frames++
}

// Duration is the audio length of the payload.
func (u *Utterance) Duration() time.Duration {
	bytesPerSecond := u.Format.SampleRate * u.Format.Channels * u.Format.SampleWidth
	if bytesPerSecond == 0 {
		return 0
	}
	return time.Duration(len(u.PCM)) * time.Second / time.Duration(bytesPerSecond)
}

// Samples decodes the payload into int16 samples.
func (u *Utterance) Samples() []int16 {
	out := make([]int16, len(u.PCM)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(u.PCM[i*2:]))
	}
	return out
}
