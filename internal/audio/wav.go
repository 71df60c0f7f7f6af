package audio

import (
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrInvalidWAV is returned when a payload is not a mono 16-bit PCM WAV.
var ErrInvalidWAV = errors.New("invalid wav payload")

const wavFormatPCM = 1

// EncodeWAV writes u as a mono 16-bit PCM WAV file.
func EncodeWAV(w io.WriteSeeker, u *Utterance) error {
	enc := wav.NewEncoder(w, u.Format.SampleRate, u.Format.SampleWidth*8, u.Format.Channels, wavFormatPCM)

	samples := u.Samples()
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: u.Format.Channels, SampleRate: u.Format.SampleRate},
		Data:           data,
		SourceBitDepth: u.Format.SampleWidth * 8,
	}

	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("write wav samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}
	return nil
}

// DecodeWAV reads a payload written by EncodeWAV. frameSize restores the
// frame count, which the container does not carry.
func DecodeWAV(r io.ReadSeeker, frameSize int) (*Utterance, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrInvalidWAV
	}
	if dec.NumChans != 1 || dec.BitDepth != 16 {
		return nil, fmt.Errorf("%w: %d channels, %d bits", ErrInvalidWAV, dec.NumChans, dec.BitDepth)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("read wav samples: %w", err)
	}

	samples := make([]int16, len(buf.Data))
	for i, s := range buf.Data {
		samples[i] = int16(s)
	}

	u := &Utterance{
		Format: Format{
			SampleRate:  int(dec.SampleRate),
			FrameSize:   frameSize,
			Channels:    1,
			SampleWidth: 2,
		},
		PCM: samplesToPCM(samples),
	}
	if frameSize > 0 {
		u.Frames = (len(samples) + frameSize - 1) / frameSize
	}
	return u, nil
}
