package audio

import (
	"encoding/binary"
	"testing"
)

func TestSamplesToPCMLittleEndian(t *testing.T) {
	input := []int16{0, 1, -1, 32767, -32768}
	got := samplesToPCM(input)

	if len(got) != len(input)*2 {
		t.Fatalf("expected %d bytes, got %d", len(input)*2, len(got))
	}
	for i, want := range input {
		s := int16(binary.LittleEndian.Uint16(got[i*2:]))
		if s != want {
			t.Fatalf("sample %d mismatch: expected %d, got %d", i, want, s)
		}
	}
}

func TestSamplesToPCMCopies(t *testing.T) {
	input := []int16{100, 200}
	got := samplesToPCM(input)
	input[0] = 0

	if s := int16(binary.LittleEndian.Uint16(got)); s != 100 {
		t.Fatalf("expected frame to be detached from the capture buffer, got %d", s)
	}
}
