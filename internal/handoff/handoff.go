// Package handoff moves sealed utterances from the capture unit to the
// transcription loop one at a time.
//
// Every implementation holds at most one unconsumed utterance: Publish
// blocks while the slot is occupied and Take empties it. A separate one-shot
// ready gate tells the consumer that noise calibration has finished.
package handoff

import (
	"context"
	"errors"

	"github.com/petems/whisper-dictate/internal/audio"
)

var (
	// ErrAlreadyReady is returned by a second SignalReady.
	ErrAlreadyReady = errors.New("handoff: ready already signalled")
	// ErrNilUtterance is returned when publishing nothing.
	ErrNilUtterance = errors.New("handoff: nil utterance")
	// ErrCorruptPayload is returned by Take when the pending payload could
	// not be decoded. The payload is discarded and the slot is free again.
	ErrCorruptPayload = errors.New("handoff: corrupt payload")
)

// Channel is a single-slot, single-producer/single-consumer exchange.
type Channel interface {
	// Publish stores u once the slot is free. It never overwrites.
	Publish(ctx context.Context, u *audio.Utterance) error
	// Take blocks until an utterance is available and removes it.
	Take(ctx context.Context) (*audio.Utterance, error)
	// SignalReady opens the ready gate. It succeeds exactly once.
	SignalReady() error
	// WaitReady blocks until SignalReady has been called.
	WaitReady(ctx context.Context) error
}
