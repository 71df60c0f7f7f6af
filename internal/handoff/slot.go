package handoff

import (
	"context"
	"sync"

	"github.com/petems/whisper-dictate/internal/audio"
)

var _ Channel = (*Slot)(nil)

// Slot is the in-process Channel: a capacity-one queue and a closed-channel
// ready gate.
type Slot struct {
	slot  chan *audio.Utterance
	ready chan struct{}
	once  sync.Once
}

func NewSlot() *Slot {
	return &Slot{
		slot:  make(chan *audio.Utterance, 1),
		ready: make(chan struct{}),
	}
}

func (s *Slot) Publish(ctx context.Context, u *audio.Utterance) error {
	if u == nil {
		return ErrNilUtterance
	}
	select {
	case s.slot <- u:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Slot) Take(ctx context.Context) (*audio.Utterance, error) {
	select {
	case u := <-s.slot:
		return u, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Slot) SignalReady() error {
	fired := false
	s.once.Do(func() {
		close(s.ready)
		fired = true
	})
	if !fired {
		return ErrAlreadyReady
	}
	return nil
}

func (s *Slot) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
