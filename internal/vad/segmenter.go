package vad

import (
	"context"
	"errors"
	"fmt"

	"github.com/petems/whisper-dictate/internal/audio"
)

type State string

const (
	StateWaiting   State = "waiting_for_speech"
	StateRecording State = "recording"
)

// SealReason records why an utterance was closed.
type SealReason string

const (
	SealSilence   SealReason = "silence"
	SealMaxLength SealReason = "max_length"
)

// Segment is a sealed utterance and the reason it ended.
type Segment struct {
	Utterance *audio.Utterance
	Reason    SealReason
}

type Config struct {
	Format    audio.Format
	Threshold float64
	// BreathFrames is how many consecutive silent frames end an utterance.
	BreathFrames int
	// MaxFrames force-seals an utterance at this length. Zero means no cap.
	MaxFrames int
	// OnTransition, if set, is called on every state change.
	OnTransition func(from, to State)
}

// Segmenter is the two-state speech detector. It is not safe for
// concurrent use; one capture loop owns it.
type Segmenter struct {
	cfg Config

	state   State
	silence int
	current *audio.Utterance
}

func NewSegmenter(cfg Config) (*Segmenter, error) {
	if cfg.BreathFrames < 0 {
		return nil, fmt.Errorf("breath frames must not be negative, got %d", cfg.BreathFrames)
	}
	if cfg.MaxFrames < 0 {
		return nil, fmt.Errorf("max frames must not be negative, got %d", cfg.MaxFrames)
	}
	if cfg.Threshold < 0 {
		return nil, fmt.Errorf("threshold must not be negative, got %g", cfg.Threshold)
	}
	return &Segmenter{cfg: cfg, state: StateWaiting}, nil
}

func (s *Segmenter) State() State {
	return s.state
}

// Feed advances the machine by one frame. It returns a non-nil Segment when
// the frame sealed an utterance; the machine is then back to waiting.
func (s *Segmenter) Feed(frame audio.Frame) *Segment {
	speech := frame.Volume >= s.cfg.Threshold

	switch s.state {
	case StateWaiting:
		if !speech {
			return nil
		}
		s.current = audio.NewUtterance(s.cfg.Format, frame)
		s.silence = 0
		s.transition(StateRecording)

	case StateRecording:
		s.current.Append(frame)
		if speech {
			s.silence = 0
		} else {
			s.silence++
		}
	}

	if s.silence >= s.cfg.BreathFrames {
		return s.seal(SealSilence)
	}
	if s.cfg.MaxFrames > 0 && s.current.Frames >= s.cfg.MaxFrames {
		return s.seal(SealMaxLength)
	}
	return nil
}

func (s *Segmenter) seal(reason SealReason) *Segment {
	seg := &Segment{Utterance: s.current, Reason: reason}
	s.current = nil
	s.silence = 0
	s.transition(StateWaiting)
	return seg
}

func (s *Segmenter) transition(to State) {
	from := s.state
	s.state = to
	if s.cfg.OnTransition != nil {
		s.cfg.OnTransition(from, to)
	}
}

// Run reads frames until ctx is done or the reader fails, handing every
// sealed segment to emit. emit may block; that is how backpressure reaches
// the capture loop. A cancelled context is reported as nil.
func (s *Segmenter) Run(ctx context.Context, r FrameReader, emit func(context.Context, *Segment) error) error {
	for {
		frame, err := r.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				return nil
			}
			return err
		}
		if seg := s.Feed(frame); seg != nil {
			if err := emit(ctx, seg); err != nil {
				if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
					return nil
				}
				return err
			}
		}
	}
}
