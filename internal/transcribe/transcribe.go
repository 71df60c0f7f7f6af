// Package transcribe turns utterance audio into text.
package transcribe

import "context"

// SampleRate is the rate the engine expects its float samples at.
const SampleRate = 16000

type Task string

const (
	TaskTranscribe Task = "transcribe"
	TaskTranslate  Task = "translate"
)

// Request is one utterance worth of mono audio.
type Request struct {
	Samples  []float32 // SampleRate Hz, normalized to [-1,1]
	Language string    // empty means detect
	Task     Task
}

type Result struct {
	Text string
	// Language is the detected code when Request.Language was empty,
	// otherwise the requested one.
	Language string
}

// Engine is a loaded speech-to-text model.
type Engine interface {
	Transcribe(ctx context.Context, req Request) (Result, error)
	Close() error
}
