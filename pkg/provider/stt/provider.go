// Package stt defines the Provider interface for batch Speech-to-Text backends.
//
// The interview pipeline transcribes one finished utterance at a time, so the
// contract is request/response: PCM in, text out. Streaming partials are not
// needed because the turn only advances once the candidate stops talking.
//
// Implementations must be safe for concurrent use.
package stt

import (
	"context"
	"errors"
)

// ErrEmptyAudio is returned when Transcribe is called with no PCM data.
var ErrEmptyAudio = errors.New("stt: empty audio")

// Provider is the abstraction over any batch STT backend.
type Provider interface {
	// Transcribe sends mono s16le PCM sampled at sampleRate and returns the
	// recognised text. An empty string with a nil error means the backend
	// heard nothing intelligible.
	//
	// Transport and API failures are returned as errors; callers decide on
	// retry and fallback.
	Transcribe(ctx context.Context, pcm []byte, sampleRate int) (string, error)
}

// Func adapts a plain function to [Provider].
type Func func(ctx context.Context, pcm []byte, sampleRate int) (string, error)

// Transcribe calls f.
func (f Func) Transcribe(ctx context.Context, pcm []byte, sampleRate int) (string, error) {
	return f(ctx, pcm, sampleRate)
}
