// Package tts defines the Provider interface for Text-to-Speech backends.
//
// The interviewer speaks one prompt at a time and must know when playback
// ends, so synthesis is request/response: text in, a complete PCM buffer out.
// Voice selection is part of each provider's construction, not of the call.
//
// Implementations must be safe for concurrent use.
package tts

import (
	"context"
	"errors"
	"time"

	"github.com/MrWong99/intervox/pkg/audio"
)

// ErrEmptyText is returned when Synthesize is called with blank text.
var ErrEmptyText = errors.New("tts: empty text")

// Audio is synthesised speech: mono s16le PCM at SampleRate.
type Audio struct {
	PCM        []byte
	SampleRate int
}

// Duration returns the playback length of a.
func (a Audio) Duration() time.Duration {
	return audio.PCMDuration(a.PCM, a.SampleRate)
}

// Provider is the abstraction over any TTS backend.
type Provider interface {
	// Synthesize renders text and returns the complete audio. Providers must
	// not return an empty PCM buffer with a nil error.
	Synthesize(ctx context.Context, text string) (Audio, error)
}

// FromWAV converts a WAV response body into mono [Audio], down-mixing stereo.
func FromWAV(wav []byte) (Audio, error) {
	w, err := audio.ParseWAV(wav)
	if err != nil {
		return Audio{}, err
	}
	if w.BitsPerSample != 16 {
		return Audio{}, errors.New("tts: only 16-bit WAV is supported")
	}
	pcm := w.PCM
	if w.Channels == 2 {
		pcm = audio.StereoToMono(pcm)
	}
	if len(pcm) == 0 {
		return Audio{}, errors.New("tts: WAV contains no audio")
	}
	return Audio{PCM: pcm, SampleRate: w.SampleRate}, nil
}
