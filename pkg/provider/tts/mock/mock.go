// Package mock provides a test double for the tts.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/intervox/pkg/provider/tts"
)

// Provider is a mock implementation of tts.Provider. Unless Err is set it
// returns 20 ms of silence per call at SampleRate (default 16000), or Audio
// verbatim when that is non-empty.
type Provider struct {
	mu sync.Mutex

	// Audio, if non-empty, is returned by every successful call.
	Audio tts.Audio

	// SampleRate of the generated silence when Audio is empty.
	SampleRate int

	// Err, if non-nil, is returned by every call.
	Err error

	// Panic, if non-nil, is raised inside Synthesize. Used to test that
	// callers release shared state on every exit path.
	Panic any

	// Texts records the text of every Synthesize call in order.
	Texts []string
}

// Synthesize records the call and returns the configured result.
func (p *Provider) Synthesize(ctx context.Context, text string) (tts.Audio, error) {
	p.mu.Lock()
	p.Texts = append(p.Texts, text)
	a, err, pv := p.Audio, p.Err, p.Panic
	rate := p.SampleRate
	p.mu.Unlock()

	if pv != nil {
		panic(pv)
	}
	if err != nil {
		return tts.Audio{}, err
	}
	if cerr := ctx.Err(); cerr != nil {
		return tts.Audio{}, cerr
	}
	if len(a.PCM) > 0 {
		return a, nil
	}
	if rate <= 0 {
		rate = 16000
	}
	return tts.Audio{PCM: make([]byte, rate/50*2), SampleRate: rate}, nil
}

// Calls returns a snapshot of the synthesised texts.
func (p *Provider) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.Texts))
	copy(out, p.Texts)
	return out
}

var _ tts.Provider = (*Provider)(nil)
