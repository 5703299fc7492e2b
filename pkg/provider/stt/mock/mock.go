// Package mock provides a test double for the stt.Provider interface.
//
// Responses are consumed in order; once the script is exhausted the last
// entry repeats. A zero-value Provider returns "", nil.
//
//	p := &mock.Provider{Responses: []mock.Response{{Text: "hello there"}}}
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/intervox/pkg/provider/stt"
)

// Response is one scripted Transcribe result.
type Response struct {
	Text string
	Err  error
}

// TranscribeCall records a single invocation of Transcribe.
type TranscribeCall struct {
	PCMLen     int
	SampleRate int
}

// Provider is a mock implementation of stt.Provider.
type Provider struct {
	mu sync.Mutex

	// Responses is the script of results returned in order.
	Responses []Response

	// Calls records every invocation of Transcribe in order.
	Calls []TranscribeCall

	next int
}

// Transcribe records the call and returns the next scripted response.
func (p *Provider) Transcribe(ctx context.Context, pcm []byte, sampleRate int) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, TranscribeCall{PCMLen: len(pcm), SampleRate: sampleRate})
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(p.Responses) == 0 {
		return "", nil
	}
	r := p.Responses[min(p.next, len(p.Responses)-1)]
	p.next++
	return r.Text, r.Err
}

// CallCount returns the number of Transcribe invocations.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

var _ stt.Provider = (*Provider)(nil)
