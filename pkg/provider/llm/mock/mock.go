// Package mock provides a test double for the llm.Provider interface.
//
// Use Provider in unit tests to verify the requests the dialogue layer builds
// and to feed controlled responses without a live backend.
//
//	p := &mock.Provider{
//	    Responses: []mock.Response{{Content: `{"evaluation":"ok","next_question":"Why?"}`}},
//	}
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/intervox/pkg/provider/llm"
)

// Response is one scripted Complete result.
type Response struct {
	Content string
	Err     error
}

// CompleteCall records a single invocation of Complete.
type CompleteCall struct {
	Req llm.CompletionRequest
}

// Provider is a mock implementation of llm.Provider. Responses are consumed
// in order; once exhausted the last one repeats. With no responses Complete
// returns an empty completion.
type Provider struct {
	mu sync.Mutex

	// Responses is the script of results returned in order.
	Responses []Response

	// Block, if set, makes Complete wait until ctx is done. Used to test
	// timeouts.
	Block bool

	// CompleteCalls records every invocation in order.
	CompleteCalls []CompleteCall

	next int
}

// Complete records the call and returns the next scripted response.
func (p *Provider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	p.CompleteCalls = append(p.CompleteCalls, CompleteCall{Req: req})
	block := p.Block
	var r Response
	if len(p.Responses) > 0 {
		r = p.Responses[min(p.next, len(p.Responses)-1)]
		p.next++
	}
	p.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if r.Err != nil {
		return nil, r.Err
	}
	return &llm.CompletionResponse{Content: r.Content}, nil
}

// Calls returns a snapshot of the recorded calls.
func (p *Provider) Calls() []CompleteCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]CompleteCall, len(p.CompleteCalls))
	copy(out, p.CompleteCalls)
	return out
}

// Ensure Provider implements llm.Provider at compile time.
var _ llm.Provider = (*Provider)(nil)
