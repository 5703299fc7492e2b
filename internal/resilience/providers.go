package resilience

import (
	"context"

	"github.com/MrWong99/intervox/pkg/provider/llm"
	"github.com/MrWong99/intervox/pkg/provider/stt"
	"github.com/MrWong99/intervox/pkg/provider/tts"
)

// STTGroup is an [stt.Provider] that fails over across its members.
type STTGroup struct{ *Group[stt.Provider] }

// NewSTTGroup returns an STTGroup with primary as its first member.
func NewSTTGroup(name string, primary stt.Provider, cfg BreakerConfig) *STTGroup {
	return &STTGroup{NewGroup(name, primary, cfg)}
}

// Transcribe implements stt.Provider.
func (g *STTGroup) Transcribe(ctx context.Context, pcm []byte, sampleRate int) (string, error) {
	return Do(ctx, g.Group, func(ctx context.Context, p stt.Provider) (string, error) {
		return p.Transcribe(ctx, pcm, sampleRate)
	})
}

// LLMGroup is an [llm.Provider] that fails over across its members.
type LLMGroup struct{ *Group[llm.Provider] }

// NewLLMGroup returns an LLMGroup with primary as its first member.
func NewLLMGroup(name string, primary llm.Provider, cfg BreakerConfig) *LLMGroup {
	return &LLMGroup{NewGroup(name, primary, cfg)}
}

// Complete implements llm.Provider.
func (g *LLMGroup) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return Do(ctx, g.Group, func(ctx context.Context, p llm.Provider) (*llm.CompletionResponse, error) {
		return p.Complete(ctx, req)
	})
}

// TTSGroup is a [tts.Provider] that fails over across its members.
type TTSGroup struct{ *Group[tts.Provider] }

// NewTTSGroup returns a TTSGroup with primary as its first member.
func NewTTSGroup(name string, primary tts.Provider, cfg BreakerConfig) *TTSGroup {
	return &TTSGroup{NewGroup(name, primary, cfg)}
}

// Synthesize implements tts.Provider.
func (g *TTSGroup) Synthesize(ctx context.Context, text string) (tts.Audio, error) {
	return Do(ctx, g.Group, func(ctx context.Context, p tts.Provider) (tts.Audio, error) {
		return p.Synthesize(ctx, text)
	})
}

var (
	_ stt.Provider = (*STTGroup)(nil)
	_ llm.Provider = (*LLMGroup)(nil)
	_ tts.Provider = (*TTSGroup)(nil)
)
