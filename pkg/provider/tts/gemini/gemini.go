// Package gemini provides a TTS provider backed by the Gemini API's native
// speech generation. Audio arrives as raw 16-bit PCM in the response's inline
// data, normally at 24 kHz.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"google.golang.org/genai"

	"github.com/MrWong99/intervox/pkg/provider/tts"
)

const (
	defaultModel = "gemini-2.5-flash-preview-tts"
	defaultVoice = "Kore"
	defaultRate  = 24000
)

type generateFunc func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// Option is a functional option for Provider.
type Option func(*Provider)

// WithModel overrides the speech model.
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithVoice selects a prebuilt voice (e.g. "Kore", "Puck").
func WithVoice(voice string) Option {
	return func(p *Provider) { p.voice = voice }
}

// Provider implements tts.Provider using Gemini speech generation.
type Provider struct {
	generate generateFunc
	model    string
	voice    string
}

// New creates a Provider authenticated with apiKey.
func New(ctx context.Context, apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("gemini tts: apiKey must not be empty")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini tts: create client: %w", err)
	}
	return newProvider(client.Models.GenerateContent, opts...), nil
}

func newProvider(fn generateFunc, opts ...Option) *Provider {
	p := &Provider{generate: fn, model: defaultModel, voice: defaultVoice}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Synthesize implements tts.Provider.
func (p *Provider) Synthesize(ctx context.Context, text string) (tts.Audio, error) {
	if strings.TrimSpace(text) == "" {
		return tts.Audio{}, tts.ErrEmptyText
	}
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: p.voice},
			},
		},
	}
	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}

	resp, err := p.generate(ctx, p.model, contents, cfg)
	if err != nil {
		return tts.Audio{}, fmt.Errorf("gemini tts: generate: %w", err)
	}
	return extractAudio(resp)
}

func extractAudio(resp *genai.GenerateContentResponse) (tts.Audio, error) {
	if resp == nil {
		return tts.Audio{}, errors.New("gemini tts: empty response")
	}
	out := tts.Audio{SampleRate: defaultRate}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, part := range c.Content.Parts {
			if part == nil || part.InlineData == nil {
				continue
			}
			if rate := rateFromMIME(part.InlineData.MIMEType); rate > 0 {
				out.SampleRate = rate
			}
			out.PCM = append(out.PCM, part.InlineData.Data...)
		}
		if len(out.PCM) > 0 {
			break
		}
	}
	if len(out.PCM) == 0 {
		return tts.Audio{}, errors.New("gemini tts: response contained no audio")
	}
	return out, nil
}

// rateFromMIME parses "audio/L16;codec=pcm;rate=24000".
func rateFromMIME(mime string) int {
	for _, field := range strings.Split(mime, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(field), "=")
		if ok && k == "rate" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
	}
	return 0
}

var _ tts.Provider = (*Provider)(nil)
