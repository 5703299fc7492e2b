// Package google provides an STT provider backed by Google Cloud
// Speech-to-Text (v1 synchronous Recognize).
//
// Credentials are resolved by the client library (GOOGLE_APPLICATION_CREDENTIALS
// or workload identity). Synchronous recognition accepts up to one minute of
// audio, which comfortably covers a single interview answer.
package google

import (
	"context"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"

	"github.com/MrWong99/intervox/pkg/provider/stt"
)

type recognizeFunc func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error)

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithLanguage sets the BCP-47 language code. Defaults to "en-US".
func WithLanguage(lang string) Option {
	return func(p *Provider) {
		if lang != "" {
			p.language = lang
		}
	}
}

// WithModel selects a recognition model such as "latest_long".
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// Provider implements stt.Provider using Google Cloud Speech.
type Provider struct {
	client    *speech.Client
	recognize recognizeFunc
	language  string
	model     string
}

// New creates a Google Cloud Speech client.
func New(ctx context.Context, opts ...Option) (*Provider, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("google stt: create client: %w", err)
	}
	p := newProvider(func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
		return client.Recognize(ctx, req)
	}, opts...)
	p.client = client
	return p, nil
}

func newProvider(fn recognizeFunc, opts ...Option) *Provider {
	p := &Provider{recognize: fn, language: "en-US"}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Transcribe implements stt.Provider.
func (p *Provider) Transcribe(ctx context.Context, pcm []byte, sampleRate int) (string, error) {
	if len(pcm) == 0 {
		return "", stt.ErrEmptyAudio
	}
	resp, err := p.recognize(ctx, p.buildRequest(pcm, sampleRate))
	if err != nil {
		return "", fmt.Errorf("google stt: recognize: %w", err)
	}
	return joinResults(resp), nil
}

// Close releases the underlying gRPC connection.
func (p *Provider) Close() error {
	if p.client == nil {
		return nil
	}
	return p.client.Close()
}

func (p *Provider) buildRequest(pcm []byte, sampleRate int) *speechpb.RecognizeRequest {
	return &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz:            int32(sampleRate),
			AudioChannelCount:          1,
			LanguageCode:               p.language,
			Model:                      p.model,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: pcm},
		},
	}
}

// joinResults concatenates the top alternative of each result. Google splits
// long audio into consecutive results.
func joinResults(resp *speechpb.RecognizeResponse) string {
	if resp == nil {
		return ""
	}
	var parts []string
	for _, r := range resp.GetResults() {
		alts := r.GetAlternatives()
		if len(alts) == 0 {
			continue
		}
		if t := strings.TrimSpace(alts[0].GetTranscript()); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

var _ stt.Provider = (*Provider)(nil)
