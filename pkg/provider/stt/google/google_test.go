package google

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/speech/apiv1/speechpb"
)

func TestTranscribe_BuildsLinear16Request(t *testing.T) {
	t.Parallel()

	var got *speechpb.RecognizeRequest
	p := newProvider(func(_ context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
		got = req
		return &speechpb.RecognizeResponse{
			Results: []*speechpb.SpeechRecognitionResult{
				{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: "I worked on"}}},
				{Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: " payment systems "}}},
				{},
			},
		}, nil
	}, WithLanguage("en-GB"))

	text, err := p.Transcribe(context.Background(), make([]byte, 640), 16000)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "I worked on payment systems" {
		t.Errorf("text = %q", text)
	}
	cfg := got.GetConfig()
	if cfg.GetEncoding() != speechpb.RecognitionConfig_LINEAR16 {
		t.Errorf("encoding = %v", cfg.GetEncoding())
	}
	if cfg.GetSampleRateHertz() != 16000 || cfg.GetLanguageCode() != "en-GB" {
		t.Errorf("config = %v", cfg)
	}
	if len(got.GetAudio().GetContent()) != 640 {
		t.Errorf("content len = %d", len(got.GetAudio().GetContent()))
	}
}

func TestTranscribe_Error(t *testing.T) {
	t.Parallel()
	p := newProvider(func(context.Context, *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
		return nil, errors.New("unavailable")
	})
	if _, err := p.Transcribe(context.Background(), make([]byte, 2), 16000); err == nil {
		t.Fatal("expected error")
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close without client: %v", err)
	}
}
