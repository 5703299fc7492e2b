package speech_test

import (
	"context"
	"errors"
	"testing"

	"github.com/MrWong99/intervox/internal/resilience"
	"github.com/MrWong99/intervox/internal/speech"
	"github.com/MrWong99/intervox/pkg/provider/stt"
	"github.com/MrWong99/intervox/pkg/provider/stt/mock"
)

var noBackoff = resilience.Policy{Attempts: 2}

func TestIsFiller(t *testing.T) {
	t.Parallel()
	tests := []struct {
		text string
		want bool
	}{
		{"", true},
		{"   ", true},
		{"um", true},
		{"Uh", true},
		{"Thank you.", true},
		{"THANKS", true},
		{"thank you!", true},
		{"Thank you very much!", true},
		{"mm-hmm", true},
		{"hmm.", true},
		{"ok", true},
		{"...", true},
		{"thank yu", true},
		{"I have five years of Go experience.", false},
		{"yes", false},
		{"Thank you for asking, I led the migration.", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			t.Parallel()
			if got := speech.IsFiller(tt.text); got != tt.want {
				t.Errorf("IsFiller(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestTranscriber(t *testing.T) {
	t.Parallel()
	pcm := make([]byte, 640)

	tests := []struct {
		name      string
		responses []mock.Response
		pcm       []byte
		wantText  string
		wantOK    bool
		wantCalls int
	}{
		{"answer", []mock.Response{{Text: "  I design schemas.  "}}, pcm, "I design schemas.", true, 1},
		{"filler", []mock.Response{{Text: "Thank you."}}, pcm, "", false, 1},
		{"um", []mock.Response{{Text: "um"}}, pcm, "", false, 1},
		{"empty", []mock.Response{{Text: ""}}, pcm, "", false, 1},
		{"retry then ok", []mock.Response{{Err: errors.New("502")}, {Text: "Indexes help."}}, pcm, "Indexes help.", true, 2},
		{"retries exhausted", []mock.Response{{Err: errors.New("502")}}, pcm, "", false, 2},
		{"empty audio not retried", []mock.Response{{Err: stt.ErrEmptyAudio}}, pcm, "", false, 1},
		{"no pcm", nil, nil, "", false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := &mock.Provider{Responses: tt.responses}
			tr := speech.NewTranscriber(p, noBackoff)
			text, ok := tr.Transcribe(context.Background(), tt.pcm, 16000)
			if text != tt.wantText || ok != tt.wantOK {
				t.Errorf("Transcribe = %q, %v; want %q, %v", text, ok, tt.wantText, tt.wantOK)
			}
			if n := p.CallCount(); n != tt.wantCalls {
				t.Errorf("calls = %d, want %d", n, tt.wantCalls)
			}
		})
	}
}
