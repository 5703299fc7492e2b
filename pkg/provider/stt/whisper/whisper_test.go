package whisper_test

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrWong99/intervox/pkg/audio"
	"github.com/MrWong99/intervox/pkg/provider/stt"
	"github.com/MrWong99/intervox/pkg/provider/stt/whisper"
)

// makeSpeechPCM returns n samples of a 440 Hz sine at amplitude 10000.
func makeSpeechPCM(n int) []byte {
	buf := make([]byte, n*2)
	for i := range n {
		s := int16(10000 * math.Sin(2*math.Pi*440*float64(i)/16000))
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

func TestNew_EmptyServerURL_ReturnsError(t *testing.T) {
	t.Parallel()
	if _, err := whisper.New(""); err == nil {
		t.Fatal("expected error for empty server URL")
	}
}

func TestTranscribe_SendsWAVAndFields(t *testing.T) {
	t.Parallel()

	var gotLang, gotModel string
	var gotWAV audio.WAV
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/inference" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotLang = r.FormValue("language")
		gotModel = r.FormValue("model")
		f, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(f)
		gotWAV, _ = audio.ParseWAV(data)
		_, _ = w.Write([]byte(`{"text":"  I have five years of Go experience. "}`))
	}))
	defer srv.Close()

	p, err := whisper.New(srv.URL+"/", whisper.WithLanguage("de"), whisper.WithModel("small"))
	if err != nil {
		t.Fatal(err)
	}
	text, err := p.Transcribe(context.Background(), makeSpeechPCM(1600), 16000)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "I have five years of Go experience." {
		t.Errorf("text = %q", text)
	}
	if gotLang != "de" || gotModel != "small" {
		t.Errorf("fields = %q/%q, want de/small", gotLang, gotModel)
	}
	if gotWAV.SampleRate != 16000 || len(gotWAV.PCM) != 3200 {
		t.Errorf("uploaded wav = %d Hz, %d bytes", gotWAV.SampleRate, len(gotWAV.PCM))
	}
}

func TestTranscribe_ServerError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p, _ := whisper.New(srv.URL)
	if _, err := p.Transcribe(context.Background(), makeSpeechPCM(160), 16000); err == nil {
		t.Fatal("expected error on HTTP 500")
	}
}

func TestTranscribe_EmptyAudio(t *testing.T) {
	t.Parallel()
	p, _ := whisper.New("http://127.0.0.1:1")
	if _, err := p.Transcribe(context.Background(), nil, 16000); !errors.Is(err, stt.ErrEmptyAudio) {
		t.Errorf("err = %v, want ErrEmptyAudio", err)
	}
}
