package elevenlabs_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/coder/websocket"

	"github.com/MrWong99/intervox/pkg/provider/tts/elevenlabs"
)

// fakeServer accepts one stream, records the client messages and answers
// with the given responses once the flush message arrives.
type fakeServer struct {
	mu        sync.Mutex
	messages  []map[string]any
	path      string
	query     string
	responses []string
}

func (f *fakeServer) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.path, f.query = r.URL.Path, r.URL.RawQuery
		f.mu.Unlock()

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		defer conn.CloseNow()
		ctx := r.Context()
		for {
			_, raw, err := conn.Read(ctx)
			if err != nil {
				return
			}
			var m map[string]any
			_ = json.Unmarshal(raw, &m)
			f.mu.Lock()
			f.messages = append(f.messages, m)
			f.mu.Unlock()
			if m["text"] == "" {
				break
			}
		}
		for _, resp := range f.responses {
			if err := conn.Write(ctx, websocket.MessageText, []byte(resp)); err != nil {
				return
			}
		}
		conn.Close(websocket.StatusNormalClosure, "")
	}
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestSynthesize_CollectsChunks(t *testing.T) {
	t.Parallel()
	a := base64.StdEncoding.EncodeToString([]byte{1, 2, 3, 4})
	b := base64.StdEncoding.EncodeToString([]byte{5, 6})
	fs := &fakeServer{responses: []string{
		`{"audio":"` + a + `"}`,
		`{"audio":"` + b + `"}`,
		`{"isFinal":true}`,
	}}
	srv := httptest.NewServer(fs.handler(t))
	defer srv.Close()

	p, err := elevenlabs.New("xi-key", "voice-1", elevenlabs.WithEndpoint(wsURL(srv)), elevenlabs.WithModel("m1"))
	if err != nil {
		t.Fatal(err)
	}
	out, err := p.Synthesize(context.Background(), "Hello there.")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(out.PCM) != string([]byte{1, 2, 3, 4, 5, 6}) {
		t.Errorf("PCM = %v", out.PCM)
	}
	if out.SampleRate != 16000 {
		t.Errorf("SampleRate = %d", out.SampleRate)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.path != "/v1/text-to-speech/voice-1/stream-input" {
		t.Errorf("path = %q", fs.path)
	}
	if !strings.Contains(fs.query, "model_id=m1") || !strings.Contains(fs.query, "output_format=pcm_16000") {
		t.Errorf("query = %q", fs.query)
	}
	if len(fs.messages) != 3 {
		t.Fatalf("got %d messages, want 3", len(fs.messages))
	}
	if fs.messages[0]["xi_api_key"] != "xi-key" {
		t.Errorf("BOI message = %v", fs.messages[0])
	}
	if fs.messages[1]["text"] != "Hello there. " {
		t.Errorf("text message = %v", fs.messages[1])
	}
}

func TestSynthesize_ServerError(t *testing.T) {
	t.Parallel()
	fs := &fakeServer{responses: []string{`{"error":"quota exceeded"}`}}
	srv := httptest.NewServer(fs.handler(t))
	defer srv.Close()

	p, _ := elevenlabs.New("k", "v", elevenlabs.WithEndpoint(wsURL(srv)))
	_, err := p.Synthesize(context.Background(), "hi")
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("err = %v, want quota error", err)
	}
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()
	if _, err := elevenlabs.New("", "v"); err == nil {
		t.Error("expected error for empty key")
	}
	if _, err := elevenlabs.New("k", ""); err == nil {
		t.Error("expected error for empty voice")
	}
}
