package deepgram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseResponse(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "transcript",
			in:   `{"results":{"channels":[{"alternatives":[{"transcript":" Hello world ","confidence":0.9}]}]}}`,
			want: "Hello world",
		},
		{name: "no channels", in: `{"results":{"channels":[]}}`, want: ""},
		{name: "no alternatives", in: `{"results":{"channels":[{"alternatives":[]}]}}`, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := parseResponse([]byte(tt.in))
			if err != nil {
				t.Fatalf("parseResponse: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
	if _, err := parseResponse([]byte("not json")); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestTranscribe(t *testing.T) {
	t.Parallel()
	var gotAuth, gotModel, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		gotModel = r.URL.Query().Get("model")
		_, _ = w.Write([]byte(`{"results":{"channels":[{"alternatives":[{"transcript":"sure thing"}]}]}}`))
	}))
	defer srv.Close()

	p, err := New("key-123", WithEndpoint(srv.URL), WithModel("nova-3"))
	if err != nil {
		t.Fatal(err)
	}
	text, err := p.Transcribe(context.Background(), make([]byte, 640), 16000)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "sure thing" {
		t.Errorf("text = %q", text)
	}
	if gotAuth != "Token key-123" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotType != "audio/wav" {
		t.Errorf("Content-Type = %q", gotType)
	}
	if gotModel != "nova-3" {
		t.Errorf("model = %q", gotModel)
	}
}

func TestNew_EmptyKey(t *testing.T) {
	t.Parallel()
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty API key")
	}
}
