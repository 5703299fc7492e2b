package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/MrWong99/intervox/internal/config"
	"github.com/MrWong99/intervox/pkg/provider/llm"
	llmmock "github.com/MrWong99/intervox/pkg/provider/llm/mock"
	"github.com/MrWong99/intervox/pkg/provider/stt"
	sttmock "github.com/MrWong99/intervox/pkg/provider/stt/mock"
	"github.com/MrWong99/intervox/pkg/provider/tts"
	ttsmock "github.com/MrWong99/intervox/pkg/provider/tts/mock"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "missing.env")))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestTokenCommand(t *testing.T) {
	path := writeConfig(t, "server:\n  auth_secret: s3cret\n")
	out, err := execute(t, "token", "alice", "--ttl", "1h", "--config", path)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	tok, err := jwt.Parse(strings.TrimSpace(out), func(*jwt.Token) (any, error) { return []byte("s3cret"), nil })
	if err != nil || !tok.Valid {
		t.Fatalf("minted token invalid: %v", err)
	}
	if sub, _ := tok.Claims.GetSubject(); sub != "alice" {
		t.Errorf("subject = %q, want alice", sub)
	}
	exp, _ := tok.Claims.GetExpirationTime()
	if exp == nil || time.Until(exp.Time) > time.Hour+time.Minute {
		t.Errorf("exp = %v, want about an hour", exp)
	}
}

func TestTokenCommand_NoSecret(t *testing.T) {
	_, err := execute(t, "token", "alice", "--config", writeConfig(t, ""))
	if err == nil || !strings.Contains(err.Error(), "auth_secret") {
		t.Errorf("err = %v, want missing auth_secret", err)
	}
}

func TestTokenCommand_RequiresSubject(t *testing.T) {
	if _, err := execute(t, "token", "--config", writeConfig(t, "")); err == nil {
		t.Error("token without subject succeeded")
	}
}

func TestCheckCommand_InvalidConfig(t *testing.T) {
	path := writeConfig(t, "audio:\n  frame_ms: 25\n")
	if _, err := execute(t, "check", "--config", path); err == nil {
		t.Error("check accepted frame_ms 25")
	}
}

func TestWriteStartupSummary(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Storage.PostgresDSN = "postgres://localhost/intervox"

	var buf bytes.Buffer
	writeStartupSummary(&buf, cfg)
	out := buf.String()
	for _, want := range []string{"groq / llama-3.3-7…", "(not configured)", "file + postgres", "(disabled)", ":8000"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
	for i, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if n := len([]rune(line)); n != 41 {
			t.Errorf("line %d is %d runes wide: %q", i, n, line)
		}
	}
}

func TestBuildProviders(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()
	reg.RegisterLLM("fake", func(config.ProviderEntry) (llm.Provider, error) { return &llmmock.Provider{}, nil })
	reg.RegisterSTT("fake", func(config.ProviderEntry) (stt.Provider, error) { return &sttmock.Provider{}, nil })
	reg.RegisterSTT("broken", func(config.ProviderEntry) (stt.Provider, error) { return nil, errors.New("no creds") })
	reg.RegisterTTS("fake", func(config.ProviderEntry) (tts.Provider, error) { return &ttsmock.Provider{}, nil })

	cfg := &config.Config{}
	cfg.Providers.LLM.Name = "fake"
	cfg.Providers.STT.Name = "fake"
	cfg.Providers.TTS.Name = "fake"
	cfg.Providers.STTFallback.Name = "broken"
	cfg.Providers.TTSFallback.Name = "fake"

	ps, err := buildProviders(cfg, reg)
	if err != nil {
		t.Fatalf("buildProviders: %v", err)
	}
	if ps.LLM == nil || ps.STT == nil || ps.TTS == nil {
		t.Errorf("primaries missing: %+v", ps)
	}
	if ps.STTFallback != nil {
		t.Error("broken stt fallback was kept")
	}
	if ps.TTSFallback == nil {
		t.Error("tts fallback missing")
	}

	cfg.Providers.TTS.Name = "nope"
	if _, err := buildProviders(cfg, reg); err == nil || !strings.Contains(err.Error(), `unknown tts provider "nope"`) {
		t.Errorf("err = %v, want unknown tts provider", err)
	}
}

func TestBaseURL(t *testing.T) {
	t.Parallel()
	const groq = "https://api.groq.com/openai/v1"
	tests := []struct {
		entry config.ProviderEntry
		want  string
	}{
		{config.ProviderEntry{Name: "groq"}, groq},
		{config.ProviderEntry{Name: "groq", BaseURL: "http://proxy"}, "http://proxy"},
		{config.ProviderEntry{Name: "openai"}, ""},
		{config.ProviderEntry{Name: "openai", BaseURL: "http://local"}, "http://local"},
	}
	for _, tt := range tests {
		if got := baseURL(tt.entry, groq); got != tt.want {
			t.Errorf("baseURL(%+v) = %q, want %q", tt.entry, got, tt.want)
		}
	}
}
