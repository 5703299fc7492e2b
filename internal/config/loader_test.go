package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/intervox/internal/config"
)

const fullYAML = `
server:
  listen_addr: ":9000"
  log_level: debug
  cors_origins: ["https://app.example.com"]
providers:
  llm:
    name: openai
    api_key: sk-test
    model: gpt-4o-mini
  stt:
    name: whisper
    base_url: http://localhost:8080
  tts:
    name: groq
    options:
      voice: Fritz-PlayAI
  tts_fallback:
    name: coqui
    base_url: http://localhost:5002
    options:
      timeout: 10s
audio:
  sample_rate: 16000
  frame_ms: 30
  vad_mode: 0
interview:
  session_minutes: 15
  silence_threshold: 1500ms
  min_speech: 500ms
storage:
  summary_dir: /var/lib/intervox
  audio_dir: /var/lib/intervox/audio
`

func TestLoadFromReader_Full(t *testing.T) {
	cfg, err := config.LoadFromReader(strings.NewReader(fullYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.ListenAddr != ":9000" || cfg.Server.LogLevel != config.LogDebug {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Providers.LLM.Model != "gpt-4o-mini" {
		t.Errorf("llm model = %q", cfg.Providers.LLM.Model)
	}
	if got := cfg.Providers.TTS.OptionString("voice", ""); got != "Fritz-PlayAI" {
		t.Errorf("tts voice = %q, want Fritz-PlayAI", got)
	}
	if cfg.Providers.TTS.Model != config.DefaultTTSModel {
		t.Errorf("tts model = %q, want default", cfg.Providers.TTS.Model)
	}
	if got := cfg.Providers.TTSFallback.OptionDuration("timeout", 0); got != 10*time.Second {
		t.Errorf("tts_fallback timeout = %v", got)
	}
	if cfg.Audio.FrameMs != 30 || *cfg.Audio.VADMode != 0 {
		t.Errorf("audio = frame %d, mode %d", cfg.Audio.FrameMs, *cfg.Audio.VADMode)
	}
	iv := cfg.Interview
	if iv.SessionMinutes != 15 || iv.SilenceThreshold != 1500*time.Millisecond || iv.MinSpeech != 500*time.Millisecond {
		t.Errorf("interview = %+v", iv)
	}
	if iv.MaxSilenceGap != config.DefaultMaxSilenceGap {
		t.Errorf("max_silence_gap = %v, want default", iv.MaxSilenceGap)
	}
	if cfg.Storage.AudioDir != "/var/lib/intervox/audio" {
		t.Errorf("audio_dir = %q", cfg.Storage.AudioDir)
	}
}

func TestLoadFromReader_EmptyUsesDefaults(t *testing.T) {
	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.ListenAddr != config.DefaultListenAddr {
		t.Errorf("listen_addr = %q", cfg.Server.ListenAddr)
	}
	p := cfg.Providers
	if p.LLM.Name != "groq" || p.LLM.Model != config.DefaultLLMModel {
		t.Errorf("llm = %+v", p.LLM)
	}
	if p.STT.Model != config.DefaultSTTModel {
		t.Errorf("stt model = %q", p.STT.Model)
	}
	if p.TTS.OptionString("voice", "") != config.DefaultTTSVoice {
		t.Errorf("tts voice = %v", p.TTS.Options)
	}
	if p.TTSFallback.Configured() || p.STTFallback.Configured() {
		t.Error("fallbacks should be unset by default")
	}
	iv := cfg.Interview
	want := config.InterviewConfig{
		SessionMinutes:   10,
		SilenceThreshold: time.Second,
		MinSpeech:        800 * time.Millisecond,
		MaxSilenceGap:    3 * time.Second,
		RetryAttempts:    2,
		RetryBackoff:     time.Second,
		MaxTTSChars:      500,
		SummaryTimeout:   30 * time.Second,
		HistoryTurns:     3,
		PollInterval:     100 * time.Millisecond,
	}
	if iv != want {
		t.Errorf("interview = %+v, want %+v", iv, want)
	}
	if *cfg.Audio.VADMode != 2 || cfg.Audio.SampleRate != 16000 || cfg.Audio.FrameMs != 20 {
		t.Errorf("audio = %+v", cfg.Audio)
	}
}

func TestLoadFromReader_ExpandsEnv(t *testing.T) {
	t.Setenv("INTERVOX_TEST_SECRET", "s3cret")
	cfg, err := config.LoadFromReader(strings.NewReader("server:\n  auth_secret: ${INTERVOX_TEST_SECRET}\n"))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.AuthSecret != "s3cret" {
		t.Errorf("auth_secret = %q", cfg.Server.AuthSecret)
	}
}

func TestLoadFromReader_GroqKeyFromEnv(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk-env")
	cfg, err := config.LoadFromReader(strings.NewReader(`
providers:
  llm:
    name: openai
    base_url: https://api.groq.com/openai/v1
  stt:
    name: deepgram
    api_key: dg-key
`))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Providers.LLM.APIKey != "gsk-env" {
		t.Errorf("llm api_key = %q, want env key via groq base_url", cfg.Providers.LLM.APIKey)
	}
	if cfg.Providers.STT.APIKey != "dg-key" {
		t.Errorf("stt api_key = %q, must not be overwritten", cfg.Providers.STT.APIKey)
	}
	if cfg.Providers.TTS.APIKey != "gsk-env" {
		t.Errorf("tts api_key = %q", cfg.Providers.TTS.APIKey)
	}
}

func TestLoadFromReader_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"bad log level", "server:\n  log_level: loud\n", "server.log_level"},
		{"bad sample rate", "audio:\n  sample_rate: 44100\n", "audio.sample_rate"},
		{"bad frame", "audio:\n  frame_ms: 25\n", "audio.frame_ms"},
		{"bad vad mode", "audio:\n  vad_mode: 4\n", "audio.vad_mode"},
		{"negative gap", "interview:\n  max_silence_gap: -1s\n", "interview.max_silence_gap"},
		{"unknown field", "interview:\n  pause: 3\n", "pause"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.LoadFromReader(strings.NewReader(tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromReader_JoinsErrors(t *testing.T) {
	_, err := config.LoadFromReader(strings.NewReader("server:\n  log_level: loud\naudio:\n  frame_ms: 25\n"))
	if err == nil {
		t.Fatal("expected error")
	}
	var joined interface{ Unwrap() []error }
	if !errors.As(err, &joined) || len(joined.Unwrap()) != 2 {
		t.Fatalf("err = %v, want 2 joined errors", err)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Interview.SessionMinutes != config.DefaultSessionMinutes {
		t.Errorf("session_minutes = %d", cfg.Interview.SessionMinutes)
	}
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intervox.yaml")
	if err := os.WriteFile(path, []byte(fullYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.ListenAddr != ":9000" {
		t.Errorf("listen_addr = %q", cfg.Server.ListenAddr)
	}
}

func TestProviderEntry_Options(t *testing.T) {
	t.Parallel()
	e := config.ProviderEntry{Options: map[string]any{
		"speed": 1.25, "n": 3, "s": "0.5", "bad": "x", "dur": "2s", "num": 7,
	}}
	if got := e.OptionFloat("speed", 0); got != 1.25 {
		t.Errorf("speed = %v", got)
	}
	if got := e.OptionFloat("n", 0); got != 3 {
		t.Errorf("n = %v", got)
	}
	if got := e.OptionFloat("s", 0); got != 0.5 {
		t.Errorf("s = %v", got)
	}
	if got := e.OptionFloat("bad", 9); got != 9 {
		t.Errorf("bad = %v", got)
	}
	if got := e.OptionDuration("dur", 0); got != 2*time.Second {
		t.Errorf("dur = %v", got)
	}
	if got := e.OptionString("num", ""); got != "7" {
		t.Errorf("num = %q", got)
	}
	if got := e.OptionString("missing", "def"); got != "def" {
		t.Errorf("missing = %q", got)
	}
}
