package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm": {"groq", "openai", "anthropic", "gemini", "ollama", "deepseek", "mistral", "llamacpp", "llamafile"},
	"stt": {"groq", "openai", "whisper", "deepgram", "google"},
	"tts": {"groq", "openai", "elevenlabs", "gemini", "coqui"},
}

// Default values applied by [ApplyDefaults].
const (
	DefaultListenAddr       = ":8000"
	DefaultSampleRate       = 16000
	DefaultFrameMs          = 20
	DefaultVADMode          = 2
	DefaultQueueSize        = 500
	DefaultSessionMinutes   = 10
	DefaultSilenceThreshold = time.Second
	DefaultMinSpeech        = 800 * time.Millisecond
	DefaultMaxSilenceGap    = 3 * time.Second
	DefaultRetryAttempts    = 2
	DefaultRetryBackoff     = time.Second
	DefaultMaxTTSChars      = 500
	DefaultSummaryTimeout   = 30 * time.Second
	DefaultHistoryTurns     = 3
	DefaultPollInterval     = 100 * time.Millisecond
	DefaultServiceName      = "intervox"

	DefaultLLMModel = "llama-3.3-70b-versatile"
	DefaultSTTModel = "whisper-large-v3-turbo"
	DefaultTTSModel = "playai-tts"
	DefaultTTSVoice = "Aaliyah-PlayAI"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. A missing file is not an error: the defaults are returned, so
// the service runs with nothing but GROQ_API_KEY set.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Info("config file not found, using defaults", "path", path)
		return LoadFromReader(strings.NewReader(""))
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}
	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader expands ${VAR} references, decodes the YAML in r, applies
// defaults and environment keys, then validates the result.
func LoadFromReader(r io.Reader) (*Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}
	expanded := os.ExpandEnv(string(raw))

	cfg := &Config{}
	if strings.TrimSpace(expanded) != "" {
		dec := yaml.NewDecoder(strings.NewReader(expanded))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("config: decode yaml: %w", err)
		}
	}
	ApplyDefaults(cfg)
	ApplyEnv(cfg, os.Getenv)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills every zero field of cfg with its default.
func ApplyDefaults(cfg *Config) {
	s := &cfg.Server
	if s.ListenAddr == "" {
		s.ListenAddr = DefaultListenAddr
	}
	if s.LogLevel == "" {
		s.LogLevel = LogInfo
	}
	if len(s.CORSOrigins) == 0 {
		s.CORSOrigins = []string{"*"}
	}

	p := &cfg.Providers
	if p.LLM.Name == "" {
		p.LLM.Name = "groq"
	}
	if p.LLM.Model == "" && p.LLM.Name == "groq" {
		p.LLM.Model = DefaultLLMModel
	}
	if p.STT.Name == "" {
		p.STT.Name = "groq"
	}
	if p.STT.Model == "" && p.STT.Name == "groq" {
		p.STT.Model = DefaultSTTModel
	}
	if p.TTS.Name == "" {
		p.TTS.Name = "groq"
	}
	if p.TTS.Name == "groq" {
		if p.TTS.Model == "" {
			p.TTS.Model = DefaultTTSModel
		}
		if p.TTS.OptionString("voice", "") == "" {
			if p.TTS.Options == nil {
				p.TTS.Options = map[string]any{}
			}
			p.TTS.Options["voice"] = DefaultTTSVoice
		}
	}

	a := &cfg.Audio
	if a.SampleRate == 0 {
		a.SampleRate = DefaultSampleRate
	}
	if a.FrameMs == 0 {
		a.FrameMs = DefaultFrameMs
	}
	if a.VADMode == nil {
		m := DefaultVADMode
		a.VADMode = &m
	}
	if a.QueueSize == 0 {
		a.QueueSize = DefaultQueueSize
	}

	iv := &cfg.Interview
	if iv.SessionMinutes == 0 {
		iv.SessionMinutes = DefaultSessionMinutes
	}
	if iv.SilenceThreshold == 0 {
		iv.SilenceThreshold = DefaultSilenceThreshold
	}
	if iv.MinSpeech == 0 {
		iv.MinSpeech = DefaultMinSpeech
	}
	if iv.MaxSilenceGap == 0 {
		iv.MaxSilenceGap = DefaultMaxSilenceGap
	}
	if iv.RetryAttempts == 0 {
		iv.RetryAttempts = DefaultRetryAttempts
	}
	if iv.RetryBackoff == 0 {
		iv.RetryBackoff = DefaultRetryBackoff
	}
	if iv.MaxTTSChars == 0 {
		iv.MaxTTSChars = DefaultMaxTTSChars
	}
	if iv.SummaryTimeout == 0 {
		iv.SummaryTimeout = DefaultSummaryTimeout
	}
	if iv.HistoryTurns == 0 {
		iv.HistoryTurns = DefaultHistoryTurns
	}
	if iv.PollInterval == 0 {
		iv.PollInterval = DefaultPollInterval
	}

	if cfg.Storage.SummaryDir == "" {
		cfg.Storage.SummaryDir = "."
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = DefaultServiceName
	}
}

// ApplyEnv fills empty API keys of Groq-backed entries from GROQ_API_KEY.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	key := getenv("GROQ_API_KEY")
	if key == "" {
		return
	}
	for _, e := range cfg.Providers.entries() {
		if e.APIKey == "" && IsGroq(*e) {
			e.APIKey = key
		}
	}
}

// IsGroq reports whether e talks to Groq's API.
func IsGroq(e ProviderEntry) bool {
	return e.Name == "groq" || strings.Contains(e.BaseURL, "groq.com")
}

func (p *ProvidersConfig) entries() []*ProviderEntry {
	return []*ProviderEntry{&p.LLM, &p.STT, &p.STTFallback, &p.TTS, &p.TTSFallback}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("stt", cfg.Providers.STTFallback.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)
	validateProviderName("tts", cfg.Providers.TTSFallback.Name)

	for _, req := range []struct {
		path  string
		entry ProviderEntry
	}{
		{"providers.llm", cfg.Providers.LLM},
		{"providers.stt", cfg.Providers.STT},
		{"providers.tts", cfg.Providers.TTS},
	} {
		if !req.entry.Configured() {
			errs = append(errs, fmt.Errorf("%s.name is required", req.path))
		}
	}
	if cfg.Providers.LLM.APIKey == "" && IsGroq(cfg.Providers.LLM) {
		slog.Warn("no API key for the groq LLM; set GROQ_API_KEY or providers.llm.api_key")
	}

	a := cfg.Audio
	switch a.SampleRate {
	case 8000, 16000, 32000, 48000:
	default:
		errs = append(errs, fmt.Errorf("audio.sample_rate %d is invalid; valid values: 8000, 16000, 32000, 48000", a.SampleRate))
	}
	switch a.FrameMs {
	case 10, 20, 30:
	default:
		errs = append(errs, fmt.Errorf("audio.frame_ms %d is invalid; valid values: 10, 20, 30", a.FrameMs))
	}
	if a.VADMode != nil && (*a.VADMode < 0 || *a.VADMode > 3) {
		errs = append(errs, fmt.Errorf("audio.vad_mode %d is out of range [0, 3]", *a.VADMode))
	}
	if a.QueueSize < 0 {
		errs = append(errs, fmt.Errorf("audio.queue_size %d must not be negative", a.QueueSize))
	}

	iv := cfg.Interview
	if iv.SessionMinutes < 0 || iv.SessionMinutes > 120 {
		errs = append(errs, fmt.Errorf("interview.session_minutes %d is out of range [1, 120]", iv.SessionMinutes))
	}
	for _, d := range []struct {
		name string
		v    time.Duration
	}{
		{"silence_threshold", iv.SilenceThreshold},
		{"min_speech", iv.MinSpeech},
		{"max_silence_gap", iv.MaxSilenceGap},
		{"retry_backoff", iv.RetryBackoff},
		{"summary_timeout", iv.SummaryTimeout},
		{"poll_interval", iv.PollInterval},
	} {
		if d.v < 0 {
			errs = append(errs, fmt.Errorf("interview.%s %s must not be negative", d.name, d.v))
		}
	}
	if iv.RetryAttempts < 0 {
		errs = append(errs, fmt.Errorf("interview.retry_attempts %d must not be negative", iv.RetryAttempts))
	}
	if iv.MaxTTSChars < 0 {
		errs = append(errs, fmt.Errorf("interview.max_tts_chars %d must not be negative", iv.MaxTTSChars))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok || slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
