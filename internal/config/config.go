// Package config provides the configuration schema, loader, hot-reload watcher
// and provider registry for the intervox interview service.
package config

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Level maps l to its slog level. Unknown values are treated as info.
func (l LogLevel) Level() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config is the root configuration structure. It is typically loaded from a
// YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	Audio     AudioConfig     `yaml:"audio"`
	Interview InterviewConfig `yaml:"interview"`
	Storage   StorageConfig   `yaml:"storage"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig holds network, logging and access settings for the HTTP API.
type ServerConfig struct {
	// ListenAddr is the TCP address the API listens on (e.g., ":8000").
	ListenAddr string `yaml:"listen_addr"`

	LogLevel LogLevel `yaml:"log_level"`

	// CORSOrigins lists allowed browser origins. "*" allows any.
	CORSOrigins []string `yaml:"cors_origins"`

	// AuthSecret enables HS256 bearer-token auth on the API when non-empty.
	AuthSecret string `yaml:"auth_secret"`
}

// ProvidersConfig selects the provider implementation for each stage. Each
// entry names a factory registered in the [Registry]. The fallback entries
// are optional.
type ProvidersConfig struct {
	LLM         ProviderEntry `yaml:"llm"`
	STT         ProviderEntry `yaml:"stt"`
	STTFallback ProviderEntry `yaml:"stt_fallback"`
	TTS         ProviderEntry `yaml:"tts"`
	TTSFallback ProviderEntry `yaml:"tts_fallback"`
}

// ProviderEntry is the configuration block shared by all provider kinds.
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "groq", "coqui").
	Name string `yaml:"name"`

	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default endpoint.
	BaseURL string `yaml:"base_url"`

	Model string `yaml:"model"`

	// Options holds provider-specific values such as "voice" or "language".
	Options map[string]any `yaml:"options"`
}

// Configured reports whether the entry names a provider.
func (e ProviderEntry) Configured() bool { return e.Name != "" }

// OptionString returns Options[key] as a string, or def when unset.
func (e ProviderEntry) OptionString(key, def string) string {
	v, ok := e.Options[key]
	if !ok || v == nil {
		return def
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// OptionFloat returns Options[key] as a float64, or def when unset or not
// numeric.
func (e ProviderEntry) OptionFloat(key string, def float64) float64 {
	switch v := e.Options[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// OptionDuration returns Options[key] parsed as a duration ("10s"), or def.
func (e ProviderEntry) OptionDuration(key string, def time.Duration) time.Duration {
	s, ok := e.Options[key].(string)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

// AudioConfig describes the capture format and voice activity detection.
type AudioConfig struct {
	SampleRate int `yaml:"sample_rate"`

	// FrameMs is the frame length fed to the VAD: 10, 20 or 30.
	FrameMs int `yaml:"frame_ms"`

	// VADMode is the detector aggressiveness, 0 (permissive) to 3 (strict).
	VADMode *int `yaml:"vad_mode"`

	// QueueSize bounds the capture queue in frames.
	QueueSize int `yaml:"queue_size"`

	// Device names the local capture device for the "local" command. Empty
	// selects the system default.
	Device string `yaml:"device"`
}

// InterviewConfig holds the turn-taking thresholds and session limits. It is
// hot-reloadable: changes apply to sessions created afterwards.
type InterviewConfig struct {
	SessionMinutes int `yaml:"session_minutes"`

	// SilenceThreshold is the trailing silence that closes an utterance.
	SilenceThreshold time.Duration `yaml:"silence_threshold"`

	// MinSpeech discards shorter utterances as noise.
	MinSpeech time.Duration `yaml:"min_speech"`

	// MaxSilenceGap is the idle time after a prompt before a nudge.
	MaxSilenceGap time.Duration `yaml:"max_silence_gap"`

	RetryAttempts int           `yaml:"retry_attempts"`
	RetryBackoff  time.Duration `yaml:"retry_backoff"`

	// MaxTTSChars truncates every spoken text.
	MaxTTSChars int `yaml:"max_tts_chars"`

	SummaryTimeout time.Duration `yaml:"summary_timeout"`

	// HistoryTurns is how many previous turns the generator sees.
	HistoryTurns int `yaml:"history_turns"`

	// PollInterval is the frame queue read timeout of the turn loop.
	PollInterval time.Duration `yaml:"poll_interval"`
}

// StorageConfig configures where finished interview records go.
type StorageConfig struct {
	// PostgresDSN enables the PostgreSQL record store when non-empty.
	PostgresDSN string `yaml:"postgres_dsn"`

	// SummaryDir receives one interview_summary_{id}.json per session.
	SummaryDir string `yaml:"summary_dir"`

	// AudioDir, when set, receives one WAV file per candidate turn.
	AudioDir string `yaml:"audio_dir"`
}

// TelemetryConfig configures metrics and error reporting.
type TelemetryConfig struct {
	// SentryDSN enables Sentry error reporting when non-empty.
	SentryDSN string `yaml:"sentry_dsn"`

	ServiceName string `yaml:"service_name"`

	Environment string `yaml:"environment"`
}
