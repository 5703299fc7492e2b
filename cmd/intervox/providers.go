package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/MrWong99/intervox/internal/app"
	"github.com/MrWong99/intervox/internal/config"
	"github.com/MrWong99/intervox/pkg/provider/llm"
	"github.com/MrWong99/intervox/pkg/provider/llm/anyllm"
	oallm "github.com/MrWong99/intervox/pkg/provider/llm/openai"
	"github.com/MrWong99/intervox/pkg/provider/stt"
	"github.com/MrWong99/intervox/pkg/provider/stt/deepgram"
	"github.com/MrWong99/intervox/pkg/provider/stt/google"
	oastt "github.com/MrWong99/intervox/pkg/provider/stt/openai"
	"github.com/MrWong99/intervox/pkg/provider/stt/whisper"
	"github.com/MrWong99/intervox/pkg/provider/tts"
	"github.com/MrWong99/intervox/pkg/provider/tts/coqui"
	"github.com/MrWong99/intervox/pkg/provider/tts/elevenlabs"
	"github.com/MrWong99/intervox/pkg/provider/tts/gemini"
	oatts "github.com/MrWong99/intervox/pkg/provider/tts/openai"
)

// ── Provider wiring ───────────────────────────────────────────────────────────

// anyllmBackends are LLM providers reached through any-llm. groq and openai
// use the OpenAI SDK directly because JSON mode is needed for the turn reply.
var anyllmBackends = []string{"anthropic", "gemini", "deepseek", "mistral", "llamacpp", "llamafile"}

// baseURL returns the entry's endpoint, or def for Groq entries without one.
func baseURL(entry config.ProviderEntry, def string) string {
	if entry.BaseURL != "" {
		return entry.BaseURL
	}
	if entry.Name == "groq" {
		return def
	}
	return ""
}

// registerBuiltinProviders wires all built-in provider factories into reg.
// ctx is used by the SDK clients that dial at construction.
func registerBuiltinProviders(ctx context.Context, reg *config.Registry) {
	// ── LLM ───────────────────────────────────────────────────────────────────

	for _, name := range []string{"groq", "openai"} {
		reg.RegisterLLM(name, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []oallm.Option
			if u := baseURL(entry, oallm.GroqBaseURL); u != "" {
				opts = append(opts, oallm.WithBaseURL(u))
			}
			if d := entry.OptionDuration("timeout", 0); d > 0 {
				opts = append(opts, oallm.WithTimeout(d))
			}
			return oallm.New(entry.APIKey, entry.Model, opts...)
		})
	}

	// anthropic, gemini, deepseek, mistral, llamacpp and llamafile share the
	// same pattern: optional APIKey + optional BaseURL.
	for _, name := range anyllmBackends {
		reg.RegisterLLM(name, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(name, entry.Model, opts...)
		})
	}

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.RegisterLLM("ollama", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New("ollama", entry.Model, opts...)
	})

	// ── STT ───────────────────────────────────────────────────────────────────

	for _, name := range []string{"groq", "openai"} {
		reg.RegisterSTT(name, func(entry config.ProviderEntry) (stt.Provider, error) {
			var opts []oastt.Option
			if u := baseURL(entry, oastt.GroqBaseURL); u != "" {
				opts = append(opts, oastt.WithBaseURL(u))
			}
			if lang := entry.OptionString("language", ""); lang != "" {
				opts = append(opts, oastt.WithLanguage(lang))
			}
			if d := entry.OptionDuration("timeout", 0); d > 0 {
				opts = append(opts, oastt.WithTimeout(d))
			}
			return oastt.New(entry.APIKey, entry.Model, opts...)
		})
	}

	reg.RegisterSTT("google", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []google.Option
		if entry.Model != "" {
			opts = append(opts, google.WithModel(entry.Model))
		}
		if lang := entry.OptionString("language", ""); lang != "" {
			opts = append(opts, google.WithLanguage(lang))
		}
		return google.New(ctx, opts...)
	})

	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if lang := entry.OptionString("language", ""); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		return whisper.New(entry.BaseURL, opts...)
	})

	reg.RegisterSTT("deepgram", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []deepgram.Option
		if entry.Model != "" {
			opts = append(opts, deepgram.WithModel(entry.Model))
		}
		if lang := entry.OptionString("language", ""); lang != "" {
			opts = append(opts, deepgram.WithLanguage(lang))
		}
		if entry.BaseURL != "" {
			opts = append(opts, deepgram.WithEndpoint(entry.BaseURL))
		}
		return deepgram.New(entry.APIKey, opts...)
	})

	// ── TTS ───────────────────────────────────────────────────────────────────

	for _, name := range []string{"groq", "openai"} {
		reg.RegisterTTS(name, func(entry config.ProviderEntry) (tts.Provider, error) {
			var opts []oatts.Option
			if u := baseURL(entry, oatts.GroqBaseURL); u != "" {
				opts = append(opts, oatts.WithBaseURL(u))
			}
			if s := entry.OptionFloat("speed", 0); s > 0 {
				opts = append(opts, oatts.WithSpeed(s))
			}
			if d := entry.OptionDuration("timeout", 0); d > 0 {
				opts = append(opts, oatts.WithTimeout(d))
			}
			return oatts.New(entry.APIKey, entry.Model, entry.OptionString("voice", ""), opts...)
		})
	}

	reg.RegisterTTS("elevenlabs", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []elevenlabs.Option
		if entry.Model != "" {
			opts = append(opts, elevenlabs.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, elevenlabs.WithEndpoint(entry.BaseURL))
		}
		return elevenlabs.New(entry.APIKey, entry.OptionString("voice", ""), opts...)
	})

	reg.RegisterTTS("gemini", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []gemini.Option
		if entry.Model != "" {
			opts = append(opts, gemini.WithModel(entry.Model))
		}
		if v := entry.OptionString("voice", ""); v != "" {
			opts = append(opts, gemini.WithVoice(v))
		}
		return gemini.New(ctx, entry.APIKey, opts...)
	})

	reg.RegisterTTS("coqui", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []coqui.Option
		if lang := entry.OptionString("language", ""); lang != "" {
			opts = append(opts, coqui.WithLanguage(lang))
		}
		if sp := entry.OptionString("speaker", ""); sp != "" {
			opts = append(opts, coqui.WithSpeaker(sp))
		}
		if mode := entry.OptionString("api_mode", ""); mode != "" {
			opts = append(opts, coqui.WithAPIMode(coqui.APIMode(mode)))
		}
		return coqui.New(entry.BaseURL, opts...)
	})

	for _, kind := range []string{"llm", "stt", "tts"} {
		slog.Debug("registered providers", "kind", kind, "names", reg.Names(kind))
	}
}

// buildProviders instantiates all providers named in cfg using the registry
// and returns them in an [app.Providers] struct for the application to consume.
// The primary slots are required; a fallback that fails to build is skipped
// with a warning.
func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	pc := cfg.Providers
	ps := &app.Providers{}
	var err error

	if ps.LLM, err = create("llm", pc.LLM, reg.CreateLLM); err != nil {
		return nil, err
	}
	if ps.STT, err = create("stt", pc.STT, reg.CreateSTT); err != nil {
		return nil, err
	}
	if ps.TTS, err = create("tts", pc.TTS, reg.CreateTTS); err != nil {
		return nil, err
	}

	if pc.STTFallback.Configured() {
		if ps.STTFallback, err = create("stt fallback", pc.STTFallback, reg.CreateSTT); err != nil {
			slog.Warn("stt fallback disabled", "err", err)
		}
	}
	if pc.TTSFallback.Configured() {
		if ps.TTSFallback, err = create("tts fallback", pc.TTSFallback, reg.CreateTTS); err != nil {
			slog.Warn("tts fallback disabled", "err", err)
		}
	}
	return ps, nil
}

func create[T any](kind string, entry config.ProviderEntry, f func(config.ProviderEntry) (T, error)) (T, error) {
	p, err := f(entry)
	if errors.Is(err, config.ErrProviderNotRegistered) {
		var zero T
		return zero, fmt.Errorf("unknown %s provider %q", kind, entry.Name)
	}
	if err != nil {
		var zero T
		return zero, fmt.Errorf("create %s provider %q: %w", kind, entry.Name, err)
	}
	slog.Info("provider created", "kind", kind, "name", entry.Name, "model", entry.Model)
	return p, nil
}
