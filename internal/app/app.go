// Package app wires the intervox subsystems into a running service.
//
// The App owns the full lifecycle: New wraps the configured providers in
// instrumentation and failover groups and opens the record stores, Run serves
// the HTTP/WebSocket API until its context ends, and Shutdown ends every open
// interview and releases the stores.
//
// For testing, inject doubles via functional options (WithStore,
// WithClassifier, ...). When an option is not provided, New builds the real
// implementation from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/intervox/internal/api"
	"github.com/MrWong99/intervox/internal/config"
	"github.com/MrWong99/intervox/internal/health"
	"github.com/MrWong99/intervox/internal/observe"
	"github.com/MrWong99/intervox/internal/resilience"
	"github.com/MrWong99/intervox/pkg/provider/llm"
	"github.com/MrWong99/intervox/pkg/provider/stt"
	"github.com/MrWong99/intervox/pkg/provider/tts"
	"github.com/MrWong99/intervox/pkg/provider/vad"
	"github.com/MrWong99/intervox/pkg/provider/vad/energy"
	"github.com/MrWong99/intervox/pkg/record"
	"github.com/MrWong99/intervox/pkg/record/file"
	"github.com/MrWong99/intervox/pkg/record/postgres"
)

// Providers holds one interface value per provider slot. Nil fallbacks mean
// none is configured. Populated by main.go via the config registry.
type Providers struct {
	LLM         llm.Provider
	STT         stt.Provider
	STTFallback stt.Provider
	TTS         tts.Provider
	TTSFallback tts.Provider
}

// keylessLLMs run locally and need no API key.
var keylessLLMs = []string{"ollama", "llamacpp", "llamafile"}

// App owns all subsystem lifetimes.
type App struct {
	cfg        *config.Config
	configPath string
	version    string
	logLevel   *slog.LevelVar

	metrics    *observe.Metrics
	classifier vad.Classifier
	store      record.Store
	health     *health.Handler

	llm         llm.Provider
	stt         stt.Provider
	tts         tts.Provider
	ttsFallback tts.Provider

	sessions *SessionManager

	// closers are called in order during Shutdown.
	closers  []func() error
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithStore injects a record store instead of opening the configured ones.
func WithStore(s record.Store) Option {
	return func(a *App) { a.store = s }
}

// WithClassifier injects a voice activity classifier instead of the energy
// detector.
func WithClassifier(c vad.Classifier) Option {
	return func(a *App) { a.classifier = c }
}

// WithMetrics sets the metrics sink. Default: [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithConfigPath enables hot reload of the interview settings from path
// while Run is active.
func WithConfigPath(path string) Option {
	return func(a *App) { a.configPath = path }
}

// WithLogLevel lets hot reload change the level of the process logger.
func WithLogLevel(v *slog.LevelVar) Option {
	return func(a *App) { a.logLevel = v }
}

// WithVersion sets the version reported by the API banner.
func WithVersion(v string) Option {
	return func(a *App) { a.version = v }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. The providers come
// from main.go; primary LLM, STT and TTS are required.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil || providers.LLM == nil || providers.STT == nil || providers.TTS == nil {
		return nil, errors.New("app: llm, stt and tts providers are required")
	}
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	// ── 1. Providers ─────────────────────────────────────────────────────
	a.initProviders(providers)

	// ── 2. Voice activity ────────────────────────────────────────────────
	if a.classifier == nil {
		c, err := energy.New(vad.Config{
			SampleRate:  cfg.Audio.SampleRate,
			FrameSizeMs: cfg.Audio.FrameMs,
			Mode:        vad.Mode(vadMode(cfg.Audio)),
		})
		if err != nil {
			return nil, fmt.Errorf("app: init vad: %w", err)
		}
		a.classifier = c
	}

	// ── 3. Record stores ─────────────────────────────────────────────────
	a.health = health.New()
	if err := a.initStore(ctx); err != nil {
		return nil, fmt.Errorf("app: init storage: %w", err)
	}

	// ── 4. Sessions ──────────────────────────────────────────────────────
	a.sessions = NewSessionManager(SessionManagerConfig{
		Config:      cfg,
		LLM:         a.llm,
		STT:         a.stt,
		TTS:         a.tts,
		TTSFallback: a.ttsFallback,
		Classifier:  a.classifier,
		Store:       a.store,
		Metrics:     a.metrics,
	})
	return a, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

// initProviders instruments every provider and puts the primaries behind
// circuit breakers. STT fails over inside its group; the TTS fallback is the
// speaker's job because it has its own timeout and event.
func (a *App) initProviders(p *Providers) {
	pc := a.cfg.Providers
	breaker := resilience.BreakerConfig{
		OnStateChange: func(name string, from, to resilience.State) {
			slog.Warn("circuit breaker state change", "provider", name, "from", from, "to", to)
			a.metrics.RecordBreakerTransition(context.Background(), name, to.String())
		},
	}

	llmGroup := resilience.NewLLMGroup(pc.LLM.Name, observe.InstrumentLLM(p.LLM, pc.LLM.Name, a.metrics), breaker)
	a.llm = llmGroup

	sttGroup := resilience.NewSTTGroup(pc.STT.Name, observe.InstrumentSTT(p.STT, pc.STT.Name, a.metrics), breaker)
	if p.STTFallback != nil {
		name := pc.STTFallback.Name + "-fallback"
		sttGroup.Add(name, observe.InstrumentSTT(p.STTFallback, name, a.metrics))
	}
	sttGroup.OnFailover = func(_ context.Context, from, to string, err error) {
		slog.Info("stt failover", "from", from, "to", to, "err", err)
	}
	a.stt = sttGroup

	a.tts = resilience.NewTTSGroup(pc.TTS.Name, observe.InstrumentTTS(p.TTS, pc.TTS.Name, a.metrics), breaker)
	if p.TTSFallback != nil {
		a.ttsFallback = observe.InstrumentTTS(p.TTSFallback, pc.TTSFallback.Name+"-fallback", a.metrics)
	}
}

// initStore opens the summary directory and, when configured, PostgreSQL.
func (a *App) initStore(ctx context.Context) error {
	if a.store != nil {
		return nil
	}

	fs, err := file.New(a.cfg.Storage.SummaryDir)
	if err != nil {
		return err
	}
	stores := []record.Store{fs}

	if dsn := a.cfg.Storage.PostgresDSN; dsn != "" {
		pg, err := postgres.New(ctx, dsn)
		if err != nil {
			return err
		}
		stores = append(stores, pg)
		a.health.Add(health.Checker{Name: "postgres", Check: pg.Ping})
		slog.Info("postgres record store enabled")
	}

	multi := record.NewMulti(stores...)
	a.store = multi
	a.closers = append(a.closers, multi.Close)
	return nil
}

func vadMode(c config.AudioConfig) int {
	if c.VADMode == nil {
		return config.DefaultVADMode
	}
	return *c.VADMode
}

// ─── Accessors ───────────────────────────────────────────────────────────────

// Sessions returns the session registry.
func (a *App) Sessions() *SessionManager { return a.sessions }

// APIKeyConfigured reports whether the primary LLM can authenticate.
func (a *App) APIKeyConfigured() bool {
	e := a.cfg.Providers.LLM
	return e.APIKey != "" || slices.Contains(keylessLLMs, e.Name)
}

// Handler returns the API handler.
func (a *App) Handler() http.Handler {
	srv := api.New(api.Config{
		Service:        service{a.sessions, a},
		AuthSecret:     a.cfg.Server.AuthSecret,
		CORSOrigins:    a.cfg.Server.CORSOrigins,
		Health:         a.health,
		Metrics:        a.metrics,
		SampleRate:     a.cfg.Audio.SampleRate,
		FrameMs:        a.cfg.Audio.FrameMs,
		Version:        a.version,
		OnSessionError: reportSessionError,
	})
	return srv.Handler()
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run serves the API and blocks until ctx is cancelled or the listener
// fails. When a config path was given, interview settings are hot-reloaded.
func (a *App) Run(ctx context.Context) error {
	if a.configPath != "" {
		w, err := config.NewWatcher(a.configPath, a.Reload)
		if err != nil {
			slog.Warn("config hot reload disabled", "err", err)
		} else {
			defer w.Stop()
		}
	}

	srv := &http.Server{
		Addr:              a.cfg.Server.ListenAddr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("api listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("app: serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		// Interviews end before the listener so their final events still
		// reach the connected clients.
		a.sessions.EndAll(context.WithoutCancel(gctx))
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// Reload applies a changed config file. Only the interview block and the
// log level take effect without a restart.
func (a *App) Reload(old, new *config.Config) {
	diff := config.Diff(old, new)
	if diff.LogLevelChanged && a.logLevel != nil {
		a.logLevel.Set(diff.NewLogLevel.Level())
		slog.Info("log level reloaded", "level", diff.NewLogLevel)
	}
	if diff.InterviewChanged() {
		a.sessions.SetInterview(new.Interview)
		for _, c := range diff.Interview {
			slog.Info("interview setting reloaded", "field", c.Field, "old", c.Old, "new", c.New)
		}
	}
	if len(diff.RestartRequired) > 0 {
		slog.Warn("config changes require a restart", "sections", diff.RestartRequired)
	}
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown ends every open interview and closes the stores. If ctx expires
// before all closers finish, the remaining ones are skipped and the context
// error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))
		a.sessions.EndAll(ctx)

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}
		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// reportSessionError sends a resource failure of one interview to Sentry.
// Without a configured DSN the hub has no client and nothing is sent.
func reportSessionError(_ context.Context, id string, err error) {
	hub := sentry.CurrentHub().Clone()
	hub.ConfigureScope(func(s *sentry.Scope) {
		s.SetTag("interview_id", id)
	})
	hub.CaptureException(err)
}

// service adapts the session manager to the API, adding the key check.
type service struct {
	*SessionManager
	app *App
}

func (s service) APIKeyConfigured() bool { return s.app.APIKeyConfigured() }

var _ api.Service = service{}
