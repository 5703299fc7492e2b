package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MrWong99/intervox/internal/api"
	"github.com/MrWong99/intervox/internal/config"
	"github.com/MrWong99/intervox/internal/dialogue"
	"github.com/MrWong99/intervox/internal/event"
	"github.com/MrWong99/intervox/internal/interview"
	"github.com/MrWong99/intervox/internal/observe"
	"github.com/MrWong99/intervox/internal/pipeline"
	"github.com/MrWong99/intervox/internal/resilience"
	"github.com/MrWong99/intervox/internal/session"
	"github.com/MrWong99/intervox/internal/speech"
	"github.com/MrWong99/intervox/pkg/audio"
	"github.com/MrWong99/intervox/pkg/provider/llm"
	"github.com/MrWong99/intervox/pkg/provider/stt"
	"github.com/MrWong99/intervox/pkg/provider/tts"
	"github.com/MrWong99/intervox/pkg/provider/vad"
	"github.com/MrWong99/intervox/pkg/record"
)

var (
	// ErrSessionNotFound is returned for IDs that are neither open nor
	// stored. It matches [api.ErrUnknownSession].
	ErrSessionNotFound = fmt.Errorf("app: session not found: %w", api.ErrUnknownSession)

	// ErrDeviceBusy is returned when a session already has an audio device.
	// It matches [api.ErrConflict].
	ErrDeviceBusy = fmt.Errorf("app: session already connected: %w", api.ErrConflict)
)

// SessionManagerConfig holds all dependencies for a [SessionManager].
type SessionManagerConfig struct {
	Config *config.Config

	LLM         llm.Provider
	STT         stt.Provider
	TTS         tts.Provider
	TTSFallback tts.Provider
	Classifier  vad.Classifier

	Store   record.Store
	Metrics *observe.Metrics

	// NewID generates session IDs. Default: uuid.NewString.
	NewID func() string
}

// entry is one open session. The driver exists from the first connect on.
type entry struct {
	profile interview.Profile
	timing  config.InterviewConfig
	created time.Time
	driver  *session.Driver
}

// SessionManager is the registry of open interviews. A session is created
// by the API, runs once a device connects and leaves the registry when it
// ends; its record then lives only in the store.
//
// All exported methods are safe for concurrent use.
type SessionManager struct {
	cfg SessionManagerConfig

	mu        sync.Mutex
	sessions  map[string]*entry
	interview config.InterviewConfig
}

// NewSessionManager creates a SessionManager with the given dependencies.
func NewSessionManager(cfg SessionManagerConfig) *SessionManager {
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	return &SessionManager{
		cfg:       cfg,
		sessions:  make(map[string]*entry),
		interview: cfg.Config.Interview,
	}
}

// SetInterview replaces the interview settings used by sessions created from
// now on.
func (sm *SessionManager) SetInterview(iv config.InterviewConfig) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.interview = iv
}

// Create registers a session for p. p must already be normalised.
func (sm *SessionManager) Create(_ context.Context, p interview.Profile) (string, error) {
	id := sm.cfg.NewID()
	p.ID = id

	sm.mu.Lock()
	sm.sessions[id] = &entry{profile: p, timing: sm.interview, created: time.Now()}
	n := len(sm.sessions)
	sm.mu.Unlock()

	slog.Info("interview created", "interview_id", id, "type", p.Type, "role", p.Role, "open", n)
	return id, nil
}

func (sm *SessionManager) lookup(id string) (*entry, error) {
	e, ok := sm.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return e, nil
}

// Status returns the live status of an open session, or the final status of
// a stored one.
func (sm *SessionManager) Status(id string) (session.Status, interview.Profile, error) {
	sm.mu.Lock()
	e, err := sm.lookup(id)
	sm.mu.Unlock()
	if err == nil {
		if e.driver != nil {
			return e.driver.Status(), e.profile, nil
		}
		return session.Status{ID: id, State: pipeline.StateNotStarted}, e.profile, nil
	}

	rec, serr := sm.stored(context.Background(), id)
	if serr != nil {
		return session.Status{}, interview.Profile{}, serr
	}
	var p interview.Profile
	if len(rec.Config) > 0 {
		_ = json.Unmarshal(rec.Config, &p)
	}
	return session.Status{
		ID:        id,
		State:     pipeline.StateEnded,
		Started:   rec.DurationMinutes > 0,
		Ended:     true,
		Elapsed:   time.Duration(rec.DurationMinutes * float64(time.Minute)),
		Exchanges: rec.TotalExchanges,
	}, p, nil
}

// Connect runs the session on dev and blocks until it has ended. Cancelling
// ctx, for example by a disconnect, ends the interview.
func (sm *SessionManager) Connect(ctx context.Context, id string, dev audio.Device, sink event.Sink) error {
	sm.mu.Lock()
	e, err := sm.lookup(id)
	if err != nil {
		sm.mu.Unlock()
		return err
	}
	if e.driver != nil {
		sm.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDeviceBusy, id)
	}
	d, err := sm.newDriver(id, e, dev, sink)
	if err != nil {
		sm.mu.Unlock()
		return err
	}
	e.driver = d
	sm.mu.Unlock()

	err = d.Start(ctx)
	sm.remove(id, d)
	return err
}

// End finishes a session. A session that never connected is summarised and
// stored without speaking.
func (sm *SessionManager) End(ctx context.Context, id string) (*record.Record, error) {
	sm.mu.Lock()
	e, err := sm.lookup(id)
	if err != nil {
		sm.mu.Unlock()
		if rec, serr := sm.stored(ctx, id); serr == nil {
			return rec, nil
		}
		return nil, err
	}
	if e.driver == nil {
		d, err := sm.newDriver(id, e, idleDevice{}, nil)
		if err != nil {
			sm.mu.Unlock()
			return nil, err
		}
		e.driver = d
	}
	d := e.driver
	sm.mu.Unlock()

	rec, err := d.End(ctx)
	sm.remove(id, d)
	return rec, err
}

// EndAll ends every open session concurrently and waits for them.
func (sm *SessionManager) EndAll(ctx context.Context) {
	sm.mu.Lock()
	ids := make([]string, 0, len(sm.sessions))
	for id := range sm.sessions {
		ids = append(ids, id)
	}
	sm.mu.Unlock()

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Go(func() {
			if _, err := sm.End(ctx, id); err != nil && !errors.Is(err, ErrSessionNotFound) {
				slog.Warn("end interview on shutdown", "interview_id", id, "err", err)
			}
		})
	}
	wg.Wait()
}

// Summary returns the record of a finished session.
func (sm *SessionManager) Summary(ctx context.Context, id string) (*record.Record, error) {
	sm.mu.Lock()
	e, err := sm.lookup(id)
	sm.mu.Unlock()
	if err == nil && e.driver != nil {
		if rec := e.driver.Record(); rec != nil {
			return rec, nil
		}
	}
	return sm.stored(ctx, id)
}

// History lists up to limit stored records, newest first.
func (sm *SessionManager) History(ctx context.Context, limit int) ([]record.Summary, error) {
	if sm.cfg.Store == nil {
		return nil, nil
	}
	list, err := sm.cfg.Store.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("app: list records: %w", err)
	}
	return list, nil
}

// Active returns the number of open sessions.
func (sm *SessionManager) Active() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return len(sm.sessions)
}

func (sm *SessionManager) stored(ctx context.Context, id string) (*record.Record, error) {
	if sm.cfg.Store == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	rec, err := sm.cfg.Store.Get(ctx, id)
	if errors.Is(err, record.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("app: load record %s: %w", id, err)
	}
	return rec, nil
}

// remove drops id from the registry if it still belongs to d.
func (sm *SessionManager) remove(id string, d *session.Driver) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if e, ok := sm.sessions[id]; ok && e.driver == d {
		delete(sm.sessions, id)
	}
}

// newDriver builds the per-session pipeline on dev. Called with sm.mu held.
func (sm *SessionManager) newDriver(id string, e *entry, dev audio.Device, sink event.Sink) (*session.Driver, error) {
	c := sm.cfg.Config
	iv := e.timing
	policy := resilience.Policy{Attempts: iv.RetryAttempts, Backoff: iv.RetryBackoff}
	lock := &speech.Interlock{}

	speakerOpts := []speech.SpeakerOption{
		speech.WithMaxChars(iv.MaxTTSChars),
		speech.WithEvents(sink),
		speech.WithMetrics(sm.cfg.Metrics),
	}
	if sm.cfg.TTSFallback != nil {
		speakerOpts = append(speakerOpts, speech.WithFallback(sm.cfg.TTSFallback))
	}

	return session.New(session.Config{
		ID:          id,
		Profile:     e.profile,
		Device:      dev,
		Lock:        lock,
		Classifier:  sm.cfg.Classifier,
		Transcriber: speech.NewTranscriber(sm.cfg.STT, policy),
		Generator: dialogue.NewGenerator(sm.cfg.LLM, interview.SystemPrompt(e.profile),
			dialogue.WithPolicy(policy),
			dialogue.WithHistoryTurns(iv.HistoryTurns),
			dialogue.WithJSONMode(config.IsGroq(c.Providers.LLM) || c.Providers.LLM.Name == "openai"),
		),
		Speaker:    speech.NewSpeaker(sm.cfg.TTS, dev, lock, speakerOpts...),
		Summariser: dialogue.NewSummariser(sm.cfg.LLM),
		Store:      sm.cfg.Store,
		AudioDir:   c.Storage.AudioDir,
		Events:     sink,
		Metrics:    sm.cfg.Metrics,
		Timing: session.Timing{
			SampleRate:       c.Audio.SampleRate,
			FrameMs:          c.Audio.FrameMs,
			SilenceThreshold: iv.SilenceThreshold,
			MinSpeech:        iv.MinSpeech,
			MaxSilenceGap:    iv.MaxSilenceGap,
			PollInterval:     iv.PollInterval,
			QueueSize:        c.Audio.QueueSize,
			SummaryTimeout:   iv.SummaryTimeout,
			DefaultDuration:  time.Duration(iv.SessionMinutes) * time.Minute,
		},
	})
}

// idleDevice stands in for the device of a session ended before it
// connected. It is never started.
type idleDevice struct{}

func (idleDevice) Start(context.Context, func(audio.AudioFrame)) error { return nil }
func (idleDevice) Play(context.Context, []byte, int) error              { return nil }
func (idleDevice) Close() error                                         { return nil }
