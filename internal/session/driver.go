// Package session binds the turn pipeline to one time-boxed interview.
//
// A [Driver] owns the interview profile, the wall-clock deadline and the
// ordered turn log. [Driver.Start] speaks the opening question and runs the
// pipeline until the deadline, an external [Driver.Stop] or a resource
// failure; it then calls [Driver.End], which writes the final assessment,
// speaks it and persists the record exactly once.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MrWong99/intervox/internal/dialogue"
	"github.com/MrWong99/intervox/internal/event"
	"github.com/MrWong99/intervox/internal/interview"
	"github.com/MrWong99/intervox/internal/observe"
	"github.com/MrWong99/intervox/internal/pipeline"
	"github.com/MrWong99/intervox/internal/speech"
	"github.com/MrWong99/intervox/pkg/audio"
	"github.com/MrWong99/intervox/pkg/provider/vad"
	"github.com/MrWong99/intervox/pkg/record"
)

// Sentinel errors.
var (
	// ErrResource marks a failure of the device or the record store. It ends
	// the session but never the process.
	ErrResource = errors.New("session: resource failure")

	// ErrEnded is returned when a finished session is asked to do more work.
	ErrEnded = errors.New("session: ended")

	// ErrStarted is returned by a second call to Start.
	ErrStarted = errors.New("session: already started")
)

// Defaults.
const (
	DefaultDuration       = 10 * time.Minute
	DefaultSummaryTimeout = 30 * time.Second
)

// Summariser writes the final assessment. It never fails; a degraded result
// is still text.
type Summariser interface {
	Summarise(ctx context.Context, t dialogue.Transcript) string
}

var _ Summariser = (*dialogue.Summariser)(nil)

// Timing holds the pipeline thresholds of a session. Zero fields take the
// pipeline defaults.
type Timing struct {
	SampleRate       int
	FrameMs          int
	SilenceThreshold time.Duration
	MinSpeech        time.Duration
	MaxSilenceGap    time.Duration
	PollInterval     time.Duration
	QueueSize        int
	SummaryTimeout   time.Duration

	// DefaultDuration applies when the profile has no session length.
	DefaultDuration time.Duration
}

func (t *Timing) applyDefaults() {
	if t.SampleRate <= 0 {
		t.SampleRate = 16000
	}
	if t.FrameMs <= 0 {
		t.FrameMs = 20
	}
	if t.SilenceThreshold <= 0 {
		t.SilenceThreshold = pipeline.DefaultSilenceThreshold
	}
	if t.MinSpeech <= 0 {
		t.MinSpeech = pipeline.DefaultMinSpeech
	}
	if t.SummaryTimeout <= 0 {
		t.SummaryTimeout = DefaultSummaryTimeout
	}
	if t.DefaultDuration <= 0 {
		t.DefaultDuration = DefaultDuration
	}
}

// Config holds everything a [Driver] needs.
type Config struct {
	// ID identifies the session in logs, events and the stored record.
	ID string

	// Profile is the interview setup. It should already be normalised.
	Profile interview.Profile

	Device      audio.Device
	Lock        *speech.Interlock
	Classifier  vad.Classifier
	Transcriber pipeline.Transcriber
	Generator   pipeline.Generator
	Speaker     pipeline.Speaker
	Summariser  Summariser

	// Store persists the record. Optional.
	Store record.Store

	// AudioDir, when set, receives one WAV file per utterance.
	AudioDir string

	Events  event.Sink
	Metrics *observe.Metrics
	Timing  Timing

	// Now returns the wall clock. Default: time.Now.
	Now func() time.Time
}

// Validate reports missing collaborators.
func (c *Config) Validate() error {
	var errs []error
	if c.ID == "" {
		errs = append(errs, errors.New("id is required"))
	}
	if c.Device == nil {
		errs = append(errs, errors.New("device is required"))
	}
	if c.Lock == nil {
		errs = append(errs, errors.New("interlock is required"))
	}
	if c.Classifier == nil {
		errs = append(errs, errors.New("classifier is required"))
	}
	if c.Transcriber == nil {
		errs = append(errs, errors.New("transcriber is required"))
	}
	if c.Generator == nil {
		errs = append(errs, errors.New("generator is required"))
	}
	if c.Speaker == nil {
		errs = append(errs, errors.New("speaker is required"))
	}
	if c.Summariser == nil {
		errs = append(errs, errors.New("summariser is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("session: invalid config: %w", err)
	}
	return nil
}

// Turn is one recorded exchange. Turns are never modified once appended.
type Turn struct {
	Index        int
	Candidate    string
	Evaluation   string
	NextQuestion string

	// Elapsed is the offset from session start.
	Elapsed   time.Duration
	Timestamp time.Time
}

// Status is a point-in-time view of a session.
type Status struct {
	ID        string
	State     pipeline.State
	Started   bool
	Ended     bool
	StartedAt time.Time
	Elapsed   time.Duration
	Remaining time.Duration
	Exchanges int
}

// Driver runs one interview. All exported methods are safe for concurrent
// use.
type Driver struct {
	cfg    Config
	log    *slog.Logger
	events event.Sink

	stopCtx context.Context
	stop    context.CancelFunc

	mu        sync.Mutex
	started   bool
	ended     bool
	startedAt time.Time
	deadline  time.Time
	turns     []Turn
	coord     *pipeline.Coordinator
	runDone   chan struct{}

	endOnce sync.Once
	rec     *record.Record
	endErr  error
}

// New validates cfg and returns a Driver that has not started.
func New(cfg Config) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Timing.applyDefaults()
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	stopCtx, stop := context.WithCancel(context.Background())
	return &Driver{
		cfg:     cfg,
		log:     slog.With("session_id", cfg.ID),
		events:  event.OrDiscard(cfg.Events),
		stopCtx: stopCtx,
		stop:    stop,
		runDone: make(chan struct{}),
	}, nil
}

// ID returns the session identifier.
func (d *Driver) ID() string { return d.cfg.ID }

// Profile returns the interview profile.
func (d *Driver) Profile() interview.Profile { return d.cfg.Profile }

// Start runs the interview and blocks until it has ended and the record is
// persisted. A resource failure is returned wrapped in [ErrResource]; the
// session is still ended and persisted on a best-effort basis.
func (d *Driver) Start(ctx context.Context) error {
	d.mu.Lock()
	switch {
	case d.ended:
		d.mu.Unlock()
		return ErrEnded
	case d.started:
		d.mu.Unlock()
		return ErrStarted
	}
	d.started = true
	d.startedAt = d.cfg.Now()
	d.deadline = d.startedAt.Add(d.cfg.Profile.Duration(d.cfg.Timing.DefaultDuration))
	d.mu.Unlock()

	ctx, span := observe.StartInterview(ctx, d.cfg.ID)
	runErr := d.run(ctx)
	if runErr != nil {
		observe.WithTrace(ctx, d.log).Error("interview aborted", "err", runErr)
	}
	_, endErr := d.End(ctx)
	observe.EndSpan(span, errors.Join(runErr, endErr))
	if endErr != nil && runErr == nil {
		return endErr
	}
	return runErr
}

func (d *Driver) run(ctx context.Context) error {
	defer close(d.runDone)

	// The budget also bounds any provider call still in flight when it runs
	// out; the coordinator's own deadline check covers the idle loop.
	runCtx, cancel := context.WithTimeout(ctx, d.deadline.Sub(d.startedAt))
	defer cancel()
	unhook := context.AfterFunc(d.stopCtx, cancel)
	defer unhook()

	coord, queue, err := d.buildPipeline()
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.coord = coord
	d.mu.Unlock()

	d.cfg.Metrics.SessionStarted(ctx)
	defer d.cfg.Metrics.SessionEnded(context.WithoutCancel(ctx))

	if err := d.cfg.Device.Start(runCtx, func(f audio.AudioFrame) { queue.Offer(f) }); err != nil {
		return fmt.Errorf("%w: start device: %w", ErrResource, err)
	}

	profile, _ := json.Marshal(d.cfg.Profile)
	d.events.Publish(event.New(event.InterviewStarted,
		"message", "Interview started",
		"interview_id", d.cfg.ID,
		"duration_minutes", d.deadline.Sub(d.startedAt).Minutes(),
		"config", json.RawMessage(profile),
	))
	observe.WithTrace(ctx, d.log).Info("interview started",
		"type", d.cfg.Profile.Type,
		"role", d.cfg.Profile.Role,
		"deadline", d.deadline,
	)

	if err := coord.Ask(runCtx, interview.OpeningQuestion(d.cfg.Profile), 0); err != nil {
		return fmt.Errorf("%w: %w", ErrResource, err)
	}
	if err := coord.Run(runCtx); err != nil {
		return fmt.Errorf("%w: %w", ErrResource, err)
	}
	return nil
}

func (d *Driver) buildPipeline() (*pipeline.Coordinator, *pipeline.FrameQueue, error) {
	t := d.cfg.Timing
	queue := pipeline.NewFrameQueue(t.QueueSize, d.cfg.Lock, d.cfg.Metrics)

	var sink pipeline.AudioSink
	if d.cfg.AudioDir != "" {
		ws, err := pipeline.NewWAVSink(d.cfg.AudioDir, d.cfg.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", ErrResource, err)
		}
		sink = ws
	}

	coord, err := pipeline.NewCoordinator(pipeline.Config{
		Queue:     queue,
		Segmenter: pipeline.NewSegmenter(d.cfg.Classifier, t.SampleRate, t.FrameMs),
		Assembler: pipeline.NewAssembler(pipeline.AssemblerConfig{
			SilenceThreshold: t.SilenceThreshold,
			MinSpeech:        t.MinSpeech,
			FrameDuration:    time.Duration(t.FrameMs) * time.Millisecond,
		}),
		Transcriber:   d.cfg.Transcriber,
		Generator:     d.cfg.Generator,
		Speaker:       d.cfg.Speaker,
		Turns:         d,
		Audio:         sink,
		Events:        d.events,
		Metrics:       d.cfg.Metrics,
		Nudges:        interview.Nudges(d.cfg.Profile),
		RetryMessage:  interview.RetryMessage,
		MaxSilenceGap: t.MaxSilenceGap,
		PollInterval:  t.PollInterval,
		Deadline:      d.deadline,
		Now:           d.cfg.Now,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("session: build pipeline: %w", err)
	}
	return coord, queue, nil
}

// AddTurn appends an exchange to the log and returns its index. Indices start
// at 1 and have no gaps. It fails with [ErrEnded] once the session is ending.
func (d *Driver) AddTurn(candidate string, reply dialogue.Reply) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ended {
		return 0, ErrEnded
	}
	now := d.cfg.Now()
	t := Turn{
		Index:        len(d.turns) + 1,
		Candidate:    candidate,
		Evaluation:   reply.Evaluation,
		NextQuestion: reply.NextQuestion,
		Elapsed:      now.Sub(d.startedAt),
		Timestamp:    now,
	}
	d.turns = append(d.turns, t)
	d.log.Debug("turn recorded", "index", t.Index, "fallback", reply.Fallback)
	return t.Index, nil
}

// Turns returns a copy of the turn log.
func (d *Driver) Turns() []Turn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Turn(nil), d.turns...)
}

// Stop asks a running session to finish. Start then ends the session. It is
// safe to call at any time, any number of times.
func (d *Driver) Stop() { d.stop() }

// Status returns the current view of the session.
func (d *Driver) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := Status{
		ID:        d.cfg.ID,
		Started:   d.started,
		Ended:     d.ended,
		StartedAt: d.startedAt,
		Exchanges: len(d.turns),
	}
	switch {
	case d.ended:
		s.State = pipeline.StateEnded
	case d.coord != nil:
		s.State = d.coord.State()
	}
	if d.started {
		now := d.cfg.Now()
		s.Elapsed = now.Sub(d.startedAt)
		if !d.ended && d.deadline.After(now) {
			s.Remaining = d.deadline.Sub(now)
		}
	}
	return s
}

// Record returns the stored record, or nil before the session has ended.
func (d *Driver) Record() *record.Record {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rec
}

// End finishes the session: it stops the pipeline, writes and speaks the
// final assessment and persists the record. Only the first call does any
// work; later calls return the same record and error.
func (d *Driver) End(ctx context.Context) (*record.Record, error) {
	d.endOnce.Do(func() {
		rec, err := d.end(ctx)
		d.mu.Lock()
		d.rec, d.endErr = rec, err
		d.mu.Unlock()
	})
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rec, d.endErr
}

func (d *Driver) end(ctx context.Context) (*record.Record, error) {
	d.stop()

	d.mu.Lock()
	d.ended = true
	started := d.started
	d.mu.Unlock()

	if started {
		<-d.runDone
	}

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.cfg.Timing.SummaryTimeout)
	defer cancel()

	d.mu.Lock()
	turns := append([]Turn(nil), d.turns...)
	startedAt := d.startedAt
	coord := d.coord
	d.mu.Unlock()

	var elapsed time.Duration
	if started {
		elapsed = d.cfg.Now().Sub(startedAt)
	}
	conv := make([]record.Exchange, len(turns))
	for i, t := range turns {
		conv[i] = record.Exchange{
			Round:        t.Index,
			Candidate:    t.Candidate,
			Evaluation:   t.Evaluation,
			NextQuestion: t.NextQuestion,
			Timestamp:    t.Elapsed.Seconds(),
		}
	}

	d.events.Publish(event.Message(event.InterviewEnding, "Generating final feedback..."))
	feedback := d.cfg.Summariser.Summarise(sctx, dialogue.Transcript{
		Profile:      d.cfg.Profile,
		Elapsed:      elapsed,
		Conversation: conv,
	})

	if started {
		if _, err := d.cfg.Speaker.Speak(sctx, interview.ClosingPreamble+feedback); err != nil {
			d.log.Warn("final feedback not spoken", "err", err)
		}
	}

	profile, _ := json.Marshal(d.cfg.Profile)
	rec := &record.Record{
		InterviewID:     d.cfg.ID,
		InterviewType:   string(d.cfg.Profile.Type),
		RoleTitle:       d.cfg.Profile.SummaryTitle(),
		Company:         d.cfg.Profile.Company,
		DurationMinutes: elapsed.Minutes(),
		TotalExchanges:  len(conv),
		Conversation:    conv,
		FinalFeedback:   feedback,
		Timestamp:       d.cfg.Now().UTC(),
		Config:          profile,
	}

	d.events.Publish(event.New(event.FinalFeedback,
		"feedback", feedback,
		"summary", map[string]any{
			"duration_minutes": rec.DurationMinutes,
			"total_exchanges":  rec.TotalExchanges,
			"interview_type":   rec.InterviewType,
			"role_title":       rec.RoleTitle,
		},
	))
	if coord != nil {
		coord.Finish()
	}
	d.events.Publish(event.Message(event.InterviewEnded, "Interview completed"))
	d.log.Info("interview ended", "exchanges", rec.TotalExchanges, "minutes", rec.DurationMinutes)

	if d.cfg.Store == nil {
		return rec, nil
	}
	if err := d.cfg.Store.Save(sctx, rec); err != nil {
		return rec, fmt.Errorf("%w: save record: %w", ErrResource, err)
	}
	return rec, nil
}
