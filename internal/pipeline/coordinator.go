package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MrWong99/intervox/internal/dialogue"
	"github.com/MrWong99/intervox/internal/event"
	"github.com/MrWong99/intervox/internal/observe"
	"github.com/MrWong99/intervox/internal/speech"
)

// Coordinator defaults.
const (
	DefaultMaxSilenceGap = 3 * time.Second
	DefaultPollInterval  = 100 * time.Millisecond
)

// Transcriber turns an utterance into text. ok is false for anything that is
// not a usable answer.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm []byte, sampleRate int) (text string, ok bool)
}

// Generator produces the interviewer's reaction to an answer. It never fails;
// a degraded reply is flagged with [dialogue.Reply.Fallback].
type Generator interface {
	Generate(ctx context.Context, answer string, history []dialogue.Exchange) dialogue.Reply
}

// Speaker plays a prompt and blocks until playback ends. err is non-nil only
// for resource failures.
type Speaker interface {
	Speak(ctx context.Context, text string) (spoken bool, err error)
}

// TurnRecorder appends a finished exchange to the session log and returns its
// index.
type TurnRecorder interface {
	AddTurn(candidate string, reply dialogue.Reply) (int, error)
}

// AudioSink stores the raw audio of an utterance. It is optional.
type AudioSink interface {
	SaveUtterance(ctx context.Context, n int, u *Utterance) error
}

// Compile-time checks.
var (
	_ Transcriber = (*speech.Transcriber)(nil)
	_ Generator   = (*dialogue.Generator)(nil)
	_ Speaker     = (*speech.Speaker)(nil)
)

// Config wires a [Coordinator].
type Config struct {
	Queue       *FrameQueue
	Segmenter   *Segmenter
	Assembler   *Assembler
	Transcriber Transcriber
	Generator   Generator
	Speaker     Speaker
	Turns       TurnRecorder

	// Audio, when set, receives every emitted utterance before transcription.
	Audio AudioSink

	// Events receives state changes and transcript events. Optional.
	Events event.Sink

	// Metrics may be nil.
	Metrics *observe.Metrics

	// Nudges are spoken in turn when the candidate stays silent.
	Nudges []string

	// RetryMessage is spoken when an utterance could not be transcribed.
	RetryMessage string

	// MaxSilenceGap is the idle time after a prompt that triggers a nudge.
	// Default: 3s.
	MaxSilenceGap time.Duration

	// PollInterval bounds each queue read so the loop can service the nudge
	// timer and the deadline while idle. Default: 100ms.
	PollInterval time.Duration

	// Deadline ends Run when reached. Zero means no deadline.
	Deadline time.Time

	// Now returns the wall clock. Default: time.Now.
	Now func() time.Time
}

// Validate reports missing collaborators.
func (c *Config) Validate() error {
	var errs []error
	if c.Queue == nil {
		errs = append(errs, errors.New("queue is required"))
	}
	if c.Segmenter == nil {
		errs = append(errs, errors.New("segmenter is required"))
	}
	if c.Assembler == nil {
		errs = append(errs, errors.New("assembler is required"))
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
	if c.Turns == nil {
		errs = append(errs, errors.New("turn recorder is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("pipeline: invalid config: %w", err)
	}
	return nil
}

// Coordinator is the turn-taking state machine. It runs on a single
// goroutine; only [Coordinator.State] and [Coordinator.Nudges] may be called
// from elsewhere.
type Coordinator struct {
	cfg    Config
	events event.Sink

	mu         sync.RWMutex
	state      State
	nudgeCount int

	lastPrompt   time.Time
	lastQuestion string
	history      []dialogue.Exchange
	utterances   int
}

// NewCoordinator validates cfg and returns a Coordinator in
// [StateNotStarted].
func NewCoordinator(cfg Config) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.MaxSilenceGap <= 0 {
		cfg.MaxSilenceGap = DefaultMaxSilenceGap
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Coordinator{cfg: cfg, events: event.OrDiscard(cfg.Events)}, nil
}

// State returns the current state.
func (c *Coordinator) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Nudges returns how many nudges have been spoken.
func (c *Coordinator) Nudges() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.nudgeCount
}

func (c *Coordinator) setState(s State) {
	c.mu.Lock()
	prev := c.state
	c.state = s
	c.mu.Unlock()
	if prev != s {
		c.events.Publish(event.New(event.StateChanged, "state", s.String(), "previous", prev.String()))
	}
}

// Finish moves the coordinator to [StateEnded]. Call it once Run has
// returned.
func (c *Coordinator) Finish() { c.setState(StateEnded) }

// Ask speaks a question the candidate should answer, such as the opening
// question, and makes it the context for the next answer.
func (c *Coordinator) Ask(ctx context.Context, question string, round int) error {
	c.lastQuestion = question
	c.events.Publish(event.New(event.InterviewerQuestion, "message", question, "round", round))
	return c.speak(ctx, question)
}

// Run processes frames until ctx ends, the deadline passes or speech output
// hits a resource failure. Only the last case returns an error.
func (c *Coordinator) Run(ctx context.Context) error {
	if c.lastPrompt.IsZero() {
		c.lastPrompt = c.cfg.Now()
	}
	c.setState(StateListening)

	for {
		if ctx.Err() != nil {
			return nil
		}
		if !c.cfg.Deadline.IsZero() && !c.cfg.Now().Before(c.cfg.Deadline) {
			slog.Info("interview time limit reached")
			return nil
		}

		f, ok := c.cfg.Queue.Next(ctx, c.cfg.PollInterval)
		if ok {
			isSpeech := c.cfg.Segmenter.Classify(f)
			noise := c.cfg.Assembler.Noise()
			u, done := c.cfg.Assembler.Push(f, isSpeech)
			if c.cfg.Assembler.Noise() > noise {
				c.cfg.Metrics.RecordUtterance(ctx, false)
			}
			if done {
				if err := c.handleUtterance(ctx, u); err != nil {
					return err
				}
				continue
			}
		}
		if err := c.maybeNudge(ctx); err != nil {
			return err
		}
	}
}

func (c *Coordinator) maybeNudge(ctx context.Context) error {
	if len(c.cfg.Nudges) == 0 || c.cfg.Assembler.Active() || ctx.Err() != nil {
		return nil
	}
	if c.cfg.Now().Sub(c.lastPrompt) <= c.cfg.MaxSilenceGap {
		return nil
	}

	c.mu.Lock()
	round := c.nudgeCount
	c.nudgeCount++
	c.mu.Unlock()

	msg := c.cfg.Nudges[round%len(c.cfg.Nudges)]
	c.setState(StateNudging)
	c.events.Publish(event.New(event.InterviewerNudge, "message", msg, "round", round))
	c.cfg.Metrics.RecordNudge(ctx)
	slog.Debug("nudging candidate", "round", round)
	return c.speak(ctx, msg)
}

func (c *Coordinator) handleUtterance(ctx context.Context, u *Utterance) error {
	c.cfg.Metrics.RecordUtterance(ctx, true)
	c.utterances++
	n := c.utterances

	c.setState(StateProcessing)
	c.events.Publish(event.New(event.Processing,
		"message", fmt.Sprintf("Processing response %d...", n),
		"duration", u.Duration.Seconds(),
		"speech_duration", u.SpeechDuration.Seconds(),
	))

	if c.cfg.Audio != nil {
		if err := c.cfg.Audio.SaveUtterance(ctx, n, u); err != nil {
			slog.Warn("failed to store utterance audio", "n", n, "err", err)
		}
	}

	text, ok := c.cfg.Transcriber.Transcribe(ctx, u.PCM, u.SampleRate)
	if ctx.Err() != nil {
		return nil
	}
	if !ok {
		c.cfg.Metrics.RecordTranscriptionFailure(ctx)
		c.events.Publish(event.Message(event.TranscriptionFailed, c.cfg.RetryMessage))
		return c.speak(ctx, c.cfg.RetryMessage)
	}

	reply := c.cfg.Generator.Generate(ctx, text, c.history)
	if ctx.Err() != nil {
		return nil
	}
	idx, err := c.cfg.Turns.AddTurn(text, reply)
	if err != nil {
		slog.Warn("turn not recorded", "err", err)
		return nil
	}
	c.cfg.Metrics.RecordTurn(ctx)
	c.history = append(c.history, dialogue.Exchange{Question: c.lastQuestion, Answer: text})
	c.events.Publish(event.New(event.CandidateResponse,
		"transcript", text,
		"evaluation", reply.Evaluation,
		"round", idx,
	))

	if reply.NextQuestion == "" {
		c.lastPrompt = c.cfg.Now()
		c.setState(StateListening)
		return nil
	}
	return c.Ask(ctx, reply.NextQuestion, idx)
}

// speak plays text and returns to listening. Frames queued before the
// interlock went up are kept; echo is dropped at capture by the queue.
func (c *Coordinator) speak(ctx context.Context, text string) error {
	c.setState(StateSpeaking)
	spoken, err := c.cfg.Speaker.Speak(ctx, text)
	c.cfg.Assembler.Reset()
	c.lastPrompt = c.cfg.Now()

	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("pipeline: speak: %w", err)
	}
	if !spoken {
		slog.Warn("prompt shown but not spoken", "text", text)
	}
	c.setState(StateListening)
	c.events.Publish(event.Message(event.Listening, "Listening for your response..."))
	return nil
}
