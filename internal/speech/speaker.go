package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MrWong99/intervox/internal/event"
	"github.com/MrWong99/intervox/internal/observe"
	"github.com/MrWong99/intervox/pkg/audio"
	"github.com/MrWong99/intervox/pkg/provider/tts"
)

// ErrPlayback is wrapped by [Speaker.Speak] when the audio device fails. It
// marks a resource failure rather than a speech failure.
var ErrPlayback = errors.New("speech: playback failed")

// Defaults.
const (
	DefaultMaxChars        = 500
	DefaultFallbackTimeout = 10 * time.Second
)

// SpeakerOption configures a [Speaker].
type SpeakerOption func(*Speaker)

// WithFallback sets the voice used when the primary fails.
func WithFallback(p tts.Provider) SpeakerOption {
	return func(s *Speaker) { s.fallback = p }
}

// WithFallbackTimeout bounds fallback synthesis. Default: 10s.
func WithFallbackTimeout(d time.Duration) SpeakerOption {
	return func(s *Speaker) { s.fallbackTimeout = d }
}

// WithMaxChars truncates prompts to n runes. Default: 500. Zero disables
// truncation.
func WithMaxChars(n int) SpeakerOption {
	return func(s *Speaker) { s.maxChars = n }
}

// WithEvents sets the sink receiving tts_* events.
func WithEvents(sink event.Sink) SpeakerOption {
	return func(s *Speaker) { s.events = event.OrDiscard(sink) }
}

// WithMetrics records fallback counts on m.
func WithMetrics(m *observe.Metrics) SpeakerOption {
	return func(s *Speaker) { s.metrics = m }
}

// Speaker renders prompts and plays them on a device.
type Speaker struct {
	primary         tts.Provider
	fallback        tts.Provider
	device          audio.Device
	lock            *Interlock
	events          event.Sink
	metrics         *observe.Metrics
	maxChars        int
	fallbackTimeout time.Duration
}

// NewSpeaker returns a Speaker playing on device and holding lock during
// playback.
func NewSpeaker(primary tts.Provider, device audio.Device, lock *Interlock, opts ...SpeakerOption) *Speaker {
	s := &Speaker{
		primary:         primary,
		device:          device,
		lock:            lock,
		events:          event.Discard,
		maxChars:        DefaultMaxChars,
		fallbackTimeout: DefaultFallbackTimeout,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Speak renders text and blocks until playback ends. It reports whether the
// candidate heard anything. A failure of both voices is not an error: the
// caller logs and moves on. The returned error is non-nil only when the
// device fails ([ErrPlayback]) or ctx ends.
//
// The interlock is held from before synthesis until after playback, and is
// released on every path including a panic in a provider or the device.
func (s *Speaker) Speak(ctx context.Context, text string) (spoken bool, err error) {
	text = Truncate(strings.TrimSpace(text), s.maxChars)
	if text == "" {
		return false, nil
	}

	s.lock.Mute()
	s.events.Publish(event.Message(event.TTSStarting, "Playing audio response..."))
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic during speech", "panic", r)
			spoken, err = false, nil
		}
		s.lock.Unmute()
		s.events.Publish(event.Message(event.TTSCompleted, "Ready for your response"))
	}()

	a, ok := s.synthesize(ctx, text)
	if !ok {
		if cerr := ctx.Err(); cerr != nil {
			return false, cerr
		}
		slog.Warn("speech unavailable, prompt not played", "text", text)
		return false, nil
	}

	if perr := s.device.Play(ctx, a.PCM, a.SampleRate); perr != nil {
		if cerr := ctx.Err(); cerr != nil {
			return false, cerr
		}
		return false, fmt.Errorf("%w: %w", ErrPlayback, perr)
	}
	return true, nil
}

func (s *Speaker) synthesize(ctx context.Context, text string) (tts.Audio, bool) {
	a, err := s.primary.Synthesize(ctx, text)
	if err == nil && len(a.PCM) > 0 {
		return a, true
	}
	if ctx.Err() != nil {
		return tts.Audio{}, false
	}
	slog.Warn("primary tts failed", "err", err)
	if s.fallback == nil {
		return tts.Audio{}, false
	}

	s.events.Publish(event.Message(event.TTSFallback, "Using backup audio system..."))
	s.metrics.RecordTTSFallback(ctx)

	fctx := ctx
	if s.fallbackTimeout > 0 {
		var cancel context.CancelFunc
		fctx, cancel = context.WithTimeout(ctx, s.fallbackTimeout)
		defer cancel()
	}
	a, err = s.fallback.Synthesize(fctx, text)
	if err != nil || len(a.PCM) == 0 {
		slog.Warn("fallback tts failed", "err", err)
		return tts.Audio{}, false
	}
	return a, true
}

// Truncate returns at most n runes of s. A non-positive n disables it.
func Truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
