package speech

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/antzucaro/matchr"

	"github.com/MrWong99/intervox/internal/resilience"
	"github.com/MrWong99/intervox/pkg/provider/stt"
)

// fillers are transcripts speech models produce for silence, breathing or
// background noise.
var fillers = []string{
	"thank you", "thanks", "thank you.", "thanks.", "thank you very much",
	"you", ".", "", " ", "um", "uh", "hmm", "mhm", "mm-hmm",
}

var fillerSet = func() map[string]bool {
	m := make(map[string]bool, len(fillers))
	for _, f := range fillers {
		m[f] = true
	}
	return m
}()

// fuzzyFillers are the punctuation-free fillers long enough for an edit
// distance comparison to be meaningful.
var fuzzyFillers = func() []string {
	var out []string
	seen := map[string]bool{}
	for _, f := range fillers {
		b := bare(f)
		if utf8.RuneCountInString(b) >= 4 && !seen[b] {
			seen[b] = true
			out = append(out, b)
		}
	}
	return out
}()

// minTranscriptLen is the shortest transcript accepted as an answer.
const minTranscriptLen = 3

// IsFiller reports whether text should be treated as no answer at all.
func IsFiller(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	if fillerSet[t] || utf8.RuneCountInString(t) < minTranscriptLen {
		return true
	}
	b := bare(t)
	if b == "" || fillerSet[b] {
		return true
	}
	for _, f := range fuzzyFillers {
		if matchr.Levenshtein(b, f) <= 1 {
			return true
		}
	}
	return false
}

// bare drops punctuation and collapses whitespace.
func bare(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// Transcriber wraps an [stt.Provider] with a bounded retry and the filler
// filter.
type Transcriber struct {
	stt    stt.Provider
	policy resilience.Policy
}

// NewTranscriber returns a Transcriber over p. Failover across providers is
// the job of p itself (see resilience.STTGroup).
func NewTranscriber(p stt.Provider, policy resilience.Policy) *Transcriber {
	if policy.Name == "" {
		policy.Name = "stt.transcribe"
	}
	return &Transcriber{stt: p, policy: policy}
}

// Transcribe returns the candidate's words and true, or "" and false when the
// audio could not be transcribed or contained only filler. Provider errors
// are logged, never returned.
func (t *Transcriber) Transcribe(ctx context.Context, pcm []byte, sampleRate int) (string, bool) {
	if len(pcm) == 0 {
		return "", false
	}
	text, err := resilience.RetryValue(ctx, t.policy, func(ctx context.Context) (string, error) {
		text, err := t.stt.Transcribe(ctx, pcm, sampleRate)
		if errors.Is(err, stt.ErrEmptyAudio) {
			return "", resilience.Permanent(err)
		}
		return text, err
	})
	if err != nil {
		slog.Warn("transcription failed", "err", err)
		return "", false
	}
	text = strings.TrimSpace(text)
	if IsFiller(text) {
		slog.Debug("transcript rejected as filler", "text", text)
		return "", false
	}
	return text, true
}
