package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/MrWong99/intervox/pkg/audio"
)

// WAVSink writes each utterance to dir as {id}_turn_{n}.wav.
type WAVSink struct {
	dir string
	id  string
}

var _ AudioSink = (*WAVSink)(nil)

// NewWAVSink creates dir if needed and returns a sink naming files after the
// interview id.
func NewWAVSink(dir, interviewID string) (*WAVSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("pipeline: create audio dir: %w", err)
	}
	id := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == os.PathSeparator {
			return '_'
		}
		return r
	}, interviewID)
	return &WAVSink{dir: dir, id: id}, nil
}

// Path returns the file an utterance n is written to.
func (s *WAVSink) Path(n int) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_turn_%d.wav", s.id, n))
}

// SaveUtterance implements [AudioSink].
func (s *WAVSink) SaveUtterance(_ context.Context, n int, u *Utterance) error {
	rate := u.SampleRate
	if rate <= 0 {
		rate = 16000
	}
	if err := os.WriteFile(s.Path(n), audio.EncodeWAV(u.PCM, rate, 1), 0o644); err != nil {
		return fmt.Errorf("pipeline: write utterance %d: %w", n, err)
	}
	return nil
}
