// Package mock provides a scriptable [vad.Classifier] for tests.
package mock

import (
	"sync"

	"github.com/MrWong99/intervox/pkg/provider/vad"
)

// Classifier is a mock implementation of [vad.Classifier].
//
// If Func is set it decides every frame. Otherwise a frame is speech when its
// first byte is non-zero, which lets tests build frames by hand.
type Classifier struct {
	mu sync.Mutex

	// Func, if set, is called for every frame.
	Func func(frame []byte) (bool, error)

	// Calls is the number of IsSpeech invocations.
	Calls int
}

// IsSpeech records the call and classifies frame.
func (c *Classifier) IsSpeech(frame []byte) (bool, error) {
	c.mu.Lock()
	c.Calls++
	fn := c.Func
	c.mu.Unlock()
	if fn != nil {
		return fn(frame)
	}
	return len(frame) > 0 && frame[0] != 0, nil
}

// CallCount returns the number of IsSpeech invocations.
func (c *Classifier) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Calls
}

var _ vad.Classifier = (*Classifier)(nil)
