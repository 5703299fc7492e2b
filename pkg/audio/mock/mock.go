// Package mock provides an in-memory [audio.Device] for unit tests.
//
// The device records every Play call and lets the test push captured frames
// at will through [Device.Emit]:
//
//	dev := &mock.Device{}
//	_ = dev.Start(ctx, queue.Offer)
//	dev.Emit(frame)
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/intervox/pkg/audio"
)

// PlayCall records a single invocation of Play.
type PlayCall struct {
	PCM        []byte
	SampleRate int
}

// Device is a mock implementation of [audio.Device]. It is safe for
// concurrent use.
type Device struct {
	mu      sync.Mutex
	onFrame func(audio.AudioFrame)
	closed  bool

	// StartErr, if non-nil, is returned by Start.
	StartErr error

	// PlayErr, if non-nil, is returned by Play after the call is recorded.
	PlayErr error

	// OnPlay, if set, runs synchronously inside Play before it returns. Tests
	// use it to observe state (for example the mute interlock) during playback
	// or to inject frames while the device is "speaking".
	OnPlay func(pcm []byte)

	// PlayCalls records every Play invocation in order.
	PlayCalls []PlayCall

	// StartCount is the number of successful Start calls.
	StartCount int

	// CloseCount is the number of Close calls.
	CloseCount int
}

// Start stores onFrame so that later Emit calls reach it.
func (d *Device) Start(_ context.Context, onFrame func(audio.AudioFrame)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.StartErr != nil {
		return d.StartErr
	}
	d.onFrame = onFrame
	d.StartCount++
	return nil
}

// Emit delivers frames to the registered capture callback. It is a no-op
// before Start or after Close.
func (d *Device) Emit(frames ...audio.AudioFrame) {
	d.mu.Lock()
	cb := d.onFrame
	closed := d.closed
	d.mu.Unlock()
	if cb == nil || closed {
		return
	}
	for _, f := range frames {
		cb(f)
	}
}

// Play records the call, runs OnPlay and returns PlayErr.
func (d *Device) Play(ctx context.Context, pcm []byte, sampleRate int) error {
	d.mu.Lock()
	buf := make([]byte, len(pcm))
	copy(buf, pcm)
	d.PlayCalls = append(d.PlayCalls, PlayCall{PCM: buf, SampleRate: sampleRate})
	hook := d.OnPlay
	err := d.PlayErr
	d.mu.Unlock()

	if hook != nil {
		hook(pcm)
	}
	if err != nil {
		return err
	}
	return ctx.Err()
}

// Close marks the device closed. Subsequent Emit calls are dropped.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.CloseCount++
	return nil
}

// Plays returns a snapshot of the recorded Play calls.
func (d *Device) Plays() []PlayCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]PlayCall, len(d.PlayCalls))
	copy(out, d.PlayCalls)
	return out
}

var _ audio.Device = (*Device)(nil)
