// Package local implements [audio.Device] on the host's default microphone and
// speaker. Capture uses miniaudio through malgo; playback uses oto.
//
// Captured audio is re-chunked into exact frames with [audio.Framer] before it
// reaches the pipeline, so the callback never sees a partial frame even when
// the backend delivers periods of a different size.
package local

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/gen2brain/malgo"

	"github.com/MrWong99/intervox/pkg/audio"
)

// playbackRate is the sample rate of the shared oto context. TTS output at
// other rates is resampled to it.
const playbackRate = 24000

// otoOnce guards the process-wide oto context; oto allows only one.
var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoErr  error
)

// Option configures a [Device].
type Option func(*Device)

// WithPlaybackPoll sets how often Play checks whether the player has drained.
// Default: 20 ms.
func WithPlaybackPoll(d time.Duration) Option {
	return func(dev *Device) {
		if d > 0 {
			dev.poll = d
		}
	}
}

// WithCaptureDevice selects the capture device whose name contains name.
// Empty selects the system default.
func WithCaptureDevice(name string) Option {
	return func(dev *Device) { dev.captureName = name }
}

// Device is the local microphone/speaker pair.
type Device struct {
	sampleRate  int
	frameMs     int
	poll        time.Duration
	captureName string

	mu      sync.Mutex
	mctx    *malgo.AllocatedContext
	capture *malgo.Device
	framer  *audio.Framer
	closed  bool
}

// New returns a local device capturing mono s16le at sampleRate, delivered in
// frameMs-millisecond frames. Hardware is not touched until Start.
func New(sampleRate, frameMs int, opts ...Option) (*Device, error) {
	if sampleRate <= 0 || frameMs <= 0 {
		return nil, fmt.Errorf("local audio: invalid format %d Hz / %d ms", sampleRate, frameMs)
	}
	d := &Device{
		sampleRate: sampleRate,
		frameMs:    frameMs,
		poll:       20 * time.Millisecond,
		framer:     audio.NewFramer(sampleRate, frameMs),
	}
	for _, o := range opts {
		o(d)
	}
	return d, nil
}

// Start opens the default capture device and begins delivering frames.
func (d *Device) Start(ctx context.Context, onFrame func(audio.AudioFrame)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return errors.New("local audio: device closed")
	}
	if d.capture != nil {
		return errors.New("local audio: already started")
	}

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(msg string) {
		slog.Debug("malgo", "msg", msg)
	})
	if err != nil {
		return fmt.Errorf("local audio: init context: %w", err)
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatS16
	cfg.Capture.Channels = 1
	cfg.SampleRate = uint32(d.sampleRate)
	cfg.PeriodSizeInMilliseconds = uint32(d.frameMs)
	if d.captureName != "" {
		id, err := findCapture(mctx, d.captureName)
		if err != nil {
			_ = mctx.Uninit()
			mctx.Free()
			return err
		}
		cfg.Capture.DeviceID = id.Pointer()
	}

	// The framer is only touched from the capture thread.
	framer := d.framer
	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			framer.Write(input, onFrame)
		},
	}

	dev, err := malgo.InitDevice(mctx.Context, cfg, callbacks)
	if err != nil {
		_ = mctx.Uninit()
		mctx.Free()
		return fmt.Errorf("local audio: init capture device: %w", err)
	}
	if err := dev.Start(); err != nil {
		dev.Uninit()
		_ = mctx.Uninit()
		mctx.Free()
		return fmt.Errorf("local audio: start capture: %w", err)
	}
	d.mctx = mctx
	d.capture = dev

	go func() {
		<-ctx.Done()
		_ = d.Close()
	}()

	slog.Info("local audio capture started", "sample_rate", d.sampleRate, "frame_ms", d.frameMs, "device", d.captureName)
	return nil
}

// findCapture looks up a capture device by case-insensitive name substring.
func findCapture(mctx *malgo.AllocatedContext, name string) (malgo.DeviceID, error) {
	infos, err := mctx.Devices(malgo.Capture)
	if err != nil {
		return malgo.DeviceID{}, fmt.Errorf("local audio: list capture devices: %w", err)
	}
	want := strings.ToLower(name)
	for _, info := range infos {
		if strings.Contains(strings.ToLower(info.Name()), want) {
			return info.ID, nil
		}
	}
	return malgo.DeviceID{}, fmt.Errorf("local audio: no capture device matching %q", name)
}

// Play renders pcm through the default output and blocks until the player
// has drained or ctx is cancelled.
func (d *Device) Play(ctx context.Context, pcm []byte, sampleRate int) error {
	octx, err := playbackContext()
	if err != nil {
		return err
	}
	data := audio.ResampleMono16(pcm, sampleRate, playbackRate)

	p := octx.NewPlayer(bytes.NewReader(data))
	defer p.Close()
	p.Play()

	t := time.NewTicker(d.poll)
	defer t.Stop()
	for p.IsPlaying() {
		select {
		case <-ctx.Done():
			p.Pause()
			return ctx.Err()
		case <-t.C:
		}
	}
	return p.Err()
}

// Close stops capture and releases the miniaudio context.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	if d.capture != nil {
		_ = d.capture.Stop()
		d.capture.Uninit()
		d.capture = nil
	}
	if d.mctx != nil {
		_ = d.mctx.Uninit()
		d.mctx.Free()
		d.mctx = nil
	}
	return nil
}

func playbackContext() (*oto.Context, error) {
	otoOnce.Do(func() {
		c, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   playbackRate,
			ChannelCount: 1,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   100 * time.Millisecond,
		})
		if err != nil {
			otoErr = fmt.Errorf("local audio: init playback: %w", err)
			return
		}
		<-ready
		otoCtx = c
	})
	return otoCtx, otoErr
}

var _ audio.Device = (*Device)(nil)
