package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/MrWong99/intervox/internal/event"
	"github.com/MrWong99/intervox/internal/session"
	"github.com/MrWong99/intervox/pkg/audio"
)

// WebSocket close codes.
const (
	statusNotFound websocket.StatusCode = 4004
	statusConflict websocket.StatusCode = 4009
	statusError    websocket.StatusCode = 4000
)

const (
	// eventBuffer is the per-connection outbound event queue.
	eventBuffer = 64

	// playbackGrace is added to the clip length while waiting for the client
	// to report playback_complete.
	playbackGrace = 2 * time.Second

	writeTimeout = 5 * time.Second
	readLimit    = 1 << 20
)

// ErrDeviceClosed is returned by [WSDevice.Play] after the connection closed.
var ErrDeviceClosed = errors.New("api: websocket device closed")

// clientMessage is a JSON control message from the browser.
type clientMessage struct {
	Type string `json:"type"`
	Data string `json:"data,omitempty"`
}

// WSDevice is an [audio.Device] backed by a browser WebSocket. Captured audio
// arrives as binary messages of mono s16le PCM; synthesised speech leaves as
// an audio_format event followed by one binary message. It is also the
// [event.Sink] of its session.
type WSDevice struct {
	conn *websocket.Conn

	mu      sync.Mutex
	onFrame func(audio.AudioFrame)
	framer  *audio.Framer
	closed  bool
	events  chan event.Event

	playDone   chan struct{}
	writerDone chan struct{}
	closeOnce  sync.Once
}

var (
	_ audio.Device = (*WSDevice)(nil)
	_ event.Sink   = (*WSDevice)(nil)
)

// NewWSDevice wraps conn. Incoming PCM is cut into frameMs frames at
// sampleRate. The event writer runs until Close.
func NewWSDevice(conn *websocket.Conn, sampleRate, frameMs int) *WSDevice {
	d := &WSDevice{
		conn:       conn,
		framer:     audio.NewFramer(sampleRate, frameMs),
		events:     make(chan event.Event, eventBuffer),
		playDone:   make(chan struct{}, 1),
		writerDone: make(chan struct{}),
	}
	go d.writeEvents()
	return d
}

// Start implements [audio.Device].
func (d *WSDevice) Start(_ context.Context, onFrame func(audio.AudioFrame)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDeviceClosed
	}
	d.onFrame = onFrame
	return nil
}

// Feed hands received PCM to the capture callback. Audio received before
// Start is dropped.
func (d *WSDevice) Feed(pcm []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.onFrame == nil || d.closed {
		return
	}
	d.framer.Write(pcm, d.onFrame)
}

// Play sends pcm to the client and waits until the client reports that
// playback finished, the clip length plus a grace period has passed, or ctx
// ends.
func (d *WSDevice) Play(ctx context.Context, pcm []byte, sampleRate int) error {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return ErrDeviceClosed
	}

	select {
	case <-d.playDone:
	default:
	}

	format, err := json.Marshal(event.New(event.AudioFormat, "sample_rate", sampleRate, "channels", 1))
	if err != nil {
		return fmt.Errorf("api: encode audio format: %w", err)
	}
	if err := d.conn.Write(ctx, websocket.MessageText, format); err != nil {
		return fmt.Errorf("api: send audio format: %w", err)
	}
	if err := d.conn.Write(ctx, websocket.MessageBinary, pcm); err != nil {
		return fmt.Errorf("api: send audio: %w", err)
	}

	wait := time.NewTimer(audio.PCMDuration(pcm, sampleRate) + playbackGrace)
	defer wait.Stop()
	select {
	case <-d.playDone:
	case <-wait.C:
		slog.Debug("no playback_complete from client, continuing")
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// PlaybackComplete releases a pending Play.
func (d *WSDevice) PlaybackComplete() {
	select {
	case d.playDone <- struct{}{}:
	default:
	}
}

// Publish implements [event.Sink]. Events are dropped when the client is too
// slow to keep up.
func (d *WSDevice) Publish(e event.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	select {
	case d.events <- e:
	default:
		slog.Warn("websocket event dropped", "type", e.Type)
	}
}

func (d *WSDevice) writeEvents() {
	defer close(d.writerDone)
	for e := range d.events {
		b, err := json.Marshal(e)
		if err != nil {
			slog.Warn("encode event", "type", e.Type, "err", err)
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err = d.conn.Write(ctx, websocket.MessageText, b)
		cancel()
		if err != nil {
			slog.Debug("websocket event write failed", "type", e.Type, "err", err)
		}
	}
}

// Close stops capture and flushes queued events. It does not close the
// connection.
func (d *WSDevice) Close() error {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.onFrame = nil
		close(d.events)
		d.mu.Unlock()

		select {
		case <-d.writerDone:
		case <-time.After(writeTimeout):
		}
	})
	return nil
}

// ── Handler ─────────────────────────────────────────────────────────────────

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if s.auth != nil {
		if _, err := s.auth.Verify(r.URL.Query().Get("token")); err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: originPatterns(s.cfg.CORSOrigins),
	})
	if err != nil {
		slog.Warn("websocket accept failed", "interview_id", id, "err", err)
		return
	}
	conn.SetReadLimit(readLimit)

	if _, _, err := s.cfg.Service.Status(id); err != nil {
		conn.Close(statusNotFound, "Interview not found")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	dev := NewWSDevice(conn, s.cfg.SampleRate, s.cfg.FrameMs)
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		s.readLoop(ctx, conn, dev, id)
		// A disconnect is the session's stop signal.
		cancel()
	}()

	slog.Info("websocket connected", "interview_id", id)
	runErr := s.cfg.Service.Connect(ctx, id, dev, dev)

	code, reason := websocket.StatusNormalClosure, "interview ended"
	switch {
	case runErr == nil, errors.Is(runErr, context.Canceled):
	case errors.Is(runErr, ErrConflict):
		code, reason = statusConflict, "Interview already running"
		dev.Publish(event.Message(event.Error, runErr.Error()))
	case errors.Is(runErr, ErrUnknownSession):
		code, reason = statusNotFound, "Interview not found"
	default:
		code, reason = statusError, "Server error"
		dev.Publish(event.Message(event.Error, runErr.Error()))
		if errors.Is(runErr, session.ErrResource) && s.cfg.OnSessionError != nil {
			s.cfg.OnSessionError(ctx, id, runErr)
		}
		slog.Error("interview failed", "interview_id", id, "err", runErr)
	}

	_ = dev.Close()
	conn.Close(code, reason)
	<-readDone
	slog.Info("websocket closed", "interview_id", id)
}

func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, dev *WSDevice, id string) {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			if st := websocket.CloseStatus(err); st != websocket.StatusNormalClosure && st != websocket.StatusGoingAway && ctx.Err() == nil {
				slog.Debug("websocket read ended", "interview_id", id, "err", err)
			}
			return
		}
		if typ == websocket.MessageBinary {
			dev.Feed(data)
			continue
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			dev.Publish(event.Message(event.Error, "invalid message"))
			continue
		}
		switch msg.Type {
		case "ping":
			dev.Publish(event.New(event.Pong))
		case "end_interview":
			dev.Publish(event.Message(event.InterviewEnding, "Ending interview..."))
			go func() {
				if _, err := s.cfg.Service.End(context.WithoutCancel(ctx), id); err != nil {
					slog.Warn("end interview", "interview_id", id, "err", err)
				}
			}()
		case "audio_data":
			pcm, err := base64.StdEncoding.DecodeString(msg.Data)
			if err != nil {
				dev.Publish(event.Message(event.Error, "audio_data is not base64"))
				continue
			}
			dev.Feed(pcm)
		case "playback_complete":
			dev.PlaybackComplete()
		default:
			dev.Publish(event.Message(event.Error, fmt.Sprintf("unknown message type %q", msg.Type)))
		}
	}
}
