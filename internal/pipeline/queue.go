package pipeline

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/MrWong99/intervox/internal/observe"
	"github.com/MrWong99/intervox/internal/speech"
	"github.com/MrWong99/intervox/pkg/audio"
)

// DefaultQueueSize is the frame queue capacity: 10s of 20ms frames.
const DefaultQueueSize = 500

// Drop reasons reported to metrics.
const (
	dropMuted = "muted"
	dropFull  = "full"
)

// FrameQueue is the bounded hand-off between the capture callback and the
// coordinator. Offer never blocks.
type FrameQueue struct {
	ch      chan audio.AudioFrame
	lock    *speech.Interlock
	metrics *observe.Metrics

	muted atomic.Int64
	full  atomic.Int64
}

// NewFrameQueue returns a queue holding at most size frames that drops
// everything offered while lock is muted. A nil lock never mutes.
func NewFrameQueue(size int, lock *speech.Interlock, m *observe.Metrics) *FrameQueue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &FrameQueue{ch: make(chan audio.AudioFrame, size), lock: lock, metrics: m}
}

// Offer enqueues f. It returns false when f was dropped, either because the
// interviewer is speaking or because the queue is full.
func (q *FrameQueue) Offer(f audio.AudioFrame) bool {
	if q.lock != nil && q.lock.Muted() {
		q.muted.Add(1)
		q.metrics.RecordFrameDropped(context.Background(), dropMuted)
		return false
	}
	select {
	case q.ch <- f:
		return true
	default:
		q.full.Add(1)
		q.metrics.RecordFrameDropped(context.Background(), dropFull)
		return false
	}
}

// Next waits up to timeout for a frame. It returns false on timeout or when
// ctx ends.
func (q *FrameQueue) Next(ctx context.Context, timeout time.Duration) (audio.AudioFrame, bool) {
	select {
	case f := <-q.ch:
		return f, true
	default:
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case f := <-q.ch:
		return f, true
	case <-t.C:
		return audio.AudioFrame{}, false
	case <-ctx.Done():
		return audio.AudioFrame{}, false
	}
}

// Len returns the number of queued frames.
func (q *FrameQueue) Len() int { return len(q.ch) }

// Dropped returns the frames dropped while muted and while full.
func (q *FrameQueue) Dropped() (muted, full int64) {
	return q.muted.Load(), q.full.Load()
}
