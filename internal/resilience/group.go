package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrAllFailed is returned when every member of a [Group] failed or was
// skipped because its breaker was open.
var ErrAllFailed = errors.New("resilience: all providers failed")

// Member is one provider inside a [Group].
type Member[T any] struct {
	Name  string
	Value T

	// Timeout bounds each call to this member when positive.
	Timeout time.Duration

	breaker *Breaker
}

// Breaker exposes the member's circuit breaker.
func (m *Member[T]) Breaker() *Breaker { return m.breaker }

// Group tries its members in registration order. The first member is the
// primary; the rest are fallbacks.
type Group[T any] struct {
	cfg     BreakerConfig
	members []*Member[T]

	// OnFailover, if set, is called whenever a member fails and the group
	// moves on to the next one.
	OnFailover func(ctx context.Context, from, to string, err error)
}

// NewGroup creates a Group with primary as its first member. cfg is the
// template for every member's breaker; its Name is replaced by the member
// name.
func NewGroup[T any](primaryName string, primary T, cfg BreakerConfig) *Group[T] {
	g := &Group[T]{cfg: cfg}
	g.Add(primaryName, primary)
	return g
}

// Add appends a fallback member.
func (g *Group[T]) Add(name string, v T) {
	g.AddWithTimeout(name, v, 0)
}

// AddWithTimeout appends a fallback member whose calls are bounded by d.
func (g *Group[T]) AddWithTimeout(name string, v T, d time.Duration) {
	bc := g.cfg
	bc.Name = name
	g.members = append(g.members, &Member[T]{Name: name, Value: v, Timeout: d, breaker: NewBreaker(bc)})
}

// Members returns the members in order.
func (g *Group[T]) Members() []*Member[T] { return g.members }

// Len returns the member count.
func (g *Group[T]) Len() int { return len(g.members) }

// Do runs fn against each member until one succeeds and returns its result.
// A cancelled ctx stops the walk immediately.
func Do[T, R any](ctx context.Context, g *Group[T], fn func(context.Context, T) (R, error)) (R, error) {
	var zero R
	var last error
	for i, m := range g.members {
		var out R
		err := m.breaker.Do(ctx, func(ctx context.Context) error {
			if m.Timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, m.Timeout)
				defer cancel()
			}
			var err error
			out, err = fn(ctx, m.Value)
			return err
		})
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return zero, err
		}
		last = err
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("provider skipped, circuit open", "provider", m.Name)
		} else {
			slog.Warn("provider failed", "provider", m.Name, "err", err)
		}
		if i+1 < len(g.members) && g.OnFailover != nil {
			g.OnFailover(ctx, m.Name, g.members[i+1].Name, err)
		}
	}
	if last == nil {
		return zero, ErrAllFailed
	}
	return zero, fmt.Errorf("%w: %w", ErrAllFailed, last)
}
