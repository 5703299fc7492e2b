package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrRetriesExhausted wraps the last error once every attempt has failed.
var ErrRetriesExhausted = errors.New("resilience: retries exhausted")

// Policy bounds a [Retry] loop.
type Policy struct {
	// Attempts is the total number of calls, including the first. Values
	// below one are treated as one.
	Attempts int

	// Backoff is the fixed pause between attempts.
	Backoff time.Duration

	// Name labels log lines.
	Name string
}

// DefaultPolicy makes two attempts one second apart.
var DefaultPolicy = Policy{Attempts: 2, Backoff: time.Second}

// permanentError marks an error that must not be retried.
type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent wraps err so that [Retry] returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retry calls fn until it succeeds, the attempts are used up, fn returns a
// [Permanent] error or ctx ends. After the last failed attempt it returns
// the error wrapped in [ErrRetriesExhausted].
func Retry(ctx context.Context, p Policy, fn func(context.Context) error) error {
	attempts := max(p.Attempts, 1)

	var last error
	for i := range attempts {
		if err := ctx.Err(); err != nil {
			if last != nil {
				return fmt.Errorf("%w: %w", ErrRetriesExhausted, last)
			}
			return err
		}
		last = fn(ctx)
		if last == nil {
			return nil
		}
		var pe *permanentError
		if errors.As(last, &pe) {
			return pe.err
		}
		if i == attempts-1 {
			break
		}
		slog.Debug("retrying after failure", "name", p.Name, "attempt", i+1, "err", last)
		if p.Backoff > 0 {
			t := time.NewTimer(p.Backoff)
			select {
			case <-ctx.Done():
				t.Stop()
				return fmt.Errorf("%w: %w", ErrRetriesExhausted, last)
			case <-t.C:
			}
		}
	}
	return fmt.Errorf("%w: %w", ErrRetriesExhausted, last)
}

// RetryValue is [Retry] for functions that return a value.
func RetryValue[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := Retry(ctx, p, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err == nil {
			out = v
		}
		return err
	})
	return out, err
}
