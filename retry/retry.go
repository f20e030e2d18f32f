// Package retry provides the retry policy shared by every external call site
// (price history, scores, universe lists).
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Policy describes how many times a call is attempted and how long to wait
// between attempts. The zero value is not useful; start from Default.
type Policy struct {
	Attempts    int           // total attempts, including the first
	Delay       time.Duration // base delay between attempts
	MaxDelay    time.Duration // cap for exponential backoff, 0 means no cap
	Exponential bool          // double the delay after every failed attempt

	// OnRetry, when set, is called after each failed attempt that will be
	// retried.
	OnRetry func(op string, attempt int, err error)

	// Sleep waits for d or until ctx is done. Tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error

	Logger zerolog.Logger
}

// Default is three attempts two seconds apart.
func Default() Policy {
	return Policy{
		Attempts: 3,
		Delay:    2 * time.Second,
		MaxDelay: 30 * time.Second,
	}
}

// Backoff returns the delay before attempt n+1, given that attempt n (1-based)
// just failed.
func (p Policy) Backoff(n int) time.Duration {
	d := p.Delay
	if !p.Exponential {
		return d
	}
	for i := 1; i < n; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

type permanent struct{ err error }

func (p permanent) Error() string { return p.err.Error() }
func (p permanent) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying. Do returns it immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanent{err}
}

// ExhaustedError is returned when every attempt failed.
type ExhaustedError struct {
	Op       string
	Attempts int
	Err      error // last failure
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: giving up after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Do calls fn until it succeeds, returns a permanent error, ctx is done, or
// the attempts run out.
func (p Policy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var last error
	for n := 1; n <= attempts; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		last = fn(ctx)
		if last == nil {
			return nil
		}

		var perm permanent
		if errors.As(last, &perm) {
			return perm.err
		}
		if n == attempts {
			break
		}

		wait := p.Backoff(n)
		p.Logger.Debug().
			Str("op", op).
			Int("attempt", n).
			Dur("wait", wait).
			Err(last).
			Msg("retrying")
		if p.OnRetry != nil {
			p.OnRetry(op, n, last)
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}

	return &ExhaustedError{Op: op, Attempts: attempts, Err: last}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
