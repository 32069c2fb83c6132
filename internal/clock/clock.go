// Package clock provides cancellable deferred tasks on top of either the
// wall clock or a manually advanced clock, so debounce and retry logic can
// be driven deterministically in tests.
package clock

import (
	"context"
	"time"
)

// Timer is a scheduled task that can be cancelled
type Timer interface {
	// Stop cancels the task; it reports false if the task already ran or was stopped
	Stop() bool
}

// Clock schedules deferred tasks
type Clock interface {
	Now() time.Time
	// AfterFunc runs f in its own goroutine (or the advancing goroutine for
	// Manual) once d has elapsed
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

// Real returns the wall clock
func Real() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Sleep blocks for d on c, returning early with ctx's error if ctx ends first
func Sleep(ctx context.Context, c Clock, d time.Duration) error {
	done := make(chan struct{})
	t := c.AfterFunc(d, func() { close(done) })
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		t.Stop()
		return ctx.Err()
	}
}

// WithTimeout is context.WithTimeout measured on c.
// When the deadline passes the context is cancelled with context.DeadlineExceeded as cause.
func WithTimeout(parent context.Context, c Clock, d time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(parent)
	t := c.AfterFunc(d, func() { cancel(context.DeadlineExceeded) })
	return ctx, func() {
		t.Stop()
		cancel(context.Canceled)
	}
}

// TimedOut reports whether ctx ended because its WithTimeout deadline passed
func TimedOut(ctx context.Context) bool {
	return ctx.Err() != nil && context.Cause(ctx) == context.DeadlineExceeded
}
