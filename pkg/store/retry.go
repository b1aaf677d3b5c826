package store

import (
	"context"
	"errors"
	"time"
)

// Transient wraps a failure that may succeed on a later attempt, such as a
// refused connection while a server is starting. [Retry] only repeats
// operations that fail with a Transient error.
type Transient struct{ Err error }

func (e *Transient) Error() string { return e.Err.Error() }
func (e *Transient) Unwrap() error { return e.Err }

// Retry runs fn up to attempts times, doubling delay after each
// [Transient] failure. Other errors are returned immediately. It returns
// the last error when every attempt fails, or ctx.Err() if ctx ends while
// waiting.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	var lastErr error

	for i := range attempts {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !errors.As(err, new(*Transient)) {
			return err
		}

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	var t *Transient
	if errors.As(lastErr, &t) {
		return t.Err
	}
	return lastErr
}

// Connect retries a backend connection check three times starting at a
// 250ms delay. Every failure of ping counts as transient.
func Connect(ctx context.Context, ping func(context.Context) error) error {
	return Retry(ctx, 3, 250*time.Millisecond, func() error {
		if err := ping(ctx); err != nil {
			return &Transient{Err: err}
		}
		return nil
	})
}
