package retry

import (
	"context"
	"errors"
	"time"
)

// Policy bounds how often and how patiently an operation is retried.
type Policy struct {
	Attempts   int           // total attempts, including the first one
	Backoff    time.Duration // wait before the second attempt, doubled afterwards
	MaxBackoff time.Duration // 0 means no cap
}

// DefaultPolicy matches three attempts with 1s, 2s waits in between.
var DefaultPolicy = Policy{Attempts: 3, Backoff: time.Second, MaxBackoff: 8 * time.Second}

type stopError struct {
	err error
}

func (e *stopError) Error() string { return e.err.Error() }
func (e *stopError) Unwrap() error { return e.err }

// Stop marks err as final: Do returns it without further attempts.
func Stop(err error) error {
	if err == nil {
		return nil
	}
	return &stopError{err: err}
}

// Do runs fn until it succeeds, returns a Stop error, the attempts run out or
// ctx is done. The returned error is never wrapped by Stop.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	wait := p.Backoff

	var lastErr error
	for i := 0; i < attempts; i++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		var stop *stopError
		if errors.As(err, &stop) {
			return stop.err
		}
		lastErr = err

		if i == attempts-1 {
			break
		}
		if ctx.Err() != nil {
			return lastErr
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		case <-timer.C:
		}

		wait *= 2
		if p.MaxBackoff > 0 && wait > p.MaxBackoff {
			wait = p.MaxBackoff
		}
	}
	return lastErr
}
