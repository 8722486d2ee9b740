package cache

import (
	"context"
	"errors"
	"time"
)

// ErrBackend marks failures of a remote cache backend (connection refused,
// timeouts). Callers degrade to a cache miss instead of failing the run.
var ErrBackend = errors.New("cache backend unavailable")

// RetryableError marks an error worth another attempt.
type RetryableError struct{ Err error }

// Retryable wraps err. It returns nil for a nil err.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

func (e *RetryableError) Error() string { return e.Err.Error() }

func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable reports whether err was wrapped with Retryable.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// retry calls fn up to attempts times, doubling delay after each retryable
// failure. Non-retryable errors are returned at once.
func retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	var last error
	for i := 0; i < attempts; i++ {
		if last = fn(); last == nil {
			return nil
		}
		if !IsRetryable(last) {
			return last
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
	return last
}
