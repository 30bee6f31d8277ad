package fetch

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Default retry policy.
const (
	// DefaultMaxAttempts is the number of attempts, the first one included.
	DefaultMaxAttempts = 3

	// DefaultBackoffBase is the wait after the first failed attempt.
	// Each further wait doubles.
	DefaultBackoffBase = 100 * time.Millisecond
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// RetryingFetcher retries network failures of another Fetcher.
//
// Attempt i (counting from 0) that fails with a *NetworkError is followed by a
// wait of 2^i * base before the next attempt. There is no wait after the last
// attempt. Any other error is returned immediately.
//
// Design decision: Retrying is a decorator over Fetcher rather than a loop
// inside HTTPFetcher. Only *NetworkError is transient; protocol, size and
// decode errors fail the same way on every attempt. The wait goes through
// SleepFunc so tests can record delays without sleeping.
type RetryingFetcher struct {
	next        Fetcher
	maxAttempts int
	backoffBase time.Duration
	sleep       SleepFunc
	logger      *slog.Logger
}

// RetryOption configures a RetryingFetcher.
type RetryOption func(*RetryingFetcher)

// WithMaxAttempts sets the number of attempts. Values below 1 are ignored.
func WithMaxAttempts(n int) RetryOption {
	return func(f *RetryingFetcher) {
		if n >= 1 {
			f.maxAttempts = n
		}
	}
}

// WithBackoffBase sets the first backoff delay.
func WithBackoffBase(d time.Duration) RetryOption {
	return func(f *RetryingFetcher) {
		f.backoffBase = d
	}
}

// WithSleep replaces the wait function.
func WithSleep(sleep SleepFunc) RetryOption {
	return func(f *RetryingFetcher) {
		f.sleep = sleep
	}
}

// WithRetryLogger sets the logger used to report retries.
func WithRetryLogger(logger *slog.Logger) RetryOption {
	return func(f *RetryingFetcher) {
		f.logger = logger
	}
}

// NewRetryingFetcher wraps next with the default policy adjusted by opts.
func NewRetryingFetcher(next Fetcher, opts ...RetryOption) *RetryingFetcher {
	f := &RetryingFetcher{
		next:        next,
		maxAttempts: DefaultMaxAttempts,
		backoffBase: DefaultBackoffBase,
		sleep:       sleepContext,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch implements Fetcher.
func (f *RetryingFetcher) Fetch(ctx context.Context, rawURL, method string) (*Response, error) {
	var last error
	for attempt := 0; attempt < f.maxAttempts; attempt++ {
		resp, err := f.next.Fetch(ctx, rawURL, method)
		if err == nil {
			return resp, nil
		}

		var netErr *NetworkError
		if !errors.As(err, &netErr) {
			return nil, err
		}
		last = err

		if attempt == f.maxAttempts-1 {
			break
		}

		delay := f.Backoff(attempt)
		f.logger.Debug("retrying request",
			"method", method,
			"url", rawURL,
			"attempt", attempt+1,
			"delay", delay,
			"error", err,
		)
		if err := f.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, &RetriesExhaustedError{
		URL:      rawURL,
		Method:   method,
		Attempts: f.maxAttempts,
		Last:     last,
	}
}

// Backoff returns the wait after the failed attempt with the given index.
func (f *RetryingFetcher) Backoff(attempt int) time.Duration {
	return f.backoffBase << attempt
}

// sleepContext is the default SleepFunc.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
