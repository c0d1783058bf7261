// Package retry wraps flaky upstream calls in exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"
)

// ExponentialBackoffRetryer retries a function with exponential backoff and jitter.
type ExponentialBackoffRetryer struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	multiplier float64
	jitter     bool
	retryable  func(error) bool
}

// Option customizes a retryer.
type Option func(*ExponentialBackoffRetryer)

// WithMaxRetries sets how many retries follow the first attempt.
func WithMaxRetries(n int) Option {
	return func(r *ExponentialBackoffRetryer) { r.maxRetries = n }
}

// WithDelays sets the base and maximum wait between attempts.
func WithDelays(base, max time.Duration) Option {
	return func(r *ExponentialBackoffRetryer) {
		r.baseDelay = base
		r.maxDelay = max
	}
}

// WithoutJitter makes delays deterministic.
func WithoutJitter() Option {
	return func(r *ExponentialBackoffRetryer) { r.jitter = false }
}

// WithRetryable limits retries to errors the predicate accepts.
func WithRetryable(fn func(error) bool) Option {
	return func(r *ExponentialBackoffRetryer) { r.retryable = fn }
}

// Permanent marks an error that must not be retried.
type Permanent struct{ Err error }

func (p *Permanent) Error() string { return p.Err.Error() }
func (p *Permanent) Unwrap() error { return p.Err }

// Stop wraps err so the retryer gives up immediately.
func Stop(err error) error {
	if err == nil {
		return nil
	}
	return &Permanent{Err: err}
}

// New creates a retryer with sensible defaults for API calls.
func New(opts ...Option) *ExponentialBackoffRetryer {
	r := &ExponentialBackoffRetryer{
		maxRetries: 3,
		baseDelay:  250 * time.Millisecond,
		maxDelay:   5 * time.Second,
		multiplier: 2.0,
		jitter:     true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retry executes fn until it succeeds, the context ends, or attempts run out.
func (r *ExponentialBackoffRetryer) Retry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		var perm *Permanent
		if errors.As(err, &perm) {
			return perm.Err
		}
		if r.retryable != nil && !r.retryable(err) {
			return err
		}
		if attempt == r.maxRetries {
			break
		}

		delay := r.calculateDelay(attempt)
		slog.DebugContext(ctx, "Retry attempt failed, waiting before next attempt",
			"attempt", attempt+1, "max_attempts", r.maxRetries+1,
			"delay_ms", delay.Milliseconds(), "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("operation failed after %d attempts: %w", r.maxRetries+1, lastErr)
}

func (r *ExponentialBackoffRetryer) calculateDelay(attempt int) time.Duration {
	delay := float64(r.baseDelay) * math.Pow(r.multiplier, float64(attempt))
	if delay > float64(r.maxDelay) {
		delay = float64(r.maxDelay)
	}

	if r.jitter {
		// up to 25% extra
		delay += rand.Float64() * delay * 0.25
	}

	return time.Duration(delay)
}
