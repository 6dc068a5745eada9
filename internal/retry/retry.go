// Package retry runs a single remote operation with bounded exponential
// backoff, acquiring the shared limiter before every attempt.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/oukeidos/mdtrans/internal/apperrors"
	"github.com/oukeidos/mdtrans/internal/logger"
)

// Policy controls how often and how patiently an operation is retried.
type Policy struct {
	MaxRetries        int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
}

// DefaultPolicy mirrors the conservative defaults used for DeepLX endpoints.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:        1,
		InitialDelay:      100 * time.Millisecond,
		MaxDelay:          time.Second,
		BackoffMultiplier: 1.2,
	}
}

// Validate rejects policies that could not terminate or would never wait.
func (p Policy) Validate() error {
	if p.MaxRetries < 0 {
		return fmt.Errorf("max retries must be 0 or greater, got %d", p.MaxRetries)
	}
	if p.InitialDelay < 0 || p.MaxDelay < 0 {
		return fmt.Errorf("retry delays must not be negative")
	}
	if p.BackoffMultiplier < 1 {
		return fmt.Errorf("backoff multiplier must be at least 1, got %v", p.BackoffMultiplier)
	}
	return nil
}

// NextDelay returns min(d*multiplier, MaxDelay).
func (p Policy) NextDelay(d time.Duration) time.Duration {
	next := time.Duration(float64(d) * p.BackoffMultiplier)
	if next > p.MaxDelay {
		return p.MaxDelay
	}
	return next
}

// Operation is one retryable remote call.
type Operation[T any] interface {
	Call(ctx context.Context) (T, error)
}

// OperationFunc adapts a plain function to Operation.
type OperationFunc[T any] func(ctx context.Context) (T, error)

func (f OperationFunc[T]) Call(ctx context.Context) (T, error) { return f(ctx) }

// Limiter gates every attempt. The release func is called when the attempt
// finishes.
type Limiter interface {
	Acquire(ctx context.Context) (release func(), err error)
}

// Attempt describes a failed attempt that is about to be retried.
type Attempt struct {
	Number    int // 1-based
	Err       error
	NextDelay time.Duration
}

// Options carries optional hooks for Do.
type Options struct {
	// OnRetry observes every failed attempt that will be retried.
	OnRetry func(Attempt)
}

// sleep is swapped in tests.
var sleep = func(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do invokes op at most policy.MaxRetries+1 times. Limiter errors and
// final errors (rate limit, generic) are returned immediately; otherwise the
// last operation error is returned unchanged.
func Do[T any](ctx context.Context, op Operation[T], policy Policy, limiter Limiter, opts ...Options) (T, error) {
	var zero T
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}
	maxRetries := policy.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	delay := policy.InitialDelay
	for attempt := 0; attempt <= maxRetries; attempt++ {
		release, err := limiter.Acquire(ctx)
		if err != nil {
			return zero, err
		}
		result, err := call(ctx, op, release)
		if err == nil {
			return result, nil
		}
		if attempt == maxRetries || ctx.Err() != nil || isFinal(err) {
			return zero, err
		}

		logger.Warn("Attempt failed, retrying",
			"attempt", attempt+1,
			"error", err,
			"next_delay", delay,
		)
		if o.OnRetry != nil {
			o.OnRetry(Attempt{Number: attempt + 1, Err: err, NextDelay: delay})
		}
		if serr := sleep(ctx, delay); serr != nil {
			return zero, serr
		}
		delay = policy.NextDelay(delay)
	}
	return zero, fmt.Errorf("retry loop exited without result")
}

// call releases the permit even if op panics.
func call[T any](ctx context.Context, op Operation[T], release func()) (T, error) {
	defer release()
	return op.Call(ctx)
}

// isFinal reports classified errors that another attempt cannot fix.
// Unclassified errors are retried.
func isFinal(err error) bool {
	if _, ok := apperrors.KindOf(err); !ok {
		return false
	}
	return !apperrors.IsRetryable(err)
}
