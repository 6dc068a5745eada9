// Package ratelimit bounds concurrent requests to the translation endpoint
// and spaces them out.
package ratelimit

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/oukeidos/mdtrans/internal/apperrors"
	"golang.org/x/sync/semaphore"
)

// PacingFloor is the smallest delay that is actually slept after acquiring
// a permit. Shorter delays are skipped.
const PacingFloor = 100 * time.Millisecond

// ErrClosed is the cause carried by acquisition failures after Close.
var ErrClosed = errors.New("rate limiter closed")

// sleep is swapped in tests.
var sleep = func(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Limiter is shared by every worker of a service instance.
type Limiter struct {
	sem     *semaphore.Weighted
	permits int64
	delay   time.Duration

	closeOnce sync.Once
	closed    chan struct{}
}

// New creates a limiter allowing ceil(rps*2) concurrent holders and a
// pacing delay of 500ms/rps.
func New(requestsPerSecond float64) *Limiter {
	if requestsPerSecond <= 0 || math.IsNaN(requestsPerSecond) || math.IsInf(requestsPerSecond, 0) {
		requestsPerSecond = 1
	}
	permits := int64(math.Ceil(requestsPerSecond * 2))
	if permits < 1 {
		permits = 1
	}
	delay := time.Duration(float64(500*time.Millisecond) / requestsPerSecond)
	return &Limiter{
		sem:     semaphore.NewWeighted(permits),
		permits: permits,
		delay:   delay,
		closed:  make(chan struct{}),
	}
}

// Permits returns the concurrency cap.
func (l *Limiter) Permits() int { return int(l.permits) }

// Delay returns the configured pacing delay.
func (l *Limiter) Delay() time.Duration { return l.delay }

// Acquire blocks until a permit is free, then applies the pacing delay.
// The returned release func must be called once the request is finished;
// it is safe to call more than once.
func (l *Limiter) Acquire(ctx context.Context) (func(), error) {
	select {
	case <-l.closed:
		return nil, apperrors.RateLimit(ErrClosed)
	default:
	}

	acquireCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-l.closed:
			cancel()
		case <-acquireCtx.Done():
		}
	}()

	if err := l.sem.Acquire(acquireCtx, 1); err != nil {
		if l.isClosed() {
			return nil, apperrors.RateLimit(ErrClosed)
		}
		return nil, err
	}

	var once sync.Once
	release := func() {
		once.Do(func() { l.sem.Release(1) })
	}

	if l.delay > PacingFloor {
		if err := sleep(ctx, l.delay); err != nil {
			release()
			return nil, err
		}
	}
	return release, nil
}

// Close permanently shuts the pool. Pending and later Acquire calls fail
// with a rate-limit error; permits already handed out stay valid.
func (l *Limiter) Close() {
	l.closeOnce.Do(func() { close(l.closed) })
}

func (l *Limiter) isClosed() bool {
	select {
	case <-l.closed:
		return true
	default:
		return false
	}
}
