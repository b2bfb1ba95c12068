// Package ratelimit bounds the number of vendor API calls in flight at once.
//
// It limits concurrency, not requests per second. Vendor throttling still
// surfaces as a RateLimitError from the client.
package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// DefaultConcurrency is the ceiling of the process-wide limiter.
const DefaultConcurrency = 10

// Limiter is a counting semaphore around outbound calls.
type Limiter struct {
	sem      *semaphore.Weighted
	size     int64
	inFlight atomic.Int64
}

// New returns a limiter allowing at most n concurrent calls.
func New(n int) *Limiter {
	if n < 1 {
		n = 1
	}
	return &Limiter{
		sem:  semaphore.NewWeighted(int64(n)),
		size: int64(n),
	}
}

var (
	defaultOnce    sync.Once
	defaultLimiter *Limiter
)

// Default returns the limiter shared by every vendor client in the process.
func Default() *Limiter {
	defaultOnce.Do(func() {
		defaultLimiter = New(DefaultConcurrency)
	})
	return defaultLimiter
}

// Do waits for a free slot and runs fn. Waiting is abandoned if ctx ends;
// fn itself is never interrupted.
func (l *Limiter) Do(ctx context.Context, fn func() error) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	l.inFlight.Add(1)
	defer func() {
		l.inFlight.Add(-1)
		l.sem.Release(1)
	}()
	return fn()
}

// InFlight reports how many calls currently hold a slot.
func (l *Limiter) InFlight() int {
	return int(l.inFlight.Load())
}

// Size reports the concurrency ceiling.
func (l *Limiter) Size() int {
	return int(l.size)
}
