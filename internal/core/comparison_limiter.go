package core

// comparison_limiter.go bounds how many comparisons run at once.
//
// Loading two files and building value multisets holds both tables in
// memory, so parallel comparisons are capped. Callers that cannot get a slot
// within maxWait fail with ErrTooManyComparisons. WaitForDrain lets shutdown
// wait for running comparisons.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrTooManyComparisons is returned when every comparison slot stays busy
// for the whole wait period.
var ErrTooManyComparisons = errors.New("too many concurrent comparisons, please try again later")

const (
	// DefaultMaxConcurrentComparisons is used when the configured limit is not positive.
	DefaultMaxConcurrentComparisons = 5

	// DefaultMaxWaitTime is how long Acquire waits for a slot.
	DefaultMaxWaitTime = 30 * time.Second
)

// ComparisonLimiter is a weighted semaphore with a bounded wait.
type ComparisonLimiter struct {
	sem     *semaphore.Weighted
	max     int
	maxWait time.Duration
	active  atomic.Int64
}

// NewComparisonLimiter allows at most maxConcurrent comparisons at a time.
func NewComparisonLimiter(maxConcurrent int, maxWait time.Duration) *ComparisonLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentComparisons
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	return &ComparisonLimiter{
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		max:     maxConcurrent,
		maxWait: maxWait,
	}
}

// Acquire takes a slot, waiting up to maxWait. A cancelled ctx returns its
// error; an expired wait returns ErrTooManyComparisons. Call Release after
// a nil return.
func (l *ComparisonLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	if err := l.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyComparisons
	}
	l.active.Add(1)
	return nil
}

// TryAcquire takes a slot only if one is free right now.
func (l *ComparisonLimiter) TryAcquire() bool {
	if !l.sem.TryAcquire(1) {
		return false
	}
	l.active.Add(1)
	return true
}

// Release returns a slot taken by Acquire or TryAcquire.
func (l *ComparisonLimiter) Release() {
	l.active.Add(-1)
	l.sem.Release(1)
}

// ActiveCount returns the number of running comparisons.
func (l *ComparisonLimiter) ActiveCount() int {
	return int(l.active.Load())
}

// MaxConcurrent returns the slot count.
func (l *ComparisonLimiter) MaxConcurrent() int {
	return l.max
}

// Available returns the number of free slots.
func (l *ComparisonLimiter) Available() int {
	return l.max - l.ActiveCount()
}

// WaitForDrain blocks until no comparison is running or ctx is done.
func (l *ComparisonLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for l.ActiveCount() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// LimiterStatus is a point-in-time view of the limiter.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status reports current slot usage.
func (l *ComparisonLimiter) Status() LimiterStatus {
	active := l.ActiveCount()
	return LimiterStatus{
		Active:        active,
		Available:     l.max - active,
		MaxConcurrent: l.max,
	}
}
