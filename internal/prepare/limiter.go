package prepare

// limiter.go bounds the number of preparation runs executing at once.
//
// Every run holds its tables fully in memory, so a server accepting uploads
// caps parallel runs with a semaphore. A caller that cannot get a slot
// within the wait time fails with ErrTooManyRuns. WaitForDrain blocks until
// the active runs finish and is used on shutdown.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrTooManyRuns is returned when every run slot stays occupied for the
// whole wait time.
var ErrTooManyRuns = errors.New("too many concurrent runs, please try again later")

// Defaults applied by NewLimiter for non-positive arguments.
const (
	DefaultMaxConcurrentRuns = 4
	DefaultRunWait           = 10 * time.Second
)

// Limiter is a counting semaphore for preparation runs.
type Limiter struct {
	slots  chan struct{}
	wait   time.Duration
	active atomic.Int64
}

// NewLimiter creates a limiter allowing maxConcurrent runs; callers wait at
// most wait for a slot.
func NewLimiter(maxConcurrent int, wait time.Duration) *Limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentRuns
	}
	if wait <= 0 {
		wait = DefaultRunWait
	}
	return &Limiter{
		slots: make(chan struct{}, maxConcurrent),
		wait:  wait,
	}
}

// Acquire takes a slot, waiting up to the limiter's wait time.
// Returns ctx.Err() when ctx ends first. Every successful Acquire must be
// paired with one Release.
func (l *Limiter) Acquire(ctx context.Context) error {
	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrTooManyRuns
	}
}

// TryAcquire takes a slot without waiting.
func (l *Limiter) TryAcquire() bool {
	select {
	case l.slots <- struct{}{}:
		l.active.Add(1)
		return true
	default:
		return false
	}
}

// Release returns a slot taken by Acquire or TryAcquire.
func (l *Limiter) Release() {
	l.active.Add(-1)
	<-l.slots
}

// LimiterStatus is a snapshot of a limiter.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current slot usage.
func (l *Limiter) Status() LimiterStatus {
	return LimiterStatus{
		Active:        int(l.active.Load()),
		Available:     cap(l.slots) - len(l.slots),
		MaxConcurrent: cap(l.slots),
	}
}

// WaitForDrain blocks until no run is active or ctx ends.
func (l *Limiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.active.Load() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
