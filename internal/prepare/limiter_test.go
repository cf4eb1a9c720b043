package prepare

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestLimiter_AcquireRelease(t *testing.T) {
	l := NewLimiter(2, time.Second)
	ctx := context.Background()

	if got := l.Status(); got.Active != 0 || got.Available != 2 || got.MaxConcurrent != 2 {
		t.Fatalf("initial Status = %+v", got)
	}

	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("first Acquire() error = %v", err)
	}
	if err := l.Acquire(ctx); err != nil {
		t.Fatalf("second Acquire() error = %v", err)
	}
	if got := l.Status(); got.Active != 2 || got.Available != 0 {
		t.Errorf("full Status = %+v", got)
	}
	if l.TryAcquire() {
		t.Error("TryAcquire() on a full limiter = true")
	}

	l.Release()
	if !l.TryAcquire() {
		t.Error("TryAcquire() after Release = false")
	}
	l.Release()
	l.Release()
	if got := l.Status(); got.Active != 0 || got.Available != 2 {
		t.Errorf("drained Status = %+v", got)
	}
}

func TestLimiter_Defaults(t *testing.T) {
	l := NewLimiter(0, 0)
	if got := l.Status().MaxConcurrent; got != DefaultMaxConcurrentRuns {
		t.Errorf("MaxConcurrent = %d, want %d", got, DefaultMaxConcurrentRuns)
	}
	if l.wait != DefaultRunWait {
		t.Errorf("wait = %v, want %v", l.wait, DefaultRunWait)
	}
}

func TestLimiter_Timeout(t *testing.T) {
	l := NewLimiter(1, 20*time.Millisecond)
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer l.Release()

	if err := l.Acquire(context.Background()); !errors.Is(err, ErrTooManyRuns) {
		t.Errorf("Acquire() on full limiter error = %v, want ErrTooManyRuns", err)
	}
}

func TestLimiter_ContextCanceled(t *testing.T) {
	l := NewLimiter(1, time.Minute)
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer l.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Acquire() error = %v, want context.Canceled", err)
	}
}

func TestLimiter_Concurrent(t *testing.T) {
	l := NewLimiter(3, time.Second)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		current int
		peak    int
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Acquire(context.Background()); err != nil {
				t.Errorf("Acquire() error = %v", err)
				return
			}
			mu.Lock()
			current++
			if current > peak {
				peak = current
			}
			mu.Unlock()

			time.Sleep(5 * time.Millisecond)

			mu.Lock()
			current--
			mu.Unlock()
			l.Release()
		}()
	}
	wg.Wait()

	if peak > 3 {
		t.Errorf("peak concurrency = %d, want <= 3", peak)
	}
}

func TestLimiter_WaitForDrain(t *testing.T) {
	l := NewLimiter(1, time.Second)
	if err := l.WaitForDrain(context.Background()); err != nil {
		t.Fatalf("WaitForDrain() on idle limiter error = %v", err)
	}

	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	go func() {
		time.Sleep(20 * time.Millisecond)
		l.Release()
	}()
	if err := l.WaitForDrain(context.Background()); err != nil {
		t.Errorf("WaitForDrain() error = %v", err)
	}

	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer l.Release()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.WaitForDrain(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("WaitForDrain() error = %v, want DeadlineExceeded", err)
	}
}
