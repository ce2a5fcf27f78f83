// Package framework collects small helpers shared by the integration
// and end-to-end tests under test/: polling for eventual conditions
// and retrying operations that can transiently fail (an outbox drain
// racing a slow no-op remote, a goroutine-driven observer catching
// up).
package framework

import (
	"context"
	"fmt"
	"time"
)

// Waiter polls a condition on a fixed interval until it is true or the
// timeout elapses.
type Waiter struct {
	timeout  time.Duration
	interval time.Duration
}

// NewWaiter creates a new Waiter with the given timeout and polling interval.
func NewWaiter(timeout, interval time.Duration) *Waiter {
	return &Waiter{
		timeout:  timeout,
		interval: interval,
	}
}

// DefaultWaiter returns a waiter with sensible defaults (5s timeout, 10ms interval),
// sized for in-process engine tests rather than a networked cluster.
func DefaultWaiter() *Waiter {
	return NewWaiter(5*time.Second, 10*time.Millisecond)
}

// WaitFor waits for a condition to become true.
func (w *Waiter) WaitFor(ctx context.Context, condition func() bool, description string) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	if condition() {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for: %s (timeout: %v)", description, w.timeout)
		case <-ticker.C:
			if condition() {
				return nil
			}
		}
	}
}

// WaitForCount waits until get() returns want, polling at the
// Waiter's interval. Typical use: watching a slice an Observer's
// added callback appends to, from the test goroutine.
func (w *Waiter) WaitForCount(ctx context.Context, get func() int, want int, description string) error {
	return w.WaitFor(ctx, func() bool { return get() == want }, description)
}

// WaitForConditionWithRetry waits for a condition with exponential backoff retry,
// for conditions whose check itself can fail transiently (not just return false).
func (w *Waiter) WaitForConditionWithRetry(ctx context.Context, condition func() (bool, error), description string) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	interval := w.interval
	maxInterval := 10 * time.Second
	var lastErr error

	for {
		ok, err := condition()
		if err == nil && ok {
			return nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			if lastErr != nil {
				return fmt.Errorf("error checking condition '%s': %w", description, lastErr)
			}
			return fmt.Errorf("timeout waiting for: %s (timeout: %v)", description, w.timeout)
		case <-time.After(interval):
			interval = interval * 2
			if interval > maxInterval {
				interval = maxInterval
			}
		}
	}
}

// PollUntil polls a condition until it returns true or context is cancelled.
func PollUntil(ctx context.Context, interval time.Duration, condition func() bool) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if condition() {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if condition() {
				return nil
			}
		}
	}
}

// Retry retries an operation with exponential backoff.
func Retry(ctx context.Context, attempts int, initialDelay time.Duration, operation func() error) error {
	var err error
	delay := initialDelay

	for i := 0; i < attempts; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("retry cancelled: %w", ctx.Err())
			case <-time.After(delay):
				delay = delay * 2
			}
		}
	}

	return fmt.Errorf("operation failed after %d attempts: %w", attempts, err)
}
