// Package retry provides exponential backoff retry logic shared by the
// translation engine and message queue.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

var (
	randMu     sync.Mutex
	randSource = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// NonRetryableError marks errors that must not be retried regardless of the
// remaining retry budget.
type NonRetryableError struct {
	Err error
}

func (e *NonRetryableError) Error() string {
	return fmt.Sprintf("non-retryable: %v", e.Err)
}

func (e *NonRetryableError) Unwrap() error {
	return e.Err
}

// NonRetryable wraps an error so Do fails immediately on it.
func NonRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &NonRetryableError{Err: err}
}

// IsNonRetryable reports whether err is marked non-retryable.
func IsNonRetryable(err error) bool {
	var nre *NonRetryableError
	return errors.As(err, &nre)
}

// Config controls the retry loop.
type Config struct {
	MaxAttempts  int           // Total attempts including the first (min 1)
	InitialDelay time.Duration // Delay before the second attempt
	MaxDelay     time.Duration // Upper bound on any single delay
	Multiplier   float64       // Backoff multiplier, typically 2.0
	AddJitter    bool          // Add up to 25% jitter to each delay
}

// DefaultConfig returns the defaults used across the system.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		AddJitter:    true,
	}
}

func (cfg *Config) normalize() {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 100 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 5 * time.Second
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2.0
	}
}

// Backoff returns the delay before retry attempt k (zero-based) using
// base * multiplier^k, capped at max. It is the single backoff formula used
// by the queue and the engine so their schedules agree.
func Backoff(base time.Duration, multiplier float64, attempt int, max time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	delay := float64(base)
	for i := 0; i < attempt; i++ {
		delay *= multiplier
		if max > 0 && delay >= float64(max) {
			return max
		}
	}
	return time.Duration(delay)
}

// Do executes fn, retrying transient failures with exponential backoff until
// success, a non-retryable error, context cancellation, or exhaustion of
// cfg.MaxAttempts.
func Do(ctx context.Context, cfg Config, fn func() error) error {
	cfg.normalize()

	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			if IsNonRetryable(err) {
				return err
			}
		}

		if ctx.Err() != nil {
			return fmt.Errorf("retry cancelled after attempt %d: %w", attempt+1, ctx.Err())
		}
		if attempt == cfg.MaxAttempts-1 {
			break
		}

		sleep := Backoff(cfg.InitialDelay, cfg.Multiplier, attempt, cfg.MaxDelay)
		if cfg.AddJitter && sleep > 0 {
			randMu.Lock()
			sleep += time.Duration(randSource.Int63n(int64(sleep)/4 + 1))
			randMu.Unlock()
		}

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry cancelled during backoff before attempt %d: %w", attempt+2, ctx.Err())
		case <-timer.C:
		}
	}

	return fmt.Errorf("retry failed after %d attempts: %w", cfg.MaxAttempts, lastErr)
}

// DoWithResult executes fn with retry and returns its result.
func DoWithResult[T any](ctx context.Context, cfg Config, fn func() (T, error)) (T, error) {
	var result T
	err := Do(ctx, cfg, func() error {
		var innerErr error
		result, innerErr = fn()
		return innerErr
	})
	return result, err
}
