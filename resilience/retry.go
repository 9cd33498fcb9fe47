package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	dsperrors "github.com/kbukum/dspcore/errors"
)

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the first).
	MaxAttempts int
	// InitialBackoff is the initial delay between retries.
	InitialBackoff time.Duration
	// MaxBackoff is the maximum delay between retries.
	MaxBackoff time.Duration
	// BackoffFactor is the multiplier for exponential backoff.
	BackoffFactor float64
	// Jitter adds randomness to backoff (0.0 to 1.0).
	Jitter float64
	// RetryIf determines if an error should be retried.
	RetryIf func(error) bool
	// OnRetry is called before each retry.
	OnRetry func(attempt int, err error, backoff time.Duration)
}

// DefaultRetryConfig returns defaults for host-facing operations.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     time.Second,
		BackoffFactor:  2.0,
		Jitter:         0.1,
		RetryIf:        DefaultRetryIf,
	}
}

// MailboxRetryConfig returns defaults for IDC sends. Backoff stays well
// under one LL period so a receiving core drains its mailbox in between.
func MailboxRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    8,
		InitialBackoff: 50 * time.Microsecond,
		MaxBackoff:     2 * time.Millisecond,
		BackoffFactor:  2.0,
		Jitter:         0.2,
		RetryIf:        IsBusy,
	}
}

// DefaultRetryIf retries errors marked retryable, except context errors.
func DefaultRetryIf(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return dsperrors.IsRetryable(err)
}

// IsBusy retries only Busy errors.
func IsBusy(err error) bool {
	return dsperrors.HasCode(err, dsperrors.ErrCodeBusy)
}

// Retry executes fn until it succeeds, RetryIf rejects the error, attempts
// run out or ctx is done. It returns the last error on exhaustion.
func Retry[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 10 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = time.Second
	}
	if cfg.BackoffFactor <= 0 {
		cfg.BackoffFactor = 2.0
	}
	if cfg.RetryIf == nil {
		cfg.RetryIf = DefaultRetryIf
	}

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !cfg.RetryIf(err) || attempt == cfg.MaxAttempts {
			break
		}

		backoff := calculateBackoff(attempt, cfg)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, backoff)
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	return zero, lastErr
}

// RetryFunc executes a function that returns only an error.
func RetryFunc(ctx context.Context, cfg RetryConfig, fn func() error) error {
	_, err := Retry(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// calculateBackoff returns initial * factor^(attempt-1) with jitter,
// capped at MaxBackoff.
func calculateBackoff(attempt int, cfg RetryConfig) time.Duration {
	backoff := float64(cfg.InitialBackoff) * math.Pow(cfg.BackoffFactor, float64(attempt-1))

	if cfg.Jitter > 0 {
		jitterRange := backoff * cfg.Jitter
		backoff += (rand.Float64()*2 - 1) * jitterRange
	}
	if backoff > float64(cfg.MaxBackoff) {
		backoff = float64(cfg.MaxBackoff)
	}
	if backoff < 0 {
		backoff = float64(cfg.InitialBackoff)
	}
	return time.Duration(backoff)
}
