// Package retry runs an operation with bounded exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"bojfx/internal/config"
	apperrors "bojfx/internal/errors"
	"bojfx/internal/infrastructure"
)

// ExhaustedError is returned when every attempt failed with a retryable error.
type ExhaustedError struct {
	Operation string
	Attempts  int
	Err       error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Operation, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Retrier executes functions under a retry policy
type Retrier struct {
	cfg         config.RetryConfig
	shouldRetry func(error) bool
	sleep       func(context.Context, time.Duration) error
	logger      *slog.Logger
}

// Option configures a Retrier
type Option func(*Retrier)

// WithRetryIf overrides the retryability check. The default retries errors
// marked retryable by the errors package.
func WithRetryIf(fn func(error) bool) Option {
	return func(r *Retrier) { r.shouldRetry = fn }
}

// WithSleeper replaces the backoff wait, mainly for tests.
func WithSleeper(fn func(context.Context, time.Duration) error) Option {
	return func(r *Retrier) { r.sleep = fn }
}

// WithLogger sets the logger used for retry warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retrier) { r.logger = logger }
}

// New creates a Retrier. MaxAttempts below 1 is treated as 1.
func New(cfg config.RetryConfig, opts ...Option) *Retrier {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	r := &Retrier{
		cfg:         cfg,
		shouldRetry: apperrors.IsRetryable,
		sleep:       sleepContext,
		logger:      infrastructure.GetLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Do calls fn until it succeeds, returns a non-retryable error or the
// attempts run out. Non-retryable errors are returned as is; running out
// yields an *ExhaustedError wrapping the last error.
func (r *Retrier) Do(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return errors.Join(lastErr, err)
			}
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !r.shouldRetry(err) {
			return err
		}
		if attempt >= r.cfg.MaxAttempts {
			break
		}

		delay := Delay(r.cfg, attempt)
		r.logger.WarnContext(ctx, "retry",
			slog.String("operation", operation),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", r.cfg.MaxAttempts),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()))
		infrastructure.Metrics().RecordRetry(ctx, operation)

		if err := r.sleep(ctx, delay); err != nil {
			return errors.Join(lastErr, err)
		}
	}

	return &ExhaustedError{Operation: operation, Attempts: r.cfg.MaxAttempts, Err: lastErr}
}

// Delay returns the wait after the given failed attempt (1-based):
// InitialDelay * Multiplier^(attempt-1), capped at MaxDelay.
func Delay(cfg config.RetryConfig, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	mult := cfg.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(cfg.InitialDelay) * math.Pow(mult, float64(attempt-1))
	if cfg.MaxDelay > 0 && d > float64(cfg.MaxDelay) {
		return cfg.MaxDelay
	}
	return time.Duration(d)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
