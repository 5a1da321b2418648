package resilience

import (
	"context"
	"errors"
)

// RetryConfig configures the retry behavior.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial).
	// Default: 3
	MaxAttempts int

	// RetryIf determines if an error should trigger a retry.
	// Default: all non-nil errors trigger retry.
	RetryIf func(err error) bool

	// BeforeRetry runs after a failed attempt that will be retried.
	// Returning ErrAbortRetry stops the loop and Execute returns the failed
	// attempt's error. Any other error is returned as is.
	BeforeRetry func(ctx context.Context, attempt int, err error) error
}

// Retry implements a bounded retry loop. Attempts follow each other
// immediately; recovery between them is the BeforeRetry hook's job.
type Retry struct {
	config RetryConfig
}

// NewRetry creates a new retry handler.
func NewRetry(config RetryConfig) *Retry {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.RetryIf == nil {
		config.RetryIf = func(err error) bool { return err != nil }
	}
	return &Retry{config: config}
}

// Execute runs the operation with retry logic.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	_, err := r.Attempts(ctx, op)
	return err
}

// Attempts runs the operation like Execute and also reports how many
// attempts were made.
func (r *Retry) Attempts(ctx context.Context, op func(context.Context) error) (int, error) {
	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return attempt, nil
		}
		lastErr = err

		if !r.config.RetryIf(err) {
			return attempt, err
		}
		if attempt >= r.config.MaxAttempts {
			return attempt, lastErr
		}

		if r.config.BeforeRetry != nil {
			if hookErr := r.config.BeforeRetry(ctx, attempt, err); hookErr != nil {
				if errors.Is(hookErr, ErrAbortRetry) {
					return attempt, lastErr
				}
				return attempt, hookErr
			}
		}

		if err := ctx.Err(); err != nil {
			return attempt, err
		}
	}

	return r.config.MaxAttempts, lastErr
}

// Config returns the retry configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}
