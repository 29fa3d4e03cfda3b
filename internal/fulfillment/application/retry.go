package application

import (
	"context"
	"time"

	"go-marketplace/internal/fulfillment/domain"
	"go-marketplace/pkg/errors"
)

// RetryConfig bounds the read-modify-write loop run on a version conflict
type RetryConfig struct {
	MaxAttempts int           // total attempts, including the first
	BaseDelay   time.Duration // pause before the second attempt
	MaxDelay    time.Duration
}

// DefaultRetryConfig returns three attempts with a short backoff
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   5 * time.Millisecond,
		MaxDelay:    50 * time.Millisecond,
	}
}

func (c RetryConfig) normalize() RetryConfig {
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 1
	}
	if c.MaxDelay < c.BaseDelay {
		c.MaxDelay = c.BaseDelay
	}
	return c
}

// retryOnConflict re-runs fn while it fails with a CONFLICT error. fn must
// re-read the aggregate on every call. Any other error stops immediately.
func retryOnConflict[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	cfg = cfg.normalize()
	var zero T
	var lastErr error
	backoff := cfg.BaseDelay

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, errors.CodeConflict) {
			return zero, err
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		if attempt < cfg.MaxAttempts-1 && backoff > 0 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
				if backoff > cfg.MaxDelay {
					backoff = cfg.MaxDelay
				}
			}
		}
	}

	return zero, &errors.AppError{
		Code:    errors.CodeConflict,
		Reason:  domain.ReasonConflictRetriesExceeded,
		Message: domain.ErrRetriesExhausted.Message,
		Details: map[string]interface{}{"attempts": cfg.MaxAttempts},
		Err:     lastErr,
	}
}
