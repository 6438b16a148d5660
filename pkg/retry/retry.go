package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultMaxRetries = 3
	DefaultBaseDelay  = 100 * time.Millisecond
)

type Options struct {
	MaxRetries int
	BaseDelay  time.Duration
	Logger     *zap.Logger

	// OnRetry is invoked before each re-attempt, after the backoff delay has
	// been decided. Used to bump retry metrics.
	OnRetry func(attempt int, err error)
}

func DefaultOptions() *Options {
	return &Options{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultBaseDelay,
	}
}

// Do executes operation up to MaxRetries times, sleeping between attempts with
// exponential backoff and uniform jitter in [0.5, 1.5) to decorrelate
// concurrent retries against the same endpoint. The error from the final
// attempt is returned once retries are exhausted. Waiting respects ctx.
func Do[T any](ctx context.Context, opts *Options, operation func() (T, error)) (T, error) {
	var zero T
	if opts == nil {
		opts = DefaultOptions()
	}
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	baseDelay := opts.BaseDelay
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(baseDelay, attempt)
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
			if opts.OnRetry != nil {
				opts.OnRetry(attempt, lastErr)
			}
		}

		result, err := operation()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if opts.Logger != nil {
			opts.Logger.Sugar().Debugw("retryable operation failed",
				zap.Int("attempt", attempt+1),
				zap.Int("maxRetries", maxRetries),
				zap.Error(err),
			)
		}
	}
	return zero, lastErr
}

func backoffDelay(baseDelay time.Duration, attempt int) time.Duration {
	jitter := 0.5 + rand.Float64()
	scaled := float64(baseDelay) * math.Pow(2, float64(attempt)) * jitter
	return time.Duration(scaled)
}
