package agents

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
)

// RetryConfig configures retry behavior.
type RetryConfig struct {
	MaxRetries     int           // attempts after the first one
	InitialBackoff time.Duration // doubles each retry
	MaxBackoff     time.Duration
}

// DefaultRetryConfig allows three attempts with waits between 2s and 10s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     2,
		InitialBackoff: 2 * time.Second,
		MaxBackoff:     10 * time.Second,
	}
}

// ErrMaxRetriesExceeded indicates all retry attempts failed.
var ErrMaxRetriesExceeded = errors.New("maximum retries exceeded")

// permanentError marks failures that another attempt cannot fix, such as a
// 4xx response or an undecodable body.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

func permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked as not worth retrying.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// WithRetry executes fn with exponential backoff until it succeeds, returns a
// permanent error, the attempts run out, or ctx is done.
func WithRetry[T any](ctx context.Context, logger *zap.Logger, config RetryConfig, operation string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		out, err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				logger.Debug("retry succeeded", zap.String("operation", operation), zap.Int("attempt", attempt+1))
			}
			return out, nil
		}

		lastErr = err
		if IsPermanent(err) {
			return zero, err
		}
		logger.Debug("attempt failed",
			zap.String("operation", operation),
			zap.Int("attempt", attempt+1),
			zap.Int("of", config.MaxRetries+1),
			zap.Error(err))

		if attempt < config.MaxRetries {
			backoff := calculateBackoff(config, attempt)
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	return zero, fmt.Errorf("%w for %s: %v", ErrMaxRetriesExceeded, operation, lastErr)
}

func calculateBackoff(config RetryConfig, attempt int) time.Duration {
	backoff := float64(config.InitialBackoff) * math.Pow(2, float64(attempt))
	if backoff > float64(config.MaxBackoff) {
		backoff = float64(config.MaxBackoff)
	}
	return time.Duration(backoff)
}
