package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/loykin/dagdeploy/internal/common"
)

// Config holds configuration for journal database operation retries.
// Remote scheduler calls are deliberately never retried; a failed backend
// call terminates the invocation.
type Config struct {
	MaxRetries      int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffFactor   float64
	RetryableErrors []string
}

// DefaultConfig returns a sensible default retry configuration
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:    3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
		RetryableErrors: []string{
			"connection refused",
			"connection reset",
			"timeout",
			"temporary failure",
			"deadlock",
			"lock wait timeout",
			"database is locked",
			"connection lost",
			"broken pipe",
		},
	}
}

// isRetryableError checks if an error should trigger a retry
func (rc *Config) isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	errStr := strings.ToLower(err.Error())
	for _, retryableErr := range rc.RetryableErrors {
		if strings.Contains(errStr, retryableErr) {
			return true
		}
	}
	return false
}

// calculateDelay calculates the delay for a given retry attempt using exponential backoff
func (rc *Config) calculateDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return rc.InitialDelay
	}
	delay := time.Duration(float64(rc.InitialDelay) * math.Pow(rc.BackoffFactor, float64(attempt-1)))
	if delay > rc.MaxDelay {
		delay = rc.MaxDelay
	}
	return delay
}

// Operation represents a database operation that can be retried
type Operation func() error

// WithRetry executes a journal database operation with retry logic
func WithRetry(ctx context.Context, config *Config, operation Operation) error {
	if config == nil {
		config = DefaultConfig()
	}

	logger := common.GetLogger().WithComponent("journal-retry")

	var lastErr error
	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		err := operation()
		if err == nil {
			if attempt > 0 {
				logger.Info("journal operation succeeded after retry", "attempt", attempt+1)
			}
			return nil
		}

		lastErr = err
		if attempt == config.MaxRetries {
			break
		}
		if !config.isRetryableError(err) {
			logger.Debug("journal operation failed with non-retryable error", "error", err, "attempt", attempt+1)
			return err
		}

		delay := config.calculateDelay(attempt)
		logger.Warn("journal operation failed, retrying",
			"error", err, "attempt", attempt+1, "max_attempts", config.MaxRetries+1, "retry_delay", delay)

		select {
		case <-ctx.Done():
			return fmt.Errorf("operation cancelled during retry: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	logger.Error("journal operation failed after all retry attempts", "error", lastErr, "attempts", config.MaxRetries+1)
	return fmt.Errorf("operation failed after %d attempts: %w", config.MaxRetries+1, lastErr)
}
