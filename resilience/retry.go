package resilience

import (
	"context"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/itsneelabh/storesync/core"
	"github.com/itsneelabh/storesync/telemetry"
)

// RetryConfig configures retry behavior
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	JitterEnabled bool
}

// DefaultRetryConfig gives three attempts with 1s then 2s between them.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  1 * time.Second,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
		JitterEnabled: false,
	}
}

// RetryConfigFrom converts the retry section of the client configuration.
func RetryConfigFrom(c core.RetryConfig) *RetryConfig {
	return &RetryConfig{
		MaxAttempts:   c.MaxAttempts,
		InitialDelay:  c.InitialInterval,
		MaxDelay:      c.MaxInterval,
		BackoffFactor: c.Multiplier,
		JitterEnabled: c.Jitter,
	}
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func timerSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryExecutor runs operations with classified, exponential-backoff retries.
// Attempts are strictly sequential and the call blocks until success,
// a non-retryable failure, exhaustion, or context cancellation.
type RetryExecutor struct {
	config   RetryConfig
	classify func(error) Classification
	sleep    Sleeper
	logger   core.Logger
}

// NewRetryExecutor creates an executor. A nil config means DefaultRetryConfig.
func NewRetryExecutor(config *RetryConfig) *RetryExecutor {
	if config == nil {
		config = DefaultRetryConfig()
	}
	c := *config
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 1
	}
	if c.BackoffFactor < 1 {
		c.BackoffFactor = 1
	}
	return &RetryExecutor{
		config:   c,
		classify: Classify,
		sleep:    timerSleep,
		logger:   &core.NoOpLogger{},
	}
}

// SetLogger configures the logger for this executor
func (r *RetryExecutor) SetLogger(logger core.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// SetSleeper replaces the backoff wait. Tests use it to observe delays.
func (r *RetryExecutor) SetSleeper(s Sleeper) {
	if s != nil {
		r.sleep = s
	}
}

// SetClassifier replaces the retry decision.
func (r *RetryExecutor) SetClassifier(fn func(error) Classification) {
	if fn != nil {
		r.classify = fn
	}
}

// Config returns a copy of the effective configuration.
func (r *RetryExecutor) Config() RetryConfig {
	return r.config
}

// Execute runs fn until it succeeds or a retry is not warranted.
// The last error is returned unchanged so callers can still classify it.
func (r *RetryExecutor) Execute(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	start := time.Now()
	delay := r.config.InitialDelay
	var lastErr error

	r.logger.Debug("Starting retry operation", map[string]interface{}{
		"operation":       "retry_start",
		"retry_operation": operation,
		"max_attempts":    r.config.MaxAttempts,
	})

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		telemetry.Counter(telemetry.MetricRetryAttempts,
			"operation", operation,
			"attempt_number", strconv.Itoa(attempt))

		lastErr = fn(ctx)
		if lastErr == nil {
			if attempt > 1 {
				r.logger.Info("Retry operation succeeded", map[string]interface{}{
					"operation":       "retry_success",
					"retry_operation": operation,
					"attempts":        attempt,
					"duration_ms":     time.Since(start).Milliseconds(),
				})
				telemetry.Counter(telemetry.MetricRetrySuccess,
					"operation", operation,
					"final_attempt", strconv.Itoa(attempt))
			}
			return nil
		}

		verdict := r.classify(lastErr)
		if !verdict.Retryable {
			r.logger.Debug("Operation failed with non-retryable error", map[string]interface{}{
				"operation":       "retry_abort",
				"retry_operation": operation,
				"attempt":         attempt,
				"kind":            string(verdict.Kind),
				"error":           lastErr.Error(),
			})
			telemetry.Counter(telemetry.MetricRetryFailures,
				"operation", operation,
				"error_type", string(verdict.Kind))
			return lastErr
		}

		if attempt == r.config.MaxAttempts {
			break
		}

		wait := r.withJitter(delay)
		r.logger.Warn("Operation failed, backing off", map[string]interface{}{
			"operation":       "retry_backoff",
			"retry_operation": operation,
			"attempt":         attempt,
			"kind":            string(verdict.Kind),
			"backoff_ms":      wait.Milliseconds(),
			"error":           lastErr.Error(),
		})
		telemetry.Histogram(telemetry.MetricRetryBackoff, float64(wait.Milliseconds()),
			"operation", operation)

		if err := r.sleep(ctx, wait); err != nil {
			return lastErr
		}

		delay = time.Duration(float64(delay) * r.config.BackoffFactor)
		if r.config.MaxDelay > 0 && delay > r.config.MaxDelay {
			delay = r.config.MaxDelay
		}
	}

	r.logger.Error("Retry attempts exhausted", map[string]interface{}{
		"operation":       "retry_exhausted",
		"retry_operation": operation,
		"attempts":        r.config.MaxAttempts,
		"duration_ms":     time.Since(start).Milliseconds(),
		"error":           lastErr.Error(),
	})
	telemetry.Counter(telemetry.MetricRetryFailures,
		"operation", operation,
		"error_type", string(r.classify(lastErr).Kind))

	return lastErr
}

// withJitter spreads d by up to ±10% so many clients recovering from the
// same outage do not retry in lockstep.
func (r *RetryExecutor) withJitter(d time.Duration) time.Duration {
	if !r.config.JitterEnabled || d <= 0 {
		return d
	}
	spread := float64(d) * 0.1
	return d + time.Duration((rand.Float64()*2-1)*spread)
}

// RetryValue is Execute for operations that produce a value.
func RetryValue[T any](ctx context.Context, r *RetryExecutor, operation string, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := r.Execute(ctx, operation, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// Retry executes fn with a throwaway executor built from config.
func Retry(ctx context.Context, config *RetryConfig, fn func(ctx context.Context) error) error {
	return NewRetryExecutor(config).Execute(ctx, "retry", fn)
}
