package resilience

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/storesync/core"
	"github.com/itsneelabh/storesync/internal/testutil"
)

// recordingSleeper captures requested backoff delays without waiting.
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func serverError() error {
	return &core.HTTPError{Method: "GET", URL: "/addToCart", Status: http.StatusInternalServerError}
}

func TestRetryDefaultsDoubleTheDelay(t *testing.T) {
	sleeper := &recordingSleeper{}
	executor := NewRetryExecutor(nil)
	executor.SetSleeper(sleeper.sleep)

	calls := 0
	err := executor.Execute(context.Background(), "cart.fetch", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return serverError()
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{1000 * time.Millisecond, 2000 * time.Millisecond}, sleeper.delays)
}

func TestRetryUnauthorizedRunsOnce(t *testing.T) {
	sleeper := &recordingSleeper{}
	executor := NewRetryExecutor(nil)
	executor.SetSleeper(sleeper.sleep)

	calls := 0
	unauthorized := &core.HTTPError{Status: http.StatusUnauthorized}
	err := executor.Execute(context.Background(), "cart.fetch", func(ctx context.Context) error {
		calls++
		return unauthorized
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Empty(t, sleeper.delays)
	assert.Same(t, unauthorized, err, "last error must be returned unchanged")
}

func TestRetryExhaustionReturnsLastError(t *testing.T) {
	sleeper := &recordingSleeper{}
	executor := NewRetryExecutor(&RetryConfig{MaxAttempts: 3, InitialDelay: 10 * time.Millisecond, MaxDelay: 15 * time.Millisecond, BackoffFactor: 2})
	executor.SetSleeper(sleeper.sleep)

	var errs []error
	err := executor.Execute(context.Background(), "orders.list", func(ctx context.Context) error {
		e := &core.TransportError{Method: "GET", URL: "/orders", Err: errors.New("connection refused")}
		errs = append(errs, e)
		return e
	})

	require.Len(t, errs, 3)
	assert.Same(t, errs[2], err)
	// 10ms, then 20ms capped to 15ms
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 15 * time.Millisecond}, sleeper.delays)
}

func TestRetryRealTimerHonorsContext(t *testing.T) {
	executor := NewRetryExecutor(&RetryConfig{MaxAttempts: 5, InitialDelay: time.Second, BackoffFactor: 2})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	calls := 0
	start := time.Now()
	err := executor.Execute(ctx, "slow", func(ctx context.Context) error {
		calls++
		return serverError()
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, core.KindServerError, Classify(err).Kind)
}

func TestRetryValue(t *testing.T) {
	executor := NewRetryExecutor(&RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond, BackoffFactor: 2})

	calls := 0
	v, err := RetryValue(context.Background(), executor, "catalog.products", func(ctx context.Context) ([]string, error) {
		calls++
		if calls == 1 {
			return nil, &core.TransportError{Timeout: true, Err: context.DeadlineExceeded}
		}
		return []string{"rice"}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"rice"}, v)
	assert.Equal(t, 2, calls)
}

func TestRetryPackageHelper(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), &RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, BackoffFactor: 2}, func(ctx context.Context) error {
		calls++
		return errors.New("plain error, not retryable")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryJitterStaysWithinTenPercent(t *testing.T) {
	executor := NewRetryExecutor(&RetryConfig{MaxAttempts: 2, InitialDelay: time.Second, BackoffFactor: 2, JitterEnabled: true})
	for i := 0; i < 50; i++ {
		d := executor.withJitter(time.Second)
		assert.GreaterOrEqual(t, d, 900*time.Millisecond)
		assert.LessOrEqual(t, d, 1100*time.Millisecond)
	}
}

func TestRetryLogging(t *testing.T) {
	logger := &testutil.Logger{}
	executor := CreateRetryExecutor(core.RetryConfig{MaxAttempts: 2, InitialInterval: time.Millisecond, Multiplier: 2}, NewDependencies(WithLogger(logger)))

	err := executor.Execute(context.Background(), "failure-test", func(ctx context.Context) error {
		return serverError()
	})
	require.Error(t, err)

	assert.Len(t, logger.ByOperation("retry_start"), 1)
	assert.Len(t, logger.ByOperation("retry_backoff"), 1)
	assert.Len(t, logger.ByOperation("retry_exhausted"), 1)
	assert.NotEmpty(t, logger.ByLevel("ERROR"))
}

func TestNewRetryExecutorSanitizesConfig(t *testing.T) {
	executor := NewRetryExecutor(&RetryConfig{MaxAttempts: 0, BackoffFactor: 0})
	cfg := executor.Config()
	assert.Equal(t, 1, cfg.MaxAttempts)
	assert.Equal(t, 1.0, cfg.BackoffFactor)
}
