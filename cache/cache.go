// Package cache provides the TTL key/value stores used for read-through
// caching of catalog responses. MemoryStore serves a single process;
// RedisStore shares entries between processes.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/itsneelabh/storesync/core"
	"github.com/itsneelabh/storesync/telemetry"
)

// Store is a string key/value store with per-entry expiry.
type Store interface {
	// Get returns the value and true on a hit. Expired entries are misses.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value. A ttl of zero or less means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Provider names accepted in core.CacheConfig.Provider.
const (
	ProviderNone   = "none"
	ProviderMemory = "memory"
	ProviderRedis  = "redis"
)

// NewStore builds the store selected by cfg. It returns a nil Store and no
// error when caching is disabled.
func NewStore(cfg core.CacheConfig, logger core.Logger) (Store, error) {
	logger = core.WithComponent(logger, "cache")

	switch strings.ToLower(cfg.Provider) {
	case "", ProviderNone:
		return nil, nil
	case ProviderMemory:
		m := NewMemoryStore()
		m.SetLogger(logger)
		return m, nil
	case ProviderRedis:
		r, err := NewRedisStore(RedisOptions{
			RedisURL:  cfg.RedisURL,
			Namespace: cfg.KeyPrefix,
			Logger:    logger,
		})
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, &core.FrameworkError{
			Op:      "cache.NewStore",
			Kind:    "config",
			Message: fmt.Sprintf("unknown cache provider %q", cfg.Provider),
			Err:     core.ErrInvalidConfiguration,
		}
	}
}

// GetOrLoad returns the cached value for key, or calls load and caches its
// result for ttl. Cache failures are logged and fall through to load; a nil
// store always loads.
func GetOrLoad(ctx context.Context, s Store, logger core.Logger, key string, ttl time.Duration, load func(context.Context) (string, error)) (string, error) {
	if s == nil {
		return load(ctx)
	}
	if logger == nil {
		logger = &core.NoOpLogger{}
	}

	v, ok, err := s.Get(ctx, key)
	switch {
	case err != nil:
		logger.Warn("Cache read failed, loading from source", map[string]interface{}{
			"operation": "cache_get",
			"key":       key,
			"error":     err.Error(),
		})
	case ok:
		telemetry.Counter(telemetry.MetricCacheHits, "key", key)
		return v, nil
	}
	telemetry.Counter(telemetry.MetricCacheMisses, "key", key)

	v, err = load(ctx)
	if err != nil {
		return "", err
	}
	if err := s.Set(ctx, key, v, ttl); err != nil {
		logger.Warn("Cache write failed", map[string]interface{}{
			"operation": "cache_set",
			"key":       key,
			"error":     err.Error(),
		})
	}
	return v, nil
}
