package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/itsneelabh/storesync/core"
)

// RedisOptions configures a RedisStore.
type RedisOptions struct {
	RedisURL  string
	Namespace string // prepended to every key as "<namespace>:"
	Logger    core.Logger

	// PingTimeout bounds the connectivity check in NewRedisStore.
	// Defaults to 5s.
	PingTimeout time.Duration
}

// RedisStore is a Store backed by Redis.
type RedisStore struct {
	client    *redis.Client
	namespace string
	logger    core.Logger
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(opts RedisOptions) (*RedisStore, error) {
	logger := opts.Logger
	if logger == nil {
		logger = &core.NoOpLogger{}
	}

	if opts.RedisURL == "" {
		logger.Error("Failed to initialize Redis cache", map[string]interface{}{
			"error":      "Redis URL is required",
			"error_type": "ErrMissingConfiguration",
		})
		return nil, fmt.Errorf("redis URL is required: %w", core.ErrMissingConfiguration)
	}

	redisOpt, err := redis.ParseURL(opts.RedisURL)
	if err != nil {
		logger.Error("Failed to parse Redis URL", map[string]interface{}{
			"error":      err.Error(),
			"error_type": fmt.Sprintf("%T", err),
		})
		return nil, fmt.Errorf("invalid Redis URL: %w", core.ErrInvalidConfiguration)
	}

	client := redis.NewClient(redisOpt)

	timeout := opts.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		logger.Error("Failed to connect to Redis", map[string]interface{}{
			"error":      err.Error(),
			"error_type": fmt.Sprintf("%T", err),
			"db":         redisOpt.DB,
			"namespace":  opts.Namespace,
		})
		return nil, fmt.Errorf("failed to connect to Redis DB %d: %w", redisOpt.DB, core.ErrConnectionFailed)
	}

	logger.Info("Redis cache connected", map[string]interface{}{
		"db":        redisOpt.DB,
		"namespace": opts.Namespace,
	})

	return &RedisStore{client: client, namespace: opts.Namespace, logger: logger}, nil
}

func (r *RedisStore) formatKey(key string) string {
	if r.namespace == "" {
		return key
	}
	return r.namespace + ":" + key
}

// Get retrieves a value
func (r *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, r.formatKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, true, nil
}

// Set stores a value with optional TTL
func (r *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := r.client.Set(ctx, r.formatKey(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes a key
func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.formatKey(key)).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// HealthCheck verifies Redis connectivity
func (r *RedisStore) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisStore) Close() error {
	r.logger.Info("Closing Redis cache connection", map[string]interface{}{
		"namespace": r.namespace,
	})
	return r.client.Close()
}
