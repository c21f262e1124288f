package core

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the storesync client.
// It supports three-layer configuration priority:
//  1. Default values (lowest priority)
//  2. Environment variables (medium priority)
//  3. Functional options (highest priority)
//
// Example usage:
//
//	cfg, err := NewConfig(
//	    WithBaseURL("https://shop.example.com/api/v1"),
//	    WithDeliveryFee(60),
//	    WithLogLevel("debug"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
type Config struct {
	// Core configuration
	Name string `json:"name" yaml:"name" env:"STORESYNC_NAME" default:"storesync"`

	// Backend API configuration
	API APIConfig `json:"api" yaml:"api"`

	// Authentication calls
	Auth AuthConfig `json:"auth" yaml:"auth"`

	// Retry executor configuration
	Retry RetryConfig `json:"retry" yaml:"retry"`

	// Cart synchronizer configuration
	Cart CartConfig `json:"cart" yaml:"cart"`

	// Search debounce configuration
	Search SearchConfig `json:"search" yaml:"search"`

	// Catalog cache configuration
	Cache CacheConfig `json:"cache" yaml:"cache"`

	// Telemetry configuration (optional)
	Telemetry TelemetryConfig `json:"telemetry" yaml:"telemetry"`

	// Logging configuration
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Development configuration
	Development DevelopmentConfig `json:"development" yaml:"development"`
}

// APIConfig describes where the storefront backend lives and how long a
// single request may take.
type APIConfig struct {
	BaseURL   string        `json:"base_url" yaml:"base_url" env:"STORESYNC_API_BASE_URL" default:"http://localhost:8085/api/v1"`
	Timeout   time.Duration `json:"timeout" yaml:"timeout" env:"STORESYNC_API_TIMEOUT" default:"30s"`
	UserAgent string        `json:"user_agent" yaml:"user_agent" env:"STORESYNC_API_USER_AGENT"`
	Endpoints Endpoints     `json:"endpoints" yaml:"endpoints"`
}

// Endpoints holds the backend paths relative to APIConfig.BaseURL.
// Paths containing "{id}" are expanded with the entity id.
type Endpoints struct {
	Login          string `json:"login" yaml:"login"`
	Logout         string `json:"logout" yaml:"logout"`
	Profile        string `json:"profile" yaml:"profile"`
	Products       string `json:"products" yaml:"products"`
	ProductDetails string `json:"product_details" yaml:"product_details"`
	Categories     string `json:"categories" yaml:"categories"`
	Cart           string `json:"cart" yaml:"cart"`
	CartAdd        string `json:"cart_add" yaml:"cart_add"`
	CartUpdate     string `json:"cart_update" yaml:"cart_update"`
	CartRemove     string `json:"cart_remove" yaml:"cart_remove"`
	Orders         string `json:"orders" yaml:"orders"`
	OrderCreate    string `json:"order_create" yaml:"order_create"`
	OrderCancel    string `json:"order_cancel" yaml:"order_cancel"`
	Wishlist       string `json:"wishlist" yaml:"wishlist"`
	WishlistAdd    string `json:"wishlist_add" yaml:"wishlist_add"`
	WishlistRemove string `json:"wishlist_remove" yaml:"wishlist_remove"`
}

// DefaultEndpoints returns the paths the storefront backend serves.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Login:          "/login",
		Logout:         "/logout",
		Profile:        "/profile",
		Products:       "/consumer/products",
		ProductDetails: "/consumer/products/{id}",
		Categories:     "/consumer/view-all-category",
		Cart:           "/addToCart",
		CartAdd:        "/addToCart/add",
		CartUpdate:     "/addToCart/update",
		CartRemove:     "/addToCart/remove/{id}",
		Orders:         "/orders",
		OrderCreate:    "/orders/create",
		OrderCancel:    "/orders/cancel/{id}",
		Wishlist:       "/wishlist",
		WishlistAdd:    "/wishlist/add",
		WishlistRemove: "/wishlist/{id}",
	}
}

// AuthConfig holds settings for login and logout calls.
type AuthConfig struct {
	Timeout time.Duration `json:"timeout" yaml:"timeout" env:"STORESYNC_AUTH_TIMEOUT" default:"15s"`
}

// RetryConfig defines retry pattern settings with exponential backoff.
// Formula: interval = min(InitialInterval * (Multiplier ^ attempt), MaxInterval)
type RetryConfig struct {
	MaxAttempts     int           `json:"max_attempts" yaml:"max_attempts" env:"STORESYNC_RETRY_MAX_ATTEMPTS" default:"3"`
	InitialInterval time.Duration `json:"initial_interval" yaml:"initial_interval" env:"STORESYNC_RETRY_INITIAL_INTERVAL" default:"1s"`
	MaxInterval     time.Duration `json:"max_interval" yaml:"max_interval" env:"STORESYNC_RETRY_MAX_INTERVAL" default:"30s"`
	Multiplier      float64       `json:"multiplier" yaml:"multiplier" env:"STORESYNC_RETRY_MULTIPLIER" default:"2.0"`
	Jitter          bool          `json:"jitter" yaml:"jitter" env:"STORESYNC_RETRY_JITTER" default:"false"`
}

// CartConfig controls the cart synchronizer's timing and pricing rules.
type CartConfig struct {
	DebounceWindow  time.Duration `json:"debounce_window" yaml:"debounce_window" env:"STORESYNC_CART_DEBOUNCE" default:"500ms"`
	SettleDelay     time.Duration `json:"settle_delay" yaml:"settle_delay" env:"STORESYNC_CART_SETTLE_DELAY" default:"100ms"`
	RefreshInterval time.Duration `json:"refresh_interval" yaml:"refresh_interval" env:"STORESYNC_CART_REFRESH_INTERVAL" default:"5s"`
	DeliveryFee     float64       `json:"delivery_fee" yaml:"delivery_fee" env:"STORESYNC_CART_DELIVERY_FEE" default:"60"`
	MaxQuantity     int           `json:"max_quantity" yaml:"max_quantity" env:"STORESYNC_CART_MAX_QUANTITY" default:"100"`
}

// SearchConfig controls search debouncing.
type SearchConfig struct {
	DebounceWindow time.Duration `json:"debounce_window" yaml:"debounce_window" env:"STORESYNC_SEARCH_DEBOUNCE" default:"300ms"`
}

// CacheConfig configures the short-lived catalog cache.
// Provider "none" disables caching; "memory" keeps entries in process;
// "redis" shares them through a Redis server.
type CacheConfig struct {
	Provider   string        `json:"provider" yaml:"provider" env:"STORESYNC_CACHE_PROVIDER" default:"none"`
	RedisURL   string        `json:"redis_url" yaml:"redis_url" env:"STORESYNC_REDIS_URL,REDIS_URL"`
	CatalogTTL time.Duration `json:"catalog_ttl" yaml:"catalog_ttl" env:"STORESYNC_CACHE_CATALOG_TTL" default:"1m"`
	KeyPrefix  string        `json:"key_prefix" yaml:"key_prefix" env:"STORESYNC_CACHE_PREFIX" default:"storesync"`
}

// TelemetryConfig contains observability configuration for metrics and distributed tracing.
// Telemetry is only initialized when Enabled=true. Exporter "otlp" ships spans to
// Endpoint over gRPC; "stdout" pretty-prints them for local debugging.
type TelemetryConfig struct {
	Enabled        bool    `json:"enabled" yaml:"enabled" env:"STORESYNC_TELEMETRY_ENABLED" default:"false"`
	Exporter       string  `json:"exporter" yaml:"exporter" env:"STORESYNC_TELEMETRY_EXPORTER" default:"otlp"`
	Endpoint       string  `json:"endpoint" yaml:"endpoint" env:"STORESYNC_TELEMETRY_ENDPOINT,OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName    string  `json:"service_name" yaml:"service_name" env:"STORESYNC_TELEMETRY_SERVICE_NAME,OTEL_SERVICE_NAME"`
	MetricsEnabled bool    `json:"metrics_enabled" yaml:"metrics_enabled" env:"STORESYNC_TELEMETRY_METRICS" default:"true"`
	TracingEnabled bool    `json:"tracing_enabled" yaml:"tracing_enabled" env:"STORESYNC_TELEMETRY_TRACING" default:"true"`
	SamplingRate   float64 `json:"sampling_rate" yaml:"sampling_rate" env:"STORESYNC_TELEMETRY_SAMPLING_RATE" default:"1.0"`
	Insecure       bool    `json:"insecure" yaml:"insecure" env:"STORESYNC_TELEMETRY_INSECURE" default:"true"`
}

// LoggingConfig contains logging configuration.
// Supports structured (JSON) and human-readable (text) formats.
type LoggingConfig struct {
	Level      string `json:"level" yaml:"level" env:"STORESYNC_LOG_LEVEL" default:"info"`
	Format     string `json:"format" yaml:"format" env:"STORESYNC_LOG_FORMAT" default:"json"`
	Output     string `json:"output" yaml:"output" env:"STORESYNC_LOG_OUTPUT" default:"stdout"`
	TimeFormat string `json:"time_format" yaml:"time_format" env:"STORESYNC_LOG_TIME_FORMAT"`
}

// DevelopmentConfig contains settings for local development and testing.
type DevelopmentConfig struct {
	Enabled      bool `json:"enabled" yaml:"enabled" env:"STORESYNC_DEV_MODE" default:"false"`
	DebugLogging bool `json:"debug_logging" yaml:"debug_logging" env:"STORESYNC_DEBUG" default:"false"`
	PrettyLogs   bool `json:"pretty_logs" yaml:"pretty_logs" env:"STORESYNC_PRETTY_LOGS" default:"false"`
}

// Option is a functional option for configuring the client.
// Options are applied after defaults and environment variables,
// giving them the highest priority.
type Option func(*Config) error

// DefaultConfig returns a configuration with sensible defaults.
// Timing defaults match what the storefront screens used: 500ms cart
// debounce, 100ms settle delay, 300ms search debounce and 15s auth timeout.
func DefaultConfig() *Config {
	return &Config{
		Name: "storesync",
		API: APIConfig{
			BaseURL:   "http://localhost:8085/api/v1",
			Timeout:   30 * time.Second,
			Endpoints: DefaultEndpoints(),
		},
		Auth: AuthConfig{
			Timeout: 15 * time.Second,
		},
		Retry: RetryConfig{
			MaxAttempts:     3,
			InitialInterval: 1 * time.Second,
			MaxInterval:     30 * time.Second,
			Multiplier:      2.0,
			Jitter:          false,
		},
		Cart: CartConfig{
			DebounceWindow:  500 * time.Millisecond,
			SettleDelay:     100 * time.Millisecond,
			RefreshInterval: 5 * time.Second,
			DeliveryFee:     60,
			MaxQuantity:     100,
		},
		Search: SearchConfig{
			DebounceWindow: 300 * time.Millisecond,
		},
		Cache: CacheConfig{
			Provider:   "none",
			CatalogTTL: 1 * time.Minute,
			KeyPrefix:  "storesync",
		},
		Telemetry: TelemetryConfig{
			Enabled:        false,
			Exporter:       "otlp",
			MetricsEnabled: true,
			TracingEnabled: true,
			SamplingRate:   1.0,
			Insecure:       true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			Output:     "stdout",
			TimeFormat: time.RFC3339Nano,
		},
	}
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables take precedence over defaults but are overridden by functional options.
//
// Variable naming convention:
//   - Client-specific: STORESYNC_<SETTING>
//   - Standard variables: REDIS_URL, OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_SERVICE_NAME
//
// Unparsable numbers and durations are reported as ErrInvalidConfiguration.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("STORESYNC_NAME"); v != "" {
		c.Name = v
	}

	// API settings
	if v := os.Getenv("STORESYNC_API_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
	if err := envDuration("STORESYNC_API_TIMEOUT", &c.API.Timeout); err != nil {
		return err
	}
	if v := os.Getenv("STORESYNC_API_USER_AGENT"); v != "" {
		c.API.UserAgent = v
	}
	if err := envDuration("STORESYNC_AUTH_TIMEOUT", &c.Auth.Timeout); err != nil {
		return err
	}

	// Retry settings
	if v := os.Getenv("STORESYNC_RETRY_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("STORESYNC_RETRY_MAX_ATTEMPTS=%q: %w", v, ErrInvalidConfiguration)
		}
		c.Retry.MaxAttempts = n
	}
	if err := envDuration("STORESYNC_RETRY_INITIAL_INTERVAL", &c.Retry.InitialInterval); err != nil {
		return err
	}
	if err := envDuration("STORESYNC_RETRY_MAX_INTERVAL", &c.Retry.MaxInterval); err != nil {
		return err
	}
	if v := os.Getenv("STORESYNC_RETRY_MULTIPLIER"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("STORESYNC_RETRY_MULTIPLIER=%q: %w", v, ErrInvalidConfiguration)
		}
		c.Retry.Multiplier = f
	}
	if v := os.Getenv("STORESYNC_RETRY_JITTER"); v != "" {
		c.Retry.Jitter = parseBool(v)
	}

	// Cart settings
	if err := envDuration("STORESYNC_CART_DEBOUNCE", &c.Cart.DebounceWindow); err != nil {
		return err
	}
	if err := envDuration("STORESYNC_CART_SETTLE_DELAY", &c.Cart.SettleDelay); err != nil {
		return err
	}
	if err := envDuration("STORESYNC_CART_REFRESH_INTERVAL", &c.Cart.RefreshInterval); err != nil {
		return err
	}
	if v := os.Getenv("STORESYNC_CART_DELIVERY_FEE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("STORESYNC_CART_DELIVERY_FEE=%q: %w", v, ErrInvalidConfiguration)
		}
		c.Cart.DeliveryFee = f
	}
	if v := os.Getenv("STORESYNC_CART_MAX_QUANTITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("STORESYNC_CART_MAX_QUANTITY=%q: %w", v, ErrInvalidConfiguration)
		}
		c.Cart.MaxQuantity = n
	}

	// Search settings
	if err := envDuration("STORESYNC_SEARCH_DEBOUNCE", &c.Search.DebounceWindow); err != nil {
		return err
	}

	// Cache settings
	if v := os.Getenv("STORESYNC_CACHE_PROVIDER"); v != "" {
		c.Cache.Provider = v
	}
	if v := firstEnv("STORESYNC_REDIS_URL", "REDIS_URL"); v != "" {
		c.Cache.RedisURL = v
	}
	if err := envDuration("STORESYNC_CACHE_CATALOG_TTL", &c.Cache.CatalogTTL); err != nil {
		return err
	}
	if v := os.Getenv("STORESYNC_CACHE_PREFIX"); v != "" {
		c.Cache.KeyPrefix = v
	}

	// Telemetry settings
	if v := os.Getenv("STORESYNC_TELEMETRY_ENABLED"); v != "" {
		c.Telemetry.Enabled = parseBool(v)
	}
	if v := os.Getenv("STORESYNC_TELEMETRY_EXPORTER"); v != "" {
		c.Telemetry.Exporter = v
	}
	if v := firstEnv("STORESYNC_TELEMETRY_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.Telemetry.Endpoint = v
	}
	if v := firstEnv("STORESYNC_TELEMETRY_SERVICE_NAME", "OTEL_SERVICE_NAME"); v != "" {
		c.Telemetry.ServiceName = v
	}
	if v := os.Getenv("STORESYNC_TELEMETRY_METRICS"); v != "" {
		c.Telemetry.MetricsEnabled = parseBool(v)
	}
	if v := os.Getenv("STORESYNC_TELEMETRY_TRACING"); v != "" {
		c.Telemetry.TracingEnabled = parseBool(v)
	}
	if v := os.Getenv("STORESYNC_TELEMETRY_SAMPLING_RATE"); v != "" {
		if rate, err := strconv.ParseFloat(v, 64); err == nil {
			c.Telemetry.SamplingRate = rate
		}
	}
	if v := os.Getenv("STORESYNC_TELEMETRY_INSECURE"); v != "" {
		c.Telemetry.Insecure = parseBool(v)
	}

	// Logging settings
	if v := os.Getenv("STORESYNC_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("STORESYNC_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("STORESYNC_LOG_OUTPUT"); v != "" {
		c.Logging.Output = v
	}
	if v := os.Getenv("STORESYNC_LOG_TIME_FORMAT"); v != "" {
		c.Logging.TimeFormat = v
	}

	// Development settings
	if v := os.Getenv("STORESYNC_DEV_MODE"); v != "" {
		c.Development.Enabled = parseBool(v)
		if c.Development.Enabled {
			c.Development.PrettyLogs = true
			c.Logging.Format = "text"
		}
	}
	if v := os.Getenv("STORESYNC_DEBUG"); v != "" {
		c.Development.DebugLogging = parseBool(v)
		if c.Development.DebugLogging {
			c.Logging.Level = "debug"
		}
	}

	return nil
}

// LoadFromFile loads configuration from a JSON or YAML file.
// The file format is chosen by extension (.json, .yaml, .yml). Durations
// are nanoseconds in JSON and Go duration strings ("500ms") in YAML.
//
// Example YAML:
//
//	api:
//	  base_url: https://shop.example.com/api/v1
//	cart:
//	  debounce_window: 500ms
//	  delivery_fee: 60
func (c *Config) LoadFromFile(path string) error {
	cleanPath := filepath.Clean(path)

	ext := filepath.Ext(cleanPath)
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config file extension %s: %w", ext, ErrInvalidConfiguration)
	}

	data, err := os.ReadFile(cleanPath) // nosec G304 -- path is caller supplied config
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", cleanPath, err)
	}

	switch ext {
	case ".json":
		if err := json.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse JSON config file: %v: %w", err, ErrInvalidConfiguration)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("failed to parse YAML config file: %v: %w", err, ErrInvalidConfiguration)
		}
	}

	return nil
}

// Validate checks if the configuration is valid and returns an error if not.
// This method is called automatically by NewConfig() but can also be called
// manually after modifying configuration.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return &FrameworkError{
			Op:      "Config.Validate",
			Kind:    "config",
			Message: "api base URL is required",
			Err:     ErrMissingConfiguration,
		}
	}
	if u, err := url.Parse(c.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return &FrameworkError{
			Op:      "Config.Validate",
			Kind:    "config",
			Message: fmt.Sprintf("invalid api base URL: %q", c.API.BaseURL),
			Err:     ErrInvalidConfiguration,
		}
	}

	if c.Retry.MaxAttempts < 1 {
		return &FrameworkError{
			Op:      "Config.Validate",
			Kind:    "config",
			Message: fmt.Sprintf("retry max attempts must be at least 1, got %d", c.Retry.MaxAttempts),
			Err:     ErrInvalidConfiguration,
		}
	}
	if c.Retry.Multiplier < 1 {
		return &FrameworkError{
			Op:      "Config.Validate",
			Kind:    "config",
			Message: fmt.Sprintf("retry multiplier must be >= 1, got %v", c.Retry.Multiplier),
			Err:     ErrInvalidConfiguration,
		}
	}

	if c.Cart.MaxQuantity < 1 {
		return &FrameworkError{
			Op:      "Config.Validate",
			Kind:    "config",
			Message: fmt.Sprintf("cart max quantity must be at least 1, got %d", c.Cart.MaxQuantity),
			Err:     ErrInvalidConfiguration,
		}
	}
	if c.Cart.DeliveryFee < 0 {
		return &FrameworkError{
			Op:      "Config.Validate",
			Kind:    "config",
			Message: "cart delivery fee cannot be negative",
			Err:     ErrInvalidConfiguration,
		}
	}
	if c.Cart.DebounceWindow < 0 || c.Cart.SettleDelay < 0 || c.Search.DebounceWindow < 0 {
		return &FrameworkError{
			Op:      "Config.Validate",
			Kind:    "config",
			Message: "debounce and settle durations cannot be negative",
			Err:     ErrInvalidConfiguration,
		}
	}

	switch c.Cache.Provider {
	case "", "none", "memory":
	case "redis":
		if c.Cache.RedisURL == "" {
			return &FrameworkError{
				Op:      "Config.Validate",
				Kind:    "config",
				Message: "redis URL is required for the redis cache provider",
				Err:     ErrMissingConfiguration,
			}
		}
	default:
		return &FrameworkError{
			Op:      "Config.Validate",
			Kind:    "config",
			Message: fmt.Sprintf("unknown cache provider: %q", c.Cache.Provider),
			Err:     ErrInvalidConfiguration,
		}
	}

	if c.Telemetry.Enabled && c.Telemetry.Exporter == "otlp" && c.Telemetry.Endpoint == "" {
		return &FrameworkError{
			Op:      "Config.Validate",
			Kind:    "config",
			Message: "telemetry endpoint is required when the otlp exporter is enabled",
			Err:     ErrMissingConfiguration,
		}
	}

	return nil
}

// Helper functions

func envDuration(key string, dst *time.Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s=%q: %w", key, v, ErrInvalidConfiguration)
	}
	*dst = d
	return nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// parseBool converts a string to a boolean value.
// Accepts: "true", "1", "yes", "on" (case-insensitive) as true.
// Everything else is false.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// Functional Options

// WithName sets the client name used in logs and telemetry.
func WithName(name string) Option {
	return func(c *Config) error {
		c.Name = name
		return nil
	}
}

// WithBaseURL sets the backend base URL, e.g. "https://shop.example.com/api/v1".
func WithBaseURL(baseURL string) Option {
	return func(c *Config) error {
		c.API.BaseURL = strings.TrimRight(baseURL, "/")
		return nil
	}
}

// WithEndpoints replaces the backend path table.
func WithEndpoints(endpoints Endpoints) Option {
	return func(c *Config) error {
		c.API.Endpoints = endpoints
		return nil
	}
}

// WithRequestTimeout sets the per-request timeout for ordinary calls.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Config) error {
		c.API.Timeout = d
		return nil
	}
}

// WithAuthTimeout sets the timeout for login and logout calls.
func WithAuthTimeout(d time.Duration) Option {
	return func(c *Config) error {
		c.Auth.Timeout = d
		return nil
	}
}

// WithRetry configures automatic retry with exponential backoff.
// Parameters:
//   - maxAttempts: Maximum number of attempts (including the first)
//   - initialInterval: Delay before the second attempt
//
// The retry interval doubles after each failure up to MaxInterval.
func WithRetry(maxAttempts int, initialInterval time.Duration) Option {
	return func(c *Config) error {
		c.Retry.MaxAttempts = maxAttempts
		c.Retry.InitialInterval = initialInterval
		return nil
	}
}

// WithCartTiming sets the cart debounce window and the post-commit settle delay.
func WithCartTiming(debounce, settle time.Duration) Option {
	return func(c *Config) error {
		c.Cart.DebounceWindow = debounce
		c.Cart.SettleDelay = settle
		return nil
	}
}

// WithDeliveryFee sets the flat delivery fee applied to non-empty carts.
func WithDeliveryFee(fee float64) Option {
	return func(c *Config) error {
		if fee < 0 {
			return &FrameworkError{
				Op:      "WithDeliveryFee",
				Kind:    "config",
				Message: fmt.Sprintf("invalid delivery fee: %v", fee),
				Err:     ErrInvalidConfiguration,
			}
		}
		c.Cart.DeliveryFee = fee
		return nil
	}
}

// WithSearchDebounce sets the trailing search debounce window.
func WithSearchDebounce(d time.Duration) Option {
	return func(c *Config) error {
		c.Search.DebounceWindow = d
		return nil
	}
}

// WithCache selects the catalog cache provider and entry lifetime.
// Use "redis" together with WithRedisURL.
func WithCache(provider string, ttl time.Duration) Option {
	return func(c *Config) error {
		c.Cache.Provider = provider
		c.Cache.CatalogTTL = ttl
		return nil
	}
}

// WithRedisURL sets the Redis connection URL for the redis cache provider.
func WithRedisURL(redisURL string) Option {
	return func(c *Config) error {
		c.Cache.RedisURL = redisURL
		return nil
	}
}

// WithTelemetry enables tracing and metrics export.
func WithTelemetry(enabled bool, exporter, endpoint string) Option {
	return func(c *Config) error {
		c.Telemetry.Enabled = enabled
		if exporter != "" {
			c.Telemetry.Exporter = exporter
		}
		c.Telemetry.Endpoint = endpoint
		return nil
	}
}

// WithLogLevel sets the logging level.
// Valid levels: "debug", "info", "warn", "error".
func WithLogLevel(level string) Option {
	return func(c *Config) error {
		c.Logging.Level = level
		return nil
	}
}

// WithLogFormat sets the logging format.
// Valid formats: "json", "text".
func WithLogFormat(format string) Option {
	return func(c *Config) error {
		c.Logging.Format = format
		return nil
	}
}

// WithLogOutput sets where logs go: "stdout", "stderr" or a file path.
func WithLogOutput(output string) Option {
	return func(c *Config) error {
		c.Logging.Output = output
		return nil
	}
}

// WithConfigFile loads configuration from a JSON or YAML file.
// File configuration is applied in option order, so later options
// can override file settings.
func WithConfigFile(path string) Option {
	return func(c *Config) error {
		return c.LoadFromFile(path)
	}
}

// WithDevelopmentMode enables human-readable debug logging.
func WithDevelopmentMode(enabled bool) Option {
	return func(c *Config) error {
		c.Development.Enabled = enabled
		if enabled {
			c.Development.PrettyLogs = true
			c.Logging.Format = "text"
			c.Logging.Level = "debug"
		}
		return nil
	}
}

// NewConfig creates a new configuration with the provided options.
// Configuration is applied in the following order:
//  1. Default values from DefaultConfig()
//  2. Environment variables via LoadFromEnv()
//  3. Functional options (highest priority)
//  4. Validation via Validate()
func NewConfig(opts ...Option) (*Config, error) {
	cfg := DefaultConfig()

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load env config: %w", err)
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
