package resilience

import "github.com/itsneelabh/storesync/core"

// ResilienceDependencies holds optional dependencies
type ResilienceDependencies struct {
	Logger core.Logger
}

// CreateRetryExecutor creates a retry executor from the client's retry
// settings with proper dependency injection.
func CreateRetryExecutor(cfg core.RetryConfig, deps ResilienceDependencies) *RetryExecutor {
	executor := NewRetryExecutor(RetryConfigFrom(cfg))
	executor.SetLogger(core.WithComponent(deps.Logger, "retry-executor"))
	return executor
}

// WithLogger creates dependency injection option
func WithLogger(logger core.Logger) func(*ResilienceDependencies) {
	return func(d *ResilienceDependencies) {
		d.Logger = logger
	}
}

// NewDependencies applies options to an empty dependency set.
func NewDependencies(opts ...func(*ResilienceDependencies)) ResilienceDependencies {
	var d ResilienceDependencies
	for _, opt := range opts {
		opt(&d)
	}
	return d
}
