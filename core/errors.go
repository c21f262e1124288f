package core

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for comparison using errors.Is()
// These are generic errors that can be wrapped with additional context
var (
	// Configuration errors
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrMissingConfiguration = errors.New("missing required configuration")

	// Session errors
	ErrNotAuthenticated = errors.New("session has no token")

	// Operation errors
	ErrTimeout = errors.New("operation timeout")

	// HTTP/Network errors
	ErrConnectionFailed = errors.New("connection failed")

	// Cart errors
	ErrMutationInFlight = errors.New("cart mutation already in flight")
	ErrNoProductID      = errors.New("cart line has no resolvable product id")
	ErrEmptyCart        = errors.New("cart is empty")

	// Catalog and order errors
	ErrProductNotFound = errors.New("product not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrInvalidOrder    = errors.New("invalid order request")
)

// FrameworkError provides structured error information with context
// It implements the error interface and supports error wrapping
type FrameworkError struct {
	Op      string // Operation that failed (e.g., "cart.SetQuantity")
	Kind    string // Error kind (e.g., "cart", "config", "order")
	ID      string // Optional ID of the entity involved
	Message string // Human-readable message
	Err     error  // Underlying error for wrapping
}

// Error returns the string representation of the error
func (e *FrameworkError) Error() string {
	if e.Op != "" && e.Err != nil {
		if e.ID != "" {
			return fmt.Sprintf("%s [%s]: %v", e.Op, e.ID, e.Err)
		}
		if e.Message != "" {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s error", e.Kind)
}

// Unwrap returns the underlying error for use with errors.Is/As
func (e *FrameworkError) Unwrap() error {
	return e.Err
}

// NewFrameworkError creates a new FrameworkError
func NewFrameworkError(op, kind string, err error) *FrameworkError {
	return &FrameworkError{
		Op:   op,
		Kind: kind,
		Err:  err,
	}
}

// IsRetryable checks if an error is retryable.
// Classified API errors carry their own decision; everything else falls back
// to the transient sentinels.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable
	}
	return errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConnectionFailed)
}

// IsNotFound checks if an error represents a "not found" condition
func IsNotFound(err error) bool {
	if KindOf(err) == KindNotFound {
		return true
	}
	return errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrOrderNotFound)
}

// IsConfigurationError checks if an error is configuration-related
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration) ||
		errors.Is(err, ErrMissingConfiguration)
}

// IsReauthRequired reports whether the caller must send the user back
// through login before trying again.
func IsReauthRequired(err error) bool {
	return KindOf(err) == KindUnauthorized || errors.Is(err, ErrNotAuthenticated)
}
