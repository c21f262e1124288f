package core

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

// Test IsRetryable function
func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "ErrTimeout is retryable",
			err:      ErrTimeout,
			expected: true,
		},
		{
			name:     "ErrConnectionFailed is retryable",
			err:      ErrConnectionFailed,
			expected: true,
		},
		{
			name:     "wrapped retryable error is retryable",
			err:      fmt.Errorf("operation failed: %w", ErrTimeout),
			expected: true,
		},
		{
			name:     "retryable APIError",
			err:      &APIError{Kind: KindServerError, Retryable: true},
			expected: true,
		},
		{
			name:     "APIError verdict wins over wrapped sentinel",
			err:      &APIError{Kind: KindUnauthorized, Err: ErrTimeout},
			expected: false,
		},
		{
			name:     "ErrInvalidConfiguration is not retryable",
			err:      ErrInvalidConfiguration,
			expected: false,
		},
		{
			name:     "custom error is not retryable",
			err:      errors.New("custom error"),
			expected: false,
		},
		{
			name:     "nil error is not retryable",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.expected {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

// Test IsNotFound function
func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"ErrProductNotFound", ErrProductNotFound, true},
		{"ErrOrderNotFound", ErrOrderNotFound, true},
		{"wrapped ErrOrderNotFound", fmt.Errorf("cancel: %w", ErrOrderNotFound), true},
		{"classified not found", &APIError{Kind: KindNotFound, Status: http.StatusNotFound}, true},
		{"classified server error", &APIError{Kind: KindServerError}, false},
		{"ErrTimeout", ErrTimeout, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotFound(tt.err); got != tt.expected {
				t.Errorf("IsNotFound(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

// Test IsConfigurationError function
func TestIsConfigurationError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"ErrInvalidConfiguration", ErrInvalidConfiguration, true},
		{"ErrMissingConfiguration", ErrMissingConfiguration, true},
		{"FrameworkError wrapping config error", &FrameworkError{Op: "Config.Validate", Err: ErrMissingConfiguration}, true},
		{"ErrEmptyCart", ErrEmptyCart, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsConfigurationError(tt.err); got != tt.expected {
				t.Errorf("IsConfigurationError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestIsReauthRequired(t *testing.T) {
	if !IsReauthRequired(&APIError{Kind: KindUnauthorized}) {
		t.Error("unauthorized APIError should require re-authentication")
	}
	if !IsReauthRequired(fmt.Errorf("cart: %w", ErrNotAuthenticated)) {
		t.Error("ErrNotAuthenticated should require re-authentication")
	}
	if IsReauthRequired(&APIError{Kind: KindForbidden}) {
		t.Error("forbidden is not a re-authentication case")
	}
}

func TestFrameworkErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *FrameworkError
		want string
	}{
		{
			name: "op and id",
			err:  &FrameworkError{Op: "orders.Cancel", ID: "ORD-1", Err: ErrOrderNotFound},
			want: "orders.Cancel [ORD-1]: order not found",
		},
		{
			name: "op and message",
			err:  &FrameworkError{Op: "orders.Place", Message: "invalid fields: City (required)", Err: ErrInvalidOrder},
			want: "orders.Place: invalid fields: City (required): invalid order request",
		},
		{
			name: "op only",
			err:  &FrameworkError{Op: "cart.Fetch", Err: ErrNotAuthenticated},
			want: "cart.Fetch: session has no token",
		},
		{
			name: "message only",
			err:  &FrameworkError{Message: "bad input"},
			want: "bad input",
		},
		{
			name: "kind only",
			err:  &FrameworkError{Kind: "cart"},
			want: "cart error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

// Test error wrapping and unwrapping
func TestErrorWrapping(t *testing.T) {
	baseErr := ErrProductNotFound
	wrappedOnce := NewFrameworkError("catalog.Product", "catalog", baseErr)
	wrappedTwice := fmt.Errorf("operation failed: %w", wrappedOnce)

	if !IsNotFound(wrappedTwice) {
		t.Error("Twice-wrapped error should be detected as not-found")
	}
	if !errors.Is(wrappedTwice, ErrProductNotFound) {
		t.Error("errors.Is should work through multiple wrapping layers")
	}

	var fe *FrameworkError
	if !errors.As(wrappedTwice, &fe) || fe.Op != "catalog.Product" {
		t.Errorf("errors.As should find the FrameworkError, got %v", fe)
	}
	if (&FrameworkError{}).Unwrap() != nil {
		t.Error("Unwrap of an empty FrameworkError should be nil")
	}
}

// Benchmark error checking functions
func BenchmarkIsRetryable(b *testing.B) {
	err := fmt.Errorf("wrapped: %w", ErrTimeout)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = IsRetryable(err)
	}
}
