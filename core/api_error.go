package core

import (
	"errors"
	"fmt"
	"net/http"
)

// ============================================================================
// Error taxonomy for backend calls
// ============================================================================
//
// Failures are captured at the network-call boundary as one of two raw types:
//   - TransportError: no response was received (connection, DNS, timeout)
//   - HTTPError: the backend answered, but with a failure status or a
//     success:false envelope
//
// The resilience package classifies raw failures into an ErrorKind and wraps
// them in an APIError carrying the user-facing message. The raw error stays
// reachable through Unwrap for logging.

// ErrorKind classifies a failed backend call.
type ErrorKind string

const (
	// KindNetworkUnavailable means no response was received at all
	KindNetworkUnavailable ErrorKind = "NETWORK_UNAVAILABLE"

	// KindTimeout means the call was aborted by a deadline
	KindTimeout ErrorKind = "TIMEOUT"

	// KindUnauthorized means the bearer token was rejected.
	// Never retried; the caller must re-authenticate.
	KindUnauthorized ErrorKind = "UNAUTHORIZED"

	// KindForbidden means the user lacks permission for the resource
	KindForbidden ErrorKind = "FORBIDDEN"

	// KindNotFound means the resource does not exist
	KindNotFound ErrorKind = "NOT_FOUND"

	// KindServerError covers every 5xx response
	KindServerError ErrorKind = "SERVER_ERROR"

	// KindValidation means the backend rejected the request with its own message
	KindValidation ErrorKind = "VALIDATION_ERROR"

	// KindUnknown is everything else
	KindUnknown ErrorKind = "UNKNOWN"
)

// TransportError is returned when a request produced no HTTP response.
type TransportError struct {
	Method  string
	URL     string
	Timeout bool
	Err     error
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s %s: timeout: %v", e.Method, e.URL, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// HTTPError is returned when the backend answered with a failure.
// Status is the HTTP status code; ServerMessage is the backend's own
// "message" or "error" field when it sent one.
type HTTPError struct {
	Method        string
	URL           string
	Status        int
	ServerMessage string
	Body          interface{}
}

func (e *HTTPError) Error() string {
	if e.ServerMessage != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.Status, e.ServerMessage)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.Status)
}

// APIError is the classified, user-facing form of a failed backend call.
//
// Usage:
//
//	var apiErr *core.APIError
//	if errors.As(err, &apiErr) {
//	    showToast(apiErr.Message)
//	    if apiErr.Kind == core.KindUnauthorized {
//	        goToLogin()
//	    }
//	}
type APIError struct {
	// Kind is the taxonomy bucket
	Kind ErrorKind `json:"kind"`

	// Message is safe to show to the user
	Message string `json:"message"`

	// Retryable reports whether repeating the same call may succeed
	Retryable bool `json:"retryable"`

	// Status is the HTTP status when the backend answered, zero otherwise
	Status int `json:"status,omitempty"`

	// Op names the client operation that failed (e.g., "cart.update")
	Op string `json:"op,omitempty"`

	// Err is the raw failure, kept for logs
	Err error `json:"-"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: [%s] %s", e.Op, e.Kind, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the raw failure for use with errors.Is/As
func (e *APIError) Unwrap() error {
	return e.Err
}

// NewAPIError builds a classified error for a failure the client detected on
// its own, such as a request rejected before it was sent. Callers get the
// same error type they would for a backend rejection.
func NewAPIError(op string, kind ErrorKind, message string, err error) *APIError {
	return &APIError{
		Kind:    kind,
		Message: message,
		Op:      op,
		Err:     err,
	}
}

// KindOf returns the classified kind of err, or "" when err has not been
// classified.
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

// StatusOf returns the HTTP status carried by err, or zero.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status != 0 {
		return apiErr.Status
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status
	}
	return 0
}

// HTTPStatusForKind returns the HTTP status code a backend uses for a kind.
//
// Mapping:
//   - KindValidation   → 400 Bad Request
//   - KindUnauthorized → 401 Unauthorized
//   - KindForbidden    → 403 Forbidden
//   - KindNotFound     → 404 Not Found
//   - KindTimeout      → 504 Gateway Timeout
//   - KindServerError  → 500 Internal Server Error
//   - Unknown          → 500 Internal Server Error
func HTTPStatusForKind(kind ErrorKind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest // 400
	case KindUnauthorized:
		return http.StatusUnauthorized // 401
	case KindForbidden:
		return http.StatusForbidden // 403
	case KindNotFound:
		return http.StatusNotFound // 404
	case KindTimeout:
		return http.StatusGatewayTimeout // 504
	default:
		return http.StatusInternalServerError // 500
	}
}
