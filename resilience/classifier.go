package resilience

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"syscall"

	"github.com/itsneelabh/storesync/core"
)

// User-facing messages, one per error kind.
const (
	MessageNetworkUnavailable = "Cannot connect to server. Please check your internet connection and try again."
	MessageTimeout            = "Request timed out. Please try again."
	MessageUnauthorized       = "Authentication failed. Please login again."
	MessageForbidden          = "Access denied. Please check your permissions."
	MessageNotFound           = "Resource not found. Please try again later."
	MessageServerError        = "Server error. Please try again later."
	MessageUnknown            = "Network error occurred. Please try again."
)

// Classification is the verdict on a failed call.
type Classification struct {
	Kind      core.ErrorKind
	Message   string
	Retryable bool
}

// Classify maps a failure to a user-facing message and a retry decision.
//
// Decision table, first match wins:
//
//	no response received                -> NetworkUnavailable, retry
//	timeout or deadline exceeded        -> Timeout, retry
//	HTTP 401                            -> Unauthorized, no retry
//	HTTP 403                            -> Forbidden, no retry
//	HTTP 404                            -> NotFound, no retry
//	HTTP 500 and above                  -> ServerError, retry
//	backend supplied its own message    -> ValidationError, no retry
//	anything else                       -> Unknown, no retry
//
// A request that timed out also received no response; it is reported as
// Timeout because that is the more specific verdict. Both are retryable.
// An already classified *core.APIError keeps its verdict.
func Classify(err error) Classification {
	if err == nil {
		return Classification{}
	}

	var apiErr *core.APIError
	if errors.As(err, &apiErr) {
		return Classification{Kind: apiErr.Kind, Message: apiErr.Message, Retryable: apiErr.Retryable}
	}

	// Caller gave up; repeating would be pointless.
	if errors.Is(err, context.Canceled) {
		return Classification{Kind: core.KindUnknown, Message: MessageUnknown}
	}

	var transportErr *core.TransportError
	if errors.As(err, &transportErr) {
		if transportErr.Timeout || isTimeout(transportErr.Err) {
			return timeoutClassification()
		}
		return networkClassification()
	}
	if isTimeout(err) {
		return timeoutClassification()
	}
	if isNetwork(err) {
		return networkClassification()
	}

	var httpErr *core.HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.Status == http.StatusUnauthorized:
			return Classification{Kind: core.KindUnauthorized, Message: MessageUnauthorized}
		case httpErr.Status == http.StatusForbidden:
			return Classification{Kind: core.KindForbidden, Message: MessageForbidden}
		case httpErr.Status == http.StatusNotFound:
			return Classification{Kind: core.KindNotFound, Message: MessageNotFound}
		case httpErr.Status >= http.StatusInternalServerError:
			return Classification{Kind: core.KindServerError, Message: MessageServerError, Retryable: true}
		case httpErr.ServerMessage != "":
			return Classification{Kind: core.KindValidation, Message: httpErr.ServerMessage}
		}
	}

	return Classification{Kind: core.KindUnknown, Message: MessageUnknown}
}

// IsRetryable reports whether Classify would retry err.
func IsRetryable(err error) bool {
	return Classify(err).Retryable
}

// Surface converts err into the error shown to callers: a *core.APIError
// carrying the classified message, with the raw failure kept underneath for
// logs. nil stays nil and an existing *core.APIError is returned as is.
func Surface(op string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *core.APIError
	if errors.As(err, &apiErr) {
		return err
	}
	c := Classify(err)
	return &core.APIError{
		Kind:      c.Kind,
		Message:   c.Message,
		Retryable: c.Retryable,
		Status:    core.StatusOf(err),
		Op:        op,
		Err:       err,
	}
}

func timeoutClassification() Classification {
	return Classification{Kind: core.KindTimeout, Message: MessageTimeout, Retryable: true}
}

func networkClassification() Classification {
	return Classification{Kind: core.KindNetworkUnavailable, Message: MessageNetworkUnavailable, Retryable: true}
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, core.ErrTimeout) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isNetwork(err error) bool {
	if errors.Is(err, core.ErrConnectionFailed) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
