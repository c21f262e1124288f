package core

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIErrorFormatting(t *testing.T) {
	raw := &HTTPError{Method: "PUT", URL: "http://x/addToCart/update", Status: 400, ServerMessage: "Insufficient stock"}
	err := &APIError{Kind: KindValidation, Message: "Insufficient stock", Status: 400, Op: "cart.SetQuantity", Err: raw}

	assert.Equal(t, "cart.SetQuantity: [VALIDATION_ERROR] Insufficient stock", err.Error())
	assert.Equal(t, "[TIMEOUT] slow", (&APIError{Kind: KindTimeout, Message: "slow"}).Error())

	var httpErr *HTTPError
	assert.True(t, errors.As(err, &httpErr))
	assert.Equal(t, "Insufficient stock", httpErr.ServerMessage)
}

func TestRawErrorFormatting(t *testing.T) {
	h := &HTTPError{Method: "GET", URL: "http://x/orders", Status: 502}
	assert.Equal(t, "GET http://x/orders: status 502", h.Error())

	cause := errors.New("dial tcp: refused")
	tr := &TransportError{Method: "GET", URL: "http://x/cart", Err: cause}
	assert.Equal(t, "GET http://x/cart: dial tcp: refused", tr.Error())
	assert.ErrorIs(t, tr, cause)

	tr.Timeout = true
	assert.Contains(t, tr.Error(), "timeout")
}

func TestKindAndStatusOf(t *testing.T) {
	api := &APIError{Kind: KindForbidden, Status: http.StatusForbidden}
	assert.Equal(t, KindForbidden, KindOf(api))
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))

	assert.Equal(t, 403, StatusOf(api))
	assert.Equal(t, 503, StatusOf(&HTTPError{Status: 503}))
	assert.Equal(t, 0, StatusOf(errors.New("plain")))
}

func TestHTTPStatusForKind(t *testing.T) {
	tests := map[ErrorKind]int{
		KindValidation:         http.StatusBadRequest,
		KindUnauthorized:       http.StatusUnauthorized,
		KindForbidden:          http.StatusForbidden,
		KindNotFound:           http.StatusNotFound,
		KindTimeout:            http.StatusGatewayTimeout,
		KindServerError:        http.StatusInternalServerError,
		KindNetworkUnavailable: http.StatusInternalServerError,
		KindUnknown:            http.StatusInternalServerError,
	}
	for kind, want := range tests {
		assert.Equal(t, want, HTTPStatusForKind(kind), kind)
	}
}
