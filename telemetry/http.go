package telemetry

import (
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewTracedHTTPClient creates an HTTP client that creates a client span for
// every request and injects trace context headers.
//
// If baseTransport is nil, a pooled transport is used. timeout bounds each
// request end to end; zero means no client-level timeout.
//
// Example:
//
//	client := telemetry.NewTracedHTTPClient(nil, 30*time.Second)
//	req, _ := http.NewRequestWithContext(ctx, "GET", url, nil)
//	resp, err := client.Do(req)
func NewTracedHTTPClient(baseTransport http.RoundTripper, timeout time.Duration) *http.Client {
	if baseTransport == nil {
		baseTransport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			ForceAttemptHTTP2:   true,
		}
	}

	return &http.Client{
		Transport: otelhttp.NewTransport(baseTransport,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return "storesync " + r.Method + " " + r.URL.Path
			}),
		),
		Timeout: timeout,
	}
}
