// Package telemetry wires OpenTelemetry into the storefront client.
//
// Three pieces:
//   - Provider installs a tracer provider exporting over OTLP/gRPC, or to
//     stdout for local debugging
//   - NewTracedHTTPClient wraps the REST transport with otelhttp so every
//     backend call becomes a client span with propagated trace context
//   - Counter, Histogram and Duration record metrics through cached
//     instruments on the global meter
//
// All three are safe to use when telemetry is disabled: spans go to the
// no-op tracer and metrics to the no-op meter.
package telemetry
