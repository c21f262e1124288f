package telemetry

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/itsneelabh/storesync/core"
)

// Provider owns the SDK tracer provider installed as the global one.
type Provider struct {
	tp     *sdktrace.TracerProvider
	tracer trace.Tracer
	logger core.Logger
}

// ProviderOption customizes NewProvider.
type ProviderOption func(*providerOptions)

type providerOptions struct {
	stdoutWriter io.Writer
	logger       core.Logger
	version      string
}

// WithStdoutWriter sends stdout-exporter output to w instead of os.Stdout.
func WithStdoutWriter(w io.Writer) ProviderOption {
	return func(o *providerOptions) { o.stdoutWriter = w }
}

// WithProviderLogger sets the logger used for provider lifecycle events.
func WithProviderLogger(l core.Logger) ProviderOption {
	return func(o *providerOptions) { o.logger = l }
}

// WithServiceVersion sets the service.version resource attribute.
func WithServiceVersion(v string) ProviderOption {
	return func(o *providerOptions) { o.version = v }
}

// NewProvider builds a tracer provider from cfg and installs it, together
// with the W3C trace-context and baggage propagators, as the global default.
func NewProvider(ctx context.Context, cfg core.TelemetryConfig, serviceName string, opts ...ProviderOption) (*Provider, error) {
	o := providerOptions{logger: &core.NoOpLogger{}, version: "dev"}
	for _, opt := range opts {
		opt(&o)
	}
	if cfg.ServiceName != "" {
		serviceName = cfg.ServiceName
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(o.version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := newExporter(ctx, cfg, o)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s exporter: %w", cfg.Exporter, err)
	}

	rate := cfg.SamplingRate
	if rate <= 0 || rate > 1 {
		rate = 1.0
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	o.logger.Info("Telemetry enabled", map[string]interface{}{
		"operation":     "telemetry_init",
		"exporter":      cfg.Exporter,
		"endpoint":      cfg.Endpoint,
		"service":       serviceName,
		"sampling_rate": rate,
	})

	return &Provider{
		tp:     tp,
		tracer: tp.Tracer(instrumentationName),
		logger: o.logger,
	}, nil
}

func newExporter(ctx context.Context, cfg core.TelemetryConfig, o providerOptions) (sdktrace.SpanExporter, error) {
	switch strings.ToLower(cfg.Exporter) {
	case "stdout":
		stdoutOpts := []stdouttrace.Option{stdouttrace.WithPrettyPrint()}
		if o.stdoutWriter != nil {
			stdoutOpts = append(stdoutOpts, stdouttrace.WithWriter(o.stdoutWriter))
		}
		return stdouttrace.New(stdoutOpts...)
	case "", "otlp":
		grpcOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			grpcOpts = append(grpcOpts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, grpcOpts...)
	default:
		return nil, fmt.Errorf("unknown exporter %q: %w", cfg.Exporter, core.ErrInvalidConfiguration)
	}
}

// Tracer returns the provider's tracer.
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// ForceFlush exports all finished spans now.
func (p *Provider) ForceFlush(ctx context.Context) error {
	return p.tp.ForceFlush(ctx)
}

// Shutdown flushes pending spans and stops the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	p.logger.Info("Telemetry shutting down", map[string]interface{}{
		"operation": "telemetry_shutdown",
	})
	return p.tp.Shutdown(ctx)
}
