package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names emitted by the client.
const (
	MetricRequests        = "storesync.http.requests"
	MetricRequestDuration = "storesync.http.duration_ms"

	MetricRetryAttempts = "storesync.retry.attempts"
	MetricRetrySuccess  = "storesync.retry.success"
	MetricRetryFailures = "storesync.retry.failures"
	MetricRetryBackoff  = "storesync.retry.backoff_ms"

	MetricCartMutations  = "storesync.cart.mutations"
	MetricCartFetches    = "storesync.cart.fetches"
	MetricCartReconciled = "storesync.cart.reconciled"

	MetricSearchRuns      = "storesync.search.runs"
	MetricSearchDiscarded = "storesync.search.discarded"

	MetricCacheHits   = "storesync.cache.hits"
	MetricCacheMisses = "storesync.cache.misses"
)

// MetricInstruments holds cached metric instruments for efficient recording
type MetricInstruments struct {
	meter      metric.Meter
	counters   map[string]metric.Int64Counter
	histograms map[string]metric.Float64Histogram
	mu         sync.RWMutex
}

// NewMetricInstruments creates a new metrics instrument cache
func NewMetricInstruments(meterName string) *MetricInstruments {
	return &MetricInstruments{
		meter:      otel.Meter(meterName),
		counters:   make(map[string]metric.Int64Counter),
		histograms: make(map[string]metric.Float64Histogram),
	}
}

// RecordCounter increments a counter metric
func (m *MetricInstruments) RecordCounter(ctx context.Context, name string, value int64, opts ...metric.AddOption) error {
	m.mu.RLock()
	counter, exists := m.counters[name]
	m.mu.RUnlock()

	if !exists {
		m.mu.Lock()
		// Double-check after acquiring write lock
		if counter, exists = m.counters[name]; !exists {
			var err error
			counter, err = m.meter.Int64Counter(name)
			if err != nil {
				m.mu.Unlock()
				return fmt.Errorf("failed to create counter %s: %w", name, err)
			}
			m.counters[name] = counter
		}
		m.mu.Unlock()
	}

	counter.Add(ctx, value, opts...)
	return nil
}

// RecordHistogram records a value in a histogram
func (m *MetricInstruments) RecordHistogram(ctx context.Context, name string, value float64, opts ...metric.RecordOption) error {
	m.mu.RLock()
	hist, exists := m.histograms[name]
	m.mu.RUnlock()

	if !exists {
		m.mu.Lock()
		if hist, exists = m.histograms[name]; !exists {
			var err error
			hist, err = m.meter.Float64Histogram(name)
			if err != nil {
				m.mu.Unlock()
				return fmt.Errorf("failed to create histogram %s: %w", name, err)
			}
			m.histograms[name] = hist
		}
		m.mu.Unlock()
	}

	hist.Record(ctx, value, opts...)
	return nil
}

// instrumentCount reports how many instruments have been created.
func (m *MetricInstruments) instrumentCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.counters) + len(m.histograms)
}

var (
	defaultInstruments     *MetricInstruments
	defaultInstrumentsOnce sync.Once
)

func instruments() *MetricInstruments {
	defaultInstrumentsOnce.Do(func() {
		defaultInstruments = NewMetricInstruments(instrumentationName)
	})
	return defaultInstruments
}

// Counter increments a counter metric by 1.
// Labels are key-value pairs: Counter(MetricRequests, "method", "GET").
func Counter(name string, labels ...string) {
	_ = instruments().RecordCounter(context.Background(), name, 1,
		metric.WithAttributes(parseLabels(labels...)...))
}

// Histogram records a value in a distribution.
func Histogram(name string, value float64, labels ...string) {
	_ = instruments().RecordHistogram(context.Background(), name, value,
		metric.WithAttributes(parseLabels(labels...)...))
}

// Duration records elapsed time since startTime in milliseconds.
//
//	start := time.Now()
//	defer telemetry.Duration(telemetry.MetricRequestDuration, start, "endpoint", "cart")
func Duration(name string, startTime time.Time, labels ...string) {
	Histogram(name, float64(time.Since(startTime).Milliseconds()), labels...)
}

// parseLabels turns k1, v1, k2, v2 into attributes. A trailing key without
// a value is dropped.
func parseLabels(labels ...string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(labels)/2)
	for i := 0; i+1 < len(labels); i += 2 {
		attrs = append(attrs, attribute.String(labels[i], labels[i+1]))
	}
	return attrs
}
