package core

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(buf *bytes.Buffer, level string) *ProductionLogger {
	return NewProductionLoggerWithWriter(
		LoggingConfig{Level: level, Format: "json"},
		DevelopmentConfig{},
		"test-service",
		buf,
	)
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		out = append(out, entry)
	}
	return out
}

// TestProductionLoggerImplementsComponentAwareLogger verifies that ProductionLogger
// implements the ComponentAwareLogger interface
func TestProductionLoggerImplementsComponentAwareLogger(t *testing.T) {
	var logger Logger = NewProductionLogger(LoggingConfig{Level: "info", Format: "json"}, DevelopmentConfig{}, "test-service")

	_, ok := logger.(ComponentAwareLogger)
	assert.True(t, ok, "ProductionLogger should implement ComponentAwareLogger interface")
}

// TestLogOutputIncludesComponent verifies the JSON shape of an entry
func TestLogOutputIncludesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, "info").WithComponent("cart")

	logger.Info("Cart fetched", map[string]interface{}{"operation": "cart_fetch", "lines": 2})

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "info", e["level"])
	assert.Equal(t, "Cart fetched", e["message"])
	assert.Equal(t, "test-service", e["service"])
	assert.Equal(t, "cart", e["component"])
	assert.Equal(t, "cart_fetch", e["operation"])
	assert.Equal(t, float64(2), e["lines"])
	assert.Contains(t, e, "time")
}

// TestWithComponentCreatesNewLogger verifies the parent is left untouched
func TestWithComponentCreatesNewLogger(t *testing.T) {
	var buf bytes.Buffer
	parent := newTestLogger(&buf, "info")
	child := parent.WithComponent("catalog")

	assert.NotSame(t, parent, child)

	parent.Info("from parent", nil)
	child.Info("from child", nil)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.NotContains(t, entries[0], "component")
	assert.Equal(t, "catalog", entries[1]["component"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestLogger(&buf, "warn")

	logger.Debug("debug", nil)
	logger.Info("info", nil)
	logger.Warn("warn", nil)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "warn", entries[0]["message"])
}

func TestDebugLoggingOverridesLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewProductionLoggerWithWriter(LoggingConfig{Level: "error", Format: "json"}, DevelopmentConfig{DebugLogging: true}, "svc", &buf)

	logger.Debug("visible", nil)
	assert.Contains(t, buf.String(), "visible")
}

// TestErrorRateLimitShared verifies children share the parent's limiter
func TestErrorRateLimitShared(t *testing.T) {
	var buf bytes.Buffer
	parent := newTestLogger(&buf, "info")
	child := parent.WithComponent("retry-executor")

	parent.Error("first", nil)
	child.Error("second", nil)
	parent.Error("third", nil)

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "first", entries[0]["message"])
}

// TestTextFormatWorksWithComponent verifies the console writer path
func TestTextFormatWorksWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewProductionLoggerWithWriter(LoggingConfig{Level: "info", Format: "text"}, DevelopmentConfig{}, "svc", &buf)

	logger.WithComponent("search").Info("Search results discarded", map[string]interface{}{"seq": 3})

	out := buf.String()
	assert.Contains(t, out, "Search results discarded")
	assert.Contains(t, out, "component=search")
	assert.Contains(t, out, "seq=3")
}

func TestWithComponentHelper(t *testing.T) {
	assert.IsType(t, &NoOpLogger{}, WithComponent(nil, "x"))

	plain := &NoOpLogger{}
	assert.Same(t, plain, WithComponent(plain, "x"))

	var buf bytes.Buffer
	scoped := WithComponent(newTestLogger(&buf, "info"), "orders")
	scoped.Info("ok", nil)
	assert.Contains(t, buf.String(), `"component":"orders"`)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(time.Hour)
	assert.True(t, rl.Allow())
	assert.False(t, rl.Allow())

	open := NewRateLimiter(0)
	assert.True(t, open.Allow())
	assert.True(t, open.Allow())
}
