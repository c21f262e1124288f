package core

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ProductionLogger is the default Logger implementation, backed by zerolog.
//
// Behaviour:
//   - JSON lines by default, a console format when Format is "text"
//   - every entry carries the service name and, when set, the component
//   - error entries are rate limited to one per second per logger family so
//     a dead backend does not flood the output while retries spin
type ProductionLogger struct {
	zl           zerolog.Logger
	component    string
	errorLimiter *RateLimiter
}

var _ ComponentAwareLogger = (*ProductionLogger)(nil)

// NewProductionLogger creates a logger from the logging and development
// sections of Config. serviceName is attached to every entry.
func NewProductionLogger(logging LoggingConfig, dev DevelopmentConfig, serviceName string) *ProductionLogger {
	return newProductionLogger(logging, dev, serviceName, outputFor(logging.Output))
}

// NewProductionLoggerWithWriter is NewProductionLogger with an explicit sink.
// Tests use it to capture output.
func NewProductionLoggerWithWriter(logging LoggingConfig, dev DevelopmentConfig, serviceName string, w io.Writer) *ProductionLogger {
	return newProductionLogger(logging, dev, serviceName, w)
}

func newProductionLogger(logging LoggingConfig, dev DevelopmentConfig, serviceName string, w io.Writer) *ProductionLogger {
	timeFormat := logging.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339Nano
	}

	if strings.EqualFold(logging.Format, "text") || dev.PrettyLogs {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: timeFormat, NoColor: !dev.PrettyLogs}
	}

	level := parseLevel(logging.Level)
	if dev.DebugLogging {
		level = zerolog.DebugLevel
	}

	zl := zerolog.New(w).Level(level).With().Timestamp().Str("service", serviceName).Logger()

	return &ProductionLogger{
		zl:           zl,
		errorLimiter: NewRateLimiter(1 * time.Second),
	}
}

// WithComponent returns a logger that tags entries with component.
// The error rate limiter is shared with the parent.
func (l *ProductionLogger) WithComponent(component string) Logger {
	return &ProductionLogger{
		zl:           l.zl.With().Str("component", component).Logger(),
		component:    component,
		errorLimiter: l.errorLimiter,
	}
}

// Info logs informational messages
func (l *ProductionLogger) Info(msg string, fields map[string]interface{}) {
	l.zl.Info().Fields(fields).Msg(msg)
}

// Warn logs warning messages
func (l *ProductionLogger) Warn(msg string, fields map[string]interface{}) {
	l.zl.Warn().Fields(fields).Msg(msg)
}

// Error logs error messages with rate limiting
func (l *ProductionLogger) Error(msg string, fields map[string]interface{}) {
	if l.errorLimiter != nil && !l.errorLimiter.Allow() {
		return
	}
	l.zl.Error().Fields(fields).Msg(msg)
}

// Debug logs debug messages
func (l *ProductionLogger) Debug(msg string, fields map[string]interface{}) {
	l.zl.Debug().Fields(fields).Msg(msg)
}

var stderrOnce sync.Once

func outputFor(output string) io.Writer {
	switch strings.ToLower(output) {
	case "", "stdout":
		return os.Stdout
	case "stderr":
		return os.Stderr
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			stderrOnce.Do(func() {
				_, _ = os.Stderr.WriteString("storesync: cannot open log output " + output + ", using stdout\n")
			})
			return os.Stdout
		}
		return f
	}
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
