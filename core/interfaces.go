package core

// Logger interface - minimal logging interface
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Debug(msg string, fields map[string]interface{})
}

// ComponentAwareLogger is implemented by loggers that can tag every entry
// with the name of the component that produced it.
type ComponentAwareLogger interface {
	Logger
	WithComponent(component string) Logger
}

// WithComponent returns a component-scoped logger when the logger supports it,
// and the logger itself otherwise. A nil logger becomes a NoOpLogger.
func WithComponent(logger Logger, component string) Logger {
	if logger == nil {
		return &NoOpLogger{}
	}
	if cal, ok := logger.(ComponentAwareLogger); ok {
		return cal.WithComponent(component)
	}
	return logger
}

// NoOpLogger provides a no-op logger implementation
type NoOpLogger struct{}

func (n *NoOpLogger) Info(msg string, fields map[string]interface{})  {}
func (n *NoOpLogger) Error(msg string, fields map[string]interface{}) {}
func (n *NoOpLogger) Warn(msg string, fields map[string]interface{})  {}
func (n *NoOpLogger) Debug(msg string, fields map[string]interface{}) {}
