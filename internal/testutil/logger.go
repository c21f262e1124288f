// Package testutil holds helpers shared by package tests.
package testutil

import (
	"strings"
	"sync"
)

// LogEntry is one captured log call.
type LogEntry struct {
	Level   string
	Message string
	Fields  map[string]interface{}
}

// Logger captures log calls for assertions. Safe for concurrent use.
type Logger struct {
	mu   sync.Mutex
	logs []LogEntry
}

func (l *Logger) add(level, msg string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logs = append(l.logs, LogEntry{Level: level, Message: msg, Fields: fields})
}

func (l *Logger) Info(msg string, fields map[string]interface{})  { l.add("INFO", msg, fields) }
func (l *Logger) Error(msg string, fields map[string]interface{}) { l.add("ERROR", msg, fields) }
func (l *Logger) Warn(msg string, fields map[string]interface{})  { l.add("WARN", msg, fields) }
func (l *Logger) Debug(msg string, fields map[string]interface{}) { l.add("DEBUG", msg, fields) }

// Entries returns a copy of everything logged so far.
func (l *Logger) Entries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LogEntry, len(l.logs))
	copy(out, l.logs)
	return out
}

// ByOperation returns entries whose "operation" field equals op.
func (l *Logger) ByOperation(op string) []LogEntry {
	var out []LogEntry
	for _, e := range l.Entries() {
		if v, ok := e.Fields["operation"]; ok && v == op {
			out = append(out, e)
		}
	}
	return out
}

// ByLevel returns entries logged at level ("INFO", "WARN", ...).
func (l *Logger) ByLevel(level string) []LogEntry {
	var out []LogEntry
	for _, e := range l.Entries() {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

// HasMessage reports whether any entry's message contains substr.
func (l *Logger) HasMessage(substr string) bool {
	for _, e := range l.Entries() {
		if strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

// Clear drops all captured entries.
func (l *Logger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logs = nil
}
