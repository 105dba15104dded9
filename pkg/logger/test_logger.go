package logger

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// TestLogger is a Logger implementation for tests that captures messages
// instead of writing them anywhere.
type TestLogger struct {
	mu       sync.Mutex
	messages []LogMessage
	fields   map[string]interface{}
	zerolog  *zerolog.Logger
}

// LogMessage represents a captured log message
type LogMessage struct {
	Level   string
	Message string
	Fields  map[string]interface{}
}

// NewTestLogger creates a new test logger
func NewTestLogger() *TestLogger {
	nop := zerolog.Nop()
	return &TestLogger{zerolog: &nop}
}

func (l *TestLogger) log(level, msg string, fields map[string]interface{}) {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, LogMessage{Level: level, Message: msg, Fields: merged})
}

func (l *TestLogger) Debug(msg string) { l.log("DEBUG", msg, nil) }
func (l *TestLogger) Info(msg string)  { l.log("INFO", msg, nil) }
func (l *TestLogger) Warn(msg string)  { l.log("WARN", msg, nil) }
func (l *TestLogger) Error(msg string) { l.log("ERROR", msg, nil) }
func (l *TestLogger) Fatal(msg string) { l.log("FATAL", msg, nil) }

func (l *TestLogger) DebugWithFields(msg string, fields map[string]interface{}) {
	l.log("DEBUG", msg, fields)
}
func (l *TestLogger) InfoWithFields(msg string, fields map[string]interface{}) {
	l.log("INFO", msg, fields)
}
func (l *TestLogger) WarnWithFields(msg string, fields map[string]interface{}) {
	l.log("WARN", msg, fields)
}
func (l *TestLogger) ErrorWithFields(msg string, fields map[string]interface{}) {
	l.log("ERROR", msg, fields)
}
func (l *TestLogger) FatalWithFields(msg string, fields map[string]interface{}) {
	l.log("FATAL", msg, fields)
}

func (l *TestLogger) WithField(key string, value interface{}) Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

func (l *TestLogger) WithFields(fields map[string]interface{}) Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	// Child loggers record against the parent so tests see everything in one place
	return &boundTestLogger{parent: l, fields: merged}
}

func (l *TestLogger) WithError(err error) Logger {
	if err == nil {
		return l
	}
	return l.WithField("error", err.Error())
}

func (l *TestLogger) WithContext(ctx context.Context) Logger { return l }

func (l *TestLogger) GetZerolog() *zerolog.Logger { return l.zerolog }

// Messages returns a copy of all captured log messages
func (l *TestLogger) Messages() []LogMessage {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LogMessage, len(l.messages))
	copy(out, l.messages)
	return out
}

// MessagesByLevel returns all captured messages of one level
func (l *TestLogger) MessagesByLevel(level string) []LogMessage {
	var filtered []LogMessage
	for _, msg := range l.Messages() {
		if msg.Level == level {
			filtered = append(filtered, msg)
		}
	}
	return filtered
}

// HasMessage checks if a message with the given text was logged
func (l *TestLogger) HasMessage(text string) bool {
	for _, msg := range l.Messages() {
		if msg.Message == text {
			return true
		}
	}
	return false
}

// boundTestLogger is a TestLogger view carrying bound fields; messages are
// recorded against the parent so tests see everything in one place.
type boundTestLogger struct {
	parent *TestLogger
	fields map[string]interface{}
}

func (b *boundTestLogger) merge(fields map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(b.fields)+len(fields))
	for k, v := range b.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return merged
}

func (b *boundTestLogger) Debug(msg string) { b.parent.log("DEBUG", msg, b.fields) }
func (b *boundTestLogger) Info(msg string)  { b.parent.log("INFO", msg, b.fields) }
func (b *boundTestLogger) Warn(msg string)  { b.parent.log("WARN", msg, b.fields) }
func (b *boundTestLogger) Error(msg string) { b.parent.log("ERROR", msg, b.fields) }
func (b *boundTestLogger) Fatal(msg string) { b.parent.log("FATAL", msg, b.fields) }

func (b *boundTestLogger) DebugWithFields(msg string, fields map[string]interface{}) {
	b.parent.log("DEBUG", msg, b.merge(fields))
}
func (b *boundTestLogger) InfoWithFields(msg string, fields map[string]interface{}) {
	b.parent.log("INFO", msg, b.merge(fields))
}
func (b *boundTestLogger) WarnWithFields(msg string, fields map[string]interface{}) {
	b.parent.log("WARN", msg, b.merge(fields))
}
func (b *boundTestLogger) ErrorWithFields(msg string, fields map[string]interface{}) {
	b.parent.log("ERROR", msg, b.merge(fields))
}
func (b *boundTestLogger) FatalWithFields(msg string, fields map[string]interface{}) {
	b.parent.log("FATAL", msg, b.merge(fields))
}

func (b *boundTestLogger) WithField(key string, value interface{}) Logger {
	return &boundTestLogger{parent: b.parent, fields: b.merge(map[string]interface{}{key: value})}
}

func (b *boundTestLogger) WithFields(fields map[string]interface{}) Logger {
	return &boundTestLogger{parent: b.parent, fields: b.merge(fields)}
}

func (b *boundTestLogger) WithError(err error) Logger {
	if err == nil {
		return b
	}
	return b.WithField("error", err.Error())
}

func (b *boundTestLogger) WithContext(ctx context.Context) Logger { return b }

func (b *boundTestLogger) GetZerolog() *zerolog.Logger { return b.parent.zerolog }
