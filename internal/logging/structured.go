package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// StructuredLogger provides JSON structured logging with correlation IDs.
type StructuredLogger struct {
	level   Level
	service string
	version string
	mu      sync.RWMutex
	encoder *json.Encoder
	fields  map[string]interface{}
}

// LogEntry represents a structured log entry.
type LogEntry struct {
	Timestamp     string                 `json:"timestamp"`
	Level         string                 `json:"level"`
	Service       string                 `json:"service"`
	Version       string                 `json:"version,omitempty"`
	Message       string                 `json:"message"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	RequestID     string                 `json:"request_id,omitempty"`
	Fields        map[string]interface{} `json:"fields,omitempty"`
}

// NewStructuredLogger creates a new structured logger writing to stderr.
func NewStructuredLogger(service, version, level string) *StructuredLogger {
	return NewStructuredLoggerWithWriter(os.Stderr, service, version, level)
}

// NewStructuredLoggerWithWriter creates a structured logger with a custom writer.
func NewStructuredLoggerWithWriter(w io.Writer, service, version, level string) *StructuredLogger {
	return &StructuredLogger{
		level:   parseLevel(level),
		service: service,
		version: version,
		encoder: json.NewEncoder(w),
		fields:  make(map[string]interface{}),
	}
}

func (l *StructuredLogger) clone() *StructuredLogger {
	newLogger := &StructuredLogger{
		level:   l.level,
		service: l.service,
		version: l.version,
		encoder: l.encoder,
		fields:  make(map[string]interface{}),
	}
	l.mu.RLock()
	for k, v := range l.fields {
		newLogger.fields[k] = v
	}
	l.mu.RUnlock()
	return newLogger
}

// WithContext returns a logger carrying correlation and request IDs from the context.
func (l *StructuredLogger) WithContext(ctx context.Context) ContextLogger {
	newLogger := l.clone()
	if correlationID, ok := CorrelationIDFromContext(ctx); ok {
		newLogger.fields["correlation_id"] = correlationID
	}
	if requestID, ok := RequestIDFromContext(ctx); ok {
		newLogger.fields["request_id"] = requestID
	}
	return newLogger
}

// WithFields returns a logger with additional fields.
func (l *StructuredLogger) WithFields(fields map[string]interface{}) ContextLogger {
	newLogger := l.clone()
	for k, v := range fields {
		newLogger.fields[k] = v
	}
	return newLogger
}

// WithField returns a logger with an additional field.
func (l *StructuredLogger) WithField(key string, value interface{}) ContextLogger {
	return l.WithFields(map[string]interface{}{key: value})
}

// addArgsAsFields adds args as key-value pairs to the log entry.
func addArgsAsFields(entry *LogEntry, args []interface{}) {
	if len(args) == 0 {
		return
	}
	if entry.Fields == nil {
		entry.Fields = make(map[string]interface{})
	}
	for i := 0; i+1 < len(args); i += 2 {
		if key, ok := args[i].(string); ok {
			entry.Fields[key] = args[i+1]
		}
	}
	if len(args)%2 == 1 {
		entry.Fields["extra"] = args[len(args)-1]
	}
}

func (l *StructuredLogger) log(level Level, message string, args ...interface{}) {
	if !l.shouldLog(level) {
		return
	}

	entry := LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     levelToString(level),
		Service:   l.service,
		Version:   l.version,
		Message:   message,
	}

	// Args are either printf arguments (when the message carries format
	// verbs) or key-value pairs.
	if len(args) > 0 {
		if strings.Contains(message, "%") {
			entry.Message = fmt.Sprintf(message, args...)
		} else {
			addArgsAsFields(&entry, args)
		}
	}

	l.mu.RLock()
	for k, v := range l.fields {
		switch k {
		case "correlation_id":
			if id, ok := v.(string); ok {
				entry.CorrelationID = id
			}
		case "request_id":
			if id, ok := v.(string); ok {
				entry.RequestID = id
			}
		default:
			if entry.Fields == nil {
				entry.Fields = make(map[string]interface{})
			}
			entry.Fields[k] = v
		}
	}
	l.mu.RUnlock()

	if err := l.encoder.Encode(entry); err != nil {
		fmt.Fprintf(os.Stderr, "[%s] %s: %s (json encoding failed: %v)\n",
			entry.Timestamp, entry.Level, entry.Message, err)
	}
}

// Debug logs a debug message.
func (l *StructuredLogger) Debug(message string, args ...interface{}) {
	l.log(DebugLevel, message, args...)
}

// Info logs an info message.
func (l *StructuredLogger) Info(message string, args ...interface{}) {
	l.log(InfoLevel, message, args...)
}

// Warn logs a warning message.
func (l *StructuredLogger) Warn(message string, args ...interface{}) {
	l.log(WarnLevel, message, args...)
}

// Error logs an error message.
func (l *StructuredLogger) Error(message string, args ...interface{}) {
	l.log(ErrorLevel, message, args...)
}

// Fatal logs a fatal message and exits.
func (l *StructuredLogger) Fatal(message string, args ...interface{}) {
	l.log(ErrorLevel, message, args...)
	os.Exit(1)
}

// SetLevel sets the logging level.
func (l *StructuredLogger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// GetLevel returns the current logging level.
func (l *StructuredLogger) GetLevel() Level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

func (l *StructuredLogger) shouldLog(level Level) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return level >= l.level
}
