package logging

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

func parseLevel(level string) Level {
	switch strings.ToLower(level) {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

func levelToString(level Level) string {
	switch level {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger is a plain text logger for local development. Production runs use
// the JSON StructuredLogger instead.
type Logger struct {
	logger *log.Logger
	level  Level
	mu     sync.RWMutex
}

func NewLogger(prefix string, level string) *Logger {
	return NewLoggerWithWriter(os.Stderr, prefix, level)
}

func NewLoggerWithWriter(w io.Writer, prefix string, level string) *Logger {
	return &Logger{
		logger: log.New(w, prefix, log.LstdFlags|log.Lmicroseconds),
		level:  parseLevel(level),
	}
}

func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *Logger) GetLevel() Level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

func (l *Logger) shouldLog(level Level) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return level >= l.level
}

// logf renders either printf-style or trailing key-value args, so call sites
// can use the same shape against both logger implementations.
func (l *Logger) logf(level Level, format string, v ...interface{}) {
	if !l.shouldLog(level) {
		return
	}
	msg := format
	if strings.Contains(format, "%") {
		msg = fmt.Sprintf(format, v...)
	} else if len(v) > 0 {
		pairs := make([]string, 0, len(v)/2)
		for i := 0; i+1 < len(v); i += 2 {
			pairs = append(pairs, fmt.Sprintf("%v=%v", v[i], v[i+1]))
		}
		if len(pairs) > 0 {
			msg = format + " " + strings.Join(pairs, " ")
		}
	}
	l.logger.Printf("[%s] %s", levelToString(level), msg)
}

func (l *Logger) Debug(format string, v ...interface{}) { l.logf(DebugLevel, format, v...) }
func (l *Logger) Info(format string, v ...interface{})  { l.logf(InfoLevel, format, v...) }
func (l *Logger) Warn(format string, v ...interface{})  { l.logf(WarnLevel, format, v...) }
func (l *Logger) Error(format string, v ...interface{}) { l.logf(ErrorLevel, format, v...) }

func (l *Logger) Fatal(format string, v ...interface{}) {
	l.logf(ErrorLevel, format, v...)
	os.Exit(1)
}

// WithContext returns the logger itself; the text logger does not carry
// correlation IDs.
func (l *Logger) WithContext(ctx context.Context) ContextLogger {
	return l
}

// WithField returns a logger whose prefix includes the field.
func (l *Logger) WithField(key string, value interface{}) ContextLogger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return &Logger{
		logger: log.New(l.logger.Writer(), fmt.Sprintf("%s[%s=%v] ", l.logger.Prefix(), key, value), l.logger.Flags()),
		level:  l.level,
	}
}

func (l *Logger) WithFields(fields map[string]interface{}) ContextLogger {
	logger := ContextLogger(l)
	for k, v := range fields {
		logger = logger.WithField(k, v)
	}
	return logger
}
