package logging

import (
	"os"
	"strings"
)

// LogFormat represents the log output format.
type LogFormat string

const (
	// FormatText is the traditional text format.
	FormatText LogFormat = "text"
	// FormatJSON is structured JSON format.
	FormatJSON LogFormat = "json"
)

// Config represents logging configuration.
type Config struct {
	Level   string
	Format  LogFormat
	Service string
	Version string
	Prefix  string
}

// NewLoggerFromConfig creates a logger based on configuration. The format
// defaults to JSON unless CHESSREVIEW_LOG_FORMAT says otherwise.
func NewLoggerFromConfig(cfg *Config) ContextLogger {
	format := cfg.Format
	if format == "" {
		if envFormat := os.Getenv("CHESSREVIEW_LOG_FORMAT"); envFormat != "" {
			format = LogFormat(strings.ToLower(envFormat))
		} else {
			format = FormatJSON
		}
	}

	switch format {
	case FormatText:
		return NewLogger(cfg.Prefix, cfg.Level)
	default:
		return NewStructuredLogger(cfg.Service, cfg.Version, cfg.Level)
	}
}
