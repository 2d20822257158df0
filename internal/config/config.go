package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

type Config struct {
	// UCI engine configuration
	Engine EngineConfig `json:"engine"`

	// Result cache configuration
	Cache CacheConfig `json:"cache"`

	// Server configuration
	Server ServerConfig `json:"server"`

	// Logging configuration
	Logging LoggingConfig `json:"logging"`
}

type EngineConfig struct {
	BinaryPath string `json:"binaryPath"`
	// Options are sent as "setoption name <k> value <v>" during the handshake.
	Options map[string]string `json:"options"`
	// Depth is the default search depth budget per position.
	Depth int `json:"depth"`
	// SearchTimeoutSecs bounds a single evaluation; an unresponsive search
	// resolves with a neutral result instead of stalling the batch.
	SearchTimeoutSecs float64 `json:"searchTimeoutSecs"`
	// ReadyTimeoutSecs bounds the initial handshake and ucinewgame barriers.
	ReadyTimeoutSecs float64 `json:"readyTimeoutSecs"`
}

type CacheConfig struct {
	Enabled    bool   `json:"enabled"`
	Path       string `json:"path"`
	MaxEntries int    `json:"maxEntries"`
}

type ServerConfig struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

type LoggingConfig struct {
	Level  string `json:"level"`
	Prefix string `json:"prefix"`
}

func Load(configPath string) (*Config, error) {
	cfg := &Config{
		// Default values
		Engine: EngineConfig{
			BinaryPath:        "stockfish",
			Options:           map[string]string{},
			Depth:             12,
			SearchTimeoutSecs: 60,
			ReadyTimeoutSecs:  15,
		},
		Cache: CacheConfig{
			Enabled:    true,
			MaxEntries: 20,
		},
		Server: ServerConfig{
			Name:        "chessreview",
			Version:     "0.1.0",
			Description: "UCI game analysis server",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Prefix: "[chessreview] ",
		},
	}

	// Load from JSON file if provided
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CHESSREVIEW_ENGINE_PATH"); v != "" {
		c.Engine.BinaryPath = v
	}
	if v := os.Getenv("CHESSREVIEW_DEPTH"); v != "" {
		if depth, err := strconv.Atoi(v); err == nil {
			c.Engine.Depth = depth
		}
	}
	if v := os.Getenv("CHESSREVIEW_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("CHESSREVIEW_CACHE_PATH"); v != "" {
		c.Cache.Path = v
	}
}

func (c *Config) validate() error {
	// Validate the engine path when it is absolute; bare names are resolved
	// against PATH at process start.
	if filepath.IsAbs(c.Engine.BinaryPath) {
		if _, err := os.Stat(c.Engine.BinaryPath); err != nil {
			return fmt.Errorf("engine binary not found at %s", c.Engine.BinaryPath)
		}
	}

	if c.Engine.Depth < 1 {
		c.Engine.Depth = 1
	}
	if c.Engine.SearchTimeoutSecs < 0 {
		c.Engine.SearchTimeoutSecs = 0
	}
	if c.Engine.ReadyTimeoutSecs < 1 {
		c.Engine.ReadyTimeoutSecs = 1
	}
	if c.Cache.MaxEntries < 1 {
		c.Cache.MaxEntries = 1
	}

	return nil
}

// GetConfigPath locates the configuration file, preferring the environment
// variable, then the working directory, then the user's home directory.
func GetConfigPath() string {
	if path := os.Getenv("CHESSREVIEW_CONFIG"); path != "" {
		return path
	}

	if _, err := os.Stat("config.json"); err == nil {
		return "config.json"
	}

	if home, err := os.UserHomeDir(); err == nil {
		configPath := filepath.Join(home, ".chessreview", "config.json")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
	}

	return ""
}

// DefaultCachePath returns the cache snapshot location used when the config
// does not name one.
func DefaultCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".chessreview", "cache.json")
}
