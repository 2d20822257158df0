package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/chessreview/engine/internal/analysis"
	"github.com/chessreview/engine/internal/cache"
	"github.com/chessreview/engine/internal/config"
	"github.com/chessreview/engine/internal/logging"
	"github.com/chessreview/engine/internal/mcptools"
	"github.com/chessreview/engine/internal/metrics"
	"github.com/chessreview/engine/internal/shutdown"
	"github.com/chessreview/engine/internal/uci"
)

var (
	// Version information injected at build time.
	GitCommit string = "unknown"
	BuildTime string = "unknown"
)

func main() {
	var showVersion bool
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.Parse()

	if showVersion {
		fmt.Printf("chessreview version 0.1.0\n")
		fmt.Printf("Git commit: %s\n", GitCommit)
		fmt.Printf("Build time: %s\n", BuildTime)
		os.Exit(0)
	}

	configPath := config.GetConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logConfig := &logging.Config{
		Level:   cfg.Logging.Level,
		Format:  logging.LogFormat(os.Getenv("CHESSREVIEW_LOG_FORMAT")), // Will default to JSON if not set
		Service: cfg.Server.Name,
		Version: cfg.Server.Version,
		Prefix:  cfg.Logging.Prefix,
	}
	logger := logging.NewLoggerFromConfig(logConfig)
	logger.Info("Starting chess analysis MCP server version %s (commit: %s, built: %s)",
		cfg.Server.Version, GitCommit, BuildTime)
	logger.Info("Using UCI engine", "binary", cfg.Engine.BinaryPath, "depth", cfg.Engine.Depth)

	metricsCollector := metrics.NewCollector()

	var store *cache.Store
	if cfg.Cache.Enabled {
		cachePath := cfg.Cache.Path
		if cachePath == "" {
			cachePath = config.DefaultCachePath()
		}
		store = cache.Open(cachePath, cfg.Cache.MaxEntries, logger)
		logger.Info("Result cache opened", "path", cachePath, "entries", store.Len())
		metricsCollector.SetCacheEntries(float64(store.Len()))
	} else {
		logger.Info("Result cache disabled")
	}

	supervisor := uci.NewSupervisor(&cfg.Engine, logger, metricsCollector)
	analyzer := analysis.NewAnalyzer(supervisor, store, logger, metricsCollector)

	shutdownMgr := shutdown.NewManager(logger)
	shutdownMgr.Register("analyzer", func(ctx context.Context) error {
		return analyzer.Shutdown()
	})
	shutdownMgr.HandleSignals()

	mcpServer := server.NewMCPServer(
		cfg.Server.Name,
		cfg.Server.Version,
		server.WithLogging(),
	)

	middleware := mcptools.NewMiddleware(logger, metricsCollector)

	cacheLen := func() int { return 0 }
	if store != nil {
		cacheLen = store.Len
	}
	toolsHandler := mcptools.NewToolsHandler(
		analyzer,
		func() string { return supervisor.State().String() },
		cacheLen,
		logger,
	)
	toolsHandler.SetMiddleware(middleware)
	toolsHandler.RegisterTools(mcpServer)

	logger.Info("Chess analysis MCP server ready")

	done := make(chan error, 1)
	go func() {
		done <- server.ServeStdio(mcpServer)
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("Server error", "error", err)
		}
		shutdownMgr.Shutdown(30 * time.Second)
	case <-shutdownMgr.Done():
		logger.Info("Server stopped by shutdown signal")
	}
}
