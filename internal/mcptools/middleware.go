package mcptools

import (
	"context"
	"errors"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/chessreview/engine/internal/analysis"
	"github.com/chessreview/engine/internal/logging"
	"github.com/chessreview/engine/internal/metrics"
)

// ToolHandler is the function signature for MCP tool handlers.
type ToolHandler func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// Middleware wraps tool handlers with request logging and metrics.
type Middleware struct {
	logger  logging.ContextLogger
	metrics *metrics.Collector
}

// NewMiddleware creates a new middleware instance.
func NewMiddleware(logger logging.ContextLogger, collector *metrics.Collector) *Middleware {
	return &Middleware{logger: logger, metrics: collector}
}

// WrapTool wraps a tool handler with middleware functionality.
func (m *Middleware) WrapTool(toolName string, handler ToolHandler) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()

		m.logger.Info("Tool request received", "tool", toolName)

		result, err := handler(ctx, request)

		status := "success"
		switch {
		case errors.Is(err, analysis.ErrStopped):
			// Cancellation is a distinguished outcome, not a failure.
			status = "cancelled"
			m.logger.Info("Tool request cancelled",
				"tool", toolName,
				"duration", time.Since(start),
			)
		case err != nil:
			status = "error"
			m.logger.Error("Tool request failed",
				"tool", toolName,
				"error", err,
				"duration", time.Since(start),
			)
		default:
			m.logger.Info("Tool request completed",
				"tool", toolName,
				"duration", time.Since(start),
			)
		}
		m.metrics.RecordToolCall(toolName, status, time.Since(start).Seconds())

		return result, err
	}
}
