package mcptools

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/chessreview/engine/internal/analysis"
	"github.com/chessreview/engine/internal/logging"
)

// ToolsHandler manages the MCP tools exposed by the analysis server.
type ToolsHandler struct {
	analyzer    *analysis.Analyzer
	engineState func() string
	cacheLen    func() int
	logger      logging.ContextLogger
	middleware  *Middleware
}

// NewToolsHandler creates a new tools handler. engineState and cacheLen feed
// the status tool; either may be nil.
func NewToolsHandler(analyzer *analysis.Analyzer, engineState func() string, cacheLen func() int, logger logging.ContextLogger) *ToolsHandler {
	return &ToolsHandler{
		analyzer:    analyzer,
		engineState: engineState,
		cacheLen:    cacheLen,
		logger:      logger,
	}
}

// SetMiddleware sets the middleware for the tools handler.
func (h *ToolsHandler) SetMiddleware(middleware *Middleware) {
	h.middleware = middleware
}

// RegisterTools registers all tools with the MCP server.
func (h *ToolsHandler) RegisterTools(s *server.MCPServer) {
	analyzeGameTool := mcp.NewTool("analyzeGame",
		mcp.WithDescription("Analyze a complete chess game: per-move classifications, per-side accuracy, and critical moments"),
		mcp.WithString("pgn",
			mcp.Description("PGN movetext of the game to analyze"),
			mcp.Required(),
		),
		mcp.WithNumber("depth",
			mcp.Description("Engine search depth per position (default: from config)"),
		),
		mcp.WithString("gameId",
			mcp.Description("Stable identifier used for result caching. Defaults to a hash of the PGN; pass an empty string to skip caching."),
		),
	)
	analyzeHandler := h.HandleAnalyzeGame
	if h.middleware != nil {
		analyzeHandler = h.middleware.WrapTool("analyzeGame", analyzeHandler)
	}
	s.AddTool(analyzeGameTool, analyzeHandler)

	evaluatePositionTool := mcp.NewTool("evaluatePosition",
		mcp.WithDescription("Evaluate a single chess position given as FEN"),
		mcp.WithString("fen",
			mcp.Description("FEN of the position to evaluate"),
			mcp.Required(),
		),
		mcp.WithNumber("depth",
			mcp.Description("Engine search depth (default: from config)"),
		),
	)
	evalHandler := h.HandleEvaluatePosition
	if h.middleware != nil {
		evalHandler = h.middleware.WrapTool("evaluatePosition", evalHandler)
	}
	s.AddTool(evaluatePositionTool, evalHandler)

	cancelAnalysisTool := mcp.NewTool("cancelAnalysis",
		mcp.WithDescription("Cancel the in-flight game analysis, if any"),
	)
	cancelHandler := h.HandleCancelAnalysis
	if h.middleware != nil {
		cancelHandler = h.middleware.WrapTool("cancelAnalysis", cancelHandler)
	}
	s.AddTool(cancelAnalysisTool, cancelHandler)

	getEngineStatusTool := mcp.NewTool("getEngineStatus",
		mcp.WithDescription("Get the status of the UCI engine and the result cache"),
	)
	statusHandler := h.HandleGetEngineStatus
	if h.middleware != nil {
		statusHandler = h.middleware.WrapTool("getEngineStatus", statusHandler)
	}
	s.AddTool(getEngineStatusTool, statusHandler)
}

// HandleAnalyzeGame handles the analyzeGame tool.
func (h *ToolsHandler) HandleAnalyzeGame(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx = logging.ContextWithCorrelationID(ctx, logging.GenerateCorrelationID())
	ctx = logging.ContextWithRequestID(ctx, logging.GenerateRequestID())
	logger := h.logger.WithContext(ctx).WithField("tool", "analyzeGame")

	logger.Info("Handling analyzeGame request")

	argsMap, err := argumentsMap(request)
	if err != nil {
		return nil, err
	}

	pgnVal, ok := argsMap["pgn"]
	if !ok {
		return nil, fmt.Errorf("missing required parameter 'pgn'")
	}
	pgn, ok := pgnVal.(string)
	if !ok {
		return nil, fmt.Errorf("pgn must be a string")
	}

	game, err := analysis.GameFromPGN(pgn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse game: %w", err)
	}

	gameID := defaultGameID(pgn)
	if idVal, ok := argsMap["gameId"]; ok {
		if id, ok := idVal.(string); ok {
			gameID = id
		}
	}

	req := analysis.Request{
		Game:   game,
		Depth:  intArg(argsMap, "depth"),
		GameID: gameID,
		OnProgress: func(done, total int) {
			if done == total || done%10 == 0 {
				logger.Debug("Analysis progress", "done", done, "total", total)
			}
		},
	}

	logger.Info("Analyzing game", "gameId", gameID, "moves", len(game.Moves))
	result, err := h.analyzer.Analyze(ctx, req)
	if errors.Is(err, analysis.ErrStopped) {
		return mcp.NewToolResultText("Analysis was cancelled before completion."), nil
	}
	if err != nil {
		logger.Error("Failed to analyze game: %v", err)
		return nil, fmt.Errorf("failed to analyze game: %w", err)
	}
	logger.Info("Game analysis completed",
		"plies", len(result.Positions),
		"criticalMoments", len(result.CriticalMoments))

	return mcp.NewToolResultText(formatResult(result)), nil
}

// HandleEvaluatePosition handles the evaluatePosition tool.
func (h *ToolsHandler) HandleEvaluatePosition(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx = logging.ContextWithCorrelationID(ctx, logging.GenerateCorrelationID())
	ctx = logging.ContextWithRequestID(ctx, logging.GenerateRequestID())
	logger := h.logger.WithContext(ctx).WithField("tool", "evaluatePosition")

	logger.Info("Handling evaluatePosition request")

	argsMap, err := argumentsMap(request)
	if err != nil {
		return nil, err
	}

	fenVal, ok := argsMap["fen"]
	if !ok {
		return nil, fmt.Errorf("missing required parameter 'fen'")
	}
	fen, ok := fenVal.(string)
	if !ok {
		return nil, fmt.Errorf("fen must be a string")
	}

	ev, ok, err := h.analyzer.QuickEvaluate(ctx, fen, intArg(argsMap, "depth"))
	if err != nil {
		logger.Error("Failed to evaluate position: %v", err)
		return nil, fmt.Errorf("failed to evaluate position: %w", err)
	}
	if !ok {
		return mcp.NewToolResultText("A game analysis is currently running; try again once it completes."), nil
	}
	logger.Debug("Position evaluated", "score", ev.Score, "bestMove", ev.BestMove)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Evaluation: %s (white's perspective)\n", formatScore(ev.Score)))
	if ev.BestMove != "" {
		sb.WriteString(fmt.Sprintf("Best move: %s\n", ev.BestMove))
	}
	if len(ev.BestLine) > 0 {
		sb.WriteString(fmt.Sprintf("Best line: %s\n", strings.Join(ev.BestLine, " ")))
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// HandleCancelAnalysis handles the cancelAnalysis tool.
func (h *ToolsHandler) HandleCancelAnalysis(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx = logging.ContextWithCorrelationID(ctx, logging.GenerateCorrelationID())
	logger := h.logger.WithContext(ctx).WithField("tool", "cancelAnalysis")

	logger.Info("Handling cancelAnalysis request")
	h.analyzer.Cancel()
	return mcp.NewToolResultText("Cancellation requested. Any in-flight analysis will stop at the next position boundary."), nil
}

// HandleGetEngineStatus handles the getEngineStatus tool.
func (h *ToolsHandler) HandleGetEngineStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx = logging.ContextWithCorrelationID(ctx, logging.GenerateCorrelationID())
	logger := h.logger.WithContext(ctx).WithField("tool", "getEngineStatus")

	logger.Info("Handling getEngineStatus request")

	state := "unknown"
	if h.engineState != nil {
		state = h.engineState()
	}
	entries := 0
	if h.cacheLen != nil {
		entries = h.cacheLen()
	}
	logger.Debug("Engine status checked", "state", state, "cacheEntries", entries)

	info := fmt.Sprintf("UCI engine state: %s\nCached analyses: %d", state, entries)
	return mcp.NewToolResultText(info), nil
}

func argumentsMap(request mcp.CallToolRequest) (map[string]interface{}, error) {
	args := request.Params.Arguments
	if args == nil {
		return nil, fmt.Errorf("missing arguments")
	}
	argsMap, ok := args.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid arguments format")
	}
	return argsMap, nil
}

func intArg(argsMap map[string]interface{}, name string) int {
	val, ok := argsMap[name]
	if !ok {
		return 0
	}
	switch v := val.(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func sideLabel(side analysis.Side) string {
	if side == analysis.Black {
		return "Black"
	}
	return "White"
}

// defaultGameID derives a stable cache key from the PGN content.
func defaultGameID(pgn string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(pgn)))
	return hex.EncodeToString(sum[:8])
}

func formatScore(score int) string {
	if score >= analysis.MateThreshold-100 {
		return fmt.Sprintf("mate in %d for white", analysis.MateThreshold-score)
	}
	if score <= -(analysis.MateThreshold - 100) {
		return fmt.Sprintf("mate in %d for black", analysis.MateThreshold+score)
	}
	return fmt.Sprintf("%+.2f", float64(score)/100)
}

func formatResult(result *analysis.Result) string {
	var sb strings.Builder
	sb.WriteString("# Game Analysis\n\n")

	sb.WriteString("## Summary\n")
	moveCount := len(result.Positions) - 1
	sb.WriteString(fmt.Sprintf("- Moves analyzed: %d (depth %d)\n", moveCount, result.Depth))
	for _, side := range []analysis.Side{analysis.White, analysis.Black} {
		s := result.Summary[side]
		sb.WriteString(fmt.Sprintf("- %s accuracy: %.1f%%\n", sideLabel(side), s.Accuracy))
	}
	for _, side := range []analysis.Side{analysis.White, analysis.Black} {
		s := result.Summary[side]
		sb.WriteString(fmt.Sprintf("- %s mistakes/blunders: %d/%d\n",
			sideLabel(side),
			s.Counts[analysis.ClassMistake],
			s.Counts[analysis.ClassBlunder]))
	}

	var flagged []analysis.Position
	for _, pos := range result.Positions {
		switch pos.Classification {
		case analysis.ClassInaccuracy, analysis.ClassMistake, analysis.ClassMiss, analysis.ClassBlunder:
			flagged = append(flagged, pos)
		}
	}
	if len(flagged) > 0 {
		sb.WriteString("\n## Mistakes Found\n\n")
		for _, pos := range flagged {
			sb.WriteString(fmt.Sprintf("### Ply %d (%s)\n", pos.Ply, pos.PlayedSide))
			sb.WriteString(fmt.Sprintf("- **Category**: %s\n", pos.Classification))
			sb.WriteString(fmt.Sprintf("- **Played**: %s\n", pos.PlayedMove))
			if pos.Evaluation.BestMove != "" {
				sb.WriteString(fmt.Sprintf("- **Engine preferred**: %s\n", pos.Evaluation.BestMove))
			}
			sb.WriteString(fmt.Sprintf("- **Centipawn loss**: %d\n", pos.CentipawnLoss))
			sb.WriteString(fmt.Sprintf("- **Eval after move**: %s\n\n", formatScore(pos.Evaluation.Score)))
		}
	} else {
		sb.WriteString("\n## No significant mistakes found!\n")
	}

	if len(result.CriticalMoments) > 0 {
		sb.WriteString("\n## Critical Moments\n")
		for _, cm := range result.CriticalMoments {
			sb.WriteString(fmt.Sprintf("- Ply %d (%s): eval swung %+.2f\n",
				cm.Ply, cm.Side, float64(cm.SwingCP)/100))
		}
	}

	sb.WriteString("\n## Brilliant & Great Moves\n")
	found := false
	for _, pos := range result.Positions {
		if pos.Classification == analysis.ClassBrilliant || pos.Classification == analysis.ClassGreat {
			sb.WriteString(fmt.Sprintf("- Ply %d (%s): %s (%s)\n",
				pos.Ply, pos.PlayedSide, pos.PlayedMove, pos.Classification))
			found = true
		}
	}
	if !found {
		sb.WriteString("- none\n")
	}

	return sb.String()
}
