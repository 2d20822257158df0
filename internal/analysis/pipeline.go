package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/notnil/chess"

	"github.com/chessreview/engine/internal/logging"
	"github.com/chessreview/engine/internal/metrics"
)

// StartingFEN is the conventional initial chess position.
const StartingFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// pipeline walks a game position by position, strictly in order, and
// collects one evaluation per ply. Serial evaluation keeps the engine's
// hash tables warm along the actual game line.
type pipeline struct {
	eval      *Evaluator
	logger    logging.ContextLogger
	metrics   *metrics.Collector
	cancelled func() bool
	progress  func(done, total int)
}

// run evaluates the start position and every post-move position. Returns
// ErrStopped as soon as cancellation is observed between evaluations.
func (p *pipeline) run(ctx context.Context, game Game, depth int) ([]Position, error) {
	startFEN := game.StartFEN
	if startFEN == "" {
		startFEN = StartingFEN
	}

	total := len(game.Moves) + 1
	positions := make([]Position, 0, total)

	for ply := 0; ply < total; ply++ {
		if p.cancelled() {
			return nil, ErrStopped
		}
		if err := ctx.Err(); err != nil {
			return nil, ErrStopped
		}

		pos := Position{Ply: ply, FEN: startFEN}
		if ply > 0 {
			mv := game.Moves[ply-1]
			pos.FEN = mv.FEN
			pos.PlayedMove = mv.Notation
			pos.PlayedSide = mv.Side
		}

		started := time.Now()
		ev, err := p.eval.Evaluate(ctx, pos.FEN, depth)
		if err != nil {
			return nil, fmt.Errorf("evaluation failed at ply %d: %w", ply, err)
		}
		p.metrics.RecordEvaluation(time.Since(started).Seconds())

		pos.Evaluation = ev
		positions = append(positions, pos)

		if p.progress != nil {
			p.progress(ply+1, total)
		}
	}

	p.correctTerminal(positions)
	return positions, nil
}

// correctTerminal fixes up the final position when the engine reported no
// move and a zero score. Without this a delivered checkmate would read as
// a dead-even position. Stalemate keeps the zero score, which is accurate.
func (p *pipeline) correctTerminal(positions []Position) {
	if len(positions) == 0 {
		return
	}
	last := &positions[len(positions)-1]
	if last.Evaluation.BestMove != "" || last.Evaluation.Score != 0 {
		return
	}

	opt, err := chess.FEN(last.FEN)
	if err != nil {
		return
	}
	game := chess.NewGame(opt)

	switch game.Position().Status() {
	case chess.Checkmate:
		// The side to move is the side that got mated.
		if game.Position().Turn() == chess.White {
			last.Evaluation.Score = -MateThreshold
		} else {
			last.Evaluation.Score = MateThreshold
		}
		p.logger.Debug("terminal position is checkmate", "fen", last.FEN, "score", last.Evaluation.Score)
	case chess.Stalemate:
		p.logger.Debug("terminal position is stalemate", "fen", last.FEN)
	}
}
