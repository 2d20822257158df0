package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/chessreview/engine/internal/uci"
)

// Evaluator turns raw engine output into white-relative evaluations. The
// engine reports scores from the side to move's perspective; flipping when
// black is on move gives every position in a game a common frame.
type Evaluator struct {
	searcher uci.Searcher
}

// NewEvaluator creates an evaluator over the given engine session.
func NewEvaluator(searcher uci.Searcher) *Evaluator {
	return &Evaluator{searcher: searcher}
}

// Evaluate searches one position to the given depth and normalizes the
// score. A forced mate in N maps to sign*(MateThreshold-N) so that nearer
// mates dominate and every mate outranks any conventional score.
func (e *Evaluator) Evaluate(ctx context.Context, fen string, depth int) (Evaluation, error) {
	res, err := e.searcher.Search(ctx, fen, depth)
	if err != nil {
		return Evaluation{}, fmt.Errorf("engine search failed: %w", err)
	}

	score := res.ScoreCP
	if res.Mate != 0 {
		score = mateScore(res.Mate)
	}
	if blackToMove(fen) {
		score = -score
	}

	return Evaluation{
		Score:    score,
		BestMove: res.BestMove,
		BestLine: res.PV,
	}, nil
}

// mateScore encodes a side-to-move-relative mate distance as a centipawn
// magnitude just under MateThreshold.
func mateScore(mateIn int) int {
	n := mateIn
	if n < 0 {
		n = -n
	}
	if n > MateThreshold {
		n = MateThreshold
	}
	score := MateThreshold - n
	if mateIn < 0 {
		return -score
	}
	return score
}

// blackToMove reads the active-color field of a FEN string.
func blackToMove(fen string) bool {
	fields := strings.Fields(fen)
	return len(fields) >= 2 && fields[1] == "b"
}
