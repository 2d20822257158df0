package analysis

// Classify labels every played move in place and fills in centipawn loss.
// It runs as a second pass over the fully evaluated position list because
// the miss detector needs the loss history of earlier plies.
func Classify(positions []Position) {
	epLost := make([]float64, len(positions))

	for i := 1; i < len(positions); i++ {
		prev := &positions[i-1]
		curr := &positions[i]
		side := curr.PlayedSide

		rawDelta := moverDelta(prev.Evaluation.Score, curr.Evaluation.Score, side)
		rawLoss := 0
		if rawDelta < 0 {
			rawLoss = -rawDelta
		}
		curr.CentipawnLoss = rawLoss

		prevWP := sideWinProbability(prev.Evaluation.Score, side)
		currWP := sideWinProbability(curr.Evaluation.Score, side)
		lost := prevWP - currWP
		if lost < 0 {
			lost = 0
		}
		epLost[i] = lost

		curr.Classification = classifyMove(moveContext{
			ply:       i,
			isFinal:   i == len(positions)-1,
			prev:      prev,
			curr:      curr,
			side:      side,
			rawDelta:  rawDelta,
			rawLoss:   rawLoss,
			epLost:    lost,
			oppEPLost: epLost[i-1],
			prevWP:    prevWP,
			currWP:    currWP,
		})
		if curr.Classification == ClassBest && curr.Evaluation.BestMove == "" {
			// Mate delivery carries no loss by definition.
			curr.CentipawnLoss = 0
		}
	}
}

type moveContext struct {
	ply       int
	isFinal   bool
	prev      *Position
	curr      *Position
	side      Side
	rawDelta  int
	rawLoss   int
	epLost    float64
	oppEPLost float64
	prevWP    float64
	currWP    float64
}

func classifyMove(c moveContext) Classification {
	// Delivering mate ends the game on the best possible note even though
	// the engine cannot search past the terminal node.
	if c.isFinal && c.curr.Evaluation.BestMove == "" && abs(c.curr.Evaluation.Score) >= MateThreshold {
		return ClassBest
	}

	if c.ply <= bookPlyLimit && c.rawLoss < bookRawLossCap {
		return ClassBook
	}

	// Squandering a forced win is the worst category regardless of how the
	// raw numbers land.
	if isMateFor(c.prev.Evaluation.Score, c.side) && !isMateScore(c.curr.Evaluation.Score) {
		return ClassBlunder
	}

	// The opponent handed over an advantage on their previous move and the
	// player failed to convert it.
	if c.epLost >= 0.05 && c.oppEPLost >= 0.08 {
		return ClassMiss
	}

	switch {
	case c.epLost >= 0.20:
		return ClassBlunder
	case c.epLost >= 0.10:
		return ClassMistake
	case c.epLost >= 0.05:
		return ClassInaccuracy
	}

	if c.rawLoss == 0 {
		if isSacrifice(c.prev.FEN, c.curr.FEN, c.side) && c.prevWP < 0.90 && c.currWP > 0.20 {
			return ClassBrilliant
		}
		if c.rawDelta >= 100 {
			return ClassGreat
		}
		return ClassBest
	}

	if c.epLost < 0.02 {
		return ClassExcellent
	}
	return ClassGood
}

// moverDelta is the evaluation change from the moving side's perspective.
// Positive means the move improved the mover's standing.
func moverDelta(prevScore, currScore int, side Side) int {
	if side == Black {
		return prevScore - currScore
	}
	return currScore - prevScore
}

func isMateScore(score int) bool {
	return abs(score) >= mateScoreFloor
}

// isMateFor reports whether score encodes a forced mate in favor of side.
func isMateFor(score int, side Side) bool {
	if !isMateScore(score) {
		return false
	}
	if side == White {
		return score > 0
	}
	return score < 0
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
