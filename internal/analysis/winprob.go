package analysis

import "math"

// WinProbability converts a white-relative centipawn score into white's
// expected score on [0,1] using the standard logistic model. Mate-range
// scores saturate to certainty.
func WinProbability(scoreCP int) float64 {
	if scoreCP >= mateScoreFloor {
		return 1.0
	}
	if scoreCP <= -mateScoreFloor {
		return 0.0
	}
	return 1.0 / (1.0 + math.Pow(10, -float64(scoreCP)/400.0))
}

// sideWinProbability is the win probability from the given side's
// perspective.
func sideWinProbability(scoreCP int, side Side) float64 {
	wp := WinProbability(scoreCP)
	if side == Black {
		return 1.0 - wp
	}
	return wp
}
