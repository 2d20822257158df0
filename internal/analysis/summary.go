package analysis

import "math"

// Summarize computes critical moments and per-side aggregates over a
// classified position list.
func Summarize(positions []Position) ([]CriticalMoment, map[Side]SideSummary) {
	moments := make([]CriticalMoment, 0)
	scores := map[Side][]float64{White: nil, Black: nil}
	counts := map[Side]map[Classification]int{
		White: make(map[Classification]int),
		Black: make(map[Classification]int),
	}

	for i := 1; i < len(positions); i++ {
		prev := positions[i-1]
		curr := positions[i]
		side := curr.PlayedSide

		swing := curr.Evaluation.Score - prev.Evaluation.Score
		if abs(swing) >= criticalSwingCP {
			moments = append(moments, CriticalMoment{Ply: i, SwingCP: swing, Side: side})
		}

		prevWP := sideWinProbability(prev.Evaluation.Score, side)
		currWP := sideWinProbability(curr.Evaluation.Score, side)
		lost := prevWP - currWP
		if lost < 0 {
			lost = 0
		}
		scores[side] = append(scores[side], moveAccuracy(lost))

		if curr.Classification != "" {
			counts[side][curr.Classification]++
		}
	}

	summary := make(map[Side]SideSummary, 2)
	for _, side := range []Side{White, Black} {
		summary[side] = SideSummary{
			Accuracy: meanRounded(scores[side]),
			Counts:   counts[side],
		}
	}
	return moments, summary
}

// moveAccuracy maps one move's expected-points loss to a 0..100 score.
// Losing half an expected point already collapses the move to 0.
func moveAccuracy(epLost float64) float64 {
	score := 100 * (1 - 2*epLost)
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// meanRounded averages to one decimal place. An empty slice reports 0.
func meanRounded(scores []float64) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return math.Round(sum/float64(len(scores))*10) / 10
}
