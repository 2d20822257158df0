package uci

import (
	"strconv"
	"strings"
)

// SearchResult is the engine's answer for one position. ScoreCP and Mate are
// raw engine output, relative to the side to move in the searched position;
// Mate is 0 when the score is an ordinary centipawn value. BestMove is empty
// when the engine reported "(none)" (terminal position).
type SearchResult struct {
	Depth    int
	ScoreCP  int
	Mate     int
	BestMove string
	PV       []string
}

// parseInfo extracts depth, score, and principal variation from a UCI "info"
// line. Lines without a score (e.g. "info string ...", currmove reports) are
// not usable and return ok=false.
func parseInfo(line string) (SearchResult, bool) {
	if !strings.HasPrefix(line, "info") {
		return SearchResult{}, false
	}

	var r SearchResult
	seenScore := false

	fields := strings.Fields(line)
	for i := 0; i < len(fields); i++ {
		switch fields[i] {
		case "depth":
			if i+1 < len(fields) {
				if v, err := strconv.Atoi(fields[i+1]); err == nil {
					r.Depth = v
				}
				i++
			}
		case "score":
			if i+2 < len(fields) {
				v, err := strconv.Atoi(fields[i+2])
				if err != nil {
					continue
				}
				switch fields[i+1] {
				case "cp":
					r.ScoreCP = v
					seenScore = true
				case "mate":
					r.Mate = v
					seenScore = true
				}
				i += 2
			}
		case "pv":
			if i+1 < len(fields) {
				r.PV = fields[i+1:]
				i = len(fields)
			}
		}
	}

	return r, seenScore
}

// parseBestMove extracts the chosen move from a "bestmove" line. The engine
// reports "(none)" when the position has no legal moves; that maps to an
// empty move string.
func parseBestMove(line string) (string, bool) {
	if !strings.HasPrefix(line, "bestmove") {
		return "", false
	}
	fields := strings.Fields(line)
	if len(fields) < 2 || fields[1] == "(none)" {
		return "", true
	}
	return fields[1], true
}
