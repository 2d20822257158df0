package analysis

import (
	"fmt"
	"strings"

	"github.com/notnil/chess"
)

// GameFromPGN parses a PGN movetext into the analyzer's input shape. The
// rules library carries legality; analysis itself only consumes the
// resulting per-ply notation, FEN, and moving side.
func GameFromPGN(pgn string) (Game, error) {
	opt, err := chess.PGN(strings.NewReader(pgn))
	if err != nil {
		return Game{}, fmt.Errorf("invalid PGN: %w", err)
	}
	g := chess.NewGame(opt)

	positions := g.Positions()
	moves := g.Moves()
	if len(positions) != len(moves)+1 {
		return Game{}, fmt.Errorf("inconsistent game: %d positions for %d moves", len(positions), len(moves))
	}

	out := Game{StartFEN: positions[0].String()}
	notation := chess.AlgebraicNotation{}
	for i, mv := range moves {
		side := White
		if positions[i].Turn() == chess.Black {
			side = Black
		}
		out.Moves = append(out.Moves, PlayedMove{
			Notation: notation.Encode(positions[i], mv),
			FEN:      positions[i+1].String(),
			Side:     side,
		})
	}
	return out, nil
}
