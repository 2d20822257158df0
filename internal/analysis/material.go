package analysis

import (
	"github.com/notnil/chess"
)

var pieceValues = map[chess.PieceType]int{
	chess.Pawn:   1,
	chess.Knight: 3,
	chess.Bishop: 3,
	chess.Rook:   5,
	chess.Queen:  9,
}

// materialCount sums piece values per side for a FEN position. Kings do not
// count.
func materialCount(fen string) (white, black int, err error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return 0, 0, err
	}
	game := chess.NewGame(opt)
	for _, piece := range game.Position().Board().SquareMap() {
		v := pieceValues[piece.Type()]
		if piece.Color() == chess.White {
			white += v
		} else {
			black += v
		}
	}
	return white, black, nil
}

// isSacrifice reports whether the mover gave up more material than they
// captured across the ply from prevFEN to currFEN. Unparseable positions
// conservatively report no sacrifice.
func isSacrifice(prevFEN, currFEN string, mover Side) bool {
	prevW, prevB, err := materialCount(prevFEN)
	if err != nil {
		return false
	}
	currW, currB, err := materialCount(currFEN)
	if err != nil {
		return false
	}

	moverLoss := prevW - currW
	oppLoss := prevB - currB
	if mover == Black {
		moverLoss, oppLoss = oppLoss, moverLoss
	}
	return moverLoss > 0 && moverLoss > oppLoss
}
