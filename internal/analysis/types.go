package analysis

// Side identifies the player who made a move.
type Side string

const (
	White Side = "white"
	Black Side = "black"
)

// Opponent returns the other side.
func (s Side) Opponent() Side {
	if s == White {
		return Black
	}
	return White
}

// Classification labels the quality of a played move.
type Classification string

const (
	ClassBook       Classification = "book"
	ClassBrilliant  Classification = "brilliant"
	ClassGreat      Classification = "great"
	ClassBest       Classification = "best"
	ClassExcellent  Classification = "excellent"
	ClassGood       Classification = "good"
	ClassInaccuracy Classification = "inaccuracy"
	ClassMistake    Classification = "mistake"
	ClassMiss       Classification = "miss"
	ClassBlunder    Classification = "blunder"
)

const (
	// MateThreshold is the centipawn magnitude that encodes forced mate.
	// A mate in N maps to sign*(MateThreshold-N), so nearer mates score
	// higher and every mate outranks any conventional evaluation.
	MateThreshold = 10000

	// mateScoreFloor is the magnitude above which an evaluation is treated
	// as a forced mate for win-probability and classification purposes.
	mateScoreFloor = 9900

	// criticalSwingCP is the absolute evaluation swing across one ply that
	// marks a critical moment.
	criticalSwingCP = 200

	// Book classification window: early plies with near-zero loss.
	bookPlyLimit   = 8
	bookRawLossCap = 5
)

// Evaluation is the engine's verdict on a single position, normalized to
// white's point of view.
type Evaluation struct {
	Score    int      `json:"score"`
	BestMove string   `json:"bestMove,omitempty"`
	BestLine []string `json:"bestLine,omitempty"`
}

// PlayedMove is one half-move of the game under analysis. FEN is the
// position after the move was played.
type PlayedMove struct {
	Notation string `json:"notation"`
	FEN      string `json:"fen"`
	Side     Side   `json:"side"`
}

// Game is the input to analysis: a start position and the sequence of
// half-moves actually played.
type Game struct {
	StartFEN string       `json:"startFen"`
	Moves    []PlayedMove `json:"moves"`
}

// Position is one analyzed node of the game. Ply 0 is the starting
// position and carries no played move or classification.
type Position struct {
	Ply            int            `json:"ply"`
	FEN            string         `json:"fen"`
	Evaluation     Evaluation     `json:"evaluation"`
	PlayedMove     string         `json:"playedMove,omitempty"`
	PlayedSide     Side           `json:"playedSide,omitempty"`
	Classification Classification `json:"classification,omitempty"`
	CentipawnLoss  int            `json:"centipawnLoss"`
}

// CriticalMoment marks a ply where the evaluation swung sharply.
type CriticalMoment struct {
	Ply     int  `json:"ply"`
	SwingCP int  `json:"swingCp"`
	Side    Side `json:"side"`
}

// SideSummary aggregates one player's performance.
type SideSummary struct {
	Accuracy float64                `json:"accuracy"`
	Counts   map[Classification]int `json:"counts"`
}

// Result is the complete output of analyzing one game.
type Result struct {
	Positions       []Position           `json:"positions"`
	CriticalMoments []CriticalMoment     `json:"criticalMoments"`
	Summary         map[Side]SideSummary `json:"summary"`
	Depth           int                  `json:"depth"`
}
