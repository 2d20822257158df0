package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGameFromPGN_ScholarsMateOpening(t *testing.T) {
	game, err := GameFromPGN("1. e4 e5 2. Qh5 Nc6 3. Bc4 Nf6 4. Qxf7# 1-0")
	require.NoError(t, err)

	require.Len(t, game.Moves, 7)
	assert.Equal(t, "e4", game.Moves[0].Notation)
	assert.Equal(t, White, game.Moves[0].Side)
	assert.Equal(t, "e5", game.Moves[1].Notation)
	assert.Equal(t, Black, game.Moves[1].Side)
	assert.Equal(t, White, game.Moves[6].Side)

	// Every ply carries the position reached after the move.
	for i, mv := range game.Moves {
		assert.NotEmpty(t, mv.FEN, "ply %d", i+1)
	}
	assert.Contains(t, game.StartFEN, " w KQkq")
}

func TestGameFromPGN_WithTagSection(t *testing.T) {
	pgn := `[Event "Casual Game"]
[White "A"]
[Black "B"]
[Result "*"]

1. d4 d5 2. c4 *`
	game, err := GameFromPGN(pgn)
	require.NoError(t, err)
	require.Len(t, game.Moves, 3)
	assert.Equal(t, "d4", game.Moves[0].Notation)
	assert.Equal(t, "c4", game.Moves[2].Notation)
}

func TestGameFromPGN_Invalid(t *testing.T) {
	_, err := GameFromPGN("1. e4 e5 2. Ke2 Ke7 3. zz9")
	assert.Error(t, err)
}
