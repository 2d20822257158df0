package uci

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseInfo_DepthScorePV(t *testing.T) {
	r, ok := parseInfo("info depth 18 seldepth 24 multipv 1 score cp 35 nodes 1234567 nps 900000 pv e2e4 e7e5 g1f3")
	assert.True(t, ok)
	assert.Equal(t, 18, r.Depth)
	assert.Equal(t, 35, r.ScoreCP)
	assert.Equal(t, 0, r.Mate)
	assert.Equal(t, []string{"e2e4", "e7e5", "g1f3"}, r.PV)
}

func TestParseInfo_MateScore(t *testing.T) {
	r, ok := parseInfo("info depth 12 score mate 3 pv d1h5")
	assert.True(t, ok)
	assert.Equal(t, 3, r.Mate)
	assert.Equal(t, 0, r.ScoreCP)

	r, ok = parseInfo("info depth 12 score mate -2")
	assert.True(t, ok)
	assert.Equal(t, -2, r.Mate)
}

func TestParseInfo_NegativeCP(t *testing.T) {
	r, ok := parseInfo("info depth 10 score cp -245 pv d7d5")
	assert.True(t, ok)
	assert.Equal(t, -245, r.ScoreCP)
}

func TestParseInfo_LinesWithoutScore(t *testing.T) {
	cases := []string{
		"info string NNUE evaluation using nn-abc123.nnue",
		"info depth 20 currmove e2e4 currmovenumber 1",
		"info nodes 500 nps 100000",
	}
	for _, line := range cases {
		_, ok := parseInfo(line)
		assert.False(t, ok, "line %q should not yield a usable result", line)
	}
}

func TestParseInfo_NotAnInfoLine(t *testing.T) {
	_, ok := parseInfo("bestmove e2e4")
	assert.False(t, ok)
}

func TestParseBestMove(t *testing.T) {
	tests := []struct {
		line string
		move string
		ok   bool
	}{
		{"bestmove e2e4 ponder e7e5", "e2e4", true},
		{"bestmove g1f3", "g1f3", true},
		{"bestmove (none)", "", true},
		{"info depth 5", "", false},
		{"bestmove", "", true},
	}
	for _, tt := range tests {
		move, ok := parseBestMove(tt.line)
		assert.Equal(t, tt.ok, ok, "line: %q", tt.line)
		assert.Equal(t, tt.move, move, "line: %q", tt.line)
	}
}
